package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fashionshop/storefront-notifier/pkg/enums"
)

// Notification is one row of the append-only in-app notification log. DedupKey
// carries the composite identity of the source event (product:<id> or
// order:<id>:<status>); the unique index on it is what enforces at-most-once
// delivery per entity, replacing a full-log duplicate scan.
type Notification struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Type          enums.NotificationType `gorm:"column:type;type:text;not null"`
	Title         string                 `gorm:"column:title;type:text;not null"`
	Message       string                 `gorm:"column:message;type:text;not null"`
	CorrelationID string                 `gorm:"column:correlation_id;type:text;not null;index"`
	DedupKey      string                 `gorm:"column:dedup_key;type:text;not null;uniqueIndex"`
	Variants      int                    `gorm:"column:variants;not null;default:1"`
	Screen        string                 `gorm:"column:screen;type:text;not null"`
	Action        string                 `gorm:"column:action;type:text;not null"`
	ReadAt        *time.Time             `gorm:"column:read_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
}

// IsRead reports whether the record has been read-marked.
func (n Notification) IsRead() bool {
	return n.ReadAt != nil
}
