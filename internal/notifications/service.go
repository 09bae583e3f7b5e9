package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fashionshop/storefront-notifier/pkg/db/models"
	pkgerrors "github.com/fashionshop/storefront-notifier/pkg/errors"
)

// Service is the notification surface the UI layer consumes.
type Service interface {
	List(ctx context.Context) ([]models.Notification, error)
	UnreadCount(ctx context.Context) (int64, error)
	MarkRead(ctx context.Context, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context) (int64, error)
	Delete(ctx context.Context, notificationID uuid.UUID) error
	DeleteAll(ctx context.Context) (int64, error)
	Reset(ctx context.Context) error
}

// snapshotResetter clears the poll baselines so the next poll behaves as a
// first run. Satisfied by internal/snapshot.Store.
type snapshotResetter interface {
	Reset(ctx context.Context) error
}

type service struct {
	repo      Repository
	snapshots snapshotResetter
}

// NewService wires the notification surface.
func NewService(repo Repository, snapshots snapshotResetter) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if snapshots == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "snapshot store required")
	}
	return &service{repo: repo, snapshots: snapshots}, nil
}

func (s *service) List(ctx context.Context) ([]models.Notification, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list notifications")
	}
	return rows, nil
}

func (s *service) UnreadCount(ctx context.Context) (int64, error) {
	count, err := s.repo.UnreadCount(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "count unread notifications")
	}
	return count, nil
}

func (s *service) MarkRead(ctx context.Context, notificationID uuid.UUID) error {
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	result, err := s.repo.MarkRead(ctx, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) Delete(ctx context.Context, notificationID uuid.UUID) error {
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	found, err := s.repo.Delete(ctx, notificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "delete notification")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) DeleteAll(ctx context.Context) (int64, error) {
	count, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "delete notifications")
	}
	return count, nil
}

// Reset clears the notification log and every poll snapshot. Debug/test
// operation: after this the engine re-runs its first-run heuristics.
func (s *service) Reset(ctx context.Context) error {
	if _, err := s.repo.DeleteAll(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clearing notification log")
	}
	if err := s.snapshots.Reset(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clearing snapshots")
	}
	return nil
}
