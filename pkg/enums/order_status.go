package enums

import "fmt"

// OrderStatus mirrors the status strings the storefront backend reports.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipping  OrderStatus = "shipping"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// notifiableOrderStatuses is the fixed allow-list of states the notifier ever
// turns into notifications. Transitions between two states outside this list
// are invisible to the system.
var notifiableOrderStatuses = []OrderStatus{
	OrderStatusConfirmed,
	OrderStatusShipping,
	OrderStatusDelivered,
}

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipping,
	OrderStatusDelivered,
	OrderStatusCanceled,
}

// IsValid checks whether the value matches a known storefront status.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Notifiable reports whether this status belongs to the notification allow-list.
func (s OrderStatus) Notifiable() bool {
	for _, candidate := range notifiableOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts the raw string to OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
