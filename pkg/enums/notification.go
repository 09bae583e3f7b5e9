package enums

import "fmt"

// NotificationType identifies the event class a notification record was born from.
type NotificationType string

const (
	NotificationTypeNewProduct        NotificationType = "new_product"
	NotificationTypeOrderStatusChange NotificationType = "order_status_change"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeNewProduct,
	NotificationTypeOrderStatusChange,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
