package poller

import (
	"fmt"

	"github.com/fashionshop/storefront-notifier/pkg/enums"
)

const (
	productScreen = "ProductDetail"
	productAction = "open_product"
	orderScreen   = "OrderDetail"
	orderAction   = "open_order"
)

func productTitle() string {
	return "Sản Phẩm Mới Về"
}

func productMessage(name string, variants int) string {
	if variants > 1 {
		return fmt.Sprintf("%s (%d mẫu) vừa lên kệ, xem ngay!", name, variants)
	}
	return fmt.Sprintf("%s vừa lên kệ, xem ngay!", name)
}

// orderTemplateFor picks the title/message pair for a notifiable status.
// Unrecognized notifiable values fall back to the generic template.
func orderTemplateFor(orderID string, status enums.OrderStatus) (title, message string) {
	switch status {
	case enums.OrderStatusConfirmed:
		return "Đơn Hàng Đã Xác Nhận", fmt.Sprintf("Đơn hàng #%s đã được xác nhận.", orderID)
	case enums.OrderStatusShipping:
		return "Đơn Hàng Đang Giao", fmt.Sprintf("Đơn hàng #%s đang trên đường giao đến bạn.", orderID)
	case enums.OrderStatusDelivered:
		return "Đơn Hàng Đã Giao Thành Công", fmt.Sprintf("Đơn hàng #%s đã được giao thành công. Cảm ơn bạn!", orderID)
	default:
		return "Cập Nhật Đơn Hàng", fmt.Sprintf("Đơn hàng #%s vừa chuyển sang trạng thái %s.", orderID, status)
	}
}
