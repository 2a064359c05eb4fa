package domain

import "fmt"

// GatewayResponseCodeParam is the callback query parameter carrying the
// gateway's result code.
const GatewayResponseCodeParam = "vnp_ResponseCode"

// GatewayTxnRefParam is the callback query parameter carrying the gateway's
// transaction reference.
const GatewayTxnRefParam = "vnp_TxnRef"

// gatewayMessages maps gateway response codes to user-facing messages, so a
// declined payment renders as "insufficient balance" instead of a bare code.
var gatewayMessages = map[string]string{
	"00": "Giao dịch thành công",
	"07": "Giao dịch bị nghi ngờ gian lận, vui lòng liên hệ ngân hàng",
	"09": "Thẻ/Tài khoản chưa đăng ký dịch vụ InternetBanking",
	"10": "Xác thực thông tin thẻ/tài khoản không đúng quá 3 lần",
	"11": "Đã hết hạn chờ thanh toán, vui lòng thực hiện lại giao dịch",
	"12": "Thẻ/Tài khoản bị khóa",
	"13": "Nhập sai mật khẩu xác thực giao dịch (OTP)",
	"24": "Khách hàng đã hủy giao dịch",
	"51": "Tài khoản không đủ số dư để thực hiện giao dịch",
	"65": "Tài khoản đã vượt quá hạn mức giao dịch trong ngày",
	"75": "Ngân hàng thanh toán đang bảo trì",
	"79": "Nhập sai mật khẩu thanh toán quá số lần quy định",
}

// GatewayMessage returns the user-facing message for a gateway response code,
// with a generic fallback for unknown codes.
func GatewayMessage(code string) string {
	if msg, ok := gatewayMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("Giao dịch không thành công (mã lỗi %s)", code)
}

// GatewayError is a payment declined by the gateway before server-side
// confirmation was attempted.
type GatewayError struct {
	// Code is the raw gateway response code.
	Code string
	// Message is the mapped user-facing message.
	Message string
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway declined payment (code %s): %s", e.Code, e.Message)
}

// NewGatewayError builds a GatewayError for a non-success response code.
func NewGatewayError(code string) *GatewayError {
	return &GatewayError{Code: code, Message: GatewayMessage(code)}
}
