package enums

import "slices"

// PaymentStatus mirrors the payments.status column.
type PaymentStatus string

const (
	PaymentStatusPending          PaymentStatus = "PENDING"
	PaymentStatusPaid             PaymentStatus = "PAID"
	PaymentStatusFailed           PaymentStatus = "FAILED"
	PaymentStatusRefundProcessing PaymentStatus = "REFUND_PROCESSING"
	PaymentStatusRefunded         PaymentStatus = "REFUNDED"
	PaymentStatusRefundFailed     PaymentStatus = "REFUND_FAILED"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusRefundProcessing,
	PaymentStatusRefunded,
	PaymentStatusRefundFailed,
}

func (p PaymentStatus) String() string {
	return string(p)
}

func (p PaymentStatus) IsValid() bool { return slices.Contains(validPaymentStatuses, p) }

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parseEnum(validPaymentStatuses, value, "payment status")
}
