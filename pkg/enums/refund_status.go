package enums

import "slices"

// RefundStatus tracks a gateway refund attempt.
type RefundStatus string

const (
	RefundProcessing RefundStatus = "PROCESSING"
	RefundCompleted  RefundStatus = "COMPLETED"
	RefundFailed     RefundStatus = "FAILED"
)

var validRefundStatuses = []RefundStatus{
	RefundProcessing,
	RefundCompleted,
	RefundFailed,
}

func (r RefundStatus) String() string {
	return string(r)
}

func (r RefundStatus) IsValid() bool { return slices.Contains(validRefundStatuses, r) }
