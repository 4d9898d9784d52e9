package enums

import "slices"

// TradeStatus maps to c2c_trades.status.
type TradeStatus string

const (
	TradeInitiated        TradeStatus = "INITIATED"
	TradePaymentPending   TradeStatus = "PAYMENT_PENDING"
	TradePaymentConfirmed TradeStatus = "PAYMENT_CONFIRMED"
	TradeShipping         TradeStatus = "SHIPPING"
	TradeDelivered        TradeStatus = "DELIVERED"
	TradeCompleted        TradeStatus = "COMPLETED"
	TradeDisputed         TradeStatus = "DISPUTED"
	TradeCancelled        TradeStatus = "CANCELLED"
)

var validTradeStatuses = []TradeStatus{
	TradeInitiated,
	TradePaymentPending,
	TradePaymentConfirmed,
	TradeShipping,
	TradeDelivered,
	TradeCompleted,
	TradeDisputed,
	TradeCancelled,
}

func (t TradeStatus) String() string {
	return string(t)
}

func (t TradeStatus) IsValid() bool { return slices.Contains(validTradeStatuses, t) }

func ParseTradeStatus(value string) (TradeStatus, error) {
	return parseEnum(validTradeStatuses, value, "trade status")
}

// IsTerminal reports whether no further transition can leave the status.
func (t TradeStatus) IsTerminal() bool {
	return t == TradeCompleted || t == TradeCancelled
}
