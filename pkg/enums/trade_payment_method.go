package enums

import "slices"

// TradePaymentMethod is how a C2C buyer pays the seller.
// TradePaymentWalletTokens is defined but not accepted.
type TradePaymentMethod string

const (
	TradePaymentBankTransfer   TradePaymentMethod = "BANK_TRANSFER"
	TradePaymentCashOnDelivery TradePaymentMethod = "CASH_ON_DELIVERY"
	TradePaymentWalletTokens   TradePaymentMethod = "WALLET_TOKENS"
)

var validTradePaymentMethods = []TradePaymentMethod{
	TradePaymentBankTransfer,
	TradePaymentCashOnDelivery,
	TradePaymentWalletTokens,
}

func (t TradePaymentMethod) String() string {
	return string(t)
}

func (t TradePaymentMethod) IsValid() bool { return slices.Contains(validTradePaymentMethods, t) }

func ParseTradePaymentMethod(value string) (TradePaymentMethod, error) {
	return parseEnum(validTradePaymentMethods, value, "trade payment method")
}
