package enums

import "slices"

// TradeRole is a participant's side of a trade.
type TradeRole string

const (
	RoleBuyer  TradeRole = "BUYER"
	RoleSeller TradeRole = "SELLER"
)

var validTradeRoles = []TradeRole{
	RoleBuyer,
	RoleSeller,
}

func (t TradeRole) String() string {
	return string(t)
}

func (t TradeRole) IsValid() bool { return slices.Contains(validTradeRoles, t) }

func ParseTradeRole(value string) (TradeRole, error) {
	return parseEnum(validTradeRoles, value, "trade role")
}
