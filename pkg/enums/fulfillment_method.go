package enums

import "slices"

// FulfillmentMethod says how a cart line reaches the buyer.
type FulfillmentMethod string

const (
	FulfillmentShip   FulfillmentMethod = "SHIP"
	FulfillmentPickup FulfillmentMethod = "PICKUP"
)

var validFulfillmentMethods = []FulfillmentMethod{
	FulfillmentShip,
	FulfillmentPickup,
}

func (f FulfillmentMethod) String() string {
	return string(f)
}

func (f FulfillmentMethod) IsValid() bool { return slices.Contains(validFulfillmentMethods, f) }

func ParseFulfillmentMethod(value string) (FulfillmentMethod, error) {
	return parseEnum(validFulfillmentMethods, value, "fulfillment method")
}
