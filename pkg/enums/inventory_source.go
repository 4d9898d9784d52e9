package enums

import "slices"

// InventorySource records how a user acquired a lot.
type InventorySource string

const (
	InventorySourcePurchase      InventorySource = "PURCHASE"
	InventorySourceC2CTrade      InventorySource = "C2C_TRADE"
	InventorySourceListingReturn InventorySource = "LISTING_RETURN"
)

var validInventorySources = []InventorySource{
	InventorySourcePurchase,
	InventorySourceC2CTrade,
	InventorySourceListingReturn,
}

func (i InventorySource) String() string {
	return string(i)
}

func (i InventorySource) IsValid() bool { return slices.Contains(validInventorySources, i) }

func ParseInventorySource(value string) (InventorySource, error) {
	return parseEnum(validInventorySources, value, "inventory source")
}
