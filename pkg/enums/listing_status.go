package enums

import "slices"

// ListingStatus maps to c2c_listings.status.
type ListingStatus string

const (
	ListingActive    ListingStatus = "ACTIVE"
	ListingReserved  ListingStatus = "RESERVED"
	ListingSold      ListingStatus = "SOLD"
	ListingCancelled ListingStatus = "CANCELLED"
	ListingInactive  ListingStatus = "INACTIVE"
)

var validListingStatuses = []ListingStatus{
	ListingActive,
	ListingReserved,
	ListingSold,
	ListingCancelled,
	ListingInactive,
}

func (l ListingStatus) String() string {
	return string(l)
}

func (l ListingStatus) IsValid() bool { return slices.Contains(validListingStatuses, l) }

func ParseListingStatus(value string) (ListingStatus, error) {
	return parseEnum(validListingStatuses, value, "listing status")
}
