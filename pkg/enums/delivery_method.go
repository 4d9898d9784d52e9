package enums

import "slices"

// DeliveryMethod is how a C2C item changes hands.
type DeliveryMethod string

const (
	DeliveryShipping DeliveryMethod = "SHIPPING"
	DeliveryMeetup   DeliveryMethod = "MEETUP"
)

var validDeliveryMethods = []DeliveryMethod{
	DeliveryShipping,
	DeliveryMeetup,
}

func (d DeliveryMethod) String() string {
	return string(d)
}

func (d DeliveryMethod) IsValid() bool { return slices.Contains(validDeliveryMethods, d) }

func ParseDeliveryMethod(value string) (DeliveryMethod, error) {
	return parseEnum(validDeliveryMethods, value, "delivery method")
}
