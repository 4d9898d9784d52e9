package enums

import "slices"

type ListingCondition string

const (
	ConditionNew     ListingCondition = "NEW"
	ConditionLikeNew ListingCondition = "LIKE_NEW"
	ConditionGood    ListingCondition = "GOOD"
	ConditionFair    ListingCondition = "FAIR"
)

var validListingConditions = []ListingCondition{
	ConditionNew,
	ConditionLikeNew,
	ConditionGood,
	ConditionFair,
}

func (l ListingCondition) String() string {
	return string(l)
}

func (l ListingCondition) IsValid() bool { return slices.Contains(validListingConditions, l) }

func ParseListingCondition(value string) (ListingCondition, error) {
	return parseEnum(validListingConditions, value, "listing condition")
}
