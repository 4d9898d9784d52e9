package enums

import "slices"

// OutboxAggregateType maps to outbox_events.aggregate_type.
type OutboxAggregateType string

const (
	AggregatePayment OutboxAggregateType = "payment"
	AggregateTrade   OutboxAggregateType = "trade"
	AggregateListing OutboxAggregateType = "listing"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePayment,
	AggregateTrade,
	AggregateListing,
}

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(validAggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseEnum(validAggregateTypes, value, "aggregate type")
}

// OutboxEventType maps to outbox_events.event_type.
type OutboxEventType string

const (
	EventOrderPlaced          OutboxEventType = "order_placed"
	EventPaymentRefundUpdated OutboxEventType = "payment_refund_updated"
	EventTradeStatusChanged   OutboxEventType = "trade_status_changed"
	EventListingStatusChanged OutboxEventType = "listing_status_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventPaymentRefundUpdated,
	EventTradeStatusChanged,
	EventListingStatusChanged,
}

func (e OutboxEventType) IsValid() bool { return slices.Contains(validOutboxEventTypes, e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseEnum(validOutboxEventTypes, value, "event type")
}
