package payloads

import (
	"github.com/google/uuid"

	"github.com/moda-commerce/moda-backend/pkg/enums"
)

// OrderPlacedEvent is emitted once a paid cart has been allocated and turned
// into a transaction.
type OrderPlacedEvent struct {
	PaymentID     uuid.UUID            `json:"paymentId"`
	TransactionID uuid.UUID            `json:"transactionId"`
	OrderRef      string               `json:"orderRef"`
	UserID        uuid.UUID            `json:"userId"`
	CartID        uuid.UUID            `json:"cartId"`
	Gateway       enums.PaymentGateway `json:"gateway"`
	Amount        int64                `json:"amount"`
	Lines         []OrderLine          `json:"lines"`
}

type OrderLine struct {
	TransactionDetailID uuid.UUID        `json:"transactionDetailId"`
	ItemID              uuid.UUID        `json:"itemId"`
	SizeID              uuid.UUID        `json:"sizeId"`
	Quantity            int              `json:"quantity"`
	Price               int64            `json:"price"`
	Fulfillment         []FulfillingPart `json:"fulfillment"`
}

type FulfillingPart struct {
	BranchID uuid.UUID `json:"branchId"`
	Quantity int       `json:"quantity"`
}

// PaymentRefundUpdatedEvent tracks post-payment compensation.
type PaymentRefundUpdatedEvent struct {
	PaymentID     uuid.UUID            `json:"paymentId"`
	RefundID      uuid.UUID            `json:"refundId"`
	OrderRef      string               `json:"orderRef"`
	UserID        uuid.UUID            `json:"userId"`
	Gateway       enums.PaymentGateway `json:"gateway"`
	Amount        int64                `json:"amount"`
	RefundStatus  enums.RefundStatus   `json:"refundStatus"`
	PaymentStatus enums.PaymentStatus  `json:"paymentStatus"`
	Reason        string               `json:"reason"`
}

type TradeStatusChangedEvent struct {
	TradeID   uuid.UUID         `json:"tradeId"`
	ListingID uuid.UUID         `json:"listingId"`
	BuyerID   uuid.UUID         `json:"buyerId"`
	SellerID  uuid.UUID         `json:"sellerId"`
	From      enums.TradeStatus `json:"from,omitempty"`
	To        enums.TradeStatus `json:"to"`
	Action    string            `json:"action"`
	ActorID   *uuid.UUID        `json:"actorId,omitempty"`
	ActorRole string            `json:"actorRole"`
}

type ListingStatusChangedEvent struct {
	ListingID uuid.UUID           `json:"listingId"`
	SellerID  uuid.UUID           `json:"sellerId"`
	From      enums.ListingStatus `json:"from,omitempty"`
	To        enums.ListingStatus `json:"to"`
	TradeID   *uuid.UUID          `json:"tradeId,omitempty"`
}
