package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/pkg/enums"
)

type Listing struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	SellerID    uuid.UUID              `gorm:"column:seller_id;type:uuid;not null;index"`
	ItemID      uuid.UUID              `gorm:"column:item_id;type:uuid;not null"`
	SizeID      uuid.UUID              `gorm:"column:size_id;type:uuid;not null"`
	Price       int64                  `gorm:"column:price;not null"`
	Condition   enums.ListingCondition `gorm:"column:condition;type:varchar(16);not null"`
	Description *string                `gorm:"column:description;type:text"`
	Images      []string               `gorm:"column:images;type:jsonb;serializer:json"`
	Status      enums.ListingStatus    `gorm:"column:status;type:varchar(16);not null;index"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (Listing) TableName() string { return "c2c_listings" }

func (l *Listing) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

type Trade struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	ListingID      uuid.UUID                `gorm:"column:listing_id;type:uuid;not null;index"`
	BuyerID        uuid.UUID                `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID       uuid.UUID                `gorm:"column:seller_id;type:uuid;not null;index"`
	AgreedPrice    int64                    `gorm:"column:agreed_price;not null"`
	PaymentMethod  enums.TradePaymentMethod `gorm:"column:payment_method;type:varchar(32);not null"`
	DeliveryMethod enums.DeliveryMethod     `gorm:"column:delivery_method;type:varchar(16);not null"`
	Status         enums.TradeStatus        `gorm:"column:status;type:varchar(32);not null;index:idx_c2c_trades_status_due,priority:1"`

	PaymentProofURL *string    `gorm:"column:payment_proof_url;type:text"`
	TrackingNumber  *string    `gorm:"column:tracking_number;type:varchar(128)"`
	DisputeReason   *string    `gorm:"column:dispute_reason;type:text"`
	CancelReason    *string    `gorm:"column:cancel_reason;type:text"`
	CancelledBy     *uuid.UUID `gorm:"column:cancelled_by;type:uuid"`

	PaymentSubmittedAt *time.Time `gorm:"column:payment_submitted_at"`
	PaymentConfirmedAt *time.Time `gorm:"column:payment_confirmed_at"`
	ShippedAt          *time.Time `gorm:"column:shipped_at"`
	DeliveredAt        *time.Time `gorm:"column:delivered_at"`
	CompletedAt        *time.Time `gorm:"column:completed_at"`
	DisputedAt         *time.Time `gorm:"column:disputed_at"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at"`
	AutoCompleteAt     *time.Time `gorm:"column:auto_complete_at;index:idx_c2c_trades_status_due,priority:2"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Trade) TableName() string { return "c2c_trades" }

func (t *Trade) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// RoleOf reports the side userID plays in the trade.
func (t *Trade) RoleOf(userID uuid.UUID) (enums.TradeRole, bool) {
	switch userID {
	case t.BuyerID:
		return enums.RoleBuyer, true
	case t.SellerID:
		return enums.RoleSeller, true
	}
	return "", false
}

// TradeMessage is a line in a trade's thread. SenderID is nil for system lines.
type TradeMessage struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	TradeID   uuid.UUID         `gorm:"column:trade_id;type:uuid;not null;index"`
	SenderID  *uuid.UUID        `gorm:"column:sender_id;type:uuid"`
	Kind      enums.MessageKind `gorm:"column:kind;type:varchar(16);not null"`
	Body      string            `gorm:"column:body;type:text;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (TradeMessage) TableName() string { return "c2c_trade_messages" }

func (m *TradeMessage) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type Review struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TradeID    uuid.UUID       `gorm:"column:trade_id;type:uuid;not null;uniqueIndex:ux_c2c_reviews_trade_reviewer,priority:1"`
	ReviewerID uuid.UUID       `gorm:"column:reviewer_id;type:uuid;not null;uniqueIndex:ux_c2c_reviews_trade_reviewer,priority:2"`
	RevieweeID uuid.UUID       `gorm:"column:reviewee_id;type:uuid;not null;index:idx_c2c_reviews_reviewee,priority:1"`
	Role       enums.TradeRole `gorm:"column:role;type:varchar(16);not null;index:idx_c2c_reviews_reviewee,priority:2"`
	Rating     int             `gorm:"column:rating;not null;check:chk_c2c_reviews_rating,rating BETWEEN 1 AND 5"`
	Comment    *string         `gorm:"column:comment;type:text"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Review) TableName() string { return "c2c_reviews" }

func (r *Review) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// Reputation is the aggregate a user carries per trade role.
type Reputation struct {
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;primaryKey"`
	Role            enums.TradeRole `gorm:"column:role;type:varchar(16);primaryKey"`
	TotalTrades     int             `gorm:"column:total_trades;not null;default:0"`
	CompletedTrades int             `gorm:"column:completed_trades;not null;default:0"`
	DisputedTrades  int             `gorm:"column:disputed_trades;not null;default:0"`
	AverageRating   decimal.Decimal `gorm:"column:average_rating;type:numeric(5,2);not null"`
	CompletionRate  decimal.Decimal `gorm:"column:completion_rate;type:numeric(5,2);not null"`
	DisputeRate     decimal.Decimal `gorm:"column:dispute_rate;type:numeric(5,2);not null"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Reputation) TableName() string { return "c2c_reputations" }
