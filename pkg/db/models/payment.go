package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/pkg/enums"
)

// Payment is one gateway payment attempt for a cart.
type Payment struct {
	ID                   uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderRef             string               `gorm:"column:order_ref;type:varchar(64);not null;uniqueIndex:ux_payments_order_ref"`
	CartID               uuid.UUID            `gorm:"column:cart_id;type:uuid;not null;index"`
	UserID               uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	Gateway              enums.PaymentGateway `gorm:"column:gateway;type:varchar(16);not null"`
	Amount               int64                `gorm:"column:amount;not null"`
	Status               enums.PaymentStatus  `gorm:"column:status;type:varchar(32);not null"`
	GatewayTransactionNo *string              `gorm:"column:gateway_transaction_no;type:varchar(64)"`
	GatewayPaidAt        *time.Time           `gorm:"column:gateway_paid_at"`
	Address              string               `gorm:"column:address;type:text;not null"`
	CouponCode           *string              `gorm:"column:coupon_code;type:varchar(64)"`
	PointsUsed           int64                `gorm:"column:points_used;not null;default:0"`
	CreatedAt            time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Transaction is the order created by a successful payment.
type Transaction struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PaymentID uuid.UUID `gorm:"column:payment_id;type:uuid;not null;uniqueIndex:ux_transactions_payment"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null"`
	Amount    int64     `gorm:"column:amount;not null"`
	Address   string    `gorm:"column:address;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`

	Details []TransactionDetail `gorm:"foreignKey:TransactionID;references:ID"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

type TransactionDetail struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID    uuid.UUID `gorm:"column:transaction_id;type:uuid;not null;index"`
	ItemID           uuid.UUID `gorm:"column:item_id;type:uuid;not null"`
	SizeID           uuid.UUID `gorm:"column:size_id;type:uuid;not null"`
	Quantity         int       `gorm:"column:quantity;not null"`
	Price            int64     `gorm:"column:price;not null"`
	RefundedQuantity int       `gorm:"column:refunded_quantity;not null;default:0;check:chk_txd_refunded,refunded_quantity <= quantity"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`

	Shippings []Shipping `gorm:"foreignKey:TransactionDetailID;references:ID"`
}

func (t *TransactionDetail) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// Shipping is the part of a transaction line fulfilled by one branch.
type Shipping struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TransactionDetailID uuid.UUID           `gorm:"column:transaction_detail_id;type:uuid;not null;index"`
	BranchID            uuid.UUID           `gorm:"column:branch_id;type:uuid;not null"`
	Quantity            int                 `gorm:"column:quantity;not null"`
	State               enums.ShippingState `gorm:"column:state;type:varchar(16);not null"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Shipping) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

type Refund struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	PaymentID        uuid.UUID            `gorm:"column:payment_id;type:uuid;not null;index"`
	Gateway          enums.PaymentGateway `gorm:"column:gateway;type:varchar(16);not null"`
	Amount           int64                `gorm:"column:amount;not null"`
	Status           enums.RefundStatus   `gorm:"column:status;type:varchar(16);not null"`
	Reason           string               `gorm:"column:reason;type:text;not null"`
	Attempts         int                  `gorm:"column:attempts;not null;default:0"`
	LastError        *string              `gorm:"column:last_error;type:text"`
	GatewayReference *string              `gorm:"column:gateway_reference;type:varchar(64)"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Refund) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
