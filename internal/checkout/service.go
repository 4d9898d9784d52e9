package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/internal/cart"
	"github.com/moda-commerce/moda-backend/internal/inventory"
	"github.com/moda-commerce/moda-backend/internal/payments"
	"github.com/moda-commerce/moda-backend/internal/refunds"
	"github.com/moda-commerce/moda-backend/internal/stock"
	"github.com/moda-commerce/moda-backend/pkg/auth"
	pricing "github.com/moda-commerce/moda-backend/pkg/checkout"
	"github.com/moda-commerce/moda-backend/pkg/db"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
	"github.com/moda-commerce/moda-backend/pkg/logger"
	"github.com/moda-commerce/moda-backend/pkg/metrics"
	"github.com/moda-commerce/moda-backend/pkg/outbox"
	"github.com/moda-commerce/moda-backend/pkg/outbox/payloads"
)

var tracer = otel.Tracer("github.com/moda-commerce/moda-backend/internal/checkout")

const refundFailedMessage = "refund failed, contact support"

var errAlreadyProcessed = errors.New("payment already processed")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithIsolatedTx(ctx context.Context, opts db.TxOptions, fn func(tx *gorm.DB) error) error
}

type stockAllocator interface {
	ValidateAvailability(ctx context.Context, tx *gorm.DB, sizeID uuid.UUID, qty int) error
	AllocateAndDecrement(ctx context.Context, tx *gorm.DB, sizeID uuid.UUID, qty int) (*stock.Allocation, error)
}

type gatewayResolver interface {
	Get(name enums.PaymentGateway) (payments.Gateway, error)
}

type Outcome string

const (
	OutcomePending       Outcome = "PENDING"
	OutcomeCompleted     Outcome = "COMPLETED"
	OutcomeFailed        Outcome = "FAILED"
	OutcomeRefundPending Outcome = "REFUND_PROCESSING"
	OutcomeRefunded      Outcome = "REFUNDED"
	OutcomeRefundFailed  Outcome = "REFUND_FAILED"
)

const outcomeGatewayRejected = "gateway_rejected"

type InitiateInput struct {
	CartID     uuid.UUID            `json:"cartId" validate:"required"`
	Gateway    enums.PaymentGateway `json:"gateway" validate:"required,oneof=VNPAY MOMO"`
	Amount     int64                `json:"amount" validate:"required,gt=0"`
	Address    string               `json:"address" validate:"required,max=512"`
	CouponCode *string              `json:"couponCode,omitempty" validate:"omitempty,max=64"`
	PointsUsed int64                `json:"pointsUsed" validate:"gte=0"`
	ClientIP   string               `json:"-"`
}

type InitiateResult struct {
	PaymentID uuid.UUID `json:"paymentId"`
	OrderRef  string    `json:"orderRef"`
	PayURL    string    `json:"payUrl"`
}

// CallbackResult reports where a payment ended up after a gateway callback.
type CallbackResult struct {
	Outcome          Outcome         `json:"outcome"`
	Message          string          `json:"message,omitempty"`
	AlreadyProcessed bool            `json:"alreadyProcessed"`
	Payment          *models.Payment `json:"payment"`
	TransactionID    *uuid.UUID      `json:"transactionId,omitempty"`
	Refund           *models.Refund  `json:"refund,omitempty"`
}

type PaymentView struct {
	Payment     *models.Payment     `json:"payment"`
	Outcome     Outcome             `json:"outcome"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Refund      *models.Refund      `json:"refund,omitempty"`
}

type Service interface {
	Initiate(ctx context.Context, principal auth.Principal, input InitiateInput) (*InitiateResult, error)
	// HandleCallback must only be called with a signature-verified callback.
	HandleCallback(ctx context.Context, cb payments.Callback) (*CallbackResult, error)
	GetPayment(ctx context.Context, principal auth.Principal, paymentID uuid.UUID) (*PaymentView, error)
	// PaymentOutcome reports the state of a payment for the gateway return
	// page. Callers must have verified the gateway signature first.
	PaymentOutcome(ctx context.Context, orderRef string) (*CallbackResult, error)
}

// Deps wires the checkout service.
type Deps struct {
	Tx         txRunner
	Repo       Repository
	Carts      cart.CartRepository
	Stock      stockAllocator
	Inventory  inventory.Service
	Refunds    refunds.Service
	Gateways   gatewayResolver
	Outbox     outbox.Emitter
	TxOptions  db.TxOptions
	PointValue int64
	Metrics    *metrics.CommerceMetrics
	Logger     *logger.Logger
}

type service struct {
	Deps
	now func() time.Time
}

func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case deps.Repo == nil:
		return nil, fmt.Errorf("checkout repository required")
	case deps.Carts == nil:
		return nil, fmt.Errorf("cart repository required")
	case deps.Stock == nil:
		return nil, fmt.Errorf("stock service required")
	case deps.Inventory == nil:
		return nil, fmt.Errorf("inventory service required")
	case deps.Refunds == nil:
		return nil, fmt.Errorf("refund service required")
	case deps.Gateways == nil:
		return nil, fmt.Errorf("gateway registry required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{Deps: deps, now: time.Now}, nil
}

func (s *service) Initiate(ctx context.Context, principal auth.Principal, input InitiateInput) (*InitiateResult, error) {
	if principal.UserID == uuid.Nil || !principal.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if strings.TrimSpace(input.Address) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address required")
	}
	gw, err := s.Gateways.Get(input.Gateway)
	if err != nil {
		return nil, err
	}

	record, err := s.Carts.FindByIDAndUser(ctx, input.CartID, principal.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if record.State != enums.CartStatePending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not pending").
			WithDetails(map[string]any{"cartId": record.ID.String(), "state": record.State})
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}

	lines := pricingLines(record.Items)
	for _, demand := range pricing.DemandBySize(lines) {
		if err := s.Stock.ValidateAvailability(ctx, nil, demand.SizeID, demand.Quantity); err != nil {
			return nil, err
		}
	}
	amount, err := pricing.PayableAmount(lines, input.PointsUsed, s.PointValue)
	if err != nil {
		return nil, err
	}
	if err := pricing.ValidateAmount(amount, input.Amount); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		OrderRef:   newOrderRef(s.now()),
		CartID:     record.ID,
		UserID:     principal.UserID,
		Gateway:    input.Gateway,
		Amount:     amount,
		Status:     enums.PaymentStatusPending,
		Address:    strings.TrimSpace(input.Address),
		CouponCode: input.CouponCode,
		PointsUsed: input.PointsUsed,
	}
	err = s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.Repo.WithTx(tx).CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
		}
		moved, err := s.Carts.WithTx(tx).TransitionState(ctx, record.ID, enums.CartStatePending, enums.CartStateProcessing)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock cart")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is already being checked out")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.withPayment(ctx, payment)
	created, err := gw.CreatePayment(ctx, payments.CreateRequest{
		OrderRef: payment.OrderRef,
		Amount:   payment.Amount,
		ClientIP: input.ClientIP,
	})
	if err != nil {
		s.Metrics.IncCheckout(string(input.Gateway), outcomeGatewayRejected)
		if rollbackErr := s.abandon(ctx, payment); rollbackErr != nil {
			s.logError(ctx, "abandon payment after gateway failure", rollbackErr)
		}
		return nil, err
	}

	s.Metrics.IncCheckout(string(input.Gateway), string(OutcomePending))
	return &InitiateResult{PaymentID: payment.ID, OrderRef: payment.OrderRef, PayURL: created.PayURL}, nil
}

// abandon fails a pending payment and hands the cart back to the user.
func (s *service) abandon(ctx context.Context, payment *models.Payment) error {
	return s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.Repo.WithTx(tx).TransitionPayment(ctx, payment.ID, enums.PaymentStatusPending, enums.PaymentStatusFailed, nil)
		if err != nil {
			return err
		}
		if !moved {
			return errAlreadyProcessed
		}
		_, err = s.Carts.WithTx(tx).TransitionState(ctx, payment.CartID, enums.CartStateProcessing, enums.CartStatePending)
		return err
	})
}

func (s *service) HandleCallback(ctx context.Context, cb payments.Callback) (result *CallbackResult, err error) {
	ctx, span := tracer.Start(ctx, "checkout.HandleCallback")
	span.SetAttributes(
		attribute.String("gateway", string(cb.Gateway)),
		attribute.String("order_ref", cb.OrderRef),
		attribute.Bool("gateway_success", cb.Success),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "callback failed")
		} else if result != nil {
			span.SetAttributes(attribute.String("outcome", string(result.Outcome)))
		}
		span.End()
	}()

	payment, err := s.Repo.FindPaymentByOrderRef(ctx, cb.OrderRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}
	ctx = s.withPayment(ctx, payment)
	if cb.Gateway != "" && cb.Gateway != payment.Gateway {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway mismatch")
	}
	if cb.Amount != payment.Amount {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount mismatch").
			WithDetails(map[string]any{"expected": payment.Amount, "given": cb.Amount})
	}
	if payment.Status != enums.PaymentStatusPending {
		return s.current(ctx, payment.ID, true)
	}

	if !cb.Success {
		if err := s.abandon(ctx, payment); err != nil {
			if errors.Is(err, errAlreadyProcessed) {
				return s.current(ctx, payment.ID, true)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fail payment")
		}
		s.Metrics.IncCheckout(string(payment.Gateway), string(OutcomeFailed))
		return s.current(ctx, payment.ID, false)
	}

	paidFields := map[string]any{"gateway_transaction_no": cb.TransactionNo}
	if cb.PaidAt != nil {
		paidFields["gateway_paid_at"] = cb.PaidAt.UTC()
	}

	err = s.Tx.WithIsolatedTx(ctx, s.TxOptions, func(tx *gorm.DB) error {
		return s.fulfil(ctx, tx, payment, paidFields)
	})
	switch {
	case err == nil:
		s.Metrics.IncCheckout(string(payment.Gateway), string(OutcomeCompleted))
		return s.current(ctx, payment.ID, false)
	case errors.Is(err, errAlreadyProcessed):
		return s.current(ctx, payment.ID, true)
	case isAllocationFailure(err):
		return s.compensate(ctx, payment, cb, paidFields, err)
	default:
		return nil, err
	}
}

// fulfil is the authoritative step: the payment is marked paid, stock is
// allocated and the order recorded, or nothing is.
func (s *service) fulfil(ctx context.Context, tx *gorm.DB, payment *models.Payment, paidFields map[string]any) error {
	repo := s.Repo.WithTx(tx)
	carts := s.Carts.WithTx(tx)

	moved, err := repo.TransitionPayment(ctx, payment.ID, enums.PaymentStatusPending, enums.PaymentStatusPaid, paidFields)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark payment paid")
	}
	if !moved {
		return errAlreadyProcessed
	}

	record, err := carts.FindByID(ctx, payment.CartID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if len(record.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "paid cart has no items")
	}

	parts := make(map[uuid.UUID][]stock.Part)
	for _, demand := range pricing.DemandBySize(pricingLines(record.Items)) {
		if err := s.Stock.ValidateAvailability(ctx, tx, demand.SizeID, demand.Quantity); err != nil {
			return err
		}
		alloc, err := s.Stock.AllocateAndDecrement(ctx, tx, demand.SizeID, demand.Quantity)
		if err != nil {
			return err
		}
		parts[demand.SizeID] = alloc.Parts
	}

	txn := &models.Transaction{
		PaymentID: payment.ID,
		UserID:    payment.UserID,
		CartID:    payment.CartID,
		Amount:    payment.Amount,
		Address:   payment.Address,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create transaction")
	}

	inv := s.Inventory.WithTx(tx)
	event := payloads.OrderPlacedEvent{
		PaymentID:     payment.ID,
		TransactionID: txn.ID,
		OrderRef:      payment.OrderRef,
		UserID:        payment.UserID,
		CartID:        payment.CartID,
		Gateway:       payment.Gateway,
		Amount:        payment.Amount,
	}
	for _, item := range record.Items {
		detail := &models.TransactionDetail{
			TransactionID: txn.ID,
			ItemID:        item.ItemID,
			SizeID:        item.SizeID,
			Quantity:      item.Quantity,
			Price:         item.TotalPrice,
		}
		if err := repo.CreateDetail(ctx, detail); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create transaction detail")
		}

		var taken []stock.Part
		taken, parts[item.SizeID] = takeParts(parts[item.SizeID], item.Quantity)
		shippings := make([]models.Shipping, 0, len(taken))
		line := payloads.OrderLine{
			TransactionDetailID: detail.ID,
			ItemID:              item.ItemID,
			SizeID:              item.SizeID,
			Quantity:            item.Quantity,
			Price:               item.TotalPrice,
		}
		for _, part := range taken {
			shippings = append(shippings, models.Shipping{
				TransactionDetailID: detail.ID,
				BranchID:            part.BranchID,
				Quantity:            part.Quantity,
				State:               enums.ShippingOrdered,
			})
			line.Fulfillment = append(line.Fulfillment, payloads.FulfillingPart{BranchID: part.BranchID, Quantity: part.Quantity})
		}
		if err := repo.CreateShippings(ctx, shippings); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create shippings")
		}

		if err := inv.AddToInventory(ctx, inventory.AddInput{
			UserID:    payment.UserID,
			ItemID:    item.ItemID,
			SizeID:    item.SizeID,
			Quantity:  item.Quantity,
			Source:    enums.InventorySourcePurchase,
			SourceRef: inventory.TransactionDetailRef(detail.ID),
		}); err != nil {
			return err
		}
		event.Lines = append(event.Lines, line)
	}

	moved, err = carts.TransitionState(ctx, payment.CartID, enums.CartStateProcessing, enums.CartStateCompleted)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete cart")
	}
	if !moved {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart left processing during checkout")
	}

	if err := s.Outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Actor:         &outbox.ActorRef{UserID: payment.UserID, Role: string(enums.UserRoleCustomer)},
		Data:          event,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order placed")
	}
	return nil
}

// compensate refunds a payment whose stock ran out after the customer paid.
func (s *service) compensate(ctx context.Context, payment *models.Payment, cb payments.Callback, paidFields map[string]any, cause error) (*CallbackResult, error) {
	ctx, span := tracer.Start(ctx, "checkout.compensate")
	defer span.End()
	if s.Logger != nil {
		s.Logger.Warn(ctx, "allocation failed after payment, refunding: "+cause.Error())
	}

	reason := "stock unavailable after payment"
	if typed := pkgerrors.As(cause); typed != nil {
		reason = fmt.Sprintf("%s: %s", typed.Code(), typed.Message())
	}

	var refund *models.Refund
	err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.Repo.WithTx(tx).TransitionPayment(ctx, payment.ID, enums.PaymentStatusPending, enums.PaymentStatusRefundProcessing, paidFields)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark refund processing")
		}
		if !moved {
			return errAlreadyProcessed
		}
		refund, err = s.Refunds.Open(ctx, tx, payment, reason)
		return err
	})
	if errors.Is(err, errAlreadyProcessed) {
		return s.current(ctx, payment.ID, true)
	}
	if err != nil {
		return nil, err
	}

	paid := *payment
	paid.GatewayTransactionNo = &cb.TransactionNo
	paid.GatewayPaidAt = cb.PaidAt
	refund, err = s.Refunds.Execute(ctx, refund, &paid)
	if err != nil {
		return nil, err
	}

	final, outcome := enums.PaymentStatusRefunded, OutcomeRefunded
	if refund.Status != enums.RefundCompleted {
		final, outcome = enums.PaymentStatusRefundFailed, OutcomeRefundFailed
	}
	err = s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.Repo.WithTx(tx).TransitionPayment(ctx, payment.ID, enums.PaymentStatusRefundProcessing, final, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle refund")
		}
		if _, err := s.Carts.WithTx(tx).TransitionState(ctx, payment.CartID, enums.CartStateProcessing, enums.CartStatePending); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release cart")
		}
		return s.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRefundUpdated,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{Role: string(enums.UserRoleSystem)},
			Data: payloads.PaymentRefundUpdatedEvent{
				PaymentID:     payment.ID,
				RefundID:      refund.ID,
				OrderRef:      payment.OrderRef,
				UserID:        payment.UserID,
				Gateway:       payment.Gateway,
				Amount:        refund.Amount,
				RefundStatus:  refund.Status,
				PaymentStatus: final,
				Reason:        reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.IncCheckout(string(payment.Gateway), string(outcome))
	res, err := s.current(ctx, payment.ID, false)
	if err != nil {
		return nil, err
	}
	if outcome == OutcomeRefundFailed {
		res.Message = refundFailedMessage
	}
	return res, nil
}

func (s *service) GetPayment(ctx context.Context, principal auth.Principal, paymentID uuid.UUID) (*PaymentView, error) {
	payment, err := s.Repo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}
	if payment.UserID != principal.UserID && !principal.IsAdmin() && !principal.IsSystem() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another user")
	}
	view := &PaymentView{Payment: payment, Outcome: outcomeFor(payment.Status)}
	if view.Transaction, err = s.Repo.FindTransactionByPayment(ctx, payment.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load transaction")
	}
	if view.Refund, err = s.Refunds.Latest(ctx, payment.ID); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) PaymentOutcome(ctx context.Context, orderRef string) (*CallbackResult, error) {
	payment, err := s.Repo.FindPaymentByOrderRef(ctx, orderRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}
	return s.current(ctx, payment.ID, false)
}

func (s *service) current(ctx context.Context, paymentID uuid.UUID, replay bool) (*CallbackResult, error) {
	view, err := s.GetPayment(ctx, auth.SystemPrincipal, paymentID)
	if err != nil {
		return nil, err
	}
	res := &CallbackResult{
		Outcome:          view.Outcome,
		AlreadyProcessed: replay,
		Payment:          view.Payment,
		Refund:           view.Refund,
	}
	if view.Transaction != nil {
		res.TransactionID = &view.Transaction.ID
	}
	if res.Outcome == OutcomeRefundFailed {
		res.Message = refundFailedMessage
	}
	return res, nil
}

func (s *service) withPayment(ctx context.Context, payment *models.Payment) context.Context {
	if s.Logger == nil {
		return ctx
	}
	return s.Logger.WithPaymentID(ctx, payment.ID.String())
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.Logger != nil {
		s.Logger.Error(ctx, msg, err)
	}
}

func outcomeFor(status enums.PaymentStatus) Outcome {
	switch status {
	case enums.PaymentStatusPaid:
		return OutcomeCompleted
	case enums.PaymentStatusFailed:
		return OutcomeFailed
	case enums.PaymentStatusRefundProcessing:
		return OutcomeRefundPending
	case enums.PaymentStatusRefunded:
		return OutcomeRefunded
	case enums.PaymentStatusRefundFailed:
		return OutcomeRefundFailed
	default:
		return OutcomePending
	}
}

func isAllocationFailure(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock, pkgerrors.CodeStockDepleted)
}

// takeParts removes qty units from the front of parts and returns them along
// with what is left.
func takeParts(parts []stock.Part, qty int) ([]stock.Part, []stock.Part) {
	var taken []stock.Part
	for qty > 0 && len(parts) > 0 {
		head := parts[0]
		n := min(qty, head.Quantity)
		taken = append(taken, stock.Part{BranchID: head.BranchID, StockID: head.StockID, Quantity: n})
		qty -= n
		if n == head.Quantity {
			parts = parts[1:]
			continue
		}
		parts = append([]stock.Part{{BranchID: head.BranchID, StockID: head.StockID, Quantity: head.Quantity - n}}, parts[1:]...)
	}
	return taken, parts
}

func pricingLines(items []models.CartItem) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, pricing.Line{
			ItemID:     item.ItemID,
			SizeID:     item.SizeID,
			Quantity:   item.Quantity,
			TotalPrice: item.TotalPrice,
		})
	}
	return lines
}

func newOrderRef(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return "MD" + now.UTC().Format("060102") + suffix
}
