package trades

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/moda-commerce/moda-backend/internal/inventory"
	"github.com/moda-commerce/moda-backend/internal/listings"
	"github.com/moda-commerce/moda-backend/internal/reputation"
	"github.com/moda-commerce/moda-backend/pkg/auth"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
	"github.com/moda-commerce/moda-backend/pkg/logger"
	"github.com/moda-commerce/moda-backend/pkg/outbox"
	"github.com/moda-commerce/moda-backend/pkg/outbox/payloads"
	"github.com/moda-commerce/moda-backend/pkg/pagination"
	"github.com/moda-commerce/moda-backend/pkg/types"
)

var tracer = otel.Tracer("github.com/moda-commerce/moda-backend/internal/trades")

const (
	defaultAutoCompleteAfter = 7 * 24 * time.Hour
	defaultAutoCompleteBatch = 100
	maxMessageLength         = 2000
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type CreateTradeInput struct {
	ListingID      uuid.UUID                `json:"listingId" validate:"required"`
	PaymentMethod  enums.TradePaymentMethod `json:"paymentMethod" validate:"required"`
	DeliveryMethod enums.DeliveryMethod     `json:"deliveryMethod" validate:"required,oneof=SHIPPING MEETUP"`
}

type SubmitPaymentInput struct {
	PaymentMethod enums.TradePaymentMethod `json:"paymentMethod,omitempty"`
	ProofURL      *string                  `json:"proofUrl,omitempty" validate:"omitempty,url"`
}

type ReviewInput struct {
	Rating  int             `json:"rating" validate:"required,min=1,max=5"`
	Comment *string         `json:"comment,omitempty" validate:"omitempty,max=2000"`
	Role    enums.TradeRole `json:"role,omitempty"`
}

// Service drives the C2C trade lifecycle. Every status change is a
// conditional update that also writes a SYSTEM message and an outbox event
// in the same transaction.
type Service interface {
	CreateTrade(ctx context.Context, principal auth.Principal, input CreateTradeInput) (*models.Trade, error)
	SubmitPayment(ctx context.Context, principal auth.Principal, tradeID uuid.UUID, input SubmitPaymentInput) (*models.Trade, error)
	ConfirmPayment(ctx context.Context, principal auth.Principal, tradeID uuid.UUID) (*models.Trade, error)
	MarkShipped(ctx context.Context, principal auth.Principal, tradeID uuid.UUID, trackingNumber *string) (*models.Trade, error)
	ConfirmDelivery(ctx context.Context, principal auth.Principal, tradeID uuid.UUID) (*models.Trade, error)
	CompleteTrade(ctx context.Context, principal auth.Principal, tradeID uuid.UUID) (*models.Trade, error)
	OpenDispute(ctx context.Context, principal auth.Principal, tradeID uuid.UUID, reason string) (*models.Trade, error)
	CancelTrade(ctx context.Context, principal auth.Principal, tradeID uuid.UUID, reason string) (*models.Trade, error)

	SubmitReview(ctx context.Context, principal auth.Principal, tradeID uuid.UUID, input ReviewInput) (*models.Review, error)
	PostMessage(ctx context.Context, principal auth.Principal, tradeID uuid.UUID, body string) (*models.TradeMessage, error)
	ListMessages(ctx context.Context, principal auth.Principal, tradeID uuid.UUID) ([]models.TradeMessage, error)
	GetTrade(ctx context.Context, principal auth.Principal, tradeID uuid.UUID) (*models.Trade, error)
	ListMyTrades(ctx context.Context, principal auth.Principal, filter ListFilter, params pagination.Params) (*types.PageResult[models.Trade], error)

	// AutoCompleteDue completes DELIVERED trades whose auto-complete deadline
	// has passed, acting as the system principal.
	AutoCompleteDue(ctx context.Context, now time.Time) (int, error)
}

type Deps struct {
	Repo       Repository
	Tx         txRunner
	Listings   listings.Service
	Inventory  inventory.Service
	Reputation reputation.Service
	Outbox     outbox.Emitter

	AutoCompleteAfter time.Duration
	AutoCompleteBatch int
	Logger            *logger.Logger
	Now               func() time.Time
}

type service struct {
	repo       Repository
	tx         txRunner
	listings   listings.Service
	inventory  inventory.Service
	reputation reputation.Service
	outbox     outbox.Emitter

	autoCompleteAfter time.Duration
	batch             int
	logg              *logger.Logger
	now               func() time.Time
}

func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, fmt.Errorf("trade repository required")
	case deps.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case deps.Listings == nil:
		return nil, fmt.Errorf("listing service required")
	case deps.Inventory == nil:
		return nil, fmt.Errorf("inventory service required")
	case deps.Reputation == nil:
		return nil, fmt.Errorf("reputation service required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	s := &service{
		repo:              deps.Repo,
		tx:                deps.Tx,
		listings:          deps.Listings,
		inventory:         deps.Inventory,
		reputation:        deps.Reputation,
		outbox:            deps.Outbox,
		autoCompleteAfter: deps.AutoCompleteAfter,
		batch:             deps.AutoCompleteBatch,
		logg:              deps.Logger,
		now:               deps.Now,
	}
	if s.autoCompleteAfter <= 0 {
		s.autoCompleteAfter = defaultAutoCompleteAfter
	}
	if s.batch <= 0 {
		s.batch = defaultAutoCompleteBatch
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func (s *service) CreateTrade(ctx context.Context, principal auth.Principal, input CreateTradeInput) (*models.Trade, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if !input.DeliveryMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery method")
	}

	trade := &models.Trade{
		ID:             uuid.New(),
		ListingID:      input.ListingID,
		BuyerID:        principal.UserID,
		PaymentMethod:  input.PaymentMethod,
		DeliveryMethod: input.DeliveryMethod,
		Status:         enums.TradeInitiated,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		listing, err := s.listings.Reserve(ctx, tx, input.ListingID, trade.ID)
		if err != nil {
			return err
		}
		if listing.SellerID == principal.UserID {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot buy your own listing")
		}
		trade.SellerID = listing.SellerID
		trade.AgreedPrice = listing.Price
		if err := s.repo.WithTx(tx).Create(ctx, trade); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create trade")
		}
		return s.record(ctx, tx, trade, "", ActionCreate, principal, actorBuyer, "")
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}

func (s *service) SubmitPayment(ctx context.Context, principal auth.Principal, tradeID uuid.UUID, input SubmitPaymentInput) (*models.Trade, error) {
	if input.PaymentMethod != "" && !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	return s.apply(ctx, principal, tradeID, step{
		action: ActionSubmitPayment,
		fields: func(trade *models.Trade, now time.Time) (map[string]any, error) {
			method := trade.PaymentMethod
			if input.PaymentMethod != "" {
				method = input.PaymentMethod
			}
			if method == enums.TradePaymentWalletTokens {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet token payments are not supported").
					WithDetails(map[string]any{"paymentMethod": method})
			}
			fields := map[string]any{
				"payment_method":       method,
				"payment_submitted_at": now,
			}
			if proof := trimmed(input.ProofURL); proof != nil {
				fields["payment_proof_url"] = *proof
			}
			return fields, nil
		},
	})
}

func (s *service) ConfirmPayment(ctx context.Context, principal auth.Principal, tradeID uuid.UUID) (*models.Trade, error) {
	return s.apply(ctx, principal, tradeID, step{
		action: ActionConfirmPayment,
		fields: func(_ *models.Trade, now time.Time) (map[string]any, error) {
			return map[string]any{"payment_confirmed_at": now}, nil
		},
	})
}

func (s *service) MarkShipped(ctx context.Context, principal auth.Principal, tradeID uuid.UUID, trackingNumber *string) (*models.Trade, error) {
	tracking := trimmed(trackingNumber)
	note := ""
	if tracking != nil {
		note = "tracking number " + *tracking
	}
	return s.apply(ctx, principal, tradeID, step{
		action: ActionMarkShipped,
		note:   note,
		fields: func(_ *models.Trade, now time.Time) (map[string]any, error) {
			fields := map[string]any{"shipped_at": now}
			if tracking != nil {
				fields["tracking_number"] = *tracking
			}
			return fields, nil
		},
	})
}

func (s *service) ConfirmDelivery(ctx context.Context, principal auth.Principal, tradeID uuid.UUID) (*models.Trade, error) {
	return s.apply(ctx, principal, tradeID, step{
		action: ActionConfirmDelivery,
		fields: func(_ *models.Trade, now time.Time) (map[string]any, error) {
			return map[string]any{
				"delivered_at":     now,
				"auto_complete_at": now.Add(s.autoCompleteAfter),
			}, nil
		},
	})
}

func (s *service) CompleteTrade(ctx context.Context, principal auth.Principal, tradeID uuid.UUID) (*models.Trade, error) {
	return s.apply(ctx, principal, tradeID, step{
		action: ActionComplete,
		fields: func(_ *models.Trade, now time.Time) (map[string]any, error) {
			return map[string]any{"completed_at": now}, nil
		},
		after: func(ctx context.Context, tx *gorm.DB, trade *models.Trade) error {
			listing, err := s.listings.MarkSold(ctx, tx, trade.ListingID, trade.ID)
			if err != nil {
				return err
			}
			if err := s.inventory.WithTx(tx).AddToInventory(ctx, inventory.AddInput{
				UserID:    trade.BuyerID,
				ItemID:    listing.ItemID,
				SizeID:    listing.SizeID,
				Quantity:  1,
				Source:    enums.InventorySourceC2CTrade,
				SourceRef: inventory.TradeRef(trade.ID),
			}); err != nil {
				return err
			}
			return s.recomputeParties(ctx, tx, trade)
		},
	})
}

func (s *service) OpenDispute(ctx context.Context, principal auth.Principal, tradeID uuid.UUID, reason string) (*models.Trade, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute reason required")
	}
	return s.apply(ctx, principal, tradeID, step{
		action: ActionOpenDispute,
		note:   reason,
		fields: func(trade *models.Trade, now time.Time) (map[string]any, error) {
			if trade.AutoCompleteAt == nil || now.After(*trade.AutoCompleteAt) {
				return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "dispute window has closed").
					WithDetails(map[string]any{
						"currentStatus":  trade.Status,
						"action":         ActionOpenDispute,
						"autoCompleteAt": trade.AutoCompleteAt,
					})
			}
			return map[string]any{
				"disputed_at":    now,
				"dispute_reason": reason,
			}, nil
		},
		after: s.recomputeParties,
	})
}

func (s *service) CancelTrade(ctx context.Context, principal auth.Principal, tradeID uuid.UUID, reason string) (*models.Trade, error) {
	reason = strings.TrimSpace(reason)
	return s.apply(ctx, principal, tradeID, step{
		action: ActionCancel,
		note:   reason,
		fields: func(_ *models.Trade, now time.Time) (map[string]any, error) {
			fields := map[string]any{"cancelled_at": now}
			if reason != "" {
				fields["cancel_reason"] = reason
			}
			if !principal.IsSystem() {
				fields["cancelled_by"] = principal.UserID
			}
			return fields, nil
		},
		after: func(ctx context.Context, tx *gorm.DB, trade *models.Trade) error {
			_, err := s.listings.Release(ctx, tx, trade.ListingID, trade.ID)
			return err
		},
	})
}

func (s *service) SubmitReview(ctx context.Context, principal auth.Principal, tradeID uuid.UUID, input ReviewInput) (*models.Review, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if input.Role != "" && !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid review role")
	}

	var review *models.Review
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		trade, err := repo.FindByID(ctx, tradeID)
		if err != nil {
			return notFoundOr(err, "trade not found", "load trade")
		}
		role, ok := trade.RoleOf(principal.UserID)
		if !ok {
			return forbidden()
		}
		if trade.Status != enums.TradeCompleted {
			return invalidTransition(trade.Status, ActionReview, string(role))
		}

		reviewee, revieweeRole := trade.SellerID, enums.RoleSeller
		if role == enums.RoleSeller {
			reviewee, revieweeRole = trade.BuyerID, enums.RoleBuyer
		}
		if input.Role != "" && input.Role != revieweeRole {
			return pkgerrors.New(pkgerrors.CodeValidation, "review role does not match the reviewee").
				WithDetails(map[string]any{"expectedRole": revieweeRole})
		}

		existing, err := repo.FindReview(ctx, trade.ID, principal.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "trade already reviewed")
		}

		review = &models.Review{
			TradeID:    trade.ID,
			ReviewerID: principal.UserID,
			RevieweeID: reviewee,
			Role:       revieweeRole,
			Rating:     input.Rating,
			Comment:    trimmed(input.Comment),
		}
		if err := repo.CreateReview(ctx, review); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create review")
		}
		_, err = s.reputation.Recompute(ctx, tx, reviewee, revieweeRole)
		return err
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *service) PostMessage(ctx context.Context, principal auth.Principal, tradeID uuid.UUID, body string) (*models.TradeMessage, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body required")
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("message longer than %d characters", maxMessageLength))
	}

	trade, err := s.repo.FindByID(ctx, tradeID)
	if err != nil {
		return nil, notFoundOr(err, "trade not found", "load trade")
	}
	if _, ok := trade.RoleOf(principal.UserID); !ok {
		return nil, forbidden()
	}
	sender := principal.UserID
	msg := &models.TradeMessage{
		TradeID:  trade.ID,
		SenderID: &sender,
		Kind:     enums.MessageUser,
		Body:     body,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create message")
	}
	return msg, nil
}

func (s *service) ListMessages(ctx context.Context, principal auth.Principal, tradeID uuid.UUID) ([]models.TradeMessage, error) {
	if _, err := s.GetTrade(ctx, principal, tradeID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListMessages(ctx, tradeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list messages")
	}
	return rows, nil
}

func (s *service) GetTrade(ctx context.Context, principal auth.Principal, tradeID uuid.UUID) (*models.Trade, error) {
	trade, err := s.repo.FindByID(ctx, tradeID)
	if err != nil {
		return nil, notFoundOr(err, "trade not found", "load trade")
	}
	if principal.IsAdmin() || principal.IsSystem() {
		return trade, nil
	}
	if _, ok := trade.RoleOf(principal.UserID); !ok {
		return nil, forbidden()
	}
	return trade, nil
}

func (s *service) ListMyTrades(ctx context.Context, principal auth.Principal, filter ListFilter, params pagination.Params) (*types.PageResult[models.Trade], error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	if filter.Role != nil && !filter.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role filter")
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByUser(ctx, principal.UserID, filter, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list trades")
	}
	items, next := pagination.Trim(rows, params.Limit, func(t models.Trade) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	return &types.PageResult[models.Trade]{Items: items, NextCursor: next}, nil
}

func (s *service) AutoCompleteDue(ctx context.Context, now time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "trades.AutoCompleteDue")
	defer span.End()

	due, err := s.repo.ListDue(ctx, now, s.batch)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list due trades")
	}
	span.SetAttributes(attribute.Int("due", len(due)))

	var errs error
	completed := 0
	for _, trade := range due {
		if _, err := s.CompleteTrade(ctx, auth.SystemPrincipal, trade.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("trade %s: %w", trade.ID, err))
			continue
		}
		completed++
	}
	if errs != nil {
		span.RecordError(errs)
	}
	return completed, errs
}

type step struct {
	action Action
	// note is appended to the SYSTEM message.
	note   string
	fields func(trade *models.Trade, now time.Time) (map[string]any, error)
	after  func(ctx context.Context, tx *gorm.DB, trade *models.Trade) error
}

func (s *service) apply(ctx context.Context, principal auth.Principal, tradeID uuid.UUID, st step) (*models.Trade, error) {
	if !principal.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	var out *models.Trade
	var actor string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		trade, err := repo.FindByID(ctx, tradeID)
		if err != nil {
			return notFoundOr(err, "trade not found", "load trade")
		}
		var ok bool
		actor, ok = actorOf(trade, principal)
		if !ok {
			return forbidden()
		}
		if !Allowed(st.action, trade.Status, actor) {
			return invalidTransition(trade.Status, st.action, actor)
		}

		now := s.now().UTC()
		fields := map[string]any{"status": rules[st.action].to}
		if st.fields != nil {
			extra, err := st.fields(trade, now)
			if err != nil {
				return err
			}
			for k, v := range extra {
				fields[k] = v
			}
		}

		from := trade.Status
		moved, err := repo.Transition(ctx, trade.ID, from, fields)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update trade")
		}
		if trade, err = repo.FindByID(ctx, tradeID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload trade")
		}
		if !moved {
			return invalidTransition(trade.Status, st.action, actor)
		}

		if err := s.record(ctx, tx, trade, from, st.action, principal, actor, st.note); err != nil {
			return err
		}
		if st.after != nil {
			if err := st.after(ctx, tx, trade); err != nil {
				return err
			}
		}
		out = trade
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithTradeID(ctx, out.ID.String())
		logCtx = s.logg.WithActorRole(logCtx, actor)
		s.logg.Info(logCtx, fmt.Sprintf("trade %s: now %s", strings.ToLower(string(st.action)), out.Status))
	}
	return out, nil
}

// record appends the audit message and the outbox event for a status change.
func (s *service) record(
	ctx context.Context,
	tx *gorm.DB,
	trade *models.Trade,
	from enums.TradeStatus,
	action Action,
	principal auth.Principal,
	actor string,
	note string,
) error {
	body := fmt.Sprintf("Trade created by %s", strings.ToLower(actor))
	if from != "" {
		body = fmt.Sprintf("Status changed from %s to %s by %s", from, trade.Status, strings.ToLower(actor))
	}
	if note != "" {
		body += ": " + note
	}
	if err := s.repo.WithTx(tx).CreateMessage(ctx, &models.TradeMessage{
		TradeID: trade.ID,
		Kind:    enums.MessageSystem,
		Body:    body,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append trade message")
	}

	var actorID *uuid.UUID
	var ref *outbox.ActorRef
	if !principal.IsSystem() {
		id := principal.UserID
		actorID = &id
		ref = &outbox.ActorRef{UserID: id, Role: actor}
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTradeStatusChanged,
		AggregateType: enums.AggregateTrade,
		AggregateID:   trade.ID,
		Actor:         ref,
		Data: payloads.TradeStatusChangedEvent{
			TradeID:   trade.ID,
			ListingID: trade.ListingID,
			BuyerID:   trade.BuyerID,
			SellerID:  trade.SellerID,
			From:      from,
			To:        trade.Status,
			Action:    string(action),
			ActorID:   actorID,
			ActorRole: actor,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit trade status")
	}
	return nil
}

func (s *service) recomputeParties(ctx context.Context, tx *gorm.DB, trade *models.Trade) error {
	if _, err := s.reputation.Recompute(ctx, tx, trade.SellerID, enums.RoleSeller); err != nil {
		return err
	}
	_, err := s.reputation.Recompute(ctx, tx, trade.BuyerID, enums.RoleBuyer)
	return err
}

func requireUser(principal auth.Principal) error {
	if principal.UserID == uuid.Nil || !principal.Valid() || principal.IsSystem() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

func forbidden() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this trade")
}

func notFoundOr(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, internalMsg)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
