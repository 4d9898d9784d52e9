package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/moda-commerce/moda-backend/api/responses"
	"github.com/moda-commerce/moda-backend/api/validators"
	"github.com/moda-commerce/moda-backend/internal/trades"
	"github.com/moda-commerce/moda-backend/pkg/auth"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	"github.com/moda-commerce/moda-backend/pkg/logger"
)

const maxReasonLength = 1000

type tradeAction func(ctx context.Context, principal auth.Principal, tradeID uuid.UUID, r *http.Request) (*models.Trade, error)

// TradeCreate reserves the listing and opens a trade with the caller as buyer.
func TradeCreate(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("trade"))
			return
		}
		principal, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload trades.CreateTradeInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		trade, err := svc.CreateTrade(r.Context(), principal, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, trade)
	}
}

func TradesMine(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("trade"))
			return
		}
		principal, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter, err := parseTradeFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListMyTrades(r.Context(), principal, filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func parseTradeFilter(r *http.Request) (trades.ListFilter, error) {
	role, err := validators.ParseQueryEnum(r, "role", enums.ParseTradeRole)
	if err != nil {
		return trades.ListFilter{}, err
	}
	status, err := validators.ParseQueryEnum(r, "status", enums.ParseTradeStatus)
	if err != nil {
		return trades.ListFilter{}, err
	}
	return trades.ListFilter{Role: role, Status: status}, nil
}

func TradeDetail(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return tradeHandler(svc, logg, http.StatusOK, func(ctx context.Context, p auth.Principal, id uuid.UUID, _ *http.Request) (*models.Trade, error) {
		return svc.GetTrade(ctx, p, id)
	})
}

func TradeSubmitPayment(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return tradeHandler(svc, logg, http.StatusOK, func(ctx context.Context, p auth.Principal, id uuid.UUID, r *http.Request) (*models.Trade, error) {
		var payload trades.SubmitPaymentInput
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.SubmitPayment(ctx, p, id, payload)
	})
}

func TradeConfirmPayment(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return tradeHandler(svc, logg, http.StatusOK, func(ctx context.Context, p auth.Principal, id uuid.UUID, _ *http.Request) (*models.Trade, error) {
		return svc.ConfirmPayment(ctx, p, id)
	})
}

type shipRequest struct {
	TrackingNumber *string `json:"trackingNumber,omitempty" validate:"omitempty,max=128"`
}

func TradeMarkShipped(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return tradeHandler(svc, logg, http.StatusOK, func(ctx context.Context, p auth.Principal, id uuid.UUID, r *http.Request) (*models.Trade, error) {
		var payload shipRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.MarkShipped(ctx, p, id, payload.TrackingNumber)
	})
}

func TradeConfirmDelivery(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return tradeHandler(svc, logg, http.StatusOK, func(ctx context.Context, p auth.Principal, id uuid.UUID, _ *http.Request) (*models.Trade, error) {
		return svc.ConfirmDelivery(ctx, p, id)
	})
}

func TradeComplete(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return tradeHandler(svc, logg, http.StatusOK, func(ctx context.Context, p auth.Principal, id uuid.UUID, _ *http.Request) (*models.Trade, error) {
		return svc.CompleteTrade(ctx, p, id)
	})
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

func TradeOpenDispute(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return tradeHandler(svc, logg, http.StatusOK, func(ctx context.Context, p auth.Principal, id uuid.UUID, r *http.Request) (*models.Trade, error) {
		var payload reasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.OpenDispute(ctx, p, id, validators.SanitizeString(payload.Reason, maxReasonLength))
	})
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=1000"`
}

func TradeCancel(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return tradeHandler(svc, logg, http.StatusOK, func(ctx context.Context, p auth.Principal, id uuid.UUID, r *http.Request) (*models.Trade, error) {
		var payload cancelRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.CancelTrade(ctx, p, id, validators.SanitizeString(payload.Reason, maxReasonLength))
	})
}

func tradeHandler(svc trades.Service, logg *logger.Logger, status int, action tradeAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("trade"))
			return
		}
		principal, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tradeID, err := validators.ParseUUIDParam(r, "tradeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithTradeID(ctx, tradeID.String())
		}
		trade, err := action(ctx, principal, tradeID, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, trade)
	}
}

func TradeReview(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("trade"))
			return
		}
		principal, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tradeID, err := validators.ParseUUIDParam(r, "tradeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload trades.ReviewInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		review, err := svc.SubmitReview(r.Context(), principal, tradeID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, review)
	}
}

type messageRequest struct {
	Body string `json:"body" validate:"required"`
}

func TradeMessages(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("trade"))
			return
		}
		principal, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tradeID, err := validators.ParseUUIDParam(r, "tradeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListMessages(r.Context(), principal, tradeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func TradePostMessage(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("trade"))
			return
		}
		principal, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tradeID, err := validators.ParseUUIDParam(r, "tradeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload messageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msg, err := svc.PostMessage(r.Context(), principal, tradeID, payload.Body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}
