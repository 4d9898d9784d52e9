package webhooks

import (
	"context"
	"net/http"
	"net/url"

	"github.com/moda-commerce/moda-backend/api/responses"
	"github.com/moda-commerce/moda-backend/internal/checkout"
	"github.com/moda-commerce/moda-backend/internal/payments"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
	"github.com/moda-commerce/moda-backend/pkg/logger"
)

// VNPay IPN acknowledgement codes.
const (
	vnpayOK               = "00"
	vnpayNotFound         = "01"
	vnpayAlreadyConfirmed = "02"
	vnpayInvalidAmount    = "04"
	vnpayInvalidSignature = "97"
	vnpayUnknown          = "99"
)

type vnpayVerifier interface {
	VerifyCallback(values url.Values) (*payments.Callback, error)
}

type paymentOutcomeReader interface {
	PaymentOutcome(ctx context.Context, orderRef string) (*checkout.CallbackResult, error)
}

type vnpayAck struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// VNPayIPN processes VNPay's server-to-server notification. VNPay expects
// HTTP 200 with an RspCode body in every case.
func VNPayIPN(svc callbackService, verifier vnpayVerifier, guard callbackGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || verifier == nil || guard == nil {
			if logg != nil {
				logg.Error(ctx, "vnpay ipn handler not wired", nil)
			}
			responses.WriteRaw(w, http.StatusOK, vnpayAck{RspCode: vnpayUnknown, Message: "Unknown error"})
			return
		}

		cb, err := verifier.VerifyCallback(r.URL.Query())
		if err != nil {
			if logg != nil {
				logg.Warn(ctx, "vnpay ipn rejected: "+err.Error())
			}
			code, msg := vnpayInvalidSignature, "Invalid signature"
			if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				code, msg = vnpayInvalidAmount, "Invalid amount"
			}
			responses.WriteRaw(w, http.StatusOK, vnpayAck{RspCode: code, Message: msg})
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"gateway": cb.Gateway, "order_ref": cb.OrderRef})
		}

		seen, err := guard.CheckAndMark(ctx, *cb)
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "vnpay ipn guard", err)
			}
			responses.WriteRaw(w, http.StatusOK, vnpayAck{RspCode: vnpayUnknown, Message: "Unknown error"})
			return
		}
		if seen {
			responses.WriteRaw(w, http.StatusOK, vnpayAck{RspCode: vnpayAlreadyConfirmed, Message: "Order already confirmed"})
			return
		}

		result, err := svc.HandleCallback(ctx, *cb)
		if err != nil {
			if releaseErr := guard.Release(ctx, *cb); releaseErr != nil && logg != nil {
				logg.Error(ctx, "vnpay ipn guard release", releaseErr)
			}
			responses.WriteRaw(w, http.StatusOK, vnpayAckFor(err))
			if logg != nil {
				logg.Error(ctx, "vnpay ipn failed", err)
			}
			return
		}
		if result.AlreadyProcessed {
			responses.WriteRaw(w, http.StatusOK, vnpayAck{RspCode: vnpayAlreadyConfirmed, Message: "Order already confirmed"})
			return
		}
		if logg != nil {
			logg.Info(ctx, "vnpay ipn processed: "+string(result.Outcome))
		}
		responses.WriteRaw(w, http.StatusOK, vnpayAck{RspCode: vnpayOK, Message: "Confirm Success"})
	}
}

func vnpayAckFor(err error) vnpayAck {
	typed := pkgerrors.As(err)
	if typed == nil {
		return vnpayAck{RspCode: vnpayUnknown, Message: "Unknown error"}
	}
	switch typed.Code() {
	case pkgerrors.CodeNotFound:
		return vnpayAck{RspCode: vnpayNotFound, Message: "Order not found"}
	case pkgerrors.CodeValidation:
		return vnpayAck{RspCode: vnpayInvalidAmount, Message: "Invalid amount"}
	default:
		return vnpayAck{RspCode: vnpayUnknown, Message: "Unknown error"}
	}
}

// VNPayReturn serves the browser redirect. It verifies the signature and
// reports the payment's current outcome; only the IPN mutates state.
func VNPayReturn(svc paymentOutcomeReader, verifier vnpayVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		cb, err := verifier.VerifyCallback(r.URL.Query())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.PaymentOutcome(ctx, cb.OrderRef)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"orderRef":        cb.OrderRef,
			"gatewaySuccess":  cb.Success,
			"gatewayResponse": cb.ResponseCode,
			"outcome":         result.Outcome,
			"message":         result.Message,
			"paymentId":       result.Payment.ID,
		})
	}
}
