package webhooks

import (
	"encoding/json"
	"net/http"

	"github.com/moda-commerce/moda-backend/api/responses"
	"github.com/moda-commerce/moda-backend/internal/payments"
	"github.com/moda-commerce/moda-backend/internal/payments/momo"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
	"github.com/moda-commerce/moda-backend/pkg/logger"
)

type momoVerifier interface {
	VerifyIPN(n momo.IPN) (*payments.Callback, error)
}

// MoMoIPN processes MoMo's payment notification and answers 204 once the
// callback has been handled or recognised as a duplicate.
func MoMoIPN(svc callbackService, verifier momoVerifier, guard callbackGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || verifier == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "momo ipn handler unavailable"))
			return
		}

		// MoMo may add fields; the signature only covers the known ones.
		var ipn momo.IPN
		if err := json.NewDecoder(r.Body).Decode(&ipn); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid ipn body"))
			return
		}
		cb, err := verifier.VerifyIPN(ipn)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"gateway": cb.Gateway, "order_ref": cb.OrderRef})
		}

		seen, err := guard.CheckAndMark(ctx, *cb)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check callback idempotency"))
			return
		}
		if seen {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		result, err := svc.HandleCallback(ctx, *cb)
		if err != nil {
			if releaseErr := guard.Release(ctx, *cb); releaseErr != nil && logg != nil {
				logg.Error(ctx, "momo ipn guard release", releaseErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(ctx, "momo ipn processed: "+string(result.Outcome))
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
