// Package payments defines the gateway-neutral surface checkout and refunds
// talk to. Concrete clients live in the vnpay and momo subpackages.
package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/moda-commerce/moda-backend/pkg/enums"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
)

// Callback is a verified gateway notification about one payment.
type Callback struct {
	Gateway       enums.PaymentGateway
	OrderRef      string
	Amount        int64
	TransactionNo string
	Success       bool
	ResponseCode  string
	PaidAt        *time.Time
}

type CreateRequest struct {
	OrderRef    string
	Amount      int64
	Description string
	ClientIP    string
}

type CreateResult struct {
	PayURL string
}

type RefundRequest struct {
	OrderRef      string
	TransactionNo string
	Amount        int64
	Reason        string
	PaidAt        *time.Time
	// Attempt distinguishes retries so gateways see a fresh request id.
	Attempt int
}

type RefundResult struct {
	Reference string
}

// Gateway is implemented by each payment provider client.
type Gateway interface {
	Name() enums.PaymentGateway
	CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

// Registry resolves gateways by name.
type Registry struct {
	gateways map[enums.PaymentGateway]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[enums.PaymentGateway]Gateway, len(gateways))}
	for _, gw := range gateways {
		if gw != nil {
			r.gateways[gw.Name()] = gw
		}
	}
	return r
}

func (r *Registry) Get(name enums.PaymentGateway) (Gateway, error) {
	if r != nil {
		if gw, ok := r.gateways[name]; ok {
			return gw, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported gateway %q", name))
}

// Declined marks a gateway answer that retrying will not change.
func Declined(gateway enums.PaymentGateway, code, message string) error {
	return pkgerrors.New(pkgerrors.CodeRefundFailed, fmt.Sprintf("%s declined: %s %s", gateway, code, message)).
		WithDetails(map[string]any{"gateway": gateway, "code": code})
}

// Unavailable marks a transport or server failure worth retrying.
func Unavailable(gateway enums.PaymentGateway, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s unavailable", gateway)).
		WithDetails(map[string]any{"gateway": gateway})
}

// InvalidSignature is returned by callback verification.
func InvalidSignature(gateway enums.PaymentGateway) error {
	return pkgerrors.New(pkgerrors.CodeSignatureInvalid, fmt.Sprintf("%s signature mismatch", gateway))
}
