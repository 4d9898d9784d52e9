package vnpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/moda-commerce/moda-backend/internal/payments"
	"github.com/moda-commerce/moda-backend/pkg/config"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
)

func newTestClient(t *testing.T, apiURL string) *Client {
	t.Helper()
	c, err := New(config.VNPayConfig{
		TmnCode:    "MODA0001",
		HashSecret: "SECRETKEY",
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		APIURL:     apiURL,
		ReturnURL:  "https://moda.test/return",
		Timeout:    time.Second,
	})
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC) }
	return c
}

func signedCallback(c *Client, overrides map[string]string) url.Values {
	values := url.Values{}
	values.Set("vnp_TmnCode", "MODA0001")
	values.Set("vnp_Amount", "15000000")
	values.Set("vnp_TxnRef", "ORD-1")
	values.Set("vnp_TransactionNo", "14000001")
	values.Set("vnp_ResponseCode", "00")
	values.Set("vnp_TransactionStatus", "00")
	values.Set("vnp_OrderInfo", "Thanh toan don hang ORD-1")
	values.Set("vnp_PayDate", "20260501100500")
	for k, v := range overrides {
		values.Set(k, v)
	}
	values.Set(hashParam, c.SignParams(values))
	values.Set(hashTypeName, "HmacSHA512")
	return values
}

func TestCreatePaymentSignsSortedParams(t *testing.T) {
	c := newTestClient(t, "")

	res, err := c.CreatePayment(context.Background(), payments.CreateRequest{OrderRef: "ORD-1", Amount: 150_000})
	require.NoError(t, err)

	parsed, err := url.Parse(res.PayURL)
	require.NoError(t, err)
	q := parsed.Query()
	require.Equal(t, "15000000", q.Get("vnp_Amount"))
	require.Equal(t, "20260501100000", q.Get("vnp_CreateDate"))

	hash := q.Get(hashParam)
	q.Del(hashParam)
	require.Equal(t, c.SignParams(q), hash)

	rawQuery := parsed.RawQuery[:strings.Index(parsed.RawQuery, "&"+hashParam)]
	require.True(t, strings.HasPrefix(rawQuery, "vnp_Amount="), "params must be sorted: %s", rawQuery)
}

func TestVerifyCallbackAcceptsValidSignature(t *testing.T) {
	c := newTestClient(t, "")

	cb, err := c.VerifyCallback(signedCallback(c, nil))
	require.NoError(t, err)
	require.True(t, cb.Success)
	require.Equal(t, "ORD-1", cb.OrderRef)
	require.Equal(t, int64(150_000), cb.Amount)
	require.Equal(t, "14000001", cb.TransactionNo)
	require.NotNil(t, cb.PaidAt)
	require.Equal(t, time.Date(2026, 5, 1, 3, 5, 0, 0, time.UTC), *cb.PaidAt)
}

func TestVerifyCallbackRejectsTamperedParam(t *testing.T) {
	c := newTestClient(t, "")
	values := signedCallback(c, nil)
	values.Set("vnp_Amount", "100")

	_, err := c.VerifyCallback(values)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeSignatureInvalid, pkgerrors.As(err).Code())
}

func TestVerifyCallbackFailedResult(t *testing.T) {
	c := newTestClient(t, "")

	cb, err := c.VerifyCallback(signedCallback(c, map[string]string{"vnp_ResponseCode": "24", "vnp_TransactionStatus": "02"}))
	require.NoError(t, err)
	require.False(t, cb.Success)
	require.Equal(t, "24", cb.ResponseCode)
}

func TestRefund(t *testing.T) {
	var got refundRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"vnp_ResponseId":"r1","vnp_ResponseCode":"00","vnp_Message":"ok","vnp_TransactionNo":"14000099"}`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	res, err := c.Refund(context.Background(), payments.RefundRequest{OrderRef: "ORD-1", TransactionNo: "14000001", Amount: 150_000})
	require.NoError(t, err)
	require.Equal(t, "14000099", res.Reference)
	require.Equal(t, "refund", got.Command)
	require.Equal(t, "15000000", got.Amount)
	require.NotEmpty(t, got.SecureHash)
}

func TestRefundDeclinedIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"vnp_ResponseCode":"94","vnp_Message":"duplicate"}`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, err := c.Refund(context.Background(), payments.RefundRequest{OrderRef: "ORD-1", Amount: 1})
	require.Error(t, err)
	code := pkgerrors.As(err).Code()
	require.Equal(t, pkgerrors.CodeRefundFailed, code)
	require.False(t, pkgerrors.MetadataFor(code).Retryable)
}

func TestRefundServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, err := c.Refund(context.Background(), payments.RefundRequest{OrderRef: "ORD-1", Amount: 1})
	require.Error(t, err)
	require.True(t, pkgerrors.MetadataFor(pkgerrors.As(err).Code()).Retryable)
}
