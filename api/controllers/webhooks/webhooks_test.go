package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/moda-commerce/moda-backend/internal/checkout"
	"github.com/moda-commerce/moda-backend/internal/payments"
	"github.com/moda-commerce/moda-backend/internal/payments/momo"
	"github.com/moda-commerce/moda-backend/internal/payments/vnpay"
	"github.com/moda-commerce/moda-backend/pkg/config"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
)

type fakeCallbackService struct {
	calls  int
	last   payments.Callback
	result *checkout.CallbackResult
	err    error
}

func (f *fakeCallbackService) HandleCallback(_ context.Context, cb payments.Callback) (*checkout.CallbackResult, error) {
	f.calls++
	f.last = cb
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &checkout.CallbackResult{Outcome: checkout.OutcomeCompleted, Payment: &models.Payment{ID: uuid.New()}}, nil
}

func (f *fakeCallbackService) PaymentOutcome(_ context.Context, orderRef string) (*checkout.CallbackResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &checkout.CallbackResult{Outcome: checkout.OutcomePending, Payment: &models.Payment{ID: uuid.New(), OrderRef: orderRef}}, nil
}

type inMemoryStore struct {
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: map[string]string{}}
}

func (s *inMemoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = "1"
	return true, nil
}

func (s *inMemoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *inMemoryStore) GatewayCallbackKey(gateway, orderRef, transactionNo string) string {
	return "callback:" + gateway + ":" + orderRef + ":" + transactionNo
}

func newGuard(t *testing.T) *payments.CallbackGuard {
	t.Helper()
	guard, err := payments.NewCallbackGuard(newInMemoryStore(), time.Hour)
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return guard
}

func newVNPay(t *testing.T) *vnpay.Client {
	t.Helper()
	c, err := vnpay.New(config.VNPayConfig{
		TmnCode:    "MODA0001",
		HashSecret: "SECRETKEY",
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://moda.test/return",
		Timeout:    time.Second,
	})
	if err != nil {
		t.Fatalf("vnpay client: %v", err)
	}
	return c
}

func signedVNPayQuery(c *vnpay.Client, amount string) url.Values {
	values := url.Values{}
	values.Set("vnp_TmnCode", "MODA0001")
	values.Set("vnp_Amount", amount)
	values.Set("vnp_TxnRef", "ORD-1")
	values.Set("vnp_TransactionNo", "14000001")
	values.Set("vnp_ResponseCode", "00")
	values.Set("vnp_TransactionStatus", "00")
	values.Set("vnp_PayDate", "20260501100500")
	values.Set("vnp_SecureHash", c.SignParams(values))
	return values
}

func callVNPay(t *testing.T, h http.Handler, query url.Values) vnpayAck {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/vnpay/ipn?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("vnpay ipn must answer 200, got %d", rec.Code)
	}
	var ack vnpayAck
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack: %v (%s)", err, rec.Body.String())
	}
	return ack
}

func TestVNPayIPNSuccessAndDuplicate(t *testing.T) {
	client := newVNPay(t)
	svc := &fakeCallbackService{}
	handler := VNPayIPN(svc, client, newGuard(t), nil)
	query := signedVNPayQuery(client, "15000000")

	if ack := callVNPay(t, handler, query); ack.RspCode != vnpayOK {
		t.Fatalf("expected 00, got %+v", ack)
	}
	if svc.last.OrderRef != "ORD-1" || svc.last.Amount != 150_000 || !svc.last.Success {
		t.Fatalf("unexpected callback %+v", svc.last)
	}

	if ack := callVNPay(t, handler, query); ack.RspCode != vnpayAlreadyConfirmed {
		t.Fatalf("expected 02 on duplicate, got %+v", ack)
	}
	if svc.calls != 1 {
		t.Fatalf("duplicate should not reach the service, calls=%d", svc.calls)
	}
}

func TestVNPayIPNTamperedSignature(t *testing.T) {
	client := newVNPay(t)
	svc := &fakeCallbackService{}
	query := signedVNPayQuery(client, "15000000")
	query.Set("vnp_Amount", "1000")

	ack := callVNPay(t, VNPayIPN(svc, client, newGuard(t), nil), query)
	if ack.RspCode != vnpayInvalidSignature {
		t.Fatalf("expected 97, got %+v", ack)
	}
	if svc.calls != 0 {
		t.Fatal("tampered callback must not reach the service")
	}
}

func TestVNPayIPNMapsServiceErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"not found", pkgerrors.New(pkgerrors.CodeNotFound, "payment not found"), vnpayNotFound},
		{"amount", pkgerrors.New(pkgerrors.CodeValidation, "amount mismatch"), vnpayInvalidAmount},
		{"internal", pkgerrors.New(pkgerrors.CodeInternal, "db down"), vnpayUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newVNPay(t)
			svc := &fakeCallbackService{err: tc.err}
			handler := VNPayIPN(svc, client, newGuard(t), nil)
			query := signedVNPayQuery(client, "15000000")

			if ack := callVNPay(t, handler, query); ack.RspCode != tc.want {
				t.Fatalf("expected %s, got %+v", tc.want, ack)
			}
			// the guard was released, so the gateway's retry is processed
			callVNPay(t, handler, query)
			if svc.calls != 2 {
				t.Fatalf("expected retry to reach the service, calls=%d", svc.calls)
			}
		})
	}
}

func TestVNPayIPNAlreadyProcessedPayment(t *testing.T) {
	client := newVNPay(t)
	svc := &fakeCallbackService{result: &checkout.CallbackResult{Outcome: checkout.OutcomeCompleted, AlreadyProcessed: true}}
	ack := callVNPay(t, VNPayIPN(svc, client, newGuard(t), nil), signedVNPayQuery(client, "15000000"))
	if ack.RspCode != vnpayAlreadyConfirmed {
		t.Fatalf("expected 02, got %+v", ack)
	}
}

func TestVNPayReturnReportsOutcome(t *testing.T) {
	client := newVNPay(t)
	handler := VNPayReturn(&fakeCallbackService{}, client, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/vnpay/return?"+signedVNPayQuery(client, "15000000").Encode(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			OrderRef string `json:"orderRef"`
			Outcome  string `json:"outcome"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.OrderRef != "ORD-1" || body.Data.Outcome != string(checkout.OutcomePending) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	bad := signedVNPayQuery(client, "15000000")
	bad.Set("vnp_ResponseCode", "24")
	req = httptest.NewRequest(http.MethodGet, "/api/v1/payments/vnpay/return?"+bad.Encode(), nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for tampered return, got %d", rec.Code)
	}
}

func newMoMo(t *testing.T) *momo.Client {
	t.Helper()
	c, err := momo.New(config.MoMoConfig{
		PartnerCode: "MOMOMODA",
		AccessKey:   "access",
		SecretKey:   "secret",
		Endpoint:    "http://unused",
		RedirectURL: "https://moda.test/return",
		IPNURL:      "https://moda.test/ipn",
		RequestType: "captureWallet",
		Timeout:     time.Second,
	})
	if err != nil {
		t.Fatalf("momo client: %v", err)
	}
	return c
}

func postMoMo(h http.Handler, ipn momo.IPN) *httptest.ResponseRecorder {
	body, _ := json.Marshal(ipn)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/momo/ipn", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMoMoIPN(t *testing.T) {
	client := newMoMo(t)
	svc := &fakeCallbackService{}
	handler := MoMoIPN(svc, client, newGuard(t), nil)

	ipn := momo.IPN{
		PartnerCode:  "MOMOMODA",
		OrderID:      "ORD-2",
		RequestID:    "req-1",
		Amount:       99_000,
		OrderInfo:    "Moda ORD-2",
		OrderType:    "momo_wallet",
		TransID:      4088878653,
		ResultCode:   0,
		Message:      "Successful.",
		PayType:      "qr",
		ResponseTime: 1777600000000,
	}
	ipn.Signature = client.SignIPN(ipn)

	if rec := postMoMo(handler, ipn); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.last.OrderRef != "ORD-2" || !svc.last.Success {
		t.Fatalf("unexpected callback %+v", svc.last)
	}
	if rec := postMoMo(handler, ipn); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on duplicate, got %d", rec.Code)
	}
	if svc.calls != 1 {
		t.Fatalf("duplicate should not reach the service, calls=%d", svc.calls)
	}

	tampered := ipn
	tampered.Amount = 1
	rec := postMoMo(handler, tampered)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad signature, got %d", rec.Code)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error.Code != string(pkgerrors.CodeSignatureInvalid) {
		t.Fatalf("expected signature error, got %s", rec.Body.String())
	}
}
