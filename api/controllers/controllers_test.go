package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/moda-commerce/moda-backend/api/middleware"
	checkoutsvc "github.com/moda-commerce/moda-backend/internal/checkout"
	"github.com/moda-commerce/moda-backend/internal/listings"
	"github.com/moda-commerce/moda-backend/internal/trades"
	"github.com/moda-commerce/moda-backend/pkg/auth"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
)

type stubCheckout struct {
	checkoutsvc.Service
	got checkoutsvc.InitiateInput
}

func (s *stubCheckout) Initiate(_ context.Context, _ auth.Principal, input checkoutsvc.InitiateInput) (*checkoutsvc.InitiateResult, error) {
	s.got = input
	return &checkoutsvc.InitiateResult{PaymentID: uuid.New(), OrderRef: "MODA-1", PayURL: "https://sandbox.example/pay"}, nil
}

type stubTrades struct {
	trades.Service
	disputeCalls int
	reason       string
}

func (s *stubTrades) OpenDispute(_ context.Context, _ auth.Principal, tradeID uuid.UUID, reason string) (*models.Trade, error) {
	s.disputeCalls++
	s.reason = reason
	return &models.Trade{ID: tradeID, Status: enums.TradeDisputed}, nil
}

func (s *stubTrades) ConfirmDelivery(_ context.Context, _ auth.Principal, _ uuid.UUID) (*models.Trade, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "trade is not shipping").
		WithDetails(map[string]any{"currentStatus": string(enums.TradeInitiated)})
}

type stubListings struct {
	listings.Service
}

func (stubListings) GetListing(_ context.Context, _ uuid.UUID) (*models.Listing, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
}

func withCaller(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithPrincipal(req.Context(), auth.Principal{UserID: uuid.New(), Role: enums.UserRoleCustomer}))
}

func withRouteParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestCheckoutPassesClientIPAndSanitizedAddress(t *testing.T) {
	stub := &stubCheckout{}
	body := `{"cartId":"` + uuid.NewString() + `","gateway":"VNPAY","amount":250000,"address":"  12 Le Loi, Q1  "}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)))
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()

	Checkout(stub, nil)(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.got.ClientIP != "203.0.113.7" {
		t.Fatalf("expected forwarded client ip, got %q", stub.got.ClientIP)
	}
	if stub.got.Address != "12 Le Loi, Q1" {
		t.Fatalf("expected trimmed address, got %q", stub.got.Address)
	}
}

func TestCheckoutRejectsUnknownGateway(t *testing.T) {
	stub := &stubCheckout{}
	body := `{"cartId":"` + uuid.NewString() + `","gateway":"PAYPAL","amount":1000,"address":"x"}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)))
	rec := httptest.NewRecorder()

	Checkout(stub, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCheckoutRequiresPrincipal(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	Checkout(&stubCheckout{}, nil)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestTradeDisputeRequiresReason(t *testing.T) {
	stub := &stubTrades{}
	tradeID := uuid.NewString()

	req := withRouteParam(withCaller(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))), "tradeId", tradeID)
	rec := httptest.NewRecorder()
	TradeOpenDispute(stub, nil)(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if stub.disputeCalls != 0 {
		t.Fatalf("service should not be called without a reason")
	}

	req = withRouteParam(withCaller(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"  item damaged "}`))), "tradeId", tradeID)
	rec = httptest.NewRecorder()
	TradeOpenDispute(stub, nil)(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.reason != "item damaged" {
		t.Fatalf("expected sanitized reason, got %q", stub.reason)
	}
}

func TestTradeInvalidTransitionMapsTo422(t *testing.T) {
	req := withRouteParam(withCaller(httptest.NewRequest(http.MethodPost, "/", nil)), "tradeId", uuid.NewString())
	rec := httptest.NewRecorder()

	TradeConfirmDelivery(&stubTrades{}, nil)(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(pkgerrors.CodeInvalidTransition) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestTradeRejectsMalformedID(t *testing.T) {
	req := withRouteParam(withCaller(httptest.NewRequest(http.MethodPost, "/", nil)), "tradeId", "not-a-uuid")
	rec := httptest.NewRecorder()

	TradeConfirmDelivery(&stubTrades{}, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestTradesMineRejectsUnknownRole(t *testing.T) {
	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/trades?role=broker", nil))
	rec := httptest.NewRecorder()

	TradesMine(&stubTrades{}, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestListingDetailNotFound(t *testing.T) {
	req := withRouteParam(httptest.NewRequest(http.MethodGet, "/", nil), "listingId", uuid.NewString())
	rec := httptest.NewRecorder()

	ListingDetail(stubListings{}, nil)(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestNilServiceAnswersInternal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	CatalogList(nil, nil)(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}
