package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/moda-commerce/moda-backend/internal/trades"
	"github.com/moda-commerce/moda-backend/pkg/auth"
	"github.com/moda-commerce/moda-backend/pkg/config"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	"github.com/moda-commerce/moda-backend/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "moda", ExpirationMinutes: 60},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: &strings.Builder{}})
}

func bearer(t *testing.T, cfg *config.Config, role enums.UserRole) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token, userID
}

type stubTrades struct {
	trades.Service
	gotTracking *string
	gotCaller   auth.Principal
}

func (s *stubTrades) MarkShipped(_ context.Context, p auth.Principal, tradeID uuid.UUID, tracking *string) (*models.Trade, error) {
	s.gotCaller = p
	s.gotTracking = tracking
	return &models.Trade{ID: tradeID, SellerID: p.UserID, Status: enums.TradeShipping}, nil
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthLive(t *testing.T) {
	router := NewRouter(testConfig(), testLogger(), Deps{})
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if rec.Header().Get("X-Moda-Env") != "test" {
		t.Fatalf("expected env header, got %q", rec.Header().Get("X-Moda-Env"))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := NewRouter(testConfig(), testLogger(), Deps{})
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestPrivateRoutesRequireToken(t *testing.T) {
	router := NewRouter(testConfig(), testLogger(), Deps{})
	for _, path := range []string{"/api/v1/cart", "/api/v1/trades", "/api/v1/payments/" + uuid.NewString()} {
		rec := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, rec.Code)
		}
	}
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(cfg, testLogger(), Deps{})
	token, _ := bearer(t, cfg, enums.UserRoleCustomer)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/stock/sizes/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", token)
	rec := serve(router, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestPublicRoutesSkipAuth(t *testing.T) {
	router := NewRouter(testConfig(), testLogger(), Deps{})
	// nil catalog service answers 500, which proves the route is reachable without a token
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/public/v1/catalog", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from nil service got %d", rec.Code)
	}
}

func TestGatewayCallbacksUnmountedWithoutClients(t *testing.T) {
	router := NewRouter(testConfig(), testLogger(), Deps{})
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/payments/vnpay/ipn", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
	rec = serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/payments/momo/ipn", nil))
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected momo ipn to be unmounted, got %d", rec.Code)
	}
}

func TestTradeShipRoute(t *testing.T) {
	cfg := testConfig()
	stub := &stubTrades{}
	router := NewRouter(cfg, testLogger(), Deps{Trades: stub})
	token, sellerID := bearer(t, cfg, enums.UserRoleCustomer)

	tradeID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/trades/"+tradeID.String()+"/ship", strings.NewReader(`{"trackingNumber":"GHN123"}`))
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")
	rec := serve(router, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.gotCaller.UserID != sellerID {
		t.Fatalf("expected caller %s got %s", sellerID, stub.gotCaller.UserID)
	}
	if stub.gotTracking == nil || *stub.gotTracking != "GHN123" {
		t.Fatalf("expected tracking number to reach the service, got %v", stub.gotTracking)
	}
}
