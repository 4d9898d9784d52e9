package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// CORS admits the storefront and admin origins in MODA_CORS_ORIGINS. A "*"
// entry opens the API to any origin but then drops credentialed requests,
// which browsers would refuse anyway.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", replayedHeader, "X-Moda-Env"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           600,
	}).Handler
}
