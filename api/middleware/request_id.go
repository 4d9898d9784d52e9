package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/moda-commerce/moda-backend/pkg/logger"
)

const (
	requestIDHeader     = "X-Request-Id"
	correlationIDHeader = "X-Correlation-Id"
	maxRequestIDLength  = 128
)

// RequestID reuses the id an upstream proxy sent (X-Request-Id, then
// X-Correlation-Id) or mints a uuid. The id is echoed on the response and
// stamped on every log line of the request.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := incomingRequestID(r.Header)
			r.Header.Set(requestIDHeader, id)
			w.Header().Set(requestIDHeader, id)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func incomingRequestID(h http.Header) string {
	for _, name := range []string{requestIDHeader, correlationIDHeader} {
		if id := strings.TrimSpace(h.Get(name)); printableASCII(id, maxRequestIDLength) {
			return id
		}
	}
	return uuid.NewString()
}

func printableASCII(s string, max int) bool {
	if s == "" || len(s) > max {
		return false
	}
	return strings.IndexFunc(s, func(c rune) bool { return c < '!' || c > '~' }) < 0
}
