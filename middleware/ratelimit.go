package middleware

import (
	"encoding/json"
	"net"
	"net/http"

	authcore "github.com/MrEthical07/authcore"
)

// RateLimit charges every request against the budget of its (client host,
// path) pair. Over-budget requests get 429; a limiter-store outage gets
// 500, never a free pass.
func RateLimit(service *authcore.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limited, err := service.IsRateLimited(r.Context(), clientHost(r), r.URL.Path)
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, "service unavailable")
				return
			}
			if limited {
				writeJSONError(w, http.StatusTooManyRequests, authcore.ErrRateLimited.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientHost strips the ephemeral port so one client maps to one budget.
func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    code,
		"message": message,
	})
}
