package middleware

import (
	"context"
	"net/http"
	"strings"

	authcore "github.com/MrEthical07/authcore"
)

type identityContextKey struct{}

// IdentityFromContext returns the authenticated principal installed by
// [Guard], if any.
func IdentityFromContext(ctx context.Context) (*authcore.Identity, bool) {
	ident, ok := ctx.Value(identityContextKey{}).(*authcore.Identity)
	return ident, ok
}

// RefreshTokenHeader is the header the refresh endpoints read the refresh
// token from. The Authorization header stays reserved for access tokens.
const RefreshTokenHeader = "X-Refresh-Token"

// RefreshToken extracts the refresh token from its dedicated header.
func RefreshToken(r *http.Request) (string, bool) {
	token := r.Header.Get(RefreshTokenHeader)
	return token, token != ""
}

// Guard rejects requests that do not carry a valid bearer access token and
// exposes the token's principal to downstream handlers through the request
// context. Every failure mode answers the same 401.
func Guard(service *authcore.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if service == nil {
				unauthorized(w)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			ident, err := service.ValidateAccess(token)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin is a secondary guard for admin-only routes. It must run
// after [Guard].
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFromContext(r.Context())
		if !ok || !ident.Admin {
			writeJSONError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSONError(w, http.StatusUnauthorized, authcore.ErrInvalidAccessToken.Error())
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
