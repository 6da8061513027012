package api

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/lestrrat-go/jwx/jwt"
)

// SessionValidator checks that a session id is still live and returns the
// principal it belongs to.
type SessionValidator interface {
	Validate(ctx context.Context, id string) (string, error)
}

type contextKey string

// PrincipalKey carries the authenticated admin's principal through the
// request context.
const PrincipalKey contextKey = "principal"

// AdminGate verifies the bearer JWT and then checks its session claim
// against the server-side session store. A valid signature alone is not
// enough: logging out revokes the session and with it every token that
// references it.
func AdminGate(ja *jwtauth.JWTAuth, sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		check := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil || jwt.Validate(token) != nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			sid, _ := claims["sid"].(string)
			if sid == "" {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			principal, err := sessions.Validate(r.Context(), sid)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
		return jwtauth.Verifier(ja)(check)
	}
}
