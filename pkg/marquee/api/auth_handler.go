package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
)

// Authenticator checks admin credentials and returns the principal name on
// success.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (string, error)
}

// SessionManager creates and revokes server-side sessions.
type SessionManager interface {
	SessionValidator
	Create(ctx context.Context, principal string) (string, error)
	Destroy(ctx context.Context, id string) error
}

// AuthHandler issues and revokes admin tokens.
type AuthHandler struct {
	auth     Authenticator
	sessions SessionManager
	ja       *jwtauth.JWTAuth
	tokenTTL time.Duration
}

// NewAuthHandler creates an auth handler. tokenTTL bounds the JWT expiry;
// the session store enforces its own ttl independently.
func NewAuthHandler(auth Authenticator, sessions SessionManager, ja *jwtauth.JWTAuth, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		sessions: sessions,
		ja:       ja,
		tokenTTL: tokenTTL,
	}
}

// Routes returns the login/logout routes. Login is public; logout expects
// the bearer token and is mounted behind AdminGate.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	return r
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login checks credentials, opens a session and returns a JWT bound to it.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	principal, err := h.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		slog.Warn("login rejected", "username", req.Username)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	sid, err := h.sessions.Create(r.Context(), principal)
	if err != nil {
		slog.Error("session create failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	_, token, err := h.ja.Encode(map[string]interface{}{
		"sub": principal,
		"sid": sid,
		"exp": time.Now().Add(h.tokenTTL).Unix(),
	})
	if err != nil {
		slog.Error("token encode failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slog.Info("admin logged in", "principal", principal)
	render.JSON(w, r, loginResponse{Token: token})
}

// Logout destroys the session referenced by the caller's token, revoking it
// everywhere.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	sid, _ := claims["sid"].(string)
	if sid != "" {
		if err := h.sessions.Destroy(r.Context(), sid); err != nil {
			slog.Error("session destroy failed", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
