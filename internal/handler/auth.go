// Package handler translates HTTP requests into service calls and service
// results into the JSON envelope.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/journeyhub/internal/auth"
	"github.com/sakif/journeyhub/internal/service"
)

// AuthHandler serves registration, login and the session cookie.
type AuthHandler struct {
	auth         *service.AuthService
	sessionTTL   time.Duration
	cookieSecure bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. cookieSecure should be true
// whenever the site is served over HTTPS.
func NewAuthHandler(svc *service.AuthService, sessionTTL time.Duration, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         svc,
		sessionTTL:   sessionTTL,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// HandleRegister creates an account.
//
// HTTP: POST /users/register
// BODY: {"username": "alice", "email": "a@x.com", "password": "secret1"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err, "Registration failed")
		return
	}

	user, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err, "Registration failed")
		return
	}

	writeOK(w, http.StatusOK, envelope{"user": user})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin checks credentials and sets the session cookie. The token is
// also returned for clients that prefer the Authorization header.
//
// HTTP: POST /users/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err, "Login failed")
		return
	}

	result, err := h.auth.Authenticate(r.Context(), in.Username, in.Password)
	if err != nil {
		writeError(w, r, h.logger, err, "Login failed")
		return
	}

	// HttpOnly keeps the token away from page scripts. SameSite=Lax blocks
	// it on cross-site POSTs while keeping top-level navigation working.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeOK(w, http.StatusOK, envelope{"token": result.Token, "user": result.User})
}

// HandleLogout clears the session cookie. Tokens are stateless, so one
// already handed out stays valid until it expires.
//
// HTTP: POST /users/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeOK(w, http.StatusOK, nil)
}

// HandleMe returns the signed-in user.
//
// HTTP: GET /users/me (RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to load user")
		return
	}
	writeOK(w, http.StatusOK, envelope{"user": user})
}
