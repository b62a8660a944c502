package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/example/merch-storefront/internal/auth"
	"go.uber.org/zap"
)

const (
	SessionCookie = "session_token"
	SessionHeader = "X-Session-Token"
)

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}

// ExtractToken extracts the session token from cookie or Authorization header
func ExtractToken(r *http.Request) string {
	// Try cookie first (for browser)
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	// Fall back to Authorization header (for API clients)
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

type contextKey string

const SessionContextKey contextKey = "session"

// Session resolves the caller's checkout session from its token. A missing,
// expired or invalid token gets a fresh session: the new token is set as a
// cookie and echoed in the X-Session-Token header. Tokens are refreshed on
// every request so active sessions do not expire mid-checkout.
func Session(tokens *auth.SessionTokens, secureCookie bool, logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logger.Named("session")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				sessionID string
				err       error
			)
			if tokenString := ExtractToken(r); tokenString != "" {
				claims, verr := tokens.Validate(tokenString)
				if verr == nil {
					sessionID = claims.SessionID
				} else {
					logger.Debug("discarding session token", zap.Error(verr))
				}
			}

			var (
				token string
				exp   = tokens.Expiry()
			)
			if sessionID == "" {
				token, sessionID, _, err = tokens.Issue()
			} else {
				token, _, err = tokens.IssueFor(sessionID)
			}
			if err != nil {
				logger.Error("failed to issue session token", zap.Error(err))
				respondError(w, "could not start a session", "session_unavailable", http.StatusInternalServerError)
				return
			}

			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    token,
				Path:     "/",
				MaxAge:   int(exp.Seconds()),
				HttpOnly: true,
				Secure:   secureCookie,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(SessionHeader, token)

			ctx := context.WithValue(r.Context(), SessionContextKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionID retrieves the session id from the request context
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(SessionContextKey).(string)
	return id
}
