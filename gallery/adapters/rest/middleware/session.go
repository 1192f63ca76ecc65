package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const SessionCookie = "gallery_session"

type SessionIssuer interface {
	NewSession() (string, string, error)
	IssueToken(string) (string, error)
	ParseToken(string) (string, error)
	TTL() time.Duration
}

type sessionKey struct{}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionFromContext returns the session id, or an empty string if not set.
func SessionFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionKey{}).(string); ok {
		return v
	}
	return ""
}

// SessionMiddleware resolves the session cookie, issuing a new session when
// the cookie is missing or no longer valid. A valid cookie is reissued so
// its expiry slides with use.
func SessionMiddleware(log *slog.Logger, auth SessionIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(SessionCookie); err == nil {
				if id, err := auth.ParseToken(c.Value); err == nil {
					if tok, err := auth.IssueToken(id); err == nil {
						setSessionCookie(w, tok, auth.TTL())
					} else {
						log.Error("failed to refresh session", "session", id, "error", err)
					}
					next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), id)))
					return
				}
				log.Debug("session cookie rejected", "error", err)
			}

			id, tok, err := auth.NewSession()
			if err != nil {
				log.Error("failed to issue session", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			setSessionCookie(w, tok, auth.TTL())
			log.Debug("session issued", "session", id)
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), id)))
		})
	}
}

func setSessionCookie(w http.ResponseWriter, tok string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
