package middleware

import (
	"context"
	"net/http"

	"github.com/Dan9191/finsight/internal/config"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"
)

const (
	sessionName = "finsight-session"
	visitorKey  = "visitor_id"

	// visitor cookies live for 30 days
	visitorMaxAge = 30 * 24 * 60 * 60
)

type contextKey string

const visitorIDKey contextKey = "visitorID"

// VisitorMiddleware gives every browser a visitor ID kept in a signed
// cookie. Stored state of the visitor is namespaced by this ID.
func VisitorMiddleware(cfg *config.Config, log *logrus.Logger) mux.MiddlewareFunc {
	store := sessions.NewCookieStore([]byte(cfg.SessionKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   visitorMaxAge,
		Secure:   cfg.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := store.Get(r, sessionName)
			if err != nil {
				// a tampered or stale cookie yields a fresh session
				log.Debugf("Discarding unreadable session cookie: %v", err)
			}

			id, _ := sess.Values[visitorKey].(string)
			if id == "" {
				id = uuid.NewString()
				sess.Values[visitorKey] = id
				if err := sess.Save(r, w); err != nil {
					log.Errorf("Failed to save session cookie: %v", err)
					http.Error(w, "Failed to start session", http.StatusInternalServerError)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithVisitorID(r.Context(), id)))
		})
	}
}

// WithVisitorID returns a context carrying the visitor ID
func WithVisitorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, visitorIDKey, id)
}

// VisitorID returns the visitor ID of the request, empty outside VisitorMiddleware
func VisitorID(ctx context.Context) string {
	id, _ := ctx.Value(visitorIDKey).(string)
	return id
}
