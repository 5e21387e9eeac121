package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Dan9191/finsight/internal/models"
	"github.com/Dan9191/finsight/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// SignInPath is where visitors without a session are sent
const SignInPath = "/signin"

// Sessions looks up and clears visitor sessions
type Sessions interface {
	Session(ctx context.Context, visitorID string) (*models.AuthSession, error)
	SignOut(ctx context.Context, visitorID string) error
}

// AuthMiddleware rejects visitors without a usable bearer token. The stored
// token is cleared and the response asks the page to redirect to sign-in.
func AuthMiddleware(sessions Sessions, log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			visitorID := VisitorID(r.Context())
			if visitorID == "" {
				Unauthorized(w)
				return
			}

			_, err := sessions.Session(r.Context(), visitorID)
			if errors.Is(err, service.ErrUnauthorized) {
				if err := sessions.SignOut(r.Context(), visitorID); err != nil {
					log.Warnf("Failed to clear session of visitor %s: %v", visitorID, err)
				}
				Unauthorized(w)
				return
			}
			if err != nil {
				log.Errorf("Failed to read session of visitor %s: %v", visitorID, err)
				http.Error(w, "Failed to read session", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Unauthorized writes the sign-in redirect response
func Unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"redirect": SignInPath})
}
