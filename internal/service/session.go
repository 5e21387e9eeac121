package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/finsight/internal/models"
	"github.com/Dan9191/finsight/internal/store"
	"github.com/Dan9191/finsight/internal/utils"
	"github.com/golang-jwt/jwt/v5"
)

// SignIn exchanges credentials for a bearer token and stores it sealed
func (s *Service) SignIn(ctx context.Context, visitorID, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, invalid("email", "enter email and password")
	}

	res, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	sealed, err := utils.Seal(res.AccessToken, &s.tokenKey)
	if err != nil {
		return nil, fmt.Errorf("failed to seal token: %w", err)
	}
	user := res.User
	if user == nil {
		user = &models.User{Email: email}
	}

	if err := s.store.Set(ctx, store.Key(visitorID, store.KeyAuthToken), sealed); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}
	if err := store.SetJSON(ctx, s.store, store.Key(visitorID, store.KeyAuthUser), user); err != nil {
		return nil, err
	}
	s.dropVisitor(visitorID)

	s.log.Infof("User signed in: %s", user.Email)
	return user, nil
}

// Session returns the stored session of a visitor. It fails with
// ErrUnauthorized when there is no token or the token has expired.
func (s *Service) Session(ctx context.Context, visitorID string) (*models.AuthSession, error) {
	sealed, ok, err := s.store.Get(ctx, store.Key(visitorID, store.KeyAuthToken))
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	if !ok {
		return nil, ErrUnauthorized
	}

	token, err := utils.Open(sealed, &s.tokenKey)
	if err != nil {
		s.log.Warnf("Discarding unreadable token of visitor %s: %v", visitorID, err)
		return nil, ErrUnauthorized
	}
	if TokenExpired(token, time.Now()) {
		return nil, ErrUnauthorized
	}

	var user models.User
	if _, err := store.GetJSON(ctx, s.store, store.Key(visitorID, store.KeyAuthUser), &user); err != nil {
		return nil, err
	}
	return &models.AuthSession{Token: token, User: &user}, nil
}

// SignOut clears the token and user of a visitor
func (s *Service) SignOut(ctx context.Context, visitorID string) error {
	s.dropVisitor(visitorID)
	var errs []error
	for _, name := range []string{store.KeyAuthToken, store.KeyAuthUser} {
		if err := s.store.Delete(ctx, store.Key(visitorID, name)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// TokenExpired reports whether a JWT bearer token carries an expiry in the
// past. Tokens that are not JWTs never expire on this side.
func TokenExpired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}
