package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/finsight/internal/store"
	"github.com/robfig/cron/v3"
)

// SweepSessions clears the sessions whose token is expired or unreadable
// and returns how many were cleared
func (s *Service) SweepSessions(ctx context.Context) (int, error) {
	keys, err := s.store.Keys(ctx, ":"+store.KeyAuthToken)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	cleared := 0
	for _, key := range keys {
		visitorID, _ := store.SplitKey(key)
		_, err := s.Session(ctx, visitorID)
		if !errors.Is(err, ErrUnauthorized) {
			continue
		}
		if err := s.SignOut(ctx, visitorID); err != nil {
			s.log.Warnf("Failed to clear session of visitor %s: %v", visitorID, err)
			continue
		}
		cleared++
	}
	if cleared > 0 {
		s.log.Infof("Cleared %d expired sessions", cleared)
	}
	return cleared, nil
}

// StartSweeper runs SweepSessions on schedule until the returned cron is stopped
func (s *Service) StartSweeper(schedule string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.SweepSessions(s.ctx); err != nil {
			s.log.Errorf("Session sweep failed: %v", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
