package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/session"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
)

// HousekeepingService periodically deletes expired verification tokens and
// sweeps idle sessions from stores that need it.
type HousekeepingService struct {
	Store    store.Store
	Sessions session.Sweeper // optional
	Logger   *slog.Logger
	Interval time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A zero or negative
// interval defaults to one hour.
func NewHousekeepingService(st store.Store, sessions session.Sweeper, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Sessions: sessions,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs cleanup once and then on every tick until Stop.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup performs one pass. Each step is independent; a failure in one
// does not skip the other.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	tokens, err := s.Store.VerificationTokens().DeleteExpired(ctx, now.UTC())
	if err != nil {
		s.Logger.Error("failed to delete expired verification tokens", "error", err)
	}

	var sessions int
	if s.Sessions != nil {
		if sessions, err = s.Sessions.Sweep(); err != nil {
			s.Logger.Error("failed to sweep idle sessions", "error", err)
		}
	}

	s.Logger.Info("housekeeping cleanup completed",
		"expired_tokens", tokens,
		"idle_sessions", sessions,
	)
}
