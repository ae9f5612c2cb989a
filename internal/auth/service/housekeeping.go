package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/paddockhq/paddock/internal/auth/store"
)

// Retention grace periods. Terminal rows are kept for a while so support
// can answer "why did my session die" questions before the evidence is
// deleted.
const (
	expiredRefreshGrace = 3 * 24 * time.Hour
	revokedRefreshGrace = 30 * 24 * time.Hour
	inviteGrace         = 30 * 24 * time.Hour
	confirmationGrace   = 24 * time.Hour
)

// HousekeepingService periodically deletes terminal database records to
// prevent unbounded growth of refresh_tokens, invites, and
// confirmation_tokens. Only expired, revoked, or consumed rows past
// their grace period are touched; live rows never are.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// Now is the injected clock. Nil means time.Now.
	Now func() time.Time

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (s *HousekeepingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

// run is the main background worker loop.
func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
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

// Cleanup performs one deletion sweep. Each table is independent;
// failures in one won't stop the others. Exported so tests and operators
// can trigger a sweep directly.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := s.now()
	s.Logger.Info("starting housekeeping cleanup")

	var totalDeleted int64

	n, err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx,
		now.Add(-expiredRefreshGrace),
		now.Add(-revokedRefreshGrace),
	)
	if err != nil {
		s.Logger.Error("failed to delete dead refresh tokens", "error", err)
	} else {
		s.Logger.Debug("deleted dead refresh tokens", "count", n)
		totalDeleted += n
	}

	n, err = s.Store.Invites().DeleteExpiredInvites(ctx, now.Add(-inviteGrace))
	if err != nil {
		s.Logger.Error("failed to delete settled invites", "error", err)
	} else {
		s.Logger.Debug("deleted settled invites", "count", n)
		totalDeleted += n
	}

	n, err = s.Store.ConfirmationTokens().DeleteExpiredConfirmationTokens(ctx, now.Add(-confirmationGrace))
	if err != nil {
		s.Logger.Error("failed to delete dead confirmation tokens", "error", err)
	} else {
		s.Logger.Debug("deleted dead confirmation tokens", "count", n)
		totalDeleted += n
	}

	s.Logger.Info("housekeeping cleanup completed", "deleted", totalDeleted)
}
