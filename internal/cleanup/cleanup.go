// Package cleanup runs the nightly retention sweep: soft-deleted users
// older than the retention window are purged for good.
package cleanup

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"chat-server/internal/repositories"
)

const (
	// Runs at 01:05 every night, after the backup window.
	schedule = "5 1 * * *"

	retention = 7 * 24 * time.Hour
)

// Sweeper purges soft-deleted users past the retention window.
type Sweeper struct {
	users repositories.UserRepository
	cron  *cron.Cron
}

// NewSweeper constructs a Sweeper.
func NewSweeper(users repositories.UserRepository) *Sweeper {
	return &Sweeper{users: users, cron: cron.New()}
}

// Start schedules the nightly sweep. Call Stop on shutdown.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.Sweep(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("retention sweeper scheduled (%s)", schedule)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep purges every user soft-deleted before the retention cutoff.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-retention)
	purged, err := s.users.DeleteSoftDeletedBefore(ctx, cutoff)
	if err != nil {
		log.Printf("retention sweep failed: %v", err)
		return
	}
	if purged > 0 {
		log.Printf("retention sweep purged %d users", purged)
	}
}
