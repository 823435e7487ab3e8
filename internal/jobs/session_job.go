package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// SessionPurger deletes sessions that expired before now.
type SessionPurger interface {
	Purge(now time.Time) (int64, error)
}

// PurgeSessionsJob removes expired sign-in sessions.
type PurgeSessionsJob struct {
	Sessions SessionPurger
	Logger   *log.Logger
	Now      func() time.Time
}

func NewPurgeSessionsJob(sessions SessionPurger, logger *log.Logger) *PurgeSessionsJob {
	return &PurgeSessionsJob{Sessions: sessions, Logger: logger, Now: time.Now}
}

func (j *PurgeSessionsJob) Name() string { return "purge_sessions" }

func (j *PurgeSessionsJob) Perform(ctx context.Context) error {
	n, err := j.Sessions.Purge(j.Now())
	if err != nil {
		return fmt.Errorf("failed to purge sessions: %w", err)
	}
	if n > 0 && j.Logger != nil {
		j.Logger.Info("purged expired sessions", "count", n)
	}
	return nil
}

// SchedulePurge enqueues a [PurgeSessionsJob] immediately and then every interval until ctx is done.
func SchedulePurge(ctx context.Context, q Enqueuer, job *PurgeSessionsJob, interval time.Duration) {
	enqueue := func() {
		if err := q.Enqueue(job); err != nil && job.Logger != nil {
			job.Logger.Warn("could not schedule session purge", "error", err)
		}
	}

	enqueue()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			enqueue()
		}
	}
}
