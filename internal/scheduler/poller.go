package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/markdave123-py/Surveya/internal/models"
)

// PollerStore is the slice of the persistence gateway the poller needs.
type PollerStore interface {
	ListDueSchedules(ctx context.Context, now time.Time) ([]models.ScheduleEntry, error)
	UpdateScheduleNextRun(ctx context.Context, id string, nextRun time.Time) error
}

// Assigner creates assignments and notifies users; satisfied by
// services.SurveyService.
type Assigner interface {
	AssignToUser(ctx context.Context, userID int64, templateID string) (bool, error)
}

// Poller periodically scans due schedule entries, creates assignments and
// advances each entry's next run. One failing entry never aborts the batch;
// its retry is simply the next tick.
type Poller struct {
	db          PollerStore
	assigner    Assigner
	intervalMin int
	log         *zap.SugaredLogger
}

func NewPoller(db PollerStore, assigner Assigner, intervalMin int, log *zap.SugaredLogger) *Poller {
	if intervalMin <= 0 {
		intervalMin = 1
	}
	return &Poller{db: db, assigner: assigner, intervalMin: intervalMin, log: log}
}

// Run starts the cron loop and blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	c := cron.New()
	spec := fmt.Sprintf("@every %dm", p.intervalMin)
	if _, err := c.AddFunc(spec, func() {
		p.Tick(ctx, time.Now().UTC())
	}); err != nil {
		return fmt.Errorf("schedule poll job: %w", err)
	}

	c.Start()
	p.log.Infow("scheduler poller running", "interval_minutes", p.intervalMin)

	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

// Tick processes every schedule entry due at now. Exported so tests can
// drive the poller without the cron loop.
func (p *Poller) Tick(ctx context.Context, now time.Time) {
	entries, err := p.db.ListDueSchedules(ctx, now)
	if err != nil {
		p.log.Errorw("listing due schedules", "error", err)
		return
	}

	for _, entry := range entries {
		if err := p.fire(ctx, entry, now); err != nil {
			p.log.Errorw("schedule entry failed", "schedule_id", entry.ID, "error", err)
		}
	}
}

// fire handles a single due entry: idempotent assignment, then advance
// next_run strictly forward by one recurrence unit from now.
func (p *Poller) fire(ctx context.Context, entry models.ScheduleEntry, now time.Time) error {
	created, err := p.assigner.AssignToUser(ctx, entry.UserID, entry.TemplateID)
	if err != nil {
		// next_run is left untouched so the entry is retried next tick.
		return fmt.Errorf("assign: %w", err)
	}
	if !created {
		p.log.Debugw("assignment already open, skipping", "schedule_id", entry.ID)
	}

	next := entry.Recurrence.Next(now)
	if err := p.db.UpdateScheduleNextRun(ctx, entry.ID, next); err != nil {
		return fmt.Errorf("advance next_run: %w", err)
	}
	return nil
}
