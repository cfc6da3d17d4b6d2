package tasks

import (
	"context"
	"lingochat/backend/internal/localization"
	"lingochat/backend/internal/models"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// PendingCounter counts reports by status.
type PendingCounter interface {
	CountReportsByStatus(ctx context.Context, status models.ReportStatus) (int64, error)
}

// Alerter delivers the digest text.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

// ReportDigest periodically tells moderators how many reports still wait for review.
type ReportDigest struct {
	counter   PendingCounter
	alerts    Alerter
	localizer *localization.Localizer
	cron      *cron.Cron
}

func NewReportDigest(counter PendingCounter, alerts Alerter, loc *localization.Localizer) *ReportDigest {
	return &ReportDigest{
		counter:   counter,
		alerts:    alerts,
		localizer: loc,
	}
}

// Start schedules the digest with a standard cron spec or descriptor such as "@hourly".
func (d *ReportDigest) Start(schedule string) error {
	c := cron.New()

	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if _, err := d.RunOnce(ctx); err != nil {
			log.Printf("ERROR: Report digest failed: %v", err)
		}
	}); err != nil {
		return err
	}

	d.cron = c
	c.Start()
	log.Printf("INFO: Report digest scheduled (%s)", schedule)
	return nil
}

// Stop halts the schedule and waits for a running digest to finish.
func (d *ReportDigest) Stop() {
	if d.cron == nil {
		return
	}
	<-d.cron.Stop().Done()
}

// RunOnce sends the digest if anything is pending and returns the pending count.
func (d *ReportDigest) RunOnce(ctx context.Context) (int64, error) {
	n, err := d.counter.CountReportsByStatus(ctx, models.ReportPending)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	text := d.localizer.Format(localization.FallbackLanguage, "alert.pending_digest", n)
	return n, d.alerts.Alert(ctx, text)
}
