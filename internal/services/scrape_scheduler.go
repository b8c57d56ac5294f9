package services

import (
	"context"

	"github.com/jobscout/jobscout/internal/domain/models"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// ScrapeScheduler starts a full scrape on a cron schedule. A tick that
// lands while another session is running is skipped, not queued.
type ScrapeScheduler struct {
	orchestrator *ScrapeOrchestrator
	cron         *cron.Cron
	schedule     string
}

func NewScrapeScheduler(orchestrator *ScrapeOrchestrator, schedule string) (*ScrapeScheduler, error) {

	if schedule == "" {
		return nil, errors.New("scrape schedule must not be empty")
	}

	ss := &ScrapeScheduler{
		orchestrator: orchestrator,
		cron:         cron.New(),
		schedule:     schedule,
	}

	_, err := ss.cron.AddFunc(schedule, ss.runScheduledScrape)
	if err != nil {
		return nil, errors.Wrap(err, "invalid scrape schedule")
	}

	ss.cron.Start()
	log.Infof("scrape scheduler started with schedule %q", schedule)
	return ss, nil
}

func (ss *ScrapeScheduler) Stop() {
	ss.cron.Stop()
}

func (ss *ScrapeScheduler) runScheduledScrape() {
	id, err := ss.orchestrator.Start(context.Background(), models.TriggerScheduled, nil)
	switch {
	case errors.Is(err, ErrSessionActive):
		log.Info("scheduled scrape skipped, another session is in progress")
	case err != nil:
		log.Errorf("failed to start scheduled scrape: %v", err)
	default:
		log.Infof("scheduled scrape session %v started", id)
	}
}
