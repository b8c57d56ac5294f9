package services

import (
	"context"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/jobscout/jobscout/internal/adapters"
	"github.com/jobscout/jobscout/internal/domain/models"
	"github.com/jobscout/jobscout/internal/events"
	"github.com/jobscout/jobscout/internal/logger"
	"github.com/jobscout/jobscout/internal/metrics"
	"github.com/jobscout/jobscout/internal/resilience"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrSessionActive rejects a session start while another of the same
// kind is still running. Sessions of one kind never overlap.
var ErrSessionActive = errors.New("another session is already in progress")

const stoppedByUser = "stopped by user"

type companyStore interface {
	GetActive(ctx context.Context, ids []int) ([]models.Company, error)
}

type scrapeLedger interface {
	CreateScrapeSession(ctx context.Context, session *models.ScrapeSession) error
	SaveScrapeProgress(ctx context.Context, session models.ScrapeSession) error
	AppendScrapeLog(ctx context.Context, log *models.ScrapeLog) error
}

type settingsProvider interface {
	Snapshot(ctx context.Context) models.Settings
}

type adapterRegistry interface {
	For(company models.Company) (adapters.Adapter, error)
}

// ScrapeOrchestrator drives one scrape session at a time: sequentially
// over companies in stable id order, one adapter call (with retry and a
// per-call timeout) and one diff per company, progress persisted after
// every company so pollers see it move.
type ScrapeOrchestrator struct {
	bus       EventBus.Bus
	companies companyStore
	ledger    scrapeLedger
	differ    *Differ
	registry  adapterRegistry
	settings  settingsProvider

	mu       sync.Mutex
	activeID string
	cancel   context.CancelFunc
}

func NewScrapeOrchestrator(bus EventBus.Bus, companies companyStore, ledger scrapeLedger,
	differ *Differ, registry adapterRegistry, settings settingsProvider) *ScrapeOrchestrator {

	return &ScrapeOrchestrator{
		bus:       bus,
		companies: companies,
		ledger:    ledger,
		differ:    differ,
		registry:  registry,
		settings:  settings,
	}
}

// Start creates the session and launches the run in the background. Only
// one scrape session may be in progress system-wide; a second start is
// rejected with ErrSessionActive.
func (o *ScrapeOrchestrator) Start(ctx context.Context, trigger models.TriggerSource,
	companyIDs []int) (string, error) {

	companies, err := o.companies.GetActive(ctx, companyIDs)
	if err != nil {
		return "", errors.Wrap(err, "failed to load companies")
	}
	if len(companies) == 0 {
		return "", errors.New("no active companies to scrape")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.activeID != "" {
		return "", ErrSessionActive
	}

	session := models.ScrapeSession{
		ID:             uuid.NewString(),
		Trigger:        trigger,
		Status:         models.SessionQueued,
		CompaniesTotal: len(companies),
		StartedAt:      time.Now(),
	}
	if err := o.ledger.CreateScrapeSession(ctx, &session); err != nil {
		return "", errors.Wrap(err, "failed to create scrape session")
	}

	// detached from the caller's context: the session outlives the
	// request that started it and is only cancelled through Stop
	runCtx, cancel := context.WithCancel(context.Background())
	o.activeID = session.ID
	o.cancel = cancel

	go o.run(runCtx, session, companies)

	return session.ID, nil
}

// Stop requests cancellation of the active session. The orchestrator
// notices between companies, never mid-company.
func (o *ScrapeOrchestrator) Stop(sessionID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.activeID != sessionID {
		return errors.Errorf("scrape session %v is not running", sessionID)
	}
	o.cancel()
	return nil
}

func (o *ScrapeOrchestrator) run(ctx context.Context, session models.ScrapeSession,
	companies []models.Company) {

	start := time.Now()
	defer func() {
		o.mu.Lock()
		o.activeID = ""
		o.cancel = nil
		o.mu.Unlock()
		metrics.ScrapeSessionDuration.Observe(time.Since(start).Seconds())
	}()

	log.Infof("scrape session %v started for %v companies", session.ID, len(companies))

	settings := o.settings.Snapshot(ctx)
	session.Status = models.SessionInProgress
	if err := o.saveProgress(session); err != nil {
		o.finalize(&session, true)
		return
	}

	stopped := false
	addedByCompany := map[int][]int{}

	for _, company := range companies {

		select {
		case <-ctx.Done():
			stopped = true
		default:
		}
		if stopped {
			o.appendStoppedLog(session.ID)
			break
		}

		entry, addedIDs := o.scrapeCompany(session.ID, company, settings)

		if err := o.ledger.AppendScrapeLog(context.Background(), entry); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to append scrape log: %v", err)
			o.finalize(&session, true)
			return
		}

		session.CompaniesCompleted++
		session.JobsFound += entry.JobsFound
		session.JobsAdded += entry.JobsAdded
		session.JobsUpdated += entry.JobsUpdated
		session.JobsFiltered += entry.JobsFiltered
		session.JobsArchived += entry.JobsArchived

		if err := o.saveProgress(session); err != nil {
			o.finalize(&session, true)
			return
		}

		if len(addedIDs) > 0 {
			addedByCompany[company.ID] = addedIDs
		}
	}

	// a stop that lands while the last company is in flight has no next
	// iteration to notice it; it must still fail the session
	if !stopped && ctx.Err() != nil {
		stopped = true
		o.appendStoppedLog(session.ID)
	}

	o.finalize(&session, stopped)

	var addedJobIDs []int
	for _, ids := range addedByCompany {
		addedJobIDs = append(addedJobIDs, ids...)
	}

	o.bus.Publish(events.ScrapeFinishedTopic, events.ScrapeFinished{
		SessionID:          session.ID,
		Trigger:            string(session.Trigger),
		Stopped:            stopped,
		AddedJobIDs:        addedJobIDs,
		AddedJobsByCompany: addedByCompany,
	})

	log.Infof("scrape session %v finished: %v/%v companies, %v found, %v added",
		session.ID, session.CompaniesCompleted, session.CompaniesTotal,
		session.JobsFound, session.JobsAdded)
}

// scrapeCompany runs discovery and diffing for one company and returns
// its log entry. Failures are contained here: a bad company never aborts
// the session. The work runs on a fresh context so a session stop lets
// the in-flight company finish and be recorded.
func (o *ScrapeOrchestrator) scrapeCompany(sessionID string,
	company models.Company, settings models.Settings) (*models.ScrapeLog, []int) {

	ctx := context.Background()

	entry := &models.ScrapeLog{
		SessionID:   sessionID,
		CompanyID:   company.ID,
		CompanyName: company.Name,
		Platform:    company.Platform,
		StartedAt:   time.Now(),
	}
	defer func() {
		entry.CompletedAt = time.Now()
		entry.DurationMs = entry.CompletedAt.Sub(entry.StartedAt).Milliseconds()
	}()

	adapter, err := o.registry.For(company)
	if err != nil {
		return o.failEntry(entry, err), nil
	}
	if entry.Platform == models.PlatformUnknown {
		entry.Platform = adapter.Platform()
	}

	policy := resilience.NewRetryPolicy(settings.MaxRetries, settings.RetryBaseDelay, settings.RetryMaxDelay)

	var raw []adapters.RawPosting
	discoverStart := time.Now()
	_, err = policy.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, settings.RequestTimeout)
		defer cancel()

		var discoverErr error
		raw, discoverErr = adapter.Discover(callCtx, company)
		return discoverErr
	})
	metrics.SessionStepDuration.WithLabelValues("discovery").Observe(time.Since(discoverStart).Seconds())

	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeBoardApi).
			Errorf("discovery failed for company %v: %v", company.Name, err)
		return o.failEntry(entry, err), nil
	}

	result, err := o.differ.Apply(ctx, company, raw, settings)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("diff failed for company %v: %v", company.Name, err)
		return o.failEntry(entry, err), nil
	}

	entry.Status = models.LogSuccess
	entry.JobsFound = result.Found
	entry.JobsAdded = result.Added
	entry.JobsUpdated = result.Updated
	entry.JobsFiltered = result.Filtered
	entry.JobsArchived = result.Archived
	return entry, result.AddedJobIDs
}

func (o *ScrapeOrchestrator) failEntry(entry *models.ScrapeLog, err error) *models.ScrapeLog {
	entry.Status = models.LogFailed
	entry.Error = err.Error()
	return entry
}

func (o *ScrapeOrchestrator) appendStoppedLog(sessionID string) {
	err := o.ledger.AppendScrapeLog(context.Background(), &models.ScrapeLog{
		SessionID:   sessionID,
		Status:      models.LogStopped,
		Error:       stoppedByUser,
		StartedAt:   time.Now(),
		CompletedAt: time.Now(),
	})
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to append stop log: %v", err)
	}
}

func (o *ScrapeOrchestrator) finalize(session *models.ScrapeSession, failed bool) {
	now := time.Now()
	session.CompletedAt = &now
	if failed {
		session.Status = models.SessionFailed
	} else {
		session.Status = models.SessionCompleted
	}
	_ = o.saveProgress(*session)
}

func (o *ScrapeOrchestrator) saveProgress(session models.ScrapeSession) error {
	err := o.ledger.SaveScrapeProgress(context.Background(), session)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to save scrape progress: %v", err)
	}
	return err
}
