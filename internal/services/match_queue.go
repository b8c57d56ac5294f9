package services

import (
	"context"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/jobscout/jobscout/internal/domain/models"
	"github.com/jobscout/jobscout/internal/events"
	"github.com/jobscout/jobscout/internal/logger"
	"github.com/jobscout/jobscout/internal/metrics"
	"github.com/jobscout/jobscout/internal/resilience"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

type matchJobStore interface {
	GetUnscored(ctx context.Context, companyID *int) ([]models.JobPosting, error)
	GetByIDs(ctx context.Context, ids []int) ([]models.JobPosting, error)
	SaveMatch(ctx context.Context, id int, score int,
		reasons, matchedSkills, missingSkills, recommendations, model string) error
}

type matchLedger interface {
	CreateMatchSession(ctx context.Context, session *models.MatchSession) error
	SaveMatchProgress(ctx context.Context, session models.MatchSession) error
	AppendMatchLog(ctx context.Context, log *models.MatchLog) error
	SaveScrapeLogMatcher(ctx context.Context, sessionID string, companyID int,
		status models.SessionStatus, total, completed int, durationMs int64, errorCount int) error
}

type scorer interface {
	ScoreJob(ctx context.Context, job models.JobPosting, profile models.CandidateProfile) (*MatchResult, error)
	ScoreJobs(ctx context.Context, jobs []models.JobPosting, profile models.CandidateProfile) (map[int]*MatchResult, error)
	ModelName() string
}

type matchSettingsProvider interface {
	Snapshot(ctx context.Context) models.Settings
	Profile(ctx context.Context) (models.CandidateProfile, error)
}

type matchCompanyStore interface {
	GetAll(ctx context.Context) ([]models.Company, error)
}

// MatchScope selects the jobs a match session targets: an explicit id
// set, one company, or every unscored non-archived job.
type MatchScope struct {
	JobIDs          []int
	CompanyID       *int
	ScrapeSessionID string
}

// MatchQueue drives one match session at a time, draining target jobs
// through the AI scorer behind the circuit breaker, retry policy and
// concurrency limiter. Counter writes for the session go through one
// mutex so concurrent workers never lose updates.
type MatchQueue struct {
	bus       EventBus.Bus
	jobs      matchJobStore
	companies matchCompanyStore
	ledger    matchLedger
	scorer    scorer
	breaker   *resilience.Breaker
	settings  matchSettingsProvider

	mu       sync.Mutex
	activeID string
	cancel   context.CancelFunc
}

func NewMatchQueue(bus EventBus.Bus, jobs matchJobStore, companies matchCompanyStore,
	ledger matchLedger, scorer scorer, breaker *resilience.Breaker,
	settings matchSettingsProvider) (*MatchQueue, error) {

	q := &MatchQueue{
		bus:       bus,
		jobs:      jobs,
		companies: companies,
		ledger:    ledger,
		scorer:    scorer,
		breaker:   breaker,
		settings:  settings,
	}

	if err := bus.Subscribe(events.ScrapeFinishedTopic, q.onScrapeFinished); err != nil {
		return nil, err
	}

	return q, nil
}

// Start creates the session and launches the drain in the background.
// Only one match session may be in progress system-wide.
func (q *MatchQueue) Start(ctx context.Context, trigger models.TriggerSource,
	scope MatchScope) (string, error) {

	jobs, err := q.selectJobs(ctx, scope)
	if err != nil {
		return "", errors.Wrap(err, "failed to select jobs")
	}
	if len(jobs) == 0 {
		return "", errors.New("no jobs to score")
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.activeID != "" {
		return "", ErrSessionActive
	}

	session := models.MatchSession{
		ID:              uuid.NewString(),
		Trigger:         trigger,
		CompanyID:       scope.CompanyID,
		ScrapeSessionID: scope.ScrapeSessionID,
		Status:          models.SessionQueued,
		JobsTotal:       len(jobs),
		StartedAt:       time.Now(),
	}
	if err := q.ledger.CreateMatchSession(ctx, &session); err != nil {
		return "", errors.Wrap(err, "failed to create match session")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	q.activeID = session.ID
	q.cancel = cancel

	go q.run(runCtx, session, jobs)

	return session.ID, nil
}

// Stop requests cancellation. Checked between job dispatches; in-flight
// calls finish and are recorded.
func (q *MatchQueue) Stop(sessionID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.activeID != sessionID {
		return errors.Errorf("match session %v is not running", sessionID)
	}
	q.cancel()
	return nil
}

func (q *MatchQueue) selectJobs(ctx context.Context, scope MatchScope) ([]models.JobPosting, error) {
	if len(scope.JobIDs) > 0 {
		return q.jobs.GetByIDs(ctx, scope.JobIDs)
	}
	return q.jobs.GetUnscored(ctx, scope.CompanyID)
}

type companyMatchStats struct {
	total      int
	completed  int
	errorCount int
	durationMs int64
}

func (q *MatchQueue) run(ctx context.Context, session models.MatchSession, jobs []models.JobPosting) {

	start := time.Now()
	defer func() {
		q.mu.Lock()
		q.activeID = ""
		q.cancel = nil
		q.mu.Unlock()
		metrics.MatchSessionDuration.Observe(time.Since(start).Seconds())
	}()

	settings := q.settings.Snapshot(ctx)
	profile, err := q.settings.Profile(ctx)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to load candidate profile: %v", err)
	}
	companyNames := q.companyNames(ctx)

	log.Infof("match session %v started for %v jobs", session.ID, len(jobs))

	session.Status = models.SessionInProgress
	q.saveProgress(&session)

	concurrency := settings.Concurrency
	if settings.SerializeOperations {
		concurrency = 1
	}
	limiter := resilience.NewLimiter(concurrency)
	policy := resilience.NewRetryPolicy(settings.MaxRetries, settings.RetryBaseDelay, settings.RetryMaxDelay)

	batches := [][]models.JobPosting{}
	if settings.BulkEnabled {
		batches = lo.Chunk(jobs, settings.BulkSize)
	} else {
		for _, job := range jobs {
			batches = append(batches, []models.JobPosting{job})
		}
	}

	var sessionMu sync.Mutex
	perCompany := map[int]*companyMatchStats{}
	for _, job := range jobs {
		if perCompany[job.CompanyID] == nil {
			perCompany[job.CompanyID] = &companyMatchStats{}
		}
		perCompany[job.CompanyID].total++
	}

	var wg sync.WaitGroup
	stopped := false

	for _, batch := range batches {

		// cancellation is observed between dispatches, never mid-call
		if err := limiter.Acquire(ctx); err != nil {
			stopped = true
			break
		}

		wg.Add(1)
		go func(batch []models.JobPosting) {
			defer wg.Done()
			defer limiter.Release()

			q.scoreBatch(batch, profile, policy, settings, companyNames,
				&session, &sessionMu, perCompany)
		}(batch)
	}

	wg.Wait()

	// a stop that lands after the final dispatch has no acquire left to
	// notice it; it must still fail the session
	if !stopped && ctx.Err() != nil {
		stopped = true
	}
	if stopped {
		q.appendStoppedLog(session.ID)
	}

	now := time.Now()
	session.CompletedAt = &now
	if stopped {
		session.Status = models.SessionFailed
	} else {
		session.Status = models.SessionCompleted
	}
	q.saveProgress(&session)

	if session.ScrapeSessionID != "" {
		q.mirrorIntoScrapeLogs(session, perCompany)
	}

	log.Infof("match session %v finished: %v/%v jobs, %v succeeded, %v failed",
		session.ID, session.JobsCompleted, session.JobsTotal,
		session.JobsSucceeded, session.JobsFailed)
}

// scoreBatch scores one dispatch unit: a single job, or a bulk batch
// sharing one provider call. The scoring call itself runs on a fresh
// context so a session stop lets in-flight calls finish.
func (q *MatchQueue) scoreBatch(batch []models.JobPosting, profile models.CandidateProfile,
	policy resilience.RetryPolicy, settings models.Settings, companyNames map[int]string,
	session *models.MatchSession, sessionMu *sync.Mutex, perCompany map[int]*companyMatchStats) {

	callStart := time.Now()
	attempts := 0
	results := map[int]*MatchResult{}

	err := q.breaker.Do(context.Background(), func(ctx context.Context) error {
		tries, err := policy.Do(ctx, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, settings.RequestTimeout)
			defer cancel()

			if len(batch) == 1 {
				result, err := q.scorer.ScoreJob(callCtx, batch[0], profile)
				if err != nil {
					return err
				}
				results[batch[0].ID] = result
				return nil
			}

			bulkResults, err := q.scorer.ScoreJobs(callCtx, batch, profile)
			if err != nil {
				return err
			}
			results = bulkResults
			return nil
		})
		attempts = tries
		return err
	})

	durationMs := time.Since(callStart).Milliseconds()
	metrics.SessionStepDuration.WithLabelValues("scoring").Observe(time.Since(callStart).Seconds())

	// the batch's call time counts once towards each company it touched
	sessionMu.Lock()
	for _, companyID := range lo.Uniq(lo.Map(batch, func(job models.JobPosting, _ int) int {
		return job.CompanyID
	})) {
		if stats := perCompany[companyID]; stats != nil {
			stats.durationMs += durationMs
		}
	}
	sessionMu.Unlock()

	for _, job := range batch {
		entry := models.MatchLog{
			SessionID:   session.ID,
			JobID:       job.ID,
			JobTitle:    job.Title,
			CompanyID:   job.CompanyID,
			CompanyName: companyNames[job.CompanyID],
			Attempts:    attempts,
			DurationMs:  durationMs,
			Model:       q.scorer.ModelName(),
			CompletedAt: time.Now(),
		}

		result := results[job.ID]
		switch {
		case err != nil:
			entry.Status = models.LogFailed
			entry.ErrorType = string(resilience.KindOf(err))
			entry.Error = err.Error()
		case result == nil:
			entry.Status = models.LogFailed
			entry.ErrorType = string(resilience.KindPermanent)
			entry.Error = "job missing from bulk response"
		default:
			entry.Status = models.LogSuccess
			entry.Score = &result.Score
			q.persistMatch(job, result)
		}

		q.recordOutcome(session, sessionMu, perCompany, &entry)
	}

	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeAiApi).
			Errorf("scoring failed after %v attempts: %v", attempts, err)
	}
}

func (q *MatchQueue) persistMatch(job models.JobPosting, result *MatchResult) {
	err := q.jobs.SaveMatch(context.Background(), job.ID, result.Score,
		joinList(result.Reasons), joinList(result.MatchedSkills),
		joinList(result.MissingSkills), joinList(result.Recommendations),
		q.scorer.ModelName())
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to save match for job %v: %v", job.ID, err)
	}
}

// recordOutcome is the single writer path for session counters. The
// mutex serializes concurrent workers so no update is lost, and progress
// is persisted immediately so pollers see it while the session runs.
func (q *MatchQueue) recordOutcome(session *models.MatchSession, sessionMu *sync.Mutex,
	perCompany map[int]*companyMatchStats, entry *models.MatchLog) {

	sessionMu.Lock()
	defer sessionMu.Unlock()

	session.JobsCompleted++
	if entry.Status == models.LogSuccess {
		session.JobsSucceeded++
	} else {
		session.JobsFailed++
		session.ErrorCount++
	}

	if stats := perCompany[entry.CompanyID]; stats != nil {
		stats.completed++
		if entry.Status != models.LogSuccess {
			stats.errorCount++
		}
	}

	metrics.JobsScoredCounter.WithLabelValues(string(entry.Status)).Inc()

	if err := q.ledger.AppendMatchLog(context.Background(), entry); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to append match log: %v", err)
	}
	q.saveProgress(session)
}

func (q *MatchQueue) appendStoppedLog(sessionID string) {
	err := q.ledger.AppendMatchLog(context.Background(), &models.MatchLog{
		SessionID:   sessionID,
		Status:      models.LogStopped,
		Error:       stoppedByUser,
		CompletedAt: time.Now(),
	})
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to append stop log: %v", err)
	}
}

func (q *MatchQueue) companyNames(ctx context.Context) map[int]string {
	companies, err := q.companies.GetAll(ctx)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to load company names: %v", err)
		return map[int]string{}
	}
	return lo.Associate(companies, func(company models.Company) (int, string) {
		return company.ID, company.Name
	})
}

func (q *MatchQueue) saveProgress(session *models.MatchSession) {
	if err := q.ledger.SaveMatchProgress(context.Background(), *session); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to save match progress: %v", err)
	}
}

// mirrorIntoScrapeLogs copies an auto-triggered match run's per-company
// outcome into the originating scrape session's log entries.
func (q *MatchQueue) mirrorIntoScrapeLogs(session models.MatchSession,
	perCompany map[int]*companyMatchStats) {

	for companyID, stats := range perCompany {
		err := q.ledger.SaveScrapeLogMatcher(context.Background(),
			session.ScrapeSessionID, companyID, session.Status,
			stats.total, stats.completed, stats.durationMs, stats.errorCount)
		if err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to mirror match stats into scrape log: %v", err)
		}
	}
}

// onScrapeFinished starts the auto-match run for jobs a scrape just
// added, when the setting is enabled.
func (q *MatchQueue) onScrapeFinished(event events.ScrapeFinished) {
	if event.Stopped || len(event.AddedJobIDs) == 0 {
		return
	}

	settings := q.settings.Snapshot(context.Background())
	if !settings.AutoMatchAfterScrape {
		return
	}

	_, err := q.Start(context.Background(), models.TriggerAutoScrape, MatchScope{
		JobIDs:          event.AddedJobIDs,
		ScrapeSessionID: event.SessionID,
	})
	if err != nil {
		log.Errorf("failed to start auto-match after scrape %v: %v", event.SessionID, err)
	}
}

func joinList(items []string) string {
	return lo.Reduce(items, func(agg string, item string, i int) string {
		if i == 0 {
			return item
		}
		return agg + "\n" + item
	}, "")
}
