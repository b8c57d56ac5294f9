package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/jobscout/jobscout/internal/adapters"
	"github.com/jobscout/jobscout/internal/domain/models"
	"github.com/jobscout/jobscout/internal/events"
	"github.com/jobscout/jobscout/internal/resilience"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

type fakeCompanyStore struct {
	companies []models.Company
}

func (s *fakeCompanyStore) GetActive(ctx context.Context, ids []int) ([]models.Company, error) {
	if len(ids) == 0 {
		return s.companies, nil
	}
	return lo.Filter(s.companies, func(company models.Company, _ int) bool {
		return lo.Contains(ids, company.ID)
	}), nil
}

type fakeScrapeLedger struct {
	mu       sync.Mutex
	sessions map[string]models.ScrapeSession
	logs     []models.ScrapeLog
}

func newFakeScrapeLedger() *fakeScrapeLedger {
	return &fakeScrapeLedger{sessions: map[string]models.ScrapeSession{}}
}

func (l *fakeScrapeLedger) CreateScrapeSession(ctx context.Context, session *models.ScrapeSession) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions[session.ID] = *session
	return nil
}

func (l *fakeScrapeLedger) SaveScrapeProgress(ctx context.Context, session models.ScrapeSession) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions[session.ID] = session
	return nil
}

func (l *fakeScrapeLedger) AppendScrapeLog(ctx context.Context, log *models.ScrapeLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, *log)
	return nil
}

func (l *fakeScrapeLedger) session(id string) models.ScrapeSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessions[id]
}

func (l *fakeScrapeLedger) logForCompany(companyID int) *models.ScrapeLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, log := range l.logs {
		if log.CompanyID == companyID {
			return &log
		}
	}
	return nil
}

// fakeAdapter serves canned postings per company id; nil entries fail
// with a permanent error. An optional block channel stalls calls, and
// entered signals that a call started.
type fakeAdapter struct {
	postings map[int][]adapters.RawPosting
	block    chan struct{}
	entered  chan struct{}
}

func (a *fakeAdapter) Platform() models.Platform { return models.PlatformGreenhouse }

func (a *fakeAdapter) Discover(ctx context.Context, company models.Company) ([]adapters.RawPosting, error) {
	if a.entered != nil {
		select {
		case a.entered <- struct{}{}:
		default:
		}
	}
	if a.block != nil {
		<-a.block
	}
	postings, ok := a.postings[company.ID]
	if !ok {
		return nil, resilience.Permanent(errors.New("board misconfigured"))
	}
	return postings, nil
}

type fakeRegistry struct {
	adapter adapters.Adapter
}

func (r *fakeRegistry) For(company models.Company) (adapters.Adapter, error) {
	return r.adapter, nil
}

type fakeScrapeSettings struct {
	settings models.Settings
}

func (f *fakeScrapeSettings) Snapshot(ctx context.Context) models.Settings {
	return f.settings.Clamped()
}

func newScrapeOrchestrator(bus EventBus.Bus, companies []models.Company,
	ledger *fakeScrapeLedger, adapter adapters.Adapter) *ScrapeOrchestrator {

	return NewScrapeOrchestrator(bus,
		&fakeCompanyStore{companies: companies}, ledger,
		NewDiffer(newFakeJobStore()), &fakeRegistry{adapter: adapter},
		&fakeScrapeSettings{settings: fastSettings()})
}

func waitScrapeTerminal(t *testing.T, ledger *fakeScrapeLedger, id string) models.ScrapeSession {
	t.Helper()
	assert.Eventually(t, func() bool {
		return ledger.session(id).Status.Terminal()
	}, 5*time.Second, 5*time.Millisecond)
	return ledger.session(id)
}

func Test_ScrapeOrchestrator_RunAggregatesPerCompanyCounters(t *testing.T) {

	ledger := newFakeScrapeLedger()
	adapter := &fakeAdapter{postings: map[int][]adapters.RawPosting{
		1: rawPostings(3),
		2: rawPostings(2),
	}}
	companies := []models.Company{
		{ID: 1, Name: "Acme", Platform: models.PlatformGreenhouse, Active: true},
		{ID: 2, Name: "Initech", Platform: models.PlatformGreenhouse, Active: true},
	}

	bus := EventBus.New()
	var published events.ScrapeFinished
	done := make(chan struct{})
	assert.NoError(t, bus.Subscribe(events.ScrapeFinishedTopic, func(event events.ScrapeFinished) {
		published = event
		close(done)
	}))

	orchestrator := newScrapeOrchestrator(bus, companies, ledger, adapter)

	id, err := orchestrator.Start(context.Background(), models.TriggerManual, nil)
	assert.NoError(t, err)

	session := waitScrapeTerminal(t, ledger, id)
	assert.Equal(t, models.SessionCompleted, session.Status)
	assert.Equal(t, 2, session.CompaniesCompleted)
	assert.Equal(t, 5, session.JobsFound)
	assert.Equal(t, 5, session.JobsAdded)
	assert.NotNil(t, session.CompletedAt)

	<-done
	assert.Equal(t, id, published.SessionID)
	assert.False(t, published.Stopped)
	assert.Len(t, published.AddedJobIDs, 5)
	assert.Len(t, published.AddedJobsByCompany[1], 3)
}

func Test_ScrapeOrchestrator_CompanyFailureDoesNotAbortSession(t *testing.T) {

	ledger := newFakeScrapeLedger()
	adapter := &fakeAdapter{postings: map[int][]adapters.RawPosting{
		1: rawPostings(2),
		// company 2 has no canned postings and fails
	}}
	companies := []models.Company{
		{ID: 1, Name: "Acme", Active: true},
		{ID: 2, Name: "Broken", Active: true},
	}

	orchestrator := newScrapeOrchestrator(EventBus.New(), companies, ledger, adapter)

	id, err := orchestrator.Start(context.Background(), models.TriggerManual, nil)
	assert.NoError(t, err)

	session := waitScrapeTerminal(t, ledger, id)
	assert.Equal(t, models.SessionCompleted, session.Status)
	assert.Equal(t, 2, session.CompaniesCompleted)
	assert.Equal(t, 2, session.JobsAdded)

	failed := ledger.logForCompany(2)
	assert.NotNil(t, failed)
	assert.Equal(t, models.LogFailed, failed.Status)
	assert.Contains(t, failed.Error, "board misconfigured")
}

func Test_ScrapeOrchestrator_StopBetweenCompanies(t *testing.T) {

	ledger := newFakeScrapeLedger()
	adapter := &fakeAdapter{
		postings: map[int][]adapters.RawPosting{1: rawPostings(1), 2: rawPostings(1)},
		block:    make(chan struct{}),
		entered:  make(chan struct{}, 1),
	}
	companies := []models.Company{
		{ID: 1, Name: "Acme", Active: true},
		{ID: 2, Name: "Initech", Active: true},
	}

	orchestrator := newScrapeOrchestrator(EventBus.New(), companies, ledger, adapter)

	id, err := orchestrator.Start(context.Background(), models.TriggerManual, nil)
	assert.NoError(t, err)

	<-adapter.entered
	assert.NoError(t, orchestrator.Stop(id))
	close(adapter.block)

	session := waitScrapeTerminal(t, ledger, id)
	assert.Equal(t, models.SessionFailed, session.Status)

	// the in-flight company finished and was recorded; the second was
	// never scraped
	assert.Equal(t, 1, session.CompaniesCompleted)
	assert.Nil(t, ledger.logForCompany(2))

	stopLogs := lo.Filter(ledger.logs, func(log models.ScrapeLog, _ int) bool {
		return log.Status == models.LogStopped
	})
	assert.Len(t, stopLogs, 1)
}

func Test_ScrapeOrchestrator_StopDuringFinalCompanyStillFailsSession(t *testing.T) {

	ledger := newFakeScrapeLedger()
	adapter := &fakeAdapter{
		postings: map[int][]adapters.RawPosting{1: rawPostings(2)},
		block:    make(chan struct{}),
		entered:  make(chan struct{}, 1),
	}
	companies := []models.Company{{ID: 1, Name: "Acme", Active: true}}

	orchestrator := newScrapeOrchestrator(EventBus.New(), companies, ledger, adapter)

	id, err := orchestrator.Start(context.Background(), models.TriggerManual, nil)
	assert.NoError(t, err)

	// the only company is already in flight when the stop arrives, so
	// there is no later iteration to notice the cancellation
	<-adapter.entered
	assert.NoError(t, orchestrator.Stop(id))
	close(adapter.block)

	session := waitScrapeTerminal(t, ledger, id)
	assert.Equal(t, models.SessionFailed, session.Status)

	// the in-flight company finished and was recorded
	assert.Equal(t, 1, session.CompaniesCompleted)
	assert.Equal(t, 2, session.JobsAdded)

	companyLog := ledger.logForCompany(1)
	assert.NotNil(t, companyLog)
	assert.Equal(t, models.LogSuccess, companyLog.Status)

	stopLogs := lo.Filter(ledger.logs, func(log models.ScrapeLog, _ int) bool {
		return log.Status == models.LogStopped
	})
	assert.Len(t, stopLogs, 1)
}

func Test_ScrapeOrchestrator_SecondStartWhileRunningIsRejected(t *testing.T) {

	ledger := newFakeScrapeLedger()
	adapter := &fakeAdapter{
		postings: map[int][]adapters.RawPosting{1: rawPostings(1)},
		block:    make(chan struct{}),
	}
	companies := []models.Company{{ID: 1, Name: "Acme", Active: true}}

	orchestrator := newScrapeOrchestrator(EventBus.New(), companies, ledger, adapter)

	id, err := orchestrator.Start(context.Background(), models.TriggerManual, nil)
	assert.NoError(t, err)

	_, err = orchestrator.Start(context.Background(), models.TriggerManual, nil)
	assert.ErrorIs(t, err, ErrSessionActive)

	close(adapter.block)
	waitScrapeTerminal(t, ledger, id)
}

func Test_ScrapeOrchestrator_NoActiveCompaniesIsAnError(t *testing.T) {

	orchestrator := newScrapeOrchestrator(EventBus.New(), nil, newFakeScrapeLedger(), &fakeAdapter{})

	_, err := orchestrator.Start(context.Background(), models.TriggerManual, nil)
	assert.Error(t, err)
}
