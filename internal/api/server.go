package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/jobscout/jobscout/internal/domain/models"
	"github.com/jobscout/jobscout/internal/logger"
	"github.com/jobscout/jobscout/internal/metrics"
	"github.com/jobscout/jobscout/internal/services"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type CompanyStore interface {
	Add(ctx context.Context, company *models.Company) error
	GetByID(ctx context.Context, id int) (*models.Company, error)
	GetAll(ctx context.Context) ([]models.Company, error)
	Update(ctx context.Context, company models.Company) error
	Remove(ctx context.Context, id int) error
}

type JobStore interface {
	GetByCompany(ctx context.Context, companyID int) ([]models.JobPosting, error)
	UpdateStatus(ctx context.Context, id int, status models.JobStatus) error
	BulkDelete(ctx context.Context, ids []int) (int64, error)
}

type SessionStore interface {
	GetScrapeSession(ctx context.Context, id string) (*models.ScrapeSession, error)
	ListScrapeSessions(ctx context.Context, limit int) ([]models.ScrapeSession, error)
	GetScrapeLogs(ctx context.Context, sessionID string) ([]models.ScrapeLog, error)
	DeleteScrapeSession(ctx context.Context, id string) error
	GetMatchSession(ctx context.Context, id string) (*models.MatchSession, error)
	ListMatchSessions(ctx context.Context, limit int) ([]models.MatchSession, error)
	GetMatchLogs(ctx context.Context, sessionID string) ([]models.MatchLog, error)
	DeleteMatchSession(ctx context.Context, id string) error
}

type SettingsStore interface {
	Snapshot(ctx context.Context) models.Settings
	SaveSettings(ctx context.Context, settings models.Settings) error
	Profile(ctx context.Context) (models.CandidateProfile, error)
	SaveProfile(ctx context.Context, profile models.CandidateProfile) error
}

type ScrapeController interface {
	Start(ctx context.Context, trigger models.TriggerSource, companyIDs []int) (string, error)
	Stop(sessionID string) error
}

type MatchController interface {
	Start(ctx context.Context, trigger models.TriggerSource, scope services.MatchScope) (string, error)
	Stop(sessionID string) error
}

// Engine bundles everything the API fronts.
type Engine struct {
	Companies CompanyStore
	Jobs      JobStore
	Sessions  SessionStore
	Settings  SettingsStore
	Scrapes   ScrapeController
	Matches   MatchController
	Bus       EventBus.Bus
}

// Server is the JSON API the dashboard talks to. Session starts return
// immediately with the session id; progress is polled.
type Server struct {
	http   *http.Server
	engine Engine
}

func NewServer(port int, engine Engine) *Server {

	s := &Server{engine: engine}

	mux := http.NewServeMux()
	s.routes(mux)

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/companies", s.listCompanies)
	mux.HandleFunc("POST /api/companies", s.createCompany)
	mux.HandleFunc("GET /api/companies/{id}", s.getCompany)
	mux.HandleFunc("PUT /api/companies/{id}", s.updateCompany)
	mux.HandleFunc("DELETE /api/companies/{id}", s.deleteCompany)
	mux.HandleFunc("POST /api/companies/{id}/refresh", s.refreshCompany)

	mux.HandleFunc("GET /api/jobs", s.listJobs)
	mux.HandleFunc("PATCH /api/jobs/{id}/status", s.updateJobStatus)
	mux.HandleFunc("POST /api/jobs/bulk-delete", s.bulkDeleteJobs)

	mux.HandleFunc("POST /api/scrape/sessions", s.startScrape)
	mux.HandleFunc("GET /api/scrape/sessions", s.listScrapeSessions)
	mux.HandleFunc("GET /api/scrape/sessions/{id}", s.getScrapeSession)
	mux.HandleFunc("GET /api/scrape/sessions/{id}/logs", s.getScrapeLogs)
	mux.HandleFunc("POST /api/scrape/sessions/{id}/stop", s.stopScrape)
	mux.HandleFunc("DELETE /api/scrape/sessions/{id}", s.deleteScrapeSession)

	mux.HandleFunc("POST /api/match/sessions", s.startMatch)
	mux.HandleFunc("GET /api/match/sessions", s.listMatchSessions)
	mux.HandleFunc("GET /api/match/sessions/{id}", s.getMatchSession)
	mux.HandleFunc("GET /api/match/sessions/{id}/logs", s.getMatchLogs)
	mux.HandleFunc("POST /api/match/sessions/{id}/stop", s.stopMatch)
	mux.HandleFunc("DELETE /api/match/sessions/{id}", s.deleteMatchSession)

	mux.HandleFunc("GET /api/settings", s.getSettings)
	mux.HandleFunc("PUT /api/settings", s.updateSettings)
	mux.HandleFunc("GET /api/profile", s.getProfile)
	mux.HandleFunc("PUT /api/profile", s.updateProfile)
}

func (s *Server) Start() error {
	log.Infof("api server listening on %v", s.http.Addr)
	if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeHttpApi).
			Errorf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeHttpApi).Error(err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps storage and engine errors to response codes so handlers
// don't repeat the switch.
func statusFor(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSessionActive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, target any) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return errors.Wrap(err, "invalid request body")
	}
	return nil
}
