package repositories

import (
	"context"
	"time"

	"github.com/jobscout/jobscout/internal/domain/models"
	"gorm.io/gorm"
)

// Sessions is the ledger both orchestrators write and the dashboard
// polls. Counter writes for one session always go through one goroutine
// (scrape) or one mutex (match), so reads here stay cheap and lock-free.
type Sessions struct {
	db *gorm.DB
}

func NewSessionsRepository(db *gorm.DB) *Sessions {
	return &Sessions{db: db}
}

func (repo *Sessions) CreateScrapeSession(ctx context.Context, session *models.ScrapeSession) error {
	return repo.db.WithContext(ctx).Create(session).Error
}

// SaveScrapeProgress persists the session's counters and status so a
// concurrent poller sees incremental progress.
func (repo *Sessions) SaveScrapeProgress(ctx context.Context, session models.ScrapeSession) error {
	return repo.db.WithContext(ctx).Model(&models.ScrapeSession{}).
		Where("id = ?", session.ID).
		Select("Status", "CompaniesCompleted", "JobsFound", "JobsAdded",
			"JobsUpdated", "JobsFiltered", "JobsArchived", "CompletedAt").
		Updates(session).Error
}

func (repo *Sessions) GetScrapeSession(ctx context.Context, id string) (*models.ScrapeSession, error) {
	var session models.ScrapeSession
	if err := repo.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (repo *Sessions) ListScrapeSessions(ctx context.Context, limit int) ([]models.ScrapeSession, error) {
	var sessions []models.ScrapeSession
	if err := repo.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (repo *Sessions) AppendScrapeLog(ctx context.Context, log *models.ScrapeLog) error {
	return repo.db.WithContext(ctx).Create(log).Error
}

func (repo *Sessions) GetScrapeLogs(ctx context.Context, sessionID string) ([]models.ScrapeLog, error) {
	var logs []models.ScrapeLog
	if err := repo.db.WithContext(ctx).Where("session_id = ?", sessionID).
		Order("id").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// SaveScrapeLogMatcher mirrors an auto-triggered match sub-run's outcome
// into the company's scrape log entry.
func (repo *Sessions) SaveScrapeLogMatcher(ctx context.Context, sessionID string, companyID int,
	status models.SessionStatus, total, completed int, durationMs int64, errorCount int) error {

	return repo.db.WithContext(ctx).Model(&models.ScrapeLog{}).
		Where("session_id = ? AND company_id = ?", sessionID, companyID).
		Updates(map[string]any{
			"matcher_status":         status,
			"matcher_jobs_total":     total,
			"matcher_jobs_completed": completed,
			"matcher_duration_ms":    durationMs,
			"matcher_error_count":    errorCount,
		}).Error
}

func (repo *Sessions) DeleteScrapeSession(ctx context.Context, id string) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ScrapeLog{}, "session_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ScrapeSession{ID: id}).Error
	})
}

func (repo *Sessions) CreateMatchSession(ctx context.Context, session *models.MatchSession) error {
	return repo.db.WithContext(ctx).Create(session).Error
}

func (repo *Sessions) SaveMatchProgress(ctx context.Context, session models.MatchSession) error {
	return repo.db.WithContext(ctx).Model(&models.MatchSession{}).
		Where("id = ?", session.ID).
		Select("Status", "JobsCompleted", "JobsSucceeded", "JobsFailed",
			"ErrorCount", "CompletedAt").
		Updates(session).Error
}

func (repo *Sessions) GetMatchSession(ctx context.Context, id string) (*models.MatchSession, error) {
	var session models.MatchSession
	if err := repo.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (repo *Sessions) ListMatchSessions(ctx context.Context, limit int) ([]models.MatchSession, error) {
	var sessions []models.MatchSession
	if err := repo.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (repo *Sessions) AppendMatchLog(ctx context.Context, log *models.MatchLog) error {
	return repo.db.WithContext(ctx).Create(log).Error
}

func (repo *Sessions) GetMatchLogs(ctx context.Context, sessionID string) ([]models.MatchLog, error) {
	var logs []models.MatchLog
	if err := repo.db.WithContext(ctx).Where("session_id = ?", sessionID).
		Order("id").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (repo *Sessions) DeleteMatchSession(ctx context.Context, id string) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.MatchLog{}, "session_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.MatchSession{ID: id}).Error
	})
}

// FailUnfinished marks sessions left queued or in_progress by a crash as
// failed so the ledger never shows a phantom active session after boot.
func (repo *Sessions) FailUnfinished(ctx context.Context) error {
	now := time.Now()
	active := []models.SessionStatus{models.SessionQueued, models.SessionInProgress}

	if err := repo.db.WithContext(ctx).Model(&models.ScrapeSession{}).
		Where("status IN ?", active).
		Updates(map[string]any{"status": models.SessionFailed, "completed_at": now}).Error; err != nil {
		return err
	}
	return repo.db.WithContext(ctx).Model(&models.MatchSession{}).
		Where("status IN ?", active).
		Updates(map[string]any{"status": models.SessionFailed, "completed_at": now}).Error
}

// RemoveOldSessions deletes terminal sessions (and their logs) that
// completed before the cutoff. Returns how many sessions were removed.
func (repo *Sessions) RemoveOldSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64

	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var scrapeIDs, matchIDs []string

		if err := tx.Model(&models.ScrapeSession{}).
			Where("completed_at IS NOT NULL AND completed_at < ?", cutoff).
			Pluck("id", &scrapeIDs).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.MatchSession{}).
			Where("completed_at IS NOT NULL AND completed_at < ?", cutoff).
			Pluck("id", &matchIDs).Error; err != nil {
			return err
		}

		if len(scrapeIDs) > 0 {
			if err := tx.Delete(&models.ScrapeLog{}, "session_id IN ?", scrapeIDs).Error; err != nil {
				return err
			}
			res := tx.Delete(&models.ScrapeSession{}, "id IN ?", scrapeIDs)
			if res.Error != nil {
				return res.Error
			}
			removed += res.RowsAffected
		}

		if len(matchIDs) > 0 {
			if err := tx.Delete(&models.MatchLog{}, "session_id IN ?", matchIDs).Error; err != nil {
				return err
			}
			res := tx.Delete(&models.MatchSession{}, "id IN ?", matchIDs)
			if res.Error != nil {
				return res.Error
			}
			removed += res.RowsAffected
		}

		return nil
	})

	return removed, err
}
