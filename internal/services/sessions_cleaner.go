package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type sessionCleanupRepository interface {
	RemoveOldSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionsCleaner removes terminal sessions past the retention window
// once a day. Retention is read from settings on every run so changes
// apply without a restart.
type SessionsCleaner struct {
	sessions sessionCleanupRepository
	settings settingsProvider
	cron     *cron.Cron
}

func NewSessionsCleaner(sessions sessionCleanupRepository, settings settingsProvider) (*SessionsCleaner, error) {

	sc := &SessionsCleaner{
		sessions: sessions,
		settings: settings,
		cron:     cron.New(),
	}

	_, err := sc.cron.AddFunc("0 0 * * *", sc.cleanOldSessions)
	if err != nil {
		return nil, err
	}

	sc.cron.Start()
	log.Info("sessions cleaner started")
	return sc, nil
}

func (sc *SessionsCleaner) Stop() {
	sc.cron.Stop()
}

func (sc *SessionsCleaner) cleanOldSessions() {
	retentionDays := sc.settings.Snapshot(context.Background()).SessionRetentionDays
	cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	removed, err := sc.sessions.RemoveOldSessions(context.Background(), cutoff)
	if err != nil {
		log.Errorf("failed to clean old sessions: %v", err)
	} else if removed > 0 {
		log.Infof("removed %v sessions older than %v days", removed, retentionDays)
	}
}
