package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jobscout/jobscout/internal/domain/models"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	settingsKey = "engine_settings"
	profileKey  = "candidate_profile"

	snapshotCacheKey = "snapshot"
)

// SettingsStore exposes the key-value settings table as a read-only
// snapshot for the engine plus raw save/load for the dashboard. Snapshots
// are cached briefly so pollers and workers don't hit the table per call.
type SettingsStore struct {
	db    *gorm.DB
	cache *gocache.Cache
}

func NewSettingsStore(db *gorm.DB) *SettingsStore {
	return &SettingsStore{
		db:    db,
		cache: gocache.New(30*time.Second, time.Minute),
	}
}

func (s *SettingsStore) Save(ctx context.Context, key string, value []byte) error {
	err := s.db.WithContext(ctx).Save(&models.Setting{Key: key, Value: value}).Error
	if err == nil {
		s.cache.Flush()
	}
	return err
}

func (s *SettingsStore) Load(ctx context.Context, key string) ([]byte, error) {
	setting := &models.Setting{}
	err := s.db.WithContext(ctx).First(setting, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return setting.Value, nil
}

// Snapshot returns the current tunables, defaults for anything unset,
// everything clamped to its allowed range.
func (s *SettingsStore) Snapshot(ctx context.Context) models.Settings {

	if cached, found := s.cache.Get(snapshotCacheKey); found {
		return cached.(models.Settings)
	}

	settings := models.DefaultSettings()

	raw, err := s.Load(ctx, settingsKey)
	if err != nil {
		log.Errorf("failed to load settings, using defaults: %v", err)
	} else if raw != nil {
		if err := json.Unmarshal(raw, &settings); err != nil {
			log.Errorf("failed to decode settings, using defaults: %v", err)
			settings = models.DefaultSettings()
		}
	}

	settings = settings.Clamped()
	s.cache.Set(snapshotCacheKey, settings, gocache.DefaultExpiration)
	return settings
}

func (s *SettingsStore) SaveSettings(ctx context.Context, settings models.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.Save(ctx, settingsKey, raw)
}

func (s *SettingsStore) Profile(ctx context.Context) (models.CandidateProfile, error) {
	var profile models.CandidateProfile

	raw, err := s.Load(ctx, profileKey)
	if err != nil {
		return profile, err
	}
	if raw == nil {
		return profile, nil
	}

	err = json.Unmarshal(raw, &profile)
	return profile, err
}

func (s *SettingsStore) SaveProfile(ctx context.Context, profile models.CandidateProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return s.Save(ctx, profileKey, raw)
}
