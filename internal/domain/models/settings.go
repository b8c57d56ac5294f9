package models

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// Settings is the read-only tunables snapshot consumed by the
// orchestration engine. Values come from the settings key-value store;
// anything unset falls back to a default and everything is clamped to its
// allowed range before use.
type Settings struct {
	MaxRetries           int           `json:"max_retries"`
	RetryBaseDelay       time.Duration `json:"retry_base_delay"`
	RetryMaxDelay        time.Duration `json:"retry_max_delay"`
	RequestTimeout       time.Duration `json:"request_timeout"`
	Concurrency          int           `json:"concurrency"`
	BreakerThreshold     int           `json:"breaker_threshold"`
	BreakerResetTimeout  time.Duration `json:"breaker_reset_timeout"`
	BulkEnabled          bool          `json:"bulk_enabled"`
	BulkSize             int           `json:"bulk_size"`
	SerializeOperations  bool          `json:"serialize_operations"`
	AutoMatchAfterScrape bool          `json:"auto_match_after_scrape"`
	TitleKeywords        string        `json:"title_keywords"`
	Locations            string        `json:"locations"`
	SessionRetentionDays int           `json:"session_retention_days"`
}

func DefaultSettings() Settings {
	return Settings{
		MaxRetries:           3,
		RetryBaseDelay:       500 * time.Millisecond,
		RetryMaxDelay:        10 * time.Second,
		RequestTimeout:       30 * time.Second,
		Concurrency:          3,
		BreakerThreshold:     5,
		BreakerResetTimeout:  60 * time.Second,
		BulkSize:             5,
		SessionRetentionDays: 30,
	}
}

// Clamped returns a copy with every tunable forced into its allowed range.
func (s Settings) Clamped() Settings {
	s.MaxRetries = clamp(s.MaxRetries, 1, 10)
	s.Concurrency = clamp(s.Concurrency, 1, 10)
	s.BulkSize = clamp(s.BulkSize, 1, 10)
	s.BreakerThreshold = clamp(s.BreakerThreshold, 3, 50)
	s.BreakerResetTimeout = clampDuration(s.BreakerResetTimeout, 10*time.Second, 300*time.Second)
	s.RequestTimeout = clampDuration(s.RequestTimeout, 5*time.Second, 120*time.Second)
	if s.RetryBaseDelay <= 0 {
		s.RetryBaseDelay = 500 * time.Millisecond
	}
	if s.RetryMaxDelay < s.RetryBaseDelay {
		s.RetryMaxDelay = s.RetryBaseDelay
	}
	if s.SessionRetentionDays <= 0 {
		s.SessionRetentionDays = 30
	}
	return s
}

func (s Settings) TitleKeywordList() []string {
	return splitList(s.TitleKeywords)
}

func (s Settings) LocationList() []string {
	return splitList(s.Locations)
}

func splitList(joined string) []string {
	if joined == "" {
		return nil
	}
	return lo.FilterMap(strings.Split(joined, ","), func(item string, _ int) (string, bool) {
		trimmed := strings.TrimSpace(item)
		return trimmed, trimmed != ""
	})
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampDuration(v, min, max time.Duration) time.Duration {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
