package models

import "time"

type SessionStatus string

const (
	SessionQueued     SessionStatus = "queued"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)

func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

type TriggerSource string

const (
	TriggerManual         TriggerSource = "manual"
	TriggerScheduled      TriggerSource = "scheduled"
	TriggerCompanyRefresh TriggerSource = "company_refresh"
	TriggerAutoScrape     TriggerSource = "auto_scrape"
)

type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogFailed  LogStatus = "failed"
	LogStopped LogStatus = "stopped"
)

type ScrapeSession struct {
	ID                 string `gorm:"primaryKey"`
	Trigger            TriggerSource
	Status             SessionStatus
	CompaniesTotal     int
	CompaniesCompleted int
	JobsFound          int
	JobsAdded          int
	JobsUpdated        int
	JobsFiltered       int
	JobsArchived       int
	StartedAt          time.Time
	CompletedAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type ScrapeLog struct {
	ID           int
	SessionID    string `gorm:"index"`
	CompanyID    int
	CompanyName  string
	Platform     Platform
	Status       LogStatus
	JobsFound    int
	JobsAdded    int
	JobsUpdated  int
	JobsFiltered int
	JobsArchived int
	Error        string
	DurationMs   int64
	StartedAt    time.Time
	CompletedAt  time.Time

	// Mirror of the nested match sub-run when auto-matching was triggered
	// by this scrape. Empty for scrapes without auto-match.
	MatcherStatus        SessionStatus
	MatcherJobsTotal     int
	MatcherJobsCompleted int
	MatcherDurationMs    int64
	MatcherErrorCount    int
}

type MatchSession struct {
	ID              string `gorm:"primaryKey"`
	Trigger         TriggerSource
	CompanyID       *int
	ScrapeSessionID string
	Status          SessionStatus
	JobsTotal       int
	JobsCompleted   int
	JobsSucceeded   int
	JobsFailed      int
	ErrorCount      int
	StartedAt       time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type MatchLog struct {
	ID          int
	SessionID   string `gorm:"index"`
	JobID       int
	JobTitle    string
	CompanyID   int
	CompanyName string
	Status      LogStatus
	Score       *int
	Attempts    int
	ErrorType   string
	Error       string
	DurationMs  int64
	Model       string
	CompletedAt time.Time
}
