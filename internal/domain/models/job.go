package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

type JobStatus string

const (
	JobStatusNew        JobStatus = "new"
	JobStatusViewed     JobStatus = "viewed"
	JobStatusInterested JobStatus = "interested"
	JobStatusApplied    JobStatus = "applied"
	JobStatusRejected   JobStatus = "rejected"
	JobStatusArchived   JobStatus = "archived"
)

func ToJobStatus(s string) (JobStatus, error) {
	switch s {
	case string(JobStatusNew), string(JobStatusViewed), string(JobStatusInterested),
		string(JobStatusApplied), string(JobStatusRejected), string(JobStatusArchived):
		return JobStatus(s), nil
	default:
		return "", errors.New("invalid job status")
	}
}

type DescriptionFormat string

const (
	FormatHTML     DescriptionFormat = "html"
	FormatMarkdown DescriptionFormat = "markdown"
	FormatPlain    DescriptionFormat = "plain"
)

type JobPosting struct {
	ID                int
	CompanyID         int    `gorm:"uniqueIndex:idx_company_external"`
	ExternalID        string `gorm:"uniqueIndex:idx_company_external"`
	Title             string
	Description       string
	DescriptionFormat DescriptionFormat
	URL               string
	Location          string
	LocationType      string
	Department        string
	Salary            string
	EmploymentType    string
	Status            JobStatus `gorm:"default:new"`
	MatchScore        *int
	MatchReasons      string
	MatchedSkills     string
	MissingSkills     string
	Recommendations   string
	MatchModel        string
	PostedAt          *time.Time
	DiscoveredAt      time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ContentHash identifies the mutable content of a posting. Postings with
// equal hashes are treated as unchanged by the differ.
func (j *JobPosting) ContentHash() string {
	sum := sha256.Sum256([]byte(strings.Join(
		[]string{j.Title, j.Description, j.Location, j.Salary}, "\x1f")))
	return hex.EncodeToString(sum[:])
}
