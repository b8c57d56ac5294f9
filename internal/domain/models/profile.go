package models

import "strings"

// CandidateProfile is what job postings are scored against. It lives in
// the settings store as a single JSON document.
type CandidateProfile struct {
	Summary         string   `json:"summary"`
	Skills          []string `json:"skills"`
	YearsExperience int      `json:"years_experience"`
	Preferences     string   `json:"preferences"`
}

func (p CandidateProfile) Empty() bool {
	return strings.TrimSpace(p.Summary) == "" && len(p.Skills) == 0
}

// Setting is one row of the settings key-value store.
type Setting struct {
	Key   string `gorm:"primaryKey"`
	Value []byte
}
