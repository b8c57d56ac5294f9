package tests

import (
	"context"
	"fmt"
	"sync"

	"github.com/jobscout/jobscout/internal/adapters"
	"github.com/jobscout/jobscout/internal/domain/models"
	"github.com/jobscout/jobscout/internal/services"
)

type mockAdapter struct {
	mu       sync.Mutex
	postings map[int][]adapters.RawPosting
}

func (m *mockAdapter) Platform() models.Platform {
	return models.PlatformGreenhouse
}

func (m *mockAdapter) Discover(ctx context.Context, company models.Company) ([]adapters.RawPosting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.postings[company.ID], nil
}

func (m *mockAdapter) setPostings(companyID int, postings []adapters.RawPosting) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postings[companyID] = postings
}

type mockRegistry struct {
	adapter adapters.Adapter
}

func (m *mockRegistry) For(company models.Company) (adapters.Adapter, error) {
	return m.adapter, nil
}

type mockScorer struct {
	mu     sync.Mutex
	score  int
	errs   map[int]error
	scored []int
}

func (m *mockScorer) ScoreJob(ctx context.Context, job models.JobPosting,
	profile models.CandidateProfile) (*services.MatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.errs[job.ID]; err != nil {
		return nil, err
	}
	m.scored = append(m.scored, job.ID)
	return &services.MatchResult{
		Score:         m.score,
		Reasons:       []string{"profile overlap"},
		MatchedSkills: []string{"Go"},
	}, nil
}

func (m *mockScorer) ScoreJobs(ctx context.Context, jobs []models.JobPosting,
	profile models.CandidateProfile) (map[int]*services.MatchResult, error) {

	results := make(map[int]*services.MatchResult, len(jobs))
	for _, job := range jobs {
		result, err := m.ScoreJob(ctx, job, profile)
		if err != nil {
			return nil, err
		}
		results[job.ID] = result
	}
	return results, nil
}

func (m *mockScorer) ModelName() string { return "mock-model" }

func (m *mockScorer) scoredCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scored)
}

func somePostings(count int) []adapters.RawPosting {
	postings := make([]adapters.RawPosting, count)
	for i := range postings {
		postings[i] = adapters.RawPosting{
			ExternalID:  fmt.Sprintf("posting-%d", i),
			Title:       fmt.Sprintf("Go Developer %d", i),
			Description: "Building backend services in Go",
			Location:    "Remote",
			URL:         fmt.Sprintf("https://example.com/jobs/%d", i),
		}
	}
	return postings
}
