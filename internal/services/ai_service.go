package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jobscout/jobscout/internal/domain/models"
	"github.com/jobscout/jobscout/internal/resilience"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type aiClient interface {
	GenerateResponse(ctx context.Context, request string) (string, error)
	ModelName() string
}

// MatchResult is one job's score against the candidate profile.
type MatchResult struct {
	Score           int      `json:"score"`
	Reasons         []string `json:"reasons"`
	MatchedSkills   []string `json:"matched_skills"`
	MissingSkills   []string `json:"missing_skills"`
	Recommendations []string `json:"recommendations"`
}

type bulkMatchResult struct {
	JobID int `json:"job_id"`
	MatchResult
}

// AIService phrases scoring requests and parses the model's JSON replies.
type AIService struct {
	aiClient aiClient
}

func NewAIService(aiClient aiClient) *AIService {
	return &AIService{aiClient: aiClient}
}

func (a *AIService) ModelName() string {
	return a.aiClient.ModelName()
}

func (a *AIService) ScoreJob(ctx context.Context, job models.JobPosting,
	profile models.CandidateProfile) (*MatchResult, error) {

	response, err := a.aiClient.GenerateResponse(ctx, a.scoreRequest(job, profile))
	if err != nil {
		return nil, err
	}

	var result MatchResult
	if err := decodeModelJSON(response, &result); err != nil {
		return nil, err
	}

	if err := validateScore(result.Score); err != nil {
		return nil, err
	}

	log.Debugf("scored job %v: %v", job.ID, result.Score)
	return &result, nil
}

// ScoreJobs scores a batch in one provider call. Jobs the model skipped
// are simply absent from the returned map; the caller decides what a
// missing entry means.
func (a *AIService) ScoreJobs(ctx context.Context, jobs []models.JobPosting,
	profile models.CandidateProfile) (map[int]*MatchResult, error) {

	response, err := a.aiClient.GenerateResponse(ctx, a.bulkScoreRequest(jobs, profile))
	if err != nil {
		return nil, err
	}

	var parsed []bulkMatchResult
	if err := decodeModelJSON(response, &parsed); err != nil {
		return nil, err
	}

	results := make(map[int]*MatchResult, len(parsed))
	for _, item := range parsed {
		if err := validateScore(item.Score); err != nil {
			continue
		}
		result := item.MatchResult
		results[item.JobID] = &result
	}
	return results, nil
}

func (a *AIService) scoreRequest(job models.JobPosting, profile models.CandidateProfile) string {

	var request strings.Builder
	request.WriteString("You evaluate how well a job posting fits a candidate.\n")
	request.WriteString(profileSection(profile))
	request.WriteString(jobSection(job))
	request.WriteString("Respond with a single JSON object and nothing else: " +
		`{"score": <0-100>, "reasons": [...], "matched_skills": [...], "missing_skills": [...], "recommendations": [...]}`)
	return request.String()
}

func (a *AIService) bulkScoreRequest(jobs []models.JobPosting, profile models.CandidateProfile) string {

	var request strings.Builder
	request.WriteString("You evaluate how well job postings fit a candidate.\n")
	request.WriteString(profileSection(profile))
	for _, job := range jobs {
		request.WriteString(jobSection(job))
	}
	request.WriteString("Respond with a single JSON array and nothing else, one object per job: " +
		`[{"job_id": <id>, "score": <0-100>, "reasons": [...], "matched_skills": [...], "missing_skills": [...], "recommendations": [...]}]`)
	return request.String()
}

func profileSection(profile models.CandidateProfile) string {
	section := "Candidate profile: " + profile.Summary
	if len(profile.Skills) > 0 {
		section += " Skills: " + strings.Join(profile.Skills, ", ")
	}
	if profile.YearsExperience > 0 {
		section += fmt.Sprintf(" Years of experience: %d.", profile.YearsExperience)
	}
	if profile.Preferences != "" {
		section += " Preferences: " + profile.Preferences
	}
	return section + "\n"
}

func jobSection(job models.JobPosting) string {
	section := fmt.Sprintf("Job (id %d): %s", job.ID, job.Title)
	if job.Location != "" {
		section += " Location: " + job.Location
	}
	section += " Description: " + job.Description
	return section + "\n"
}

// decodeModelJSON tolerates markdown code fences around the payload,
// which the model adds now and then despite instructions.
func decodeModelJSON(response string, target any) error {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	if err := json.Unmarshal([]byte(strings.TrimSpace(cleaned)), target); err != nil {
		return resilience.Permanent(errors.Wrapf(err, "unexpected model response %q", truncate(response, 200)))
	}
	return nil
}

func validateScore(score int) error {
	if score < 0 || score > 100 {
		return resilience.Permanent(fmt.Errorf("score %d out of range", score))
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
