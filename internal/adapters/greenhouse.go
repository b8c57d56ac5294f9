package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jobscout/jobscout/internal/domain/models"
	"github.com/jobscout/jobscout/internal/resilience"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const greenhouseAPIURL = "https://boards-api.greenhouse.io/v1/boards"

type greenhouseJobsResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

type greenhouseJob struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	Content     string `json:"content"`
	UpdatedAt   string `json:"updated_at"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
	Departments []struct {
		Name string `json:"name"`
	} `json:"departments"`
	Metadata []struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	} `json:"metadata"`
}

// Greenhouse discovers postings through the public boards API. The API
// returns the whole board in one response, so there is no pagination.
type Greenhouse struct {
	boardClient
}

func NewGreenhouse() *Greenhouse {
	return &Greenhouse{boardClient: newBoardClient()}
}

func (g *Greenhouse) Platform() models.Platform {
	return models.PlatformGreenhouse
}

func (g *Greenhouse) Discover(ctx context.Context, company models.Company) ([]RawPosting, error) {

	token := BoardToken(company)
	if token == "" {
		return nil, ErrBoardNotFound
	}

	url := fmt.Sprintf("%s/%s/jobs?content=true", greenhouseAPIURL, token)
	body, err := g.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var response greenhouseJobsResponse
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&response); err != nil {
		return nil, resilience.Permanent(errors.Wrap(err, "error decoding greenhouse response"))
	}

	return lo.Map(response.Jobs, func(job greenhouseJob, _ int) RawPosting {
		posting := RawPosting{
			ExternalID:  fmt.Sprintf("%d", job.ID),
			Title:       job.Title,
			Description: job.Content,
			Format:      models.FormatHTML,
			URL:         job.AbsoluteURL,
			Location:    job.Location.Name,
			PostedAt:    parseGreenhouseTime(job.UpdatedAt),
		}

		if len(job.Departments) > 0 {
			posting.Department = job.Departments[0].Name
		}

		for _, meta := range job.Metadata {
			if value, ok := meta.Value.(string); ok && value != "" {
				switch {
				case containsFold(meta.Name, "salary"), containsFold(meta.Name, "compensation"):
					posting.Salary = value
				case containsFold(meta.Name, "employment"):
					posting.EmploymentType = value
				}
			}
		}
		return posting
	}), nil
}

func parseGreenhouseTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &t
}
