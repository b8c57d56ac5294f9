package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jobscout/jobscout/internal/domain/models"
	"github.com/jobscout/jobscout/internal/resilience"
	"github.com/pkg/errors"
)

const (
	leverAPIURL   = "https://api.lever.co/v0/postings"
	leverPageSize = 100
)

type leverPosting struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	HostedURL      string `json:"hostedUrl"`
	CreatedAt      int64  `json:"createdAt"`
	DescriptionRaw string `json:"description"`
	Categories     struct {
		Location   string `json:"location"`
		Team       string `json:"team"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
	WorkplaceType string `json:"workplaceType"`
	Salary        struct {
		Min      int64  `json:"min"`
		Max      int64  `json:"max"`
		Currency string `json:"currency"`
	} `json:"salaryRange"`
}

// Lever discovers postings through the public postings API, paginating
// with skip/limit until a short page.
type Lever struct {
	boardClient
}

func NewLever() *Lever {
	return &Lever{boardClient: newBoardClient()}
}

func (l *Lever) Platform() models.Platform {
	return models.PlatformLever
}

func (l *Lever) Discover(ctx context.Context, company models.Company) ([]RawPosting, error) {

	token := BoardToken(company)
	if token == "" {
		return nil, ErrBoardNotFound
	}

	var postings []RawPosting

	for skip := 0; ; skip += leverPageSize {
		url := fmt.Sprintf("%s/%s?mode=json&skip=%d&limit=%d", leverAPIURL, token, skip, leverPageSize)
		body, err := l.get(ctx, url)
		if err != nil {
			return nil, err
		}

		var page []leverPosting
		if err := json.NewDecoder(bytes.NewReader(body)).Decode(&page); err != nil {
			return nil, resilience.Permanent(errors.Wrap(err, "error decoding lever response"))
		}

		for _, posting := range page {
			postings = append(postings, l.toRawPosting(posting))
		}

		if len(page) < leverPageSize {
			break
		}
	}

	return postings, nil
}

func (l *Lever) toRawPosting(posting leverPosting) RawPosting {
	raw := RawPosting{
		ExternalID:     posting.ID,
		Title:          posting.Text,
		Description:    posting.DescriptionRaw,
		Format:         models.FormatHTML,
		URL:            posting.HostedURL,
		Location:       posting.Categories.Location,
		LocationType:   strings.ToLower(posting.WorkplaceType),
		Department:     posting.Categories.Team,
		EmploymentType: posting.Categories.Commitment,
	}

	if posting.CreatedAt > 0 {
		createdAt := time.UnixMilli(posting.CreatedAt).UTC()
		raw.PostedAt = &createdAt
	}

	if posting.Salary.Max > 0 {
		raw.Salary = fmt.Sprintf("%d-%d %s", posting.Salary.Min, posting.Salary.Max, posting.Salary.Currency)
	}

	return raw
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
