package services

import (
	"context"
	"strings"
	"time"

	"github.com/jobscout/jobscout/internal/adapters"
	"github.com/jobscout/jobscout/internal/domain/models"
	"github.com/jobscout/jobscout/internal/metrics"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type diffJobStore interface {
	GetByCompany(ctx context.Context, companyID int) ([]models.JobPosting, error)
	Create(ctx context.Context, job *models.JobPosting) error
	UpdateContent(ctx context.Context, job models.JobPosting) error
	Archive(ctx context.Context, ids []int) error
}

// DiffResult summarizes one company's diff. AddedJobIDs seeds an
// auto-match run.
type DiffResult struct {
	Found       int
	Added       int
	Updated     int
	Unchanged   int
	Filtered    int
	Archived    int
	AddedJobIDs []int
}

// Differ classifies freshly discovered postings against the stored ones:
// added, updated, unchanged, filtered or archived. Running it twice over
// the same input is a no-op the second time.
type Differ struct {
	jobs diffJobStore
}

func NewDiffer(jobs diffJobStore) *Differ {
	return &Differ{jobs: jobs}
}

// Apply persists the classification outcome for one company. Filtered
// postings are counted but never stored; archiving is a soft status flip.
func (d *Differ) Apply(ctx context.Context, company models.Company,
	raw []adapters.RawPosting, settings models.Settings) (DiffResult, error) {

	result := DiffResult{Found: len(raw)}

	existing, err := d.jobs.GetByCompany(ctx, company.ID)
	if err != nil {
		return result, errors.Wrap(err, "failed to load existing postings")
	}

	byExternalID := lo.KeyBy(existing, func(job models.JobPosting) string {
		return job.ExternalID
	})

	titleKeywords := settings.TitleKeywordList()
	locations := settings.LocationList()

	seen := make(map[string]bool, len(raw))

	for _, posting := range raw {
		if posting.ExternalID == "" || seen[posting.ExternalID] {
			continue
		}
		seen[posting.ExternalID] = true

		if !matchesFilters(posting, titleKeywords, locations) {
			result.Filtered++
			continue
		}

		stored, exists := byExternalID[posting.ExternalID]
		if !exists {
			job := toJobPosting(company.ID, posting)
			if err := d.jobs.Create(ctx, &job); err != nil {
				return result, errors.Wrap(err, "failed to create posting")
			}
			result.Added++
			result.AddedJobIDs = append(result.AddedJobIDs, job.ID)
			continue
		}

		incoming := toJobPosting(company.ID, posting)
		incoming.ID = stored.ID

		if stored.ContentHash() == incoming.ContentHash() {
			result.Unchanged++
			continue
		}

		if err := d.jobs.UpdateContent(ctx, incoming); err != nil {
			return result, errors.Wrap(err, "failed to update posting")
		}
		result.Updated++
	}

	var toArchive []int
	for _, job := range existing {
		if job.Status != models.JobStatusArchived && !seen[job.ExternalID] {
			toArchive = append(toArchive, job.ID)
		}
	}

	if err := d.jobs.Archive(ctx, toArchive); err != nil {
		return result, errors.Wrap(err, "failed to archive postings")
	}
	result.Archived = len(toArchive)

	metrics.JobsDiscoveredCounter.WithLabelValues("added").Add(float64(result.Added))
	metrics.JobsDiscoveredCounter.WithLabelValues("updated").Add(float64(result.Updated))
	metrics.JobsDiscoveredCounter.WithLabelValues("filtered").Add(float64(result.Filtered))
	metrics.JobsDiscoveredCounter.WithLabelValues("archived").Add(float64(result.Archived))

	return result, nil
}

func matchesFilters(posting adapters.RawPosting, titleKeywords, locations []string) bool {

	if len(titleKeywords) > 0 {
		title := strings.ToLower(posting.Title)
		matched := lo.SomeBy(titleKeywords, func(keyword string) bool {
			return strings.Contains(title, strings.ToLower(keyword))
		})
		if !matched {
			return false
		}
	}

	if len(locations) > 0 {
		location := strings.ToLower(posting.Location + " " + posting.LocationType)
		matched := lo.SomeBy(locations, func(allowed string) bool {
			return strings.Contains(location, strings.ToLower(allowed))
		})
		if !matched {
			return false
		}
	}

	return true
}

func toJobPosting(companyID int, posting adapters.RawPosting) models.JobPosting {
	return models.JobPosting{
		CompanyID:         companyID,
		ExternalID:        posting.ExternalID,
		Title:             posting.Title,
		Description:       posting.Description,
		DescriptionFormat: posting.Format,
		URL:               posting.URL,
		Location:          posting.Location,
		LocationType:      posting.LocationType,
		Department:        posting.Department,
		Salary:            posting.Salary,
		EmploymentType:    posting.EmploymentType,
		Status:            models.JobStatusNew,
		PostedAt:          posting.PostedAt,
		DiscoveredAt:      time.Now(),
	}
}
