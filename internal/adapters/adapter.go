package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/jobscout/jobscout/internal/domain/models"
	"github.com/jobscout/jobscout/internal/resilience"
	"github.com/pkg/errors"
)

// RawPosting is one job posting as discovered on a careers board, before
// the differ normalizes it into a stored JobPosting.
type RawPosting struct {
	ExternalID     string
	Title          string
	Description    string
	Format         models.DescriptionFormat
	URL            string
	Location       string
	LocationType   string
	Department     string
	Salary         string
	EmploymentType string
	PostedAt       *time.Time
}

// Adapter turns one company's careers board into normalized postings.
// Each implementation owns its own pagination and rate limiting.
type Adapter interface {
	Platform() models.Platform
	Discover(ctx context.Context, company models.Company) ([]RawPosting, error)
}

// ErrBoardNotFound signals a missing board or an absent board token, as
// opposed to a generic network failure.
var ErrBoardNotFound = resilience.NotFound(errors.New("careers board not found or board token required"))

type Registry struct {
	adapters map[models.Platform]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: map[models.Platform]Adapter{}}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

func (r *Registry) Register(a Adapter) {
	r.adapters[a.Platform()] = a
}

// For resolves the adapter for a company, auto-detecting the platform
// from the careers URL when it is not set explicitly.
func (r *Registry) For(company models.Company) (Adapter, error) {
	platform := company.Platform
	if platform == models.PlatformUnknown {
		platform = DetectPlatform(company.CareersURL)
	}

	adapter, ok := r.adapters[platform]
	if !ok {
		return nil, resilience.Permanent(
			fmt.Errorf("no adapter registered for platform %q (company %q)", platform, company.Name))
	}
	return adapter, nil
}
