package repositories

import (
	"context"
	"time"

	"github.com/jobscout/jobscout/internal/domain/models"
	"gorm.io/gorm"
)

type Jobs struct {
	db *gorm.DB
}

func NewJobsRepository(db *gorm.DB) *Jobs {
	return &Jobs{db: db}
}

func (repo *Jobs) Create(ctx context.Context, job *models.JobPosting) error {
	if job.DiscoveredAt.IsZero() {
		job.DiscoveredAt = time.Now()
	}
	return repo.db.WithContext(ctx).Create(job).Error
}

func (repo *Jobs) GetByID(ctx context.Context, id int) (*models.JobPosting, error) {
	var job models.JobPosting
	if err := repo.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (repo *Jobs) GetByIDs(ctx context.Context, ids []int) ([]models.JobPosting, error) {
	var jobs []models.JobPosting
	if err := repo.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (repo *Jobs) GetByCompany(ctx context.Context, companyID int) ([]models.JobPosting, error) {
	var jobs []models.JobPosting
	if err := repo.db.WithContext(ctx).Where("company_id = ?", companyID).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetUnscored returns non-archived jobs without a match score, optionally
// scoped to one company, in stable id order.
func (repo *Jobs) GetUnscored(ctx context.Context, companyID *int) ([]models.JobPosting, error) {
	query := repo.db.WithContext(ctx).
		Where("match_score IS NULL AND status <> ?", models.JobStatusArchived).
		Order("id")
	if companyID != nil {
		query = query.Where("company_id = ?", *companyID)
	}

	var jobs []models.JobPosting
	if err := query.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// UpdateContent overwrites the mutable fields of a posting discovered
// again with changed content. User-set status and match fields stay.
func (repo *Jobs) UpdateContent(ctx context.Context, job models.JobPosting) error {
	return repo.db.WithContext(ctx).Model(&models.JobPosting{}).
		Where("id = ?", job.ID).
		Select("Title", "Description", "DescriptionFormat", "URL", "Location",
			"LocationType", "Department", "Salary", "EmploymentType", "PostedAt").
		Updates(job).Error
}

func (repo *Jobs) UpdateStatus(ctx context.Context, id int, status models.JobStatus) error {
	return repo.db.WithContext(ctx).Model(&models.JobPosting{}).
		Where("id = ?", id).Update("status", status).Error
}

// Archive soft-removes postings that disappeared from their board.
func (repo *Jobs) Archive(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	return repo.db.WithContext(ctx).Model(&models.JobPosting{}).
		Where("id IN ?", ids).Update("status", models.JobStatusArchived).Error
}

func (repo *Jobs) SaveMatch(ctx context.Context, id int, score int,
	reasons, matchedSkills, missingSkills, recommendations, model string) error {

	return repo.db.WithContext(ctx).Model(&models.JobPosting{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"match_score":     score,
			"match_reasons":   reasons,
			"matched_skills":  matchedSkills,
			"missing_skills":  missingSkills,
			"recommendations": recommendations,
			"match_model":     model,
		}).Error
}

// BulkDelete is the only hard deletion of postings, an explicit user
// action.
func (repo *Jobs) BulkDelete(ctx context.Context, ids []int) (int64, error) {
	res := repo.db.WithContext(ctx).Delete(&models.JobPosting{}, "id IN ?", ids)
	return res.RowsAffected, res.Error
}

func (repo *Jobs) DeleteByCompany(ctx context.Context, companyID int) (int64, error) {
	res := repo.db.WithContext(ctx).Delete(&models.JobPosting{}, "company_id = ?", companyID)
	return res.RowsAffected, res.Error
}
