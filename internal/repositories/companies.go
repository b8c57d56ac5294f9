package repositories

import (
	"context"

	"github.com/jobscout/jobscout/internal/domain/models"
	"gorm.io/gorm"
)

type Companies struct {
	db *gorm.DB
}

func NewCompaniesRepository(db *gorm.DB) *Companies {
	return &Companies{db: db}
}

func (repo *Companies) Add(ctx context.Context, company *models.Company) error {
	return repo.db.WithContext(ctx).Create(company).Error
}

func (repo *Companies) GetByID(ctx context.Context, id int) (*models.Company, error) {
	var company models.Company
	if err := repo.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (repo *Companies) GetAll(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	if err := repo.db.WithContext(ctx).Order("id").Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

// GetActive returns active companies in stable id order, optionally
// narrowed to an id subset. The orchestrator relies on the ordering so
// repeated sessions are comparable.
func (repo *Companies) GetActive(ctx context.Context, ids []int) ([]models.Company, error) {
	query := repo.db.WithContext(ctx).Where("active = ?", true).Order("id")
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	var companies []models.Company
	if err := query.Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

func (repo *Companies) Update(ctx context.Context, company models.Company) error {
	return repo.db.WithContext(ctx).Model(&models.Company{}).
		Where("id = ?", company.ID).
		Select("Name", "CareersURL", "Platform", "BoardToken", "Active").
		Updates(company).Error
}

func (repo *Companies) Remove(ctx context.Context, id int) error {
	return repo.db.WithContext(ctx).Delete(&models.Company{ID: id}).Error
}
