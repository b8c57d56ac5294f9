package repositories

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/jobscout/jobscout/internal/domain/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DbContext struct {
	DB *gorm.DB
}

func NewDbContext(connectionString string) (*DbContext, error) {
	db, err := gorm.Open(sqlite.Open(connectionString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	return &DbContext{DB: db}, nil
}

func (c *DbContext) Migrate() error {

	entities := []any{
		models.Company{},
		models.JobPosting{},
		models.ScrapeSession{},
		models.ScrapeLog{},
		models.MatchSession{},
		models.MatchLog{},
		models.Setting{},
	}

	for _, entity := range entities {
		if err := c.DB.AutoMigrate(entity); err != nil {
			return fmt.Errorf("failed to migrate %T entity: %w", entity, err)
		}
	}

	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
