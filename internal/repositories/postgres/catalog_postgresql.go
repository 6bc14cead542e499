package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/repositories"
)

type CatalogPostgreSQL struct {
	db *gorm.DB
}

func NewCatalogPostgreSQL(db *gorm.DB) repositories.CatalogRepository {
	return &CatalogPostgreSQL{db: db}
}

// GetStructure returns the full catalog in display order with questions
// and options preloaded
func (c *CatalogPostgreSQL) GetStructure(ctx context.Context) (*models.CatalogStructure, error) {
	var sections []models.Section
	err := c.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Order("display_order ASC").
		Find(&sections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	structure := &models.CatalogStructure{Sections: sections}
	for i := range sections {
		structure.TotalQuestions += len(sections[i].Questions)
	}
	return structure, nil
}

// GetQuestion returns a single question with its options
func (c *CatalogPostgreSQL) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	var question models.Question
	err := c.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		First(&question, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

// CountQuestions counts all catalog questions
func (c *CatalogPostgreSQL) CountQuestions(ctx context.Context) (int64, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Model(&models.Question{}).
		Count(&count).Error
	return count, err
}

// ReplaceCatalog swaps the whole catalog in one transaction
func (c *CatalogPostgreSQL) ReplaceCatalog(ctx context.Context, sections []models.Section) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Option{}, &models.Question{}, &models.Section{}} {
			if err := tx.Unscoped().Where("1 = 1").Delete(model).Error; err != nil {
				return fmt.Errorf("failed to clear catalog: %w", err)
			}
		}

		for i := range sections {
			if err := tx.Create(&sections[i]).Error; err != nil {
				return fmt.Errorf("failed to insert section %s: %w", sections[i].ID, err)
			}
		}
		return nil
	})
}
