package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/repositories"
)

type AssessmentPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAssessmentPostgreSQL(db *gorm.DB) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

// Create inserts a new assessment row
func (a *AssessmentPostgreSQL) Create(ctx context.Context, assessment *models.Assessment) error {
	if err := a.db.WithContext(ctx).Create(assessment).Error; err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}
	return nil
}

// GetByID retrieves an assessment by ID
func (a *AssessmentPostgreSQL) GetByID(ctx context.Context, id string) (*models.Assessment, error) {
	var assessment models.Assessment
	err := a.db.WithContext(ctx).
		First(&assessment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

// GetActiveByUser returns the user's in-progress assessment, nil when none
func (a *AssessmentPostgreSQL) GetActiveByUser(ctx context.Context, userID string) (*models.Assessment, error) {
	var assessment models.Assessment
	err := a.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.StatusInProgress).
		Order("started_at DESC").
		First(&assessment).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

// GetLatestByUser returns the user's most recent assessment in any status
func (a *AssessmentPostgreSQL) GetLatestByUser(ctx context.Context, userID string) (*models.Assessment, error) {
	var assessment models.Assessment
	err := a.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		First(&assessment).Error
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

// ListByUser returns the user's assessments with filters applied
func (a *AssessmentPostgreSQL) ListByUser(ctx context.Context, userID string, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	query := a.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("user_id = ?", userID)
	query = a.helpers.ApplyAssessmentFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assessments: %w", err)
	}

	var assessments []*models.Assessment
	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&assessments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list assessments: %w", err)
	}
	return assessments, total, nil
}

// CountByUser counts all of the user's assessments, any status
func (a *AssessmentPostgreSQL) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// UpdateProgress records the server-side percentage and save timestamp
func (a *AssessmentPostgreSQL) UpdateProgress(ctx context.Context, id string, percentage float64, savedAt time.Time) error {
	result := a.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("id = ? AND status = ?", id, models.StatusInProgress).
		Updates(map[string]interface{}{
			"progress_percentage": percentage,
			"last_saved_at":       savedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SaveConsultation records the consultation answer
func (a *AssessmentPostgreSQL) SaveConsultation(ctx context.Context, id string, answer models.ConsultationAnswer) error {
	updates := map[string]interface{}{
		"consultation_interest": answer.Interest,
		"consultation_details":  nil,
	}
	if answer.Details != "" {
		updates["consultation_details"] = answer.Details
	}

	result := a.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to save consultation answer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Complete transitions an in-progress assessment to completed
func (a *AssessmentPostgreSQL) Complete(ctx context.Context, id string, completedAt time.Time) error {
	result := a.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("id = ? AND status = ?", id, models.StatusInProgress).
		Updates(map[string]interface{}{
			"status":       models.StatusCompleted,
			"completed_at": completedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to complete assessment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ExpireOverdue marks in-progress assessments past their deadline as expired
func (a *AssessmentPostgreSQL) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := a.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.StatusInProgress, now).
		Update("status", models.StatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire assessments: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// GetStats aggregates assessment counts and averages
func (a *AssessmentPostgreSQL) GetStats(ctx context.Context) (*repositories.AssessmentStats, error) {
	stats := &repositories.AssessmentStats{}

	type row struct {
		Status models.AssessmentStatus
		Count  int
	}
	var rows []row
	err := a.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate assessment stats: %w", err)
	}
	for _, r := range rows {
		stats.TotalAssessments += r.Count
		switch r.Status {
		case models.StatusCompleted:
			stats.CompletedAssessments = r.Count
		case models.StatusExpired:
			stats.ExpiredAssessments = r.Count
		}
	}

	err = a.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Select("COALESCE(AVG(progress_percentage), 0)").
		Scan(&stats.AverageProgress).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate average progress: %w", err)
	}

	var consultations int64
	err = a.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("consultation_interest = ?", true).
		Count(&consultations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count consultation requests: %w", err)
	}
	stats.ConsultationRequests = int(consultations)

	return stats, nil
}
