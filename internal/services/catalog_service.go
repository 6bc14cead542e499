package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/cache"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/repositories"
)

const (
	catalogCacheKey = "catalog:structure"
	catalogCacheTTL = time.Hour
)

// CatalogService serves the immutable section/question tree. The full
// structure is cached; assessment-scoped views are filtered per request.
type CatalogService interface {
	GetStructure(ctx context.Context) (*models.CatalogStructure, error)

	// GetStructureForAssessment filters the catalog to the assessment's
	// selected sections; an empty selection means the whole catalog.
	GetStructureForAssessment(ctx context.Context, assessment *models.Assessment) (*models.CatalogStructure, error)
	GetTiers() map[string]models.TierInfo
	InvalidateCache(ctx context.Context) error
}

type catalogService struct {
	repo   repositories.CatalogRepository
	cache  cache.CacheService
	logger *slog.Logger
}

func NewCatalogService(repo repositories.CatalogRepository, cacheService cache.CacheService, logger *slog.Logger) CatalogService {
	return &catalogService{
		repo:   repo,
		cache:  cacheService,
		logger: logger,
	}
}

func (s *catalogService) GetStructure(ctx context.Context) (*models.CatalogStructure, error) {
	if s.cache != nil {
		var cached models.CatalogStructure
		err := s.cache.Get(ctx, catalogCacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Catalog cache read failed", "error", err)
		}
	}

	structure, err := s.repo.GetStructure(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog structure: %w", err)
	}
	if len(structure.Sections) == 0 {
		return nil, ErrCatalogEmpty
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, catalogCacheKey, structure, catalogCacheTTL); err != nil {
			s.logger.Warn("Catalog cache write failed", "error", err)
		}
	}
	return structure, nil
}

func (s *catalogService) GetStructureForAssessment(ctx context.Context, assessment *models.Assessment) (*models.CatalogStructure, error) {
	structure, err := s.GetStructure(ctx)
	if err != nil {
		return nil, err
	}

	if len(assessment.SelectedSectionIDs) == 0 {
		return structure, nil
	}
	filtered := structure.FilterSections(assessment.SelectedSectionIDs)
	if len(filtered.Sections) == 0 {
		return nil, ErrInvalidSectionFilter
	}
	return filtered, nil
}

func (s *catalogService) GetTiers() map[string]models.TierInfo {
	return models.AssessmentTiers
}

func (s *catalogService) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, catalogCacheKey)
}
