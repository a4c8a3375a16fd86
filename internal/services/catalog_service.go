package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/coimbatore-discount/internal/domain"
	"github.com/example/coimbatore-discount/internal/models"
	"github.com/example/coimbatore-discount/internal/moderation"
)

// CatalogService manages offer categories.
type CatalogService struct {
	categories CategoryStore
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(categories CategoryStore) *CatalogService {
	return &CatalogService{categories: categories}
}

// ListCategories returns all categories.
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

// CreateCategory adds a category. Admin only; id and name are required.
func (s *CatalogService) CreateCategory(ctx context.Context, callerIsAdmin bool, category models.Category) (*models.Category, error) {
	if !moderation.CanModerate(callerIsAdmin) {
		return nil, domain.ErrForbidden
	}

	category.ID = strings.TrimSpace(category.ID)
	category.Name = strings.TrimSpace(category.Name)
	if category.ID == "" || category.Name == "" {
		return nil, fmt.Errorf("%w: id and name are required", domain.ErrValidation)
	}

	if err := s.categories.Create(ctx, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// DeleteCategory removes a category by slug. Admin only.
func (s *CatalogService) DeleteCategory(ctx context.Context, callerIsAdmin bool, id string) error {
	if !moderation.CanModerate(callerIsAdmin) {
		return domain.ErrForbidden
	}

	deleted, err := s.categories.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}
