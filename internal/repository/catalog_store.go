package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/coimbatore-discount/internal/domain"
	"github.com/example/coimbatore-discount/internal/models"
)

// CategoryStore keeps offer categories.
type CategoryStore struct {
	db *gorm.DB
}

func NewCategoryStore(db *gorm.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.db.WithContext(ctx).Order("created_at ASC").Order("id").Find(&categories).Error
	return categories, err
}

func (s *CategoryStore) Create(ctx context.Context, category *models.Category) error {
	err := s.db.WithContext(ctx).Create(category).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: category %q already exists", domain.ErrValidation, category.ID)
	}
	return err
}

func (s *CategoryStore) Delete(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Category{})
	return res.RowsAffected > 0, res.Error
}

// ImageStore keeps image metadata and inline bytes.
type ImageStore struct {
	db *gorm.DB
}

func NewImageStore(db *gorm.DB) *ImageStore {
	return &ImageStore{db: db}
}

func (s *ImageStore) Create(ctx context.Context, image *models.Image) error {
	return s.db.WithContext(ctx).Create(image).Error
}

func (s *ImageStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	var image models.Image
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&image).Error; err != nil {
		return nil, notFound(err)
	}
	return &image, nil
}

func (s *ImageStore) List(ctx context.Context) ([]models.Image, error) {
	images := []models.Image{}
	err := s.db.WithContext(ctx).
		Omit("Data").
		Order("upload_date DESC").
		Find(&images).Error
	return images, err
}
