package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/coimbatore-discount/internal/domain"
	"github.com/example/coimbatore-discount/internal/models"
	"github.com/example/coimbatore-discount/internal/services"
)

// OfferStore keeps offers.
type OfferStore struct {
	db *gorm.DB
}

func NewOfferStore(db *gorm.DB) *OfferStore {
	return &OfferStore{db: db}
}

func (s *OfferStore) Create(ctx context.Context, offer *models.Offer) error {
	return s.db.WithContext(ctx).Create(offer).Error
}

func (s *OfferStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&offer).Error; err != nil {
		return nil, notFound(err)
	}
	return &offer, nil
}

func (s *OfferStore) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Offer, error) {
	offers := []models.Offer{}
	if len(ids) == 0 {
		return offers, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("created_at DESC").Find(&offers).Error
	return offers, err
}

// Save writes the offer's editable columns. Owner and subscribers are left
// alone; subscribers only change through AddInterestedEmail.
func (s *OfferStore) Save(ctx context.Context, offer *models.Offer) error {
	res := s.db.WithContext(ctx).Model(offer).
		Select("*").
		Omit("ID", "CreatedAt", "CreatedBy", "InterestedEmails").
		Updates(offer)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *OfferStore) SetApproved(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Offer{}).
		Where("id = ?", id).
		Update("is_approved", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *OfferStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("offer_id = ?", id).Delete(&models.SavedOffer{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Offer{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

func (s *OfferStore) List(ctx context.Context, filter services.OfferFilter) ([]models.Offer, error) {
	q := s.db.WithContext(ctx).Model(&models.Offer{})
	if filter.Approved != nil {
		q = q.Where("is_approved = ?", *filter.Approved)
	}
	if filter.CreatedBy != nil {
		q = q.Where("created_by = ?", *filter.CreatedBy)
	}

	switch filter.Order {
	case services.OrderPriority:
		q = q.Order("priority DESC").Order("created_at DESC")
	default:
		q = q.Order("created_at DESC")
	}

	offers := []models.Offer{}
	err := paginate(q, filter.Limit, filter.Offset).Find(&offers).Error
	return offers, err
}

// AddInterestedEmail appends in a single statement so concurrent subscribers
// cannot overwrite each other.
func (s *OfferStore) AddInterestedEmail(ctx context.Context, offerID uuid.UUID, email string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Offer{}).
		Where("id = ? AND NOT (COALESCE(interested_emails, '{}') @> ARRAY[?]::text[])", offerID, email).
		Update("interested_emails", gorm.Expr("array_append(COALESCE(interested_emails, '{}'), ?)", email))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Offer{}).Where("id = ?", offerID).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, domain.ErrNotFound
	}
	return false, nil
}
