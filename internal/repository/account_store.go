package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/coimbatore-discount/internal/domain"
	"github.com/example/coimbatore-discount/internal/models"
	"github.com/example/coimbatore-discount/internal/services"
)

// AccountStore keeps accounts and their saved-offer links.
type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, account *models.Account) error {
	err := s.db.WithContext(ctx).Create(account).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateEmail
	}
	return err
}

func (s *AccountStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, notFound(err)
	}

	saved, err := s.SavedOfferIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	account.SavedOffers = saved
	return &account, nil
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

func (s *AccountStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Account{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// Save writes every column except the identity ones, zero values included.
func (s *AccountStore) Save(ctx context.Context, account *models.Account) error {
	res := s.db.WithContext(ctx).Model(account).
		Select("*").
		Omit("ID", "CreatedAt").
		Updates(account)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateEmail
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *AccountStore) ApproveShop(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_account_approved": true, "is_shop_verified": true})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *AccountStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", id).Delete(&models.SavedOffer{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Account{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

func (s *AccountStore) List(ctx context.Context, filter services.AccountFilter) ([]models.Account, error) {
	q := s.db.WithContext(ctx).Model(&models.Account{})
	if filter.ShopOwner != nil {
		q = q.Where("is_shop_owner = ?", *filter.ShopOwner)
	}
	if filter.Approved != nil {
		q = q.Where("is_account_approved = ?", *filter.Approved)
	}
	if filter.Verified != nil {
		q = q.Where("is_shop_verified = ?", *filter.Verified)
	}

	var accounts []models.Account
	if err := paginate(q.Order("created_at DESC"), filter.Limit, filter.Offset).Find(&accounts).Error; err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return []models.Account{}, nil
	}

	ids := make([]uuid.UUID, len(accounts))
	for i := range accounts {
		ids[i] = accounts[i].ID
	}

	var links []models.SavedOffer
	if err := s.db.WithContext(ctx).Where("account_id IN ?", ids).Find(&links).Error; err != nil {
		return nil, err
	}
	byAccount := make(map[uuid.UUID][]uuid.UUID, len(accounts))
	for _, link := range links {
		byAccount[link.AccountID] = append(byAccount[link.AccountID], link.OfferID)
	}
	for i := range accounts {
		accounts[i].SavedOffers = byAccount[accounts[i].ID]
		if accounts[i].SavedOffers == nil {
			accounts[i].SavedOffers = []uuid.UUID{}
		}
	}
	return accounts, nil
}

func (s *AccountStore) ToggleSavedOffer(ctx context.Context, accountID, offerID uuid.UUID) (bool, error) {
	var saved bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("account_id = ? AND offer_id = ?", accountID, offerID).Delete(&models.SavedOffer{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			saved = false
			return nil
		}

		link := models.SavedOffer{AccountID: accountID, OfferID: offerID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
			return err
		}
		saved = true
		return nil
	})
	return saved, err
}

func (s *AccountStore) SavedOfferIDs(ctx context.Context, accountID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := s.db.WithContext(ctx).Model(&models.SavedOffer{}).
		Where("account_id = ?", accountID).
		Order("offer_id").
		Pluck("offer_id", &ids).Error
	return ids, err
}
