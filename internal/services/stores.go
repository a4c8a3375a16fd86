package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/example/coimbatore-discount/internal/models"
)

// Page bounds a listing. A zero Limit means no bound.
type Page struct {
	Limit  int
	Offset int
}

// AccountFilter narrows an account listing. Nil flags are not filtered on.
type AccountFilter struct {
	ShopOwner *bool
	Approved  *bool
	Verified  *bool
	Limit     int
	Offset    int
}

// AccountStore persists accounts. Lookups fail with domain.ErrNotFound and a
// second account with the same email fails with domain.ErrDuplicateEmail.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	// FindByID also loads the ids of the account's saved offers.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Save(ctx context.Context, account *models.Account) error
	// ApproveShop sets isAccountApproved and isShopVerified in a single update
	// and leaves every other column as stored.
	ApproveShop(ctx context.Context, id uuid.UUID) error
	// Delete removes the account with its saved-offer links.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	// List returns accounts newest first.
	List(ctx context.Context, filter AccountFilter) ([]models.Account, error)
	// ToggleSavedOffer flips the saved link and reports whether it is now saved.
	ToggleSavedOffer(ctx context.Context, accountID, offerID uuid.UUID) (bool, error)
	SavedOfferIDs(ctx context.Context, accountID uuid.UUID) ([]uuid.UUID, error)
}

// OfferOrder selects the sort of an offer listing.
type OfferOrder int

const (
	// OrderNewest sorts by creation time, newest first.
	OrderNewest OfferOrder = iota
	// OrderPriority sorts by priority descending, then newest first.
	OrderPriority
)

// OfferFilter narrows an offer listing.
type OfferFilter struct {
	Approved  *bool
	CreatedBy *uuid.UUID
	Order     OfferOrder
	Limit     int
	Offset    int
}

// OfferStore persists offers.
type OfferStore interface {
	Create(ctx context.Context, offer *models.Offer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Offer, error)
	// Save writes the editable fields. CreatedBy and InterestedEmails keep
	// their stored values; subscribers only change through AddInterestedEmail.
	Save(ctx context.Context, offer *models.Offer) error
	// SetApproved sets isApproved in a single update and leaves every other
	// column as stored.
	SetApproved(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, filter OfferFilter) ([]models.Offer, error)
	// AddInterestedEmail appends email unless it is already subscribed and
	// reports whether it was added.
	AddInterestedEmail(ctx context.Context, offerID uuid.UUID, email string) (bool, error)
}

// CategoryStore persists categories. Creating an existing slug fails with
// domain.ErrValidation.
type CategoryStore interface {
	List(ctx context.Context) ([]models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id string) (bool, error)
}

// ImageStore persists image metadata and, when no blob store is used, bytes.
type ImageStore interface {
	Create(ctx context.Context, image *models.Image) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Image, error)
	// List returns metadata only, newest first.
	List(ctx context.Context) ([]models.Image, error)
}

func boolPtr(v bool) *bool {
	return &v
}
