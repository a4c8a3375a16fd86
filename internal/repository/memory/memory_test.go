package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coimbatore-discount/internal/domain"
	"github.com/example/coimbatore-discount/internal/models"
	"github.com/example/coimbatore-discount/internal/services"
)

func TestAccountEmailIsUnique(t *testing.T) {
	accounts := New().Accounts()
	ctx := context.Background()

	require.NoError(t, accounts.Create(ctx, models.NewAccount("a", "a@example.com", "h", "")))
	err := accounts.Create(ctx, models.NewAccount("b", "a@example.com", "h", ""))
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	offers := New().Offers()
	ctx := context.Background()

	offer := &models.Offer{ShopName: "A", Terms: []string{"one"}}
	require.NoError(t, offers.Create(ctx, offer))

	got, err := offers.FindByID(ctx, offer.ID)
	require.NoError(t, err)
	got.ShopName = "changed"
	got.Terms[0] = "changed"

	again, err := offers.FindByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", again.ShopName)
	assert.Equal(t, "one", again.Terms[0])
}

func TestOfferListOrdering(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	store := New().WithClock(func() time.Time { return now })
	offers := store.Offers()
	ctx := context.Background()

	create := func(name string, priority int, approved bool) {
		require.NoError(t, offers.Create(ctx, &models.Offer{ShopName: name, Priority: priority, IsApproved: approved}))
		now = now.Add(time.Minute)
	}
	create("old-low", 0, true)
	create("high", 5, true)
	create("new-low", 0, true)
	create("hidden", 9, false)

	list, err := offers.List(ctx, services.OfferFilter{Approved: boolPtr(true), Order: services.OrderPriority})
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "new-low", "old-low"}, names(list))

	list, err = offers.List(ctx, services.OfferFilter{Order: services.OrderNewest, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"hidden", "new-low"}, names(list))

	list, err = offers.List(ctx, services.OfferFilter{Order: services.OrderNewest, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSavedLinksFollowDeletes(t *testing.T) {
	store := New()
	accounts, offers := store.Accounts(), store.Offers()
	ctx := context.Background()

	account := models.NewAccount("a", "a@example.com", "h", "")
	require.NoError(t, accounts.Create(ctx, account))
	offer := &models.Offer{ShopName: "A"}
	require.NoError(t, offers.Create(ctx, offer))

	saved, err := accounts.ToggleSavedOffer(ctx, account.ID, offer.ID)
	require.NoError(t, err)
	assert.True(t, saved)

	got, err := accounts.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{offer.ID}, got.SavedOffers)

	deleted, err := offers.Delete(ctx, offer.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	ids, err := accounts.SavedOfferIDs(ctx, account.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAddInterestedEmailDedupes(t *testing.T) {
	offers := New().Offers()
	ctx := context.Background()

	offer := &models.Offer{ShopName: "A"}
	require.NoError(t, offers.Create(ctx, offer))

	added, err := offers.AddInterestedEmail(ctx, offer.ID, "x@example.com")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = offers.AddInterestedEmail(ctx, offer.ID, "x@example.com")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = offers.AddInterestedEmail(ctx, uuid.New(), "x@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveKeepsOwnerAndSubscribers(t *testing.T) {
	offers := New().Offers()
	ctx := context.Background()
	owner := uuid.New()

	offer := &models.Offer{ShopName: "A", CreatedBy: &owner}
	require.NoError(t, offers.Create(ctx, offer))

	stale, err := offers.FindByID(ctx, offer.ID)
	require.NoError(t, err)

	added, err := offers.AddInterestedEmail(ctx, offer.ID, "a@example.com")
	require.NoError(t, err)
	require.True(t, added)

	other := uuid.New()
	stale.ShopName = "B"
	stale.CreatedBy = &other
	require.NoError(t, offers.Save(ctx, stale))

	got, err := offers.FindByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", got.ShopName)
	assert.Equal(t, []string{"a@example.com"}, []string(got.InterestedEmails))
	require.NotNil(t, got.CreatedBy)
	assert.Equal(t, owner, *got.CreatedBy)
}

func TestSetApprovedLeavesOtherFields(t *testing.T) {
	offers := New().Offers()
	ctx := context.Background()

	offer := &models.Offer{ShopName: "A", Description: "d", Priority: 3}
	require.NoError(t, offers.Create(ctx, offer))
	require.NoError(t, offers.SetApproved(ctx, offer.ID))

	got, err := offers.FindByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.True(t, got.IsApproved)
	assert.Equal(t, "d", got.Description)
	assert.Equal(t, 3, got.Priority)

	assert.ErrorIs(t, offers.SetApproved(ctx, uuid.New()), domain.ErrNotFound)
}

func TestApproveShopSetsBothFlags(t *testing.T) {
	accounts := New().Accounts()
	ctx := context.Background()

	account := models.NewAccount("shop", "shop@example.com", "h", models.RoleHintShopOwner)
	require.NoError(t, accounts.Create(ctx, account))
	require.NoError(t, accounts.ApproveShop(ctx, account.ID))

	got, err := accounts.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAccountApproved)
	assert.True(t, got.IsShopVerified)
	assert.Equal(t, "shop", got.Username)

	assert.ErrorIs(t, accounts.ApproveShop(ctx, uuid.New()), domain.ErrNotFound)
}

func TestCategoryDuplicateSlug(t *testing.T) {
	categories := New().Categories()
	ctx := context.Background()

	require.NoError(t, categories.Create(ctx, &models.Category{ID: "food", Name: "Food"}))
	assert.ErrorIs(t, categories.Create(ctx, &models.Category{ID: "food", Name: "Again"}), domain.ErrValidation)

	deleted, err := categories.Delete(ctx, "food")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = categories.Delete(ctx, "food")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestImageListOmitsData(t *testing.T) {
	images := New().Images()
	ctx := context.Background()

	image := &models.Image{Name: "a.png", ContentType: "image/png", Data: []byte("x"), UploadDate: time.Now()}
	require.NoError(t, images.Create(ctx, image))

	list, err := images.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Data)

	got, err := images.FindByID(ctx, image.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got.Data)
}

func names(offers []models.Offer) []string {
	out := make([]string, 0, len(offers))
	for _, o := range offers {
		out = append(out, o.ShopName)
	}
	return out
}

func boolPtr(v bool) *bool { return &v }
