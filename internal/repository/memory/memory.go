// Package memory provides process-local stores for development and tests.
// Records are copied on the way in and out so callers never share state with
// the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/coimbatore-discount/internal/domain"
	"github.com/example/coimbatore-discount/internal/models"
	"github.com/example/coimbatore-discount/internal/services"
)

// Store holds every collection behind one lock, so saved-offer links and
// accounts change together.
type Store struct {
	mu         sync.RWMutex
	seq        int64
	now        func() time.Time
	accounts   map[uuid.UUID]*accountRow
	saved      map[uuid.UUID]map[uuid.UUID]struct{}
	offers     map[uuid.UUID]*offerRow
	categories map[string]models.Category
	images     map[uuid.UUID]models.Image
}

type accountRow struct {
	account models.Account
	seq     int64
}

type offerRow struct {
	offer models.Offer
	seq   int64
}

func New() *Store {
	return &Store{
		now:        time.Now,
		accounts:   make(map[uuid.UUID]*accountRow),
		saved:      make(map[uuid.UUID]map[uuid.UUID]struct{}),
		offers:     make(map[uuid.UUID]*offerRow),
		categories: make(map[string]models.Category),
		images:     make(map[uuid.UUID]models.Image),
	}
}

// WithClock replaces the time source used for timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Accounts returns the account view of the store.
func (s *Store) Accounts() *AccountStore { return &AccountStore{s} }

// Offers returns the offer view of the store.
func (s *Store) Offers() *OfferStore { return &OfferStore{s} }

// Categories returns the category view of the store.
func (s *Store) Categories() *CategoryStore { return &CategoryStore{s} }

// Images returns the image view of the store.
func (s *Store) Images() *ImageStore { return &ImageStore{s} }

func (s *Store) stamp(base *models.BaseModel) {
	now := s.now()
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

var (
	_ services.AccountStore  = (*AccountStore)(nil)
	_ services.OfferStore    = (*OfferStore)(nil)
	_ services.CategoryStore = (*CategoryStore)(nil)
	_ services.ImageStore    = (*ImageStore)(nil)
)

// AccountStore implements services.AccountStore.
type AccountStore struct{ s *Store }

func cloneAccount(a models.Account) models.Account {
	a.SavedOffers = append([]uuid.UUID(nil), a.SavedOffers...)
	return a
}

func (r *AccountStore) Create(_ context.Context, account *models.Account) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.accounts {
		if row.account.Email == account.Email {
			return domain.ErrDuplicateEmail
		}
	}

	s.stamp(&account.BaseModel)
	stored := cloneAccount(*account)
	stored.SavedOffers = nil
	s.accounts[account.ID] = &accountRow{account: stored, seq: s.next()}
	return nil
}

func (r *AccountStore) FindByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneAccount(row.account)
	out.SavedOffers = s.savedIDs(id)
	return &out, nil
}

func (r *AccountStore) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.accounts {
		if row.account.Email == email {
			out := cloneAccount(row.account)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *AccountStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.accounts {
		if row.account.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *AccountStore) Save(_ context.Context, account *models.Account) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.accounts[account.ID]
	if !ok {
		return domain.ErrNotFound
	}
	for id, other := range s.accounts {
		if id != account.ID && other.account.Email == account.Email {
			return domain.ErrDuplicateEmail
		}
	}

	account.UpdatedAt = s.now()
	stored := cloneAccount(*account)
	stored.SavedOffers = nil
	row.account = stored
	return nil
}

func (r *AccountStore) ApproveShop(_ context.Context, id uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	row.account.ApproveShop()
	row.account.UpdatedAt = s.now()
	return nil
}

func (r *AccountStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return false, nil
	}
	delete(s.accounts, id)
	delete(s.saved, id)
	return true, nil
}

func (r *AccountStore) List(_ context.Context, filter services.AccountFilter) ([]models.Account, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]*accountRow, 0, len(s.accounts))
	for _, row := range s.accounts {
		a := row.account
		if !matchBool(filter.ShopOwner, a.IsShopOwner) ||
			!matchBool(filter.Approved, a.IsAccountApproved) ||
			!matchBool(filter.Verified, a.IsShopVerified) {
			continue
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		return newerFirst(rows[i].account.CreatedAt, rows[i].seq, rows[j].account.CreatedAt, rows[j].seq)
	})

	out := make([]models.Account, 0, len(rows))
	for _, row := range window(rows, filter.Limit, filter.Offset) {
		a := cloneAccount(row.account)
		a.SavedOffers = s.savedIDs(a.ID)
		out = append(out, a)
	}
	return out, nil
}

func (r *AccountStore) ToggleSavedOffer(_ context.Context, accountID, offerID uuid.UUID) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return false, domain.ErrNotFound
	}

	links := s.saved[accountID]
	if _, ok := links[offerID]; ok {
		delete(links, offerID)
		return false, nil
	}
	if links == nil {
		links = make(map[uuid.UUID]struct{})
		s.saved[accountID] = links
	}
	links[offerID] = struct{}{}
	return true, nil
}

func (r *AccountStore) SavedOfferIDs(_ context.Context, accountID uuid.UUID) ([]uuid.UUID, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.savedIDs(accountID), nil
}

func (s *Store) savedIDs(accountID uuid.UUID) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.saved[accountID]))
	for id := range s.saved[accountID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// OfferStore implements services.OfferStore.
type OfferStore struct{ s *Store }

func cloneOffer(o models.Offer) models.Offer {
	if o.Terms != nil {
		o.Terms = append([]string{}, o.Terms...)
	}
	if o.InterestedEmails != nil {
		o.InterestedEmails = append([]string{}, o.InterestedEmails...)
	}
	if o.CompetitorLinks != nil {
		o.CompetitorLinks = append(o.CompetitorLinks[:0:0], o.CompetitorLinks...)
	}
	if o.MarketPrice != nil {
		price := *o.MarketPrice
		o.MarketPrice = &price
	}
	if o.CreatedBy != nil {
		owner := *o.CreatedBy
		o.CreatedBy = &owner
	}
	return o
}

func (r *OfferStore) Create(_ context.Context, offer *models.Offer) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&offer.BaseModel)
	s.offers[offer.ID] = &offerRow{offer: cloneOffer(*offer), seq: s.next()}
	return nil
}

func (r *OfferStore) FindByID(_ context.Context, id uuid.UUID) (*models.Offer, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.offers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneOffer(row.offer)
	return &out, nil
}

func (r *OfferStore) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Offer, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Offer, 0, len(ids))
	for _, id := range ids {
		if row, ok := s.offers[id]; ok {
			out = append(out, cloneOffer(row.offer))
		}
	}
	return out, nil
}

func (r *OfferStore) Save(_ context.Context, offer *models.Offer) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.offers[offer.ID]
	if !ok {
		return domain.ErrNotFound
	}
	offer.UpdatedAt = s.now()
	stored := cloneOffer(*offer)
	stored.CreatedBy = row.offer.CreatedBy
	stored.InterestedEmails = row.offer.InterestedEmails
	row.offer = stored
	return nil
}

func (r *OfferStore) SetApproved(_ context.Context, id uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.offers[id]
	if !ok {
		return domain.ErrNotFound
	}
	row.offer.IsApproved = true
	row.offer.UpdatedAt = s.now()
	return nil
}

func (r *OfferStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.offers[id]; !ok {
		return false, nil
	}
	delete(s.offers, id)
	for _, links := range s.saved {
		delete(links, id)
	}
	return true, nil
}

func (r *OfferStore) List(_ context.Context, filter services.OfferFilter) ([]models.Offer, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]*offerRow, 0, len(s.offers))
	for _, row := range s.offers {
		o := row.offer
		if !matchBool(filter.Approved, o.IsApproved) {
			continue
		}
		if filter.CreatedBy != nil && !o.OwnedBy(*filter.CreatedBy) {
			continue
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if filter.Order == services.OrderPriority && a.offer.Priority != b.offer.Priority {
			return a.offer.Priority > b.offer.Priority
		}
		return newerFirst(a.offer.CreatedAt, a.seq, b.offer.CreatedAt, b.seq)
	})

	out := make([]models.Offer, 0, len(rows))
	for _, row := range window(rows, filter.Limit, filter.Offset) {
		out = append(out, cloneOffer(row.offer))
	}
	return out, nil
}

func (r *OfferStore) AddInterestedEmail(_ context.Context, offerID uuid.UUID, email string) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.offers[offerID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if row.offer.HasSubscriber(email) {
		return false, nil
	}
	row.offer.InterestedEmails = append(row.offer.InterestedEmails, email)
	return true, nil
}

// CategoryStore implements services.CategoryStore.
type CategoryStore struct{ s *Store }

func (r *CategoryStore) List(_ context.Context) ([]models.Category, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *CategoryStore) Create(_ context.Context, category *models.Category) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[category.ID]; ok {
		return fmt.Errorf("%w: category %q already exists", domain.ErrValidation, category.ID)
	}
	category.CreatedAt = s.now()
	s.categories[category.ID] = *category
	return nil
}

func (r *CategoryStore) Delete(_ context.Context, id string) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return false, nil
	}
	delete(s.categories, id)
	return true, nil
}

// ImageStore implements services.ImageStore.
type ImageStore struct{ s *Store }

func (r *ImageStore) Create(_ context.Context, image *models.Image) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&image.BaseModel)
	stored := *image
	stored.Data = append([]byte(nil), image.Data...)
	s.images[image.ID] = stored
	return nil
}

func (r *ImageStore) FindByID(_ context.Context, id uuid.UUID) (*models.Image, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	image, ok := s.images[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	image.Data = append([]byte(nil), image.Data...)
	return &image, nil
}

func (r *ImageStore) List(_ context.Context) ([]models.Image, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Image, 0, len(s.images))
	for _, image := range s.images {
		image.Data = nil
		out = append(out, image)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadDate.After(out[j].UploadDate) })
	return out, nil
}

func matchBool(want *bool, got bool) bool {
	return want == nil || *want == got
}

func newerFirst(at time.Time, aseq int64, bt time.Time, bseq int64) bool {
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return aseq > bseq
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
