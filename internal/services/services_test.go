package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/example/coimbatore-discount/internal/events"
	"github.com/example/coimbatore-discount/internal/logging"
	"github.com/example/coimbatore-discount/internal/models"
	"github.com/example/coimbatore-discount/internal/repository/memory"
	"github.com/example/coimbatore-discount/internal/services"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	fail map[string]bool
}

func (n *recordingNotifier) Send(_ context.Context, to, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[to] {
		return errors.New("mailbox unavailable")
	}
	n.sent = append(n.sent, to)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingAlerter struct {
	mu      sync.Mutex
	shops   []string
	offers  []string
	failAll bool
}

func (a *recordingAlerter) NotifyShopPending(_ context.Context, account *models.Account) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shops = append(a.shops, account.Email)
	if a.failAll {
		return errors.New("telegram down")
	}
	return nil
}

func (a *recordingAlerter) NotifyOfferSubmitted(_ context.Context, offer *models.Offer, _ *models.Account) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.offers = append(a.offers, offer.ShopName)
	if a.failAll {
		return errors.New("telegram down")
	}
	return nil
}

type fixture struct {
	store     *memory.Store
	accounts  *services.AccountService
	offers    *services.OfferService
	notifier  *recordingNotifier
	publisher *recordingPublisher
	alerts    *recordingAlerter
	clock     *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	store := memory.New().WithClock(func() time.Time {
		*clock = clock.Add(time.Second)
		return *clock
	})

	notifier := &recordingNotifier{fail: map[string]bool{}}
	publisher := &recordingPublisher{}
	alerts := &recordingAlerter{}
	logger := logging.Discard()

	return &fixture{
		store:     store,
		accounts:  services.NewAccountService(store.Accounts(), store.Offers(), alerts, logger),
		offers:    services.NewOfferService(store.Offers(), store.Accounts(), notifier, publisher, alerts, logger, "http://localhost:5173"),
		notifier:  notifier,
		publisher: publisher,
		alerts:    alerts,
		clock:     clock,
	}
}

func (f *fixture) register(t *testing.T, email string) *models.Account {
	t.Helper()
	account, err := f.accounts.Register(context.Background(), services.RegisterInput{
		Username: email,
		Email:    email,
		Password: "secret123",
	})
	require.NoError(t, err)
	return account
}

func (f *fixture) admin(t *testing.T) *models.Account {
	t.Helper()
	account, _, err := f.accounts.Promote(context.Background(), "admin@example.com", "adminpass", "admin")
	require.NoError(t, err)
	return account
}

func (f *fixture) createOffer(t *testing.T, owner uuid.UUID, overrides map[string]any) *models.Offer {
	t.Helper()
	offer, err := f.offers.Create(context.Background(), owner, offerPatch(t, overrides))
	require.NoError(t, err)
	return offer
}

func offerPatch(t *testing.T, overrides map[string]any) services.Patch {
	t.Helper()
	fields := map[string]any{
		"shopName":      "Kovai Sweets",
		"discountValue": "20%",
		"discountType":  "percentage",
		"description":   "Festive discount on all sweets",
		"area":          "RS Puram",
		"category":      "food",
		"address":       "12 DB Road",
		"phone":         "9876543210",
		"whatsapp":      "9876543210",
		"validTill":     "2026-12-31",
		"terms":         []string{"Dine-in only"},
	}
	for k, v := range overrides {
		fields[k] = v
	}
	return patch(t, fields)
}

func patch(t *testing.T, fields map[string]any) services.Patch {
	t.Helper()
	raw, err := json.Marshal(fields)
	require.NoError(t, err)
	var p services.Patch
	require.NoError(t, json.Unmarshal(raw, &p))
	return p
}
