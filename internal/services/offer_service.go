package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/example/coimbatore-discount/internal/domain"
	"github.com/example/coimbatore-discount/internal/events"
	"github.com/example/coimbatore-discount/internal/models"
	"github.com/example/coimbatore-discount/internal/moderation"
)

var (
	offerFields = newAllowList(
		"shopName", "shopLogo", "shopImage",
		"discountValue", "discountType", "description",
		"area", "category", "address", "phone", "whatsapp",
		"validTill", "startsOn", "mapUrl", "terms",
		"isFeatured", "isUpcoming", "priority",
		"marketPrice", "competitorLinks",
	)
	adminOfferFields = offerFields.with("isApproved")
)

// Caller is the authenticated identity behind a request.
type Caller struct {
	ID      uuid.UUID
	IsAdmin bool
}

// OfferService owns offers and their approval state.
type OfferService struct {
	offers      OfferStore
	accounts    AccountStore
	notifier    Notifier
	publisher   events.Publisher
	alerts      AdminAlerter
	logger      *slog.Logger
	frontendURL string
}

// NewOfferService creates a new OfferService. publisher and alerts may be nil.
func NewOfferService(offers OfferStore, accounts AccountStore, notifier Notifier, publisher events.Publisher, alerts AdminAlerter, logger *slog.Logger, frontendURL string) *OfferService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if alerts == nil {
		alerts = NopAlerter{}
	}
	return &OfferService{
		offers:      offers,
		accounts:    accounts,
		notifier:    notifier,
		publisher:   publisher,
		alerts:      alerts,
		logger:      logger,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// Create stores a new offer owned by ownerID. The offer always starts
// unapproved, whatever the client sent.
func (s *OfferService) Create(ctx context.Context, ownerID uuid.UUID, patch Patch) (*models.Offer, error) {
	offer := &models.Offer{}
	if err := merge(offer, patch, offerFields); err != nil {
		return nil, err
	}
	if missing := offer.MissingFields(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrValidation, strings.Join(missing, ", "))
	}

	owner := ownerID
	offer.CreatedBy = &owner
	offer.IsApproved = false
	if offer.Terms == nil {
		offer.Terms = []string{}
	}
	offer.InterestedEmails = []string{}

	if err := s.offers.Create(ctx, offer); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "offer created", "offer_id", offer.ID, "owner_id", ownerID)
	s.publish(ctx, events.OfferSubmitted, offer)
	s.alertSubmitted(ctx, offer, ownerID)
	return offer, nil
}

// Update merges patch into the offer. Only the owner or an admin may edit,
// and any edit by a non-admin sends the offer back to review.
func (s *OfferService) Update(ctx context.Context, caller Caller, offerID uuid.UUID, patch Patch) (*models.Offer, error) {
	offer, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !moderation.CanMutateOffer(offer, caller.ID, caller.IsAdmin) {
		return nil, domain.ErrForbidden
	}

	allowed := offerFields
	if caller.IsAdmin {
		allowed = adminOfferFields
	}
	if err := merge(offer, patch, allowed); err != nil {
		return nil, err
	}
	for _, field := range offer.MissingFields() {
		if patch.Has(field) {
			return nil, fmt.Errorf("%w: %s cannot be blank", domain.ErrValidation, field)
		}
	}

	if !caller.IsAdmin {
		offer.IsApproved = false
	}

	if err := s.offers.Save(ctx, offer); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "offer updated", "offer_id", offer.ID, "by_admin", caller.IsAdmin, "approved", offer.IsApproved)
	return offer, nil
}

// Delete removes the offer under the same ownership rule as Update.
func (s *OfferService) Delete(ctx context.Context, caller Caller, offerID uuid.UUID) error {
	offer, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		return err
	}
	if !moderation.CanMutateOffer(offer, caller.ID, caller.IsAdmin) {
		return domain.ErrForbidden
	}

	if _, err := s.offers.Delete(ctx, offerID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "offer deleted", "offer_id", offerID)
	return nil
}

// Approve makes the offer public. Admin only; no other field changes.
func (s *OfferService) Approve(ctx context.Context, callerIsAdmin bool, offerID uuid.UUID) (*models.Offer, error) {
	if !moderation.CanModerate(callerIsAdmin) {
		return nil, domain.ErrForbidden
	}

	if err := s.offers.SetApproved(ctx, offerID); err != nil {
		return nil, err
	}
	offer, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "offer approved", "offer_id", offer.ID)
	s.publish(ctx, events.OfferApproved, offer)
	return offer, nil
}

// GetByID returns any offer, approved or not.
func (s *OfferService) GetByID(ctx context.Context, offerID uuid.UUID) (*models.Offer, error) {
	return s.offers.FindByID(ctx, offerID)
}

// ListPublic returns approved offers by priority, then newest first.
func (s *OfferService) ListPublic(ctx context.Context, page Page) ([]models.Offer, error) {
	return s.offers.List(ctx, OfferFilter{
		Approved: boolPtr(true),
		Order:    OrderPriority,
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
}

// ListMine returns every offer the account created, newest first.
func (s *OfferService) ListMine(ctx context.Context, accountID uuid.UUID) ([]models.Offer, error) {
	owner := accountID
	return s.offers.List(ctx, OfferFilter{CreatedBy: &owner, Order: OrderNewest})
}

// OwnerSummary is the slice of the owning account shown to moderators.
type OwnerSummary struct {
	ID          uuid.UUID          `json:"id"`
	Email       string             `json:"email"`
	ShopDetails ownerShopReference `json:"shopDetails"`
}

type ownerShopReference struct {
	ShopName string `json:"shopName,omitempty"`
}

// ModeratedOffer is an offer with its owner expanded.
type ModeratedOffer struct {
	models.Offer
	CreatedBy *OwnerSummary `json:"createdBy"`
}

// ListPending returns offers awaiting approval, newest first. Admin only.
func (s *OfferService) ListPending(ctx context.Context, callerIsAdmin bool, page Page) ([]ModeratedOffer, error) {
	return s.listModerated(ctx, callerIsAdmin, false, page)
}

// ListApproved returns approved offers, newest first. Admin only.
func (s *OfferService) ListApproved(ctx context.Context, callerIsAdmin bool, page Page) ([]ModeratedOffer, error) {
	return s.listModerated(ctx, callerIsAdmin, true, page)
}

func (s *OfferService) listModerated(ctx context.Context, callerIsAdmin, approved bool, page Page) ([]ModeratedOffer, error) {
	if !moderation.CanModerate(callerIsAdmin) {
		return nil, domain.ErrForbidden
	}

	offers, err := s.offers.List(ctx, OfferFilter{
		Approved: boolPtr(approved),
		Order:    OrderNewest,
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return nil, err
	}

	owners := make(map[uuid.UUID]*OwnerSummary)
	out := make([]ModeratedOffer, 0, len(offers))
	for _, offer := range offers {
		item := ModeratedOffer{Offer: offer}
		if offer.CreatedBy != nil {
			item.CreatedBy, err = s.ownerSummary(ctx, *offer.CreatedBy, owners)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *OfferService) ownerSummary(ctx context.Context, id uuid.UUID, cache map[uuid.UUID]*OwnerSummary) (*OwnerSummary, error) {
	if summary, ok := cache[id]; ok {
		return summary, nil
	}

	var summary *OwnerSummary
	account, err := s.accounts.FindByID(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// owner was deleted; the offer stays listed without one
	case err != nil:
		return nil, err
	default:
		summary = &OwnerSummary{
			ID:          account.ID,
			Email:       account.Email,
			ShopDetails: ownerShopReference{ShopName: account.ShopDetails.ShopName},
		}
	}

	cache[id] = summary
	return summary, nil
}

// ToggleSave flips whether the account saved the offer and returns the new
// state. The offer itself is not changed.
func (s *OfferService) ToggleSave(ctx context.Context, accountID, offerID uuid.UUID) (bool, error) {
	if _, err := s.accounts.FindByID(ctx, accountID); err != nil {
		return false, err
	}
	if _, err := s.offers.FindByID(ctx, offerID); err != nil {
		return false, err
	}
	return s.accounts.ToggleSavedOffer(ctx, accountID, offerID)
}

// SubscribeForLaunch records email for a launch alert. Subscribing twice is a
// no-op.
func (s *OfferService) SubscribeForLaunch(ctx context.Context, offerID uuid.UUID, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}

	added, err := s.offers.AddInterestedEmail(ctx, offerID, email)
	if err != nil {
		return err
	}
	if added {
		s.logger.InfoContext(ctx, "launch subscription added", "offer_id", offerID)
	}
	return nil
}

// AlertResult counts a launch alert fan-out.
type AlertResult struct {
	Subscribers int
	Notified    int
}

// NotifySubscribers emails every subscriber that the offer is live and
// returns how many sends succeeded. Failed sends are logged and skipped; the
// subscriber list is left untouched. Only the owner or an admin may trigger it.
func (s *OfferService) NotifySubscribers(ctx context.Context, caller Caller, offerID uuid.UUID) (AlertResult, error) {
	offer, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		return AlertResult{}, err
	}
	if !moderation.CanMutateOffer(offer, caller.ID, caller.IsAdmin) {
		return AlertResult{}, domain.ErrForbidden
	}

	result := AlertResult{Subscribers: len(offer.InterestedEmails)}
	if result.Subscribers == 0 {
		return result, nil
	}

	subject := fmt.Sprintf("🚀 IT'S LIVE: %s Offer!", offer.ShopName)
	body := fmt.Sprintf(
		"Great News!\nThe offer you were interested in is now LIVE!\n\n%s @ %s\n%s\n\nGrab the deal: %s/offer/%s",
		offer.DiscountValue, offer.ShopName, offer.Description, s.frontendURL, offer.ID,
	)

	for _, email := range offer.InterestedEmails {
		if err := s.notifier.Send(ctx, email, subject, body); err != nil {
			s.logger.WarnContext(ctx, "launch alert failed", "offer_id", offer.ID, "email", email, "error", err)
			continue
		}
		result.Notified++
	}

	s.logger.InfoContext(ctx, "launch alerts sent", "offer_id", offer.ID, "notified", result.Notified, "subscribers", result.Subscribers)
	return result, nil
}

func (s *OfferService) publish(ctx context.Context, eventType string, offer *models.Offer) {
	evt, err := events.New(eventType, offer.ID, map[string]any{
		"shopName":   offer.ShopName,
		"category":   offer.Category,
		"area":       offer.Area,
		"createdBy":  offer.CreatedBy,
		"isApproved": offer.IsApproved,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, evt)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "event publish failed", "type", eventType, "offer_id", offer.ID, "error", err)
	}
}

func (s *OfferService) alertSubmitted(ctx context.Context, offer *models.Offer, ownerID uuid.UUID) {
	owner, err := s.accounts.FindByID(ctx, ownerID)
	if err != nil {
		owner = nil
	}
	if err := s.alerts.NotifyOfferSubmitted(ctx, offer, owner); err != nil {
		s.logger.WarnContext(ctx, "offer submitted alert failed", "offer_id", offer.ID, "error", err)
	}
}
