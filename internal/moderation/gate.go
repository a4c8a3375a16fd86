// Package moderation holds the authorization predicates shared by the account
// and offer services, so both apply the same admin and ownership rules.
package moderation

import (
	"github.com/google/uuid"

	"github.com/example/coimbatore-discount/internal/models"
)

// CanModerate reports whether the caller may perform admin-only actions.
func CanModerate(callerIsAdmin bool) bool {
	return callerIsAdmin
}

// CanMutateOffer reports whether the caller may update or delete the offer.
// Admins always may; otherwise only the owner, and legacy offers without an
// owner are closed to every non-admin.
func CanMutateOffer(offer *models.Offer, callerID uuid.UUID, callerIsAdmin bool) bool {
	if CanModerate(callerIsAdmin) {
		return true
	}
	if offer == nil || callerID == uuid.Nil {
		return false
	}
	return offer.OwnedBy(callerID)
}
