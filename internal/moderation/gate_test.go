package moderation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/example/coimbatore-discount/internal/models"
)

func TestCanModerate(t *testing.T) {
	assert.True(t, CanModerate(true))
	assert.False(t, CanModerate(false))
}

func TestCanMutateOffer(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	owned := &models.Offer{CreatedBy: &owner}
	legacy := &models.Offer{}

	tests := []struct {
		name    string
		offer   *models.Offer
		caller  uuid.UUID
		isAdmin bool
		want    bool
	}{
		{"owner", owned, owner, false, true},
		{"stranger", owned, stranger, false, false},
		{"admin on owned offer", owned, stranger, true, true},
		{"legacy offer non-admin", legacy, owner, false, false},
		{"legacy offer admin", legacy, stranger, true, true},
		{"nil caller id", owned, uuid.Nil, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanMutateOffer(tc.offer, tc.caller, tc.isAdmin))
		})
	}
}
