package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// CompetitorLink is a price seen for the same deal elsewhere.
type CompetitorLink struct {
	Site  string  `json:"site"`
	URL   string  `json:"url"`
	Price float64 `json:"price"`
}

// Offer is a single discount listing.
type Offer struct {
	BaseModel
	ShopName         string                              `gorm:"not null" json:"shopName"`
	ShopLogo         string                              `json:"shopLogo"`
	ShopImage        string                              `json:"shopImage"`
	DiscountValue    string                              `gorm:"not null" json:"discountValue"`
	DiscountType     string                              `gorm:"not null" json:"discountType"`
	Description      string                              `gorm:"type:text;not null" json:"description"`
	Area             string                              `gorm:"index" json:"area"`
	Category         string                              `gorm:"index" json:"category"`
	Address          string                              `json:"address"`
	Phone            string                              `json:"phone"`
	WhatsApp         string                              `json:"whatsapp"`
	ValidTill        string                              `json:"validTill"`
	StartsOn         string                              `json:"startsOn,omitempty"`
	MapURL           string                              `json:"mapUrl,omitempty"`
	Terms            pq.StringArray                      `gorm:"type:text[]" json:"terms"`
	IsFeatured       bool                                `json:"isFeatured"`
	IsUpcoming       bool                                `json:"isUpcoming"`
	Priority         int                                 `gorm:"index" json:"priority"`
	MarketPrice      *float64                            `json:"marketPrice,omitempty"`
	CompetitorLinks  datatypes.JSONSlice[CompetitorLink] `gorm:"type:jsonb" json:"competitorLinks"`
	InterestedEmails pq.StringArray                      `gorm:"type:text[]" json:"interestedEmails"`
	CreatedBy        *uuid.UUID                          `gorm:"type:uuid;index" json:"createdBy"`
	IsApproved       bool                                `gorm:"index" json:"isApproved"`
}

// MissingFields lists the required fields that are blank.
func (o *Offer) MissingFields() []string {
	required := []struct {
		name  string
		value string
	}{
		{"shopName", o.ShopName},
		{"discountValue", o.DiscountValue},
		{"discountType", o.DiscountType},
		{"description", o.Description},
		{"area", o.Area},
		{"category", o.Category},
		{"address", o.Address},
		{"phone", o.Phone},
		{"whatsapp", o.WhatsApp},
		{"validTill", o.ValidTill},
	}

	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// OwnedBy reports whether accountID created the offer. Legacy offers have no
// owner and belong to nobody.
func (o *Offer) OwnedBy(accountID uuid.UUID) bool {
	return o.CreatedBy != nil && *o.CreatedBy == accountID
}

// HasSubscriber reports whether email already asked to be notified.
func (o *Offer) HasSubscriber(email string) bool {
	for _, e := range o.InterestedEmails {
		if e == email {
			return true
		}
	}
	return false
}
