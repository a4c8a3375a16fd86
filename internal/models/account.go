package models

import (
	"fmt"

	"github.com/google/uuid"
)

// AccountRole is the approval state of an account, derived from its flags.
type AccountRole string

const (
	RoleRegular           AccountRole = "regular"
	RoleShopOwnerPending  AccountRole = "shop-owner-pending"
	RoleShopOwnerVerified AccountRole = "shop-owner-verified"
)

// RoleHintShopOwner is the role value a client sends to ask for a shop account.
const RoleHintShopOwner = "shop-owner"

// ShopDetails is the public profile a shop owner maintains.
type ShopDetails struct {
	ShopName  string `json:"shopName,omitempty"`
	ShopLogo  string `json:"shopLogo,omitempty"`
	ShopImage string `json:"shopImage,omitempty"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	WhatsApp  string `json:"whatsapp,omitempty"`
	MapURL    string `json:"mapUrl,omitempty"`
	Category  string `json:"category,omitempty"`
	Area      string `json:"area,omitempty"`
}

// Account is a registered identity: shopper, shop owner or admin.
type Account struct {
	BaseModel
	Username          string      `gorm:"index;not null" json:"username"`
	Email             string      `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash      string      `json:"-"`
	IsAdmin           bool        `json:"isAdmin"`
	IsShopOwner       bool        `gorm:"index" json:"isShopOwner"`
	ShopDetails       ShopDetails `gorm:"embedded;embeddedPrefix:shop_" json:"shopDetails"`
	IsAccountApproved bool        `json:"isAccountApproved"`
	IsShopVerified    bool        `json:"isShopVerified"`
	SavedOffers       []uuid.UUID `gorm:"-" json:"savedOffers"`
}

// SavedOffer links an account to an offer it bookmarked.
type SavedOffer struct {
	AccountID uuid.UUID `gorm:"type:uuid;primaryKey"`
	OfferID   uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

// NewAccount builds an account for the given role hint. Regular accounts are
// approved immediately; shop owners wait for an admin.
func NewAccount(username, email, passwordHash, roleHint string) *Account {
	a := &Account{
		Username:          username,
		Email:             email,
		PasswordHash:      passwordHash,
		IsAccountApproved: true,
	}
	if roleHint == RoleHintShopOwner {
		a.RequestShopOwnership()
	}
	return a
}

// Role reports the derived approval state.
func (a *Account) Role() AccountRole {
	switch {
	case !a.IsShopOwner:
		return RoleRegular
	case a.IsShopVerified && a.IsAccountApproved:
		return RoleShopOwnerVerified
	default:
		return RoleShopOwnerPending
	}
}

// CanLogin reports whether the approval gate lets the account in.
func (a *Account) CanLogin() bool {
	return a.IsAdmin || a.IsAccountApproved
}

// RequestShopOwnership turns the account into a shop owner waiting for
// approval, even if it was approved as a regular account before.
func (a *Account) RequestShopOwnership() {
	a.IsShopOwner = true
	a.IsAccountApproved = false
	a.IsShopVerified = false
}

// ApproveShop grants login and marks the shop verified in one step.
func (a *Account) ApproveShop() {
	a.IsAccountApproved = true
	a.IsShopVerified = true
}

// ShopDetailsChanged records an edit of the shop profile, which needs a fresh
// verification.
func (a *Account) ShopDetailsChanged() {
	a.IsShopOwner = true
	a.IsShopVerified = false
}

// CheckInvariants returns an error when the flags describe a state no
// transition produces.
func (a *Account) CheckInvariants() error {
	if a.IsShopVerified && !a.IsAccountApproved {
		return fmt.Errorf("account %s: shop verified but account not approved", a.ID)
	}
	return nil
}
