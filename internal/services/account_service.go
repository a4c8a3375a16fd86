package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/example/coimbatore-discount/internal/domain"
	"github.com/example/coimbatore-discount/internal/models"
	"github.com/example/coimbatore-discount/internal/moderation"
	"github.com/example/coimbatore-discount/internal/utils"
)

var profileFields = newAllowList("username", "shopDetails")

// AccountService owns account records and their role and approval flags.
type AccountService struct {
	accounts AccountStore
	offers   OfferStore
	alerts   AdminAlerter
	logger   *slog.Logger
}

// NewAccountService creates a new AccountService. alerts may be nil.
func NewAccountService(accounts AccountStore, offers OfferStore, alerts AdminAlerter, logger *slog.Logger) *AccountService {
	if alerts == nil {
		alerts = NopAlerter{}
	}
	return &AccountService{
		accounts: accounts,
		offers:   offers,
		alerts:   alerts,
		logger:   logger,
	}
}

// RegisterInput holds the password sign-up fields.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a regular, approved account with a hashed password.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: all fields are required", domain.ErrValidation)
	}

	if _, err := s.accounts.FindByEmail(ctx, in.Email); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := models.NewAccount(in.Username, in.Email, hash, "")
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "account registered", "account_id", account.ID)
	return account, nil
}

// AuthenticateWithPassword checks the password and the approval gate.
func (s *AccountService) AuthenticateWithPassword(ctx context.Context, email, password string) (*models.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if !utils.CheckPassword(account.PasswordHash, password) {
		return nil, domain.ErrInvalidCredential
	}

	if !account.CanLogin() {
		return nil, domain.ErrPendingApproval
	}

	return account, nil
}

// AuthenticateWithExternalIdentity logs in an identity vouched for by an
// external provider, creating a regular account on first sight. The created
// account gets a password nobody knows.
func (s *AccountService) AuthenticateWithExternalIdentity(ctx context.Context, email, nameHint string) (*models.Account, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		account, err = s.createPasswordless(ctx, email, nameHint, "")
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	if !account.CanLogin() {
		return nil, domain.ErrPendingApproval
	}
	return account, nil
}

// RoleOutcome is the result of an OTP-verified entry.
type RoleOutcome struct {
	Account         *models.Account
	Created         bool
	Upgraded        bool
	PendingApproval bool
}

// RequestRoleUpgradeOrCreate is the entry point after a verified OTP. Unknown
// emails get an account for the role hint. A regular account asking for the
// shop-owner role is upgraded and goes back to pending. Anything else is a
// plain login subject to the approval gate.
func (s *AccountService) RequestRoleUpgradeOrCreate(ctx context.Context, email, roleHint string) (*RoleOutcome, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		account, err = s.createPasswordless(ctx, email, "", roleHint)
		if err != nil {
			return nil, err
		}
		out := &RoleOutcome{Account: account, Created: true}
		if account.IsShopOwner {
			out.PendingApproval = true
			s.alertShopPending(ctx, account)
		}
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	if roleHint == models.RoleHintShopOwner && !account.IsShopOwner {
		account.RequestShopOwnership()
		if err := s.save(ctx, account); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "account upgraded to shop owner", "account_id", account.ID)
		s.alertShopPending(ctx, account)
		return &RoleOutcome{Account: account, Upgraded: true, PendingApproval: true}, nil
	}

	if !account.CanLogin() {
		return nil, domain.ErrPendingApproval
	}
	return &RoleOutcome{Account: account}, nil
}

// UpdateProfile applies a self-service edit. Only the display name and the
// shop profile are writable; editing the shop profile marks the account as a
// shop owner whose shop needs verification again.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID uuid.UUID, patch Patch) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if patch.Has("shopDetails") {
		account.ShopDetails = models.ShopDetails{}
	}
	if err := merge(account, patch, profileFields); err != nil {
		return nil, err
	}
	if strings.TrimSpace(account.Username) == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if patch.Has("shopDetails") {
		account.ShopDetailsChanged()
	}

	if err := s.save(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// ApproveShop grants login and verifies the shop. Admin only.
func (s *AccountService) ApproveShop(ctx context.Context, callerIsAdmin bool, accountID uuid.UUID) (*models.Account, error) {
	if !moderation.CanModerate(callerIsAdmin) {
		return nil, domain.ErrForbidden
	}

	if err := s.accounts.ApproveShop(ctx, accountID); err != nil {
		return nil, err
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "shop approved", "account_id", account.ID)
	return account, nil
}

// ListPendingShops returns shop owners still waiting for approval. Admin only.
func (s *AccountService) ListPendingShops(ctx context.Context, callerIsAdmin bool, page Page) ([]models.Account, error) {
	return s.list(ctx, callerIsAdmin, AccountFilter{ShopOwner: boolPtr(true), Approved: boolPtr(false)}, page)
}

// ListApprovedShops returns verified shop owners. Admin only.
func (s *AccountService) ListApprovedShops(ctx context.Context, callerIsAdmin bool, page Page) ([]models.Account, error) {
	return s.list(ctx, callerIsAdmin, AccountFilter{ShopOwner: boolPtr(true), Verified: boolPtr(true)}, page)
}

// ListAccounts returns every account, newest first. Admin only.
func (s *AccountService) ListAccounts(ctx context.Context, callerIsAdmin bool, page Page) ([]models.Account, error) {
	return s.list(ctx, callerIsAdmin, AccountFilter{}, page)
}

func (s *AccountService) list(ctx context.Context, callerIsAdmin bool, filter AccountFilter, page Page) ([]models.Account, error) {
	if !moderation.CanModerate(callerIsAdmin) {
		return nil, domain.ErrForbidden
	}
	filter.Limit, filter.Offset = page.Limit, page.Offset
	return s.accounts.List(ctx, filter)
}

// DeleteAccount removes an account and its saved-offer links. Admin only.
// Deleting an unknown id fails with domain.ErrNotFound.
func (s *AccountService) DeleteAccount(ctx context.Context, callerIsAdmin bool, accountID uuid.UUID) error {
	if !moderation.CanModerate(callerIsAdmin) {
		return domain.ErrForbidden
	}

	deleted, err := s.accounts.Delete(ctx, accountID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}

	s.logger.InfoContext(ctx, "account deleted", "account_id", accountID)
	return nil
}

// CheckAvailability reports whether the email, or else the username, is free.
func (s *AccountService) CheckAvailability(ctx context.Context, email, username string) (bool, error) {
	switch {
	case email != "":
		_, err := s.accounts.FindByEmail(ctx, email)
		if errors.Is(err, domain.ErrNotFound) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		return false, nil
	case username != "":
		exists, err := s.accounts.ExistsByUsername(ctx, username)
		if err != nil {
			return false, err
		}
		return !exists, nil
	default:
		return false, fmt.Errorf("%w: missing field to check", domain.ErrValidation)
	}
}

// MinPasswordLength is the shortest password accepted on reset.
const MinPasswordLength = 6

// RequireAccount returns ErrNotFound unless an account uses email.
func (s *AccountService) RequireAccount(ctx context.Context, email string) error {
	_, err := s.accounts.FindByEmail(ctx, strings.TrimSpace(email))
	return err
}

// ResetPassword replaces the password of the account registered under email.
// The caller must already have proven control of the address.
func (s *AccountService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, MinPasswordLength)
	}

	account, err := s.accounts.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	account.PasswordHash = hash

	if err := s.save(ctx, account); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "password reset", "account_id", account.ID)
	return nil
}

// Profile is an account with its saved offers expanded.
type Profile struct {
	*models.Account
	SavedOffers []models.Offer `json:"savedOffers"`
}

// Me returns the caller's account with saved offers populated. Saved links to
// offers that no longer exist are skipped.
func (s *AccountService) Me(ctx context.Context, accountID uuid.UUID) (*Profile, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	saved := []models.Offer{}
	if len(account.SavedOffers) > 0 {
		saved, err = s.offers.FindByIDs(ctx, account.SavedOffers)
		if err != nil {
			return nil, err
		}
	}

	return &Profile{Account: account, SavedOffers: saved}, nil
}

// Promote makes an operator-chosen account an admin or a verified shop owner,
// creating it with the given password when it does not exist yet.
func (s *AccountService) Promote(ctx context.Context, email, password, role string) (*models.Account, bool, error) {
	if role != "admin" && role != models.RoleHintShopOwner {
		return nil, false, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}

	created := false
	account, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		if password == "" {
			return nil, false, fmt.Errorf("%w: password is required for a new account", domain.ErrValidation)
		}
		hash, hashErr := utils.HashPassword(password)
		if hashErr != nil {
			return nil, false, fmt.Errorf("hash password: %w", hashErr)
		}
		account = models.NewAccount(usernameFromEmail(email), email, hash, "")
		if err := s.accounts.Create(ctx, account); err != nil {
			return nil, false, err
		}
		created = true
	} else if err != nil {
		return nil, false, err
	}

	switch role {
	case "admin":
		account.IsAdmin = true
		account.IsAccountApproved = true
	case models.RoleHintShopOwner:
		account.IsShopOwner = true
		account.ApproveShop()
	}

	if err := s.save(ctx, account); err != nil {
		return nil, false, err
	}
	return account, created, nil
}

func (s *AccountService) createPasswordless(ctx context.Context, email, nameHint, roleHint string) (*models.Account, error) {
	hash, err := utils.UnusablePasswordHash()
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	username := strings.TrimSpace(nameHint)
	if username == "" {
		username = usernameFromEmail(email)
	}

	account := models.NewAccount(username, email, hash, roleHint)
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			// lost a race with a concurrent sign-in for the same email
			return s.accounts.FindByEmail(ctx, email)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "account created", "account_id", account.ID, "role", account.Role())
	return account, nil
}

func (s *AccountService) save(ctx context.Context, account *models.Account) error {
	if err := account.CheckInvariants(); err != nil {
		return err
	}
	return s.accounts.Save(ctx, account)
}

func (s *AccountService) alertShopPending(ctx context.Context, account *models.Account) {
	if err := s.alerts.NotifyShopPending(ctx, account); err != nil {
		s.logger.WarnContext(ctx, "shop pending alert failed", "account_id", account.ID, "error", err)
	}
}

func usernameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
