package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/coimbatore-discount/internal/models"
)

// AdminAlerter tells moderators that something waits for their review.
type AdminAlerter interface {
	NotifyShopPending(ctx context.Context, account *models.Account) error
	NotifyOfferSubmitted(ctx context.Context, offer *models.Offer, owner *models.Account) error
}

// TelegramService sends moderation alerts to the admin Telegram chat.
type TelegramService struct {
	botToken    string
	adminChatID string
	apiBase     string
	client      *http.Client
	logger      *slog.Logger
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string, logger *slog.Logger) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		apiBase:     "https://api.telegram.org",
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		s.logger.DebugContext(ctx, "telegram bot token not configured")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WarnContext(ctx, "telegram send failed", "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.WarnContext(ctx, "telegram unexpected status", "status", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		s.logger.DebugContext(ctx, "telegram admin chat not configured")
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// FormatPrice formats price with currency and thousand separators.
func FormatPrice(amount float64, currency string) string {
	if currency == "" {
		currency = "INR"
	}
	intAmount := int64(amount)
	str := fmt.Sprintf("%d", intAmount)

	var result strings.Builder
	length := len(str)
	for i, digit := range str {
		if i > 0 && (length-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}

	return result.String() + " " + currency
}

// NotifyShopPending tells admins a shop owner waits for approval.
func (s *TelegramService) NotifyShopPending(ctx context.Context, account *models.Account) error {
	shopName := account.ShopDetails.ShopName
	if shopName == "" {
		shopName = "-"
	}

	message := fmt.Sprintf(`<b>🏪 NEW SHOP OWNER</b>
<b>👤 User:</b> %s
<b>📧 Email:</b> %s
<b>🏷 Shop:</b> %s
<i>Waiting for approval</i>
━━━━━━━━━━━━━━━━━━`,
		html.EscapeString(account.Username),
		html.EscapeString(account.Email),
		html.EscapeString(shopName),
	)

	return s.SendToAdmin(ctx, strings.TrimSpace(message))
}

// NotifyOfferSubmitted tells admins an offer needs review.
func (s *TelegramService) NotifyOfferSubmitted(ctx context.Context, offer *models.Offer, owner *models.Account) error {
	submittedBy := "-"
	if owner != nil {
		submittedBy = owner.Email
	}

	marketPrice := "-"
	if offer.MarketPrice != nil {
		marketPrice = FormatPrice(*offer.MarketPrice, "INR")
	}

	message := fmt.Sprintf(`<b>🏷 NEW OFFER FOR REVIEW</b>
<b>🏪 Shop:</b> %s
<b>💸 Discount:</b> %s (%s)
<b>📍 Area:</b> %s
<b>💰 Market price:</b> %s
<b>📅 Valid till:</b> %s
<b>👤 Submitted by:</b> %s
━━━━━━━━━━━━━━━━━━`,
		html.EscapeString(offer.ShopName),
		html.EscapeString(offer.DiscountValue),
		html.EscapeString(offer.DiscountType),
		html.EscapeString(offer.Area),
		marketPrice,
		html.EscapeString(offer.ValidTill),
		html.EscapeString(submittedBy),
	)

	return s.SendToAdmin(ctx, strings.TrimSpace(message))
}

// NopAlerter drops every alert.
type NopAlerter struct{}

func (NopAlerter) NotifyShopPending(context.Context, *models.Account) error { return nil }

func (NopAlerter) NotifyOfferSubmitted(context.Context, *models.Offer, *models.Account) error {
	return nil
}
