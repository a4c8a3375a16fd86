package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coimbatore-discount/internal/events"
	"github.com/example/coimbatore-discount/internal/logging"
	"github.com/example/coimbatore-discount/internal/models"
	"github.com/example/coimbatore-discount/internal/otp"
	"github.com/example/coimbatore-discount/internal/repository/memory"
	"github.com/example/coimbatore-discount/internal/routes"
	"github.com/example/coimbatore-discount/internal/services"
	"github.com/example/coimbatore-discount/internal/utils"
)

type outbox struct {
	mu   sync.Mutex
	sent []string
}

func (o *outbox) Send(_ context.Context, to, _, _ string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, to)
	return nil
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

type harness struct {
	app      *fiber.App
	deps     routes.Deps
	outbox   *outbox
	sessions *utils.SessionIssuer
}

func newHarness(t *testing.T, otpPerMinute int) *harness {
	t.Helper()

	logger := logging.Discard()
	store := memory.New()
	mail := &outbox{}
	sessions := utils.NewSessionIssuer("test-secret", time.Hour)

	deps := routes.Deps{
		Accounts:         services.NewAccountService(store.Accounts(), store.Offers(), nil, logger),
		Offers:           services.NewOfferService(store.Offers(), store.Accounts(), mail, events.NopPublisher{}, nil, logger, "http://localhost:5173"),
		Catalog:          services.NewCatalogService(store.Categories()),
		Images:           services.NewImageService(store.Images(), nil, logger, "http://localhost:5015"),
		OTP:              otp.NewStore(otp.NewMemoryBackend(), mail, logger, time.Minute),
		ResetOTP:         otp.NewStore(otp.NewMemoryBackend(), mail, logger, time.Minute),
		Sessions:         sessions,
		ExposeOTP:        true,
		OTPSendPerMinute: otpPerMinute,
	}

	app := routes.NewApp(logger, false)
	routes.Register(app, deps)

	return &harness{app: app, deps: deps, outbox: mail, sessions: sessions}
}

func (h *harness) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	} else if len(raw) > 0 && raw[0] == '[' {
		var items []any
		require.NoError(t, json.Unmarshal(raw, &items))
		out["items"] = items
	}
	return resp.StatusCode, out
}

func (h *harness) adminToken(t *testing.T) string {
	t.Helper()
	account, _, err := h.deps.Accounts.Promote(context.Background(), "admin@example.com", "adminpass", "admin")
	require.NoError(t, err)
	return h.token(t, account)
}

func (h *harness) token(t *testing.T, account *models.Account) string {
	t.Helper()
	token, err := h.sessions.Issue(account)
	require.NoError(t, err)
	return token
}

func (h *harness) userToken(t *testing.T, email string) (string, string) {
	t.Helper()
	status, _ := h.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": email, "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := h.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]any)
	return body["token"].(string), user["id"].(string)
}

func offerBody(shop string) map[string]any {
	return map[string]any{
		"shopName":      shop,
		"discountValue": "20% OFF",
		"discountType":  "percentage",
		"description":   "Festive sale",
		"area":          "RS Puram",
		"category":      "fashion",
		"address":       "1 Main Road",
		"phone":         "9000000000",
		"whatsapp":      "9000000000",
		"validTill":     "2026-12-31",
		"isApproved":    true,
	}
}

func items(body map[string]any) []any {
	list, _ := body["items"].([]any)
	return list
}

func TestHealth(t *testing.T) {
	h := newHarness(t, 0)

	resp, err := h.app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Coimbatore Deals Backend is Running!", string(raw))
}

func TestShopOwnerSignupNeedsApproval(t *testing.T) {
	h := newHarness(t, 0)
	email := "shop@example.com"

	status, body := h.do(t, http.MethodPost, "/api/auth/otp/send", "", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, status)
	code := body["devOtp"].(string)
	assert.Len(t, code, 6)
	assert.Equal(t, 1, h.outbox.count())

	status, body = h.do(t, http.MethodPost, "/api/auth/otp/verify", "", map[string]string{
		"email": email, "otp": code, "role": "shop-owner",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["pendingApproval"])
	assert.NotContains(t, body, "token")

	status, body = h.do(t, http.MethodPost, "/api/auth/otp/send", "", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, status)
	status, body = h.do(t, http.MethodPost, "/api/auth/otp/verify", "", map[string]string{
		"email": email, "otp": body["devOtp"].(string),
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, true, body["pendingApproval"])

	admin := h.adminToken(t)
	status, body = h.do(t, http.MethodGet, "/api/auth/pending-shops", admin, nil)
	require.Equal(t, http.StatusOK, status)
	pending := items(body)
	require.Len(t, pending, 1)
	shopID := pending[0].(map[string]any)["id"].(string)

	status, _ = h.do(t, http.MethodPut, "/api/auth/approve-shop/"+shopID, admin, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = h.do(t, http.MethodPost, "/api/auth/otp/send", "", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, status)
	status, body = h.do(t, http.MethodPost, "/api/auth/otp/verify", "", map[string]string{
		"email": email, "otp": body["devOtp"].(string),
	})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, true, user["isShopOwner"])
	assert.Equal(t, "shop", user["username"])

	status, body = h.do(t, http.MethodGet, "/api/auth/approved-shops", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, items(body), 1)
}

func TestOTPReplayIsRejected(t *testing.T) {
	h := newHarness(t, 0)

	_, body := h.do(t, http.MethodPost, "/api/auth/otp/send", "", map[string]string{"email": "a@example.com"})
	code := body["devOtp"].(string)

	status, _ := h.do(t, http.MethodPost, "/api/auth/otp/verify", "", map[string]string{"email": "a@example.com", "otp": code})
	require.Equal(t, http.StatusOK, status)

	status, body = h.do(t, http.MethodPost, "/api/auth/otp/verify", "", map[string]string{"email": "a@example.com", "otp": code})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid OTP", body["error"])
}

func TestOTPSendIsRateLimited(t *testing.T) {
	h := newHarness(t, 2)

	for i := 0; i < 2; i++ {
		status, _ := h.do(t, http.MethodPost, "/api/auth/otp/send", "", map[string]string{"email": "a@example.com"})
		require.Equal(t, http.StatusOK, status)
	}
	status, _ := h.do(t, http.MethodPost, "/api/auth/otp/send", "", map[string]string{"email": "a@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t, 0)
	token, _ := h.userToken(t, "user@example.com")

	status, body := h.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "other", "email": "user@example.com", "password": "x",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "user already exists", body["error"])

	status, _ = h.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "user@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = h.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user@example.com", body["email"])
	assert.NotContains(t, body, "password")

	status, body = h.do(t, http.MethodGet, "/api/auth/check?email=user@example.com", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["available"])

	status, body = h.do(t, http.MethodGet, "/api/auth/check?username=nobody", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["available"])

	status, _ = h.do(t, http.MethodGet, "/api/auth/check", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProfileUpdateIgnoresPrivilegeFields(t *testing.T) {
	h := newHarness(t, 0)
	token, _ := h.userToken(t, "user@example.com")

	status, body := h.do(t, http.MethodPut, "/api/auth/profile", token, map[string]any{
		"username": "renamed",
		"isAdmin":  true,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "renamed", body["username"])
	assert.Equal(t, false, body["isAdmin"])
}

func TestAuthenticationFailures(t *testing.T) {
	h := newHarness(t, 0)

	status, body := h.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Access denied. No token provided.", body["error"])

	status, _ = h.do(t, http.MethodGet, "/api/auth/me", "not-a-token", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = h.do(t, http.MethodPost, "/api/offers", "", offerBody("Shop"))
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestOfferModerationFlow(t *testing.T) {
	h := newHarness(t, 0)
	owner, _ := h.userToken(t, "owner@example.com")
	admin := h.adminToken(t)

	status, body := h.do(t, http.MethodPost, "/api/offers", owner, offerBody("Ganga Silks"))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["isApproved"])
	offerID := body["id"].(string)

	status, body = h.do(t, http.MethodGet, "/api/offers", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, items(body))

	status, body = h.do(t, http.MethodGet, "/api/offers/user/my-offers", owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, items(body), 1)

	status, _ = h.do(t, http.MethodGet, "/api/offers/pending", owner, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = h.do(t, http.MethodGet, "/api/offers/pending", admin, nil)
	require.Equal(t, http.StatusOK, status)
	pending := items(body)
	require.Len(t, pending, 1)
	createdBy := pending[0].(map[string]any)["createdBy"].(map[string]any)
	assert.Equal(t, "owner@example.com", createdBy["email"])

	status, _ = h.do(t, http.MethodPut, "/api/offers/"+offerID+"/approve", owner, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = h.do(t, http.MethodPut, "/api/offers/"+offerID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["isApproved"])

	status, body = h.do(t, http.MethodGet, "/api/offers", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, items(body), 1)

	status, body = h.do(t, http.MethodPut, "/api/offers/"+offerID, owner, map[string]any{"description": "Bigger sale"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Bigger sale", body["description"])
	assert.Equal(t, false, body["isApproved"])

	status, body = h.do(t, http.MethodGet, "/api/offers", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, items(body))
}

func TestOfferOwnershipIsEnforced(t *testing.T) {
	h := newHarness(t, 0)
	owner, _ := h.userToken(t, "owner@example.com")
	stranger, _ := h.userToken(t, "stranger@example.com")

	_, body := h.do(t, http.MethodPost, "/api/offers", owner, offerBody("Ganga Silks"))
	offerID := body["id"].(string)

	status, body := h.do(t, http.MethodPut, "/api/offers/"+offerID, stranger, map[string]any{"description": "mine now"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Not authorized to update this offer", body["error"])

	status, _ = h.do(t, http.MethodDelete, "/api/offers/"+offerID, stranger, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = h.do(t, http.MethodDelete, "/api/offers/"+offerID, owner, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = h.do(t, http.MethodDelete, "/api/offers/"+offerID, owner, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Offer deleted", body["message"])

	status, body = h.do(t, http.MethodGet, "/api/offers/"+offerID, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Offer not found", body["error"])
}

func TestCreateOfferRequiresFields(t *testing.T) {
	h := newHarness(t, 0)
	owner, _ := h.userToken(t, "owner@example.com")

	status, _ := h.do(t, http.MethodPost, "/api/offers", owner, map[string]any{"shopName": "Only a name"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLaunchAlerts(t *testing.T) {
	h := newHarness(t, 0)
	owner, _ := h.userToken(t, "owner@example.com")
	stranger, _ := h.userToken(t, "stranger@example.com")

	_, body := h.do(t, http.MethodPost, "/api/offers", owner, offerBody("Ganga Silks"))
	offerID := body["id"].(string)

	status, body := h.do(t, http.MethodPost, "/api/offers/"+offerID+"/send-alert", owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "No subscribers to notify", body["message"])

	for _, email := range []string{"a@example.com", "b@example.com", "a@example.com"} {
		status, body = h.do(t, http.MethodPost, "/api/offers/"+offerID+"/notify", "", map[string]string{"email": email})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Subscribed successfully", body["message"])
	}

	status, _ = h.do(t, http.MethodPost, "/api/offers/"+offerID+"/notify", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(t, http.MethodPost, "/api/offers/"+offerID+"/send-alert", stranger, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = h.do(t, http.MethodPost, "/api/offers/"+offerID+"/send-alert", owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["notifiedCount"])
	assert.Equal(t, 2, h.outbox.count())
}

func TestToggleSave(t *testing.T) {
	h := newHarness(t, 0)
	owner, _ := h.userToken(t, "owner@example.com")
	fan, _ := h.userToken(t, "fan@example.com")

	_, body := h.do(t, http.MethodPost, "/api/offers", owner, offerBody("Ganga Silks"))
	offerID := body["id"].(string)

	status, body := h.do(t, http.MethodPost, "/api/offers/"+offerID+"/save", fan, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["isSaved"])

	status, body = h.do(t, http.MethodGet, "/api/auth/me", fan, nil)
	require.Equal(t, http.StatusOK, status)
	saved := body["savedOffers"].([]any)
	require.Len(t, saved, 1)
	assert.Equal(t, offerID, saved[0].(map[string]any)["id"])

	status, body = h.do(t, http.MethodPost, "/api/offers/"+offerID+"/save", fan, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["isSaved"])
	assert.Equal(t, "Offer removed from saved", body["message"])
}

func TestCategoriesAreAdminManaged(t *testing.T) {
	h := newHarness(t, 0)
	user, _ := h.userToken(t, "user@example.com")
	admin := h.adminToken(t)

	category := map[string]string{"id": "fashion", "name": "Fashion", "icon": "shirt"}

	status, _ := h.do(t, http.MethodPost, "/api/categories", user, category)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := h.do(t, http.MethodPost, "/api/categories", admin, category)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "fashion", body["id"])

	status, _ = h.do(t, http.MethodPost, "/api/categories", admin, category)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = h.do(t, http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, items(body), 1)

	status, _ = h.do(t, http.MethodDelete, "/api/categories/fashion", admin, nil)
	require.Equal(t, http.StatusOK, status)
	status, body = h.do(t, http.MethodDelete, "/api/categories/fashion", admin, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Category deleted", body["message"])
}

func TestAdminUserManagement(t *testing.T) {
	h := newHarness(t, 0)
	user, userID := h.userToken(t, "user@example.com")
	admin := h.adminToken(t)

	status, _ := h.do(t, http.MethodGet, "/api/auth/users", user, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := h.do(t, http.MethodGet, "/api/auth/users", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, items(body), 2)

	status, body = h.do(t, http.MethodGet, "/api/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["totalUsers"])

	status, _ = h.do(t, http.MethodDelete, "/api/auth/users/"+userID, admin, nil)
	require.Equal(t, http.StatusOK, status)
	status, body = h.do(t, http.MethodDelete, "/api/auth/users/"+userID, admin, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "User deleted successfully", body["message"])

	status, _ = h.do(t, http.MethodPut, "/api/auth/approve-shop/"+userID, admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestImageUploadAndDownload(t *testing.T) {
	h := newHarness(t, 0)
	user, _ := h.userToken(t, "user@example.com")
	png := []byte("\x89PNG\r\n\x1a\nfake")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="logo.png"`)
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(png)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+user)
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var uploaded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))
	id := uploaded["id"].(string)
	assert.Equal(t, fmt.Sprintf("http://localhost:5015/api/image/%s", id), uploaded["url"])

	resp, err = h.app.Test(httptest.NewRequest(http.MethodGet, "/api/image/"+id, nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, png, raw)

	status, body := h.do(t, http.MethodGet, "/api/images", "", nil)
	require.Equal(t, http.StatusOK, status)
	list := items(body)
	require.Len(t, list, 1)
	assert.Equal(t, "logo.png", list[0].(map[string]any)["name"])

	status, _ = h.do(t, http.MethodGet, "/api/image/00000000-0000-0000-0000-000000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUploadRequiresFile(t *testing.T) {
	h := newHarness(t, 0)
	user, _ := h.userToken(t, "user@example.com")

	status, body := h.do(t, http.MethodPost, "/api/upload", user, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "No file uploaded", body["error"])
}

func TestPasswordReset(t *testing.T) {
	h := newHarness(t, 0)
	h.userToken(t, "user@example.com")

	status, _ := h.do(t, http.MethodPost, "/api/auth/password/forgot", "", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusNotFound, status)

	status, body := h.do(t, http.MethodPost, "/api/auth/password/forgot", "", map[string]string{"email": "user@example.com"})
	require.Equal(t, http.StatusOK, status)
	code := body["devOtp"].(string)

	status, _ = h.do(t, http.MethodPost, "/api/auth/otp/verify", "", map[string]string{"email": "user@example.com", "otp": code})
	assert.Equal(t, http.StatusBadRequest, status, "reset codes must not log in")

	status, _ = h.do(t, http.MethodPost, "/api/auth/password/reset", "", map[string]string{
		"email": "user@example.com", "code": code, "newPassword": "short",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(t, http.MethodPost, "/api/auth/password/reset", "", map[string]string{
		"email": "user@example.com", "code": code, "newPassword": "brand-new-pass",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = h.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "user@example.com", "password": "brand-new-pass",
	})
	assert.Equal(t, http.StatusOK, status)

	status, _ = h.do(t, http.MethodPost, "/api/auth/password/reset", "", map[string]string{
		"email": "user@example.com", "code": code, "newPassword": "another-pass",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}
