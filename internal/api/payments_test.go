package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inx_platform/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// The signature checks run before any persistence access, so these tests
// need no database.
func newWebhookRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := &config.Config{WebhookSecret: secret}
	r.POST("/api/payments/webhook", WebhookHandler(nil, nil, cfg))
	return r
}

func signBody(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	r := newWebhookRouter("whsec")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(`{"paymentId":1}`))

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookRejectsWrongSignature(t *testing.T) {
	r := newWebhookRouter("whsec")
	body := `{"paymentId":1}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(body))
	req.Header.Set("X-Webhook-Signature", signBody("other-secret", body))

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookRejectsTamperedBody(t *testing.T) {
	r := newWebhookRouter("whsec")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(`{"paymentId":2}`))
	req.Header.Set("X-Webhook-Signature", signBody("whsec", `{"paymentId":1}`))

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookRejectsValidSignatureWithBadPayload(t *testing.T) {
	r := newWebhookRouter("whsec")
	body := `{"paymentId":0}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(body))
	req.Header.Set("X-Webhook-Signature", signBody("whsec", body))

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// An empty configured secret must never validate, even when the caller
// signs with an empty secret too.
func TestWebhookRejectsWhenSecretUnconfigured(t *testing.T) {
	r := newWebhookRouter("")
	body := `{"paymentId":1}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(body))
	req.Header.Set("X-Webhook-Signature", signBody("", body))

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
