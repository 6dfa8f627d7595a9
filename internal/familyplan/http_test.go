package familyplan

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/config"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postWebhook(e http.Handler, body string, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(secretTokenHeader, secret)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestWebhookDeliversUpdate(t *testing.T) {
	cfg := &config.Config{WebhookSecret: "s3cret"}
	updates := make(chan tgbotapi.Update, 1)
	e := Server(nil, cfg, updates)

	rec := postWebhook(e, `{"update_id":7,"message":{"text":"Хлеб"}}`, "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case update := <-updates:
		assert.Equal(t, 7, update.UpdateID)
		require.NotNil(t, update.Message)
		assert.Equal(t, "Хлеб", update.Message.Text)
	default:
		t.Fatal("update not delivered to channel")
	}
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	cfg := &config.Config{WebhookSecret: "s3cret"}
	updates := make(chan tgbotapi.Update, 1)
	e := Server(nil, cfg, updates)

	rec := postWebhook(e, `{"update_id":1}`, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postWebhook(e, `{"update_id":1}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Empty(t, updates)
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	cfg := &config.Config{WebhookSecret: ""}
	updates := make(chan tgbotapi.Update, 1)
	e := Server(nil, cfg, updates)

	rec := postWebhook(e, `{"update_id":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, updates)
}

func TestWebhookNotRegisteredWithoutChannel(t *testing.T) {
	cfg := &config.Config{}
	e := Server(nil, cfg, nil)

	rec := postWebhook(e, `{"update_id":1}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
