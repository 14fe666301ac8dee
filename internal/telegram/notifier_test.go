package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bitkub-trade-bot-go/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNotify_SendsMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	n := &Notifier{
		client: resty.New().SetBaseURL(server.URL),
		token:  "test-token",
		chatID: "42",
		logger: zap.NewNop(),
	}

	n.Notify("BUY placed at 980000.00")

	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, "42", gotBody["chat_id"])
	assert.Equal(t, "BUY placed at 980000.00", gotBody["text"])
}

func TestNotify_SwallowsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := &Notifier{
		client: resty.New().SetBaseURL(server.URL),
		token:  "test-token",
		chatID: "42",
		logger: zap.NewNop(),
	}

	// Must not panic or error out; delivery failure is the notifier's problem.
	n.Notify("this will fail")
}

func TestNotify_DisabledWithoutToken(t *testing.T) {
	n := NewNotifier(&config.Telegram{}, zap.NewNop())

	// No server configured at all: a disabled notifier never dials out.
	n.Notify("dropped")
}
