package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"watopic/internal/models"
	"watopic/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	orch := service.NewOrchestrator(service.OrchestratorDeps{
		Retry:  models.RetryConfig{InitialBackoffMs: 1, MaxBackoffMs: 2, MaxAttempts: 1},
		Logger: logger,
	})

	cfg := &models.Config{}
	cfg.WhatsApp.WebhookSecret = "source-secret"
	cfg.Workspace.WebhookSecret = "workspace-secret"

	return NewServer(cfg, orch, logger)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "uptimeSeconds")
}

func TestSourceWebhookAcceptsSignedEvent(t *testing.T) {
	s := newTestServer(t)

	payload := `{"message":{"messageId":"wa-1","chatJid":"1234567890@c.us","body":"hello"}}`
	r := httptest.NewRequest("POST", "/webhook/whatsapp", strings.NewReader(payload))
	r.Header.Set("X-Webhook-Hmac", sign("source-secret", payload))

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestSourceWebhookRejectsBadSignature(t *testing.T) {
	s := newTestServer(t)

	payload := `{"message":{"messageId":"wa-1","chatJid":"1234567890@c.us","body":"hi"}}`
	r := httptest.NewRequest("POST", "/webhook/whatsapp", strings.NewReader(payload))
	r.Header.Set("X-Webhook-Hmac", sign("wrong-secret", payload))

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSourceWebhookRejectsMalformedJSON(t *testing.T) {
	s := newTestServer(t)

	payload := `{not json`
	r := httptest.NewRequest("POST", "/webhook/whatsapp", strings.NewReader(payload))
	r.Header.Set("X-Webhook-Hmac", sign("source-secret", payload))

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSourceWebhookRejectsInvalidEvent(t *testing.T) {
	s := newTestServer(t)

	payload := `{"message":{"messageId":"","chatJid":"1234567890@c.us"}}`
	r := httptest.NewRequest("POST", "/webhook/whatsapp", strings.NewReader(payload))
	r.Header.Set("X-Webhook-Hmac", sign("source-secret", payload))

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkspaceWebhookAcceptsSignedMessage(t *testing.T) {
	s := newTestServer(t)

	payload := `{"messageId":10,"topicId":20,"senderId":7,"text":"hi"}`
	r := httptest.NewRequest("POST", "/webhook/workspace", strings.NewReader(payload))
	r.Header.Set("X-Signature", sign("workspace-secret", payload))

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestWebhookRejectsWrongMethod(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest("GET", "/webhook/whatsapp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
