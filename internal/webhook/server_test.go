package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deusflow/linenews/internal/bot"
)

type captureHandler struct {
	events []bot.Event
}

func (h *captureHandler) HandleEvent(ctx context.Context, ev bot.Event) {
	h.events = append(h.events, ev)
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, srv *Server, secret, body string, signed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if signed {
		req.Header.Set("X-Line-Signature", sign(secret, []byte(body)))
	} else {
		req.Header.Set("X-Line-Signature", "invalid")
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestWebhookDispatchesEvents(t *testing.T) {
	captured := &captureHandler{}
	srv := NewServer("secret", captured)

	body := `{"events":[
		{"type":"message","replyToken":"rt-1",
		 "source":{"type":"user","userId":"U1"},
		 "message":{"type":"text","text":"/bot 新聞"}},
		{"type":"message","replyToken":"rt-2",
		 "source":{"type":"group","userId":"U2","groupId":"G1"},
		 "message":{"type":"text","text":"哈囉"}}
	]}`

	w := postWebhook(t, srv, "secret", body, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	if len(captured.events) != 2 {
		t.Fatalf("dispatched %d events, want 2", len(captured.events))
	}

	first := captured.events[0]
	if first.ContextID != "U1" || first.IsGroup || first.Text != "/bot 新聞" {
		t.Errorf("user event mismatch: %+v", first)
	}
	second := captured.events[1]
	if second.ContextID != "G1" || !second.IsGroup || second.UserID != "U2" {
		t.Errorf("group event mismatch: %+v", second)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	captured := &captureHandler{}
	srv := NewServer("secret", captured)

	w := postWebhook(t, srv, "secret", `{"events":[]}`, false)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", w.Code)
	}
	if len(captured.events) != 0 {
		t.Error("events must not be dispatched on signature mismatch")
	}
}

func TestWebhookSkipsNonTextMessages(t *testing.T) {
	captured := &captureHandler{}
	srv := NewServer("secret", captured)

	body := `{"events":[
		{"type":"message","replyToken":"rt-1",
		 "source":{"type":"user","userId":"U1"},
		 "message":{"type":"sticker"}},
		{"type":"follow","replyToken":"rt-2",
		 "source":{"type":"user","userId":"U1"}}
	]}`

	w := postWebhook(t, srv, "secret", body, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	if len(captured.events) != 1 || captured.events[0].Type != "follow" {
		t.Errorf("expected only the follow event, got %+v", captured.events)
	}
}

func TestWebhookRejectsGet(t *testing.T) {
	srv := NewServer("secret", &captureHandler{})
	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status %d, want 405", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer("secret", &captureHandler{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("health response is not JSON: %v", err)
	}
	if _, ok := payload["status"]; !ok {
		t.Error("health response missing status field")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer("secret", &captureHandler{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("metrics response is not JSON: %v", err)
	}
	if _, ok := payload["messages_sent"]; !ok {
		t.Error("metrics response missing counters")
	}
}
