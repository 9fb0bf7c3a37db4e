// Package webhook exposes the HTTP surface: the LINE webhook endpoint plus
// health and metrics endpoints.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/deusflow/linenews/internal/bot"
	"github.com/deusflow/linenews/internal/line"
	"github.com/deusflow/linenews/internal/metrics"
)

// maxBodyBytes caps webhook payload reads. LINE batches at most a few dozen
// events per delivery.
const maxBodyBytes = 1 << 20

type EventHandler interface {
	HandleEvent(ctx context.Context, ev bot.Event)
}

type Server struct {
	secret  string
	handler EventHandler
	mux     *http.ServeMux
}

func NewServer(channelSecret string, h EventHandler) *Server {
	s := &Server{
		secret:  channelSecret,
		handler: h,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("/webhook", s.handleWebhook)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/metrics", s.handleMetrics)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type webhookPayload struct {
	Events []struct {
		Type       string `json:"type"`
		ReplyToken string `json:"replyToken"`
		Source     struct {
			Type    string `json:"type"`
			UserID  string `json:"userId"`
			GroupID string `json:"groupId"`
			RoomID  string `json:"roomId"`
		} `json:"source"`
		Message struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"message"`
	} `json:"events"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	if !line.ValidateSignature(s.secret, body, r.Header.Get("X-Line-Signature")) {
		log.Printf("⚠️ Webhook signature mismatch, rejecting")
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	for _, raw := range payload.Events {
		if raw.Type == "message" && raw.Message.Type != "text" {
			continue
		}
		ev := bot.Event{
			Type:       raw.Type,
			ReplyToken: raw.ReplyToken,
			UserID:     raw.Source.UserID,
			Text:       raw.Message.Text,
		}
		switch raw.Source.Type {
		case "group":
			ev.ContextID = raw.Source.GroupID
			ev.IsGroup = true
		case "room":
			ev.ContextID = raw.Source.RoomID
			ev.IsGroup = true
		default:
			ev.ContextID = raw.Source.UserID
		}
		s.handler.HandleEvent(r.Context(), ev)
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	code := http.StatusOK
	if healthy, _ := stats["is_healthy"].(bool); !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     status,
		"time":       time.Now().Format(time.RFC3339),
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics.Global.GetStats())
}
