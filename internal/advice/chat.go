package advice

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/medicarehealth/practice-platform/internal/observability/metrics"
	"github.com/medicarehealth/practice-platform/pkg/logging"
)

// chatHistoryLimit bounds how many turns are replayed to the model.
const chatHistoryLimit = 20

// ChatHandler runs the interactive scheduling assistant over a
// WebSocket. Each connection keeps its own in-memory transcript; the
// assistant answers synchronously from the LLM chain.
type ChatHandler struct {
	llm     LLMClient
	opts    Options
	logger  *logging.Logger
	metrics *metrics.AdviceMetrics
}

// ChatInbound is what the browser widget sends.
type ChatInbound struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// ChatOutbound is what we send to the widget.
type ChatOutbound struct {
	Type      string `json:"type"` // "message", "typing", "session", "pong", "error"
	Text      string `json:"text,omitempty"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// NewChatHandler creates the scheduling chat handler.
func NewChatHandler(llm LLMClient, opts Options, logger *logging.Logger, m *metrics.AdviceMetrics) *ChatHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 800
	}
	return &ChatHandler{llm: llm, opts: opts, logger: logger, metrics: m}
}

// HandleWebSocket upgrades to WebSocket and handles real-time chat.
func (h *ChatHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.llm == nil {
		http.Error(w, `{"error": "AI advice is not configured"}`, http.StatusServiceUnavailable)
		return
	}
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *ChatHandler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	_ = websocket.JSON.Send(conn, ChatOutbound{Type: "session", SessionID: sessionID})
	h.logger.Info("advice chat opened", "session_id", sessionID)

	var history []ChatMessage
	for {
		var msg ChatInbound
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("advice chat closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, ChatOutbound{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		history = append(history, ChatMessage{Role: ChatRoleUser, Content: msg.Text})
		if len(history) > chatHistoryLimit {
			history = history[len(history)-chatHistoryLimit:]
		}

		_ = websocket.JSON.Send(conn, ChatOutbound{Type: "typing"})

		reply, err := h.complete(r.Context(), history)
		if err != nil {
			h.metrics.ObserveRequest("scheduling_chat", "error")
			h.logger.Error("advice chat completion failed", "session_id", sessionID, "error", err)
			_ = websocket.JSON.Send(conn, ChatOutbound{
				Type: "error",
				Text: "Sorry, something went wrong. Please try again.",
			})
			continue
		}
		h.metrics.ObserveRequest("scheduling_chat", "ok")

		history = append(history, ChatMessage{Role: ChatRoleAssistant, Content: reply})
		_ = websocket.JSON.Send(conn, ChatOutbound{
			Type:      "message",
			Role:      ChatRoleAssistant,
			Text:      reply,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func (h *ChatHandler) complete(ctx context.Context, history []ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := h.llm.Complete(ctx, LLMRequest{
		Model:       h.opts.Model,
		System:      []string{schedulingChatPrompt},
		Messages:    history,
		MaxTokens:   h.opts.MaxTokens,
		Temperature: -1,
	})
	h.metrics.ObserveLatency("scheduling_chat", time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}
