package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/taixiu/internal/application/predictor"
	"github.com/sawpanic/taixiu/internal/domain"
	"github.com/sawpanic/taixiu/internal/persistence"
)

// Engine is what the API needs from the running session.
type Engine interface {
	Predict() predictor.Record
	Learn(ctx context.Context, r domain.Round) (predictor.Settlement, predictor.Record, error)
	History(n int) []domain.Round
	Stats() predictor.Stats
}

// FeedStatus reports the poller's circuit state; nil when no feed is configured.
type FeedStatus func() string

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Handlers manages all HTTP endpoint handlers
type Handlers struct {
	engine  Engine
	ledger  persistence.Ledger
	hub     *Hub
	feed    FeedStatus
	version string
	started time.Time
}

// Option configures Handlers.
type Option func(*Handlers)

// WithLedger adds the persisted summary to /stats.
func WithLedger(l persistence.Ledger) Option {
	return func(h *Handlers) { h.ledger = l }
}

// WithFeedStatus reports the feed circuit on /health.
func WithFeedStatus(f FeedStatus) Option {
	return func(h *Handlers) { h.feed = f }
}

// WithVersion sets the version reported on /health.
func WithVersion(v string) Option {
	return func(h *Handlers) { h.version = v }
}

// NewHandlers creates a new handlers instance. hub may be nil, which disables /ws.
func NewHandlers(engine Engine, hub *Hub, opts ...Option) *Handlers {
	h := &Handlers{
		engine:  engine,
		hub:     hub,
		version: "dev",
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type ctxKey struct{}

// WithRequestID stores the request id on ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or "unknown".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return "unknown"
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: RequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

// NotFound handles 404 responses
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found",
		"The requested endpoint does not exist")
}

// MethodNotAllowed handles 405 responses
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed",
		"The endpoint does not accept "+r.Method)
}

// CloseStream disconnects every websocket subscriber.
func (h *Handlers) CloseStream() {
	if h.hub != nil {
		h.hub.Close()
	}
}
