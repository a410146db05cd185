package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/taixiu/internal/application/predictor"
	"github.com/sawpanic/taixiu/internal/domain"
	"github.com/sawpanic/taixiu/internal/persistence"
)

const (
	defaultHistory = 50
	maxLearnBody   = 64 << 10
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string    `json:"status"`
	Version     string    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	Uptime      string    `json:"uptime"`
	HistorySize int       `json:"history_size"`
	Settled     int       `json:"settled"`
	Feed        string    `json:"feed,omitempty"`
	Subscribers int       `json:"subscribers"`
}

// LearnResponse is the body of POST /learn.
type LearnResponse struct {
	Settlement predictor.Settlement `json:"settlement"`
	Next       predictor.Record     `json:"next"`
}

// HistoryResponse is the body of GET /history.
type HistoryResponse struct {
	Count  int            `json:"count"`
	Rounds []domain.Round `json:"rounds"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Session predictor.Stats            `json:"session"`
	Ledger  *persistence.LedgerSummary `json:"ledger,omitempty"`
}

// Health handles GET /health. An open feed circuit reports "degraded".
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.engine.Stats()
	resp := HealthResponse{
		Status:      "healthy",
		Version:     h.version,
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(h.started).Round(time.Second).String(),
		HistorySize: stats.HistorySize,
		Settled:     stats.Settled,
	}
	if h.feed != nil {
		resp.Feed = h.feed()
		if resp.Feed == "open" {
			resp.Status = "degraded"
		}
	}
	if h.hub != nil {
		resp.Subscribers = h.hub.Clients()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Predict handles GET /predict.
func (h *Handlers) Predict(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Predict())
}

// Learn handles POST /learn with a JSON round.
func (h *Handlers) Learn(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxLearnBody))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "read_failed", err.Error())
		return
	}
	var round domain.Round
	if err := json.Unmarshal(body, &round); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_round", "body must be a JSON round: "+err.Error())
		return
	}
	if round.Result == "" && round.Total == 0 && !round.HasDice() {
		h.writeError(w, r, http.StatusBadRequest, "invalid_round", "round needs a result, a total or three dice")
		return
	}
	if round.Result == "" {
		round = round.Normalize()
		round.Result = domain.FromTotal(round.Total).String()
	}

	st, next, err := h.engine.Learn(r.Context(), round)
	if errors.Is(err, predictor.ErrStaleRound) {
		h.writeError(w, r, http.StatusConflict, "stale_round", err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Str("request_id", RequestID(r.Context())).Msg("Learn failed")
		h.writeError(w, r, http.StatusInternalServerError, "learn_failed", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, LearnResponse{Settlement: st, Next: next})
}

// History handles GET /history?n=.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	n := defaultHistory
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			h.writeError(w, r, http.StatusBadRequest, "invalid_n", "n must be a non-negative integer")
			return
		}
		n = parsed
	}
	rounds := h.engine.History(n)
	h.writeJSON(w, http.StatusOK, HistoryResponse{Count: len(rounds), Rounds: rounds})
}

// Stats handles GET /stats.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Session: h.engine.Stats()}
	if h.ledger != nil {
		summary, err := h.ledger.Summary(r.Context())
		if err != nil {
			log.Warn().Err(err).Msg("Ledger summary unavailable")
		} else {
			resp.Ledger = &summary
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}
