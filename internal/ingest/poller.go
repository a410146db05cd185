// Package ingest polls the external round feed and normalises its payloads.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/taixiu/internal/domain"
	"github.com/sawpanic/taixiu/internal/metrics"
)

const maxBodyBytes = 4 << 20

// Config configures the poller.
type Config struct {
	URL       string
	Interval  time.Duration
	Timeout   time.Duration
	RPS       float64
	Burst     int
	UserAgent string
	Breaker   BreakerConfig
}

// Handler receives rounds newer than the last known id, in id order.
type Handler func(ctx context.Context, rounds []domain.Round) error

// Poller fetches the feed on an interval through a rate limiter and circuit breaker.
type Poller struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.MetricsRegistry
}

// NewPoller validates the feed URL. A nil client gets one with cfg.Timeout.
func NewPoller(cfg Config, client *http.Client) (*Poller, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid source url %q", cfg.URL)
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = u.Host
	}
	return &Poller{
		cfg:     cfg,
		client:  client,
		limiter: newPacer(cfg.RPS, cfg.Burst),
		breaker: newBreaker(cfg.Breaker),
	}, nil
}

// SetMetrics times every poll on m.
func (p *Poller) SetMetrics(m *metrics.MetricsRegistry) {
	p.metrics = m
}

// newPacer spaces requests to the feed. A non-positive rps disables pacing.
func newPacer(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// BreakerState returns the circuit breaker state name.
func (p *Poller) BreakerState() string {
	return p.breaker.State().String()
}

// Fetch performs one request and returns the normalised rounds.
func (p *Poller) Fetch(ctx context.Context) ([]domain.Round, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	out, err := p.breaker.Execute(func() (interface{}, error) {
		return p.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.Round), nil
}

func (p *Poller) fetch(ctx context.Context) ([]domain.Round, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}
	return Normalize(body)
}

// Run polls until ctx is done. since returns the last id already known; only newer
// rounds reach handle.
func (p *Poller) Run(ctx context.Context, since func() int64, handle Handler) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	log.Info().Str("url", p.cfg.URL).Dur("interval", p.cfg.Interval).Msg("Feed poller started")
	for {
		p.poll(ctx, since, handle)
		select {
		case <-ctx.Done():
			log.Info().Msg("Feed poller stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context, since func() int64, handle Handler) {
	result, delivered := "error", 0
	if p.metrics != nil {
		timer := p.metrics.StartPollTimer()
		defer func() { timer.Stop(result, delivered) }()
	}

	rounds, err := p.Fetch(ctx)
	if errors.Is(err, ErrNoRounds) {
		result = "empty"
		return
	}
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Str("breaker", p.BreakerState()).Msg("Feed poll failed")
		}
		return
	}

	last := since()
	fresh := rounds[:0:0]
	for _, r := range rounds {
		if r.ID > last {
			fresh = append(fresh, r)
		}
	}
	if len(fresh) == 0 {
		result = "empty"
		return
	}
	result, delivered = "ok", len(fresh)
	if err := handle(ctx, fresh); err != nil {
		result = "error"
		log.Error().Err(err).Int("rounds", len(fresh)).Msg("Failed to handle polled rounds")
	}
}
