package httpadapter

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"log/slog"

	"flashbid/internal/core/port"
)

// AdmissionConfig bounds the bid submission rate before any work is done.
type AdmissionConfig struct {
	// BidderLimit is the max submissions per bidder inside one window.
	BidderLimit int
	// IPLimit is the max submissions per remote address inside one window.
	IPLimit int
	// Window is the sliding window length.
	Window time.Duration
}

// Admission is a sliding-window rate limiter keyed per bidder and per
// remote IP. Both quotas must hold or the request is rejected with 429 and
// a Retry-After hint. Windows live in memory; counts are per instance.
type Admission struct {
	cfg    AdmissionConfig
	logger *slog.Logger
	clock  func() time.Time

	mu      sync.Mutex
	windows map[string][]time.Time
}

// NewAdmission builds the limiter. Zero limits fall back to permissive
// defaults.
func NewAdmission(cfg AdmissionConfig, logger *slog.Logger) *Admission {
	if cfg.BidderLimit <= 0 {
		cfg.BidderLimit = 10
	}
	if cfg.IPLimit <= 0 {
		cfg.IPLimit = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	return &Admission{
		cfg:     cfg,
		logger:  logger,
		clock:   time.Now,
		windows: make(map[string][]time.Time),
	}
}

// Limit is the chi middleware guarding write paths. Requests without a
// bidder header are only throttled by IP; the handler rejects them later.
func (a *Admission) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := a.clock()

		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		}
		if retryAfter, ok := a.admit("ip:"+ip, a.cfg.IPLimit, now); !ok {
			a.reject(w, r, retryAfter)
			return
		}
		if bidder := r.Header.Get(headerBidderID); bidder != "" {
			if retryAfter, ok := a.admit("b:"+bidder, a.cfg.BidderLimit, now); !ok {
				a.reject(w, r, retryAfter)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// admit records the hit and reports whether the key stays inside its
// limit. On rejection it returns how long until the oldest hit expires.
func (a *Admission) admit(key string, limit int, now time.Time) (time.Duration, bool) {
	cutoff := now.Add(-a.cfg.Window)

	a.mu.Lock()
	defer a.mu.Unlock()

	hits := a.windows[key]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= limit {
		a.windows[key] = kept
		retryAfter := kept[0].Sub(cutoff)
		return retryAfter, false
	}
	a.windows[key] = append(kept, now)
	return 0, true
}

// reject answers with the same JSON error body the handlers produce for
// port.ErrRateLimited, plus the Retry-After hint.
func (a *Admission) reject(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	secs := int(retryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	a.logger.Warn("request rate limited",
		slog.String("path", r.URL.Path),
		slog.String("remote", r.RemoteAddr))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	if err := json.NewEncoder(w).Encode(errorBody{Error: port.ErrRateLimited.Error()}); err != nil {
		a.logger.Error("encode response error", slog.Any("error", err))
	}
}

// RunJanitor drops idle windows at the given interval until ctx is
// cancelled. Without it the map grows with every bidder and IP ever seen.
func (a *Admission) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.prune(a.clock())
		}
	}
}

func (a *Admission) prune(now time.Time) {
	cutoff := now.Add(-a.cfg.Window)
	a.mu.Lock()
	for key, hits := range a.windows {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(a.windows, key)
		}
	}
	a.mu.Unlock()
}
