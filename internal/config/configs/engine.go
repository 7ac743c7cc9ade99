package configs

import "time"

// Engine holds the auction engine's tunables. Defaults are sized for a
// single instance handling interactive flash-sale traffic; every knob can
// be overridden per deployment.
type Engine struct {
	// SettleInterval is the settlement scheduler's tick cadence.
	SettleInterval time.Duration `env:"SETTLE_INTERVAL" envDefault:"10s"`
	// SettleTimeout caps how long one campaign's settlement may run.
	SettleTimeout time.Duration `env:"SETTLE_TIMEOUT" envDefault:"30s"`
	// SnapshotInterval is how often ranking snapshots are pushed to
	// WebSocket subscribers.
	SnapshotInterval time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"2s"`

	// LockTTL bounds how long a crashed holder can keep a product lease.
	LockTTL time.Duration `env:"LOCK_TTL" envDefault:"2s"`
	// ReserveAttempts is how many times a unit reservation retries after
	// transient contention before giving up.
	ReserveAttempts int `env:"RESERVE_ATTEMPTS" envDefault:"3"`
	// ReserveBackoff is the base delay between reservation retries. The
	// delay grows linearly with the attempt number.
	ReserveBackoff time.Duration `env:"RESERVE_BACKOFF" envDefault:"50ms"`

	// BidderRateLimit caps submissions per bidder inside RateWindow.
	BidderRateLimit int `env:"BIDDER_RATE_LIMIT" envDefault:"10"`
	// IPRateLimit caps submissions per remote address inside RateWindow.
	IPRateLimit int `env:"IP_RATE_LIMIT" envDefault:"100"`
	// RateWindow is the sliding-window length for both admission limits.
	RateWindow time.Duration `env:"RATE_WINDOW" envDefault:"1s"`
}
