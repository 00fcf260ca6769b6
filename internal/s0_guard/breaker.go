package s0_guard

import (
	"fmt"

	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/internal/strategyconfig"
)

// Action is the circuit breaker's verdict
type Action string

const (
	ActionAbort                 Action = "ABORT"
	ActionRefreshFundamentals   Action = "REFRESH_FUNDAMENTALS"
	ActionUseCachedFundamentals Action = "USE_CACHED_FUNDAMENTALS"
)

// Decision is the outcome of one breaker evaluation
type Decision struct {
	Action      Action                        `json:"action"`
	FailureRate float64                       `json:"failure_rate"`
	Attempted   int                           `json:"attempted"`
	Failed      int                           `json:"failed"`
	ByKind      map[contracts.FailureKind]int `json:"by_kind,omitempty"`
}

// Abort reports whether the run must stop
func (d Decision) Abort() bool {
	return d.Action == ActionAbort
}

// RefreshFundamentals reports whether a full fundamentals refresh may run
func (d Decision) RefreshFundamentals() bool {
	return d.Action == ActionRefreshFundamentals
}

// Summary is the one-line alert text for an aborted run
func (d Decision) Summary() string {
	return fmt.Sprintf("%.1f%% failures (%d/%d)", d.FailureRate*100, d.Failed, d.Attempted)
}

// Breaker gates a run on its aggregate fetch failure rate
type Breaker struct {
	maxFailureRate   float64
	fundamentalAbort float64
}

// NewBreaker creates a Breaker from config
func NewBreaker(cfg strategyconfig.Breaker) *Breaker {
	return &Breaker{
		maxFailureRate:   cfg.MaxFailureRate,
		fundamentalAbort: cfg.FundamentalAbort,
	}
}

// Evaluate applies the three-way policy:
// rate > max → abort; rate < fundamental_abort → refresh; otherwise use cache.
// Nothing attempted counts as total failure.
func (b *Breaker) Evaluate(attempted, failed int) Decision {
	d := Decision{Attempted: attempted, Failed: failed}
	if attempted <= 0 {
		d.FailureRate = 1.0
		d.Action = ActionAbort
		return d
	}

	d.FailureRate = float64(failed) / float64(attempted)
	switch {
	case d.FailureRate > b.maxFailureRate:
		d.Action = ActionAbort
	case d.FailureRate < b.fundamentalAbort:
		d.Action = ActionRefreshFundamentals
	default:
		d.Action = ActionUseCachedFundamentals
	}
	return d
}

// EvaluateUniverse evaluates a fetched universe and attaches the failure breakdown
func (b *Breaker) EvaluateUniverse(u *contracts.Universe) Decision {
	d := b.Evaluate(u.Attempted, u.FailedCount())
	d.ByKind = u.FailuresByKind()
	return d
}
