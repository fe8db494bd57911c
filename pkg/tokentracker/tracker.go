// Package tokentracker implements C1: per-agent cumulative token-usage
// counters, threshold classification (OK/WARNING/CRITICAL), and exhaustion
// detection. A Tracker does not itself decide to terminate an agent; it
// only exposes status so the lifecycle manager can act on it.
package tokentracker

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Policy configures the limit and threshold ratios used to classify usage.
// The zero value is invalid; use NewTracker or DefaultPolicy.
type Policy struct {
	Limit             int
	WarningThreshold  float64 // e.g. 0.75
	CriticalThreshold float64 // e.g. 0.90
}

// DefaultPolicy matches spec §3's stated defaults.
func DefaultPolicy() Policy {
	return Policy{Limit: 200000, WarningThreshold: 0.75, CriticalThreshold: 0.90}
}

// Tracker accumulates TokenUsage records for a single agent under a mutex,
// deriving threshold status on every read rather than polling in the
// background (spec §9: "do not implement a polling loop").
type Tracker struct {
	mu      sync.Mutex
	policy  Policy
	history []Usage

	total       int
	input       int
	output      int
	cacheRead   int
	cacheCreate int
}

// NewTracker creates a Tracker governed by the given policy.
func NewTracker(policy Policy) *Tracker {
	return &Tracker{policy: policy}
}

// RecordUsage appends a usage record and updates cumulative counters
// atomically, returning a correlation id for the record. It rejects only
// negative fields, which indicate a programming error upstream, not a
// runtime condition to recover from.
func (t *Tracker) RecordUsage(operationName string, usage Usage) (string, error) {
	if usage.InputTokens < 0 || usage.OutputTokens < 0 || usage.CacheReadTokens < 0 || usage.CacheCreateTokens < 0 {
		return "", errors.Errorf("tokentracker: negative usage field for operation %q", operationName)
	}

	usage.OperationName = operationName

	t.mu.Lock()
	defer t.mu.Unlock()

	t.history = append(t.history, usage)
	t.input += usage.InputTokens
	t.output += usage.OutputTokens
	t.cacheRead += usage.CacheReadTokens
	t.cacheCreate += usage.CacheCreateTokens
	t.total += usage.Total()

	return uuid.NewString(), nil
}

// Snapshot returns the current cumulative totals, percentage, remaining
// budget, and threshold status. Percentage may exceed 100 if a single call
// overshoots the remaining budget; the tracker reports this faithfully
// rather than rejecting it (spec §3).
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	pct := 0.0
	if t.policy.Limit > 0 {
		pct = float64(t.total) / float64(t.policy.Limit) * 100
	}

	remaining := t.policy.Limit - t.total
	if remaining < 0 {
		remaining = 0
	}

	return Snapshot{
		Total:           t.total,
		Input:           t.input,
		Output:          t.output,
		CacheRead:       t.cacheRead,
		CacheCreate:     t.cacheCreate,
		UsagePercentage: pct,
		RemainingTokens: remaining,
		Status:          t.statusLocked(),
	}
}

// History returns a copy of the append-only usage log, oldest first.
func (t *Tracker) History() []Usage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Usage, len(t.history))
	copy(out, t.history)
	return out
}

// Status returns the current threshold zone.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statusLocked()
}

func (t *Tracker) statusLocked() Status {
	ratio := 0.0
	if t.policy.Limit > 0 {
		ratio = float64(t.total) / float64(t.policy.Limit)
	}
	switch {
	case ratio >= t.policy.CriticalThreshold:
		return StatusCritical
	case ratio >= t.policy.WarningThreshold:
		return StatusWarning
	default:
		return StatusOK
	}
}

// IsExhausted reports true when the tracker's status is CRITICAL.
func (t *Tracker) IsExhausted() bool {
	return t.Status() == StatusCritical
}
