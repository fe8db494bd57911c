package tokentracker

import "time"

// Usage is an atomic usage record returned by a single ModelClient call.
// Cache-read tokens count toward the context budget at the same weight as
// input tokens (spec §3).
type Usage struct {
	InputTokens       int       `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens      int       `json:"output_tokens" yaml:"output_tokens"`
	CacheReadTokens   int       `json:"cache_read_tokens" yaml:"cache_read_tokens"`
	CacheCreateTokens int       `json:"cache_create_tokens" yaml:"cache_create_tokens"`
	OperationName     string    `json:"operation_name" yaml:"operation_name"`
	Timestamp         time.Time `json:"timestamp" yaml:"timestamp"`
}

// Total returns the number of tokens this single record contributes to the
// cumulative budget: input + output + cache-read + cache-create.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens + u.CacheReadTokens + u.CacheCreateTokens
}

// Status is the threshold zone a tracker's usage percentage falls into.
type Status string

const (
	StatusOK       Status = "OK"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
)

// Snapshot is a point-in-time read of a tracker's cumulative counters.
type Snapshot struct {
	Total             int
	Input             int
	Output            int
	CacheRead         int
	CacheCreate       int
	UsagePercentage   float64
	RemainingTokens   int
	Status            Status
}
