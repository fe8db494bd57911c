package tokentracker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_ThresholdCorrectness(t *testing.T) {
	cases := []struct {
		name   string
		total  int
		limit  int
		status Status
	}{
		{"far below warning", 10000, 200000, StatusOK},
		{"just below warning", 149999, 200000, StatusOK},
		{"at warning boundary", 150000, 200000, StatusWarning},
		{"just below critical", 179999, 200000, StatusWarning},
		{"at critical boundary", 180000, 200000, StatusCritical},
		{"over budget", 250000, 200000, StatusCritical},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := NewTracker(Policy{Limit: tc.limit, WarningThreshold: 0.75, CriticalThreshold: 0.90})
			_, err := tr.RecordUsage("op", Usage{InputTokens: tc.total})
			require.NoError(t, err)
			assert.Equal(t, tc.status, tr.Status())
		})
	}
}

func TestTracker_Monotonicity(t *testing.T) {
	tr := NewTracker(DefaultPolicy())

	amounts := []int{50000, 60000, 80000}
	for i, a := range amounts {
		_, err := tr.RecordUsage("op", Usage{InputTokens: a})
		require.NoError(t, err)

		snap := tr.Snapshot()
		var expected int
		for _, x := range amounts[:i+1] {
			expected += x
		}
		assert.Equal(t, expected, snap.Total)
	}
}

func TestTracker_CacheReadCountsTowardBudget(t *testing.T) {
	tr := NewTracker(DefaultPolicy())
	_, err := tr.RecordUsage("op", Usage{InputTokens: 1000, CacheReadTokens: 2000})
	require.NoError(t, err)

	snap := tr.Snapshot()
	assert.Equal(t, 3000, snap.Total)
}

func TestTracker_RejectsNegativeFields(t *testing.T) {
	tr := NewTracker(DefaultPolicy())
	_, err := tr.RecordUsage("op", Usage{InputTokens: -1})
	assert.Error(t, err)
}

func TestTracker_SingleCallOvershootIsRecordedFaithfully(t *testing.T) {
	tr := NewTracker(Policy{Limit: 200000, WarningThreshold: 0.75, CriticalThreshold: 0.90})
	_, err := tr.RecordUsage("huge_call", Usage{InputTokens: 250000})
	require.NoError(t, err)

	snap := tr.Snapshot()
	assert.Greater(t, snap.UsagePercentage, 100.0)
	assert.Equal(t, StatusCritical, snap.Status)
	assert.Equal(t, 0, snap.RemainingTokens)
}

func TestTracker_ConcurrentRecordUsage(t *testing.T) {
	tr := NewTracker(Policy{Limit: 1000000, WarningThreshold: 0.75, CriticalThreshold: 0.90})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tr.RecordUsage("concurrent_op", Usage{InputTokens: 100})
		}()
	}
	wg.Wait()

	assert.Equal(t, 10000, tr.Snapshot().Total)
	assert.Len(t, tr.History(), 100)
}

func TestTracker_HistoryIsAppendOnlyCopy(t *testing.T) {
	tr := NewTracker(DefaultPolicy())
	_, err := tr.RecordUsage("op1", Usage{InputTokens: 10})
	require.NoError(t, err)

	hist := tr.History()
	hist[0].InputTokens = 999999

	hist2 := tr.History()
	assert.Equal(t, 10, hist2[0].InputTokens)
}
