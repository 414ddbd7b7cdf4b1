package telemetry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CircularBuffer Tests
// =============================================================================

func TestCircularBuffer_KeepsInsertionOrder(t *testing.T) {
	buf := NewCircularBuffer[string](10)

	buf.Add("q1")
	buf.Add("q2")
	buf.Add("q3")

	assert.Equal(t, []string{"q1", "q2", "q3"}, buf.Items())
	assert.Equal(t, 3, buf.Size())
}

func TestCircularBuffer_EvictsOldest(t *testing.T) {
	// Given: a buffer of capacity 3
	buf := NewCircularBuffer[string](3)

	// When: five items are added
	for _, q := range []string{"q1", "q2", "q3", "q4", "q5"} {
		buf.Add(q)
	}

	// Then: only the newest three remain, oldest first
	assert.Equal(t, []string{"q3", "q4", "q5"}, buf.Items())
	assert.Equal(t, 3, buf.Size())
}

func TestCircularBuffer_EmptyAndClear(t *testing.T) {
	buf := NewCircularBuffer[int](0)

	items := buf.Items()
	assert.NotNil(t, items)
	assert.Empty(t, items)

	buf.Add(1)
	buf.Clear()
	assert.Equal(t, 0, buf.Size())
	assert.Empty(t, buf.Items())
}

// =============================================================================
// Bucket and Term Tests
// =============================================================================

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency  time.Duration
		expected LatencyBucket
	}{
		{5 * time.Millisecond, BucketP10},
		{10 * time.Millisecond, BucketP50},
		{49 * time.Millisecond, BucketP50},
		{50 * time.Millisecond, BucketP100},
		{100 * time.Millisecond, BucketP500},
		{499 * time.Millisecond, BucketP500},
		{500 * time.Millisecond, BucketP1000},
		{3 * time.Second, BucketP1000},
	}

	for _, tt := range tests {
		t.Run(tt.latency.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, LatencyToBucket(tt.latency))
		})
	}
}

func TestExtractTerms(t *testing.T) {
	assert.Equal(t, []string{"tax", "return", "2023"}, ExtractTerms("  Tax return of 2023 "))
	assert.Nil(t, ExtractTerms("a an"))
	assert.Nil(t, ExtractTerms("   "))
}

// =============================================================================
// QueryMetrics Tests
// =============================================================================

func TestQueryMetrics_Record_AggregatesEvents(t *testing.T) {
	// Given: a fresh collector
	m := NewQueryMetrics()

	// When: three searches are recorded
	m.Record(QueryEvent{
		Query:       "tax return",
		MatchTypes:  map[string]int{"hybrid": 2, "keyword": 1},
		ResultCount: 3,
		Latency:     5 * time.Millisecond,
	})
	m.Record(QueryEvent{
		Query:       "beach photos",
		MatchTypes:  map[string]int{"keyword": 1},
		ResultCount: 1,
		LexicalOnly: true,
		Latency:     20 * time.Millisecond,
	})
	m.Record(QueryEvent{
		Query:   "passport",
		Latency: 700 * time.Millisecond,
	})

	// Then: the snapshot reflects all of them
	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalQueries)
	assert.Equal(t, map[string]int64{"hybrid": 2, "keyword": 2}, snap.MatchTypeCounts)
	assert.Equal(t, int64(1), snap.LexicalOnlyCount)
	assert.Equal(t, int64(1), snap.ZeroResultCount)
	assert.Equal(t, []string{"passport"}, snap.ZeroResultQueries)
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP10])
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP50])
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP1000])
	assert.InDelta(t, 33.33, snap.ZeroResultPercentage(), 0.01)
	assert.InDelta(t, 33.33, snap.LexicalOnlyPercentage(), 0.01)
}

func TestQueryMetrics_TopTerms_SortedByCount(t *testing.T) {
	m := NewQueryMetrics()

	m.Record(QueryEvent{Query: "mortgage statement", ResultCount: 1})
	m.Record(QueryEvent{Query: "mortgage", ResultCount: 1})
	m.Record(QueryEvent{Query: "bank statement mortgage", ResultCount: 1})

	snap := m.Snapshot()
	require.Len(t, snap.TopTerms, 3)
	assert.Equal(t, TermCount{Term: "mortgage", Count: 3}, snap.TopTerms[0])
	assert.Equal(t, TermCount{Term: "statement", Count: 2}, snap.TopTerms[1])
	assert.Equal(t, TermCount{Term: "bank", Count: 1}, snap.TopTerms[2])
}

func TestQueryMetrics_ExactRepeats_IgnoreCaseAndSpace(t *testing.T) {
	m := NewQueryMetrics()

	m.Record(QueryEvent{Query: "Tax Return", ResultCount: 1})
	m.Record(QueryEvent{Query: "  tax return ", ResultCount: 1})
	m.Record(QueryEvent{Query: "tax returns", ResultCount: 1})

	assert.Equal(t, int64(1), m.Snapshot().ExactRepeatCount)
}

func TestQueryMetrics_ZeroResultRingIsBounded(t *testing.T) {
	m := NewQueryMetricsWithConfig(QueryMetricsConfig{ZeroResultsCapacity: 2})

	m.Record(QueryEvent{Query: "one"})
	m.Record(QueryEvent{Query: "two"})
	m.Record(QueryEvent{Query: "three"})

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.ZeroResultCount)
	assert.Equal(t, []string{"two", "three"}, snap.ZeroResultQueries)
}

func TestQueryMetrics_Close_StopsRecording(t *testing.T) {
	m := NewQueryMetrics()
	m.Record(QueryEvent{Query: "before", ResultCount: 1})

	require.NoError(t, m.Close())
	m.Record(QueryEvent{Query: "after", ResultCount: 1})

	assert.Equal(t, int64(1), m.Snapshot().TotalQueries)
}

func TestQueryMetrics_ConcurrentRecord(t *testing.T) {
	m := NewQueryMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.Record(QueryEvent{
					Query:       fmt.Sprintf("query %d", n),
					MatchTypes:  map[string]int{"keyword": 1},
					ResultCount: 1,
				})
			}
		}(i)
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Equal(t, int64(1000), snap.TotalQueries)
	assert.Equal(t, int64(1000), snap.MatchTypeCounts["keyword"])
}
