package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/tour-office/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func span(id string, start, end time.Time) engine.Span {
	return engine.Span{ID: id, Start: start, End: end}
}

// =============================================================================
// CONFLICT DETECTION
// =============================================================================

func TestDetectConflicts_OverlappingPair(t *testing.T) {
	// GIVEN: A runs Jun 1-5, B runs Jun 4-8, C runs Jun 10-12
	spans := []engine.Span{
		span("A", day(2024, time.June, 1), day(2024, time.June, 5)),
		span("B", day(2024, time.June, 4), day(2024, time.June, 8)),
		span("C", day(2024, time.June, 10), day(2024, time.June, 12)),
	}

	// WHEN: scanning for conflicts
	conflicts := engine.DetectConflicts(spans)

	// THEN: A and B conflict, C does not
	assert.True(t, conflicts["A"])
	assert.True(t, conflicts["B"])
	assert.False(t, conflicts["C"])
	assert.Len(t, conflicts, 2)
}

func TestDetectConflicts_TouchingEndpointsConflict(t *testing.T) {
	// Closed intervals: a tour ending Jun 4 conflicts with one starting Jun 4.
	spans := []engine.Span{
		span("A", day(2024, time.June, 1), day(2024, time.June, 4)),
		span("B", day(2024, time.June, 4), day(2024, time.June, 8)),
	}

	conflicts := engine.DetectConflicts(spans)

	assert.True(t, conflicts["A"])
	assert.True(t, conflicts["B"])
}

func TestDetectConflicts_DisjointSpans(t *testing.T) {
	spans := []engine.Span{
		span("A", day(2024, time.June, 1), day(2024, time.June, 3)),
		span("B", day(2024, time.June, 4), day(2024, time.June, 8)),
	}

	conflicts := engine.DetectConflicts(spans)

	assert.Empty(t, conflicts)
}

func TestDetectConflicts_SingleDayBooking(t *testing.T) {
	// A day trip inside a longer tour still counts as a conflict.
	spans := []engine.Span{
		span("tour", day(2024, time.July, 1), day(2024, time.July, 10)),
		span("daytrip", day(2024, time.July, 5), day(2024, time.July, 5)),
	}

	conflicts := engine.DetectConflicts(spans)

	assert.True(t, conflicts["tour"])
	assert.True(t, conflicts["daytrip"])
}

func TestDetectConflicts_MalformedSpansExcluded(t *testing.T) {
	// GIVEN: one span with end before start, one with a zero date
	spans := []engine.Span{
		span("good-1", day(2024, time.June, 1), day(2024, time.June, 5)),
		span("reversed", day(2024, time.June, 9), day(2024, time.June, 2)),
		span("zero", time.Time{}, day(2024, time.June, 3)),
		span("good-2", day(2024, time.June, 4), day(2024, time.June, 8)),
	}

	// WHEN: scanning
	conflicts := engine.DetectConflicts(spans)

	// THEN: malformed spans neither crash the scan nor appear in the result
	assert.True(t, conflicts["good-1"])
	assert.True(t, conflicts["good-2"])
	assert.False(t, conflicts["reversed"])
	assert.False(t, conflicts["zero"])
}

func TestDetectConflicts_Empty(t *testing.T) {
	assert.Empty(t, engine.DetectConflicts(nil))
	assert.Empty(t, engine.DetectConflicts([]engine.Span{}))
}

func TestDetectConflicts_TransitiveChain(t *testing.T) {
	// A overlaps B, B overlaps C, but A and C are disjoint.
	// All three are in the conflict set: each participates in some overlap.
	spans := []engine.Span{
		span("A", day(2024, time.June, 1), day(2024, time.June, 5)),
		span("B", day(2024, time.June, 5), day(2024, time.June, 10)),
		span("C", day(2024, time.June, 10), day(2024, time.June, 15)),
	}

	conflicts := engine.DetectConflicts(spans)

	require.Len(t, conflicts, 3)
	assert.True(t, conflicts["A"])
	assert.True(t, conflicts["B"])
	assert.True(t, conflicts["C"])
}

func TestConflictIDs_StableOrder(t *testing.T) {
	spans := []engine.Span{
		span("B", day(2024, time.June, 4), day(2024, time.June, 8)),
		span("C", day(2024, time.June, 10), day(2024, time.June, 12)),
		span("A", day(2024, time.June, 1), day(2024, time.June, 5)),
	}

	ids := engine.ConflictIDs(spans)

	// Input order, not lexical order
	assert.Equal(t, []string{"B", "A"}, ids)
}
