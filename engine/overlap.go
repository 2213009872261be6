/*
overlap.go - Booking conflict detection

PURPOSE:
  Finds bookings whose date ranges overlap. The calendar view flags these
  so staff can resolve double-booked guides/vehicles by rescheduling; the
  engine only detects, it never picks a winner.

ALGORITHM:
  Pairwise closed-interval scan: A and B conflict when
  A.start <= B.end AND B.start <= A.end. Touching endpoints count: a tour
  ending June 4 conflicts with one starting June 4, because the guide and
  vehicle are committed on both.

  The scan is O(n²) over the spans on one calendar view. n is tens to low
  hundreds, so the quadratic scan beats the constant factors of a sweep
  line and stays obviously correct.

EDGE CASES:
  - Single-day bookings (start == end) are checked like any other span.
  - Malformed spans (zero dates, end before start) are dropped before the
    scan; they can't crash it and never appear in the result.

SEE ALSO:
  - api/handlers.go: calendar endpoint attaching conflict ids
*/
package engine

import "time"

// Span is one booking's date range as seen by the conflict scan.
type Span struct {
	ID    string
	Start time.Time
	End   time.Time
}

// Valid reports whether the span can participate in a conflict scan.
func (s Span) Valid() bool {
	return s.ID != "" && !s.Start.IsZero() && !s.End.IsZero() && !s.End.Before(s.Start)
}

// Overlaps reports closed-interval overlap with another span.
func (s Span) Overlaps(o Span) bool {
	return !s.Start.After(o.End) && !o.Start.After(s.End)
}

// DetectConflicts returns the set of span ids participating in at least one
// pairwise overlap. Invalid spans are excluded before the scan.
func DetectConflicts(spans []Span) map[string]bool {
	valid := spans[:0:0]
	for _, s := range spans {
		if s.Valid() {
			valid = append(valid, s)
		}
	}

	conflicts := make(map[string]bool)
	for i := 0; i < len(valid); i++ {
		for j := i + 1; j < len(valid); j++ {
			if valid[i].Overlaps(valid[j]) {
				conflicts[valid[i].ID] = true
				conflicts[valid[j].ID] = true
			}
		}
	}
	return conflicts
}

// ConflictIDs returns the conflict set as a slice for JSON responses.
// Order follows the input span order so calendar rendering is stable.
func ConflictIDs(spans []Span) []string {
	set := DetectConflicts(spans)
	ids := make([]string, 0, len(set))
	for _, s := range spans {
		if set[s.ID] {
			ids = append(ids, s.ID)
			delete(set, s.ID) // guard against duplicate input ids
		}
	}
	return ids
}
