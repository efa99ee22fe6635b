// Package scope restricts bulk transcript operations to a subset of
// segments. It provides the id index and the order-preserving filter used
// by the rewrite engine and the HTTP API to turn a user's segment selection
// into the exact list of segments an AI action should touch.
//
// All functions are pure: they never mutate their inputs, never perform
// I/O, and recompute their results from scratch on every call. An [Index]
// is a snapshot — rebuild it whenever the underlying segment sequence
// changes; this package does no caching or invalidation on the caller's
// behalf.
package scope

import "github.com/mvonrenteln/FlowScribe-sub009/internal/transcript"

// Index is a read-only lookup from segment id to segment, built from one
// transcript snapshot. Every id in an Index maps to exactly one segment
// from the sequence it was built from.
type Index map[string]transcript.Segment

// BuildIndex builds an [Index] from segments, keyed by segment id.
//
// Segment ids are unique within a transcript by model invariant; should a
// duplicate id appear anyway, the later occurrence wins. Runs in O(n) time
// and space and does not mutate segments.
func BuildIndex(segments []transcript.Segment) Index {
	idx := make(Index, len(segments))
	for _, seg := range segments {
		idx[seg.ID] = seg
	}
	return idx
}

// ScopedIDs resolves a requested segment id list against idx and returns
// the ids that still refer to eligible segments.
//
// For each id in requestedIDs, in order:
//   - ids absent from idx are dropped (the segment was deleted since the
//     selection was made),
//   - when excludeConfirmed is true, ids resolving to confirmed segments
//     are dropped,
//   - every other id is kept.
//
// The result preserves the relative order of requestedIDs, not transcript
// order, and duplicates in the input yield duplicates in the output. No id
// is ever returned that was not in requestedIDs. Stale or already-confirmed
// selections are tolerated silently so an AI action scoped moments before a
// concurrent edit still applies to whatever remains valid.
func ScopedIDs(idx Index, requestedIDs []string, excludeConfirmed bool) []string {
	scoped := make([]string, 0, len(requestedIDs))
	for _, id := range requestedIDs {
		seg, ok := idx[id]
		if !ok {
			continue
		}
		if excludeConfirmed && seg.Confirmed {
			continue
		}
		scoped = append(scoped, id)
	}
	return scoped
}

// IsFiltered reports whether candidateIDs differs in size from allSegments.
//
// This is a size-only heuristic: it signals "some filter is likely active"
// for UI affordances but cannot distinguish a filtered set from a reordered
// or substituted set of the same cardinality. The approximation is
// deliberate — exact membership comparison costs more and the signal only
// drives display state.
func IsFiltered(allSegments []transcript.Segment, candidateIDs []string) bool {
	return len(candidateIDs) != len(allSegments)
}
