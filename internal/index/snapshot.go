// Package index holds the read-optimized in-memory view of the audit log:
// an immutable snapshot of event metadata in canonical order, plus inverted
// position indexes for the filterable attributes.
package index

import (
	"cmp"
	"slices"
	"sort"

	"github.com/groblegark/audittrail/internal/model"
)

// Snapshot is an immutable, position-addressable view of every event's
// metadata, sorted by created_at descending with id descending as the
// tie-break. Positions are 0-based ranks in that order and are meaningful
// only for the snapshot they came from. A snapshot is never mutated after
// Build returns; a rebuild produces a whole new snapshot.
type Snapshot struct {
	records  []model.AuditEvent
	byID     map[int64]int
	byActor  map[int64][]int
	byAction map[model.Action][]int
}

// Build sorts a copy of records into canonical order and derives the
// inverted position indexes in one linear pass, so each position list is
// ascending by construction. A nil or empty input produces a valid empty
// snapshot; queries against it return empty pages, not errors.
func Build(records []model.AuditEvent) *Snapshot {
	sorted := make([]model.AuditEvent, len(records))
	copy(sorted, records)
	slices.SortFunc(sorted, compareCanonical)

	byID := make(map[int64]int, len(sorted))
	byActor := make(map[int64][]int)
	byAction := make(map[model.Action][]int)
	for pos := range sorted {
		byID[sorted[pos].ID] = pos
		byActor[sorted[pos].ActorID] = append(byActor[sorted[pos].ActorID], pos)
		byAction[sorted[pos].Action] = append(byAction[sorted[pos].Action], pos)
	}

	return &Snapshot{
		records:  sorted,
		byID:     byID,
		byActor:  byActor,
		byAction: byAction,
	}
}

// compareCanonical orders events by created_at descending, then id
// descending. IDs are unique, so this is a total order and sort stability
// does not matter.
func compareCanonical(a, b model.AuditEvent) int {
	if c := cmp.Compare(b.CreatedAt, a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// Record returns a copy of the record at pos. pos must be in [0, Len()).
func (s *Snapshot) Record(pos int) model.AuditEvent {
	return s.records[pos]
}

// RecordByID returns a copy of the record with the given id, if present.
func (s *Snapshot) RecordByID(id int64) (model.AuditEvent, bool) {
	pos, ok := s.byID[id]
	if !ok {
		return model.AuditEvent{}, false
	}
	return s.records[pos], true
}

// DistinctActors returns the number of distinct actor_id values.
func (s *Snapshot) DistinctActors() int {
	return len(s.byActor)
}

// DistinctActions returns the number of distinct action values.
func (s *Snapshot) DistinctActions() int {
	return len(s.byAction)
}

// Window maps the closed time window [fromTS, toTS] onto the contiguous
// position interval [left, right): every position inside it satisfies
// fromTS <= created_at <= toTS and no position outside it does. Records are
// sorted descending by created_at, so left is the first position at or
// below toTS and right is the first position strictly below fromTS; both
// are found by binary search. left >= right means the window is empty and
// callers short-circuit to an empty result.
func (s *Snapshot) Window(fromTS, toTS int64) (left, right int) {
	left = sort.Search(len(s.records), func(i int) bool {
		return s.records[i].CreatedAt <= toTS
	})
	right = sort.Search(len(s.records), func(i int) bool {
		return s.records[i].CreatedAt < fromTS
	})
	return left, right
}

// ActorPositions returns the ascending positions of every record with the
// given actor_id, restricted to [left, right). The returned slice aliases
// the index and must not be modified.
func (s *Snapshot) ActorPositions(actorID int64, left, right int) []int {
	return clampPositions(s.byActor[actorID], left, right)
}

// ActionPositions returns the ascending positions of every record with the
// given action, restricted to [left, right). The returned slice aliases the
// index and must not be modified.
func (s *Snapshot) ActionPositions(action model.Action, left, right int) []int {
	return clampPositions(s.byAction[action], left, right)
}

// Page resolves the query to its page of snapshot positions, offset and
// limit already applied. Work is bounded by the page depth: candidate
// production stops at need = offset + page_size positions. An empty result
// means the window matched nothing or the page is past the end.
func (s *Snapshot) Page(q model.EventQuery) []int {
	left, right := s.Window(q.FromTS, q.ToTS)
	if left >= right {
		return nil
	}
	offset := q.Offset()

	// Unfiltered queries page directly over the contiguous window.
	if q.ActorID == nil && q.Action == nil {
		total := right - left
		if offset >= total {
			return nil
		}
		start := left + offset
		end := min(start+q.PageSize, right)
		positions := make([]int, 0, end-start)
		for p := start; p < end; p++ {
			positions = append(positions, p)
		}
		return positions
	}

	var candidates []int
	switch {
	case q.ActorID != nil && q.Action != nil:
		need := offset + q.PageSize
		actorPos := s.ActorPositions(*q.ActorID, left, right)
		actionPos := s.ActionPositions(*q.Action, left, right)
		candidates = intersectPositions(actorPos, actionPos, need)
	case q.ActorID != nil:
		candidates = s.ActorPositions(*q.ActorID, left, right)
	default:
		candidates = s.ActionPositions(*q.Action, left, right)
	}

	if offset >= len(candidates) {
		return nil
	}
	end := min(offset+q.PageSize, len(candidates))
	return candidates[offset:end]
}
