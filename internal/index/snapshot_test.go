package index

import (
	"math/rand"
	"slices"
	"sort"
	"testing"

	"github.com/groblegark/audittrail/internal/model"
)

func ev(id, createdAt, actorID int64, action model.Action) model.AuditEvent {
	return model.AuditEvent{
		ID:           id,
		CreatedAt:    createdAt,
		ActorID:      actorID,
		Action:       action,
		ResourceType: model.ResourceOrder,
		ResourceID:   "ORDER-1",
	}
}

func pageIDs(s *Snapshot, q model.EventQuery) []int64 {
	var ids []int64
	for _, pos := range s.Page(q) {
		ids = append(ids, s.Record(pos).ID)
	}
	return ids
}

func TestBuild_SortsCanonically(t *testing.T) {
	// Unsorted input with a created_at tie: 100/5 must sort before 100/3.
	snap := Build([]model.AuditEvent{
		ev(9, 90, 1, model.ActionLogin),
		ev(3, 100, 1, model.ActionLogin),
		ev(5, 100, 1, model.ActionLogin),
	})
	if snap.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", snap.Len())
	}
	wantIDs := []int64{5, 3, 9}
	for pos, want := range wantIDs {
		if got := snap.Record(pos).ID; got != want {
			t.Errorf("Record(%d).ID = %d, want %d", pos, got, want)
		}
	}
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	input := []model.AuditEvent{
		ev(1, 10, 1, model.ActionLogin),
		ev(2, 20, 1, model.ActionLogin),
	}
	Build(input)
	if input[0].ID != 1 || input[1].ID != 2 {
		t.Errorf("Build reordered the caller's slice: %v", input)
	}
}

func TestBuild_Empty(t *testing.T) {
	snap := Build(nil)
	if snap.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", snap.Len())
	}
	left, right := snap.Window(0, 1000)
	if left != 0 || right != 0 {
		t.Errorf("Window on empty snapshot = [%d, %d), want [0, 0)", left, right)
	}
	if got := snap.Page(model.EventQuery{FromTS: 0, ToTS: 1000, Page: 1, PageSize: 10}); len(got) != 0 {
		t.Errorf("Page on empty snapshot = %v, want empty", got)
	}
}

func TestSnapshot_RecordByID(t *testing.T) {
	snap := Build([]model.AuditEvent{
		ev(9, 90, 1, model.ActionLogin),
		ev(3, 100, 2, model.ActionLogout),
	})
	rec, ok := snap.RecordByID(9)
	if !ok {
		t.Fatal("RecordByID(9) not found")
	}
	if rec.CreatedAt != 90 || rec.ActorID != 1 {
		t.Errorf("RecordByID(9) = %+v, want created_at 90 actor 1", rec)
	}
	if _, ok := snap.RecordByID(42); ok {
		t.Error("RecordByID(42) found, want miss")
	}
}

func TestSnapshot_Window(t *testing.T) {
	// Descending created_at: 500, 400, 400, 300, 100 at positions 0..4.
	snap := Build([]model.AuditEvent{
		ev(1, 500, 1, model.ActionLogin),
		ev(2, 400, 1, model.ActionLogin),
		ev(3, 400, 1, model.ActionLogin),
		ev(4, 300, 1, model.ActionLogin),
		ev(5, 100, 1, model.ActionLogin),
	})
	for _, tc := range []struct {
		name        string
		from, to    int64
		left, right int
	}{
		{"everything", 0, 1000, 0, 5},
		{"exact bounds", 100, 500, 0, 5},
		{"inner", 300, 400, 1, 4},
		{"single value with tie", 400, 400, 1, 3},
		{"between values", 350, 390, 3, 3},
		{"above all", 600, 700, 0, 0},
		{"below all", 0, 50, 5, 5},
		{"inverted", 500, 100, 0, 5},
	} {
		t.Run(tc.name, func(t *testing.T) {
			left, right := snap.Window(tc.from, tc.to)
			if left != tc.left || right != tc.right {
				t.Errorf("Window(%d, %d) = [%d, %d), want [%d, %d)", tc.from, tc.to, left, right, tc.left, tc.right)
			}
		})
	}
}

func TestSnapshot_Window_InvertedIsEmpty(t *testing.T) {
	// The "inverted" case above: left=0, right=5 but no record satisfies
	// 500 <= created_at <= 100, so Page must return nothing.
	snap := Build([]model.AuditEvent{
		ev(1, 500, 1, model.ActionLogin),
		ev(5, 100, 1, model.ActionLogin),
	})
	got := snap.Page(model.EventQuery{FromTS: 500, ToTS: 100, Page: 1, PageSize: 10})
	if len(got) != 0 {
		t.Errorf("Page with inverted window = %v, want empty", got)
	}
}

func TestSnapshot_PredicatePositions(t *testing.T) {
	snap := Build([]model.AuditEvent{
		ev(1, 500, 7, model.ActionUpdate),
		ev(2, 400, 8, model.ActionCreate),
		ev(3, 300, 7, model.ActionUpdate),
		ev(4, 200, 7, model.ActionCreate),
		ev(5, 100, 8, model.ActionUpdate),
	})
	if got := snap.ActorPositions(7, 0, snap.Len()); !slices.Equal(got, []int{0, 2, 3}) {
		t.Errorf("ActorPositions(7) = %v, want [0 2 3]", got)
	}
	if got := snap.ActorPositions(7, 1, 3); !slices.Equal(got, []int{2}) {
		t.Errorf("ActorPositions(7, 1, 3) = %v, want [2]", got)
	}
	if got := snap.ActionPositions(model.ActionUpdate, 0, snap.Len()); !slices.Equal(got, []int{0, 2, 4}) {
		t.Errorf("ActionPositions(UPDATE) = %v, want [0 2 4]", got)
	}
	if got := snap.ActorPositions(999, 0, snap.Len()); len(got) != 0 {
		t.Errorf("ActorPositions(unknown) = %v, want empty", got)
	}
	if snap.DistinctActors() != 2 {
		t.Errorf("DistinctActors() = %d, want 2", snap.DistinctActors())
	}
	if snap.DistinctActions() != 2 {
		t.Errorf("DistinctActions() = %d, want 2", snap.DistinctActions())
	}
}

func TestSnapshot_Page_TieBreak(t *testing.T) {
	snap := Build([]model.AuditEvent{
		ev(5, 100, 1, model.ActionLogin),
		ev(3, 100, 1, model.ActionLogin),
		ev(9, 90, 1, model.ActionLogin),
	})

	got := pageIDs(snap, model.EventQuery{FromTS: 0, ToTS: 1000, Page: 1, PageSize: 2})
	if !slices.Equal(got, []int64{5, 3}) {
		t.Errorf("page 1 = %v, want [5 3]", got)
	}
	got = pageIDs(snap, model.EventQuery{FromTS: 0, ToTS: 1000, Page: 2, PageSize: 2})
	if !slices.Equal(got, []int64{9}) {
		t.Errorf("page 2 = %v, want [9]", got)
	}
	got = pageIDs(snap, model.EventQuery{FromTS: 0, ToTS: 1000, Page: 3, PageSize: 2})
	if len(got) != 0 {
		t.Errorf("page 3 = %v, want empty", got)
	}
}

func TestSnapshot_Page_Filters(t *testing.T) {
	actor7 := int64(7)
	actor8 := int64(8)
	actorNone := int64(999)
	update := model.ActionUpdate
	create := model.ActionCreate

	snap := Build([]model.AuditEvent{
		ev(1, 500, 7, model.ActionUpdate),
		ev(2, 400, 8, model.ActionCreate),
		ev(3, 300, 7, model.ActionUpdate),
		ev(4, 200, 7, model.ActionCreate),
		ev(5, 100, 8, model.ActionUpdate),
	})

	for _, tc := range []struct {
		name  string
		query model.EventQuery
		want  []int64
	}{
		{"actor only", model.EventQuery{FromTS: 0, ToTS: 1000, ActorID: &actor7, Page: 1, PageSize: 10}, []int64{1, 3, 4}},
		{"action only", model.EventQuery{FromTS: 0, ToTS: 1000, Action: &update, Page: 1, PageSize: 10}, []int64{1, 3, 5}},
		{"both", model.EventQuery{FromTS: 0, ToTS: 1000, ActorID: &actor7, Action: &update, Page: 1, PageSize: 10}, []int64{1, 3}},
		{"both with single match", model.EventQuery{FromTS: 0, ToTS: 1000, ActorID: &actor8, Action: &create, Page: 1, PageSize: 10}, []int64{2}},
		{"intersection empty", model.EventQuery{FromTS: 0, ToTS: 150, ActorID: &actor7, Action: &update, Page: 1, PageSize: 10}, nil},
		{"absent actor", model.EventQuery{FromTS: 0, ToTS: 1000, ActorID: &actorNone, Page: 1, PageSize: 10}, nil},
		{"filter with window", model.EventQuery{FromTS: 150, ToTS: 450, ActorID: &actor7, Page: 1, PageSize: 10}, []int64{3, 4}},
		{"filter paged", model.EventQuery{FromTS: 0, ToTS: 1000, ActorID: &actor7, Page: 2, PageSize: 2}, []int64{4}},
		{"filter past end", model.EventQuery{FromTS: 0, ToTS: 1000, ActorID: &actor7, Page: 3, PageSize: 2}, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := pageIDs(snap, tc.query)
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !slices.Equal(got, tc.want) {
				t.Errorf("page ids = %v, want %v", got, tc.want)
			}
		})
	}
}

// referenceIDs is the brute-force oracle: filter linearly, sort canonically,
// apply explicit offset and limit.
func referenceIDs(records []model.AuditEvent, q model.EventQuery) []int64 {
	f := q.Filter()
	var matched []model.AuditEvent
	for _, rec := range records {
		if f.Matches(rec) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt != matched[j].CreatedAt {
			return matched[i].CreatedAt > matched[j].CreatedAt
		}
		return matched[i].ID > matched[j].ID
	})
	offset := q.Offset()
	if offset >= len(matched) {
		return nil
	}
	end := min(offset+q.PageSize, len(matched))
	var ids []int64
	for _, rec := range matched[offset:end] {
		ids = append(ids, rec.ID)
	}
	return ids
}

func TestSnapshot_Page_MatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(1337))
	actions := []model.Action{model.ActionUpdate, model.ActionCreate, model.ActionDelete}

	records := make([]model.AuditEvent, 400)
	for i := range records {
		records[i] = ev(
			int64(i+1),
			1000+rng.Int63n(200), // dense range forces created_at ties
			rng.Int63n(5)+1,
			actions[rng.Intn(len(actions))],
		)
	}
	snap := Build(records)

	queries := 0
	for trial := 0; trial < 300; trial++ {
		q := model.EventQuery{
			FromTS:   1000 + rng.Int63n(220) - 10,
			Page:     int(rng.Int63n(6)) + 1,
			PageSize: []int{1, 3, 10, 50}[rng.Intn(4)],
		}
		q.ToTS = q.FromTS + rng.Int63n(150)
		if rng.Intn(2) == 0 {
			actor := rng.Int63n(6) + 1 // occasionally an absent actor
			q.ActorID = &actor
		}
		if rng.Intn(2) == 0 {
			action := actions[rng.Intn(len(actions))]
			q.Action = &action
		}

		got := pageIDs(snap, q)
		want := referenceIDs(records, q)
		if !slices.Equal(got, want) {
			t.Fatalf("query %+v: page ids = %v, want %v", q, got, want)
		}
		queries++
	}
	if queries != 300 {
		t.Fatalf("ran %d queries, want 300", queries)
	}
}

func TestSnapshot_Page_Idempotent(t *testing.T) {
	actor := int64(7)
	snap := Build([]model.AuditEvent{
		ev(1, 500, 7, model.ActionUpdate),
		ev(2, 400, 8, model.ActionCreate),
		ev(3, 300, 7, model.ActionUpdate),
	})
	q := model.EventQuery{FromTS: 0, ToTS: 1000, ActorID: &actor, Page: 1, PageSize: 2}
	first := pageIDs(snap, q)
	for i := 0; i < 5; i++ {
		if got := pageIDs(snap, q); !slices.Equal(got, first) {
			t.Fatalf("call %d returned %v, first call returned %v", i+2, got, first)
		}
	}
}
