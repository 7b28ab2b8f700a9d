package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/groblegark/audittrail/internal/cursor"
	"github.com/groblegark/audittrail/internal/events"
	"github.com/groblegark/audittrail/internal/model"
	"github.com/groblegark/audittrail/internal/payload"
	"github.com/groblegark/audittrail/internal/store"
)

// fakeStore serves canned events from memory with the same ordering and
// filtering contract as the real store.
type fakeStore struct {
	mu     sync.RWMutex
	events []model.AuditEvent

	loadCalls     atomic.Int64
	boundaryCalls atomic.Int64

	failCount error
	failLoad  error
	failList  error
}

func (f *fakeStore) setEvents(evs []model.AuditEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = evs
}

func (f *fakeStore) sorted() []model.AuditEvent {
	f.mu.RLock()
	out := make([]model.AuditEvent, len(f.events))
	copy(out, f.events)
	f.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (f *fakeStore) filtered(filter model.EventFilter) []model.AuditEvent {
	var out []model.AuditEvent
	for _, ev := range f.sorted() {
		if filter.Matches(ev) {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeStore) LoadEvents(ctx context.Context) ([]model.AuditEvent, error) {
	f.loadCalls.Add(1)
	if f.failLoad != nil {
		return nil, f.failLoad
	}
	return f.sorted(), nil
}

func (f *fakeStore) CountEvents(ctx context.Context) (int64, error) {
	if f.failCount != nil {
		return 0, f.failCount
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return int64(len(f.events)), nil
}

func (f *fakeStore) CountDistinct(ctx context.Context) (int64, int64, error) {
	actors := make(map[int64]struct{})
	actions := make(map[model.Action]struct{})
	for _, ev := range f.sorted() {
		actors[ev.ActorID] = struct{}{}
		actions[ev.Action] = struct{}{}
	}
	return int64(len(actors)), int64(len(actions)), nil
}

func (f *fakeStore) GetEvent(ctx context.Context, id int64) (*model.AuditEvent, error) {
	for _, ev := range f.sorted() {
		if ev.ID == id {
			return &ev, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListFirstPage(ctx context.Context, filter model.EventFilter, limit int) ([]model.AuditEvent, error) {
	if f.failList != nil {
		return nil, f.failList
	}
	rows := f.filtered(filter)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeStore) FindBoundary(ctx context.Context, filter model.EventFilter, offset int) (*model.Cursor, error) {
	f.boundaryCalls.Add(1)
	if f.failList != nil {
		return nil, f.failList
	}
	rows := f.filtered(filter)
	if offset-1 >= len(rows) {
		return nil, nil
	}
	b := rows[offset-1]
	return &model.Cursor{CreatedAt: b.CreatedAt, ID: b.ID}, nil
}

func (f *fakeStore) ListAfterCursor(ctx context.Context, filter model.EventFilter, cur model.Cursor, limit int) ([]model.AuditEvent, error) {
	if f.failList != nil {
		return nil, f.failList
	}
	var out []model.AuditEvent
	for _, ev := range f.filtered(filter) {
		after := ev.CreatedAt < cur.CreatedAt ||
			(ev.CreatedAt == cur.CreatedAt && ev.ID < cur.ID)
		if !after {
			continue
		}
		out = append(out, ev)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) InsertEvents(ctx context.Context, evs []model.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evs...)
	return nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                   { return nil }

// fakeReader serves payload documents keyed by locator offset.
type fakeReader struct {
	docs   map[int64]json.RawMessage
	failAt int64
	reads  atomic.Int64
}

func newFakeReader(docs map[int64]json.RawMessage) *fakeReader {
	return &fakeReader{docs: docs, failAt: -1}
}

func (r *fakeReader) Read(ctx context.Context, loc model.PayloadLocator) (json.RawMessage, error) {
	r.reads.Add(1)
	if loc.Offset == r.failAt {
		return nil, &payload.ReadError{Locator: loc, Err: errors.New("corrupt document")}
	}
	doc, ok := r.docs[loc.Offset]
	if !ok {
		return nil, &payload.ReadError{Locator: loc, Err: errors.New("missing document")}
	}
	return doc, nil
}

func (r *fakeReader) Close() error { return nil }

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (p *capturePublisher) Publish(ctx context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// dataset generates n events with deliberately dense created_at values so
// timestamp ties are common, plus one payload document per event.
func dataset(n int) ([]model.AuditEvent, *fakeReader) {
	rng := rand.New(rand.NewSource(99))
	recs := make([]model.AuditEvent, n)
	docs := make(map[int64]json.RawMessage, n)
	for i := range recs {
		id := int64(i + 1)
		offset := id * 100
		rt := model.ResourceTypes[rng.Intn(len(model.ResourceTypes))]
		recs[i] = model.AuditEvent{
			ID:           id,
			CreatedAt:    1000 + rng.Int63n(50),
			ActorID:      rng.Int63n(5) + 1,
			Action:       model.Actions[rng.Intn(len(model.Actions))],
			ResourceType: rt,
			ResourceID:   fmt.Sprintf("%s-%d", rt, id),
			Locator:      model.PayloadLocator{Offset: offset, Length: 40},
		}
		docs[offset] = json.RawMessage(fmt.Sprintf(`{"note":"event %d"}`, id))
	}
	return recs, newFakeReader(docs)
}

func newTestService(st store.Store, payloads payload.Reader, opts Options) *Service {
	return New(st, payloads, cursor.NewMemory(time.Minute), &events.NoopPublisher{}, quietLogger(), opts)
}

func TestInitialize_BuildsOnce(t *testing.T) {
	recs, reader := dataset(20)
	fs := &fakeStore{events: recs}
	pub := &capturePublisher{}
	svc := New(fs, reader, nil, pub, quietLogger(), Options{})

	for i := 0; i < 3; i++ {
		if err := svc.Initialize(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := fs.loadCalls.Load(); got != 1 {
		t.Fatalf("expected 1 bulk load, got %d", got)
	}

	if len(pub.topics) != 1 || pub.topics[0] != events.TopicSnapshotBuilt {
		t.Fatalf("expected one %s event, got %v", events.TopicSnapshotBuilt, pub.topics)
	}
	built, ok := pub.events[0].(events.SnapshotBuilt)
	if !ok {
		t.Fatalf("expected SnapshotBuilt, got %T", pub.events[0])
	}
	if built.Rows != 20 || built.Strategy != "indexed" {
		t.Fatalf("got event %+v", built)
	}
}

func TestInitialize_Concurrent(t *testing.T) {
	recs, reader := dataset(50)
	fs := &fakeStore{events: recs}
	svc := newTestService(fs, reader, Options{})

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.Initialize(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := fs.loadCalls.Load(); got != 1 {
		t.Fatalf("expected 1 bulk load across concurrent callers, got %d", got)
	}
}

func TestInitialize_FailureIsRetryable(t *testing.T) {
	recs, reader := dataset(5)
	fs := &fakeStore{events: recs, failLoad: errors.New("connection refused")}
	svc := newTestService(fs, reader, Options{})

	err := svc.Initialize(context.Background())
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}

	fs.failLoad = nil
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	page, err := svc.ListEvents(context.Background(), model.EventQuery{FromTS: 0, ToTS: 2000, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Count != 5 {
		t.Fatalf("expected 5 events, got %d", page.Count)
	}
}

func TestInitialize_EmptyDataset(t *testing.T) {
	fs := &fakeStore{}
	svc := newTestService(fs, newFakeReader(nil), Options{})

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page, err := svc.ListEvents(context.Background(), model.EventQuery{FromTS: 0, ToTS: 2000, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Count != 0 || page.Events == nil || len(page.Events) != 0 {
		t.Fatalf("expected an empty page, got %+v", page)
	}
	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Rows != 0 {
		t.Fatalf("expected 0 rows, got %d", stats.Rows)
	}
}

func TestListEvents_InvalidQueryDoesNotInitialize(t *testing.T) {
	recs, reader := dataset(5)
	fs := &fakeStore{events: recs}
	svc := newTestService(fs, reader, Options{})

	_, err := svc.ListEvents(context.Background(), model.EventQuery{FromTS: 0, ToTS: 100, Page: 0, PageSize: 10})
	var qe model.QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("expected a query error, got %v", err)
	}
	if got := fs.loadCalls.Load(); got != 0 {
		t.Fatalf("invalid query triggered %d bulk loads", got)
	}
}

func TestListEvents_AutoInitializes(t *testing.T) {
	recs, reader := dataset(8)
	fs := &fakeStore{events: recs}
	svc := newTestService(fs, reader, Options{})

	page, err := svc.ListEvents(context.Background(), model.EventQuery{FromTS: 0, ToTS: 2000, Page: 1, PageSize: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Count != 8 {
		t.Fatalf("expected 8 events, got %d", page.Count)
	}
	if got := fs.loadCalls.Load(); got != 1 {
		t.Fatalf("expected 1 bulk load, got %d", got)
	}
}

func TestListEvents_OrderAndPayloads(t *testing.T) {
	// Fixed rows with a created_at tie: canonical order is 5, 3, 9.
	recs := []model.AuditEvent{
		{ID: 9, CreatedAt: 90, ActorID: 1, Action: model.ActionLogin, ResourceType: model.ResourceOrder, ResourceID: "ORDER-9", Locator: model.PayloadLocator{Offset: 900, Length: 10}},
		{ID: 3, CreatedAt: 100, ActorID: 1, Action: model.ActionLogin, ResourceType: model.ResourceOrder, ResourceID: "ORDER-3", Locator: model.PayloadLocator{Offset: 300, Length: 10}},
		{ID: 5, CreatedAt: 100, ActorID: 1, Action: model.ActionLogin, ResourceType: model.ResourceOrder, ResourceID: "ORDER-5", Locator: model.PayloadLocator{Offset: 500, Length: 10}},
	}
	reader := newFakeReader(map[int64]json.RawMessage{
		900: json.RawMessage(`{"n":9}`),
		300: json.RawMessage(`{"n":3}`),
		500: json.RawMessage(`{"n":5}`),
	})
	svc := newTestService(&fakeStore{events: recs}, reader, Options{})

	page, err := svc.ListEvents(context.Background(), model.EventQuery{FromTS: 0, ToTS: 200, Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Count != 2 || page.Events[0].ID != 5 || page.Events[1].ID != 3 {
		t.Fatalf("got page %+v", page.Events)
	}
	if string(page.Events[0].Payload) != `{"n":5}` {
		t.Fatalf("got payload %s", page.Events[0].Payload)
	}

	page, err = svc.ListEvents(context.Background(), model.EventQuery{FromTS: 0, ToTS: 200, Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Count != 1 || page.Events[0].ID != 9 {
		t.Fatalf("got page %+v", page.Events)
	}
}

func TestListEvents_PayloadFailureFailsRequest(t *testing.T) {
	recs, reader := dataset(10)
	reader.failAt = 500 // event 5
	svc := newTestService(&fakeStore{events: recs}, reader, Options{})

	_, err := svc.ListEvents(context.Background(), model.EventQuery{FromTS: 0, ToTS: 2000, Page: 1, PageSize: 50})
	var re *payload.ReadError
	if !errors.As(err, &re) {
		t.Fatalf("expected ReadError, got %v", err)
	}
	if re.Locator.Offset != 500 {
		t.Fatalf("got locator %+v", re.Locator)
	}
}

func TestListEvents_StorageFailure(t *testing.T) {
	recs, reader := dataset(10)
	fs := &fakeStore{events: recs, failList: errors.New("connection reset")}
	svc := newTestService(fs, reader, Options{Strategy: StrategyKeyset})

	_, err := svc.ListEvents(context.Background(), model.EventQuery{FromTS: 0, ToTS: 2000, Page: 1, PageSize: 10})
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

func randomQuery(rng *rand.Rand) model.EventQuery {
	q := model.EventQuery{
		FromTS:   995 + rng.Int63n(55),
		Page:     rng.Intn(8) + 1,
		PageSize: []int{1, 3, 7, 20}[rng.Intn(4)],
	}
	q.ToTS = q.FromTS + rng.Int63n(40)
	if rng.Intn(2) == 0 {
		actor := rng.Int63n(6) + 1
		q.ActorID = &actor
	}
	if rng.Intn(2) == 0 {
		action := model.Actions[rng.Intn(len(model.Actions))]
		q.Action = &action
	}
	return q
}

// Both strategies must produce identical pages for identical queries.
func TestListEvents_StrategiesAgree(t *testing.T) {
	recs, reader := dataset(300)
	indexed := newTestService(&fakeStore{events: recs}, reader, Options{Strategy: StrategyIndexed})
	keyset := newTestService(&fakeStore{events: recs}, reader, Options{Strategy: StrategyKeyset})

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 250; trial++ {
		q := randomQuery(rng)
		a, err := indexed.ListEvents(context.Background(), q)
		if err != nil {
			t.Fatalf("indexed %+v: %v", q, err)
		}
		b, err := keyset.ListEvents(context.Background(), q)
		if err != nil {
			t.Fatalf("keyset %+v: %v", q, err)
		}
		if a.Count != b.Count {
			t.Fatalf("query %+v: indexed count %d, keyset count %d", q, a.Count, b.Count)
		}
		for i := range a.Events {
			if a.Events[i].ID != b.Events[i].ID {
				t.Fatalf("query %+v row %d: indexed id %d, keyset id %d", q, i, a.Events[i].ID, b.Events[i].ID)
			}
			if !bytes.Equal(a.Events[i].Payload, b.Events[i].Payload) {
				t.Fatalf("query %+v row %d: payloads differ", q, i)
			}
		}
	}
}

func TestListEvents_KeysetBoundaryCache(t *testing.T) {
	recs, reader := dataset(50)
	fs := &fakeStore{events: recs}
	svc := newTestService(fs, reader, Options{Strategy: StrategyKeyset})

	// A sequential walk primes each next boundary, so no OFFSET probes run.
	for page := 1; page <= 3; page++ {
		res, err := svc.ListEvents(context.Background(), model.EventQuery{FromTS: 0, ToTS: 2000, Page: page, PageSize: 10})
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if res.Count != 10 {
			t.Fatalf("page %d: expected 10 events, got %d", page, res.Count)
		}
	}
	if got := fs.boundaryCalls.Load(); got != 0 {
		t.Fatalf("sequential walk ran %d boundary probes", got)
	}

	// A cold jump to an unprimed page pays exactly one probe.
	if _, err := svc.ListEvents(context.Background(), model.EventQuery{FromTS: 0, ToTS: 2000, Page: 5, PageSize: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := fs.boundaryCalls.Load(); got != 1 {
		t.Fatalf("cold jump ran %d boundary probes, want 1", got)
	}
}

func TestListEvents_KeysetPastEnd(t *testing.T) {
	recs, reader := dataset(10)
	svc := newTestService(&fakeStore{events: recs}, reader, Options{Strategy: StrategyKeyset})

	page, err := svc.ListEvents(context.Background(), model.EventQuery{FromTS: 0, ToTS: 2000, Page: 100, PageSize: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Count != 0 || len(page.Events) != 0 {
		t.Fatalf("expected an empty page, got %+v", page)
	}
}

func TestGetEvent(t *testing.T) {
	for _, strategy := range []Strategy{StrategyIndexed, StrategyKeyset} {
		t.Run(string(strategy), func(t *testing.T) {
			recs, reader := dataset(10)
			svc := newTestService(&fakeStore{events: recs}, reader, Options{Strategy: strategy})

			ev, err := svc.GetEvent(context.Background(), 7)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ev.ID != 7 || string(ev.Payload) != `{"note":"event 7"}` {
				t.Fatalf("got event %+v payload %s", ev, ev.Payload)
			}

			if _, err := svc.GetEvent(context.Background(), 999); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStats(t *testing.T) {
	recs, reader := dataset(40)
	fs := &fakeStore{events: recs}
	svc := newTestService(fs, reader, Options{})

	if _, err := svc.Stats(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if got := fs.loadCalls.Load(); got != 0 {
		t.Fatalf("stats triggered %d bulk loads", got)
	}

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Rows != 40 || stats.Strategy != "indexed" {
		t.Fatalf("got stats %+v", stats)
	}
	wantActors, wantActions, _ := fs.CountDistinct(context.Background())
	if stats.DistinctActors != int(wantActors) || stats.DistinctActions != int(wantActions) {
		t.Fatalf("got %d actors and %d actions, want %d and %d",
			stats.DistinctActors, stats.DistinctActions, wantActors, wantActions)
	}
	if stats.BuiltAt == 0 {
		t.Fatal("expected a built_at timestamp")
	}
}

func TestStats_Keyset(t *testing.T) {
	recs, reader := dataset(40)
	fs := &fakeStore{events: recs}
	svc := newTestService(fs, reader, Options{Strategy: StrategyKeyset})

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Rows != 40 || stats.Strategy != "keyset" {
		t.Fatalf("got stats %+v", stats)
	}
	if stats.DistinctActors == 0 || stats.DistinctActions == 0 {
		t.Fatalf("expected distinct counts from storage, got %+v", stats)
	}
	if got := fs.loadCalls.Load(); got != 0 {
		t.Fatalf("keyset mode ran %d bulk loads", got)
	}
}

func TestMaxIndexRowsFallsBackToKeyset(t *testing.T) {
	recs, reader := dataset(50)
	fs := &fakeStore{events: recs}
	svc := newTestService(fs, reader, Options{Strategy: StrategyIndexed, MaxIndexRows: 10})

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Strategy != "keyset" {
		t.Fatalf("expected keyset fallback, got %q", stats.Strategy)
	}
	if got := fs.loadCalls.Load(); got != 0 {
		t.Fatalf("fallback still ran %d bulk loads", got)
	}
}

func TestRefresh_SwapsWholeView(t *testing.T) {
	recs, reader := dataset(20)
	fs := &fakeStore{events: recs}
	svc := newTestService(fs, reader, Options{})

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Rows added after the build stay invisible until a refresh.
	more, moreReader := dataset(30)
	for off, doc := range moreReader.docs {
		reader.docs[off] = doc
	}
	fs.setEvents(more)

	page, err := svc.ListEvents(context.Background(), model.EventQuery{FromTS: 0, ToTS: 2000, Page: 1, PageSize: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Count != 20 {
		t.Fatalf("expected the old view's 20 events, got %d", page.Count)
	}

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page, err = svc.ListEvents(context.Background(), model.EventQuery{FromTS: 0, ToTS: 2000, Page: 1, PageSize: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Count != 30 {
		t.Fatalf("expected 30 events after refresh, got %d", page.Count)
	}
}

func TestRefresh_FailureKeepsOldView(t *testing.T) {
	recs, reader := dataset(20)
	fs := &fakeStore{events: recs}
	svc := newTestService(fs, reader, Options{})

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fs.failLoad = errors.New("connection refused")
	if err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh to fail")
	}
	page, err := svc.ListEvents(context.Background(), model.EventQuery{FromTS: 0, ToTS: 2000, Page: 1, PageSize: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Count != 20 {
		t.Fatalf("expected the old view to survive, got %d events", page.Count)
	}
}

func TestRefresh_ConcurrentReads(t *testing.T) {
	recs, reader := dataset(20)
	fs := &fakeStore{events: recs}
	svc := newTestService(fs, reader, Options{})

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	more, moreReader := dataset(35)
	for off, doc := range moreReader.docs {
		reader.docs[off] = doc
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	readErrs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				page, err := svc.ListEvents(context.Background(), model.EventQuery{FromTS: 0, ToTS: 2000, Page: 1, PageSize: 100})
				if err != nil {
					readErrs <- err
					return
				}
				// Every page comes from exactly one view, old or new.
				if page.Count != 20 && page.Count != 35 {
					readErrs <- fmt.Errorf("torn page with %d events", page.Count)
					return
				}
			}
		}()
	}

	fs.setEvents(more)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(stop)
	wg.Wait()
	close(readErrs)
	for err := range readErrs {
		t.Fatal(err)
	}
}

func TestParseStrategy(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyIndexed, false},
		{"indexed", StrategyIndexed, false},
		{"keyset", StrategyKeyset, false},
		{"cursor", "", true},
	} {
		got, err := ParseStrategy(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseStrategy(%q) did not fail", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseStrategy(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseStrategy(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
