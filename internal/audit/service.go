// Package audit implements the read side of the audit log. A snapshot of
// event metadata is built in memory on first use and serves windowed,
// filtered, paginated listings; payload documents are read from the payload
// log per request. Deployments whose dataset cannot be pinned in memory can
// run the keyset strategy instead, which answers the same queries straight
// from storage.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/groblegark/audittrail/internal/cursor"
	"github.com/groblegark/audittrail/internal/events"
	"github.com/groblegark/audittrail/internal/index"
	"github.com/groblegark/audittrail/internal/metrics"
	"github.com/groblegark/audittrail/internal/model"
	"github.com/groblegark/audittrail/internal/payload"
	"github.com/groblegark/audittrail/internal/store"
)

// Strategy selects how ListEvents produces a page. Both strategies return
// identical pages for the same query against the same dataset.
type Strategy string

const (
	// StrategyIndexed serves pages from the in-memory snapshot.
	StrategyIndexed Strategy = "indexed"

	// StrategyKeyset serves pages from storage with boundary-relative reads.
	// The first touch of a deep page pays an OFFSET scan to locate its
	// boundary; the boundary cache amortizes repeated and sequential access.
	StrategyKeyset Strategy = "keyset"
)

// ParseStrategy maps a configuration string to a Strategy. The empty string
// selects the default, StrategyIndexed.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "":
		return StrategyIndexed, nil
	case StrategyIndexed, StrategyKeyset:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown pagination strategy %q", s)
}

// state is everything a request needs from the last completed build. It is
// swapped in whole so readers never observe a half-updated view.
type state struct {
	strategy Strategy
	snapshot *index.Snapshot // nil when strategy is StrategyKeyset
	rows     int64
	builtAt  time.Time
	buildDur time.Duration
}

// Options tune strategy selection. The zero value serves every listing from
// the in-memory snapshot with no size bound.
type Options struct {
	// Strategy picks how listings are served. Defaults to StrategyIndexed.
	Strategy Strategy

	// MaxIndexRows caps how many rows the snapshot may hold. When the table
	// exceeds it at build time the service falls back to StrategyKeyset for
	// that build. Zero means no cap.
	MaxIndexRows int64
}

// Service answers audit log read queries. The first call to Initialize (or
// the first read, which initializes on demand) builds the view exactly once;
// concurrent callers wait for the in-flight build instead of starting their
// own. A failed build leaves the service uninitialized so a later call can
// retry.
type Service struct {
	store      store.Store
	payloads   payload.Reader
	boundaries cursor.Cache
	publisher  events.Publisher
	logger     *slog.Logger

	configured   Strategy
	maxIndexRows int64

	buildMu sync.Mutex
	current atomic.Pointer[state]
}

// New creates a Service over the given store and payload reader. boundaries
// and publisher may be nil; boundary caching and event publishing are then
// disabled. The view is not built until Initialize or the first read.
func New(st store.Store, payloads payload.Reader, boundaries cursor.Cache, publisher events.Publisher, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = &events.NoopPublisher{}
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyIndexed
	}
	return &Service{
		store:        st,
		payloads:     payloads,
		boundaries:   boundaries,
		publisher:    publisher,
		logger:       logger,
		configured:   opts.Strategy,
		maxIndexRows: opts.MaxIndexRows,
	}
}

// Initialize builds the view if it has not been built yet. The pointer to
// the current state doubles as the completion latch: it is checked before
// and after taking the build lock, and stored only on success, so exactly
// one build runs and a failure never publishes a half-built view.
func (s *Service) Initialize(ctx context.Context) error {
	if s.current.Load() != nil {
		return nil
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	if s.current.Load() != nil {
		return nil
	}

	st, err := s.build(ctx)
	if err != nil {
		return err
	}
	s.current.Store(st)
	return nil
}

// Refresh rebuilds the view unconditionally and swaps it in whole. Readers
// keep serving from the old view until the swap, and an error leaves the old
// view in place.
func (s *Service) Refresh(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	st, err := s.build(ctx)
	if err != nil {
		return err
	}
	s.current.Store(st)
	return nil
}

func (s *Service) ensureInitialized(ctx context.Context) (*state, error) {
	if st := s.current.Load(); st != nil {
		return st, nil
	}
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	return s.current.Load(), nil
}

// build produces a fresh state. Callers must hold buildMu.
func (s *Service) build(ctx context.Context) (*state, error) {
	start := time.Now()

	total, err := s.store.CountEvents(ctx)
	if err != nil {
		return nil, storageErr("count events", err)
	}

	strategy := s.configured
	if strategy == StrategyIndexed && s.maxIndexRows > 0 && total > s.maxIndexRows {
		s.logger.Warn("dataset exceeds the in-memory row cap, serving keyset pages instead",
			"rows", total, "max_index_rows", s.maxIndexRows)
		strategy = StrategyKeyset
	}

	st := &state{strategy: strategy, rows: total}
	if strategy == StrategyIndexed {
		records, err := s.store.LoadEvents(ctx)
		if err != nil {
			return nil, storageErr("load events", err)
		}
		st.snapshot = index.Build(records)
		st.rows = int64(st.snapshot.Len())
	}
	st.builtAt = time.Now()
	st.buildDur = time.Since(start)

	metrics.SnapshotRows.Set(float64(st.rows))
	metrics.SnapshotBuildDuration.Set(st.buildDur.Seconds())
	metrics.SnapshotBuilds.Inc()

	s.logger.Info("audit view ready",
		"rows", st.rows, "strategy", string(st.strategy), "build_ms", st.buildDur.Milliseconds())

	if err := s.publisher.Publish(ctx, events.TopicSnapshotBuilt, events.SnapshotBuilt{
		Rows:     int(st.rows),
		BuildMS:  st.buildDur.Milliseconds(),
		Strategy: string(st.strategy),
	}); err != nil {
		s.logger.Warn("publish snapshot event", "error", err)
	}

	return st, nil
}

// ListEvents returns one page of events matching the query, payloads
// attached, in canonical order (created_at descending, id descending). A
// window that matches nothing or a page past the end yields an empty page,
// not an error. Any payload read failure fails the whole request; a partial
// page is never returned.
func (s *Service) ListEvents(ctx context.Context, q model.EventQuery) (*model.EventPage, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	st, err := s.ensureInitialized(ctx)
	if err != nil {
		return nil, err
	}

	var page []model.AuditEvent
	switch st.strategy {
	case StrategyKeyset:
		page, err = s.listKeyset(ctx, q)
	default:
		page, err = s.listIndexed(ctx, st.snapshot, q)
	}
	if err != nil {
		return nil, err
	}
	if page == nil {
		page = []model.AuditEvent{}
	}

	metrics.PagesServed.WithLabelValues(string(st.strategy)).Inc()
	return &model.EventPage{Query: q, Events: page, Count: len(page)}, nil
}

func (s *Service) listIndexed(ctx context.Context, snap *index.Snapshot, q model.EventQuery) ([]model.AuditEvent, error) {
	positions := snap.Page(q)
	out := make([]model.AuditEvent, 0, len(positions))
	for _, pos := range positions {
		ev := snap.Record(pos)
		doc, err := s.readPayload(ctx, ev.Locator)
		if err != nil {
			return nil, err
		}
		ev.Payload = doc
		out = append(out, ev)
	}
	return out, nil
}

// listKeyset pages through storage relative to a boundary row, the last row
// before the requested page in canonical order. The boundary comes from the
// cache when a previous request walked past it, otherwise from an OFFSET
// probe. A missing boundary means the offset lies past the end of the
// filtered set.
func (s *Service) listKeyset(ctx context.Context, q model.EventQuery) ([]model.AuditEvent, error) {
	f := q.Filter()
	offset := q.Offset()

	var (
		rows []model.AuditEvent
		err  error
	)
	if offset == 0 {
		rows, err = s.store.ListFirstPage(ctx, f, q.PageSize)
		if err != nil {
			return nil, storageErr("list first page", err)
		}
	} else {
		cur, ok := s.lookupBoundary(ctx, f, offset)
		if !ok {
			found, err := s.store.FindBoundary(ctx, f, offset)
			if err != nil {
				return nil, storageErr("locate page boundary", err)
			}
			if found == nil {
				return nil, nil
			}
			cur = *found
			s.storeBoundary(ctx, f, offset, cur)
		}
		rows, err = s.store.ListAfterCursor(ctx, f, cur, q.PageSize)
		if err != nil {
			return nil, storageErr("list after boundary", err)
		}
	}

	out := make([]model.AuditEvent, 0, len(rows))
	for _, ev := range rows {
		doc, err := s.readPayload(ctx, ev.Locator)
		if err != nil {
			return nil, err
		}
		ev.Payload = doc
		out = append(out, ev)
	}

	// A full page means the next page exists; prime its boundary so a
	// sequential walk never pays the OFFSET probe twice.
	if len(rows) == q.PageSize {
		last := rows[len(rows)-1]
		s.storeBoundary(ctx, f, offset+q.PageSize, model.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return out, nil
}

// lookupBoundary consults the boundary cache. Cache errors degrade to a
// miss; the OFFSET probe is the fallback, not the request's failure.
func (s *Service) lookupBoundary(ctx context.Context, f model.EventFilter, offset int) (model.Cursor, bool) {
	if s.boundaries == nil {
		return model.Cursor{}, false
	}
	cur, ok, err := s.boundaries.Get(ctx, cursor.Key(f, offset))
	if err != nil {
		s.logger.Warn("boundary cache get", "error", err)
		metrics.BoundaryCacheMisses.Inc()
		return model.Cursor{}, false
	}
	if !ok {
		metrics.BoundaryCacheMisses.Inc()
		return model.Cursor{}, false
	}
	metrics.BoundaryCacheHits.Inc()
	return cur, true
}

func (s *Service) storeBoundary(ctx context.Context, f model.EventFilter, offset int, cur model.Cursor) {
	if s.boundaries == nil {
		return
	}
	if err := s.boundaries.Set(ctx, cursor.Key(f, offset), cur); err != nil {
		s.logger.Warn("boundary cache set", "error", err)
	}
}

// GetEvent returns a single event with its payload attached.
func (s *Service) GetEvent(ctx context.Context, id int64) (*model.AuditEvent, error) {
	st, err := s.ensureInitialized(ctx)
	if err != nil {
		return nil, err
	}

	var ev model.AuditEvent
	if st.snapshot != nil {
		rec, ok := st.snapshot.RecordByID(id)
		if !ok {
			return nil, ErrNotFound
		}
		ev = rec
	} else {
		rec, err := s.store.GetEvent(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, storageErr("get event", err)
		}
		ev = *rec
	}

	doc, err := s.readPayload(ctx, ev.Locator)
	if err != nil {
		return nil, err
	}
	ev.Payload = doc
	return &ev, nil
}

// Stats reports the active view. Unlike the read operations it does not
// initialize on demand: asking an uninitialized service for stats returns
// ErrNotInitialized.
func (s *Service) Stats(ctx context.Context) (*model.Stats, error) {
	st := s.current.Load()
	if st == nil {
		return nil, ErrNotInitialized
	}

	stats := &model.Stats{
		Rows:     st.rows,
		BuiltAt:  st.builtAt.Unix(),
		BuildMS:  st.buildDur.Milliseconds(),
		Strategy: string(st.strategy),
	}
	if st.snapshot != nil {
		stats.DistinctActors = st.snapshot.DistinctActors()
		stats.DistinctActions = st.snapshot.DistinctActions()
	} else {
		actors, actions, err := s.store.CountDistinct(ctx)
		if err != nil {
			return nil, storageErr("count distinct attributes", err)
		}
		stats.DistinctActors = int(actors)
		stats.DistinctActions = int(actions)
	}
	return stats, nil
}

// Payloads are read fresh on every request, never cached; the read happens
// inside a request-scoped borrow of the reader's handle.
func (s *Service) readPayload(ctx context.Context, loc model.PayloadLocator) (json.RawMessage, error) {
	start := time.Now()
	doc, err := s.payloads.Read(ctx, loc)
	metrics.PayloadReads.Inc()
	metrics.PayloadReadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PayloadReadFailures.Inc()
		return nil, err
	}
	return doc, nil
}
