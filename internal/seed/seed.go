// Package seed generates the audit fixture dataset: metadata rows in the
// store and one payload document per row appended to the payload log.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/groblegark/audittrail/internal/events"
	"github.com/groblegark/audittrail/internal/model"
	"github.com/groblegark/audittrail/internal/payload"
	"github.com/groblegark/audittrail/internal/store"
)

const (
	// DefaultRows is the dataset size seeded when none is requested.
	DefaultRows = 50000
	// DefaultSeed makes repeated seeds reproduce the same dataset.
	DefaultSeed = 1337
	// DefaultBatchSize is the number of rows per insert batch.
	DefaultBatchSize = 2000

	noteMinChars = 256
	noteMaxChars = 1024
	maxAgeSecs   = 30 * 24 * 60 * 60
	maxActorID   = 2000
	maxResource  = 5_000_000
	diffFields   = 20
	tagCount     = 10
)

var tagAlphabet = []string{"a", "b", "c", "d", "e"}

// Options configures one seeding run. Zero values fall back to the defaults
// above; Now pins the timestamp base for reproducible datasets and defaults
// to the wall clock.
type Options struct {
	Rows      int
	Seed      int64
	BatchSize int
	Now       int64
}

// Result summarizes a completed seeding run.
type Result struct {
	Rows         int
	PayloadBytes int64
	Duration     time.Duration
}

// Seeder writes deterministic audit fixture data. The same seed always
// produces the same rows, payload documents, and locators.
type Seeder struct {
	store     store.Store
	logger    *slog.Logger
	publisher events.Publisher
}

// New creates a seeder over the given store. A nil logger falls back to
// slog.Default; a nil publisher drops the completion event.
func New(st store.Store, logger *slog.Logger, publisher events.Publisher) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = &events.NoopPublisher{}
	}
	return &Seeder{store: st, logger: logger, publisher: publisher}
}

type payloadMeta struct {
	IP     string `json:"ip"`
	UA     string `json:"ua"`
	Region string `json:"region"`
}

type payloadDoc struct {
	Diff map[string][2]int `json:"diff"`
	Meta payloadMeta       `json:"meta"`
	Tags []string          `json:"tags"`
	Note string            `json:"note"`
}

// Run generates opts.Rows events with ids assigned monotonically from 1.
// Each payload document is appended to the log first so its locator lands in
// the metadata row, then rows are inserted in batches. On success a
// seed-completion event is published.
func (s *Seeder) Run(ctx context.Context, w *payload.Writer, opts Options) (*Result, error) {
	if opts.Rows <= 0 {
		opts.Rows = DefaultRows
	}
	if opts.Seed == 0 {
		opts.Seed = DefaultSeed
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	now := opts.Now
	if now == 0 {
		now = time.Now().Unix()
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	faker := gofakeit.New(opts.Seed)

	s.logger.Info("seeding audit events", "rows", opts.Rows, "seed", opts.Seed)
	start := time.Now()

	batch := make([]model.AuditEvent, 0, opts.BatchSize)
	for i := 0; i < opts.Rows; i++ {
		event, doc := makeEvent(rng, faker, now)
		event.ID = int64(i + 1)

		data, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshal payload document: %w", err)
		}
		loc, err := w.Append(data)
		if err != nil {
			return nil, err
		}
		event.Locator = loc

		batch = append(batch, event)
		if len(batch) >= opts.BatchSize {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := s.store.InsertEvents(ctx, batch); err != nil {
				return nil, fmt.Errorf("insert batch at row %d: %w", i+1, err)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := s.store.InsertEvents(ctx, batch); err != nil {
			return nil, fmt.Errorf("insert final batch: %w", err)
		}
	}

	// Flush before announcing completion; a subscriber may start reading
	// payloads the moment the event lands.
	if err := w.Flush(); err != nil {
		return nil, err
	}

	res := &Result{
		Rows:         opts.Rows,
		PayloadBytes: w.Offset(),
		Duration:     time.Since(start),
	}
	s.logger.Info("seed complete",
		"rows", res.Rows,
		"payload_bytes", res.PayloadBytes,
		"duration", res.Duration)

	err := s.publisher.Publish(ctx, events.TopicSeedCompleted, events.SeedCompleted{
		Rows:         res.Rows,
		Seed:         opts.Seed,
		PayloadBytes: res.PayloadBytes,
		PayloadPath:  w.Name(),
	})
	if err != nil {
		s.logger.Warn("failed to publish seed completion", "error", err)
	}

	return res, nil
}

// makeEvent draws one row. The rng drives every attribute that shapes query
// results; the faker only fills payload metadata strings.
func makeEvent(rng *rand.Rand, faker *gofakeit.Faker, now int64) (model.AuditEvent, payloadDoc) {
	createdAt := now - rng.Int63n(maxAgeSecs+1)
	actorID := rng.Int63n(maxActorID) + 1
	action := model.Actions[rng.Intn(len(model.Actions))]
	rtype := model.ResourceTypes[rng.Intn(len(model.ResourceTypes))]
	rid := fmt.Sprintf("%s-%d", rtype, rng.Int63n(maxResource)+1)

	diff := make(map[string][2]int, diffFields)
	for j := 0; j < diffFields; j++ {
		diff[fmt.Sprintf("field_%d", j)] = [2]int{rng.Intn(1001), rng.Intn(1001)}
	}
	tags := make([]string, tagCount)
	for j := range tags {
		tags[j] = tagAlphabet[rng.Intn(len(tagAlphabet))]
	}

	doc := payloadDoc{
		Diff: diff,
		Meta: payloadMeta{
			IP:     faker.IPv4Address(),
			UA:     faker.UserAgent(),
			Region: faker.TimeZoneRegion(),
		},
		Tags: tags,
		Note: faker.LetterN(uint(noteMinChars + rng.Intn(noteMaxChars-noteMinChars+1))),
	}

	return model.AuditEvent{
		CreatedAt:    createdAt,
		ActorID:      actorID,
		Action:       action,
		ResourceType: rtype,
		ResourceID:   rid,
	}, doc
}
