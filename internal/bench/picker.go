package bench

import (
	"math/rand"
	"time"

	"github.com/groblegark/audittrail/internal/client"
)

const (
	windowDays = 7
	maxPage    = 2000
	maxActorID = 2000
)

var (
	pageSizes     = []int{10, 20, 50}
	benchActions  = []string{"", "UPDATE", "CREATE", "DELETE"}
	windowSeconds = int64(windowDays * 24 * 3600)
)

// Picker draws the randomized list queries the benchmark sends. It is not
// safe for concurrent use; the runner draws every request up front.
type Picker struct {
	rng *rand.Rand
	now func() time.Time
}

// NewPicker creates a picker. The same seed yields the same query sequence.
func NewPicker(seed int64) *Picker {
	return &Picker{rng: rand.New(rand.NewSource(seed)), now: time.Now}
}

// Pick draws one query: the last seven days, even odds of an actor filter,
// an action filter three times in four, and a page deep enough to exercise
// pagination.
func (p *Picker) Pick() *client.ListEventsRequest {
	now := p.now().Unix()
	from := now - windowSeconds

	req := &client.ListEventsRequest{
		FromTS:   &from,
		ToTS:     &now,
		Action:   benchActions[p.rng.Intn(len(benchActions))],
		Page:     p.rng.Intn(maxPage) + 1,
		PageSize: pageSizes[p.rng.Intn(len(pageSizes))],
	}
	if p.rng.Intn(2) == 1 {
		actor := p.rng.Int63n(maxActorID) + 1
		req.ActorID = &actor
	}
	return req
}
