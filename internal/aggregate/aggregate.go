// Package aggregate merges per-scope sizing results into one
// deduplicated inventory.
package aggregate

import (
	"sync"

	"github.com/google/btree"
	"github.com/rs/zerolog"

	"github.com/yairfalse/mittari/pkg/inventory"
)

type entry struct {
	key    string
	result inventory.SizingResult
}

func entryLess(a, b entry) bool { return a.key < b.key }

// Aggregator collects results from arbitrarily many concurrent
// workers. The dedup index is a btree keyed (kind, dedup key) so the
// final inventory iterates in stable order regardless of completion
// order.
type Aggregator struct {
	mu       sync.Mutex
	tree     *btree.BTreeG[entry]
	outcomes []inventory.ScopeOutcome
	logger   zerolog.Logger
}

// New creates an empty aggregator.
func New(logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		tree:   btree.NewG(16, entryLess),
		logger: logger,
	}
}

func indexKey(r inventory.SizingResult) string {
	return string(r.Descriptor.Kind) + "\x00" + r.Descriptor.DedupKey()
}

// Add records one sizing result. The first record for a given
// identity wins; later duplicates (the same disk seen via VM
// attachment and via the standalone disk list, say) are dropped, not
// overwritten, so values never flap across concurrent completions.
// Returns false when the result was a duplicate.
func (a *Aggregator) Add(r inventory.SizingResult) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	e := entry{key: indexKey(r), result: r}
	if _, dup := a.tree.Get(e); dup {
		a.logger.Debug().
			Str("kind", string(r.Descriptor.Kind)).
			Str("key", r.Descriptor.DedupKey()).
			Msg("duplicate resource dropped")
		return false
	}
	a.tree.ReplaceOrInsert(e)
	return true
}

// AddBatch records a slice of results and returns how many were kept.
func (a *Aggregator) AddBatch(results []inventory.SizingResult) int {
	kept := 0
	for _, r := range results {
		if a.Add(r) {
			kept++
		}
	}
	return kept
}

// AddOutcome records a scope's completion. Exactly one outcome per
// scope is the caller's invariant; the aggregator only stores them.
func (a *Aggregator) AddOutcome(o inventory.ScopeOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outcomes = append(a.outcomes, o)
}

// Inventory snapshots the merged result set. Safe to call once all
// workers have drained; the returned structure is never mutated by
// the aggregator afterwards.
func (a *Aggregator) Inventory() *inventory.Inventory {
	a.mu.Lock()
	defer a.mu.Unlock()

	inv := &inventory.Inventory{
		Results:  make(map[inventory.Kind][]inventory.SizingResult),
		Outcomes: append([]inventory.ScopeOutcome(nil), a.outcomes...),
	}
	a.tree.Ascend(func(e entry) bool {
		kind := e.result.Descriptor.Kind
		inv.Results[kind] = append(inv.Results[kind], e.result)
		return true
	})
	return inv
}
