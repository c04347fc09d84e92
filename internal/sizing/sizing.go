// Package sizing measures resource capacity through an ordered chain
// of strategies: a cheap fast path first, then an exhaustive fallback.
package sizing

import (
	"context"
	"fmt"

	"github.com/yairfalse/mittari/internal/classify"
	"github.com/yairfalse/mittari/pkg/inventory"
)

// MethodEnumeration marks results whose size came straight off the
// enumeration record, with no measurement call.
const MethodEnumeration = "enumeration"

// Strategy is one way of measuring a descriptor's capacity in bytes.
// Strategies must be safe to run concurrently with arbitrarily many
// siblings; they hold no shared mutable state.
type Strategy struct {
	Name    string
	Measure func(ctx context.Context, d inventory.Descriptor) (int64, error)
}

// Chain tries strategies in order and short-circuits on the first
// success. If every strategy fails the result carries zero bytes and
// the last error; the run never aborts on a sizing failure.
type Chain struct {
	strategies []Strategy
}

// NewChain builds a chain. An empty chain sizes nothing and is a
// programming error caught in Size.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Size produces exactly one SizingResult for the descriptor.
//
// Descriptors already sized by their list call degenerate to a pure
// transform. Otherwise each strategy is attempted in order; context
// cancellation stops the chain and surfaces as a timeout upstream.
func (c *Chain) Size(ctx context.Context, d inventory.Descriptor) inventory.SizingResult {
	if d.Sized {
		return inventory.SizingResult{
			Descriptor: d,
			Bytes:      d.SizeBytes,
			Method:     MethodEnumeration,
			Source:     d.Attrs["source"],
		}
	}

	if c == nil || len(c.strategies) == 0 {
		return inventory.SizingResult{
			Descriptor: d,
			Failure:    inventory.FailureUnknown,
			Err:        fmt.Sprintf("no sizing strategy for kind %s", d.Kind),
		}
	}

	var lastErr error
	for _, s := range c.strategies {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
		bytes, err := s.Measure(ctx, d)
		if err == nil {
			return inventory.SizingResult{
				Descriptor: d,
				Bytes:      bytes,
				Method:     s.Name,
			}
		}
		lastErr = err
	}

	return inventory.SizingResult{
		Descriptor: d,
		Failure:    classify.FromError(lastErr),
		Err:        lastErr.Error(),
	}
}

// Len returns the number of strategies in the chain.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.strategies)
}
