package sizing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/mittari/internal/classify"
	"github.com/yairfalse/mittari/pkg/inventory"
)

func bucket(name string) inventory.Descriptor {
	return inventory.Descriptor{
		Kind:  inventory.KindBucket,
		Scope: "proj-a",
		ID:    "gs://" + name,
		Name:  name,
	}
}

func TestPreSizedDescriptorSkipsStrategies(t *testing.T) {
	called := false
	chain := NewChain(Strategy{Name: "never", Measure: func(ctx context.Context, d inventory.Descriptor) (int64, error) {
		called = true
		return 0, errors.New("should not run")
	}})

	d := inventory.Descriptor{
		Kind:      inventory.KindDisk,
		Name:      "data",
		SizeBytes: 500,
		Sized:     true,
		Attrs:     map[string]string{"source": "pvc-claim"},
	}
	r := chain.Size(context.Background(), d)

	assert.False(t, called)
	assert.Equal(t, int64(500), r.Bytes)
	assert.Equal(t, MethodEnumeration, r.Method)
	assert.Equal(t, "pvc-claim", r.Source)
	assert.False(t, r.Failed())
}

func TestFastPathWins(t *testing.T) {
	fallbackCalled := false
	chain := NewChain(
		Strategy{Name: "fast", Measure: func(ctx context.Context, d inventory.Descriptor) (int64, error) {
			return 1234, nil
		}},
		Strategy{Name: "slow", Measure: func(ctx context.Context, d inventory.Descriptor) (int64, error) {
			fallbackCalled = true
			return 0, nil
		}},
	)

	r := chain.Size(context.Background(), bucket("b"))

	assert.Equal(t, int64(1234), r.Bytes)
	assert.Equal(t, "fast", r.Method)
	assert.False(t, fallbackCalled)
}

func TestFallbackAfterFastPathFails(t *testing.T) {
	chain := NewChain(
		Strategy{Name: "fast", Measure: func(ctx context.Context, d inventory.Descriptor) (int64, error) {
			return 0, errors.New("no approximate size yet")
		}},
		Strategy{Name: "slow", Measure: func(ctx context.Context, d inventory.Descriptor) (int64, error) {
			return 9876, nil
		}},
	)

	r := chain.Size(context.Background(), bucket("b"))

	assert.Equal(t, int64(9876), r.Bytes)
	assert.Equal(t, "slow", r.Method)
	assert.False(t, r.Failed())
}

func TestAllStrategiesFailYieldsSingleClassifiedResult(t *testing.T) {
	chain := NewChain(
		Strategy{Name: "fast", Measure: func(ctx context.Context, d inventory.Descriptor) (int64, error) {
			return 0, errors.New("transient")
		}},
		Strategy{Name: "slow", Measure: func(ctx context.Context, d inventory.Descriptor) (int64, error) {
			return 0, &classify.ParseError{Call: "gsutil ls", Err: errors.New("garbage output")}
		}},
	)

	r := chain.Size(context.Background(), bucket("b"))

	require.True(t, r.Failed())
	assert.Zero(t, r.Bytes)
	// The last strategy's error is the one reported.
	assert.Equal(t, inventory.FailureParse, r.Failure)
	assert.Contains(t, r.Err, "gsutil ls")
}

func TestNilChainForUnsizedDescriptor(t *testing.T) {
	var chain *Chain
	r := chain.Size(context.Background(), bucket("b"))

	require.True(t, r.Failed())
	assert.Equal(t, inventory.FailureUnknown, r.Failure)
	assert.Contains(t, r.Err, "no sizing strategy")
	assert.Zero(t, chain.Len())
}

func TestCancelledContextStopsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	chain := NewChain(Strategy{Name: "fast", Measure: func(ctx context.Context, d inventory.Descriptor) (int64, error) {
		called = true
		return 1, nil
	}})

	r := chain.Size(ctx, bucket("b"))

	assert.False(t, called)
	require.True(t, r.Failed())
	assert.Contains(t, r.Err, context.Canceled.Error())
}
