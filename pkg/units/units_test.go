package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinaryAndDecimalDiverge(t *testing.T) {
	bytes := FromGiB(100) // 107374182400

	assert.Equal(t, "100", ToGiB(bytes).String())
	assert.Equal(t, "107.37", ToGB(bytes).String())
	assert.Equal(t, "0.1", ToTiB(bytes).String())
	assert.Equal(t, "0.11", ToTB(bytes).String())
}

func TestRoundingToTwoPlaces(t *testing.T) {
	// 1.5 GiB exactly
	assert.Equal(t, "1.5", ToGiB(GiB+GiB/2).String())
	// One byte over rounds away
	assert.Equal(t, "1.5", ToGiB(GiB+GiB/2+1).String())
	// A third of a GiB rounds to two places
	assert.Equal(t, "0.33", ToGiB(GiB/3).String())
}

func TestZeroBytes(t *testing.T) {
	assert.True(t, ToGB(0).IsZero())
	assert.True(t, ToTiB(0).IsZero())
}

func TestFromGB(t *testing.T) {
	assert.Equal(t, int64(2_000_000_000), FromGB(2))
	assert.Equal(t, int64(2<<30), FromGiB(2))
}
