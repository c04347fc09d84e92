package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/mittari/pkg/inventory"
)

func sized(region, zone string, bytes int64) inventory.SizingResult {
	return inventory.SizingResult{
		Descriptor: inventory.Descriptor{
			Kind:   inventory.KindDisk,
			Region: region,
			Zone:   zone,
			Name:   zone + "-disk",
		},
		Bytes: bytes,
	}
}

// A region with a 500-byte regional disk and a 300-byte zonal disk
// totals 800 at the region level while the zone subtotal stays 300:
// regional capacity is attributed once, never smeared across zones.
func TestRollupKeepsRegionalOutOfZoneSubtotals(t *testing.T) {
	rolls := Rollup([]inventory.SizingResult{
		sized("us-east1", "", 500),
		sized("us-east1", "us-east1-b", 300),
	})

	require.Len(t, rolls, 1)
	r := rolls[0]
	assert.Equal(t, "us-east1", r.Region)
	assert.Equal(t, 2, r.Count)
	assert.Equal(t, int64(800), r.TotalBytes)
	assert.Equal(t, int64(500), r.RegionalBytes)
	assert.Equal(t, int64(300), r.ZoneBytes["us-east1-b"])

	var zoneSum int64
	for _, b := range r.ZoneBytes {
		zoneSum += b
	}
	assert.Equal(t, r.TotalBytes, r.RegionalBytes+zoneSum)
}

func TestRollupSortsRegions(t *testing.T) {
	rolls := Rollup([]inventory.SizingResult{
		sized("us-west1", "us-west1-a", 1),
		sized("europe-north1", "europe-north1-a", 2),
		sized("asia-east1", "asia-east1-a", 3),
	})

	require.Len(t, rolls, 3)
	assert.Equal(t, "asia-east1", rolls[0].Region)
	assert.Equal(t, "europe-north1", rolls[1].Region)
	assert.Equal(t, "us-west1", rolls[2].Region)
}

func TestRollupCountsFailedResults(t *testing.T) {
	failed := inventory.SizingResult{
		Descriptor: inventory.Descriptor{Kind: inventory.KindBucket, Region: "us-east1"},
		Failure:    inventory.FailureTimeout,
	}
	rolls := Rollup([]inventory.SizingResult{failed})

	require.Len(t, rolls, 1)
	assert.Equal(t, 1, rolls[0].Count)
	assert.Zero(t, rolls[0].TotalBytes)
}
