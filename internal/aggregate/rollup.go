package aggregate

import (
	"sort"

	"github.com/yairfalse/mittari/pkg/inventory"
)

// RegionRollup sums capacity for one region. Regional resources (blank
// zone) are attributed once at the region level and deliberately kept
// out of every zone subtotal, so summing zone subtotals never double
// counts them.
type RegionRollup struct {
	Region        string
	Count         int
	TotalBytes    int64
	RegionalBytes int64
	ZoneBytes     map[string]int64
}

// Rollup groups results by region. Failed results contribute their
// zero byte count but still increment the item count, so a region
// whose every measurement failed is visible rather than absent.
func Rollup(results []inventory.SizingResult) []RegionRollup {
	byRegion := make(map[string]*RegionRollup)

	for _, r := range results {
		region := r.Descriptor.Region
		roll, ok := byRegion[region]
		if !ok {
			roll = &RegionRollup{Region: region, ZoneBytes: make(map[string]int64)}
			byRegion[region] = roll
		}
		roll.Count++
		roll.TotalBytes += r.Bytes
		if r.Descriptor.Regional() {
			roll.RegionalBytes += r.Bytes
		} else {
			roll.ZoneBytes[r.Descriptor.Zone] += r.Bytes
		}
	}

	regions := make([]RegionRollup, 0, len(byRegion))
	for _, roll := range byRegion {
		regions = append(regions, *roll)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Region < regions[j].Region })
	return regions
}
