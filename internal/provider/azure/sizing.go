package azure

import (
	"context"
	"fmt"

	"github.com/yairfalse/mittari/pkg/inventory"
)

// accountUsedCapacity is the fast path: one metrics call on the
// storage account for everything it stores.
func (p *Provider) accountUsedCapacity(ctx context.Context, d inventory.Descriptor) (int64, error) {
	return p.latestMetric(ctx, d.ID, "UsedCapacity")
}

// accountBlobCapacity is the fallback for accounts whose account-level
// metric has not materialized: blob capacity only, read off the blob
// service sub-resource.
func (p *Provider) accountBlobCapacity(ctx context.Context, d inventory.Descriptor) (int64, error) {
	return p.latestMetric(ctx, d.ID+"/blobServices/default", "BlobCapacity")
}

// latestMetric reads the newest datapoint of one byte-valued metric.
func (p *Provider) latestMetric(ctx context.Context, resourceID, metric string) (int64, error) {
	var resp metricsResponse
	err := p.az(ctx, &resp,
		"monitor", "metrics", "list",
		"--resource", resourceID,
		"--metric", metric,
		"--aggregation", "Average",
		"--interval", "PT1H")
	if err != nil {
		return 0, err
	}

	for _, v := range resp.Value {
		for _, ts := range v.Timeseries {
			for i := len(ts.Data) - 1; i >= 0; i-- {
				if ts.Data[i].Average != nil {
					return int64(*ts.Data[i].Average), nil
				}
			}
		}
	}
	return 0, fmt.Errorf("metric %s has no datapoints for %s", metric, resourceID)
}

// databaseSize reads one database's current size, falling back to the
// provisioned maximum when usage is not reported.
func (p *Provider) databaseSize(ctx context.Context, d inventory.Descriptor) (int64, error) {
	var detail sqlDatabaseDetail
	if err := p.az(ctx, &detail, "sql", "db", "show", "--ids", d.ID); err != nil {
		return 0, err
	}
	if detail.CurrentSizeBytes != nil && *detail.CurrentSizeBytes > 0 {
		return *detail.CurrentSizeBytes, nil
	}
	return detail.MaxSizeBytes, nil
}
