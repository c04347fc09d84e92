package aws

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yairfalse/mittari/internal/classify"
	"github.com/yairfalse/mittari/pkg/inventory"
	"github.com/yairfalse/mittari/pkg/units"
)

var errNoSummary = errors.New("no Total Size line in listing")

// instanceVolumes sums the volumes attached to one instance. The disk
// kind lists the same volumes marked attached, and cross-kind totals
// count the overlap once.
func (p *Provider) instanceVolumes(ctx context.Context, d inventory.Descriptor) (int64, error) {
	var volumes volumeList
	err := p.call(ctx, &volumes,
		"ec2", "describe-volumes",
		"--filters", "Name=attachment.instance-id,Values="+d.ID,
		"--region", d.Region)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, v := range volumes.Volumes {
		total += v.Size
	}
	return units.FromGiB(total), nil
}

// bucketMetric is the fast path: the daily BucketSizeBytes metric
// CloudWatch publishes for every bucket. New buckets have no
// datapoints yet, which falls through to the object walk.
func (p *Provider) bucketMetric(ctx context.Context, d inventory.Descriptor) (int64, error) {
	now := time.Now().UTC()
	var stats metricStatistics
	err := p.call(ctx, &stats,
		"cloudwatch", "get-metric-statistics",
		"--namespace", "AWS/S3",
		"--metric-name", "BucketSizeBytes",
		"--dimensions",
		"Name=BucketName,Value="+d.Name,
		"Name=StorageType,Value=StandardStorage",
		"--start-time", now.Add(-48*time.Hour).Format(time.RFC3339),
		"--end-time", now.Format(time.RFC3339),
		"--period", "86400",
		"--statistics", "Average",
		"--region", d.Region)
	if err != nil {
		return 0, err
	}
	if len(stats.Datapoints) == 0 {
		return 0, fmt.Errorf("no BucketSizeBytes datapoints for %s", d.Name)
	}

	latest := stats.Datapoints[0]
	for _, dp := range stats.Datapoints[1:] {
		if dp.Timestamp > latest.Timestamp {
			latest = dp
		}
	}
	return int64(latest.Average), nil
}

// bucketWalk is the exhaustive fallback: every object listed, summary
// line parsed. Slow on large buckets, hence last.
func (p *Provider) bucketWalk(ctx context.Context, d inventory.Descriptor) (int64, error) {
	out, err := p.runner.Run(ctx, "aws",
		"s3", "ls", d.ID, "--recursive", "--summarize", "--region", d.Region)
	if err != nil {
		return 0, err
	}
	return parseTotalSize(out.Stdout)
}

// parseTotalSize reads the "Total Size: 123456" line aws s3 ls
// --summarize appends.
func parseTotalSize(stdout string) (int64, error) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		rest, found := strings.CutPrefix(line, "Total Size:")
		if !found {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
		if err != nil {
			return 0, &classify.ParseError{Call: "aws s3 ls", Err: err}
		}
		return n, nil
	}
	return 0, &classify.ParseError{Call: "aws s3 ls", Err: errNoSummary}
}
