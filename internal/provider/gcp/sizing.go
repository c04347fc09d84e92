package gcp

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/yairfalse/mittari/internal/classify"
	"github.com/yairfalse/mittari/pkg/inventory"
)

var (
	errEmptyOutput = errors.New("empty summary output")
	errNoTotalLine = errors.New("no TOTAL line in listing")
)

// bucketDU is the fast path: one summary line per bucket. Fails on
// buckets gsutil cannot summarize, which falls through to bucketLS.
func (p *Provider) bucketDU(ctx context.Context, d inventory.Descriptor) (int64, error) {
	out, err := p.runner.Run(ctx, "gsutil", "du", "-s", d.ID)
	if err != nil {
		return 0, err
	}
	return parseDU(out.Stdout)
}

// bucketLS is the exhaustive fallback: lists every object and reads
// the trailing TOTAL line. Slow on large buckets, hence last.
func (p *Provider) bucketLS(ctx context.Context, d inventory.Descriptor) (int64, error) {
	out, err := p.runner.Run(ctx, "gsutil", "ls", "-l", d.ID+"/**")
	if err != nil {
		// An empty bucket has no objects to list; that is zero bytes,
		// not a failure.
		if strings.Contains(out.Combined(), "matched no objects") {
			return 0, nil
		}
		return 0, err
	}
	return parseLSTotal(out.Stdout)
}

// parseDU reads "123456  gs://bucket" summary output.
func parseDU(stdout string) (int64, error) {
	fields := strings.Fields(stdout)
	if len(fields) < 1 {
		return 0, &classify.ParseError{Call: "gsutil du", Err: errEmptyOutput}
	}
	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, &classify.ParseError{Call: "gsutil du", Err: err}
	}
	return n, nil
}

// parseLSTotal reads the "TOTAL: 42 objects, 123456 bytes (117.7 KiB)"
// line gsutil ls -l appends.
func parseLSTotal(stdout string) (int64, error) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "TOTAL:") {
			continue
		}
		fields := strings.Fields(line)
		for j := 0; j+1 < len(fields); j++ {
			if fields[j+1] == "bytes" {
				n, err := strconv.ParseInt(fields[j], 10, 64)
				if err != nil {
					return 0, &classify.ParseError{Call: "gsutil ls", Err: err}
				}
				return n, nil
			}
		}
	}
	return 0, &classify.ParseError{Call: "gsutil ls", Err: errNoTotalLine}
}
