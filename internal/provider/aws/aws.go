// Package aws inventories Amazon Web Services resources through the
// aws CLI. Scopes are account/region pairs: the CLI sees one account,
// and every enabled region in it becomes a scope.
package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yairfalse/mittari/internal/classify"
	"github.com/yairfalse/mittari/internal/provider"
	"github.com/yairfalse/mittari/internal/runner"
	"github.com/yairfalse/mittari/internal/sizing"
	"github.com/yairfalse/mittari/pkg/inventory"
	"github.com/yairfalse/mittari/pkg/units"
)

func init() {
	provider.Register("aws", func(cfg provider.Config) (provider.Provider, error) {
		return New(cfg.Runner, cfg.Logger), nil
	})
}

// Provider implements the aws inventory.
type Provider struct {
	runner runner.Runner
	logger zerolog.Logger

	mu      sync.Mutex
	buckets []locatedBucket
}

// locatedBucket pairs a bucket with its home region. The bucket list
// is account-global, so the pairing is resolved once per run.
type locatedBucket struct {
	name   string
	region string
}

// New creates the provider with the given CLI runner.
func New(r runner.Runner, logger zerolog.Logger) *Provider {
	return &Provider{runner: r, logger: logger}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "aws" }

// Kinds returns the resource kinds aws can inventory.
func (p *Provider) Kinds() []inventory.Kind {
	return []inventory.Kind{
		inventory.KindVM,
		inventory.KindDisk,
		inventory.KindBucket,
		inventory.KindDatabase,
		inventory.KindKubernetesCluster,
	}
}

// call invokes aws with JSON output and decodes into out.
func (p *Provider) call(ctx context.Context, out any, args ...string) error {
	args = append(args, "--output", "json", "--no-cli-pager")
	output, err := p.runner.Run(ctx, "aws", args...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(output.Stdout), out); err != nil {
		return &classify.ParseError{Call: "aws " + strings.Join(args, " "), Err: err}
	}
	return nil
}

// ListScopes pairs the caller's account with every enabled region.
func (p *Provider) ListScopes(ctx context.Context) ([]inventory.Scope, error) {
	var identity callerIdentity
	if err := p.call(ctx, &identity, "sts", "get-caller-identity"); err != nil {
		return nil, err
	}

	var regions regionList
	if err := p.call(ctx, &regions, "ec2", "describe-regions"); err != nil {
		return nil, err
	}

	scopes := make([]inventory.Scope, 0, len(regions.Regions))
	for _, r := range regions.Regions {
		scopes = append(scopes, inventory.Scope{
			ID:         identity.Account + "/" + r.RegionName,
			Name:       r.RegionName,
			Provider:   "aws",
			Accessible: true,
		})
	}
	return scopes, nil
}

// scopeRegion extracts the region half of an account/region scope id.
func scopeRegion(scope inventory.Scope) string {
	if i := strings.LastIndex(scope.ID, "/"); i >= 0 {
		return scope.ID[i+1:]
	}
	return scope.ID
}

// scopeAccount extracts the account half of an account/region scope id.
func scopeAccount(scope inventory.Scope) string {
	if i := strings.LastIndex(scope.ID, "/"); i >= 0 {
		return scope.ID[:i]
	}
	return scope.ID
}

// List enumerates one kind in one account/region scope.
func (p *Provider) List(ctx context.Context, scope inventory.Scope, kind inventory.Kind) ([]inventory.Descriptor, error) {
	switch kind {
	case inventory.KindVM:
		return p.listInstances(ctx, scope)
	case inventory.KindDisk:
		return p.listVolumes(ctx, scope)
	case inventory.KindBucket:
		return p.listBuckets(ctx, scope)
	case inventory.KindDatabase:
		return p.listDBInstances(ctx, scope)
	case inventory.KindKubernetesCluster:
		return p.listClusters(ctx, scope)
	default:
		return nil, fmt.Errorf("aws does not inventory kind %q", kind)
	}
}

// SizingChain returns measurement strategies. Instances are measured
// through the volumes attached to them; buckets get the CloudWatch
// storage metric first and a full object walk as fallback.
func (p *Provider) SizingChain(kind inventory.Kind) *sizing.Chain {
	switch kind {
	case inventory.KindVM:
		return sizing.NewChain(
			sizing.Strategy{Name: "volume-attachments", Measure: p.instanceVolumes},
		)
	case inventory.KindBucket:
		return sizing.NewChain(
			sizing.Strategy{Name: "cloudwatch-bucket-size", Measure: p.bucketMetric},
			sizing.Strategy{Name: "s3-ls-summarize", Measure: p.bucketWalk},
		)
	default:
		return nil
	}
}

func (p *Provider) listInstances(ctx context.Context, scope inventory.Scope) ([]inventory.Descriptor, error) {
	region := scopeRegion(scope)
	var reservations reservationList
	err := p.call(ctx, &reservations,
		"ec2", "describe-instances", "--region", region)
	if err != nil {
		return nil, err
	}

	var descriptors []inventory.Descriptor
	for _, r := range reservations.Reservations {
		for _, vm := range r.Instances {
			if vm.State.Name == "terminated" {
				continue
			}
			descriptors = append(descriptors, inventory.Descriptor{
				Kind:   inventory.KindVM,
				Scope:  scope.ID,
				ID:     vm.InstanceID,
				Name:   nameTag(vm.Tags, vm.InstanceID),
				Region: region,
				Zone:   vm.Placement.AvailabilityZone,
				Attrs: map[string]string{
					"state":         vm.State.Name,
					"instance_type": vm.InstanceType,
					"volumes":       fmt.Sprintf("%d", len(vm.BlockDeviceMappings)),
				},
			})
		}
	}
	return descriptors, nil
}

func (p *Provider) listVolumes(ctx context.Context, scope inventory.Scope) ([]inventory.Descriptor, error) {
	region := scopeRegion(scope)
	var volumes volumeList
	err := p.call(ctx, &volumes,
		"ec2", "describe-volumes", "--region", region)
	if err != nil {
		return nil, err
	}

	descriptors := make([]inventory.Descriptor, 0, len(volumes.Volumes))
	for _, v := range volumes.Volumes {
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:      inventory.KindDisk,
			Scope:     scope.ID,
			ID:        v.VolumeID,
			Name:      nameTag(v.Tags, v.VolumeID),
			Region:    region,
			Zone:      v.AvailabilityZone,
			SizeBytes: units.FromGiB(v.Size),
			Sized:     true,
			Attrs: map[string]string{
				"state":    v.State,
				"type":     v.VolumeType,
				"attached": fmt.Sprintf("%t", len(v.Attachments) > 0),
			},
		})
	}
	return descriptors, nil
}

// listBuckets keeps the account's buckets homed in this scope's
// region. The bucket list is account-global, so without the location
// filter every region scope would re-measure every bucket.
func (p *Provider) listBuckets(ctx context.Context, scope inventory.Scope) ([]inventory.Descriptor, error) {
	region := scopeRegion(scope)
	buckets, err := p.accountBuckets(ctx)
	if err != nil {
		return nil, err
	}

	var descriptors []inventory.Descriptor
	for _, b := range buckets {
		if b.region != region {
			continue
		}
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:   inventory.KindBucket,
			Scope:  scope.ID,
			ID:     "s3://" + b.name,
			Name:   b.name,
			Region: region,
		})
	}
	return descriptors, nil
}

// accountBuckets fetches the bucket list and each bucket's home region
// once per run and caches the pairing; every region scope filters from
// the same snapshot.
func (p *Provider) accountBuckets(ctx context.Context) ([]locatedBucket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.buckets != nil {
		return p.buckets, nil
	}

	var buckets bucketList
	if err := p.call(ctx, &buckets, "s3api", "list-buckets"); err != nil {
		return nil, err
	}

	located := make([]locatedBucket, 0, len(buckets.Buckets))
	for _, b := range buckets.Buckets {
		var loc bucketLocation
		err := p.call(ctx, &loc,
			"s3api", "get-bucket-location", "--bucket", b.Name)
		if err != nil {
			// A bucket we cannot locate is owned but locked down.
			p.logger.Warn().Err(err).Str("bucket", b.Name).Msg("bucket location unavailable")
			continue
		}
		located = append(located, locatedBucket{name: b.Name, region: bucketRegion(loc)})
	}
	p.buckets = located
	return located, nil
}

// bucketRegion maps the location constraint to a region name; the
// original partition returns null for us-east-1.
func bucketRegion(loc bucketLocation) string {
	if loc.LocationConstraint == "" {
		return "us-east-1"
	}
	return loc.LocationConstraint
}

func (p *Provider) listDBInstances(ctx context.Context, scope inventory.Scope) ([]inventory.Descriptor, error) {
	region := scopeRegion(scope)
	var dbs dbInstanceList
	err := p.call(ctx, &dbs,
		"rds", "describe-db-instances", "--region", region)
	if err != nil {
		return nil, err
	}

	descriptors := make([]inventory.Descriptor, 0, len(dbs.DBInstances))
	for _, db := range dbs.DBInstances {
		zone := db.AvailabilityZone
		if db.MultiAZ {
			zone = ""
		}
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:      inventory.KindDatabase,
			Scope:     scope.ID,
			ID:        db.DBInstanceArn,
			Name:      db.DBInstanceIdentifier,
			Region:    region,
			Zone:      zone,
			SizeBytes: units.FromGiB(db.AllocatedStorage),
			Sized:     true,
			Attrs: map[string]string{
				"status": db.DBInstanceStatus,
				"engine": db.Engine,
			},
		})
	}
	return descriptors, nil
}

// listClusters enumerates EKS clusters with the one list call. The
// cluster ARN is deterministic from account, region, and name, so no
// per-cluster describe is needed.
func (p *Provider) listClusters(ctx context.Context, scope inventory.Scope) ([]inventory.Descriptor, error) {
	account := scopeAccount(scope)
	region := scopeRegion(scope)
	var names clusterNameList
	err := p.call(ctx, &names,
		"eks", "list-clusters", "--region", region)
	if err != nil {
		return nil, err
	}

	var descriptors []inventory.Descriptor
	for _, name := range names.Clusters {
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:   inventory.KindKubernetesCluster,
			Scope:  scope.ID,
			ID:     "arn:aws:eks:" + region + ":" + account + ":cluster/" + name,
			Name:   name,
			Region: region,
			Sized:  true, // capacity is carried by the EBS volumes
		})
	}
	return descriptors, nil
}

// nameTag reads the Name tag, falling back to the native id.
func nameTag(tags []tag, fallback string) string {
	for _, t := range tags {
		if t.Key == "Name" && t.Value != "" {
			return t.Value
		}
	}
	return fallback
}
