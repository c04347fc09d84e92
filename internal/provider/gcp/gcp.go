// Package gcp inventories Google Cloud resources through the gcloud,
// gsutil, and kubectl CLIs.
package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yairfalse/mittari/internal/classify"
	"github.com/yairfalse/mittari/internal/kube"
	"github.com/yairfalse/mittari/internal/provider"
	"github.com/yairfalse/mittari/internal/runner"
	"github.com/yairfalse/mittari/internal/sizing"
	"github.com/yairfalse/mittari/pkg/inventory"
	"github.com/yairfalse/mittari/pkg/units"
)

func init() {
	provider.Register("gcp", func(cfg provider.Config) (provider.Provider, error) {
		return New(cfg.Runner, cfg.Logger), nil
	})
}

// Provider implements the gcp inventory.
type Provider struct {
	runner runner.Runner
	logger zerolog.Logger
}

// New creates the provider with the given CLI runner.
func New(r runner.Runner, logger zerolog.Logger) *Provider {
	return &Provider{runner: r, logger: logger}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "gcp" }

// Kinds returns the resource kinds gcp can inventory.
func (p *Provider) Kinds() []inventory.Kind {
	return []inventory.Kind{
		inventory.KindVM,
		inventory.KindDisk,
		inventory.KindBucket,
		inventory.KindFileShare,
		inventory.KindDatabase,
		inventory.KindKubernetesCluster,
		inventory.KindPersistentVolume,
	}
}

// gcloud invokes gcloud with JSON output and decodes into out.
func (p *Provider) gcloud(ctx context.Context, out any, args ...string) error {
	args = append(args, "--format=json", "--quiet")
	output, err := p.runner.Run(ctx, "gcloud", args...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(output.Stdout), out); err != nil {
		return &classify.ParseError{Call: "gcloud " + strings.Join(args, " "), Err: err}
	}
	return nil
}

// ListScopes discovers accessible projects.
func (p *Provider) ListScopes(ctx context.Context) ([]inventory.Scope, error) {
	var projects []project
	if err := p.gcloud(ctx, &projects, "projects", "list"); err != nil {
		return nil, err
	}

	scopes := make([]inventory.Scope, 0, len(projects))
	for _, pr := range projects {
		scopes = append(scopes, inventory.Scope{
			ID:         pr.ProjectID,
			Name:       pr.Name,
			Provider:   "gcp",
			Accessible: pr.LifecycleState == "ACTIVE",
		})
	}
	return scopes, nil
}

// List enumerates one kind in one project with a single gcloud call.
func (p *Provider) List(ctx context.Context, scope inventory.Scope, kind inventory.Kind) ([]inventory.Descriptor, error) {
	switch kind {
	case inventory.KindVM:
		return p.listInstances(ctx, scope)
	case inventory.KindDisk:
		return p.listDisks(ctx, scope)
	case inventory.KindBucket:
		return p.listBuckets(ctx, scope)
	case inventory.KindFileShare:
		return p.listFileShares(ctx, scope)
	case inventory.KindDatabase:
		return p.listSQLInstances(ctx, scope)
	case inventory.KindKubernetesCluster:
		return p.listClusters(ctx, scope)
	case inventory.KindPersistentVolume:
		return p.listPersistentVolumes(ctx, scope)
	default:
		return nil, fmt.Errorf("gcp does not inventory kind %q", kind)
	}
}

// SizingChain returns measurement strategies. Only buckets need a
// separate measurement; everything else is sized by its list call.
// Persistent volumes that lost their capacity at reconciliation keep
// the parse error in the descriptor, and the chain surfaces it.
func (p *Provider) SizingChain(kind inventory.Kind) *sizing.Chain {
	switch kind {
	case inventory.KindBucket:
		return sizing.NewChain(
			sizing.Strategy{Name: "gsutil-du", Measure: p.bucketDU},
			sizing.Strategy{Name: "gsutil-ls", Measure: p.bucketLS},
		)
	case inventory.KindPersistentVolume:
		return sizing.NewChain(sizing.Strategy{Name: "kubectl", Measure: kube.SizingError})
	default:
		return nil
	}
}

func (p *Provider) listInstances(ctx context.Context, scope inventory.Scope) ([]inventory.Descriptor, error) {
	var instances []computeInstance
	if err := p.gcloud(ctx, &instances, "compute", "instances", "list", "--project", scope.ID); err != nil {
		return nil, err
	}

	descriptors := make([]inventory.Descriptor, 0, len(instances))
	for _, vm := range instances {
		zone := path.Base(vm.Zone)
		var attachedGB int64
		for _, d := range vm.Disks {
			attachedGB += parseGBString(d.DiskSizeGB)
		}
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:      inventory.KindVM,
			Scope:     scope.ID,
			ID:        vm.SelfLink,
			Name:      vm.Name,
			Region:    regionOfZone(zone),
			Zone:      zone,
			SizeBytes: units.FromGiB(attachedGB),
			Sized:     true,
			Attrs: map[string]string{
				"status":       vm.Status,
				"machine_type": path.Base(vm.MachineType),
				"disks":        strconv.Itoa(len(vm.Disks)),
			},
		})
	}
	return descriptors, nil
}

func (p *Provider) listDisks(ctx context.Context, scope inventory.Scope) ([]inventory.Descriptor, error) {
	var disks []computeDisk
	if err := p.gcloud(ctx, &disks, "compute", "disks", "list", "--project", scope.ID); err != nil {
		return nil, err
	}

	descriptors := make([]inventory.Descriptor, 0, len(disks))
	for _, d := range disks {
		// Regional disks carry a region URL and no zone; the blank
		// zone keeps them out of zone subtotals at rollup.
		var zone, region string
		if d.Zone != "" {
			zone = path.Base(d.Zone)
			region = regionOfZone(zone)
		} else {
			region = path.Base(d.Region)
		}
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:      inventory.KindDisk,
			Scope:     scope.ID,
			ID:        d.SelfLink,
			Name:      d.Name,
			Region:    region,
			Zone:      zone,
			SizeBytes: units.FromGiB(parseGBString(d.SizeGB)),
			Sized:     true,
			Attrs: map[string]string{
				"type":     path.Base(d.Type),
				"attached": strconv.FormatBool(len(d.Users) > 0),
			},
		})
	}
	return descriptors, nil
}

func (p *Provider) listBuckets(ctx context.Context, scope inventory.Scope) ([]inventory.Descriptor, error) {
	var buckets []storageBucket
	if err := p.gcloud(ctx, &buckets, "storage", "buckets", "list", "--project", scope.ID); err != nil {
		return nil, err
	}

	descriptors := make([]inventory.Descriptor, 0, len(buckets))
	for _, b := range buckets {
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:   inventory.KindBucket,
			Scope:  scope.ID,
			ID:     "gs://" + b.Name,
			Name:   b.Name,
			Region: strings.ToLower(b.Location),
			Attrs:  map[string]string{"storage_class": b.StorageClass},
		})
	}
	return descriptors, nil
}

func (p *Provider) listFileShares(ctx context.Context, scope inventory.Scope) ([]inventory.Descriptor, error) {
	var instances []filestoreInstance
	if err := p.gcloud(ctx, &instances, "filestore", "instances", "list", "--project", scope.ID); err != nil {
		return nil, err
	}

	var descriptors []inventory.Descriptor
	for _, fs := range instances {
		location := filestoreLocation(fs.Name)
		zone, region := splitLocation(location)
		for _, share := range fs.FileShares {
			descriptors = append(descriptors, inventory.Descriptor{
				Kind:      inventory.KindFileShare,
				Scope:     scope.ID,
				ID:        fs.Name + "/shares/" + share.Name,
				Name:      share.Name,
				Region:    region,
				Zone:      zone,
				SizeBytes: units.FromGiB(share.CapacityGB),
				Sized:     true,
				Attrs: map[string]string{
					"tier":     fs.Tier,
					"state":    fs.State,
					"instance": path.Base(fs.Name),
				},
			})
		}
	}
	return descriptors, nil
}

func (p *Provider) listSQLInstances(ctx context.Context, scope inventory.Scope) ([]inventory.Descriptor, error) {
	var instances []sqlInstance
	if err := p.gcloud(ctx, &instances, "sql", "instances", "list", "--project", scope.ID); err != nil {
		return nil, err
	}

	descriptors := make([]inventory.Descriptor, 0, len(instances))
	for _, db := range instances {
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:      inventory.KindDatabase,
			Scope:     scope.ID,
			ID:        db.SelfLink,
			Name:      db.Name,
			Region:    db.Region,
			Zone:      db.GCEZone,
			SizeBytes: units.FromGiB(parseGBString(db.Settings.DataDiskSizeGB)),
			Sized:     true,
			Attrs: map[string]string{
				"state":   db.State,
				"version": db.DatabaseVersion,
				"tier":    db.Settings.Tier,
			},
		})
	}
	return descriptors, nil
}

func (p *Provider) listClusters(ctx context.Context, scope inventory.Scope) ([]inventory.Descriptor, error) {
	var clusters []gkeCluster
	if err := p.gcloud(ctx, &clusters, "container", "clusters", "list", "--project", scope.ID); err != nil {
		return nil, err
	}

	descriptors := make([]inventory.Descriptor, 0, len(clusters))
	for _, c := range clusters {
		zone, region := splitLocation(c.Location)
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:   inventory.KindKubernetesCluster,
			Scope:  scope.ID,
			ID:     c.SelfLink,
			Name:   c.Name,
			Region: region,
			Zone:   zone,
			Sized:  true, // capacity is carried by persistent volumes
			Attrs: map[string]string{
				"status":  c.Status,
				"version": c.CurrentVersion,
				"nodes":   strconv.Itoa(c.CurrentNodeCount),
			},
		})
	}
	return descriptors, nil
}

// parseGBString converts gcloud's stringly-typed GB fields; malformed
// values size to zero rather than failing the whole record.
func parseGBString(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

var zoneSuffix = regexp.MustCompile(`-[a-z]$`)

// regionOfZone strips the zone letter: us-central1-a -> us-central1.
func regionOfZone(zone string) string {
	return zoneSuffix.ReplaceAllString(zone, "")
}

// splitLocation classifies a location as zonal or regional. Zonal
// locations end in a zone letter; regional ones return a blank zone.
func splitLocation(location string) (zone, region string) {
	if zoneSuffix.MatchString(location) {
		return location, regionOfZone(location)
	}
	return "", location
}

// filestoreLocation pulls the location segment out of a full resource
// name: projects/p/locations/us-central1-a/instances/fs1.
func filestoreLocation(name string) string {
	parts := strings.Split(name, "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "locations" {
			return parts[i+1]
		}
	}
	return ""
}
