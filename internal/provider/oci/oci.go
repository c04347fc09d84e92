// Package oci inventories Oracle Cloud resources through the oci and
// kubectl CLIs. Compartments are the scope boundary; every list call
// is repeated across the tenancy's subscribed regions.
package oci

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

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
	provider.Register("oci", func(cfg provider.Config) (provider.Provider, error) {
		return New(cfg.Runner, cfg.Logger), nil
	})
}

// Provider implements the oci inventory.
type Provider struct {
	runner runner.Runner
	logger zerolog.Logger

	mu      sync.Mutex
	regions []string
}

// New creates the provider with the given CLI runner.
func New(r runner.Runner, logger zerolog.Logger) *Provider {
	return &Provider{runner: r, logger: logger}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "oci" }

// Kinds returns the resource kinds oci can inventory.
func (p *Provider) Kinds() []inventory.Kind {
	return []inventory.Kind{
		inventory.KindVM,
		inventory.KindDisk,
		inventory.KindBucket,
		inventory.KindDatabase,
		inventory.KindKubernetesCluster,
		inventory.KindPersistentVolume,
	}
}

// call invokes oci with JSON output and decodes into out.
func (p *Provider) call(ctx context.Context, out any, args ...string) error {
	args = append(args, "--output", "json")
	output, err := p.runner.Run(ctx, "oci", args...)
	if err != nil {
		return err
	}
	// Empty compartments produce no output at all rather than an
	// empty envelope.
	if strings.TrimSpace(output.Stdout) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(output.Stdout), out); err != nil {
		return &classify.ParseError{Call: "oci " + strings.Join(args, " "), Err: err}
	}
	return nil
}

// ListScopes discovers the tenancy's compartments, root included.
func (p *Provider) ListScopes(ctx context.Context) ([]inventory.Scope, error) {
	var list compartmentList
	err := p.call(ctx, &list,
		"iam", "compartment", "list",
		"--compartment-id-in-subtree", "true",
		"--include-root", "--all")
	if err != nil {
		return nil, err
	}

	scopes := make([]inventory.Scope, 0, len(list.Data))
	for _, c := range list.Data {
		scopes = append(scopes, inventory.Scope{
			ID:         c.ID,
			Name:       c.Name,
			Provider:   "oci",
			Accessible: c.LifecycleState == "ACTIVE",
		})
	}
	return scopes, nil
}

// subscribedRegions fetches the tenancy's region subscriptions once
// and caches them for the rest of the run.
func (p *Provider) subscribedRegions(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.regions != nil {
		return p.regions, nil
	}

	var list regionSubscriptionList
	if err := p.call(ctx, &list, "iam", "region-subscription", "list"); err != nil {
		return nil, err
	}
	regions := make([]string, 0, len(list.Data))
	for _, r := range list.Data {
		if r.Status == "READY" {
			regions = append(regions, r.RegionName)
		}
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("tenancy has no subscribed regions")
	}
	p.regions = regions
	return regions, nil
}

// List enumerates one kind in one compartment across every subscribed
// region.
func (p *Provider) List(ctx context.Context, scope inventory.Scope, kind inventory.Kind) ([]inventory.Descriptor, error) {
	regions, err := p.subscribedRegions(ctx)
	if err != nil {
		return nil, err
	}

	var descriptors []inventory.Descriptor
	for _, region := range regions {
		var batch []inventory.Descriptor
		switch kind {
		case inventory.KindVM:
			batch, err = p.listInstances(ctx, scope, region)
		case inventory.KindDisk:
			batch, err = p.listVolumes(ctx, scope, region)
		case inventory.KindBucket:
			batch, err = p.listBuckets(ctx, scope, region)
		case inventory.KindDatabase:
			batch, err = p.listDBSystems(ctx, scope, region)
		case inventory.KindKubernetesCluster:
			batch, err = p.listClusters(ctx, scope, region)
		case inventory.KindPersistentVolume:
			batch, err = p.listPersistentVolumes(ctx, scope, region)
		default:
			return nil, fmt.Errorf("oci does not inventory kind %q", kind)
		}
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, batch...)
	}
	return descriptors, nil
}

// SizingChain returns measurement strategies. Instances are measured
// through their volume attachments; buckets get the approximate-size
// fast path with object enumeration as fallback.
func (p *Provider) SizingChain(kind inventory.Kind) *sizing.Chain {
	switch kind {
	case inventory.KindVM:
		return sizing.NewChain(
			sizing.Strategy{Name: "volume-attachments", Measure: p.instanceVolumes},
		)
	case inventory.KindBucket:
		return sizing.NewChain(
			sizing.Strategy{Name: "approximate-size", Measure: p.bucketApproximate},
			sizing.Strategy{Name: "object-enumeration", Measure: p.bucketObjects},
		)
	case inventory.KindPersistentVolume:
		return sizing.NewChain(sizing.Strategy{Name: "kubectl", Measure: kube.SizingError})
	default:
		return nil
	}
}

func (p *Provider) listInstances(ctx context.Context, scope inventory.Scope, region string) ([]inventory.Descriptor, error) {
	var list instanceList
	err := p.call(ctx, &list,
		"compute", "instance", "list",
		"--compartment-id", scope.ID, "--region", region, "--all")
	if err != nil {
		return nil, err
	}

	var descriptors []inventory.Descriptor
	for _, vm := range list.Data {
		if vm.LifecycleState == "TERMINATED" {
			continue
		}
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:   inventory.KindVM,
			Scope:  scope.ID,
			ID:     vm.ID,
			Name:   vm.DisplayName,
			Region: region,
			Zone:   vm.AvailabilityDomain,
			Attrs: map[string]string{
				"state": vm.LifecycleState,
				"shape": vm.Shape,
			},
		})
	}
	return descriptors, nil
}

func (p *Provider) listVolumes(ctx context.Context, scope inventory.Scope, region string) ([]inventory.Descriptor, error) {
	var list volumeList
	err := p.call(ctx, &list,
		"bv", "volume", "list",
		"--compartment-id", scope.ID, "--region", region, "--all")
	if err != nil {
		return nil, err
	}
	if len(list.Data) == 0 {
		return nil, nil
	}

	attached, err := p.attachedVolumes(ctx, scope, region)
	if err != nil {
		return nil, err
	}

	var descriptors []inventory.Descriptor
	for _, v := range list.Data {
		if v.LifecycleState == "TERMINATED" {
			continue
		}
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:      inventory.KindDisk,
			Scope:     scope.ID,
			ID:        v.ID,
			Name:      v.DisplayName,
			Region:    region,
			Zone:      v.AvailabilityDomain,
			SizeBytes: units.FromGiB(v.SizeInGBs),
			Sized:     true,
			Attrs: map[string]string{
				"state":    v.LifecycleState,
				"attached": fmt.Sprintf("%t", attached[v.ID]),
			},
		})
	}
	return descriptors, nil
}

// attachedVolumes reads the compartment's volume attachments so disk
// results can mark the capacity their instances already carry. The VM
// bytes include these volumes; cross-kind totals count them once.
func (p *Provider) attachedVolumes(ctx context.Context, scope inventory.Scope, region string) (map[string]bool, error) {
	var list volumeAttachmentList
	err := p.call(ctx, &list,
		"compute", "volume-attachment", "list",
		"--compartment-id", scope.ID, "--region", region, "--all")
	if err != nil {
		return nil, err
	}

	attached := make(map[string]bool, len(list.Data))
	for _, a := range list.Data {
		if a.LifecycleState == "ATTACHED" {
			attached[a.VolumeID] = true
		}
	}
	return attached, nil
}

func (p *Provider) listBuckets(ctx context.Context, scope inventory.Scope, region string) ([]inventory.Descriptor, error) {
	namespace, err := p.namespace(ctx, region)
	if err != nil {
		return nil, err
	}

	var list bucketList
	err = p.call(ctx, &list,
		"os", "bucket", "list",
		"--compartment-id", scope.ID, "--namespace", namespace,
		"--region", region, "--all")
	if err != nil {
		return nil, err
	}

	var descriptors []inventory.Descriptor
	for _, b := range list.Data {
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:   inventory.KindBucket,
			Scope:  scope.ID,
			ID:     "oci://" + namespace + "/" + region + "/" + b.Name,
			Name:   b.Name,
			Region: region,
			Attrs:  map[string]string{"namespace": namespace},
		})
	}
	return descriptors, nil
}

// namespace resolves the tenancy's object storage namespace.
func (p *Provider) namespace(ctx context.Context, region string) (string, error) {
	var env namespaceEnvelope
	if err := p.call(ctx, &env, "os", "ns", "get", "--region", region); err != nil {
		return "", err
	}
	return env.Data, nil
}

func (p *Provider) listDBSystems(ctx context.Context, scope inventory.Scope, region string) ([]inventory.Descriptor, error) {
	var list dbSystemList
	err := p.call(ctx, &list,
		"db", "system", "list",
		"--compartment-id", scope.ID, "--region", region, "--all")
	if err != nil {
		return nil, err
	}

	var descriptors []inventory.Descriptor
	for _, db := range list.Data {
		if db.LifecycleState == "TERMINATED" {
			continue
		}
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:      inventory.KindDatabase,
			Scope:     scope.ID,
			ID:        db.ID,
			Name:      db.DisplayName,
			Region:    region,
			Zone:      db.AvailabilityDomain,
			SizeBytes: units.FromGiB(db.DataStorageSizeInGBs),
			Sized:     true,
			Attrs: map[string]string{
				"state":   db.LifecycleState,
				"edition": db.DatabaseEdition,
				"shape":   db.Shape,
			},
		})
	}
	return descriptors, nil
}

func (p *Provider) listClusters(ctx context.Context, scope inventory.Scope, region string) ([]inventory.Descriptor, error) {
	var list clusterList
	err := p.call(ctx, &list,
		"ce", "cluster", "list",
		"--compartment-id", scope.ID, "--region", region, "--all")
	if err != nil {
		return nil, err
	}

	var descriptors []inventory.Descriptor
	for _, c := range list.Data {
		if c.LifecycleState == "DELETED" || c.LifecycleState == "DELETING" {
			continue
		}
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:   inventory.KindKubernetesCluster,
			Scope:  scope.ID,
			ID:     c.ID,
			Name:   c.Name,
			Region: region,
			Sized:  true, // capacity is carried by persistent volumes
			Attrs: map[string]string{
				"state":   c.LifecycleState,
				"version": c.KubernetesVersion,
			},
		})
	}
	return descriptors, nil
}
