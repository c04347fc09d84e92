// Package azure inventories Microsoft Azure resources through the az
// CLI. Subscriptions are the scope boundary.
package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yairfalse/mittari/internal/classify"
	"github.com/yairfalse/mittari/internal/provider"
	"github.com/yairfalse/mittari/internal/runner"
	"github.com/yairfalse/mittari/internal/sizing"
	"github.com/yairfalse/mittari/pkg/inventory"
	"github.com/yairfalse/mittari/pkg/units"
)

func init() {
	provider.Register("azure", func(cfg provider.Config) (provider.Provider, error) {
		return New(cfg.Runner, cfg.Logger), nil
	})
}

// Provider implements the azure inventory.
type Provider struct {
	runner runner.Runner
	logger zerolog.Logger
}

// New creates the provider with the given CLI runner.
func New(r runner.Runner, logger zerolog.Logger) *Provider {
	return &Provider{runner: r, logger: logger}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "azure" }

// Kinds returns the resource kinds azure can inventory. File shares
// need per-account keys the CLI cannot list without extra role
// assignments, so they are not covered here.
func (p *Provider) Kinds() []inventory.Kind {
	return []inventory.Kind{
		inventory.KindVM,
		inventory.KindDisk,
		inventory.KindBucket,
		inventory.KindDatabase,
		inventory.KindKubernetesCluster,
	}
}

// az invokes the CLI with JSON output and decodes into out.
func (p *Provider) az(ctx context.Context, out any, args ...string) error {
	args = append(args, "--output", "json", "--only-show-errors")
	output, err := p.runner.Run(ctx, "az", args...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(output.Stdout), out); err != nil {
		return &classify.ParseError{Call: "az " + strings.Join(args, " "), Err: err}
	}
	return nil
}

// ListScopes discovers the visible subscriptions.
func (p *Provider) ListScopes(ctx context.Context) ([]inventory.Scope, error) {
	var accounts []account
	if err := p.az(ctx, &accounts, "account", "list", "--all"); err != nil {
		return nil, err
	}

	scopes := make([]inventory.Scope, 0, len(accounts))
	for _, a := range accounts {
		scopes = append(scopes, inventory.Scope{
			ID:         a.ID,
			Name:       a.Name,
			Provider:   "azure",
			Accessible: a.State == "Enabled",
		})
	}
	return scopes, nil
}

// List enumerates one kind in one subscription with a single az call.
func (p *Provider) List(ctx context.Context, scope inventory.Scope, kind inventory.Kind) ([]inventory.Descriptor, error) {
	switch kind {
	case inventory.KindVM:
		return p.listVMs(ctx, scope)
	case inventory.KindDisk:
		return p.listDisks(ctx, scope)
	case inventory.KindBucket:
		return p.listStorageAccounts(ctx, scope)
	case inventory.KindDatabase:
		return p.listSQLDatabases(ctx, scope)
	case inventory.KindKubernetesCluster:
		return p.listAKSClusters(ctx, scope)
	default:
		return nil, fmt.Errorf("azure does not inventory kind %q", kind)
	}
}

// SizingChain returns measurement strategies. Storage accounts are
// measured through monitor metrics; SQL databases through a per
// database show call.
func (p *Provider) SizingChain(kind inventory.Kind) *sizing.Chain {
	switch kind {
	case inventory.KindBucket:
		return sizing.NewChain(
			sizing.Strategy{Name: "metrics-used-capacity", Measure: p.accountUsedCapacity},
			sizing.Strategy{Name: "metrics-blob-capacity", Measure: p.accountBlobCapacity},
		)
	case inventory.KindDatabase:
		return sizing.NewChain(
			sizing.Strategy{Name: "sql-db-show", Measure: p.databaseSize},
		)
	default:
		return nil
	}
}

func (p *Provider) listVMs(ctx context.Context, scope inventory.Scope) ([]inventory.Descriptor, error) {
	var vms []virtualMachine
	if err := p.az(ctx, &vms, "vm", "list", "--subscription", scope.ID); err != nil {
		return nil, err
	}

	descriptors := make([]inventory.Descriptor, 0, len(vms))
	for _, vm := range vms {
		sizeGB := vm.StorageProfile.OSDisk.DiskSizeGB
		for _, d := range vm.StorageProfile.DataDisks {
			sizeGB += d.DiskSizeGB
		}
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:      inventory.KindVM,
			Scope:     scope.ID,
			ID:        vm.ID,
			Name:      vm.Name,
			Region:    vm.Location,
			Zone:      zoneName(vm.Location, vm.Zones),
			SizeBytes: units.FromGiB(sizeGB),
			Sized:     true,
			Attrs: map[string]string{
				"vm_size":    vm.HardwareProfile.VMSize,
				"data_disks": fmt.Sprintf("%d", len(vm.StorageProfile.DataDisks)),
			},
		})
	}
	return descriptors, nil
}

func (p *Provider) listDisks(ctx context.Context, scope inventory.Scope) ([]inventory.Descriptor, error) {
	var disks []managedDisk
	if err := p.az(ctx, &disks, "disk", "list", "--subscription", scope.ID); err != nil {
		return nil, err
	}

	descriptors := make([]inventory.Descriptor, 0, len(disks))
	for _, d := range disks {
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:      inventory.KindDisk,
			Scope:     scope.ID,
			ID:        d.ID,
			Name:      d.Name,
			Region:    d.Location,
			Zone:      zoneName(d.Location, d.Zones),
			SizeBytes: units.FromGiB(d.DiskSizeGB),
			Sized:     true,
			Attrs: map[string]string{
				"state":    d.DiskState,
				"attached": fmt.Sprintf("%t", d.ManagedBy != ""),
			},
		})
	}
	return descriptors, nil
}

func (p *Provider) listStorageAccounts(ctx context.Context, scope inventory.Scope) ([]inventory.Descriptor, error) {
	var accounts []storageAccount
	if err := p.az(ctx, &accounts, "storage", "account", "list", "--subscription", scope.ID); err != nil {
		return nil, err
	}

	descriptors := make([]inventory.Descriptor, 0, len(accounts))
	for _, a := range accounts {
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:   inventory.KindBucket,
			Scope:  scope.ID,
			ID:     a.ID,
			Name:   a.Name,
			Region: a.Location,
			Attrs: map[string]string{
				"kind": a.Kind,
				"sku":  a.SKU.Name,
			},
		})
	}
	return descriptors, nil
}

func (p *Provider) listSQLDatabases(ctx context.Context, scope inventory.Scope) ([]inventory.Descriptor, error) {
	var dbs []sqlDatabase
	err := p.az(ctx, &dbs,
		"resource", "list",
		"--resource-type", "Microsoft.Sql/servers/databases",
		"--subscription", scope.ID)
	if err != nil {
		return nil, err
	}

	var descriptors []inventory.Descriptor
	for _, db := range dbs {
		// Every server carries a master database; it holds metadata,
		// not customer data.
		if strings.HasSuffix(db.ID, "/master") {
			continue
		}
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:   inventory.KindDatabase,
			Scope:  scope.ID,
			ID:     db.ID,
			Name:   db.Name,
			Region: db.Location,
		})
	}
	return descriptors, nil
}

func (p *Provider) listAKSClusters(ctx context.Context, scope inventory.Scope) ([]inventory.Descriptor, error) {
	var clusters []aksCluster
	if err := p.az(ctx, &clusters, "aks", "list", "--subscription", scope.ID); err != nil {
		return nil, err
	}

	descriptors := make([]inventory.Descriptor, 0, len(clusters))
	for _, c := range clusters {
		nodes := 0
		for _, pool := range c.AgentPoolProfiles {
			nodes += pool.Count
		}
		descriptors = append(descriptors, inventory.Descriptor{
			Kind:   inventory.KindKubernetesCluster,
			Scope:  scope.ID,
			ID:     c.ID,
			Name:   c.Name,
			Region: c.Location,
			Sized:  true, // capacity is carried by the managed disks
			Attrs: map[string]string{
				"power":   c.PowerState.Code,
				"version": c.KubernetesVersion,
				"nodes":   fmt.Sprintf("%d", nodes),
			},
		})
	}
	return descriptors, nil
}

// zoneName renders an availability zone as location-N, or blank for
// regional resources.
func zoneName(location string, zones []string) string {
	if len(zones) == 0 {
		return ""
	}
	return location + "-" + zones[0]
}
