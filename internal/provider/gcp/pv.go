package gcp

import (
	"context"

	"github.com/yairfalse/mittari/internal/kube"
	"github.com/yairfalse/mittari/pkg/inventory"
)

// listPersistentVolumes walks every GKE cluster in the project and
// reads its volumes through kubectl. Each cluster gets credentials
// installed first; a cluster that cannot be reached fails the whole
// kind for the scope so the outcome records it.
func (p *Provider) listPersistentVolumes(ctx context.Context, scope inventory.Scope) ([]inventory.Descriptor, error) {
	var clusters []gkeCluster
	if err := p.gcloud(ctx, &clusters, "container", "clusters", "list", "--project", scope.ID); err != nil {
		return nil, err
	}

	var descriptors []inventory.Descriptor
	for _, c := range clusters {
		if c.Status != "RUNNING" {
			continue
		}
		results, err := p.clusterVolumes(ctx, scope, c)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			descriptors = append(descriptors, kube.AsDescriptor(r))
		}
	}
	return descriptors, nil
}

// clusterVolumes fetches credentials for one cluster and reconciles
// its volume and claim lists into sizing results.
func (p *Provider) clusterVolumes(ctx context.Context, scope inventory.Scope, c gkeCluster) ([]inventory.SizingResult, error) {
	if _, err := p.runner.Run(ctx, "gcloud",
		"container", "clusters", "get-credentials", c.Name,
		"--location", c.Location, "--project", scope.ID, "--quiet"); err != nil {
		return nil, err
	}

	kubeContext := "gke_" + scope.ID + "_" + c.Location + "_" + c.Name

	pvOut, err := p.runner.Run(ctx, "kubectl",
		"--context", kubeContext, "get", "pv", "-o", "json")
	if err != nil {
		return nil, err
	}
	vols, err := kube.ParseVolumeList([]byte(pvOut.Stdout))
	if err != nil {
		return nil, err
	}

	pvcOut, err := p.runner.Run(ctx, "kubectl",
		"--context", kubeContext, "get", "pvc", "-A", "-o", "json")
	if err != nil {
		return nil, err
	}
	claims, err := kube.ParseClaimList([]byte(pvcOut.Stdout))
	if err != nil {
		return nil, err
	}

	_, region := splitLocation(c.Location)
	results, adjusted := kube.Reconcile(scope.ID, c.Name, region, vols, claims)
	if adjusted > 0 {
		p.logger.Warn().
			Str("scope", scope.ID).
			Str("cluster", c.Name).
			Int("claims", adjusted).
			Msg("volume capacity recovered from bound claims")
	}
	return results, nil
}
