package oci

import (
	"context"
	"os"

	"github.com/yairfalse/mittari/internal/kube"
	"github.com/yairfalse/mittari/pkg/inventory"
)

// listPersistentVolumes walks every OKE cluster in the compartment and
// reads its volumes through kubectl. Each cluster gets a throwaway
// kubeconfig written by the oci CLI; a cluster that cannot be reached
// fails the whole kind for the scope so the outcome records it.
func (p *Provider) listPersistentVolumes(ctx context.Context, scope inventory.Scope, region string) ([]inventory.Descriptor, error) {
	var list clusterList
	err := p.call(ctx, &list,
		"ce", "cluster", "list",
		"--compartment-id", scope.ID, "--region", region, "--all")
	if err != nil {
		return nil, err
	}

	var descriptors []inventory.Descriptor
	for _, c := range list.Data {
		if c.LifecycleState != "ACTIVE" {
			continue
		}
		results, err := p.clusterVolumes(ctx, scope, region, c)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			descriptors = append(descriptors, kube.AsDescriptor(r))
		}
	}
	return descriptors, nil
}

// clusterVolumes writes a kubeconfig for one cluster and reconciles
// its volume and claim lists into sizing results.
func (p *Provider) clusterVolumes(ctx context.Context, scope inventory.Scope, region string, c cluster) ([]inventory.SizingResult, error) {
	kubeconfig, err := os.CreateTemp("", "mittari-kubeconfig-*")
	if err != nil {
		return nil, err
	}
	kubeconfig.Close()
	defer os.Remove(kubeconfig.Name())

	_, err = p.runner.Run(ctx, "oci",
		"ce", "cluster", "create-kubeconfig",
		"--cluster-id", c.ID,
		"--region", region,
		"--file", kubeconfig.Name(),
		"--kube-endpoint", "PUBLIC_ENDPOINT",
		"--overwrite")
	if err != nil {
		return nil, err
	}

	pvOut, err := p.runner.Run(ctx, "kubectl",
		"--kubeconfig", kubeconfig.Name(), "get", "pv", "-o", "json")
	if err != nil {
		return nil, err
	}
	vols, err := kube.ParseVolumeList([]byte(pvOut.Stdout))
	if err != nil {
		return nil, err
	}

	pvcOut, err := p.runner.Run(ctx, "kubectl",
		"--kubeconfig", kubeconfig.Name(), "get", "pvc", "-A", "-o", "json")
	if err != nil {
		return nil, err
	}
	claims, err := kube.ParseClaimList([]byte(pvcOut.Stdout))
	if err != nil {
		return nil, err
	}

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
