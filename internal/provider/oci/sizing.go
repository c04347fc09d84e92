package oci

import (
	"context"
	"fmt"

	"github.com/yairfalse/mittari/pkg/inventory"
	"github.com/yairfalse/mittari/pkg/units"
)

// instanceVolumes sums the boot and block volumes attached to one
// instance. Two attachment listings plus one volume get per
// attachment; this is the expensive path the per-kind sizing cap
// throttles.
func (p *Provider) instanceVolumes(ctx context.Context, d inventory.Descriptor) (int64, error) {
	var total int64

	var boots bootVolumeAttachmentList
	err := p.call(ctx, &boots,
		"compute", "boot-volume-attachment", "list",
		"--availability-domain", d.Zone,
		"--compartment-id", d.Scope,
		"--instance-id", d.ID,
		"--region", d.Region)
	if err != nil {
		return 0, err
	}
	for _, a := range boots.Data {
		if a.LifecycleState != "ATTACHED" {
			continue
		}
		gbs, err := p.bootVolumeGBs(ctx, a.BootVolumeID, d.Region)
		if err != nil {
			return 0, err
		}
		total += gbs
	}

	var attachments volumeAttachmentList
	err = p.call(ctx, &attachments,
		"compute", "volume-attachment", "list",
		"--compartment-id", d.Scope,
		"--instance-id", d.ID,
		"--region", d.Region)
	if err != nil {
		return 0, err
	}
	for _, a := range attachments.Data {
		if a.LifecycleState != "ATTACHED" {
			continue
		}
		gbs, err := p.blockVolumeGBs(ctx, a.VolumeID, d.Region)
		if err != nil {
			return 0, err
		}
		total += gbs
	}

	return units.FromGiB(total), nil
}

func (p *Provider) bootVolumeGBs(ctx context.Context, id, region string) (int64, error) {
	var env volumeEnvelope
	err := p.call(ctx, &env,
		"bv", "boot-volume", "get", "--boot-volume-id", id, "--region", region)
	if err != nil {
		return 0, err
	}
	return env.Data.SizeInGBs, nil
}

func (p *Provider) blockVolumeGBs(ctx context.Context, id, region string) (int64, error) {
	var env volumeEnvelope
	err := p.call(ctx, &env,
		"bv", "volume", "get", "--volume-id", id, "--region", region)
	if err != nil {
		return 0, err
	}
	return env.Data.SizeInGBs, nil
}

// bucketApproximate is the fast path: one bucket get with the
// approximateSize field. The field is refreshed asynchronously by the
// service and can be absent on new buckets, which falls through to
// object enumeration.
func (p *Provider) bucketApproximate(ctx context.Context, d inventory.Descriptor) (int64, error) {
	var env bucketEnvelope
	err := p.call(ctx, &env,
		"os", "bucket", "get",
		"--bucket-name", d.Name,
		"--namespace", d.Attrs["namespace"],
		"--region", d.Region,
		"--fields", "approximateSize")
	if err != nil {
		return 0, err
	}
	if env.Data.ApproximateSize == nil {
		return 0, fmt.Errorf("bucket %s has no approximate size yet", d.Name)
	}
	return *env.Data.ApproximateSize, nil
}

// bucketObjects is the exhaustive fallback: every object, summed.
func (p *Provider) bucketObjects(ctx context.Context, d inventory.Descriptor) (int64, error) {
	var list objectList
	err := p.call(ctx, &list,
		"os", "object", "list",
		"--bucket-name", d.Name,
		"--namespace", d.Attrs["namespace"],
		"--region", d.Region,
		"--fields", "size",
		"--all")
	if err != nil {
		return 0, err
	}

	var total int64
	for _, o := range list.Data {
		total += o.Size
	}
	return total, nil
}
