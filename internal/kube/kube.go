// Package kube parses kubectl JSON output for persistent volumes and
// claims and reconciles cluster storage capacity from the two views.
package kube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/yairfalse/mittari/internal/classify"
	"github.com/yairfalse/mittari/pkg/inventory"
)

// Typed views of `kubectl get pv/pvc -o json`. Only the fields the
// pipeline consumes are declared; missing fields decode to zero values
// instead of being probed at runtime.

type Metadata struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

type ObjectRef struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

type Volume struct {
	Metadata Metadata `json:"metadata"`
	Spec     struct {
		Capacity         map[string]string `json:"capacity"`
		ClaimRef         *ObjectRef        `json:"claimRef"`
		StorageClassName string            `json:"storageClassName"`
	} `json:"spec"`
	Status struct {
		Phase string `json:"phase"`
	} `json:"status"`
}

type VolumeList struct {
	Items []Volume `json:"items"`
}

type Claim struct {
	Metadata Metadata `json:"metadata"`
	Spec     struct {
		Resources struct {
			Requests map[string]string `json:"requests"`
		} `json:"resources"`
		VolumeName string `json:"volumeName"`
	} `json:"spec"`
	Status struct {
		Phase    string            `json:"phase"`
		Capacity map[string]string `json:"capacity"`
	} `json:"status"`
}

type ClaimList struct {
	Items []Claim `json:"items"`
}

// ParseVolumeList decodes kubectl get pv output.
func ParseVolumeList(data []byte) (VolumeList, error) {
	var list VolumeList
	if err := json.Unmarshal(data, &list); err != nil {
		return VolumeList{}, &classify.ParseError{Call: "kubectl get pv", Err: err}
	}
	return list, nil
}

// ParseClaimList decodes kubectl get pvc output.
func ParseClaimList(data []byte) (ClaimList, error) {
	var list ClaimList
	if err := json.Unmarshal(data, &list); err != nil {
		return ClaimList{}, &classify.ParseError{Call: "kubectl get pvc", Err: err}
	}
	return list, nil
}

// StorageBytes parses a Kubernetes quantity ("500Gi", "1Ti") from a
// capacity or request map.
func StorageBytes(m map[string]string) (int64, bool) {
	s, ok := m["storage"]
	if !ok || s == "" {
		return 0, false
	}
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return 0, false
	}
	return q.Value(), true
}

// Claimed returns namespace/name of a claim, the key volumes bind to.
func (c Claim) Claimed() string {
	ns := c.Metadata.Namespace
	if ns == "" {
		ns = "default"
	}
	return ns + "/" + c.Metadata.Name
}

const (
	// SourceVolume marks capacity read from the volume object itself.
	SourceVolume = "pv"
	// SourceClaim marks capacity recovered from the bound claim when
	// the volume list was incomplete. Best-effort enrichment, flagged
	// so reports can show the provenance.
	SourceClaim = "pvc-claim"
)

// Reconcile builds one sizing result per persistent volume visible
// from either side. When a bound claim has no matching volume in the
// volume list (the incomplete-parent case), capacity is recomputed
// from the claim's request and the result is tagged SourceClaim.
// Returns the results plus the number of claim-derived adjustments so
// the caller can log them.
func Reconcile(scope, cluster, region string, vols VolumeList, claims ClaimList) ([]inventory.SizingResult, int) {
	results := make([]inventory.SizingResult, 0, len(vols.Items))
	seenClaims := make(map[string]bool)

	for _, v := range vols.Items {
		if v.Spec.ClaimRef != nil {
			seenClaims[v.Spec.ClaimRef.Namespace+"/"+v.Spec.ClaimRef.Name] = true
		}
		d := inventory.Descriptor{
			Kind:   inventory.KindPersistentVolume,
			Scope:  scope,
			ID:     cluster + "/pv/" + v.Metadata.Name,
			Name:   v.Metadata.Name,
			Region: region,
			Attrs: map[string]string{
				"cluster":       cluster,
				"storage_class": v.Spec.StorageClassName,
				"phase":         v.Status.Phase,
			},
		}
		bytes, ok := StorageBytes(v.Spec.Capacity)
		if !ok {
			results = append(results, inventory.SizingResult{
				Descriptor: d,
				Failure:    inventory.FailureParse,
				Err:        fmt.Sprintf("volume %s has no parseable capacity", v.Metadata.Name),
				Source:     SourceVolume,
			})
			continue
		}
		results = append(results, inventory.SizingResult{
			Descriptor: d,
			Bytes:      bytes,
			Method:     "kubectl-pv",
			Source:     SourceVolume,
		})
	}

	adjusted := 0
	for _, c := range claims.Items {
		if seenClaims[c.Claimed()] {
			continue
		}
		bytes, ok := StorageBytes(c.Status.Capacity)
		if !ok {
			bytes, ok = StorageBytes(c.Spec.Resources.Requests)
		}
		if !ok {
			continue
		}
		adjusted++
		results = append(results, inventory.SizingResult{
			Descriptor: inventory.Descriptor{
				Kind:   inventory.KindPersistentVolume,
				Scope:  scope,
				ID:     cluster + "/pvc/" + c.Claimed(),
				Name:   c.Claimed(),
				Region: region,
				Attrs:  map[string]string{"cluster": cluster},
			},
			Bytes:  bytes,
			Method: "kubectl-pvc",
			Source: SourceClaim,
		})
	}

	return results, adjusted
}

// AsDescriptor folds a reconciled result back into a descriptor so it
// flows through the common sizing path. Successful volumes come out
// pre-sized with their provenance in the source attribute; parse
// failures carry the error for SizingError to surface.
func AsDescriptor(r inventory.SizingResult) inventory.Descriptor {
	d := r.Descriptor
	if d.Attrs == nil {
		d.Attrs = map[string]string{}
	}
	if r.Failed() {
		d.Attrs["sizing_error"] = r.Err
		return d
	}
	d.SizeBytes = r.Bytes
	d.Sized = true
	d.Attrs["source"] = r.Source
	return d
}

// SizingError is the persistent-volume sizing strategy. Pre-sized
// volumes never reach it; the rest lost their capacity at
// reconciliation and the stored error is replayed here.
func SizingError(_ context.Context, d inventory.Descriptor) (int64, error) {
	return 0, &classify.ParseError{
		Call: "kubectl get pv",
		Err:  errors.New(d.Attrs["sizing_error"]),
	}
}
