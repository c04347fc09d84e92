// Package inventory defines the unified capacity model for Mittari.
package inventory

import "time"

// Kind identifies a class of sizeable cloud resource.
type Kind string

const (
	KindVM                Kind = "vm"
	KindDisk              Kind = "disk"
	KindBucket            Kind = "bucket"
	KindFileShare         Kind = "file_share"
	KindDatabase          Kind = "database"
	KindKubernetesCluster Kind = "kubernetes_cluster"
	KindPersistentVolume  Kind = "persistent_volume"
)

// AllKinds returns every supported kind in report order.
func AllKinds() []Kind {
	return []Kind{
		KindVM,
		KindDisk,
		KindBucket,
		KindFileShare,
		KindDatabase,
		KindKubernetesCluster,
		KindPersistentVolume,
	}
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	for _, known := range AllKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Scope is a provider isolation boundary: a GCP project, Azure
// subscription, OCI compartment, or AWS account/region pair.
// Discovered once per run and immutable thereafter.
type Scope struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Provider   string `json:"provider"`
	Accessible bool   `json:"accessible"`
}

// Descriptor is the raw enumeration record for one resource instance
// within one scope. Zone is blank for regional resources so rollup
// logic can keep them out of zone subtotals.
type Descriptor struct {
	Kind      Kind              `json:"kind"`
	Scope     string            `json:"scope"`
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Region    string            `json:"region"`
	Zone      string            `json:"zone,omitempty"`
	SizeBytes int64             `json:"size_bytes,omitempty"`
	Sized     bool              `json:"sized"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// Regional reports whether the descriptor belongs to a region as a
// whole rather than a single zone.
func (d Descriptor) Regional() bool {
	return d.Zone == ""
}

// DedupKey returns the identity used for deduplication. A stable
// native id (self-link, ARN, OCID) wins; names alone collide across
// zones, so the composite fallback includes the location.
func (d Descriptor) DedupKey() string {
	if d.ID != "" {
		return d.ID
	}
	loc := d.Zone
	if loc == "" {
		loc = d.Region
	}
	return d.Scope + "/" + loc + "/" + d.Name
}

// FailureKind classifies why a scope or item could not be inventoried.
type FailureKind string

const (
	FailureNone             FailureKind = ""
	FailurePermissionDenied FailureKind = "permission_denied"
	FailureAPIDisabled      FailureKind = "api_disabled"
	FailureTimeout          FailureKind = "timeout"
	FailureParse            FailureKind = "parse_error"
	FailureUnknown          FailureKind = "unknown"
)

// SizingResult is the enriched measurement for one descriptor.
// Every descriptor that required sizing produces exactly one of
// these; failed measurements carry a zero byte count plus the error,
// never a silent drop.
type SizingResult struct {
	Descriptor Descriptor  `json:"descriptor"`
	Bytes      int64       `json:"bytes"`
	Method     string      `json:"method"`
	Source     string      `json:"source,omitempty"`
	Failure    FailureKind `json:"failure,omitempty"`
	Err        string      `json:"error,omitempty"`
}

// Failed reports whether the measurement failed.
func (r SizingResult) Failed() bool {
	return r.Failure != FailureNone
}

// ScopeOutcome is the per-scope completion record. Every scope in the
// input set has exactly one by pipeline completion, including scopes
// that timed out.
type ScopeOutcome struct {
	Scope    string        `json:"scope"`
	Provider string        `json:"provider"`
	Success  bool          `json:"success"`
	Failure  FailureKind   `json:"failure,omitempty"`
	Err      string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Items    int           `json:"items"`
}

// Inventory is the final aggregated result set for one run.
// Immutable once the pipeline returns.
type Inventory struct {
	Results  map[Kind][]SizingResult `json:"results"`
	Outcomes []ScopeOutcome          `json:"outcomes"`
	// Kinds records the kind filter the run was asked for, so reports
	// can show a kind that was inventoried and found empty everywhere.
	Kinds []Kind `json:"kinds,omitempty"`
}

// ReportKinds returns the kinds to render, in the order they were
// requested. Runs that did not record their filter fall back to the
// kinds that produced results.
func (inv *Inventory) ReportKinds() []Kind {
	if len(inv.Kinds) > 0 {
		return inv.Kinds
	}
	var kinds []Kind
	for _, k := range AllKinds() {
		if len(inv.Results[k]) > 0 {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// TotalBytes sums the raw bytes for one kind. Accumulation stays in
// bytes; unit conversion happens once at presentation.
func (inv *Inventory) TotalBytes(kind Kind) int64 {
	var total int64
	for _, r := range inv.Results[kind] {
		total += r.Bytes
	}
	return total
}

// AttachedDiskBytes sums the disk results marked attached to a VM.
// That capacity already sits inside the owning VM's bytes, so it must
// not count a second time under the disk kind.
func (inv *Inventory) AttachedDiskBytes() int64 {
	var total int64
	for _, r := range inv.Results[KindDisk] {
		if r.Descriptor.Attrs["attached"] == "true" {
			total += r.Bytes
		}
	}
	return total
}

// GrandTotalBytes sums every kind with attached-disk capacity counted
// once. Per-kind totals keep the full disk figure; only the cross-kind
// total reconciles the overlap.
func (inv *Inventory) GrandTotalBytes() int64 {
	var total int64
	for _, results := range inv.Results {
		for _, r := range results {
			total += r.Bytes
		}
	}
	return total - inv.AttachedDiskBytes()
}

// Count returns the number of deduplicated results for one kind.
func (inv *Inventory) Count(kind Kind) int {
	return len(inv.Results[kind])
}

// FailedOutcomes returns the outcomes for scopes that could not be
// inventoried, so reporting can distinguish them from empty scopes.
func (inv *Inventory) FailedOutcomes() []ScopeOutcome {
	var failed []ScopeOutcome
	for _, o := range inv.Outcomes {
		if !o.Success {
			failed = append(failed, o)
		}
	}
	return failed
}
