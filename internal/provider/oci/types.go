package oci

// Typed views of oci CLI JSON output. The CLI wraps every response in
// a "data" envelope and uses kebab-case keys.

type compartmentList struct {
	Data []compartment `json:"data"`
}

type compartment struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	LifecycleState string `json:"lifecycle-state"`
}

type regionSubscriptionList struct {
	Data []regionSubscription `json:"data"`
}

type regionSubscription struct {
	RegionName string `json:"region-name"`
	Status     string `json:"status"`
}

type instanceList struct {
	Data []instance `json:"data"`
}

type instance struct {
	ID                 string `json:"id"`
	DisplayName        string `json:"display-name"`
	AvailabilityDomain string `json:"availability-domain"`
	LifecycleState     string `json:"lifecycle-state"`
	Shape              string `json:"shape"`
}

type volumeList struct {
	Data []volume `json:"data"`
}

type volume struct {
	ID                 string `json:"id"`
	DisplayName        string `json:"display-name"`
	AvailabilityDomain string `json:"availability-domain"`
	LifecycleState     string `json:"lifecycle-state"`
	SizeInGBs          int64  `json:"size-in-gbs"`
}

type volumeEnvelope struct {
	Data volume `json:"data"`
}

type bootVolumeAttachmentList struct {
	Data []bootVolumeAttachment `json:"data"`
}

type bootVolumeAttachment struct {
	BootVolumeID   string `json:"boot-volume-id"`
	LifecycleState string `json:"lifecycle-state"`
}

type volumeAttachmentList struct {
	Data []volumeAttachment `json:"data"`
}

type volumeAttachment struct {
	VolumeID       string `json:"volume-id"`
	LifecycleState string `json:"lifecycle-state"`
}

type namespaceEnvelope struct {
	Data string `json:"data"`
}

type bucketList struct {
	Data []bucketSummary `json:"data"`
}

type bucketSummary struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

type bucketEnvelope struct {
	Data bucketDetail `json:"data"`
}

type bucketDetail struct {
	Name            string `json:"name"`
	ApproximateSize *int64 `json:"approximate-size"`
}

type objectList struct {
	Data []objectSummary `json:"data"`
}

type objectSummary struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type dbSystemList struct {
	Data []dbSystem `json:"data"`
}

type dbSystem struct {
	ID                   string `json:"id"`
	DisplayName          string `json:"display-name"`
	AvailabilityDomain   string `json:"availability-domain"`
	LifecycleState       string `json:"lifecycle-state"`
	DataStorageSizeInGBs int64  `json:"data-storage-size-in-gbs"`
	DatabaseEdition      string `json:"database-edition"`
	Shape                string `json:"shape"`
}

type clusterList struct {
	Data []cluster `json:"data"`
}

type cluster struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	LifecycleState    string `json:"lifecycle-state"`
	KubernetesVersion string `json:"kubernetes-version"`
}
