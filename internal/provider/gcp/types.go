package gcp

// Typed views of gcloud --format=json output. Only the fields the
// pipeline consumes are declared; gcloud emits numeric disk sizes as
// strings, so those stay strings and are parsed at conversion time.

type project struct {
	ProjectID      string `json:"projectId"`
	Name           string `json:"name"`
	LifecycleState string `json:"lifecycleState"`
}

type attachedDisk struct {
	DiskSizeGB string `json:"diskSizeGb"`
}

type computeInstance struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Zone        string         `json:"zone"`
	Status      string         `json:"status"`
	MachineType string         `json:"machineType"`
	SelfLink    string         `json:"selfLink"`
	Disks       []attachedDisk `json:"disks"`
}

type computeDisk struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	SelfLink string   `json:"selfLink"`
	SizeGB   string   `json:"sizeGb"`
	Zone     string   `json:"zone,omitempty"`
	Region   string   `json:"region,omitempty"`
	Type     string   `json:"type"`
	Users    []string `json:"users,omitempty"`
}

type storageBucket struct {
	Name         string `json:"name"`
	Location     string `json:"location"`
	StorageClass string `json:"storageClass"`
}

type fileShare struct {
	Name       string `json:"name"`
	CapacityGB int64  `json:"capacityGb"`
}

type filestoreInstance struct {
	Name       string      `json:"name"`
	Tier       string      `json:"tier"`
	State      string      `json:"state"`
	FileShares []fileShare `json:"fileShares"`
}

type sqlSettings struct {
	DataDiskSizeGB string `json:"dataDiskSizeGb"`
	Tier           string `json:"tier"`
}

type sqlInstance struct {
	Name            string      `json:"name"`
	Region          string      `json:"region"`
	GCEZone         string      `json:"gceZone"`
	State           string      `json:"state"`
	DatabaseVersion string      `json:"databaseVersion"`
	SelfLink        string      `json:"selfLink"`
	Settings        sqlSettings `json:"settings"`
}

type gkeCluster struct {
	Name             string `json:"name"`
	Location         string `json:"location"`
	Status           string `json:"status"`
	SelfLink         string `json:"selfLink"`
	CurrentNodeCount int    `json:"currentNodeCount"`
	CurrentVersion   string `json:"currentMasterVersion"`
}
