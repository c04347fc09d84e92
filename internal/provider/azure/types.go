package azure

// Typed views of az CLI JSON output. Only the fields the pipeline
// consumes are declared.

type account struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

type diskSpec struct {
	DiskSizeGB int64  `json:"diskSizeGb"`
	Name       string `json:"name"`
}

type storageProfile struct {
	OSDisk    diskSpec   `json:"osDisk"`
	DataDisks []diskSpec `json:"dataDisks"`
}

type hardwareProfile struct {
	VMSize string `json:"vmSize"`
}

type virtualMachine struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Location        string          `json:"location"`
	Zones           []string        `json:"zones"`
	HardwareProfile hardwareProfile `json:"hardwareProfile"`
	StorageProfile  storageProfile  `json:"storageProfile"`
}

type managedDisk struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Location   string   `json:"location"`
	Zones      []string `json:"zones"`
	DiskSizeGB int64    `json:"diskSizeGb"`
	DiskState  string   `json:"diskState"`
	ManagedBy  string   `json:"managedBy"`
}

type storageAccount struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Kind     string `json:"kind"`
	SKU      struct {
		Name string `json:"name"`
	} `json:"sku"`
}

type sqlDatabase struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

type sqlDatabaseDetail struct {
	MaxSizeBytes     int64  `json:"maxSizeBytes"`
	Status           string `json:"status"`
	CurrentSizeBytes *int64 `json:"currentSizeBytes"`
}

type aksCluster struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Location          string `json:"location"`
	KubernetesVersion string `json:"kubernetesVersion"`
	PowerState        struct {
		Code string `json:"code"`
	} `json:"powerState"`
	AgentPoolProfiles []struct {
		Count int `json:"count"`
	} `json:"agentPoolProfiles"`
}

// metricsResponse is the az monitor metrics envelope; the byte value
// rides in the newest datapoint's average.
type metricsResponse struct {
	Value []struct {
		Timeseries []struct {
			Data []struct {
				Average   *float64 `json:"average"`
				TimeStamp string   `json:"timeStamp"`
			} `json:"data"`
		} `json:"timeseries"`
	} `json:"value"`
}
