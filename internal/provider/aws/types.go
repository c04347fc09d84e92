package aws

// Typed views of aws CLI JSON output. The CLI uses PascalCase keys
// and wraps lists in envelopes.

type callerIdentity struct {
	Account string `json:"Account"`
	Arn     string `json:"Arn"`
}

type regionList struct {
	Regions []struct {
		RegionName string `json:"RegionName"`
	} `json:"Regions"`
}

type reservationList struct {
	Reservations []struct {
		Instances []ec2Instance `json:"Instances"`
	} `json:"Reservations"`
}

type ec2Instance struct {
	InstanceID   string `json:"InstanceId"`
	InstanceType string `json:"InstanceType"`
	State        struct {
		Name string `json:"Name"`
	} `json:"State"`
	Placement struct {
		AvailabilityZone string `json:"AvailabilityZone"`
	} `json:"Placement"`
	BlockDeviceMappings []struct {
		Ebs struct {
			VolumeID string `json:"VolumeId"`
		} `json:"Ebs"`
	} `json:"BlockDeviceMappings"`
	Tags []tag `json:"Tags"`
}

type tag struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

type volumeList struct {
	Volumes []ebsVolume `json:"Volumes"`
}

type ebsVolume struct {
	VolumeID         string `json:"VolumeId"`
	Size             int64  `json:"Size"`
	State            string `json:"State"`
	VolumeType       string `json:"VolumeType"`
	AvailabilityZone string `json:"AvailabilityZone"`
	Attachments      []struct {
		InstanceID string `json:"InstanceId"`
	} `json:"Attachments"`
	Tags []tag `json:"Tags"`
}

type bucketList struct {
	Buckets []struct {
		Name string `json:"Name"`
	} `json:"Buckets"`
}

type bucketLocation struct {
	LocationConstraint string `json:"LocationConstraint"`
}

type dbInstanceList struct {
	DBInstances []dbInstance `json:"DBInstances"`
}

type dbInstance struct {
	DBInstanceIdentifier string `json:"DBInstanceIdentifier"`
	DBInstanceArn        string `json:"DBInstanceArn"`
	DBInstanceStatus     string `json:"DBInstanceStatus"`
	Engine               string `json:"Engine"`
	AllocatedStorage     int64  `json:"AllocatedStorage"`
	AvailabilityZone     string `json:"AvailabilityZone"`
	MultiAZ              bool   `json:"MultiAZ"`
}

type clusterNameList struct {
	Clusters []string `json:"clusters"`
}

type metricStatistics struct {
	Datapoints []struct {
		Average   float64 `json:"Average"`
		Timestamp string  `json:"Timestamp"`
	} `json:"Datapoints"`
}
