package aws

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/mittari/internal/runner"
	"github.com/yairfalse/mittari/pkg/inventory"
	"github.com/yairfalse/mittari/pkg/units"
)

type fakeRunner struct {
	responses map[string]runner.Output
	errs      map[string]error
	calls     []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (runner.Output, error) {
	cmd := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, cmd)

	var best string
	for prefix := range f.errs {
		if strings.HasPrefix(cmd, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	for prefix := range f.responses {
		if strings.HasPrefix(cmd, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if err, ok := f.errs[best]; ok {
		return runner.Output{}, err
	}
	if out, ok := f.responses[best]; ok {
		return out, nil
	}
	return runner.Output{}, &runner.CallError{Cmd: cmd, Output: runner.Output{Stderr: "unexpected call: " + cmd, ExitCode: 1}}
}

func newTestProvider(responses map[string]string) (*Provider, *fakeRunner) {
	f := &fakeRunner{responses: map[string]runner.Output{}, errs: map[string]error{}}
	for prefix, stdout := range responses {
		f.responses[prefix] = runner.Output{Stdout: stdout}
	}
	return New(f, zerolog.Nop()), f
}

func TestListScopesPairsAccountWithRegions(t *testing.T) {
	p, _ := newTestProvider(map[string]string{
		"aws sts get-caller-identity": `{"Account": "111122223333", "Arn": "arn:aws:iam::111122223333:user/ops"}`,
		"aws ec2 describe-regions": `{"Regions": [
			{"RegionName": "us-east-1"},
			{"RegionName": "eu-west-1"}
		]}`,
	})

	scopes, err := p.ListScopes(context.Background())
	require.NoError(t, err)
	require.Len(t, scopes, 2)
	assert.Equal(t, "111122223333/us-east-1", scopes[0].ID)
	assert.Equal(t, "us-east-1", scopes[0].Name)
	assert.True(t, scopes[0].Accessible)
}

func TestListInstancesSkipsTerminated(t *testing.T) {
	p, _ := newTestProvider(map[string]string{
		"aws ec2 describe-instances": `{"Reservations": [{
			"Instances": [
				{
					"InstanceId": "i-live",
					"InstanceType": "m5.xlarge",
					"State": {"Name": "running"},
					"Placement": {"AvailabilityZone": "us-east-1a"},
					"BlockDeviceMappings": [{"Ebs": {"VolumeId": "vol-1"}}],
					"Tags": [{"Key": "Name", "Value": "web-1"}]
				},
				{
					"InstanceId": "i-dead",
					"InstanceType": "m5.large",
					"State": {"Name": "terminated"},
					"Placement": {"AvailabilityZone": "us-east-1a"}
				}
			]
		}]}`,
	})

	scope := inventory.Scope{ID: "111122223333/us-east-1"}
	descriptors, err := p.List(context.Background(), scope, inventory.KindVM)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	d := descriptors[0]
	assert.Equal(t, "i-live", d.ID)
	assert.Equal(t, "web-1", d.Name)
	assert.Equal(t, "us-east-1a", d.Zone)
	assert.False(t, d.Sized)
}

func TestInstanceSizingSumsAttachedVolumes(t *testing.T) {
	p, f := newTestProvider(map[string]string{
		"aws ec2 describe-volumes --filters Name=attachment.instance-id,Values=i-live": `{"Volumes": [
			{"VolumeId": "vol-1", "Size": 100},
			{"VolumeId": "vol-2", "Size": 400}
		]}`,
	})

	chain := p.SizingChain(inventory.KindVM)
	require.NotNil(t, chain)

	r := chain.Size(context.Background(), inventory.Descriptor{
		Kind: inventory.KindVM, ID: "i-live", Region: "us-east-1",
	})

	require.False(t, r.Failed())
	assert.Equal(t, units.FromGiB(500), r.Bytes)
	assert.Equal(t, "volume-attachments", r.Method)
	require.Len(t, f.calls, 1)
}

func TestListVolumes(t *testing.T) {
	p, _ := newTestProvider(map[string]string{
		"aws ec2 describe-volumes": `{"Volumes": [{
			"VolumeId": "vol-1",
			"Size": 500,
			"State": "in-use",
			"VolumeType": "gp3",
			"AvailabilityZone": "us-east-1a",
			"Attachments": [{"InstanceId": "i-live"}]
		}]}`,
	})

	scope := inventory.Scope{ID: "111122223333/us-east-1"}
	descriptors, err := p.List(context.Background(), scope, inventory.KindDisk)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, units.FromGiB(500), descriptors[0].SizeBytes)
	assert.Equal(t, "vol-1", descriptors[0].Name) // no Name tag
	assert.Equal(t, "true", descriptors[0].Attrs["attached"])
}

func TestListBucketsFiltersByRegion(t *testing.T) {
	p, f := newTestProvider(map[string]string{
		"aws s3api list-buckets": `{"Buckets": [
			{"Name": "east-data"},
			{"Name": "west-data"}
		]}`,
		"aws s3api get-bucket-location --bucket east-data": `{"LocationConstraint": null}`,
		"aws s3api get-bucket-location --bucket west-data": `{"LocationConstraint": "eu-west-1"}`,
	})

	east := inventory.Scope{ID: "111122223333/us-east-1"}
	descriptors, err := p.List(context.Background(), east, inventory.KindBucket)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, "s3://east-data", descriptors[0].ID)

	west := inventory.Scope{ID: "111122223333/eu-west-1"}
	descriptors, err = p.List(context.Background(), west, inventory.KindBucket)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, "s3://west-data", descriptors[0].ID)

	// The global bucket list and each bucket's location are fetched
	// once per run, not once per region scope.
	listCalls, locationCalls := 0, 0
	for _, call := range f.calls {
		if strings.HasPrefix(call, "aws s3api list-buckets") {
			listCalls++
		}
		if strings.HasPrefix(call, "aws s3api get-bucket-location") {
			locationCalls++
		}
	}
	assert.Equal(t, 1, listCalls)
	assert.Equal(t, 2, locationCalls)
}

func TestBucketCloudWatchFastPath(t *testing.T) {
	p, _ := newTestProvider(map[string]string{
		"aws cloudwatch get-metric-statistics": `{"Datapoints": [
			{"Average": 1000.0, "Timestamp": "2026-08-25T00:00:00Z"},
			{"Average": 5000.0, "Timestamp": "2026-08-26T00:00:00Z"}
		]}`,
	})

	chain := p.SizingChain(inventory.KindBucket)
	require.NotNil(t, chain)

	r := chain.Size(context.Background(), inventory.Descriptor{
		Kind: inventory.KindBucket, ID: "s3://east-data", Name: "east-data", Region: "us-east-1",
	})

	require.False(t, r.Failed())
	assert.Equal(t, int64(5000), r.Bytes)
	assert.Equal(t, "cloudwatch-bucket-size", r.Method)
}

func TestBucketFallsBackToObjectWalk(t *testing.T) {
	p, _ := newTestProvider(map[string]string{
		"aws cloudwatch get-metric-statistics": `{"Datapoints": []}`,
		"aws s3 ls s3://east-data --recursive --summarize": `2026-08-26 10:00:00   1024 a.txt
2026-08-26 10:00:01   2048 b.txt

Total Objects: 2
Total Size: 3072`,
	})

	chain := p.SizingChain(inventory.KindBucket)
	r := chain.Size(context.Background(), inventory.Descriptor{
		Kind: inventory.KindBucket, ID: "s3://east-data", Name: "east-data", Region: "us-east-1",
	})

	require.False(t, r.Failed())
	assert.Equal(t, int64(3072), r.Bytes)
	assert.Equal(t, "s3-ls-summarize", r.Method)
}

func TestListDBInstancesMultiAZIsRegional(t *testing.T) {
	p, _ := newTestProvider(map[string]string{
		"aws rds describe-db-instances": `{"DBInstances": [
			{
				"DBInstanceIdentifier": "orders",
				"DBInstanceArn": "arn:aws:rds:us-east-1:111122223333:db:orders",
				"DBInstanceStatus": "available",
				"Engine": "postgres",
				"AllocatedStorage": 200,
				"AvailabilityZone": "us-east-1b",
				"MultiAZ": true
			}
		]}`,
	})

	scope := inventory.Scope{ID: "111122223333/us-east-1"}
	descriptors, err := p.List(context.Background(), scope, inventory.KindDatabase)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.True(t, descriptors[0].Regional())
	assert.Equal(t, units.FromGiB(200), descriptors[0].SizeBytes)
}

func TestListEKSClustersWithOneCall(t *testing.T) {
	p, f := newTestProvider(map[string]string{
		"aws eks list-clusters": `{"clusters": ["prod-eks", "staging-eks"]}`,
	})

	scope := inventory.Scope{ID: "111122223333/us-east-1"}
	descriptors, err := p.List(context.Background(), scope, inventory.KindKubernetesCluster)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)

	// The ARN is derived from the scope, so the listing needs no
	// per-cluster describe call.
	assert.Equal(t, "arn:aws:eks:us-east-1:111122223333:cluster/prod-eks", descriptors[0].ID)
	assert.Equal(t, "prod-eks", descriptors[0].Name)
	require.Len(t, f.calls, 1)
}

func TestParseTotalSize(t *testing.T) {
	n, err := parseTotalSize("Total Objects: 0\nTotal Size: 0")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = parseTotalSize("no summary here")
	assert.Error(t, err)
}
