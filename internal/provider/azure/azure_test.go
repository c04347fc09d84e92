package azure

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

func TestListScopes(t *testing.T) {
	p, _ := newTestProvider(map[string]string{
		"az account list": `[
			{"id": "sub-1", "name": "Production", "state": "Enabled"},
			{"id": "sub-2", "name": "Disabled Sub", "state": "Disabled"}
		]`,
	})

	scopes, err := p.ListScopes(context.Background())
	require.NoError(t, err)
	require.Len(t, scopes, 2)
	assert.True(t, scopes[0].Accessible)
	assert.False(t, scopes[1].Accessible)
}

func TestListVMsSumsDisks(t *testing.T) {
	p, _ := newTestProvider(map[string]string{
		"az vm list": `[{
			"id": "/subscriptions/sub-1/resourceGroups/rg/providers/Microsoft.Compute/virtualMachines/web-1",
			"name": "web-1",
			"location": "westeurope",
			"zones": ["2"],
			"hardwareProfile": {"vmSize": "Standard_D4s_v5"},
			"storageProfile": {
				"osDisk": {"diskSizeGb": 128, "name": "web-1-os"},
				"dataDisks": [{"diskSizeGb": 512, "name": "web-1-data"}]
			}
		}]`,
	})

	descriptors, err := p.List(context.Background(), inventory.Scope{ID: "sub-1"}, inventory.KindVM)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	d := descriptors[0]
	assert.Equal(t, units.FromGiB(640), d.SizeBytes)
	assert.Equal(t, "westeurope-2", d.Zone)
	assert.Equal(t, "westeurope", d.Region)
	assert.True(t, d.Sized)
}

func TestListDisksRegionalWhenNoZone(t *testing.T) {
	p, _ := newTestProvider(map[string]string{
		"az disk list": `[
			{"id": "/subscriptions/sub-1/disks/zonal", "name": "zonal", "location": "westeurope", "zones": ["1"], "diskSizeGb": 256, "diskState": "Attached", "managedBy": "/subscriptions/sub-1/virtualMachines/web-1"},
			{"id": "/subscriptions/sub-1/disks/regional", "name": "regional", "location": "westeurope", "diskSizeGb": 512, "diskState": "Unattached", "managedBy": ""}
		]`,
	})

	descriptors, err := p.List(context.Background(), inventory.Scope{ID: "sub-1"}, inventory.KindDisk)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)

	assert.Equal(t, "westeurope-1", descriptors[0].Zone)
	assert.Equal(t, "true", descriptors[0].Attrs["attached"])
	assert.Empty(t, descriptors[1].Zone)
	assert.True(t, descriptors[1].Regional())
	assert.Equal(t, "false", descriptors[1].Attrs["attached"])
}

func TestStorageAccountMetricFastPath(t *testing.T) {
	p, f := newTestProvider(map[string]string{
		"az storage account list": `[{
			"id": "/subscriptions/sub-1/storageAccounts/prodstore",
			"name": "prodstore",
			"location": "westeurope",
			"kind": "StorageV2",
			"sku": {"name": "Standard_LRS"}
		}]`,
		"az monitor metrics list --resource /subscriptions/sub-1/storageAccounts/prodstore --metric UsedCapacity": `{
			"value": [{"timeseries": [{"data": [
				{"average": 1000000.0, "timeStamp": "2026-08-26T10:00:00Z"},
				{"average": 2000000.0, "timeStamp": "2026-08-26T11:00:00Z"}
			]}]}]
		}`,
	})

	descriptors, err := p.List(context.Background(), inventory.Scope{ID: "sub-1"}, inventory.KindBucket)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.False(t, descriptors[0].Sized)

	chain := p.SizingChain(inventory.KindBucket)
	r := chain.Size(context.Background(), descriptors[0])
	require.False(t, r.Failed())
	assert.Equal(t, int64(2000000), r.Bytes)
	assert.Equal(t, "metrics-used-capacity", r.Method)
	require.Len(t, f.calls, 2)
}

func TestStorageAccountFallsBackToBlobMetric(t *testing.T) {
	p, _ := newTestProvider(map[string]string{
		// Account-level metric has no datapoints yet.
		"az monitor metrics list --resource /subscriptions/sub-1/storageAccounts/fresh --metric UsedCapacity": `{
			"value": [{"timeseries": [{"data": []}]}]
		}`,
		"az monitor metrics list --resource /subscriptions/sub-1/storageAccounts/fresh/blobServices/default --metric BlobCapacity": `{
			"value": [{"timeseries": [{"data": [{"average": 555.0, "timeStamp": "2026-08-26T10:00:00Z"}]}]}]
		}`,
	})

	chain := p.SizingChain(inventory.KindBucket)
	r := chain.Size(context.Background(), inventory.Descriptor{
		Kind: inventory.KindBucket,
		ID:   "/subscriptions/sub-1/storageAccounts/fresh",
		Name: "fresh",
	})

	require.False(t, r.Failed())
	assert.Equal(t, int64(555), r.Bytes)
	assert.Equal(t, "metrics-blob-capacity", r.Method)
}

func TestSQLDatabasesSkipMaster(t *testing.T) {
	p, _ := newTestProvider(map[string]string{
		"az resource list": `[
			{"id": "/subscriptions/sub-1/servers/s1/databases/orders", "name": "orders", "location": "westeurope"},
			{"id": "/subscriptions/sub-1/servers/s1/databases/master", "name": "master", "location": "westeurope"}
		]`,
		"az sql db show": `{"maxSizeBytes": 268435456000, "status": "Online", "currentSizeBytes": 1073741824}`,
	})

	descriptors, err := p.List(context.Background(), inventory.Scope{ID: "sub-1"}, inventory.KindDatabase)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, "orders", descriptors[0].Name)

	chain := p.SizingChain(inventory.KindDatabase)
	r := chain.Size(context.Background(), descriptors[0])
	require.False(t, r.Failed())
	assert.Equal(t, int64(1073741824), r.Bytes)
}

func TestSQLDatabaseFallsBackToMaxSize(t *testing.T) {
	p, _ := newTestProvider(map[string]string{
		"az sql db show": `{"maxSizeBytes": 268435456000, "status": "Online"}`,
	})

	chain := p.SizingChain(inventory.KindDatabase)
	r := chain.Size(context.Background(), inventory.Descriptor{
		Kind: inventory.KindDatabase,
		ID:   "/subscriptions/sub-1/servers/s1/databases/orders",
	})

	require.False(t, r.Failed())
	assert.Equal(t, int64(268435456000), r.Bytes)
}

func TestListAKSClusters(t *testing.T) {
	p, _ := newTestProvider(map[string]string{
		"az aks list": `[{
			"id": "/subscriptions/sub-1/managedClusters/prod-aks",
			"name": "prod-aks",
			"location": "westeurope",
			"kubernetesVersion": "1.30.1",
			"powerState": {"code": "Running"},
			"agentPoolProfiles": [{"count": 3}, {"count": 2}]
		}]`,
	})

	descriptors, err := p.List(context.Background(), inventory.Scope{ID: "sub-1"}, inventory.KindKubernetesCluster)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, "5", descriptors[0].Attrs["nodes"])
	assert.True(t, descriptors[0].Sized)
	assert.Zero(t, descriptors[0].SizeBytes)
}
