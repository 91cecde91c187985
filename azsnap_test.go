package azsnap_test

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	azsnapPath string

	// tmpDir is a function used to create a tempdir
	// -test.keepdir flag says test to use os.MkdirTemp
	// default is t.TempDir, which will be cleaned up
	tmpDir func(t *testing.T) string
)

// fakeAz answers the az invocations of azsnap. Switching to sub-b fails.
const fakeAz = `#!/bin/sh
case "$1 $2" in
"account set")
	if [ "$4" = "sub-b" ]; then
		echo "ERROR: The subscription 'sub-b' could not be found." >&2
		exit 1
	fi
	;;
"vm show")
	echo '{"resourceGroup": "rg1", "diskId": "/disks/os"}'
	;;
"snapshot create")
	echo "{\"id\": \"/subscriptions/sub-a/resourceGroups/rg1/providers/Microsoft.Compute/snapshots/$4\"}"
	;;
"snapshot show")
	echo '{"name": "snap", "resourceGroup": "rg1", "timeCreated": "2024-01-01T00:00:00Z", "diskSizeGb": 30, "provisioningState": "Succeeded"}'
	;;
*)
	echo "unexpected: $*" >&2
	exit 2
	;;
esac
`

func TestMain(m *testing.M) {
	var keepTestDir bool
	flag.BoolVar(&keepTestDir, "test.keepdir", false, "use os.TempDir instead of t.TempDir to keep test artifacts")

	flag.Parse()

	if testing.Short() {
		slog.Warn("integration tests with -short are ignored")
		os.Exit(0)
	}

	if !keepTestDir {
		tmpDir = func(t *testing.T) string {
			t.Helper()
			return t.TempDir()
		}
	} else {
		tmpDir = func(t *testing.T) string {
			t.Helper()
			dir, err := os.MkdirTemp("", t.Name()+"*")
			require.NoError(t, err)
			_, err = fmt.Fprintf(t.Output(), "TEMPDIR %s: -test.keepdir used, so it won't be automatically deleted", dir)
			require.NoError(t, err)
			return dir
		}
	}

	if !isExecutable("azsnap-ci") {
		slog.Error("cannot locate azsnap-ci binary: run go build -race -cover -covermode=atomic -o azsnap-ci ./cmd/azsnap/ first")
		os.Exit(1)
	}

	var err error
	azsnapPath, err = filepath.Abs("azsnap-ci")
	if err != nil {
		slog.Error("can't get abspath for azsnap-ci", "error", err)
		os.Exit(1)
	}
	coverDir, err := filepath.Abs("coverage")
	if err != nil {
		slog.Error("can't get value for GOCOVERDIR for azsnap-ci", "error", err)
		os.Exit(1)
	}
	err = rmRfMkdirp(coverDir)
	if err != nil {
		slog.Error("can't reset GOCOVERDIR for azsnap-ci", "error", err, "coverdir", coverDir)
		os.Exit(1)
	}

	err = os.Setenv("GOCOVERDIR", coverDir)
	if err != nil {
		slog.Error("can't set GOCOVERDIR env variable", "error", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func TestCreateAndValidate(t *testing.T) {
	dir := chDir(t)
	setup(t, dir)

	creat(t, "vms.txt", []byte(strings.Join([]string{
		"/subscriptions/sub-a/resourceGroups/rg1/providers/Microsoft.Compute/virtualMachines/vm1 vm1",
		"/subscriptions/sub-b/resourceGroups/rg2/providers/Microsoft.Compute/virtualMachines/vm2 vm2",
		"/subscriptions/sub-a/resourceGroups/rg1/providers/Microsoft.Compute/virtualMachines/vm3 vm3",
	}, "\n")+"\n"))

	stdout, _ := azsnap(t, "create", "--config", "azsnap.yaml", "--inventory", "vms.txt", "--tag", "CHG1")
	require.Contains(t, stdout, "Snapshot creation process completed.")

	b, err := os.ReadFile("snap_rid_list.txt")
	require.NoError(t, err)
	ids := strings.Fields(string(b))
	require.Len(t, ids, 2)
	for _, id := range ids {
		require.Regexp(t, `/snapshots/RH_CHG1_vm[13]_\d{14}$`, id)
	}

	summaries, err := filepath.Glob(filepath.Join("logs", "snapshot_creation_summary_*.txt"))
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	summary, err := os.ReadFile(summaries[0])
	require.NoError(t, err)
	require.Contains(t, string(summary), "Total items processed: 3\nSucceeded: 2\nFailed: 1\n")
	require.Contains(t, string(summary), "- vm2: scope switch failed")

	logs, err := filepath.Glob(filepath.Join("logs", "snapshot_creation_log_*.txt"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	runLog, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	require.Contains(t, string(runLog), "setting subscription failed")

	stdout, _ = azsnap(t, "validate", "--config", "azsnap.yaml", "--save")
	require.Contains(t, stdout, "Existing snapshots: 2")
	require.Contains(t, stdout, "Missing snapshots: 0")
	results, err := filepath.Glob(filepath.Join("logs", "snapshot_validation_summary_*.txt"))
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestCreate_MissingInventory(t *testing.T) {
	dir := chDir(t)
	setup(t, dir)

	ctx, cancel := context.WithTimeout(t.Context(), 60*time.Second)
	t.Cleanup(cancel)
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, azsnapPath, "create", "--config", "azsnap.yaml", "--inventory", "missing.txt", "--tag", "CHG1")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	require.Error(t, err)
	require.Contains(t, stderr.String(), "Error: missing.txt")

	info, err := os.Stat("logs")
	require.NoError(t, err)
	require.True(t, info.IsDir())
	_, err = os.Stat("snap_rid_list.txt")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtract(t *testing.T) {
	dir := chDir(t)
	setup(t, dir)

	creat(t, "linux_vm-inventory.csv", []byte(`Subscription ID,VM Name/Hostname
/subscriptions/sub-a/resourceGroups/rg1/providers/Microsoft.Compute/virtualMachines/web01 web01
/subscriptions/sub-a/resourceGroups/rg1/providers/Microsoft.Compute/virtualMachines/db01 db01
`))
	creat(t, "hosts.txt", []byte("DB01\nmissing01\n"))

	stdout, _ := azsnap(t, "extract", "--config", "azsnap.yaml", "--hosts", "hosts.txt")
	require.Contains(t, stdout, "Not found: missing01")
	b, err := os.ReadFile("snapshot_vmlist.txt")
	require.NoError(t, err)
	require.Equal(t, "/subscriptions/sub-a/resourceGroups/rg1/providers/Microsoft.Compute/virtualMachines/db01 db01\n", string(b))
}

// setup writes the fake az and a config using it
func setup(t *testing.T, dir string) {
	t.Helper()
	creat(t, "az", []byte(fakeAz))
	require.NoError(t, os.Chmod("az", 0755))
	creat(t, "azsnap.yaml", fmt.Appendf(nil, `
version: 0
az:
  binary: %s
  max_retries: 2
  retry_delay: 10ms
run:
  concurrency: 2
`, filepath.Join(dir, "az")))
}

func azsnap(t *testing.T, args ...string) (string, string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 60*time.Second)
	t.Cleanup(cancel)
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, azsnapPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		t.Logf("%s", stderr.String())
		require.NoError(t, err)
	}
	return stdout.String(), stderr.String()
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().Perm()&0111 != 0
}

func rmRfMkdirp(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

func chDir(t *testing.T) string {
	t.Helper()
	tempdir := tmpDir(t)
	t.Chdir(tempdir)
	return tempdir
}

func creat(t *testing.T, path string, content []byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, f.Close())
	}()
	_, err = f.Write(content)
	require.NoError(t, err)
	err = f.Sync()
	require.NoError(t, err)
}
