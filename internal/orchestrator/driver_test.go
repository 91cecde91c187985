package orchestrator_test

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/CZERTAINLY/azsnap/internal/azcli"
	"github.com/CZERTAINLY/azsnap/internal/azcli/azclitest"
	"github.com/CZERTAINLY/azsnap/internal/inventory"
	"github.com/CZERTAINLY/azsnap/internal/limiter"
	"github.com/CZERTAINLY/azsnap/internal/model"
	"github.com/CZERTAINLY/azsnap/internal/orchestrator"
	"github.com/CZERTAINLY/azsnap/internal/outcome"
	"github.com/CZERTAINLY/azsnap/internal/snapshot"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var run = model.RunConfig{
	ID:        "run-1",
	Action:    model.ActionCreate,
	Tag:       "CHG1",
	Timestamp: "20240101000000",
}

func vm(scope, name string) string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/rg-%s/providers/Microsoft.Compute/virtualMachines/%s %s", scope, scope, name, name)
}

func items(t *testing.T, lines ...string) []model.WorkItem {
	t.Helper()
	ret, err := inventory.Parse(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	return ret
}

// cloud fakes az: switching to a scope in failScopes fails, every vm has an os disk
// and snapshot create returns an id unless the vm is in noID.
type cloud struct {
	failScopes []string
	noID       []string
	delay      time.Duration
}

func (c cloud) router() azclitest.Router {
	return azclitest.Router{
		"account set": func(_ context.Context, cmd azcli.Command) azcli.Attempt {
			if slices.Contains(c.failScopes, azclitest.Arg(cmd, "--subscription")) {
				return azclitest.Fail(1, "ERROR: The subscription could not be found.")
			}
			return azclitest.OK("")
		},
		"vm show": func(_ context.Context, cmd azcli.Command) azcli.Attempt {
			id := azclitest.Arg(cmd, "--ids")
			name := id[strings.LastIndex(id, "/")+1:]
			return azclitest.OK(fmt.Sprintf(`{"resourceGroup": "rg", "diskId": "/disks/%s-os"}`, name))
		},
		"snapshot create": func(_ context.Context, cmd azcli.Command) azcli.Attempt {
			if c.delay > 0 {
				time.Sleep(c.delay)
			}
			name := azclitest.Arg(cmd, "--name")
			for _, vm := range c.noID {
				if strings.Contains(name, "_"+vm+"_") {
					return azclitest.OK(`{"name": "` + name + `"}`)
				}
			}
			return azclitest.OK(`{"id": "/snapshots/` + name + `"}`)
		},
	}
}

func newCreateDriver(t *testing.T, fake *azclitest.Fake, capacity int, opts orchestrator.Options) (*orchestrator.Driver, *outcome.Ledger, *limiter.Limiter) {
	t.Helper()
	ledger, err := outcome.OpenLedger(filepath.Join(t.TempDir(), "snap_rid_list.txt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	runner := azcli.NewRunner(fake).WithRetries(1, 0)
	lim := limiter.New(capacity)
	creator := snapshot.NewCreator(azcli.Az{}, runner, ledger, snapshot.CreateOptions{
		Prefix:    "RH",
		Tag:       run.Tag,
		Timestamp: run.Timestamp,
	})
	return orchestrator.New(azcli.Az{}, runner, lim, creator, run, opts), ledger, lim
}

func TestRun_TwoScopes(t *testing.T) {
	t.Parallel()
	fake := azclitest.New(cloud{failScopes: []string{"sub-b"}}.router().Handle)
	driver, ledger, _ := newCreateDriver(t, fake, 10, orchestrator.Options{})

	sum, err := driver.Run(t.Context(), items(t,
		vm("sub-a", "vm1"),
		vm("sub-b", "vm2"),
		vm("sub-a", "vm3"),
	))
	require.NoError(t, err)
	require.Equal(t, 3, sum.Total)
	require.Equal(t, 2, sum.Succeeded)
	require.Equal(t, 1, sum.Failed)
	require.Len(t, sum.Outcomes, 3)
	require.Equal(t, map[outcome.FailureReason]int{outcome.ReasonScopeSwitch: 1}, sum.ByReason)
	require.Equal(t, "run-1", sum.RunID)
	require.Equal(t, "CHG1", sum.Tag)
	require.False(t, sum.Finished.Before(sum.Started))

	failed := sum.Failures()
	require.Len(t, failed, 1)
	require.Equal(t, "vm2", failed[0].ItemID)
	require.Equal(t, "sub-b", failed[0].ScopeID)

	// nothing ran for the failed scope
	for _, c := range fake.Calls() {
		require.NotContains(t, azclitest.Arg(c, "--ids"), "sub-b")
	}
	require.Equal(t, 2, fake.Count("account", "set"))
	require.Equal(t, 2, fake.Count("vm", "show"))
	require.Equal(t, 2, fake.Count("snapshot", "create"))

	ids, err := outcome.ReadLedger(ledger.Path())
	require.NoError(t, err)
	var produced []string
	for _, o := range sum.Successes() {
		produced = append(produced, o.ProducedID)
	}
	require.Len(t, ids, 2)
	require.ElementsMatch(t, produced, ids)
}

func TestRun_MissingIdentifier(t *testing.T) {
	t.Parallel()
	fake := azclitest.New(cloud{noID: []string{"vm1"}}.router().Handle)
	driver, ledger, _ := newCreateDriver(t, fake, 10, orchestrator.Options{})

	sum, err := driver.Run(t.Context(), items(t, vm("sub-a", "vm1")))
	require.NoError(t, err)
	require.Equal(t, 1, sum.Total)
	require.Equal(t, 0, sum.Succeeded)
	require.Equal(t, 1, sum.Failed)
	require.Equal(t, outcome.ReasonMissingID, sum.Outcomes[0].Reason)

	ids, err := outcome.ReadLedger(ledger.Path())
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestRun_Empty(t *testing.T) {
	t.Parallel()
	fake := azclitest.New(cloud{}.router().Handle)
	driver, _, _ := newCreateDriver(t, fake, 10, orchestrator.Options{})

	_, err := driver.Run(t.Context(), nil)
	require.ErrorIs(t, err, model.ErrInventoryEmpty)
	require.Empty(t, fake.Calls())
}

func TestRun_Concurrency(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		fake := azclitest.New(cloud{delay: time.Second}.router().Handle)
		var observed atomic.Int64
		driver, _, lim := newCreateDriver(t, fake, 4, orchestrator.Options{
			Observer: func(outcome.Outcome) { observed.Add(1) },
		})

		var lines []string
		for i := range 25 {
			lines = append(lines, vm("sub-a", fmt.Sprintf("vm%02d", i)))
		}
		start := time.Now()
		sum, err := driver.Run(t.Context(), items(t, lines...))
		require.NoError(t, err)
		require.Equal(t, 25, sum.Succeeded)
		require.Equal(t, 25, int(observed.Load()))

		require.Equal(t, 7*time.Second, time.Since(start))
		require.Equal(t, 4, lim.Peak())
		require.LessOrEqual(t, fake.Peak(), 4)
		require.Equal(t, 25, lim.Acquired())
		require.Zero(t, lim.InFlight())
	})
}

func TestRun_GroupsAreSequential(t *testing.T) {
	t.Parallel()
	fake := azclitest.New(cloud{}.router().Handle)
	driver, _, _ := newCreateDriver(t, fake, 3, orchestrator.Options{})

	_, err := driver.Run(t.Context(), items(t,
		vm("sub-a", "vm1"),
		vm("sub-b", "vm2"),
		vm("sub-a", "vm3"),
		vm("sub-c", "vm4"),
		vm("sub-b", "vm5"),
	))
	require.NoError(t, err)

	// every item command runs while its own subscription is the active one
	var active string
	var order []string
	for _, c := range fake.Calls() {
		if azclitest.HasPrefix(c, "account", "set") {
			active = azclitest.Arg(c, "--subscription")
			order = append(order, active)
			continue
		}
		if id := azclitest.Arg(c, "--ids"); id != "" {
			require.Contains(t, id, "/subscriptions/"+active+"/")
		}
	}
	require.Equal(t, []string{"sub-a", "sub-b", "sub-c"}, order)
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()
	fake := azclitest.New(cloud{}.router().Handle)
	driver, _, _ := newCreateDriver(t, fake, 2, orchestrator.Options{})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	sum, err := driver.Run(ctx, items(t, vm("sub-a", "vm1"), vm("sub-a", "vm2"), vm("sub-b", "vm3")))
	require.NoError(t, err)
	require.Equal(t, 3, sum.Total)
	require.Equal(t, 3, sum.ByReason[outcome.ReasonCancelled])
	require.Zero(t, fake.Count("vm", "show"))
}

func TestRun_Validate(t *testing.T) {
	t.Parallel()
	fake := azclitest.New(azclitest.Router{
		"snapshot show": func(_ context.Context, cmd azcli.Command) azcli.Attempt {
			id := azclitest.Arg(cmd, "--ids")
			if strings.HasSuffix(id, "gone") {
				return azclitest.Fail(3, "ResourceNotFound")
			}
			return azclitest.OK(`{"name": "n", "resourceGroup": "rg", "timeCreated": "t", "diskSizeGb": 30, "provisioningState": "Succeeded"}`)
		},
	}.Handle)
	runner := azcli.NewRunner(fake).WithRetries(1, 0)
	agg := outcome.NewAggregator()
	validate := model.RunConfig{ID: "run-2", Action: model.ActionValidate}
	driver := orchestrator.New(azcli.Az{}, runner, limiter.New(10), snapshot.NewValidator(azcli.Az{}, runner), validate, orchestrator.Options{
		SkipScopeSwitch: true,
		Aggregator:      agg,
	})

	given, err := inventory.ParseLedger(strings.NewReader("/subscriptions/a/snapshots/ok\n/subscriptions/b/snapshots/gone\n"))
	require.NoError(t, err)
	sum, err := driver.Run(t.Context(), given)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Succeeded)
	require.Equal(t, 1, sum.ByReason[outcome.ReasonNotFound])
	require.Equal(t, 2, agg.Len())
	require.Zero(t, fake.Count("account", "set"))
}

func TestRun_Spans(t *testing.T) {
	t.Parallel()
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	fake := azclitest.New(cloud{failScopes: []string{"sub-b"}}.router().Handle)
	driver, _, _ := newCreateDriver(t, fake, 10, orchestrator.Options{
		Tracer: provider.Tracer("azsnap"),
	})
	_, err := driver.Run(t.Context(), items(t, vm("sub-a", "vm1"), vm("sub-b", "vm2"), vm("sub-a", "vm3")))
	require.NoError(t, err)

	count := make(map[string]int)
	for _, s := range exporter.GetSpans() {
		count[s.Name]++
	}
	require.Equal(t, map[string]int{
		"azsnap.creation": 1,
		"azsnap.group":    2,
		"azsnap.item":     2,
	}, count)
}
