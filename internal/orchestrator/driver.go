// Package orchestrator drives a run: items are grouped by subscription, groups run
// one after another and the items of a group run in parallel under the limiter.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/CZERTAINLY/azsnap/internal/azcli"
	"github.com/CZERTAINLY/azsnap/internal/inventory"
	"github.com/CZERTAINLY/azsnap/internal/limiter"
	"github.com/CZERTAINLY/azsnap/internal/log"
	"github.com/CZERTAINLY/azsnap/internal/model"
	"github.com/CZERTAINLY/azsnap/internal/outcome"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

// Worker turns one work item into its terminal outcome. Process must not panic
// and must return exactly one outcome.
type Worker interface {
	Process(ctx context.Context, item model.WorkItem) outcome.Outcome
}

type commandRunner interface {
	Run(ctx context.Context, cmd azcli.Command) azcli.CommandResult
}

// Options tune a Driver. The zero value is usable.
type Options struct {
	// SkipScopeSwitch runs groups without `az account set`. Commands addressing
	// resources by full id do not depend on the active subscription.
	SkipScopeSwitch bool
	// Observer is called after every recorded outcome. Calls are serialized.
	Observer func(outcome.Outcome)
	// Aggregator receives the outcomes, a fresh one is used when nil.
	Aggregator *outcome.Aggregator
	Tracer     trace.Tracer
}

type Driver struct {
	az      azcli.Az
	runner  commandRunner
	limiter *limiter.Limiter
	worker  Worker
	run     model.RunConfig
	opts    Options
	tracer  trace.Tracer

	observeMx sync.Mutex
}

func New(az azcli.Az, runner commandRunner, lim *limiter.Limiter, worker Worker, run model.RunConfig, opts Options) *Driver {
	if lim == nil {
		lim = limiter.New(limiter.DefaultCapacity)
	}
	if opts.Aggregator == nil {
		opts.Aggregator = outcome.NewAggregator()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Driver{
		az:      az,
		runner:  runner,
		limiter: lim,
		worker:  worker,
		run:     run,
		opts:    opts,
		tracer:  tracer,
	}
}

// Run processes all items and returns the summary. An empty item list is the only
// error, every other failure ends up as an outcome. Run returns after all
// workers terminated.
func (d *Driver) Run(ctx context.Context, items []model.WorkItem) (outcome.RunSummary, error) {
	if len(items) == 0 {
		return outcome.RunSummary{}, model.ErrInventoryEmpty
	}
	started := time.Now()
	ctx = log.ContextAttrs(ctx, slog.String("run_id", d.run.ID))
	ctx, span := d.tracer.Start(ctx, "azsnap."+d.run.Action,
		trace.WithAttributes(
			attribute.String("azsnap.run_id", d.run.ID),
			attribute.String("azsnap.tag", d.run.Tag),
			attribute.Int("azsnap.items", len(items)),
		))
	defer span.End()

	groups := inventory.GroupByScope(items)
	slog.InfoContext(ctx, "run started",
		"action", d.run.Action,
		"items", len(items),
		"groups", len(groups),
		"concurrency", d.limiter.Capacity(),
	)
	for i, g := range groups {
		d.runGroup(ctx, i, g)
	}

	ret := d.opts.Aggregator.Summarize()
	ret.RunID = d.run.ID
	ret.Action = d.run.Action
	ret.Tag = d.run.Tag
	ret.Started = started
	ret.Finished = time.Now()

	span.SetAttributes(
		attribute.Int("azsnap.succeeded", ret.Succeeded),
		attribute.Int("azsnap.failed", ret.Failed),
	)
	if ret.Failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d items failed", ret.Failed, ret.Total))
	}
	slog.InfoContext(ctx, "run finished",
		"total", ret.Total,
		"succeeded", ret.Succeeded,
		"failed", ret.Failed,
		"duration", ret.Finished.Sub(started).String(),
	)
	return ret, nil
}

func (d *Driver) runGroup(ctx context.Context, idx int, g inventory.Group) {
	ctx = log.ContextAttrs(ctx, slog.String("scope", g.ScopeID))
	ctx, span := d.tracer.Start(ctx, "azsnap.group",
		trace.WithAttributes(
			attribute.String("azsnap.scope", g.ScopeID),
			attribute.Int("azsnap.group", idx),
			attribute.Int("azsnap.items", len(g.Items)),
		))
	defer span.End()

	if !d.opts.SkipScopeSwitch {
		slog.InfoContext(ctx, "setting subscription")
		res := d.runner.Run(ctx, d.az.AccountSet(g.ScopeID))
		if !res.OK() {
			slog.ErrorContext(ctx, "setting subscription failed", "exit_code", res.ExitCode, "error", res.Stderr)
			span.SetStatus(codes.Error, string(outcome.ReasonScopeSwitch))
			detail := fmt.Sprintf("exit code %d: %s", res.ExitCode, res.Stderr)
			for _, item := range g.Items {
				d.record(outcome.Failure(item, outcome.ReasonScopeSwitch, detail))
			}
			return
		}
	}

	// workers never return an error, the group must not cancel its siblings
	var eg errgroup.Group
	for _, item := range g.Items {
		eg.Go(func() error {
			d.record(d.process(ctx, item))
			return nil
		})
	}
	_ = eg.Wait()
}

func (d *Driver) process(ctx context.Context, item model.WorkItem) outcome.Outcome {
	ctx = log.ContextAttrs(ctx, slog.String("item", item.ItemID))
	ctx, span := d.tracer.Start(ctx, "azsnap.item",
		trace.WithAttributes(attribute.String("azsnap.item", item.ItemID)))
	defer span.End()

	var ret outcome.Outcome
	err := d.limiter.Do(ctx, func(ctx context.Context) {
		ret = d.worker.Process(ctx, item)
	})
	if err != nil {
		slog.WarnContext(ctx, "item not started", "error", err)
		ret = outcome.Failure(item, outcome.ReasonCancelled, err.Error())
	}

	if ret.Succeeded() {
		span.SetAttributes(attribute.String("azsnap.produced_id", ret.ProducedID))
	} else {
		span.SetStatus(codes.Error, string(ret.Reason))
	}
	return ret
}

func (d *Driver) record(o outcome.Outcome) {
	d.opts.Aggregator.Record(o)
	if d.opts.Observer != nil {
		d.observeMx.Lock()
		d.opts.Observer(o)
		d.observeMx.Unlock()
	}
}
