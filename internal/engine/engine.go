// Package engine drives the harvest pipeline: scope discovery, per
// scope enumeration, concurrent sizing, and aggregation.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/mittari/internal/aggregate"
	"github.com/yairfalse/mittari/internal/classify"
	"github.com/yairfalse/mittari/internal/config"
	"github.com/yairfalse/mittari/internal/pool"
	"github.com/yairfalse/mittari/internal/progress"
	"github.com/yairfalse/mittari/internal/provider"
	"github.com/yairfalse/mittari/pkg/inventory"
)

// Engine coordinates one harvest run. All state is owned by the run;
// nothing survives between invocations.
type Engine struct {
	providers []provider.Provider
	cfg       *config.Config
	observer  progress.Observer
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// New creates an engine. The observer may be nil.
func New(cfg *config.Config, providers []provider.Provider, observer progress.Observer, logger zerolog.Logger) *Engine {
	if observer == nil {
		observer = progress.Nop{}
	}
	return &Engine{
		providers: providers,
		cfg:       cfg,
		observer:  observer,
		logger:    logger,
		tracer:    otel.Tracer("mittari/engine"),
	}
}

type scopedProvider struct {
	provider provider.Provider
	scope    inventory.Scope
}

// Run harvests every requested kind across every accessible scope and
// returns the aggregated inventory. Scope discovery failure is fatal;
// everything downstream is recovered at the scope or item boundary.
func (e *Engine) Run(ctx context.Context, kinds []inventory.Kind) (*inventory.Inventory, error) {
	ctx, span := e.tracer.Start(ctx, "engine.run")
	defer span.End()

	start := time.Now()
	agg := aggregate.New(e.logger)

	scopes, err := e.discoverScopes(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("scopes", len(scopes)))

	outer := pool.New[inventory.ScopeOutcome](e.cfg.Concurrency.Scopes, e.cfg.Timeouts.Scope)
	tasks := make([]pool.Task[inventory.ScopeOutcome], len(scopes))
	for i, sp := range scopes {
		sp := sp
		tasks[i] = pool.Task[inventory.ScopeOutcome]{
			Key: sp.scope.ID,
			Run: func(ctx context.Context) (inventory.ScopeOutcome, error) {
				return e.harvestScope(ctx, sp.provider, sp.scope, kinds, agg), nil
			},
		}
	}

	for i, r := range outer.RunAll(ctx, tasks) {
		outcome := r.Value
		switch {
		case r.TimedOut:
			outcome = inventory.ScopeOutcome{
				Scope:    scopes[i].scope.ID,
				Provider: scopes[i].provider.Name(),
				Failure:  inventory.FailureTimeout,
				Err:      fmt.Sprintf("scope exceeded %s deadline", e.cfg.Timeouts.Scope),
				Duration: r.Duration,
			}
		case r.Err != nil:
			outcome = inventory.ScopeOutcome{
				Scope:    scopes[i].scope.ID,
				Provider: scopes[i].provider.Name(),
				Failure:  inventory.FailureUnknown,
				Err:      r.Err.Error(),
				Duration: r.Duration,
			}
		}
		agg.AddOutcome(outcome)
		e.observer.ScopeFinished(outcome)
	}

	inv := agg.Inventory()
	inv.Kinds = kinds
	e.observer.RunFinished(inv, time.Since(start))
	return inv, nil
}

// discoverScopes asks every provider for its accessible scopes. This
// is the one call with no partial mode: if a provider cannot
// enumerate scopes at all there is nothing to iterate, so the run
// aborts.
func (e *Engine) discoverScopes(ctx context.Context) ([]scopedProvider, error) {
	var scopes []scopedProvider
	for _, p := range e.providers {
		listed, err := p.ListScopes(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s scopes: %w", p.Name(), err)
		}
		for _, s := range listed {
			if !s.Accessible || !e.scopeSelected(s) {
				continue
			}
			scopes = append(scopes, scopedProvider{provider: p, scope: s})
		}
		e.logger.Info().
			Str("provider", p.Name()).
			Int("scopes", len(listed)).
			Msg("scopes discovered")
	}
	return scopes, nil
}

func (e *Engine) scopeSelected(s inventory.Scope) bool {
	if len(e.cfg.Providers.Scopes) == 0 {
		return true
	}
	for _, id := range e.cfg.Providers.Scopes {
		if s.ID == id {
			return true
		}
	}
	return false
}

// harvestScope enumerates and sizes every requested kind in one
// scope. A kind's listing failure marks the scope but never stops the
// sibling kinds; the outcome is finalized only after every sizing
// task has completed or timed out.
func (e *Engine) harvestScope(ctx context.Context, p provider.Provider, scope inventory.Scope, kinds []inventory.Kind, agg *aggregate.Aggregator) inventory.ScopeOutcome {
	ctx, span := e.tracer.Start(ctx, "engine.scope",
		trace.WithAttributes(attribute.String("scope", scope.ID)))
	defer span.End()

	e.observer.ScopeStarted(scope)
	start := time.Now()
	outcome := inventory.ScopeOutcome{
		Scope:    scope.ID,
		Provider: p.Name(),
		Success:  true,
	}

	for _, kind := range kinds {
		if !provider.Supports(p, kind) {
			continue
		}

		descriptors, err := p.List(ctx, scope, kind)
		e.observer.KindListed(scope, kind, len(descriptors), err)
		if err != nil {
			failure := classify.FromError(err)
			if ctx.Err() != nil {
				failure = inventory.FailureTimeout
			}
			e.logger.Warn().
				Err(err).
				Str("scope", scope.ID).
				Str("kind", string(kind)).
				Str("failure", string(failure)).
				Msg("listing failed")
			if outcome.Success {
				outcome.Success = false
				outcome.Failure = failure
				outcome.Err = err.Error()
			}
			continue
		}

		results := e.sizeAll(ctx, p, kind, descriptors)
		outcome.Items += agg.AddBatch(results)
	}

	outcome.Duration = time.Since(start)
	return outcome
}

// sizeAll runs the sizing chain over every descriptor through the
// inner pool and guarantees exactly one result per descriptor.
func (e *Engine) sizeAll(ctx context.Context, p provider.Provider, kind inventory.Kind, descriptors []inventory.Descriptor) []inventory.SizingResult {
	chain := p.SizingChain(kind)

	inner := pool.New[inventory.SizingResult](e.cfg.SizingCap(kind), e.cfg.Timeouts.Task)
	tasks := make([]pool.Task[inventory.SizingResult], len(descriptors))
	for i, d := range descriptors {
		d := d
		tasks[i] = pool.Task[inventory.SizingResult]{
			Key: d.DedupKey(),
			Run: func(ctx context.Context) (inventory.SizingResult, error) {
				return chain.Size(ctx, d), nil
			},
		}
	}

	pooled := inner.RunAll(ctx, tasks)
	results := make([]inventory.SizingResult, len(descriptors))
	for i, r := range pooled {
		switch {
		case r.TimedOut:
			results[i] = inventory.SizingResult{
				Descriptor: descriptors[i],
				Failure:    inventory.FailureTimeout,
				Err:        fmt.Sprintf("sizing exceeded %s deadline", e.cfg.Timeouts.Task),
			}
		case r.Err != nil:
			results[i] = inventory.SizingResult{
				Descriptor: descriptors[i],
				Failure:    inventory.FailureUnknown,
				Err:        r.Err.Error(),
			}
		default:
			results[i] = r.Value
		}
	}
	return results
}
