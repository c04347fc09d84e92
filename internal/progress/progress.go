// Package progress carries structured pipeline events to an observer.
// Rendering (terminal, log, anything else) is the observer's concern;
// the pipeline never writes to the console itself.
package progress

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/yairfalse/mittari/pkg/inventory"
)

// Observer receives pipeline lifecycle events. Implementations must
// tolerate concurrent calls from many workers.
type Observer interface {
	ScopeStarted(scope inventory.Scope)
	KindListed(scope inventory.Scope, kind inventory.Kind, count int, err error)
	ScopeFinished(outcome inventory.ScopeOutcome)
	RunFinished(inv *inventory.Inventory, elapsed time.Duration)
}

// Nop discards all events.
type Nop struct{}

func (Nop) ScopeStarted(inventory.Scope)                           {}
func (Nop) KindListed(inventory.Scope, inventory.Kind, int, error) {}
func (Nop) ScopeFinished(inventory.ScopeOutcome)                   {}
func (Nop) RunFinished(*inventory.Inventory, time.Duration)        {}

// LogObserver writes events to the structured log.
type LogObserver struct {
	Logger zerolog.Logger
}

func (o LogObserver) ScopeStarted(scope inventory.Scope) {
	o.Logger.Info().
		Str("provider", scope.Provider).
		Str("scope", scope.ID).
		Msg("scope started")
}

func (o LogObserver) KindListed(scope inventory.Scope, kind inventory.Kind, count int, err error) {
	evt := o.Logger.Info()
	if err != nil {
		evt = o.Logger.Warn().Err(err)
	}
	evt.
		Str("scope", scope.ID).
		Str("kind", string(kind)).
		Int("count", count).
		Msg("kind listed")
}

func (o LogObserver) ScopeFinished(outcome inventory.ScopeOutcome) {
	evt := o.Logger.Info()
	if !outcome.Success {
		evt = o.Logger.Warn().Str("failure", string(outcome.Failure))
	}
	evt.
		Str("scope", outcome.Scope).
		Int("items", outcome.Items).
		Dur("duration", outcome.Duration).
		Bool("success", outcome.Success).
		Msg("scope finished")
}

func (o LogObserver) RunFinished(inv *inventory.Inventory, elapsed time.Duration) {
	total := 0
	for _, results := range inv.Results {
		total += len(results)
	}
	o.Logger.Info().
		Int("resources", total).
		Int("scopes", len(inv.Outcomes)).
		Dur("duration", elapsed).
		Msg("run finished")
}

// Multi fans events out to several observers.
type Multi []Observer

func (m Multi) ScopeStarted(s inventory.Scope) {
	for _, o := range m {
		o.ScopeStarted(s)
	}
}

func (m Multi) KindListed(s inventory.Scope, k inventory.Kind, n int, err error) {
	for _, o := range m {
		o.KindListed(s, k, n, err)
	}
}

func (m Multi) ScopeFinished(out inventory.ScopeOutcome) {
	for _, o := range m {
		o.ScopeFinished(out)
	}
}

func (m Multi) RunFinished(inv *inventory.Inventory, d time.Duration) {
	for _, o := range m {
		o.RunFinished(inv, d)
	}
}
