package admission

import (
	"context"
	"time"

	"github.com/kilianp07/parkctl/core/admission/logging"
	"github.com/kilianp07/parkctl/core/logger"
	"github.com/kilianp07/parkctl/internal/eventbus"
)

// Hooks are the optional outputs shared by the Controller and the Reconciler.
type Hooks struct {
	RunID string
	Bus   eventbus.EventBus
	Trace logging.Store
}

type emitter struct {
	hooks Hooks
	log   logger.Logger
}

func (e *emitter) publish(ev eventbus.Event) {
	if e.hooks.Bus != nil {
		e.hooks.Bus.Publish(ev)
	}
}

// trace records a decision. Trace failures are logged and never abort a run.
func (e *emitter) trace(ctx context.Context, rec logging.Record) {
	if e.hooks.Trace == nil {
		return
	}
	rec.Timestamp = time.Now()
	rec.RunID = e.hooks.RunID
	if err := e.hooks.Trace.Append(ctx, rec); err != nil {
		e.log.Warnf("trace append: %v", err)
	}
}
