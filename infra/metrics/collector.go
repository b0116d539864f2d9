package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/parkctl/core/events"
	coremetrics "github.com/kilianp07/parkctl/core/metrics"
	"github.com/kilianp07/parkctl/core/monitoring"
	"github.com/kilianp07/parkctl/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// admission events of run runID. It stops when the context is canceled or the
// bus is closed; the returned channel is closed once it has stopped.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, runID string) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	monitoring.Go(func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				record(sink, runID, ev)
			}
		}
	})
	return done
}

func record(sink coremetrics.MetricsSink, runID string, ev eventbus.Event) {
	now := time.Now()
	switch e := ev.(type) {
	case events.RedirectEvent:
		if r, ok := sink.(coremetrics.RedirectRecorder); ok {
			_ = r.RecordRedirect(coremetrics.RedirectEvent{
				RunID:     runID,
				VehicleID: e.VehicleID,
				From:      e.From,
				To:        e.To,
				Cause:     e.Cause,
				Tick:      e.Tick,
				Time:      now,
			})
		}
	case events.DepartureEvent:
		if r, ok := sink.(coremetrics.DepartureRecorder); ok {
			_ = r.RecordDeparture(coremetrics.DepartureEvent{
				RunID:     runID,
				VehicleID: e.VehicleID,
				Facility:  e.Facility,
				Delay:     e.Delay,
				Tick:      e.Tick,
				Time:      now,
			})
		}
	case events.EvictionEvent:
		if r, ok := sink.(coremetrics.DepartureRecorder); ok {
			_ = r.RecordDeparture(coremetrics.DepartureEvent{
				RunID:     runID,
				VehicleID: e.VehicleID,
				Facility:  e.Facility,
				Evicted:   true,
				Tick:      e.Tick,
				Time:      now,
			})
		}
	}
}
