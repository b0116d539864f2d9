package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/parkctl/config"
	"github.com/kilianp07/parkctl/core/admission"
	"github.com/kilianp07/parkctl/core/admission/logging"
	coremetrics "github.com/kilianp07/parkctl/core/metrics"
	"github.com/kilianp07/parkctl/core/model"
	"github.com/kilianp07/parkctl/core/monitoring"
	"github.com/kilianp07/parkctl/core/registry"
	"github.com/kilianp07/parkctl/core/summary"
	"github.com/kilianp07/parkctl/engine"
	"github.com/kilianp07/parkctl/infra/logger"
	"github.com/kilianp07/parkctl/infra/metrics"
	"github.com/kilianp07/parkctl/infra/notify"
	"github.com/kilianp07/parkctl/internal/eventbus"
	"github.com/kilianp07/parkctl/scenario"
)

// Service runs one simulation: the engine, the admission loop and every
// observer of its events.
type Service struct {
	cfg   config.Config
	log   logger.Logger
	runID string

	desc  *scenario.Descriptor
	reg   *registry.Registry
	eng   *engine.Sim
	state *admission.State
	ctrl  *admission.Controller
	rec   *admission.Reconciler

	bus       *eventbus.Bus
	sink      coremetrics.MetricsSink
	notifier  *notify.PahoNotifier
	trace     logging.Store
	summaries summary.Store
	sampler   *summary.Sampler
}

// New builds a Service from the configuration. The scenario is read from
// engine.scenario or generated from the generate section.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	desc, err := loadScenario(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithScenario(cfg, desc, logg)
}

func loadScenario(cfg *config.Config) (*scenario.Descriptor, error) {
	if cfg.Engine.Scenario != "" {
		desc, err := scenario.Load(cfg.Engine.Scenario)
		if err != nil {
			return nil, fmt.Errorf("load scenario: %w", err)
		}
		return desc, nil
	}
	desc, err := scenario.Generate(cfg.Generate)
	if err != nil {
		return nil, fmt.Errorf("generate scenario: %w", err)
	}
	return desc, nil
}

// NewRegistry builds the facility registry, sizing the OutOfTown tier from the
// fleet when parking.fleet_size is unset.
func NewRegistry(cfg registry.Config, desc *scenario.Descriptor) (*registry.Registry, error) {
	if cfg.FleetSize == 0 && desc != nil {
		cfg.FleetSize = len(desc.Vehicles)
	}
	return registry.New(cfg)
}

// NewWithScenario builds a Service around an already loaded descriptor.
func NewWithScenario(cfg *config.Config, desc *scenario.Descriptor, logg logger.Logger) (*Service, error) {
	reg, err := NewRegistry(cfg.Parking, desc)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(cfg.Engine, desc, reg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scenario.ErrMalformed, err)
	}
	state := admission.NewState(reg, cfg.Policy, cfg.Pricing)
	if err := state.Load(desc, eng); err != nil {
		return nil, err
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	trace, err := logging.Open(cfg.Trace)
	if err != nil {
		return nil, fmt.Errorf("trace store: %w", err)
	}
	summaries, err := summary.NewStore(cfg.Summary)
	if err != nil {
		_ = trace.Close()
		return nil, fmt.Errorf("summary store: %w", err)
	}

	runID := uuid.NewString()
	bus := eventbus.NewWithBuffer(256)
	s := &Service{
		cfg:       *cfg,
		log:       logg,
		runID:     runID,
		desc:      desc,
		reg:       reg,
		eng:       eng,
		state:     state,
		bus:       bus,
		sink:      sink,
		trace:     trace,
		summaries: summaries,
		sampler:   summary.NewSampler(),
	}
	if cfg.Notify.Enabled {
		n, err := notify.NewPahoNotifier(cfg.Notify, runID, logger.New("notify"))
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("notifier: %w", err)
		}
		s.notifier = n
	}
	hooks := admission.Hooks{RunID: runID, Bus: bus, Trace: trace}
	s.ctrl = admission.NewController(state, eng, logger.New("admission"), hooks)
	s.rec = admission.NewReconciler(state, eng, logger.New("reconcile"), hooks)
	return s, nil
}

// RunID identifies the run in summaries, traces and notifications.
func (s *Service) RunID() string { return s.runID }

// State exposes the admission ledgers.
func (s *Service) State() *admission.State { return s.state }

// Run drives the engine until it reports no remaining work, then appends the
// run summary. A ledger invariant violation aborts the run.
func (s *Service) Run(ctx context.Context) (summary.RunSummary, error) {
	started := time.Now()
	obsCtx, stopObservers := context.WithCancel(ctx)
	defer stopObservers()

	var observers []<-chan struct{}
	observers = append(observers, metrics.StartEventCollector(obsCtx, s.bus, s.sink, s.runID))
	if s.notifier != nil {
		observers = append(observers, s.notifier.Start(obsCtx, s.bus))
	}
	if s.cfg.Metrics.PrometheusPort != "" {
		monitoring.Go(func() {
			if err := metrics.StartPromServer(obsCtx, s.cfg.Metrics.PrometheusPort, prometheus.DefaultGatherer); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		})
	}

	s.log.Infof("run %s: %d vehicles, scenario %q", s.runID, len(s.desc.Vehicles), s.desc.Name)
	if err := s.loop(ctx); err != nil {
		monitoring.CaptureException(err, map[string]string{"module": "admission", "run_id": s.runID})
		return summary.RunSummary{}, err
	}

	// drain the bus so observers see every event of the run
	s.bus.Close()
	for _, done := range observers {
		<-done
	}

	sum := s.Summary(started)
	if err := s.summaries.Append(ctx, sum); err != nil {
		return sum, fmt.Errorf("append summary: %w", err)
	}
	if r, ok := s.sink.(coremetrics.RunRecorder); ok {
		if err := r.RecordRun(coremetrics.RunEvent{
			RunID:       sum.RunID,
			Scenario:    sum.Scenario,
			FinalTick:   sum.FinalTick,
			Redirects:   sum.Redirects,
			NeverParked: sum.NeverParked,
			Duration:    sum.Duration,
			Time:        time.Now(),
		}); err != nil {
			s.log.Warnf("record run: %v", err)
		}
	}
	s.log.Infof("run %s finished at tick %d: %d redirects, %d never parked",
		s.runID, sum.FinalTick, sum.TotalRedirects(), sum.NeverParked)
	return sum, nil
}

func (s *Service) loop(ctx context.Context) error {
	for s.eng.Remaining() > 0 {
		if err := s.eng.Advance(ctx); err != nil {
			if errors.Is(err, engine.ErrTickLimit) {
				s.log.Warnf("tick limit reached with %d vehicles still running", s.eng.Remaining())
				return nil
			}
			return err
		}
		pending, err := s.rec.Process(ctx)
		if err != nil {
			return err
		}
		if err := s.ctrl.Step(ctx, pending); err != nil {
			return err
		}
		if err := s.state.Verify(); err != nil {
			return fmt.Errorf("tick %d: %w", s.eng.Tick(), err)
		}
		s.observe()
	}
	return nil
}

func (s *Service) observe() {
	tick := s.eng.Tick()
	occ := make(map[model.Tier]int, 3)
	caps := make(map[model.Tier]int, 3)
	for _, f := range s.reg.Facilities() {
		occ[f.ID.Tier] += s.eng.Occupancy(f.ID)
		caps[f.ID.Tier] += f.Capacity
	}
	for t, c := range caps {
		s.sampler.Observe(t, occ[t], c)
	}
	if n := s.cfg.Metrics.TickInterval; n == 0 || tick%n != 0 {
		return
	}
	active := s.eng.ActiveVehicles()
	stopped := 0
	for _, id := range active {
		if s.eng.IsStopped(id) {
			stopped++
		}
	}
	if err := s.sink.RecordTick(coremetrics.TickEvent{
		RunID:        s.runID,
		Tick:         tick,
		Active:       len(active),
		Stopped:      stopped,
		Reservations: s.state.Ledger.Sum(),
		Occupancy:    occ,
		Capacity:     caps,
		Time:         time.Now(),
	}); err != nil {
		s.log.Warnf("record tick: %v", err)
	}
}

// Summary builds the run record from the current state.
func (s *Service) Summary(started time.Time) summary.RunSummary {
	stats := s.state.Stats
	redirects := make(map[model.Cause]int, len(model.Causes))
	for _, c := range model.Causes {
		redirects[c] = stats.Redirects[c]
	}
	policy := s.cfg.Policy
	return summary.RunSummary{
		RunID:        s.runID,
		Scenario:     s.desc.Name,
		Seed:         s.desc.Seed,
		StartedAt:    started.UTC(),
		Duration:     time.Since(started),
		FinalTick:    s.eng.Tick(),
		Vehicles:     len(s.desc.Vehicles),
		Redirects:    redirects,
		NeverParked:  s.state.NeverParked(),
		ChangedRoute: stats.ChangedRoute,
		NoPark:       stats.NoPark,
		NotFound:     stats.NotFound,
		Unresolved:   stats.Unresolved,
		GoodEnds:     stats.Ends,
		BadEnds:      stats.Evictions,
		Headroom: summary.Headroom{
			Bootstrap:     policy.BootstrapHeadroom,
			Default:       policy.DefaultHeadroom,
			Override:      policy.OverrideHeadroom,
			RefreshPeriod: policy.RefreshPeriod(),
		},
		Ledger:      s.state.Ledger.Snapshot(),
		Utilization: s.sampler.Utilization(),
	}
}

// Close releases the stores and connections held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.notifier != nil {
		s.notifier.Close()
	}
	closeSink(s.sink)
	if s.trace != nil {
		errs = append(errs, s.trace.Close())
	}
	if s.summaries != nil {
		errs = append(errs, s.summaries.Close())
	}
	return errors.Join(errs...)
}

func closeSink(sink coremetrics.MetricsSink) {
	switch v := sink.(type) {
	case *coremetrics.MultiSink:
		for _, inner := range v.Sinks {
			closeSink(inner)
		}
	case interface{ Close() }:
		v.Close()
	}
}
