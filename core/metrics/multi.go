package metrics

// MultiSink fans out records to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTick forwards the snapshot to all sinks, returning the first error.
func (m *MultiSink) RecordTick(ev TickEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordTick(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordRedirect forwards redirections when supported by the sink.
func (m *MultiSink) RecordRedirect(ev RedirectEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RedirectRecorder); ok {
			if err := rec.RecordRedirect(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordDeparture forwards departures when supported by the sink.
func (m *MultiSink) RecordDeparture(ev DepartureEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(DepartureRecorder); ok {
			if err := rec.RecordDeparture(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRun forwards run summaries when supported by the sink.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RunRecorder); ok {
			if err := rec.RecordRun(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
