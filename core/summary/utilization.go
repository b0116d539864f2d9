package summary

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/parkctl/core/model"
)

// Utilization describes the occupied share of a tier's slots over a run.
type Utilization struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Peak   float64 `json:"peak"`
}

// Sampler collects per-tick occupancy ratios per tier.
type Sampler struct {
	samples map[model.Tier][]float64
}

// NewSampler returns an empty sampler.
func NewSampler() *Sampler {
	return &Sampler{samples: make(map[model.Tier][]float64)}
}

// Observe records occupied/capacity for tier. Empty tiers are ignored.
func (s *Sampler) Observe(tier model.Tier, occupied, capacity int) {
	if capacity <= 0 {
		return
	}
	s.samples[tier] = append(s.samples[tier], float64(occupied)/float64(capacity))
}

// Tiers returns the observed tiers in ascending order.
func (s *Sampler) Tiers() []model.Tier {
	out := make([]model.Tier, 0, len(s.samples))
	for t := range s.samples {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Utilization computes mean, standard deviation and peak per tier.
func (s *Sampler) Utilization() map[model.Tier]Utilization {
	out := make(map[model.Tier]Utilization, len(s.samples))
	for tier, xs := range s.samples {
		if len(xs) == 0 {
			continue
		}
		mean, std := stat.MeanStdDev(xs, nil)
		if len(xs) == 1 {
			std = 0
		}
		peak := 0.0
		for _, x := range xs {
			peak = max(peak, x)
		}
		out[tier] = Utilization{Mean: mean, StdDev: std, Peak: peak}
	}
	return out
}
