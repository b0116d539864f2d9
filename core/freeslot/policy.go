package freeslot

import (
	"fmt"

	"github.com/kilianp07/parkctl/core/model"
)

// OverrideDisabled turns off the global headroom override.
const OverrideDisabled = -1

// Config defines the headroom policy.
type Config struct {
	BootstrapHeadroom  int `json:"bootstrap_headroom"`
	DefaultHeadroom    int `json:"default_headroom"`
	BootstrapWindowEnd int `json:"bootstrap_window_end"`
	OverrideHeadroom   int `json:"override_headroom"`
	MaxDuration        int `json:"max_duration"`
	SlotDuration       int `json:"slot_duration"`
	RefreshDivisor     int `json:"refresh_divisor"`
}

// DefaultConfig returns the reference policy: 3 slots withheld, a 100 tick
// bootstrap window and a refresh every 800 ticks.
func DefaultConfig() Config {
	return Config{
		BootstrapHeadroom:  3,
		DefaultHeadroom:    3,
		BootstrapWindowEnd: 100,
		OverrideHeadroom:   OverrideDisabled,
		MaxDuration:        24,
		SlotDuration:       100,
		RefreshDivisor:     3,
	}
}

// Validate checks the policy bounds.
func (c Config) Validate() error {
	if c.BootstrapHeadroom < 0 || c.DefaultHeadroom < 0 {
		return fmt.Errorf("headroom must not be negative")
	}
	if c.OverrideHeadroom < OverrideDisabled {
		return fmt.Errorf("override_headroom must be >= -1, got %d", c.OverrideHeadroom)
	}
	if c.MaxDuration <= 0 || c.SlotDuration <= 0 || c.RefreshDivisor <= 0 {
		return fmt.Errorf("max_duration, slot_duration and refresh_divisor must be positive")
	}
	if c.RefreshPeriod() <= 0 {
		return fmt.Errorf("refresh period must be positive")
	}
	return nil
}

// RefreshPeriod is maxDuration*slotDuration/refreshDivisor.
func (c Config) RefreshPeriod() int {
	if c.RefreshDivisor == 0 {
		return 0
	}
	return c.MaxDuration * c.SlotDuration / c.RefreshDivisor
}

// Policy computes per-facility headroom and owns the free-slot ledger.
type Policy struct {
	cfg         Config
	credits     map[model.FacilityID]int
	misbehavior map[model.FacilityID]int
}

// New returns a policy with an empty ledger.
func New(cfg Config) *Policy {
	return &Policy{
		cfg:         cfg,
		credits:     make(map[model.FacilityID]int),
		misbehavior: make(map[model.FacilityID]int),
	}
}

// Config returns the policy configuration.
func (p *Policy) Config() Config { return p.cfg }

// Headroom returns the number of slots of f withheld from reservation at tick.
func (p *Policy) Headroom(f model.FacilityID, tick int) int {
	switch {
	case f.Tier == model.TierOutOfTown:
		return 0
	case p.cfg.OverrideHeadroom != OverrideDisabled:
		return p.cfg.OverrideHeadroom
	case tick < p.cfg.BootstrapWindowEnd:
		return p.cfg.BootstrapHeadroom
	}
	if c, ok := p.credits[f]; ok {
		return c
	}
	return p.cfg.DefaultHeadroom
}

// CreditMisbehavior records an overstay eviction at f. A facility without an
// entry starts at 1; existing entries grow by one up to the bootstrap headroom.
func (p *Policy) CreditMisbehavior(f model.FacilityID) {
	p.misbehavior[f]++
	c, ok := p.credits[f]
	switch {
	case !ok:
		p.credits[f] = min(1, p.cfg.BootstrapHeadroom)
	case c < p.cfg.BootstrapHeadroom:
		p.credits[f] = c + 1
	}
}

// Credit returns the ledger entry of f and whether it exists.
func (p *Policy) Credit(f model.FacilityID) (int, bool) {
	c, ok := p.credits[f]
	return c, ok
}

// Misbehavior returns the evictions recorded at f since the last reset.
func (p *Policy) Misbehavior(f model.FacilityID) int {
	return p.misbehavior[f]
}

// ResetCycle clears the free-slot ledger and misbehavior counters.
func (p *Policy) ResetCycle() {
	clear(p.credits)
	clear(p.misbehavior)
}

// IsRefreshBoundary reports whether tick closes a refresh window.
func (p *Policy) IsRefreshBoundary(tick int) bool {
	period := p.cfg.RefreshPeriod()
	return period > 0 && tick%period == 0
}
