package model

import "fmt"

// Stop is a single intended parking stop.
type Stop struct {
	Facility FacilityID `json:"facility" yaml:"facility"`
	Duration int        `json:"duration" yaml:"duration"`
}

// Plan is the ordered list of stops owned by one vehicle. Lead stops are
// waypoints handled by the engine; admission starts at index Lead.
type Plan struct {
	Stops  []Stop
	Lead   int
	cursor int
}

// NewPlan copies stops so that plans never alias each other.
func NewPlan(stops []Stop, lead int) Plan {
	cp := make([]Stop, len(stops))
	copy(cp, stops)
	return Plan{Stops: cp, Lead: lead, cursor: lead}
}

// Index returns the absolute index of the current stop.
func (p *Plan) Index() int { return p.cursor }

// Current returns the stop the vehicle is heading to.
func (p *Plan) Current() (Stop, bool) {
	if p.cursor < p.Lead || p.cursor >= len(p.Stops) {
		return Stop{}, false
	}
	return p.Stops[p.cursor], true
}

// Remaining returns the number of real stops not yet reached.
func (p *Plan) Remaining() int {
	if p.cursor >= len(p.Stops) {
		return 0
	}
	return len(p.Stops) - p.cursor
}

// Advance moves the cursor past the current stop.
func (p *Plan) Advance() {
	if p.cursor < len(p.Stops) {
		p.cursor++
	}
}

// Redirect overwrites the facility of stop idx in place.
func (p *Plan) Redirect(idx int, f FacilityID) error {
	if idx < p.Lead || idx >= len(p.Stops) {
		return fmt.Errorf("stop index %d out of range", idx)
	}
	p.Stops[idx].Facility = f
	return nil
}
