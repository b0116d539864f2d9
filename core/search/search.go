package search

import "github.com/kilianp07/parkctl/core/model"

// Mode selects the admission predicate of a traversal.
type Mode int

const (
	// ReservationAware admits while reservations stay under capacity minus headroom.
	ReservationAware Mode = iota
	// FreeParkAware admits into withheld slots that are physically free.
	FreeParkAware
	// OccupancyOnly ignores headroom and is used for OutOfTown.
	OccupancyOnly
)

func (m Mode) String() string {
	switch m {
	case ReservationAware:
		return "reservation_aware"
	case FreeParkAware:
		return "free_park_aware"
	case OccupancyOnly:
		return "occupancy_only"
	default:
		return "unknown"
	}
}

// Registry is the static facility lookup used by the search.
type Registry interface {
	Capacity(f model.FacilityID) int
	Rows(t model.Tier) []int
}

// Reservations exposes reservation counts.
type Reservations interface {
	Count(f model.FacilityID) int
}

// Headroom exposes the free-slot policy.
type Headroom interface {
	Headroom(f model.FacilityID, tick int) int
}

// Occupancy reports the vehicles physically parked at a facility.
type Occupancy interface {
	Occupancy(f model.FacilityID) int
}

// Result is the outcome of a search. A zero Facility means exhaustion.
type Result struct {
	Facility model.FacilityID
	Mode     Mode
	// Escalated is set when the in-town tiers had no admitting facility.
	Escalated bool
}

// Found reports whether a facility admitted the vehicle.
func (r Result) Found() bool { return !r.Facility.IsZero() }

// Searcher runs the deterministic fallback traversal.
type Searcher struct {
	reg      Registry
	res      Reservations
	headroom Headroom
	occ      Occupancy
}

// New returns a Searcher reading live ledger and occupancy state.
func New(reg Registry, res Reservations, headroom Headroom, occ Occupancy) *Searcher {
	return &Searcher{reg: reg, res: res, headroom: headroom, occ: occ}
}

// Admits evaluates the admission predicate of mode for f at tick.
func (s *Searcher) Admits(mode Mode, f model.FacilityID, tick int) bool {
	capacity := s.reg.Capacity(f)
	count := s.res.Count(f)
	switch mode {
	case ReservationAware:
		return count < capacity-s.headroom.Headroom(f, tick)
	case FreeParkAware:
		h := s.headroom.Headroom(f, tick)
		return h > 0 && count+h < capacity && s.occ.Occupancy(f) < capacity
	case OccupancyOnly:
		return s.occ.Occupancy(f) < capacity && count < capacity
	default:
		return false
	}
}

// Search looks for an admitting facility starting from tier from: its rows,
// then the other in-town tier, then OutOfTown with the occupancy-only
// predicate. OutOfTown starting points search OutOfTown only.
func (s *Searcher) Search(mode Mode, from model.Tier, tick int) Result {
	if !from.InTown() || mode == OccupancyOnly {
		return s.OutOfTown(tick)
	}
	for _, tier := range []model.Tier{from, from.Other()} {
		if f, ok := s.traverse(mode, tier, tick); ok {
			return Result{Facility: f, Mode: mode}
		}
	}
	res := s.OutOfTown(tick)
	res.Escalated = true
	return res
}

// OutOfTown searches the OutOfTown tier in descending row order.
func (s *Searcher) OutOfTown(tick int) Result {
	f, ok := s.traverse(OccupancyOnly, model.TierOutOfTown, tick)
	if !ok {
		return Result{Mode: OccupancyOnly}
	}
	return Result{Facility: f, Mode: OccupancyOnly}
}

func (s *Searcher) traverse(mode Mode, tier model.Tier, tick int) (model.FacilityID, bool) {
	for _, row := range s.reg.Rows(tier) {
		pos := model.FacilityID{Tier: tier, Row: row, Dir: model.Positive}
		for _, f := range []model.FacilityID{pos, pos.Mirrored()} {
			if s.Admits(mode, f, tick) {
				return f, true
			}
		}
	}
	return model.NoFacility, false
}
