package registry

import (
	"fmt"
	"sort"

	"github.com/kilianp07/parkctl/core/model"
)

// vehiclesPerOutOfTownRow sizes the OutOfTown tier from the fleet.
const (
	vehiclesPerOutOfTownRow = 20
	minOutOfTownRows        = 4
)

// Config describes the static layout of the parking network.
type Config struct {
	TownRows       int `json:"town_rows"`
	SlotsPerRow    int `json:"slots_per_row"`
	OutOfTownSlots int `json:"out_of_town_slots"`
	FleetSize      int `json:"fleet_size"`
}

// Facility is an immutable registry entry.
type Facility struct {
	ID       model.FacilityID `json:"id"`
	Capacity int              `json:"capacity"`
}

// Registry is the read-only lookup of every facility.
type Registry struct {
	facilities map[model.FacilityID]Facility
	rows       map[model.Tier][]int
	ordered    []Facility
}

// OutOfTownRows returns ceil(fleetSize/20), at least 4.
func OutOfTownRows(fleetSize int) int {
	rows := (fleetSize + vehiclesPerOutOfTownRow - 1) / vehiclesPerOutOfTownRow
	if rows < minOutOfTownRows {
		return minOutOfTownRows
	}
	return rows
}

// New builds the registry. Town and Alternative share the same row count;
// each row holds a positive and a mirrored facility.
func New(cfg Config) (*Registry, error) {
	if cfg.TownRows <= 0 {
		return nil, fmt.Errorf("registry: town rows must be positive, got %d", cfg.TownRows)
	}
	if cfg.SlotsPerRow <= 0 || cfg.OutOfTownSlots <= 0 {
		return nil, fmt.Errorf("registry: capacities must be positive")
	}
	if cfg.FleetSize < 0 {
		return nil, fmt.Errorf("registry: negative fleet size")
	}
	r := &Registry{
		facilities: make(map[model.FacilityID]Facility),
		rows:       make(map[model.Tier][]int),
	}
	r.addTier(model.TierTown, cfg.TownRows, cfg.SlotsPerRow)
	r.addTier(model.TierAlternative, cfg.TownRows, cfg.SlotsPerRow)
	r.addTier(model.TierOutOfTown, OutOfTownRows(cfg.FleetSize), cfg.OutOfTownSlots)
	return r, nil
}

func (r *Registry) addTier(t model.Tier, rows, capacity int) {
	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}
	for _, row := range order {
		for _, dir := range []model.Direction{model.Positive, model.Negative} {
			f := Facility{ID: model.FacilityID{Tier: t, Row: row, Dir: dir}, Capacity: capacity}
			r.facilities[f.ID] = f
			r.ordered = append(r.ordered, f)
		}
	}
	if t == model.TierOutOfTown {
		sort.Sort(sort.Reverse(sort.IntSlice(order)))
	}
	r.rows[t] = order
}

// Capacity returns the fixed slot count of f, or 0 for unknown facilities.
func (r *Registry) Capacity(f model.FacilityID) int {
	return r.facilities[f].Capacity
}

// Tier returns the tier of a registered facility.
func (r *Registry) Tier(f model.FacilityID) model.Tier {
	if !r.Contains(f) {
		return model.TierUnknown
	}
	return f.Tier
}

// Contains reports whether f is registered.
func (r *Registry) Contains(f model.FacilityID) bool {
	_, ok := r.facilities[f]
	return ok
}

// Rows returns the traversal order of a tier: ascending for Town and
// Alternative, descending for OutOfTown. The slice must not be modified.
func (r *Registry) Rows(t model.Tier) []int {
	return r.rows[t]
}

// Mirrored returns the opposite-direction facility of the same row.
func (r *Registry) Mirrored(f model.FacilityID) model.FacilityID {
	return f.Mirrored()
}

// Facilities lists every facility grouped by tier in ascending row order.
func (r *Registry) Facilities() []Facility {
	out := make([]Facility, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// TierFacilities lists the facilities of one tier in ascending row order.
func (r *Registry) TierFacilities(t model.Tier) []Facility {
	var out []Facility
	for _, f := range r.ordered {
		if f.ID.Tier == t {
			out = append(out, f)
		}
	}
	return out
}
