package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/parkctl/core/model"
)

// ErrMalformed is returned when a descriptor cannot drive a run.
var ErrMalformed = errors.New("malformed scenario")

// VehicleSpec is the plan and initial parameters of one vehicle.
type VehicleSpec struct {
	ID     string            `yaml:"id"`
	Depart int               `yaml:"depart"`
	Params map[string]string `yaml:"params"`
	Stops  []model.Stop      `yaml:"stops"`
}

// Plan returns a fresh plan for the vehicle.
func (v VehicleSpec) Plan(lead int) model.Plan {
	return model.NewPlan(v.Stops, lead)
}

// Descriptor lists every vehicle of a run. The first LeadStops stops of each
// vehicle are waypoints that precede the first real stop.
type Descriptor struct {
	Name      string        `yaml:"name"`
	Seed      int64         `yaml:"seed,omitempty"`
	LeadStops int           `yaml:"lead_stops"`
	Vehicles  []VehicleSpec `yaml:"vehicles"`
}

// Facilities is the subset of the registry used for validation.
type Facilities interface {
	Contains(f model.FacilityID) bool
}

// Load reads a YAML descriptor.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return &d, nil
}

// Save writes the descriptor as YAML.
func (d *Descriptor) Save(path string) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Vehicle returns the spec of id.
func (d *Descriptor) Vehicle(id string) (VehicleSpec, bool) {
	for _, v := range d.Vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return VehicleSpec{}, false
}

// Validate checks that every vehicle has a usable plan against reg.
func (d *Descriptor) Validate(reg Facilities) error {
	if d.LeadStops < 0 {
		return fmt.Errorf("%w: negative lead_stops", ErrMalformed)
	}
	if len(d.Vehicles) == 0 {
		return fmt.Errorf("%w: no vehicles", ErrMalformed)
	}
	seen := make(map[string]struct{}, len(d.Vehicles))
	for _, v := range d.Vehicles {
		if v.ID == "" {
			return fmt.Errorf("%w: vehicle without id", ErrMalformed)
		}
		if _, dup := seen[v.ID]; dup {
			return fmt.Errorf("%w: duplicate vehicle %s", ErrMalformed, v.ID)
		}
		seen[v.ID] = struct{}{}
		if v.Depart < 0 {
			return fmt.Errorf("%w: vehicle %s departs at %d", ErrMalformed, v.ID, v.Depart)
		}
		if len(v.Stops) <= d.LeadStops {
			return fmt.Errorf("%w: vehicle %s has no stop after %d lead stops", ErrMalformed, v.ID, d.LeadStops)
		}
		for i, s := range v.Stops {
			if s.Duration < 0 {
				return fmt.Errorf("%w: vehicle %s stop %d has negative duration", ErrMalformed, v.ID, i)
			}
			if i >= d.LeadStops && !reg.Contains(s.Facility) {
				return fmt.Errorf("%w: vehicle %s stop %d targets unknown facility %s", ErrMalformed, v.ID, i, s.Facility)
			}
		}
		if _, err := model.FromParams(v.ID, v.Params); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	return nil
}
