package scenario

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strconv"

	"github.com/kilianp07/parkctl/core/model"
)

// GenerateConfig holds parameters for seeded descriptor generation.
type GenerateConfig struct {
	Name          string `json:"name"`
	Seed          int64  `json:"seed"`
	Good          int    `json:"good"`
	Bad           int    `json:"bad"`
	Stops         int    `json:"stops"`
	StopsPerDay   int    `json:"stops_per_day"`
	TownRows      int    `json:"town_rows"`
	OutOfTownRows int    `json:"out_of_town_rows"`
	SlotDuration  int    `json:"slot_duration"`
	MaxDuration   int    `json:"max_duration"`
	DepartSpacing int    `json:"depart_spacing"`
	Wallet        int    `json:"wallet"`
	Rating        int    `json:"rating"`
	LeadStops     int    `json:"lead_stops"`
}

// DefaultGenerateConfig mirrors the reference population of 40 well behaved
// and 40 overstaying vehicles.
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		Name:          "reference",
		Seed:          100,
		Good:          40,
		Bad:           40,
		Stops:         10,
		StopsPerDay:   5,
		TownRows:      2,
		OutOfTownRows: 4,
		SlotDuration:  100,
		MaxDuration:   24,
		DepartSpacing: 5,
		Wallet:        100,
		Rating:        3,
		LeadStops:     1,
	}
}

func (c GenerateConfig) validate() error {
	switch {
	case c.Good < 0 || c.Bad < 0 || c.Good+c.Bad == 0:
		return fmt.Errorf("fleet must not be empty")
	case c.Stops <= 0 || c.StopsPerDay <= 0:
		return fmt.Errorf("stops and stops_per_day must be positive")
	case c.TownRows <= 0 || c.OutOfTownRows <= 0:
		return fmt.Errorf("rows must be positive")
	case c.SlotDuration <= 0 || c.MaxDuration < 8:
		return fmt.Errorf("slot_duration must be positive and max_duration at least 8")
	case c.LeadStops < 0 || c.DepartSpacing < 0:
		return fmt.Errorf("lead_stops and depart_spacing must not be negative")
	}
	return nil
}

// subRand derives an isolated stream: seed XOR fnv1a64(name).
func subRand(seed int64, name string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return rand.New(rand.NewSource(seed ^ int64(h.Sum64())))
}

// randRange returns a value in [lo, hi).
func randRange(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo)
}

// Generate builds a descriptor. Good and bad vehicles alternate while both
// remain; four vehicles leave per departure wave; direction alternates in
// pairs. Bad vehicles overstay every in-town stop by one slot.
func Generate(cfg GenerateConfig) (*Descriptor, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	durations := subRand(cfg.Seed, "durations")
	tiers := subRand(cfg.Seed, "tiers")

	d := &Descriptor{Name: cfg.Name, Seed: cfg.Seed, LeadStops: cfg.LeadStops}
	good, bad := cfg.Good, cfg.Bad
	for k := 0; good+bad > 0; k++ {
		isBad := bad > 0 && (good == 0 || k%2 == 1)
		if isBad {
			bad--
		} else {
			good--
		}
		dir := model.Positive
		if (k/2)%2 == 1 {
			dir = model.Negative
		}
		delay, pad := 0, 0
		if isBad {
			delay, pad = cfg.SlotDuration, cfg.SlotDuration
		}
		row := k % cfg.TownRows
		var stops []model.Stop
		for i := 0; i < cfg.Stops; i++ {
			tier := model.TierAlternative
			if randRange(tiers, 1, 100)%2 == 0 {
				tier = model.TierTown
			}
			dur := randRange(durations, 1, cfg.MaxDuration/8)*cfg.SlotDuration + pad
			stops = append(stops, model.Stop{
				Facility: model.FacilityID{Tier: tier, Row: row, Dir: dir},
				Duration: dur,
			})
			if (i+1)%cfg.StopsPerDay == 0 {
				third := cfg.MaxDuration / 3
				stops = append(stops, model.Stop{
					Facility: model.FacilityID{Tier: model.TierOutOfTown, Row: k % cfg.OutOfTownRows, Dir: dir},
					Duration: randRange(durations, third, cfg.MaxDuration-third) * cfg.SlotDuration,
				})
			}
		}
		lead := make([]model.Stop, cfg.LeadStops)
		for i := range lead {
			lead[i] = model.Stop{Facility: stops[0].Facility}
		}
		d.Vehicles = append(d.Vehicles, VehicleSpec{
			ID:     fmt.Sprintf("veh%04d", k+1),
			Depart: (k / 4) * cfg.DepartSpacing,
			Params: map[string]string{
				model.ParamReviewStars:   strconv.Itoa(cfg.Rating),
				model.ParamWarning:       "0",
				model.ParamCivil:         "0",
				model.ParamGoodBehaviour: "True",
				model.ParamWallet:        strconv.Itoa(cfg.Wallet),
				model.ParamDelay:         strconv.Itoa(delay),
			},
			Stops: append(lead, stops...),
		})
	}
	return d, nil
}
