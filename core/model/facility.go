package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Tier groups facilities sharing the same admission rules.
type Tier int

const (
	TierUnknown Tier = iota
	TierTown
	TierAlternative
	TierOutOfTown
)

var tierNames = map[Tier]string{
	TierTown:        "ParkArea",
	TierAlternative: "ParkAreaAlternative",
	TierOutOfTown:   "ParkAreaOutOfTown",
}

// String returns the facility name prefix used by the engine protocol.
func (t Tier) String() string {
	if n, ok := tierNames[t]; ok {
		return n
	}
	return "Unknown"
}

// ParseTier parses the name returned by Tier.String.
func ParseTier(s string) (Tier, error) {
	for t, n := range tierNames {
		if n == s {
			return t, nil
		}
	}
	return TierUnknown, fmt.Errorf("unknown tier %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// InTown reports whether the tier is part of the reservation system.
func (t Tier) InTown() bool { return t == TierTown || t == TierAlternative }

// Other returns the alternate in-town tier. OutOfTown has no alternate.
func (t Tier) Other() Tier {
	switch t {
	case TierTown:
		return TierAlternative
	case TierAlternative:
		return TierTown
	default:
		return TierUnknown
	}
}

// Direction is the side of the row a facility sits on.
type Direction int

const (
	Positive Direction = 1
	Negative Direction = -1
)

// FacilityID identifies a single parking facility.
type FacilityID struct {
	Tier Tier
	Row  int
	Dir  Direction
}

// NoFacility is returned when a search is exhausted.
var NoFacility = FacilityID{}

// IsZero reports whether the identifier is unset.
func (f FacilityID) IsZero() bool { return f == NoFacility }

// Mirrored returns the facility on the opposite side of the same row.
func (f FacilityID) Mirrored() FacilityID {
	return FacilityID{Tier: f.Tier, Row: f.Row, Dir: -f.Dir}
}

// String formats the identifier as "ParkArea0" or "ParkArea-0".
func (f FacilityID) String() string {
	if f.IsZero() {
		return "End"
	}
	if f.Dir == Negative {
		return fmt.Sprintf("%s-%d", f.Tier, f.Row)
	}
	return fmt.Sprintf("%s%d", f.Tier, f.Row)
}

// MarshalText implements encoding.TextMarshaler so identifiers can be used as
// map keys in JSON and YAML documents.
func (f FacilityID) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *FacilityID) UnmarshalText(b []byte) error {
	id, err := ParseFacilityID(string(b))
	if err != nil {
		return err
	}
	*f = id
	return nil
}

// ParseFacilityID parses the engine representation of a facility.
func ParseFacilityID(s string) (FacilityID, error) {
	// longest prefix first: "ParkArea" is a prefix of the other two
	for _, t := range []Tier{TierOutOfTown, TierAlternative, TierTown} {
		prefix := t.String()
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		rest := strings.TrimPrefix(s, prefix)
		dir := Positive
		if strings.HasPrefix(rest, "-") {
			dir = Negative
			rest = rest[1:]
		}
		row, err := strconv.Atoi(rest)
		if err != nil || row < 0 {
			return NoFacility, fmt.Errorf("invalid facility %q", s)
		}
		return FacilityID{Tier: t, Row: row, Dir: dir}, nil
	}
	return NoFacility, fmt.Errorf("unknown facility %q", s)
}
