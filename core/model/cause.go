package model

import "fmt"

// Cause explains why a vehicle was redirected.
type Cause int

const (
	CauseReservationOverflow Cause = iota + 1
	CausePhysicalOverflow
	CauseReputationBarred
	CauseInsufficientFunds
)

// Causes lists every redirection cause in reporting order.
var Causes = []Cause{
	CauseReservationOverflow,
	CausePhysicalOverflow,
	CauseReputationBarred,
	CauseInsufficientFunds,
}

func (c Cause) String() string {
	switch c {
	case CauseReservationOverflow:
		return "reservation_overflow"
	case CausePhysicalOverflow:
		return "physical_overflow"
	case CauseReputationBarred:
		return "reputation_barred"
	case CauseInsufficientFunds:
		return "insufficient_funds"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Cause) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// ParseCause parses the name returned by Cause.String.
func ParseCause(s string) (Cause, error) {
	for _, c := range Causes {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown cause %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Cause) UnmarshalText(b []byte) error {
	parsed, err := ParseCause(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
