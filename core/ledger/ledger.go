package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kilianp07/parkctl/core/model"
)

// ErrInvariantViolation signals a bookkeeping defect. It is never retried.
var ErrInvariantViolation = errors.New("ledger invariant violation")

// Entry is one facility count in a snapshot.
type Entry struct {
	Facility model.FacilityID `json:"facility"`
	Count    int              `json:"count"`
}

// Ledger counts active reservations per facility. It is owned by a single
// goroutine and is not safe for concurrent use.
type Ledger struct {
	counts map[model.FacilityID]int
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{counts: make(map[model.FacilityID]int)}
}

// Reserve increments the count of f.
func (l *Ledger) Reserve(f model.FacilityID) error {
	if f.IsZero() {
		return fmt.Errorf("%w: reserve on empty facility", ErrInvariantViolation)
	}
	l.counts[f]++
	return nil
}

// Release decrements the count of f.
func (l *Ledger) Release(f model.FacilityID) error {
	if l.counts[f] <= 0 {
		return fmt.Errorf("%w: release on %s would go negative", ErrInvariantViolation, f)
	}
	l.counts[f]--
	return nil
}

// Transfer moves one reservation from one facility to another. Either both
// sides change or neither does.
func (l *Ledger) Transfer(from, to model.FacilityID) error {
	if to.IsZero() {
		return fmt.Errorf("%w: transfer to empty facility", ErrInvariantViolation)
	}
	if l.counts[from] <= 0 {
		return fmt.Errorf("%w: transfer from %s would go negative", ErrInvariantViolation, from)
	}
	l.counts[from]--
	l.counts[to]++
	return nil
}

// Count returns the active reservations of f.
func (l *Ledger) Count(f model.FacilityID) int {
	return l.counts[f]
}

// Sum returns the total number of active reservations.
func (l *Ledger) Sum() int {
	total := 0
	for _, c := range l.counts {
		total += c
	}
	return total
}

// Verify checks that no count is negative and that the total equals the
// number of reservation holders.
func (l *Ledger) Verify(holders int) error {
	for f, c := range l.counts {
		if c < 0 {
			return fmt.Errorf("%w: %s has count %d", ErrInvariantViolation, f, c)
		}
	}
	if sum := l.Sum(); sum != holders {
		return fmt.Errorf("%w: sum %d != holders %d", ErrInvariantViolation, sum, holders)
	}
	return nil
}

// Snapshot returns every facility that ever held a reservation, sorted by
// name.
func (l *Ledger) Snapshot() []Entry {
	out := make([]Entry, 0, len(l.counts))
	for f, c := range l.counts {
		out = append(out, Entry{Facility: f, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Facility.String() < out[j].Facility.String()
	})
	return out
}
