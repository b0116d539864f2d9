package admission

import "github.com/kilianp07/parkctl/core/model"

// Stats are the run counters reported in the summary.
type Stats struct {
	Redirects map[model.Cause]int
	// ChangedRoute counts vehicles redirected at least once.
	ChangedRoute int
	// NoPark counts waits in front of a physically full in-town facility.
	NoPark int
	// NotFound counts in-town searches that escalated to OutOfTown.
	NotFound int
	// Unresolved counts searches that found nothing; the vehicle retries.
	Unresolved int
	Ends       int
	Evictions  int
	Parks      int
	Refreshes  int
}

func newStats() *Stats {
	return &Stats{Redirects: make(map[model.Cause]int, len(model.Causes))}
}

// TotalRedirects sums redirections over every cause.
func (s *Stats) TotalRedirects() int {
	total := 0
	for _, n := range s.Redirects {
		total += n
	}
	return total
}

// TotalEnds counts released reservations, on departure or by eviction.
func (s *Stats) TotalEnds() int { return s.Ends + s.Evictions }
