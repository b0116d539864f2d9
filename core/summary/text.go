package summary

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kilianp07/parkctl/core/ledger"
	"github.com/kilianp07/parkctl/core/model"
)

// TextStore appends summaries as key=value lines. Records are separated by a
// blank line and begin with run_id.
type TextStore struct {
	mu   sync.Mutex
	path string
}

// NewTextStore returns a store appending to path. The file is created on the
// first Append.
func NewTextStore(path string) *TextStore {
	return &TextStore{path: path}
}

// Append writes s at the end of the log.
func (t *TextStore) Append(_ context.Context, s RunSummary) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := Encode(w, s); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// List parses every record in the log. A missing log is empty.
func (t *TextStore) List(_ context.Context) ([]RunSummary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, err := os.Open(t.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// Close is a no-op; the file is only open during Append.
func (t *TextStore) Close() error { return nil }

// Encode writes s as one key=value record followed by a blank line.
func Encode(w io.Writer, s RunSummary) error {
	var b strings.Builder
	kv := func(k string, v any) { fmt.Fprintf(&b, "%s=%v\n", k, v) }

	kv("run_id", s.RunID)
	kv("started_at", s.StartedAt.UTC().Format(time.RFC3339))
	kv("scenario", s.Scenario)
	kv("seed", s.Seed)
	kv("vehicles", s.Vehicles)
	kv("final_tick", s.FinalTick)
	for _, c := range model.Causes {
		kv("redirects."+c.String(), s.Redirects[c])
	}
	kv("redirects.total", s.TotalRedirects())
	kv("never_parked", s.NeverParked)
	kv("changed_route", s.ChangedRoute)
	kv("no_park", s.NoPark)
	kv("not_found", s.NotFound)
	kv("unresolved", s.Unresolved)
	kv("good_ends", s.GoodEnds)
	kv("bad_ends", s.BadEnds)
	kv("total_ends", s.TotalEnds())
	kv("headroom.bootstrap", s.Headroom.Bootstrap)
	kv("headroom.default", s.Headroom.Default)
	kv("headroom.override", s.Headroom.Override)
	kv("headroom.refresh_period", s.Headroom.RefreshPeriod)
	for _, e := range s.Ledger {
		kv("ledger."+e.Facility.String(), e.Count)
	}
	tiers := make([]model.Tier, 0, len(s.Utilization))
	for tier := range s.Utilization {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })
	for _, tier := range tiers {
		u := s.Utilization[tier]
		prefix := "utilization." + tier.String()
		kv(prefix+".mean", strconv.FormatFloat(u.Mean, 'f', 4, 64))
		kv(prefix+".stddev", strconv.FormatFloat(u.StdDev, 'f', 4, 64))
		kv(prefix+".peak", strconv.FormatFloat(u.Peak, 'f', 4, 64))
	}
	kv("duration_ms", s.Duration.Milliseconds())
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// Decode parses records written by Encode. Unknown keys are ignored so that
// older logs stay readable.
func Decode(r io.Reader) ([]RunSummary, error) {
	var (
		out  []RunSummary
		cur  *RunSummary
		line int
	)
	flush := func() {
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			flush()
			continue
		}
		key, val, ok := strings.Cut(text, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: missing '='", line)
		}
		if key == "run_id" {
			flush()
			cur = &RunSummary{RunID: val, Redirects: make(map[model.Cause]int)}
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("line %d: %s before run_id", line, key)
		}
		if err := cur.set(key, val); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return out, nil
}

func (s *RunSummary) set(key, val string) error {
	if name, ok := strings.CutPrefix(key, "redirects."); ok {
		if name == "total" {
			return nil
		}
		c, err := model.ParseCause(name)
		if err != nil {
			return err
		}
		return setInt(key, val, func(v int) { s.Redirects[c] = v })
	}
	if name, ok := strings.CutPrefix(key, "ledger."); ok {
		f, err := model.ParseFacilityID(name)
		if err != nil {
			return err
		}
		return setInt(key, val, func(v int) { s.Ledger = append(s.Ledger, ledger.Entry{Facility: f, Count: v}) })
	}
	if rest, ok := strings.CutPrefix(key, "utilization."); ok {
		return s.setUtilization(rest, val)
	}

	ints := map[string]*int{
		"vehicles":                &s.Vehicles,
		"final_tick":              &s.FinalTick,
		"never_parked":            &s.NeverParked,
		"changed_route":           &s.ChangedRoute,
		"no_park":                 &s.NoPark,
		"not_found":               &s.NotFound,
		"unresolved":              &s.Unresolved,
		"good_ends":               &s.GoodEnds,
		"bad_ends":                &s.BadEnds,
		"headroom.bootstrap":      &s.Headroom.Bootstrap,
		"headroom.default":        &s.Headroom.Default,
		"headroom.override":       &s.Headroom.Override,
		"headroom.refresh_period": &s.Headroom.RefreshPeriod,
	}
	if dst, ok := ints[key]; ok {
		return setInt(key, val, func(v int) { *dst = v })
	}

	switch key {
	case "scenario":
		s.Scenario = val
	case "seed":
		v, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		s.Seed = v
	case "started_at":
		ts, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return fmt.Errorf("started_at: %w", err)
		}
		s.StartedAt = ts
	case "duration_ms":
		v, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("duration_ms: %w", err)
		}
		s.Duration = time.Duration(v) * time.Millisecond
	}
	return nil
}

func (s *RunSummary) setUtilization(key, val string) error {
	name, field, ok := strings.Cut(key, ".")
	if !ok {
		return fmt.Errorf("utilization key %q", key)
	}
	tier, err := model.ParseTier(name)
	if err != nil {
		return err
	}
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("utilization.%s: %w", key, err)
	}
	if s.Utilization == nil {
		s.Utilization = make(map[model.Tier]Utilization)
	}
	u := s.Utilization[tier]
	switch field {
	case "mean":
		u.Mean = v
	case "stddev":
		u.StdDev = v
	case "peak":
		u.Peak = v
	}
	s.Utilization[tier] = u
	return nil
}

func setInt(key, val string, set func(int)) error {
	v, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	set(v)
	return nil
}
