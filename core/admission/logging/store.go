package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"time"
)

// Kind classifies a trace record.
type Kind string

const (
	KindRedirect  Kind = "redirect"
	KindPark      Kind = "park"
	KindDeparture Kind = "departure"
	KindEviction  Kind = "eviction"
	KindRefresh   Kind = "refresh"
)

// Record captures one admission decision.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	Tick      int       `json:"tick"`
	Kind      Kind      `json:"kind"`
	VehicleID string    `json:"vehicle_id,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Cause     string    `json:"cause,omitempty"`
	Delay     int       `json:"delay,omitempty"`
	Wallet    int       `json:"wallet,omitempty"`
	Rating    int       `json:"rating,omitempty"`
}

// Query defines filters for retrieving records. Zero fields match anything;
// ToTick 0 is unbounded.
type Query struct {
	RunID     string
	VehicleID string
	Kind      Kind
	FromTick  int
	ToTick    int
}

// Match reports whether r passes every filter of q.
func (q Query) Match(r Record) bool {
	switch {
	case q.RunID != "" && r.RunID != q.RunID:
		return false
	case q.VehicleID != "" && r.VehicleID != q.VehicleID:
		return false
	case q.Kind != "" && r.Kind != q.Kind:
		return false
	case r.Tick < q.FromTick:
		return false
	case q.ToTick > 0 && r.Tick > q.ToTick:
		return false
	}
	return true
}

// Store persists trace records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

// scan decodes JSON lines from r, skipping malformed ones.
func scan(r io.Reader, q Query, out []Record) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			continue
		}
		if q.Match(rec) {
			out = append(out, rec)
		}
	}
	return out, sc.Err()
}
