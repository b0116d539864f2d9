package model

import (
	"fmt"
	"strconv"
)

// Phase is the admission state of a vehicle.
type Phase int

const (
	// Moving vehicles are en route to their next stop.
	Moving Phase = iota
	// Stopped vehicles are parked.
	Stopped
)

func (p Phase) String() string {
	if p == Stopped {
		return "stopped"
	}
	return "moving"
}

const (
	MinRating = 0
	MaxRating = 5
)

// Vehicle is the typed per-vehicle record owned by the admission controller.
type Vehicle struct {
	ID   string
	Plan Plan

	Rating       int  // review stars in [0,5]
	Warnings     int  // late departures since last rollover
	Civil        int  // on-time departures since last rollover
	GoodBehavior bool // outcome of the last departure
	Wallet       int
	Delay        int // observed overstay in ticks

	LastFacility       FacilityID
	ScheduledDeparture int
	HasReservation     bool
	Phase              Phase

	// PendingWallet holds the post-debit balance until the vehicle parks.
	PendingWallet int
	PendingDebit  bool

	Parks      int
	Redirected bool
	// Waiting is set while the vehicle queues at a full in-town facility.
	Waiting bool
}

// Validate checks that the reputation fields are within bounds.
func (v Vehicle) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vehicle id is required")
	}
	if v.Rating < MinRating || v.Rating > MaxRating {
		return fmt.Errorf("vehicle %s: rating %d out of range", v.ID, v.Rating)
	}
	if v.Warnings < 0 || v.Civil < 0 {
		return fmt.Errorf("vehicle %s: negative counters", v.ID)
	}
	return nil
}

// Engine parameter keys.
const (
	ParamReviewStars   = "reviewStars"
	ParamWarning       = "warning"
	ParamCivil         = "civil"
	ParamGoodBehaviour = "goodBehaviour"
	ParamWallet        = "wallet"
	ParamDelay         = "delay"
)

// Params serializes the reputation and wallet fields to the engine's
// string-keyed protocol.
func (v Vehicle) Params() map[string]string {
	return map[string]string{
		ParamReviewStars:   strconv.Itoa(v.Rating),
		ParamWarning:       strconv.Itoa(v.Warnings),
		ParamCivil:         strconv.Itoa(v.Civil),
		ParamGoodBehaviour: boolParam(v.GoodBehavior),
		ParamWallet:        strconv.Itoa(v.Wallet),
		ParamDelay:         strconv.Itoa(v.Delay),
	}
}

// FromParams builds a vehicle record from engine parameters. Missing keys keep
// their zero value except goodBehaviour, which defaults to true.
func FromParams(id string, params map[string]string) (Vehicle, error) {
	v := Vehicle{ID: id, GoodBehavior: true}
	ints := map[string]*int{
		ParamReviewStars: &v.Rating,
		ParamWarning:     &v.Warnings,
		ParamCivil:       &v.Civil,
		ParamWallet:      &v.Wallet,
		ParamDelay:       &v.Delay,
	}
	for key, dst := range ints {
		raw, ok := params[key]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return v, fmt.Errorf("vehicle %s: param %s: %w", id, key, err)
		}
		*dst = n
	}
	if raw, ok := params[ParamGoodBehaviour]; ok {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return v, fmt.Errorf("vehicle %s: param %s: %w", id, ParamGoodBehaviour, err)
		}
		v.GoodBehavior = b
	}
	return v, v.Validate()
}

func boolParam(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
