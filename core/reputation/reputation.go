package reputation

import (
	"errors"
	"fmt"

	"github.com/kilianp07/parkctl/core/model"
)

// ErrInsufficientFunds is returned by TryCharge when the wallet cannot cover a
// stop. Callers treat it as a routing decision.
var ErrInsufficientFunds = errors.New("insufficient funds")

// rolloverAt is the counter value that triggers a rating change.
const rolloverAt = 5

// Pricing defines the stop fee.
type Pricing struct {
	UnitPrice      int `json:"unit_price"`
	SurchargePct   int `json:"surcharge_pct"`
	SurchargeBelow int `json:"surcharge_below"`
	// BarredBelow is the rating under which a badly behaved vehicle is
	// refused in-town facilities.
	BarredBelow int `json:"barred_below"`
}

// DefaultPricing returns one unit per slot with a 25% surcharge under 3 stars.
func DefaultPricing() Pricing {
	return Pricing{UnitPrice: 1, SurchargePct: 25, SurchargeBelow: 3, BarredBelow: 3}
}

// Validate checks the pricing bounds.
func (p Pricing) Validate() error {
	if p.UnitPrice < 0 || p.SurchargePct < 0 {
		return fmt.Errorf("pricing must not be negative")
	}
	if p.SurchargeBelow < model.MinRating || p.SurchargeBelow > model.MaxRating+1 {
		return fmt.Errorf("surcharge_below %d out of range", p.SurchargeBelow)
	}
	if p.BarredBelow < model.MinRating || p.BarredBelow > model.MaxRating+1 {
		return fmt.Errorf("barred_below %d out of range", p.BarredBelow)
	}
	return nil
}

// Policy applies pricing and reputation rules to vehicle records.
type Policy struct {
	pricing      Pricing
	slotDuration int
}

// New returns a Policy. slotDuration is the tick length of one billed slot.
func New(pricing Pricing, slotDuration int) *Policy {
	return &Policy{pricing: pricing, slotDuration: slotDuration}
}

// Cost returns the fee of a stop of the given duration.
func (p *Policy) Cost(duration, rating int) int {
	if p.slotDuration <= 0 {
		return 0
	}
	base := duration / p.slotDuration * p.pricing.UnitPrice
	if rating < p.pricing.SurchargeBelow {
		base += base * p.pricing.SurchargePct / 100
	}
	return base
}

// TryCharge returns the post-debit balance without mutating the vehicle.
func (p *Policy) TryCharge(v *model.Vehicle, duration int) (int, error) {
	balance := v.Wallet - p.Cost(duration, v.Rating)
	if balance < 0 {
		return v.Wallet, fmt.Errorf("%w: vehicle %s has %d", ErrInsufficientFunds, v.ID, v.Wallet)
	}
	return balance, nil
}

// Stage records a pending debit to be committed when the vehicle parks.
func (p *Policy) Stage(v *model.Vehicle, balance int) {
	v.PendingWallet = balance
	v.PendingDebit = true
}

// Commit applies a staged debit. It reports whether a debit was applied.
func (p *Policy) Commit(v *model.Vehicle) bool {
	if !v.PendingDebit {
		return false
	}
	v.Wallet = v.PendingWallet
	v.PendingDebit = false
	return true
}

// Eligible reports whether v may use in-town facilities.
func (p *Policy) Eligible(v *model.Vehicle) bool {
	return v.Rating >= p.pricing.BarredBelow || v.GoodBehavior
}

// OnDeparture updates the reputation of v after leaving a stop with the given
// overstay.
func (p *Policy) OnDeparture(v *model.Vehicle, delay int) {
	if delay > 0 {
		v.GoodBehavior = false
		v.Warnings++
		if v.Warnings >= rolloverAt {
			v.Rating = max(model.MinRating, v.Rating-1)
			v.Warnings = 0
		} else {
			v.Civil = 0
		}
		return
	}
	v.GoodBehavior = true
	v.Civil++
	if v.Civil >= rolloverAt {
		v.Rating = min(model.MaxRating, v.Rating+1)
		v.Civil = 0
	}
}
