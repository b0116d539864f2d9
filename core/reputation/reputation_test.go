package reputation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/parkctl/core/model"
)

func TestCostWithSurcharge(t *testing.T) {
	p := New(DefaultPricing(), 100)
	assert.Equal(t, 10, p.Cost(800, 2))
	assert.Equal(t, 8, p.Cost(800, 3))
	assert.Equal(t, 1, p.Cost(199, 5), "partial slots are not billed")
	assert.Equal(t, 0, p.Cost(50, 0))
}

func TestTryChargeSucceeds(t *testing.T) {
	p := New(DefaultPricing(), 100)
	v := &model.Vehicle{ID: "v", Wallet: 50, Rating: 2}
	bal, err := p.TryCharge(v, 800)
	require.NoError(t, err)
	assert.Equal(t, 40, bal)
	assert.Equal(t, 50, v.Wallet, "debit is deferred")

	p.Stage(v, bal)
	assert.True(t, p.Commit(v))
	assert.Equal(t, 40, v.Wallet)
	assert.False(t, p.Commit(v), "commit is applied once")
	assert.Equal(t, 40, v.Wallet)
}

func TestTryChargeInsufficient(t *testing.T) {
	p := New(DefaultPricing(), 100)
	v := &model.Vehicle{ID: "v", Wallet: 5, Rating: 2}
	_, err := p.TryCharge(v, 800)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.Equal(t, 5, v.Wallet)

	exact := &model.Vehicle{ID: "x", Wallet: 10, Rating: 2}
	bal, err := p.TryCharge(exact, 800)
	require.NoError(t, err, "an exact balance is enough")
	assert.Zero(t, bal)
}

func TestOnDepartureWarningRollover(t *testing.T) {
	p := New(DefaultPricing(), 100)
	v := &model.Vehicle{ID: "v", Rating: 3, Civil: 2, GoodBehavior: true}
	for i := 0; i < 4; i++ {
		p.OnDeparture(v, 100)
		assert.Equal(t, i+1, v.Warnings)
		assert.Zero(t, v.Civil)
	}
	assert.False(t, v.GoodBehavior)
	p.OnDeparture(v, 100)
	assert.Zero(t, v.Warnings)
	assert.Equal(t, 2, v.Rating)
}

func TestOnDepartureCivilRollover(t *testing.T) {
	p := New(DefaultPricing(), 100)
	v := &model.Vehicle{ID: "v", Rating: 4, Warnings: 3}
	for i := 0; i < 5; i++ {
		p.OnDeparture(v, 0)
	}
	assert.True(t, v.GoodBehavior)
	assert.Equal(t, 5, v.Rating)
	assert.Zero(t, v.Civil)
	assert.Equal(t, 3, v.Warnings, "good departures keep warnings")
}

func TestRatingBounds(t *testing.T) {
	p := New(DefaultPricing(), 100)
	low := &model.Vehicle{ID: "low"}
	high := &model.Vehicle{ID: "high", Rating: 5}
	for i := 0; i < 50; i++ {
		p.OnDeparture(low, 1)
		p.OnDeparture(high, 0)
		assert.GreaterOrEqual(t, low.Rating, model.MinRating)
		assert.LessOrEqual(t, high.Rating, model.MaxRating)
		assert.Less(t, low.Warnings, 5)
		assert.Less(t, high.Civil, 5)
	}
	assert.Zero(t, low.Rating)
	assert.Equal(t, 5, high.Rating)
}

func TestEligible(t *testing.T) {
	p := New(DefaultPricing(), 100)
	assert.False(t, p.Eligible(&model.Vehicle{Rating: 2, GoodBehavior: false}))
	assert.True(t, p.Eligible(&model.Vehicle{Rating: 2, GoodBehavior: true}))
	assert.True(t, p.Eligible(&model.Vehicle{Rating: 3, GoodBehavior: false}))
}
