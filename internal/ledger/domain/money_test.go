package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNormalizeQuantity(t *testing.T) {
	cases := []struct {
		unit UnitType
		in   string
		want string
	}{
		{UnitWeight, "1.1", "1"},
		{UnitWeight, "1.13", "1.25"},
		{UnitWeight, "2.75", "2.75"},
		{UnitWeight, "0.1", "0"},
		{UnitWeight, "-3", "0"},
		{UnitCount, "2.4", "2"},
		{UnitCount, "2.5", "3"},
		{UnitCount, "-1", "0"},
	}

	for _, tc := range cases {
		got := NormalizeQuantity(tc.unit, dec(tc.in))
		assert.True(t, got.Equal(dec(tc.want)), "%s %s: got %s want %s", tc.unit, tc.in, got, tc.want)
	}
}

func TestClampSubtract(t *testing.T) {
	got, clamped := ClampSubtract(dec("10"), dec("3"))
	assert.True(t, got.Equal(dec("7")))
	assert.False(t, clamped)

	got, clamped = ClampSubtract(dec("2"), dec("5"))
	assert.True(t, got.IsZero())
	assert.True(t, clamped)

	got, clamped = ClampSubtract(dec("7"), dec("-2"))
	assert.True(t, got.Equal(dec("9")))
	assert.False(t, clamped)
}

func TestSubtotalRoundsToCents(t *testing.T) {
	assert.True(t, Subtotal(dec("0.75"), dec("33.333")).Equal(dec("25")))
	assert.True(t, Subtotal(dec("1.25"), dec("10.01")).Equal(dec("12.51")))
}

func TestDiffersBeyondEpsilon(t *testing.T) {
	assert.False(t, DiffersBeyondEpsilon(dec("100.001"), dec("100")))
	assert.True(t, DiffersBeyondEpsilon(dec("100.01"), dec("100")))
}
