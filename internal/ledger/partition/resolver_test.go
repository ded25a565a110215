package partition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/produce-ledger/internal/ledger/domain"
)

func TestResolveNormalDay(t *testing.T) {
	r := MustNewResolver(DefaultLegacyDates, time.UTC)

	got := r.Resolve(time.Date(2026, time.March, 5, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, domain.PartitionKey("2026-03-05"), got)
}

func TestResolveIgnoresTimeOfDay(t *testing.T) {
	r := MustNewResolver(nil, time.UTC)

	morning := r.Resolve(time.Date(2026, time.March, 5, 0, 0, 1, 0, time.UTC))
	night := r.Resolve(time.Date(2026, time.March, 5, 23, 59, 59, 0, time.UTC))
	assert.Equal(t, morning, night)
}

func TestResolveLegacyDates(t *testing.T) {
	r := MustNewResolver([]string{"2024-11-28", "2024-11-29"}, time.UTC)

	assert.Equal(t, domain.LegacyPartition, r.Resolve(time.Date(2024, time.November, 28, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, domain.LegacyPartition, r.Resolve(time.Date(2024, time.November, 29, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, domain.PartitionKey("2024-11-30"), r.Resolve(time.Date(2024, time.November, 30, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, domain.LegacyPartition, r.Resolve(time.Date(2024, time.November, 28, 0, 0, 0, 0, time.UTC)))
}

func TestNewResolverRejectsMalformedLegacyDate(t *testing.T) {
	_, err := NewResolver([]string{"28/11/2024"}, time.UTC)
	assert.ErrorIs(t, err, domain.ErrInvalidPartition)
}

func TestTodayUsesVendorTimezone(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	r := MustNewResolver(nil, loc).WithClock(func() time.Time {
		return time.Date(2026, time.October, 17, 20, 0, 0, 0, time.UTC)
	})

	assert.Equal(t, domain.PartitionKey("2026-10-18"), r.Today())
}

func TestParse(t *testing.T) {
	r := MustNewResolver([]string{"2024-11-28"}, time.UTC).WithClock(func() time.Time {
		return time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)
	})

	cases := map[string]domain.PartitionKey{
		"":           "2026-10-18",
		"today":      "2026-10-18",
		"legacy":     domain.LegacyPartition,
		"2024-11-28": domain.LegacyPartition,
		"2026-01-02": "2026-01-02",
	}
	for in, want := range cases {
		got, err := r.Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := r.Parse("yesterday")
	assert.ErrorIs(t, err, domain.ErrInvalidPartition)
}
