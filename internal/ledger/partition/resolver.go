// Package partition maps calendar days to ledger partition keys.
//
// Days before per-day partitioning was introduced live in a single legacy
// partition. The routing is decided here and nowhere else.
package partition

import (
	"fmt"
	"strings"
	"time"

	"github.com/tair/produce-ledger/internal/ledger/domain"
)

// DateLayout is the partition key layout for normal days.
const DateLayout = "2006-01-02"

// DefaultLegacyDates are the days recorded before the per-day cutover.
var DefaultLegacyDates = []string{
	"2024-11-28",
	"2024-11-29",
	"2024-11-30",
	"2024-12-01",
	"2024-12-02",
}

// Resolver turns dates into partition keys.
type Resolver struct {
	legacy   map[string]struct{}
	location *time.Location
	now      func() time.Time
}

// NewResolver builds a resolver for the given legacy days (YYYY-MM-DD).
// "Today" is evaluated in loc; nil means UTC.
func NewResolver(legacyDates []string, loc *time.Location) (*Resolver, error) {
	if loc == nil {
		loc = time.UTC
	}
	legacy := make(map[string]struct{}, len(legacyDates))
	for _, d := range legacyDates {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if _, err := time.Parse(DateLayout, d); err != nil {
			return nil, fmt.Errorf("legacy date %q: %w", d, domain.ErrInvalidPartition)
		}
		legacy[d] = struct{}{}
	}
	return &Resolver{legacy: legacy, location: loc, now: time.Now}, nil
}

// MustNewResolver is like NewResolver but panics on a malformed legacy date.
func MustNewResolver(legacyDates []string, loc *time.Location) *Resolver {
	r, err := NewResolver(legacyDates, loc)
	if err != nil {
		panic(err)
	}
	return r
}

// WithClock replaces the clock used by Today.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	clone := *r
	clone.now = now
	return &clone
}

// Resolve returns the partition for the calendar day of t in t's location.
func (r *Resolver) Resolve(t time.Time) domain.PartitionKey {
	day := t.Format(DateLayout)
	if _, ok := r.legacy[day]; ok {
		return domain.LegacyPartition
	}
	return domain.PartitionKey(day)
}

// Today returns the partition for the current day in the vendor's timezone.
func (r *Resolver) Today() domain.PartitionKey {
	return r.Resolve(r.now().In(r.location))
}

// Parse accepts "", "today", the legacy sentinel, or YYYY-MM-DD.
func (r *Resolver) Parse(s string) (domain.PartitionKey, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "today":
		return r.Today(), nil
	case string(domain.LegacyPartition):
		return domain.LegacyPartition, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, r.location)
	if err != nil {
		return "", fmt.Errorf("%q: %w", s, domain.ErrInvalidPartition)
	}
	return r.Resolve(t), nil
}
