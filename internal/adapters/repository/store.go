// Package repository defines the event store contract and its in-memory and
// SQLite implementations.
package repository

import (
	"cmp"
	"context"
	"slices"

	"github.com/chronoverse/chronoverse/internal/domain/model"
)

// Store provides read/write access to timeline events.
type Store interface {
	// Window returns events whose [StartYear, EndYear] overlaps [start, end],
	// ordered by (StartYear, ID). Events missing either year are excluded;
	// reversed years are treated as [EndYear, StartYear].
	Window(ctx context.Context, start, end int64) ([]model.Event, error)

	// All returns every stored event ordered by (StartYear, ID).
	All(ctx context.Context) ([]model.Event, error)

	// Get returns the event with id or ErrNotFound.
	Get(ctx context.Context, id string) (model.Event, error)

	// Upsert inserts events or replaces those with the same id and returns
	// the number written.
	Upsert(ctx context.Context, events []model.Event) (int, error)

	// Replace swaps the whole content for events atomically.
	Replace(ctx context.Context, events []model.Event) error

	// Count returns the number of stored events.
	Count(ctx context.Context) (int, error)

	Close() error
}

// overlaps reports whether e has both years and intersects [start, end].
// Reversed years are compared as [min, max].
func overlaps(e *model.Event, start, end int64) bool {
	if e.StartYear == nil || e.EndYear == nil {
		return false
	}
	lo, hi := min(*e.StartYear, *e.EndYear), max(*e.StartYear, *e.EndYear)
	return hi >= start && lo <= end
}

// compareEvents orders by start year then id; missing start years sort first.
func compareEvents(a, b model.Event) int {
	switch {
	case a.StartYear == nil && b.StartYear != nil:
		return -1
	case a.StartYear != nil && b.StartYear == nil:
		return 1
	case a.StartYear != nil && b.StartYear != nil:
		if c := cmp.Compare(*a.StartYear, *b.StartYear); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.ID, b.ID)
}

func sortEvents(events []model.Event) {
	slices.SortFunc(events, compareEvents)
}
