// Package model contains domain models passed between layers.
package model

import "math"

// DefaultRegion is assigned to events that carry no region.
const DefaultRegion = "Global"

// Location is an optional geographic anchor for an event.
type Location struct {
	Lat        float64
	Lon        float64
	Label      string
	Confidence string
}

// Valid reports whether the coordinates are finite and inside WGS84 bounds.
func (l *Location) Valid() bool {
	if l == nil {
		return false
	}
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lon) || math.IsInf(l.Lat, 0) || math.IsInf(l.Lon, 0) {
		return false
	}
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

// Event is a dated timeline entry. Events are owned by the data store and
// treated as immutable by the engine; optional fields are pointers.
type Event struct {
	ID                 string
	Title              string
	Category           string
	Region             string
	StartYear          *int64
	EndYear            *int64
	RepresentativeYear *float64
	Location           *Location
	Description        string
	StartDate          string // ISO date, only for events inside the calendar range
	EndDate            string
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// ResolveYear returns the year used to place the event on the axis.
// An explicit RepresentativeYear wins; otherwise the midpoint of start and end
// when they differ, else whichever bound is present. ok is false when neither
// bound is set.
func (e *Event) ResolveYear() (year float64, ok bool) {
	if e.RepresentativeYear != nil {
		return *e.RepresentativeYear, true
	}
	switch {
	case e.StartYear != nil && e.EndYear != nil:
		if *e.EndYear != *e.StartYear {
			return float64(*e.StartYear+*e.EndYear) / 2, true
		}
		return float64(*e.StartYear), true
	case e.StartYear != nil:
		return float64(*e.StartYear), true
	case e.EndYear != nil:
		return float64(*e.EndYear), true
	}
	return 0, false
}

// WithResolvedYear returns a copy whose RepresentativeYear is filled in when
// it was missing and resolvable. The receiver is not modified.
func (e Event) WithResolvedYear() Event {
	if e.RepresentativeYear != nil {
		return e
	}
	if y, ok := e.ResolveYear(); ok {
		e.RepresentativeYear = Float64(y)
	}
	return e
}

// RegionOrDefault returns the region, or DefaultRegion when empty.
func (e *Event) RegionOrDefault() string {
	if e.Region == "" {
		return DefaultRegion
	}
	return e.Region
}
