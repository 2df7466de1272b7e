// Package tier maps a visible time range to a discrete zoom tier.
package tier

import "slices"

// Config describes one zoom tier. Tiers are immutable; accessors return copies.
type Config struct {
	ID               int
	MinRangeYears    int64
	BucketSizeYears  int64
	ClusterThreshold int
	// Categories restricts clustering to these categories; nil means all.
	Categories []string
}

// Filtered reports whether the tier restricts clustering to a category set.
func (c Config) Filtered() bool { return c.Categories != nil }

// Allows reports whether category takes part in clustering at this tier.
func (c Config) Allows(category string) bool {
	if c.Categories == nil {
		return true
	}
	return slices.Contains(c.Categories, category)
}

func (c Config) clone() Config {
	c.Categories = slices.Clone(c.Categories)
	return c
}

// Tier identifiers, from widest view to most detailed.
const (
	DeepTime = iota
	Geologic
	Prehistoric
	Historic
	Detailed
)

// tiers is ordered by decreasing MinRangeYears.
var tiers = [...]Config{ //nolint:gochecknoglobals // read-only tier table
	{ID: DeepTime, MinRangeYears: 500_000_000, BucketSizeYears: 50_000_000, ClusterThreshold: 5,
		Categories: []string{"era"}},
	{ID: Geologic, MinRangeYears: 50_000_000, BucketSizeYears: 5_000_000, ClusterThreshold: 10,
		Categories: []string{"era", "civilization"}},
	{ID: Prehistoric, MinRangeYears: 500_000, BucketSizeYears: 500_000, ClusterThreshold: 15,
		Categories: []string{"era", "civilization", "empire"}},
	{ID: Historic, MinRangeYears: 5_000, BucketSizeYears: 1_000, ClusterThreshold: 20},
	{ID: Detailed, MinRangeYears: 0, BucketSizeYears: 100, ClusterThreshold: 25},
}

// Resolve returns the first tier whose MinRangeYears does not exceed
// visibleRangeYears. Degenerate or negative ranges fall back to Detailed.
func Resolve(visibleRangeYears float64) Config {
	for _, t := range tiers {
		if float64(t.MinRangeYears) <= visibleRangeYears {
			return t.clone()
		}
	}
	return tiers[Detailed].clone()
}

// ByID returns the tier with the given id.
func ByID(id int) (Config, bool) {
	if id < 0 || id >= len(tiers) {
		return Config{}, false
	}
	return tiers[id].clone(), true
}

// All returns every tier, widest first.
func All() []Config {
	out := make([]Config, len(tiers))
	for i, t := range tiers {
		out[i] = t.clone()
	}
	return out
}
