// Package types contains the JSON shapes handed to the chart layer and the
// operator CLI.
package types

import (
	"github.com/chronoverse/chronoverse/internal/domain/model"
	"github.com/chronoverse/chronoverse/internal/domain/tier"
)

// Display item kinds.
const (
	KindCluster = "cluster"
	KindPoint   = "point"
	KindSpan    = "span"
)

// OtherCategory labels events without a category.
const OtherCategory = "other"

// Window is the requested visible range.
type Window struct {
	StartYear int64 `json:"start_year"`
	EndYear   int64 `json:"end_year"`
}

// Range returns EndYear - StartYear.
func (w Window) Range() float64 { return float64(w.EndYear) - float64(w.StartYear) }

// TierInfo describes the tier a window resolved to.
type TierInfo struct {
	ID               int      `json:"id"`
	MinRangeYears    int64    `json:"min_range_years"`
	BucketSizeYears  int64    `json:"bucket_size_years"`
	ClusterThreshold int      `json:"cluster_threshold"`
	Categories       []string `json:"categories,omitempty"`
}

// Location is a point on the map attached to an event.
type Location struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Label      string  `json:"label,omitempty"`
	Confidence string  `json:"confidence,omitempty"`
}

// Event is the raw event row served by /api/data.
type Event struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Category           string    `json:"category"`
	Region             string    `json:"region"`
	StartYear          *int64    `json:"start_year"`
	EndYear            *int64    `json:"end_year"`
	RepresentativeYear *float64  `json:"representative_year,omitempty"`
	Description        string    `json:"description,omitempty"`
	StartDate          string    `json:"start_date,omitempty"`
	EndDate            string    `json:"end_date,omitempty"`
	Location           *Location `json:"location,omitempty"`
}

// DisplayItem is one drawable entry of a timeline.
type DisplayItem struct {
	Kind        string    `json:"kind"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Region      string    `json:"region"`
	StartYear   *int64    `json:"start_year,omitempty"`
	EndYear     *int64    `json:"end_year,omitempty"`
	Year        float64   `json:"year"`
	Lane        *int      `json:"lane,omitempty"`
	MemberCount int       `json:"member_count,omitempty"`
	Description string    `json:"description,omitempty"`
	Location    *Location `json:"location,omitempty"`
}

// ClusterMember is the summary of one event folded into a cluster.
type ClusterMember struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartYear *int64    `json:"start_year"`
	EndYear   *int64    `json:"end_year"`
	Category  string    `json:"category"`
	Region    string    `json:"region"`
	Location  *Location `json:"location,omitempty"`
}

// Cluster is the expansion payload of a cluster marker.
type Cluster struct {
	ID                 string          `json:"id"`
	BucketStartYear    int64           `json:"bucket_start_year"`
	BucketEndYear      int64           `json:"bucket_end_year"`
	RepresentativeYear float64         `json:"representative_year"`
	Category           string          `json:"category"`
	Region             string          `json:"region"`
	MemberCount        int             `json:"member_count"`
	Members            []ClusterMember `json:"members"`
}

// Timeline is the full response for one window query.
type Timeline struct {
	Window         Window             `json:"window"`
	Tier           TierInfo           `json:"tier"`
	TotalEvents    int                `json:"total_events"`
	FilteredEvents int                `json:"filtered_events"`
	Clustered      bool               `json:"clustered"`
	Items          []DisplayItem      `json:"items"`
	Clusters       map[string]Cluster `json:"clusters"`
	Categories     []string           `json:"categories"`
	Lanes          map[string]int     `json:"lanes"`
	Dropped        int                `json:"dropped"`
}

// FromTier converts a tier configuration.
func FromTier(c tier.Config) TierInfo {
	return TierInfo{
		ID:               c.ID,
		MinRangeYears:    c.MinRangeYears,
		BucketSizeYears:  c.BucketSizeYears,
		ClusterThreshold: c.ClusterThreshold,
		Categories:       c.Categories,
	}
}

// FromLocation converts a location; nil stays nil.
func FromLocation(l *model.Location) *Location {
	if l == nil {
		return nil
	}
	return &Location{Lat: l.Lat, Lon: l.Lon, Label: l.Label, Confidence: l.Confidence}
}

// FromEvent converts a stored event.
func FromEvent(e model.Event) Event {
	return Event{
		ID:                 e.ID,
		Title:              e.Title,
		Category:           e.Category,
		Region:             e.RegionOrDefault(),
		StartYear:          e.StartYear,
		EndYear:            e.EndYear,
		RepresentativeYear: e.RepresentativeYear,
		Description:        e.Description,
		StartDate:          e.StartDate,
		EndDate:            e.EndDate,
		Location:           FromLocation(e.Location),
	}
}

// FromMarker converts a cluster marker with its members.
func FromMarker(m *model.ClusterMarker) Cluster {
	members := make([]ClusterMember, len(m.Members))
	for i, s := range m.Members {
		members[i] = ClusterMember{
			ID:        s.ID,
			Title:     s.Title,
			StartYear: s.StartYear,
			EndYear:   s.EndYear,
			Category:  s.Category,
			Region:    s.Region,
			Location:  FromLocation(s.Location),
		}
	}
	return Cluster{
		ID:                 m.ID,
		BucketStartYear:    m.BucketStartYear,
		BucketEndYear:      m.BucketEndYear,
		RepresentativeYear: m.RepresentativeYear,
		Category:           m.Category,
		Region:             m.Region,
		MemberCount:        m.MemberCount,
		Members:            members,
	}
}

// DisplayCategory maps an empty category to OtherCategory.
func DisplayCategory(c string) string {
	if c == "" {
		return OtherCategory
	}
	return c
}

// NewDisplayItem builds the display row for an engine item. lane is nil for
// points and clusters drawn as points.
func NewDisplayItem(it model.Item, kind string, year float64, lane *int) DisplayItem {
	e := it.Event
	d := DisplayItem{
		Kind:        kind,
		ID:          e.ID,
		Title:       e.Title,
		Category:    DisplayCategory(e.Category),
		Region:      e.RegionOrDefault(),
		StartYear:   e.StartYear,
		EndYear:     e.EndYear,
		Year:        year,
		Lane:        lane,
		Description: e.Description,
		Location:    FromLocation(e.Location),
	}
	if it.Cluster != nil {
		d.Kind = KindCluster
		d.MemberCount = it.Cluster.MemberCount
	}
	return d
}
