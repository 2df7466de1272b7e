package model

// MemberSummary is the slice of an event kept inside a cluster for later expansion.
type MemberSummary struct {
	ID        string
	Title     string
	StartYear *int64
	EndYear   *int64
	Category  string
	Region    string
	Location  *Location
}

// Summarize builds the member summary of e.
func Summarize(e Event) MemberSummary {
	return MemberSummary{
		ID:        e.ID,
		Title:     e.Title,
		StartYear: e.StartYear,
		EndYear:   e.EndYear,
		Category:  e.Category,
		Region:    e.RegionOrDefault(),
		Location:  e.Location,
	}
}

// ClusterMarker aggregates the events of one (bucket, category, region) group.
// Markers are created per query and never stored.
type ClusterMarker struct {
	ID                 string
	BucketIndex        int64
	BucketStartYear    int64
	BucketEndYear      int64
	RepresentativeYear float64
	Category           string
	Region             string
	MemberCount        int
	Members            []MemberSummary
	Location           *Location
}

// Item is one entry of the clustering output: either an individual event or
// a cluster marker. For markers, Event holds the synthetic row the chart
// draws (bucket bounds as years, count-based title).
type Item struct {
	Event   Event
	Cluster *ClusterMarker
}

// IsCluster reports whether the item is an aggregate marker.
func (it Item) IsCluster() bool { return it.Cluster != nil }

// EventItems wraps events as individual items without modification.
func EventItems(events []Event) []Item {
	items := make([]Item, len(events))
	for i := range events {
		items[i] = Item{Event: events[i]}
	}
	return items
}
