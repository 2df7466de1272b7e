// Package cluster aggregates dense groups of events into summary markers so a
// zoomed-out timeline stays legible.
//
// Events are grouped by (bucket, category, region), where the bucket is the
// fixed-width slice of the visible window containing the event's
// representative year. A group reaching the tier's cluster threshold is
// replaced by a single marker; smaller groups are emitted as-is.
package cluster

import (
	"cmp"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strings"

	"github.com/chronoverse/chronoverse/internal/domain/model"
	"github.com/chronoverse/chronoverse/internal/domain/tier"
)

// Result is the clustering output for one query.
type Result struct {
	// Items holds cluster markers, then individually kept filtered events,
	// then events outside the tier's category filter.
	Items []model.Item
	// Index maps each emitted cluster id to its marker, for expansion.
	Index map[string]*model.ClusterMarker
	// Dropped counts events whose representative year could not be resolved.
	Dropped int
}

// Clusters returns the markers in emission order.
func (r Result) Clusters() []*model.ClusterMarker {
	out := make([]*model.ClusterMarker, 0, len(r.Index))
	for _, it := range r.Items {
		if it.Cluster != nil {
			out = append(out, it.Cluster)
		}
	}
	return out
}

type groupKey struct {
	bucket   int64
	category string
	region   string
}

func compareKeys(a, b groupKey) int {
	if c := cmp.Compare(a.bucket, b.bucket); c != 0 {
		return c
	}
	if c := cmp.Compare(a.category, b.category); c != 0 {
		return c
	}
	return cmp.Compare(a.region, b.region)
}

// ID returns the deterministic cluster identifier for a group key. The same
// window and tier always reproduce the same id. Category and region are
// path-escaped with '_' encoded as %5F, so the three parts never bleed into
// each other and distinct keys always get distinct ids.
func ID(bucket int64, category, region string) string {
	return fmt.Sprintf("cluster_%d_%s_%s", bucket, escapePart(category), escapePart(region))
}

var underscore = strings.NewReplacer("_", "%5F") //nolint:gochecknoglobals // immutable

func escapePart(s string) string {
	return underscore.Replace(url.PathEscape(s))
}

// BucketIndex returns floor((year - startYear) / bucketSize). Years before
// startYear yield negative indices.
func BucketIndex(year float64, startYear, bucketSize int64) int64 {
	if bucketSize <= 0 {
		bucketSize = 1
	}
	return int64(math.Floor((year - float64(startYear)) / float64(bucketSize)))
}

// ShouldCluster reports whether the average number of events per bucket over
// timeRange exceeds the tier threshold. The bucket count never drops below one.
func ShouldCluster(cfg tier.Config, eventCount int, timeRange float64) bool {
	numBuckets := 1.0
	if cfg.BucketSizeYears > 0 {
		if n := math.Trunc(timeRange / float64(cfg.BucketSizeYears)); n > 1 {
			numBuckets = n
		}
	}
	return float64(eventCount)/numBuckets > float64(cfg.ClusterThreshold)
}

// Cluster groups events inside the window [startYear, endYear] according to
// cfg. With no events or clustering disabled the events are returned
// unchanged and the index is empty.
func Cluster(events []model.Event, startYear, endYear int64, cfg tier.Config, enabled bool) Result {
	if len(events) == 0 || !enabled {
		return Result{Items: model.EventItems(events), Index: map[string]*model.ClusterMarker{}}
	}

	bucketSize := cfg.BucketSizeYears
	if bucketSize <= 0 {
		bucketSize = 1
	}

	groups := make(map[groupKey][]int)
	keys := make([]groupKey, 0)
	var unfiltered []model.Item
	dropped := 0

	for i := range events {
		e := &events[i]
		year, ok := e.ResolveYear()
		if !ok {
			dropped++
			continue
		}
		if !cfg.Allows(e.Category) {
			unfiltered = append(unfiltered, model.Item{Event: e.WithResolvedYear()})
			continue
		}
		k := groupKey{
			bucket:   BucketIndex(year, startYear, bucketSize),
			category: e.Category,
			region:   e.RegionOrDefault(),
		}
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], i)
	}
	slices.SortFunc(keys, compareKeys)

	res := Result{
		Items:   make([]model.Item, 0, len(events)-dropped),
		Index:   make(map[string]*model.ClusterMarker),
		Dropped: dropped,
	}
	var individual []model.Item
	for _, k := range keys {
		members := groups[k]
		if len(members) < cfg.ClusterThreshold {
			for _, idx := range members {
				individual = append(individual, model.Item{Event: events[idx].WithResolvedYear()})
			}
			continue
		}
		marker := newMarker(k, members, events, startYear, endYear, bucketSize)
		res.Index[marker.ID] = marker
		res.Items = append(res.Items, model.Item{Event: markerRow(marker), Cluster: marker})
	}
	res.Items = append(res.Items, individual...)
	res.Items = append(res.Items, unfiltered...)
	return res
}

func newMarker(k groupKey, members []int, events []model.Event, startYear, endYear, bucketSize int64) *model.ClusterMarker {
	bucketStart := startYear + k.bucket*bucketSize
	m := &model.ClusterMarker{
		ID:                 ID(k.bucket, k.category, k.region),
		BucketIndex:        k.bucket,
		BucketStartYear:    bucketStart,
		BucketEndYear:      min(endYear, bucketStart+bucketSize),
		RepresentativeYear: float64(bucketStart) + float64(bucketSize)/2,
		Category:           k.category,
		Region:             k.region,
		MemberCount:        len(members),
		Members:            make([]model.MemberSummary, 0, len(members)),
	}
	for _, idx := range members {
		e := events[idx]
		m.Members = append(m.Members, model.Summarize(e))
		if m.Location == nil && e.Location.Valid() {
			loc := *e.Location
			m.Location = &loc
		}
	}
	return m
}

// markerRow is the event-shaped row drawn for a marker.
func markerRow(m *model.ClusterMarker) model.Event {
	return model.Event{
		ID:                 m.ID,
		Title:              fmt.Sprintf("%d events", m.MemberCount),
		Category:           m.Category,
		Region:             m.Region,
		StartYear:          model.Int64(m.BucketStartYear),
		EndYear:            model.Int64(m.BucketEndYear),
		RepresentativeYear: model.Float64(m.RepresentativeYear),
		Location:           m.Location,
		Description:        fmt.Sprintf("Cluster: %d events in %s category", m.MemberCount, m.Category),
	}
}
