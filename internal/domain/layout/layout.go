// Package layout classifies timeline items as points or duration spans and
// packs overlapping spans of one category into display lanes.
package layout

import (
	"cmp"
	"slices"

	"github.com/chronoverse/chronoverse/internal/domain/model"
)

const (
	spanRangeFraction = 0.001
	maxSpanThreshold  = 1000
)

// Interval is a half-open [Start, End) range in years.
type Interval struct {
	Start int64
	End   int64
}

// Duration returns End - Start.
func (iv Interval) Duration() int64 { return iv.End - iv.Start }

// SpanItem is an item drawn as a bar on a lane of its category.
type SpanItem struct {
	Item  model.Item
	Start int64
	End   int64
	Lane  int
}

// PointItem is an item drawn at a single year.
type PointItem struct {
	Item model.Item
	Year float64
}

// Result is the layout of one query. Spans and Points keep input order.
type Result struct {
	Spans  []SpanItem
	Points []PointItem
	// Lanes is the number of lanes used per category.
	Lanes map[string]int
	// Unplaced counts items with no resolvable year.
	Unplaced int
}

// MaxLanes returns the widest lane count over all categories.
func (r Result) MaxLanes() int {
	n := 0
	for _, l := range r.Lanes {
		n = max(n, l)
	}
	return n
}

// Engine holds the span classification settings.
type Engine struct {
	minDuration *float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithMinDuration fixes the span threshold instead of deriving it from the
// visible range.
func WithMinDuration(years float64) Option {
	return func(e *Engine) {
		e.minDuration = &years
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = New() //nolint:gochecknoglobals // stateless

// Threshold returns min(visibleRangeYears*0.001, 1000), or the fixed minimum
// duration when one is configured.
func (e *Engine) Threshold(visibleRangeYears float64) float64 {
	if e.minDuration != nil {
		return *e.minDuration
	}
	return min(visibleRangeYears*spanRangeFraction, maxSpanThreshold)
}

// ShouldRenderAsSpan reports whether ev lasts long enough to be drawn as a bar.
func (e *Engine) ShouldRenderAsSpan(ev model.Event, visibleRangeYears float64) bool {
	iv, ok := spanInterval(ev)
	if !ok || iv.Duration() == 0 {
		return false
	}
	return float64(iv.Duration()) >= e.Threshold(visibleRangeYears)
}

// ClassifyAndPack splits items into spans and points and assigns lanes to the
// spans of each category independently. Lanes restart at 0 per category.
func (e *Engine) ClassifyAndPack(items []model.Item, visibleRangeYears float64) Result {
	res := Result{Lanes: make(map[string]int)}
	if len(items) == 0 {
		return res
	}

	byCategory := make(map[string][]int)
	var categories []string
	for _, it := range items {
		ev := it.Event
		if e.ShouldRenderAsSpan(ev, visibleRangeYears) {
			iv, _ := spanInterval(ev)
			idx := len(res.Spans)
			res.Spans = append(res.Spans, SpanItem{Item: it, Start: iv.Start, End: iv.End})
			if _, seen := byCategory[ev.Category]; !seen {
				categories = append(categories, ev.Category)
			}
			byCategory[ev.Category] = append(byCategory[ev.Category], idx)
			continue
		}
		year, ok := ev.ResolveYear()
		if !ok {
			res.Unplaced++
			continue
		}
		res.Points = append(res.Points, PointItem{Item: it, Year: year})
	}

	for _, cat := range categories {
		members := byCategory[cat]
		intervals := make([]Interval, len(members))
		for i, idx := range members {
			intervals[i] = Interval{Start: res.Spans[idx].Start, End: res.Spans[idx].End}
		}
		lanes, used := PackIntervals(intervals)
		for i, idx := range members {
			res.Spans[idx].Lane = lanes[i]
		}
		res.Lanes[cat] = used
	}
	return res
}

// ShouldRenderAsSpan uses the default range-derived threshold.
func ShouldRenderAsSpan(ev model.Event, visibleRangeYears float64) bool {
	return defaultEngine.ShouldRenderAsSpan(ev, visibleRangeYears)
}

// ClassifyAndPack uses the default range-derived threshold.
func ClassifyAndPack(items []model.Item, visibleRangeYears float64) Result {
	return defaultEngine.ClassifyAndPack(items, visibleRangeYears)
}

// PackIntervals assigns each interval a lane so that intervals sharing a lane
// never overlap. Intervals are processed by (start, duration) ascending with a
// stable sort; each takes the lowest-numbered lane whose last end is <= its
// start, or opens a new lane. It returns the lane per input index and the
// number of lanes opened.
func PackIntervals(intervals []Interval) ([]int, int) {
	order := make([]int, len(intervals))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if c := cmp.Compare(intervals[a].Start, intervals[b].Start); c != 0 {
			return c
		}
		return cmp.Compare(intervals[a].Duration(), intervals[b].Duration())
	})

	assigned := make([]int, len(intervals))
	var laneEnds []int64
	for _, idx := range order {
		iv := intervals[idx]
		lane := -1
		for l, end := range laneEnds {
			if end <= iv.Start {
				lane = l
				break
			}
		}
		if lane < 0 {
			lane = len(laneEnds)
			laneEnds = append(laneEnds, iv.End)
		} else {
			laneEnds[lane] = iv.End
		}
		assigned[idx] = lane
	}
	return assigned, len(laneEnds)
}

// spanInterval returns the normalized [min, max) year interval of ev.
func spanInterval(ev model.Event) (Interval, bool) {
	if ev.StartYear == nil || ev.EndYear == nil {
		return Interval{}, false
	}
	s, e := *ev.StartYear, *ev.EndYear
	return Interval{Start: min(s, e), End: max(s, e)}, true
}
