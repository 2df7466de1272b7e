package types_test

import (
	"encoding/json"
	"testing"

	"github.com/chronoverse/chronoverse/internal/domain/model"
	"github.com/chronoverse/chronoverse/internal/domain/tier"
	types "github.com/chronoverse/chronoverse/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFromTier(t *testing.T) {
	Convey("Given the geologic tier", t, func() {
		cfg, _ := tier.ByID(tier.Geologic)
		info := types.FromTier(cfg)

		Convey("Then every field is carried over", func() {
			So(info.ID, ShouldEqual, tier.Geologic)
			So(info.BucketSizeYears, ShouldEqual, 5_000_000)
			So(info.Categories, ShouldResemble, []string{"era", "civilization"})
		})
	})

	Convey("Given an unfiltered tier", t, func() {
		cfg, _ := tier.ByID(tier.Detailed)
		raw, err := json.Marshal(types.FromTier(cfg))

		Convey("Then categories are omitted from JSON", func() {
			So(err, ShouldBeNil)
			So(string(raw), ShouldNotContainSubstring, "categories")
		})
	})
}

func TestNewDisplayItem(t *testing.T) {
	Convey("Given an event without a category", t, func() {
		it := model.Item{Event: model.Event{ID: "e1", Title: "Quiet year", StartYear: model.Int64(5), EndYear: model.Int64(5)}}
		d := types.NewDisplayItem(it, types.KindPoint, 5, nil)

		Convey("Then it displays as other in the default region", func() {
			So(d.Kind, ShouldEqual, types.KindPoint)
			So(d.Category, ShouldEqual, types.OtherCategory)
			So(d.Region, ShouldEqual, model.DefaultRegion)
			So(d.Lane, ShouldBeNil)
		})
	})

	Convey("Given a cluster marker drawn as a span", t, func() {
		marker := &model.ClusterMarker{ID: "cluster_3_war_Europe", MemberCount: 21}
		it := model.Item{Event: model.Event{ID: marker.ID, Category: "war"}, Cluster: marker}
		lane := 2
		d := types.NewDisplayItem(it, types.KindSpan, 3500, &lane)

		Convey("Then the kind is cluster and the lane is kept", func() {
			So(d.Kind, ShouldEqual, types.KindCluster)
			So(d.MemberCount, ShouldEqual, 21)
			So(*d.Lane, ShouldEqual, 2)
		})
	})
}

func TestFromMarker(t *testing.T) {
	Convey("Given a marker with members", t, func() {
		m := &model.ClusterMarker{
			ID:              "cluster_0_era_Global",
			BucketStartYear: -100,
			BucketEndYear:   0,
			MemberCount:     2,
			Members: []model.MemberSummary{
				{ID: "a", Title: "A", Location: &model.Location{Lat: 1, Lon: 2}},
				{ID: "b", Title: "B"},
			},
		}
		c := types.FromMarker(m)

		Convey("Then members and bounds are converted", func() {
			So(c.ID, ShouldEqual, m.ID)
			So(c.BucketStartYear, ShouldEqual, -100)
			So(len(c.Members), ShouldEqual, 2)
			So(c.Members[0].Location.Lat, ShouldEqual, 1)
			So(c.Members[1].Location, ShouldBeNil)
		})
	})
}

func TestWindow(t *testing.T) {
	Convey("Given a window", t, func() {
		w := types.Window{StartYear: -10_000, EndYear: 2025}
		So(w.Range(), ShouldEqual, 12_025)
	})
}
