package model_test

import (
	"math"
	"testing"

	model "github.com/chronoverse/chronoverse/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestEvent_ResolveYear(t *testing.T) {
	convey.Convey("Given events with different year combinations", t, func() {
		convey.Convey("When start and end differ", func() {
			e := model.Event{StartYear: model.Int64(100), EndYear: model.Int64(201)}
			y, ok := e.ResolveYear()

			convey.Convey("Then the midpoint is used", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(y, convey.ShouldEqual, 150.5)
			})
		})

		convey.Convey("When start and end are equal", func() {
			e := model.Event{StartYear: model.Int64(-3000), EndYear: model.Int64(-3000)}
			y, ok := e.ResolveYear()

			convey.Convey("Then the start year is used", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(y, convey.ShouldEqual, -3000)
			})
		})

		convey.Convey("When an explicit representative year is set", func() {
			e := model.Event{
				StartYear:          model.Int64(0),
				EndYear:            model.Int64(1000),
				RepresentativeYear: model.Float64(10),
			}
			y, ok := e.ResolveYear()

			convey.Convey("Then it wins over the midpoint", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(y, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When only one bound is present", func() {
			onlyStart := model.Event{StartYear: model.Int64(42)}
			onlyEnd := model.Event{EndYear: model.Int64(77)}

			convey.Convey("Then that bound is used", func() {
				y, ok := onlyStart.ResolveYear()
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(y, convey.ShouldEqual, 42)

				y, ok = onlyEnd.ResolveYear()
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(y, convey.ShouldEqual, 77)
			})
		})

		convey.Convey("When both bounds are missing", func() {
			e := model.Event{ID: "broken"}
			_, ok := e.ResolveYear()

			convey.Convey("Then the year is unresolvable", func() {
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	})
}

func TestEvent_WithResolvedYear(t *testing.T) {
	convey.Convey("Given an event without a representative year", t, func() {
		e := model.Event{ID: "e1", StartYear: model.Int64(10), EndYear: model.Int64(20)}

		convey.Convey("When filling it in", func() {
			filled := e.WithResolvedYear()

			convey.Convey("Then the copy carries the midpoint and the original is untouched", func() {
				convey.So(filled.RepresentativeYear, convey.ShouldNotBeNil)
				convey.So(*filled.RepresentativeYear, convey.ShouldEqual, 15)
				convey.So(e.RepresentativeYear, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the event has no years at all", func() {
			filled := model.Event{ID: "none"}.WithResolvedYear()

			convey.Convey("Then nothing is filled in", func() {
				convey.So(filled.RepresentativeYear, convey.ShouldBeNil)
			})
		})
	})
}

func TestLocation_Valid(t *testing.T) {
	convey.Convey("Given locations", t, func() {
		var missing *model.Location

		convey.So(missing.Valid(), convey.ShouldBeFalse)
		convey.So((&model.Location{Lat: 41.9, Lon: 12.5}).Valid(), convey.ShouldBeTrue)
		convey.So((&model.Location{Lat: 91, Lon: 0}).Valid(), convey.ShouldBeFalse)
		convey.So((&model.Location{Lat: 0, Lon: -181}).Valid(), convey.ShouldBeFalse)
		convey.So((&model.Location{Lat: math.NaN(), Lon: 0}).Valid(), convey.ShouldBeFalse)
	})
}

func TestEvent_RegionOrDefault(t *testing.T) {
	convey.Convey("Given an event without region", t, func() {
		e := model.Event{}
		convey.So(e.RegionOrDefault(), convey.ShouldEqual, model.DefaultRegion)

		e.Region = "Europe"
		convey.So(e.RegionOrDefault(), convey.ShouldEqual, "Europe")
	})
}
