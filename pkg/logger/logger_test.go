package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		So(Init(), ShouldBeNil)
		defer func() { So(Sync(), ShouldBeNil) }()

		Convey("Then Get and Named return usable loggers", func() {
			So(Get(), ShouldNotBeNil)
			So(Named("test"), ShouldNotBeNil)
			Named("test").Info(context.Background(), "test message", String("k", "v"))
		})

		Convey("Then unknown formats are rejected", func() {
			So(InitWithOptions(WithFormat("xml")), ShouldNotBeNil)
		})
	})
}

func TestLoggerJSON(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithOptions(WithFormat("json"), WithWriter(&buf)), ShouldBeNil)
		SetLevel(0)

		Get().Info(context.Background(), "timeline served",
			Int64("start_year", -10_000),
			Int("items", 30),
			Bool("clustered", false),
			Float64("range", 12_025),
			Error(errors.New("boom")),
		)

		Convey("Then the record carries every field and the caller", func() {
			var rec map[string]any
			So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
			So(rec["msg"], ShouldEqual, "timeline served")
			So(rec["start_year"], ShouldEqual, -10_000.0)
			So(rec["items"], ShouldEqual, 30.0)
			So(rec["clustered"], ShouldEqual, false)
			So(rec["error"], ShouldEqual, "boom")
			So(rec["source"], ShouldContainSubstring, "logger_test.go")
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level names", t, func() {
		var buf bytes.Buffer
		So(InitWithOptions(WithWriter(&buf)), ShouldBeNil)

		So(SetLevelString("warning"), ShouldBeNil)
		Get().Info(context.Background(), "hidden")
		So(buf.Len(), ShouldEqual, 0)

		So(SetLevelString("DEBUG"), ShouldBeNil)
		Get().Debug(context.Background(), "shown")
		So(buf.String(), ShouldContainSubstring, "shown")

		So(SetLevelString("verbose"), ShouldNotBeNil)
		So(SetLevelString("info"), ShouldBeNil)
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()

		Convey("Then Fatal does not exit", func() {
			So(func() { l.Named("x").Fatal(context.Background(), "ignored") }, ShouldNotPanic)
		})
	})
}
