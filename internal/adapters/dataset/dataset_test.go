package dataset_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chronoverse/chronoverse/internal/adapters/dataset"
	"github.com/chronoverse/chronoverse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

const sampleCSV = `ID,Title,Category,Continent,Start_Year,End_Year,Description,Lat,Lon,Location_Label
rome,Roman Empire,empire,Europe,-27,476,Imperial Rome,41.9,12.5,Rome
bigbang,Big Bang,era,,-13800000000,,,,,
,Missing id,war,Asia,100,200,,,,
no-start,No start,war,Asia,,200,,,,
rome,Roman Empire again,empire,Europe,-27,476,,,,
plain,Plain row,,,1500.0,1600,,,,
bad,Bad year,war,Asia,abc,200,,,,
`

func TestLoadCSV(t *testing.T) {
	Convey("Given a CSV dataset with messy rows", t, func() {
		path := writeFile(t, t.TempDir(), "events.csv", sampleCSV)

		events, rep, err := dataset.Load(context.Background(), path)

		Convey("Then valid rows are imported with defaults applied", func() {
			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, 3)

			rome := events[0]
			So(rome.ID, ShouldEqual, "rome")
			So(rome.Region, ShouldEqual, "Europe")
			So(*rome.StartYear, ShouldEqual, -27)
			So(rome.Location, ShouldNotBeNil)
			So(rome.Location.Label, ShouldEqual, "Rome")

			bang := events[1]
			So(*bang.EndYear, ShouldEqual, -13_800_000_000)
			So(bang.Region, ShouldEqual, model.DefaultRegion)
			So(bang.Location, ShouldBeNil)

			plain := events[2]
			So(plain.Category, ShouldEqual, dataset.DefaultCategory)
			So(*plain.StartYear, ShouldEqual, 1500)
		})

		Convey("Then the report accounts for every row", func() {
			So(rep, ShouldResemble, dataset.Report{Read: 7, Imported: 3, Skipped: 3, Duplicates: 1})
		})
	})

	Convey("Given a CSV without a start_year column", t, func() {
		path := writeFile(t, t.TempDir(), "broken.csv", "id,title\na,b\n")

		_, _, err := dataset.Load(context.Background(), path)

		Convey("Then a missing column error is returned", func() {
			So(errors.Is(err, dataset.ErrMissingColumn), ShouldBeTrue)
		})
	})

	Convey("Given an empty CSV", t, func() {
		path := writeFile(t, t.TempDir(), "empty.csv", "")

		events, rep, err := dataset.Load(context.Background(), path)

		Convey("Then nothing is imported", func() {
			So(err, ShouldBeNil)
			So(events, ShouldBeEmpty)
			So(rep, ShouldResemble, dataset.Report{})
		})
	})
}

func TestLoadYAML(t *testing.T) {
	Convey("Given a YAML dataset", t, func() {
		path := writeFile(t, t.TempDir(), "events.yml", `
events:
  - id: exodus
    title: Exodus
    category: biblical
    region: Middle East
    start_year: -1446
    end_year: -1406
    representative_year: -1440
  - id: flood
    title: Flood
    start_year: -2348
    lat: 39.7
    lon: 44.3
  - id: exodus
    title: Duplicate
    start_year: 0
  - title: No id
    start_year: 5
`)

		events, rep, err := dataset.Load(context.Background(), path)

		Convey("Then events are normalized", func() {
			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, 2)
			So(events[0].Region, ShouldEqual, "Middle East")
			So(*events[0].RepresentativeYear, ShouldEqual, -1440)
			So(events[1].Category, ShouldEqual, dataset.DefaultCategory)
			So(*events[1].EndYear, ShouldEqual, -2348)
			So(events[1].Location.Lat, ShouldEqual, 39.7)
			So(rep, ShouldResemble, dataset.Report{Read: 4, Imported: 2, Skipped: 1, Duplicates: 1})
		})
	})

	Convey("Given invalid YAML", t, func() {
		path := writeFile(t, t.TempDir(), "bad.yaml", "events: [")
		_, _, err := dataset.Load(context.Background(), path)
		So(err, ShouldNotBeNil)
	})
}

func TestLoadUnsupported(t *testing.T) {
	Convey("Given a JSON file", t, func() {
		_, _, err := dataset.Load(context.Background(), "events.json")
		So(errors.Is(err, dataset.ErrUnsupportedFormat), ShouldBeTrue)
	})

	Convey("Given a missing file", t, func() {
		_, _, err := dataset.Load(context.Background(), filepath.Join(t.TempDir(), "none.csv"))
		So(err, ShouldNotBeNil)
	})
}

func TestWatch(t *testing.T) {
	Convey("Given a watched dataset file", t, func() {
		dir := t.TempDir()
		path := writeFile(t, dir, "events.csv", "id,title,start_year\na,A,1\n")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		reloaded := make(chan int, 16)
		done := make(chan error, 1)
		go func() {
			done <- dataset.Watch(ctx, path, func(events []model.Event, _ dataset.Report) {
				select {
				case reloaded <- len(events):
				default:
				}
			})
		}()

		Convey("When the file is rewritten", func() {
			content := "id,title,start_year\na,A,1\nb,B,2\n"
			got := 0
			deadline := time.After(5 * time.Second)
		wait:
			for {
				_ = os.WriteFile(path, []byte(content), 0o600)
				select {
				case got = <-reloaded:
					if got == 2 {
						break wait
					}
				case <-time.After(100 * time.Millisecond):
				case <-deadline:
					break wait
				}
			}

			Convey("Then onChange receives the new events", func() {
				So(got, ShouldEqual, 2)
			})

			Convey("Then cancelling stops the watcher", func() {
				cancel()
				So(<-done, ShouldBeNil)
			})
		})
	})
}
