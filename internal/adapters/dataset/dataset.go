// Package dataset reads timeline events from CSV or YAML files and watches
// those files for changes.
package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chronoverse/chronoverse/internal/domain/dedupe"
	"github.com/chronoverse/chronoverse/internal/domain/model"
	"github.com/chronoverse/chronoverse/pkg/logger"
)

// DefaultCategory is assigned to rows without a category.
const DefaultCategory = "other"

// Report counts what happened to the rows of one load.
type Report struct {
	Read       int `json:"read"`
	Imported   int `json:"imported"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
}

// Option configures loading and watching.
type Option func(*options)

type options struct {
	log logger.Logger
}

// WithLogger sets the logger for skipped rows and reloads.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// record is one raw row before normalization. Pointer fields are nil when
// the value is absent.
type record struct {
	ID                 string   `yaml:"id"`
	Title              string   `yaml:"title"`
	Category           string   `yaml:"category"`
	Region             string   `yaml:"region"`
	Continent          string   `yaml:"continent"`
	StartYear          *int64   `yaml:"start_year"`
	EndYear            *int64   `yaml:"end_year"`
	RepresentativeYear *float64 `yaml:"representative_year"`
	Description        string   `yaml:"description"`
	StartDate          string   `yaml:"start_date"`
	EndDate            string   `yaml:"end_date"`
	Lat                *float64 `yaml:"lat"`
	Lon                *float64 `yaml:"lon"`
	LocationLabel      string   `yaml:"location_label"`
	LocationConfidence string   `yaml:"location_confidence"`
}

// Load reads the dataset at path, choosing the parser by file extension.
func Load(ctx context.Context, path string, opts ...Option) ([]model.Event, Report, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".yaml" && ext != ".yml" {
		return nil, Report{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, Report{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	o := buildOptions(opts)
	var (
		records []record
		bad     int
	)
	if ext == ".csv" {
		records, bad, err = parseCSV(ctx, f, o)
	} else {
		records, err = parseYAML(f)
	}
	if err != nil {
		return nil, Report{}, fmt.Errorf("parse %s: %w", path, err)
	}
	events, rep := normalize(ctx, records, o)
	rep.Read += bad
	rep.Skipped += bad
	return events, rep, nil
}

// normalize applies defaults, drops incomplete rows and duplicate ids.
func normalize(ctx context.Context, records []record, o options) ([]model.Event, Report) {
	seen := dedupe.New(len(records))
	rep := Report{Read: len(records)}
	events := make([]model.Event, 0, len(records))

	for i := range records {
		r := &records[i]
		r.ID, r.Title = strings.TrimSpace(r.ID), strings.TrimSpace(r.Title)
		if r.ID == "" || r.Title == "" || r.StartYear == nil {
			rep.Skipped++
			o.log.Debug(ctx, "skipping incomplete row", logger.Int("row", i+1), logger.String("id", r.ID))
			continue
		}
		if seen.SeenAndRecord(r.ID) {
			rep.Duplicates++
			o.log.Debug(ctx, "skipping duplicate id", logger.String("id", r.ID))
			continue
		}
		events = append(events, r.event())
		rep.Imported++
	}
	return events, rep
}

func (r *record) event() model.Event {
	e := model.Event{
		ID:                 r.ID,
		Title:              r.Title,
		Category:           strings.TrimSpace(r.Category),
		Region:             strings.TrimSpace(r.Region),
		StartYear:          r.StartYear,
		EndYear:            r.EndYear,
		RepresentativeYear: r.RepresentativeYear,
		Description:        strings.TrimSpace(r.Description),
		StartDate:          strings.TrimSpace(r.StartDate),
		EndDate:            strings.TrimSpace(r.EndDate),
	}
	if e.Category == "" {
		e.Category = DefaultCategory
	}
	if e.Region == "" {
		e.Region = strings.TrimSpace(r.Continent)
	}
	if e.Region == "" {
		e.Region = model.DefaultRegion
	}
	if e.EndYear == nil {
		e.EndYear = model.Int64(*r.StartYear)
	}
	if r.Lat != nil && r.Lon != nil {
		e.Location = &model.Location{
			Lat:        *r.Lat,
			Lon:        *r.Lon,
			Label:      strings.TrimSpace(r.LocationLabel),
			Confidence: strings.TrimSpace(r.LocationConfidence),
		}
	}
	return e
}
