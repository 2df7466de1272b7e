package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/chronoverse/chronoverse/pkg/logger"
)

var requiredColumns = []string{"id", "title", "start_year"}

// parseCSV reads rows keyed by a case-insensitive header. It returns the
// parsed records and the number of rows rejected for bad numbers.
func parseCSV(ctx context.Context, r io.Reader, o options) ([]record, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}

	var (
		out []record
		bad int
	)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		get := func(name string) string {
			if i, ok := cols[name]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		rec := record{
			ID:                 get("id"),
			Title:              get("title"),
			Category:           get("category"),
			Region:             get("region"),
			Continent:          get("continent"),
			Description:        get("description"),
			StartDate:          get("start_date"),
			EndDate:            get("end_date"),
			LocationLabel:      get("location_label"),
			LocationConfidence: get("location_confidence"),
		}
		var perr error
		rec.StartYear, perr = parseYear(get("start_year"))
		if perr == nil {
			rec.EndYear, perr = parseYear(get("end_year"))
		}
		if perr == nil {
			rec.RepresentativeYear, perr = parseFloat(get("representative_year"))
		}
		if perr == nil {
			rec.Lat, perr = parseFloat(get("lat"))
		}
		if perr == nil {
			rec.Lon, perr = parseFloat(get("lon"))
		}
		if perr != nil {
			bad++
			o.log.Warn(ctx, "skipping malformed row", logger.Int("line", line), logger.Error(perr))
			continue
		}
		out = append(out, rec)
	}
	return out, bad, nil
}

// parseYear accepts integers and integral floats such as "1500.0".
func parseYear(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("invalid year %q", s)
	}
	v := int64(f)
	return &v, nil
}

func parseFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return &f, nil
}
