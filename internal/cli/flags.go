package cli

import "io"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to a YAML config file"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable debug logging on stderr"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ImportCommand loads a dataset file into a SQLite database.
type ImportCommand struct {
	File    string `long:"file" description:"CSV or YAML dataset" required:"true"`
	DB      string `long:"db" description:"SQLite database path" default:"chronoverse.db"`
	Replace bool   `long:"replace" description:"Replace stored events instead of merging by id"`

	globals *GlobalFlags
	out     io.Writer
}

// QueryCommand runs one timeline query against a dataset file or database.
type QueryCommand struct {
	Start        int64  `long:"start" description:"Window start year" required:"true"`
	End          int64  `long:"end" description:"Window end year" required:"true"`
	File         string `long:"file" description:"Query a CSV or YAML dataset in memory"`
	DB           string `long:"db" description:"Query a SQLite database"`
	NoClustering bool   `long:"no-clustering" description:"Disable clustering"`
	NoSpans      bool   `long:"no-spans" description:"Draw every item as a point"`
	Items        bool   `long:"items" description:"List every display item"`

	globals *GlobalFlags
	out     io.Writer
}

// TiersCommand prints the zoom tier table.
type TiersCommand struct {
	globals *GlobalFlags
	out     io.Writer
}

// GenerateCommand writes a synthetic dataset.
type GenerateCommand struct {
	Count     int     `long:"count" description:"Number of events" default:"1000"`
	Start     int64   `long:"start" description:"Earliest year" default:"-10000"`
	End       int64   `long:"end" description:"Latest year" default:"2025"`
	Seed      int64   `long:"seed" description:"Random seed" default:"1"`
	SpanRatio float64 `long:"span-ratio" description:"Share of events with a duration" default:"0.2"`
	Out       string  `long:"out" description:"Output CSV path, - for stdout" default:"-"`

	globals *GlobalFlags
	out     io.Writer
}
