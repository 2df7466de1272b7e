package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/chronoverse/chronoverse/internal/config"
	"github.com/chronoverse/chronoverse/pkg/logger"
)

// writer returns w, or stdout when w is nil.
func writer(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

// setupLogger routes logs to stderr so stdout stays machine readable.
func setupLogger(g *GlobalFlags) logger.Logger {
	_ = logger.InitWithOptions(logger.WithWriter(os.Stderr))
	level := "warn"
	if g != nil && g.Verbose {
		level = "debug"
	}
	_ = logger.SetLevelString(level)
	return logger.Named("chronoctl")
}

func loadConfig(ctx context.Context, g *GlobalFlags) (*config.Config, error) {
	path := ""
	if g != nil {
		path = g.Config
	}
	return config.LoadFrom(ctx, path)
}

func jsonOutput(g *GlobalFlags) bool {
	return g != nil && g.JSON
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// year formats a signed year with thousands separators.
func year(y int64) string {
	return humanize.Comma(y)
}

func count(n int) string {
	return humanize.Comma(int64(n))
}
