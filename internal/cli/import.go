package cli

import (
	"context"
	"fmt"

	"github.com/chronoverse/chronoverse/internal/adapters/dataset"
	repository "github.com/chronoverse/chronoverse/internal/adapters/repository"
)

type importJSON struct {
	File     string         `json:"file"`
	Database string         `json:"database"`
	Report   dataset.Report `json:"report"`
	Stored   int            `json:"stored"`
}

// Execute runs the import command.
func (c *ImportCommand) Execute(_ []string) error {
	ctx := context.Background()
	log := setupLogger(c.globals)

	events, rep, err := dataset.Load(ctx, c.File, dataset.WithLogger(log))
	if err != nil {
		return err
	}

	store, err := repository.OpenSQLite(ctx, c.DB, repository.WithLogger(log), repository.WithMetrics(false))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if c.Replace {
		err = store.Replace(ctx, events)
	} else {
		_, err = store.Upsert(ctx, events)
	}
	if err != nil {
		return fmt.Errorf("store events: %w", err)
	}
	stored, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count events: %w", err)
	}

	out := writer(c.out)
	if jsonOutput(c.globals) {
		return writeJSON(out, importJSON{File: c.File, Database: c.DB, Report: rep, Stored: stored})
	}
	fmt.Fprintf(out, "Imported %s of %s rows from %s\n", count(rep.Imported), count(rep.Read), c.File)
	fmt.Fprintf(out, "  Skipped:    %s\n", count(rep.Skipped))
	fmt.Fprintf(out, "  Duplicates: %s\n", count(rep.Duplicates))
	fmt.Fprintf(out, "  Stored:     %s events in %s\n", count(stored), c.DB)
	return nil
}
