package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/chronoverse/chronoverse/internal/synth"
)

// Execute runs the generate command.
func (c *GenerateCommand) Execute(_ []string) error {
	ctx := context.Background()
	setupLogger(c.globals)

	events, err := synth.Generate(ctx, synth.Config{
		Count:     c.Count,
		StartYear: c.Start,
		EndYear:   c.End,
		Seed:      c.Seed,
		SpanRatio: c.SpanRatio,
	})
	if err != nil {
		return err
	}

	if c.Out == "" || c.Out == "-" {
		return synth.WriteCSV(writer(c.out), events)
	}

	f, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("create %s: %w", c.Out, err)
	}
	if err := synth.WriteCSV(f, events); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", c.Out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(writer(c.out), "Wrote %s events (%s .. %s) to %s\n", count(len(events)), year(c.Start), year(c.End), c.Out)
	return nil
}
