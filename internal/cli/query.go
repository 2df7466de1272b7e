package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chronoverse/chronoverse/internal/adapters/dataset"
	repository "github.com/chronoverse/chronoverse/internal/adapters/repository"
	service "github.com/chronoverse/chronoverse/internal/app"
	"github.com/chronoverse/chronoverse/internal/domain/types"
	"github.com/chronoverse/chronoverse/pkg/logger"
)

// Execute runs the query command.
func (c *QueryCommand) Execute(_ []string) error {
	ctx := context.Background()
	if (c.File == "") == (c.DB == "") {
		return errors.New("exactly one of --file or --db is required")
	}
	cfg, err := loadConfig(ctx, c.globals)
	if err != nil {
		return err
	}
	// The store is injected below; a configured dataset must not overwrite it.
	cfg.DatasetPath = ""
	log := setupLogger(c.globals)

	store, err := c.openStore(ctx, log)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := service.New(service.WithConfig(cfg), service.WithStore(store), service.WithLogger(log))
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	tl, err := svc.Timeline(ctx, service.Query{
		StartYear:        c.Start,
		EndYear:          c.End,
		EnableClustering: !c.NoClustering,
		EnableSpans:      !c.NoSpans,
	})
	if err != nil {
		return err
	}

	out := writer(c.out)
	if jsonOutput(c.globals) {
		return writeJSON(out, tl)
	}
	return printTimeline(out, tl, c.Items)
}

func (c *QueryCommand) openStore(ctx context.Context, log logger.Logger) (repository.Store, error) {
	if c.DB != "" {
		s, err := repository.OpenSQLite(ctx, c.DB, repository.WithLogger(log), repository.WithMetrics(false))
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return s, nil
	}
	events, _, err := dataset.Load(ctx, c.File, dataset.WithLogger(log))
	if err != nil {
		return nil, err
	}
	store := repository.NewMemoryStore(repository.WithLogger(log), repository.WithMetrics(false))
	if _, err := store.Upsert(ctx, events); err != nil {
		return nil, err
	}
	return store, nil
}

func printTimeline(out io.Writer, tl types.Timeline, listItems bool) error {
	var clusters, spans, points int
	perCategory := make(map[string]int)
	for _, it := range tl.Items {
		perCategory[it.Category]++
		switch {
		case it.Kind == types.KindCluster:
			clusters++
		case it.Kind == types.KindSpan:
			spans++
		default:
			points++
		}
	}
	clustered := "no"
	if tl.Clustered {
		clustered = "yes"
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Window:\t%s .. %s (%s years)\n", year(tl.Window.StartYear), year(tl.Window.EndYear), year(tl.Window.EndYear-tl.Window.StartYear))
	fmt.Fprintf(w, "Tier:\t%d (buckets of %s years, threshold %d)\n", tl.Tier.ID, year(tl.Tier.BucketSizeYears), tl.Tier.ClusterThreshold)
	fmt.Fprintf(w, "Events:\t%s in window of %s stored\n", count(tl.FilteredEvents), count(tl.TotalEvents))
	fmt.Fprintf(w, "Clustered:\t%s\n", clustered)
	fmt.Fprintf(w, "Items:\t%s (%s clusters, %s spans, %s points)\n", count(len(tl.Items)), count(clusters), count(spans), count(points))
	fmt.Fprintf(w, "Dropped:\t%s\n", count(tl.Dropped))
	if err := w.Flush(); err != nil {
		return err
	}

	if len(tl.Categories) > 0 {
		fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tITEMS\tLANES")
		for _, cat := range tl.Categories {
			fmt.Fprintf(w, "%s\t%s\t%d\n", cat, count(perCategory[cat]), tl.Lanes[cat])
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if !listItems || len(tl.Items) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tID\tYEAR\tLANE\tTITLE")
	for _, it := range tl.Items {
		lane := "-"
		if it.Lane != nil {
			lane = fmt.Sprint(*it.Lane)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", it.Kind, it.ID, year(int64(it.Year)), lane, it.Title)
	}
	return w.Flush()
}
