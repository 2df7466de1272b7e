package dataset

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/chronoverse/chronoverse/internal/domain/model"
	"github.com/chronoverse/chronoverse/pkg/logger"
)

// Watch monitors path and calls onChange with the reloaded events each time
// the file is written or recreated. It runs until ctx is cancelled.
//
// A reload that fails is logged and skipped; the caller keeps its previous
// data. The parent directory is watched so editors that save by rename are
// still picked up.
func Watch(ctx context.Context, path string, onChange func([]model.Event, Report), opts ...Option) error {
	o := buildOptions(opts)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}
	o.log.Info(ctx, "dataset: watching for changes", logger.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			events, rep, err := Load(ctx, target, opts...)
			if err != nil {
				o.log.Error(ctx, "dataset: reload failed, keeping previous data",
					logger.String("path", target), logger.Error(err))
				continue
			}
			o.log.Info(ctx, "dataset: reloaded",
				logger.String("path", target), logger.Int("imported", rep.Imported))
			onChange(events, rep)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.log.Error(ctx, "dataset: watcher error", logger.Error(err))
		}
	}
}
