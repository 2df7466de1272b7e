// Package service runs timeline queries over an event store: it resolves the
// zoom tier, clusters dense windows, packs spans into lanes and converts the
// result into chart-facing types.
package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/chronoverse/chronoverse/internal/adapters/dataset"
	repository "github.com/chronoverse/chronoverse/internal/adapters/repository"
	"github.com/chronoverse/chronoverse/internal/config"
	"github.com/chronoverse/chronoverse/internal/domain/cluster"
	"github.com/chronoverse/chronoverse/internal/domain/layout"
	"github.com/chronoverse/chronoverse/internal/domain/model"
	"github.com/chronoverse/chronoverse/internal/domain/tier"
	"github.com/chronoverse/chronoverse/internal/domain/types"
	"github.com/chronoverse/chronoverse/pkg/logger"
	"github.com/chronoverse/chronoverse/pkg/metrics"
)

// Query selects a window and the reduction steps to apply to it.
type Query struct {
	StartYear        int64
	EndYear          int64
	EnableClustering bool
	EnableSpans      bool
}

// Service implements the API dependencies for the timeline.
type Service struct {
	mu sync.RWMutex

	cfg    *config.Config
	store  repository.Store
	ownsDB bool
	layout *layout.Engine

	// State
	started    bool
	lastReload time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration. Nil keeps the defaults.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithStore injects an event store. Without one, Start opens the store named
// by the configuration and Stop closes it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithLayout overrides the span layout engine.
func WithLayout(e *layout.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.layout = e
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:    config.New(),
		layout: layout.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultQuery returns a query over the configured default window.
func (s *Service) DefaultQuery() Query {
	return Query{
		StartYear:        s.cfg.DefaultStartYear,
		EndYear:          s.cfg.DefaultEndYear,
		EnableClustering: s.cfg.EnableClustering,
		EnableSpans:      s.cfg.EnableSpans,
	}
}

// Start opens the store if none was injected and loads the configured dataset.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting timeline service...",
		logger.String("storage", s.cfg.StorageDriver))

	if s.store == nil {
		store, err := repository.Open(ctx, s.cfg.StorageDriver, s.cfg.StoragePath,
			repository.WithLogger(s.logger.Named("repository")))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.ownsDB = true
	}

	if s.cfg.DatasetPath != "" {
		if _, err := s.reloadLocked(ctx); err != nil {
			if s.ownsDB {
				_ = s.store.Close()
				s.store = nil
			}
			return err
		}
	}

	s.started = true
	n, _ := s.store.Count(ctx)
	s.logger.Info(ctx, "timeline service started", logger.Int("events", n))
	return nil
}

// Stop releases the store if the service opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping timeline service...")

	if s.ownsDB && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
		}
		s.store = nil
	}
	s.started = false
	s.logger.Info(context.Background(), "timeline service stopped")
}

func (s *Service) activeStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

func (s *Service) checkWindow(start, end int64) error {
	if float64(end)-float64(start) > float64(s.cfg.MaxWindowYears) {
		return fmt.Errorf("%w: %d..%d exceeds %d years", ErrInvalidWindow, start, end, s.cfg.MaxWindowYears)
	}
	return nil
}

// Timeline runs the full reduction pipeline for q.
func (s *Service) Timeline(ctx context.Context, q Query) (types.Timeline, error) {
	store, err := s.activeStore()
	if err != nil {
		return types.Timeline{}, err
	}
	if err := s.checkWindow(q.StartYear, q.EndYear); err != nil {
		return types.Timeline{}, err
	}
	began := time.Now()

	events, err := store.Window(ctx, q.StartYear, q.EndYear)
	if err != nil {
		metrics.RecordErrorByComponent("service", "window")
		return types.Timeline{}, fmt.Errorf("load window: %w", err)
	}
	total, err := store.Count(ctx)
	if err != nil {
		return types.Timeline{}, fmt.Errorf("count events: %w", err)
	}

	window := types.Window{StartYear: q.StartYear, EndYear: q.EndYear}
	rangeYears := window.Range()
	tc := tier.Resolve(rangeYears)

	clustered := q.EnableClustering && cluster.ShouldCluster(tc, len(events), rangeYears)
	cres := cluster.Cluster(events, q.StartYear, q.EndYear, tc, clustered)

	var items []types.DisplayItem
	var lanes map[string]int
	var unplaced, spans, points int
	if q.EnableSpans {
		lres := s.layout.ClassifyAndPack(cres.Items, rangeYears)
		items, lanes = spanDisplay(lres)
		unplaced, spans, points = lres.Unplaced, len(lres.Spans), len(lres.Points)
	} else {
		items, unplaced = pointDisplay(cres.Items)
		lanes, points = map[string]int{}, len(items)
	}

	categories := orderCategories(items, s.cfg.CategoryOrder)
	sortByCategory(items, categories)

	clusters := make(map[string]types.Cluster, len(cres.Index))
	absorbed := 0
	for id, m := range cres.Index {
		clusters[id] = types.FromMarker(m)
		absorbed += m.MemberCount
	}

	tl := types.Timeline{
		Window:         window,
		Tier:           types.FromTier(tc),
		TotalEvents:    total,
		FilteredEvents: len(events),
		Clustered:      clustered,
		Items:          items,
		Clusters:       clusters,
		Categories:     categories,
		Lanes:          lanes,
		Dropped:        cres.Dropped + unplaced,
	}

	elapsed := time.Since(began)
	maxLanes := 0
	for _, n := range lanes {
		maxLanes = max(maxLanes, n)
	}
	metrics.ObserveQuery(metrics.QueryStats{
		Tier:         tc.ID,
		Latency:      elapsed,
		WindowEvents: len(events),
		Clusters:     len(cres.Index),
		Absorbed:     absorbed,
		Dropped:      tl.Dropped,
		Spans:        spans,
		Points:       points,
		MaxLanes:     maxLanes,
	})
	s.logger.Debug(ctx, "timeline query",
		logger.Int64("start", q.StartYear),
		logger.Int64("end", q.EndYear),
		logger.Int("tier", tc.ID),
		logger.Int("events", len(events)),
		logger.Int("items", len(items)),
		logger.Int("clusters", len(clusters)),
		logger.Bool("clustered", clustered),
		logger.Float64("ms", float64(elapsed.Microseconds())/1000),
	)
	return tl, nil
}

func spanDisplay(res layout.Result) ([]types.DisplayItem, map[string]int) {
	items := make([]types.DisplayItem, 0, len(res.Spans)+len(res.Points))
	for _, sp := range res.Spans {
		lane := sp.Lane
		year, _ := sp.Item.Event.ResolveYear()
		items = append(items, types.NewDisplayItem(sp.Item, types.KindSpan, year, &lane))
	}
	for _, p := range res.Points {
		items = append(items, types.NewDisplayItem(p.Item, types.KindPoint, p.Year, nil))
	}

	lanes := make(map[string]int, len(res.Lanes))
	for cat, n := range res.Lanes {
		key := types.DisplayCategory(cat)
		lanes[key] = max(lanes[key], n)
	}
	return items, lanes
}

func pointDisplay(in []model.Item) ([]types.DisplayItem, int) {
	items := make([]types.DisplayItem, 0, len(in))
	unplaced := 0
	for _, it := range in {
		year, ok := it.Event.ResolveYear()
		if !ok {
			unplaced++
			continue
		}
		items = append(items, types.NewDisplayItem(it, types.KindPoint, year, nil))
	}
	return items, unplaced
}

// orderCategories lists the configured categories that are present, then the
// remaining ones in order of first appearance.
func orderCategories(items []types.DisplayItem, preferred []string) []string {
	present := make(map[string]bool)
	var seen []string
	for _, it := range items {
		if !present[it.Category] {
			present[it.Category] = true
			seen = append(seen, it.Category)
		}
	}

	out := make([]string, 0, len(seen))
	for _, c := range preferred {
		if present[c] && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	for _, c := range seen {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func sortByCategory(items []types.DisplayItem, categories []string) {
	rank := make(map[string]int, len(categories))
	for i, c := range categories {
		rank[c] = i
	}
	slices.SortStableFunc(items, func(a, b types.DisplayItem) int {
		return cmp.Compare(rank[a.Category], rank[b.Category])
	})
}

// ExpandCluster recomputes the window with clustering forced on and returns
// the cluster with the given id.
func (s *Service) ExpandCluster(ctx context.Context, id string, start, end int64) (types.Cluster, error) {
	store, err := s.activeStore()
	if err != nil {
		return types.Cluster{}, err
	}
	if err := s.checkWindow(start, end); err != nil {
		return types.Cluster{}, err
	}
	events, err := store.Window(ctx, start, end)
	if err != nil {
		return types.Cluster{}, fmt.Errorf("load window: %w", err)
	}

	tc := tier.Resolve(float64(end) - float64(start))
	res := cluster.Cluster(events, start, end, tc, true)
	m, ok := res.Index[id]
	if !ok {
		return types.Cluster{}, fmt.Errorf("%w: %s", ErrClusterNotFound, id)
	}
	return types.FromMarker(m), nil
}

// Data returns the raw events overlapping [start, end].
func (s *Service) Data(ctx context.Context, start, end int64) ([]types.Event, error) {
	store, err := s.activeStore()
	if err != nil {
		return nil, err
	}
	if err := s.checkWindow(start, end); err != nil {
		return nil, err
	}
	events, err := store.Window(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load window: %w", err)
	}
	out := make([]types.Event, len(events))
	for i, e := range events {
		out[i] = types.FromEvent(e)
	}
	return out, nil
}

// Tiers returns the tier table, widest first.
func (s *Service) Tiers() []types.TierInfo {
	all := tier.All()
	out := make([]types.TierInfo, len(all))
	for i, c := range all {
		out[i] = types.FromTier(c)
	}
	return out
}

// Reload re-reads the configured dataset into the store.
func (s *Service) Reload(ctx context.Context) (dataset.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return dataset.Report{}, ErrNotStarted
	}
	return s.reloadLocked(ctx)
}

func (s *Service) reloadLocked(ctx context.Context) (dataset.Report, error) {
	if s.cfg.DatasetPath == "" {
		return dataset.Report{}, ErrNoDataset
	}
	events, rep, err := dataset.Load(ctx, s.cfg.DatasetPath, dataset.WithLogger(s.logger.Named("dataset")))
	if err != nil {
		metrics.RecordReload("error")
		return rep, fmt.Errorf("reload dataset: %w", err)
	}
	if err := s.replaceLocked(ctx, events); err != nil {
		return rep, err
	}
	s.logger.Info(ctx, "dataset loaded",
		logger.String("path", s.cfg.DatasetPath),
		logger.Int("read", rep.Read),
		logger.Int("imported", rep.Imported),
		logger.Int("skipped", rep.Skipped),
		logger.Int("duplicates", rep.Duplicates),
	)
	return rep, nil
}

// ReplaceEvents swaps the store content for events. It backs dataset
// hot reload.
func (s *Service) ReplaceEvents(ctx context.Context, events []model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return ErrNotStarted
	}
	return s.replaceLocked(ctx, events)
}

func (s *Service) replaceLocked(ctx context.Context, events []model.Event) error {
	if err := s.store.Replace(ctx, events); err != nil {
		metrics.RecordReload("error")
		return fmt.Errorf("replace events: %w", err)
	}
	metrics.RecordReload("ok")
	s.lastReload = time.Now()
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.started,
		"storage_driver": s.cfg.StorageDriver,
		"dataset_path":   s.cfg.DatasetPath,
	}
	if !s.lastReload.IsZero() {
		stats["last_reload"] = s.lastReload.UTC().Format(time.RFC3339)
	}
	if s.started {
		if n, err := s.store.Count(ctx); err == nil {
			stats["total_events"] = n
		}
	}
	return stats
}
