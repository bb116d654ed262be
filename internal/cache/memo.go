package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/pipeline"

	"github.com/google/uuid"
)

// Source is anything the enriched table can be built from: a CSV directory
// or one of the database drivers.
type Source interface {
	Load(ctx context.Context) (*dataset.Tables, error)
	// Fingerprint changes whenever the data behind Load changes.
	Fingerprint(ctx context.Context) (string, error)
}

// Observer is notified about cache activity.
type Observer interface {
	CacheHit()
	CacheBuilt(s *Snapshot, took time.Duration)
}

// Snapshot is one immutable build of the enriched table.
type Snapshot struct {
	BuildID     string
	Fingerprint string
	BuiltAt     time.Time
	Lines       []pipeline.EnrichedLine
	Stats       pipeline.Stats
}

// Memo holds the current snapshot and rebuilds it when the source changes.
// Callers may share one Memo. Reads of a fresh snapshot run in parallel;
// rebuilds are serialised.
type Memo struct {
	src      Source
	opts     pipeline.Options
	logger   *slog.Logger
	observer Observer

	build sync.Mutex

	mu      sync.RWMutex
	current *Snapshot
	stale   bool
	// gen counts Invalidate calls so a rebuild that raced one stays stale.
	gen uint64
}

func New(src Source, opts pipeline.Options, logger *slog.Logger) *Memo {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memo{src: src, opts: opts, logger: logger}
}

// WithObserver attaches o and returns m.
func (m *Memo) WithObserver(o Observer) *Memo {
	m.observer = o
	return m
}

// fresh returns the current snapshot if it matches fp and was not
// invalidated, along with the invalidation generation it observed.
func (m *Memo) fresh(fp string) (*Snapshot, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current != nil && !m.stale && m.current.Fingerprint == fp {
		return m.current, m.gen
	}
	return nil, m.gen
}

func (m *Memo) hit(snap *Snapshot) *Snapshot {
	if m.observer != nil {
		m.observer.CacheHit()
	}
	return snap
}

// Snapshot returns the current build, rebuilding first if the source
// fingerprint moved or Invalidate was called. A failed rebuild leaves the
// previous snapshot in place and returns the error.
func (m *Memo) Snapshot(ctx context.Context) (*Snapshot, error) {
	fp, err := m.src.Fingerprint(ctx)
	if err != nil {
		return nil, fmt.Errorf("fingerprint source: %w", err)
	}
	if snap, _ := m.fresh(fp); snap != nil {
		return m.hit(snap), nil
	}

	m.build.Lock()
	defer m.build.Unlock()

	// another caller may have rebuilt while this one waited
	snap, gen := m.fresh(fp)
	if snap != nil {
		return m.hit(snap), nil
	}

	start := time.Now()
	tables, err := m.src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	lines, stats := pipeline.Build(tables, m.opts)
	snap = &Snapshot{
		BuildID:     uuid.New().String(),
		Fingerprint: fp,
		BuiltAt:     time.Now(),
		Lines:       lines,
		Stats:       stats,
	}
	took := time.Since(start)

	m.logger.Info("enriched table built",
		slog.String("build_id", snap.BuildID),
		slog.String("fingerprint", fp),
		slog.Int("items", stats.Items),
		slog.Int("lines", stats.Lines),
		slog.Int("dropped_no_order", stats.DroppedNoOrder),
		slog.Int("dropped_no_product", stats.DroppedNoProduct),
		slog.Int("dropped_undelivered", stats.DroppedUndelivered),
		slog.Int("malformed_timestamps", stats.MalformedTimestamps),
		slog.Duration("took", took),
	)
	if m.observer != nil {
		m.observer.CacheBuilt(snap, took)
	}

	m.mu.Lock()
	m.current = snap
	m.stale = m.gen != gen
	m.mu.Unlock()
	return snap, nil
}

// Lines is Snapshot(ctx).Lines.
func (m *Memo) Lines(ctx context.Context) ([]pipeline.EnrichedLine, error) {
	snap, err := m.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Lines, nil
}

// Invalidate forces the next call to rebuild.
func (m *Memo) Invalidate() {
	m.mu.Lock()
	m.stale = true
	m.gen++
	m.mu.Unlock()
}
