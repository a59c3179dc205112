package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/knowledge-engine/recommender/internal/catalog"
	"github.com/knowledge-engine/recommender/internal/config"
	"github.com/knowledge-engine/recommender/internal/metrics"
	"github.com/knowledge-engine/recommender/internal/search"
)

// ErrNotReady is returned by ranking calls before the first snapshot is published
var ErrNotReady = errors.New("catalog snapshot not loaded yet")

// Engine publishes catalog snapshots and serves rankings from the current one.
// Readers never lock: each call loads the snapshot pointer once.
type Engine struct {
	Config *config.Config
	Logger *logrus.Entry
	Source catalog.Source

	snapshot atomic.Pointer[Snapshot]
	reloads  singleflight.Group

	mu    sync.RWMutex
	stats EngineStats
}

type EngineStats struct {
	Reloads       int64
	FailedReloads int64
	LastError     string
	LastReload    time.Time
	StartTime     time.Time
}

func NewEngine(cfg *config.Config, logger *logrus.Entry, src catalog.Source) *Engine {
	return &Engine{
		Config: cfg,
		Logger: logger.WithField("component", "engine"),
		Source: src,
		stats: EngineStats{
			StartTime: time.Now(),
		},
	}
}

// Current returns the published snapshot, nil before the first successful load
func (e *Engine) Current() *Snapshot {
	return e.snapshot.Load()
}

// Reload rebuilds the snapshot from Source and swaps it in. Concurrent callers
// share one rebuild, which runs to completion even if the caller that started it
// goes away. ctx only bounds how long this caller waits.
// On failure the previous snapshot stays published.
func (e *Engine) Reload(ctx context.Context) (*Snapshot, error) {
	ch := e.reloads.DoChan("reload", func() (interface{}, error) {
		return e.rebuild(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Shared {
			e.Logger.Debug("Joined in-flight catalog reload")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) rebuild(ctx context.Context) (*Snapshot, error) {
	log := e.Logger.WithField("source", e.Source.String())
	log.Info("Loading catalog")

	items, err := catalog.LoadSource(ctx, e.Source)
	if err != nil {
		e.recordFailure(err)
		return nil, err
	}

	snap, err := BuildSnapshot(ctx, items, SnapshotOptions{
		MinTokenLength: e.Config.Ranking.MinTokenLength,
		Workers:        e.Config.Ranking.Workers,
		Source:         e.Source.String(),
	})
	if err != nil {
		e.recordFailure(err)
		return nil, err
	}

	e.Publish(snap)
	return snap, nil
}

// Publish makes snap the snapshot seen by all subsequent requests
func (e *Engine) Publish(snap *Snapshot) {
	e.snapshot.Store(snap)

	e.mu.Lock()
	e.stats.Reloads++
	e.stats.LastError = ""
	e.stats.LastReload = snap.BuiltAt
	e.mu.Unlock()

	metrics.ObserveSnapshot(snap.Len(), snap.Vocabulary.Len(), snap.BuildDuration)

	if dups := snap.Names.Duplicates(); len(dups) > 0 {
		e.Logger.WithField("names", dups).Warn("Duplicate product names, only the first row of each is reachable by name")
	}

	e.Logger.WithFields(logrus.Fields{
		"snapshot":   snap.ID,
		"items":      snap.Len(),
		"vocabulary": snap.Vocabulary.Len(),
		"took":       snap.BuildDuration,
	}).Info("Published catalog snapshot")
}

func (e *Engine) recordFailure(err error) {
	e.mu.Lock()
	e.stats.FailedReloads++
	e.stats.LastError = err.Error()
	e.mu.Unlock()

	metrics.ObserveReloadFailure()
	e.Logger.WithError(err).Error("Catalog reload failed, keeping previous snapshot")
}

// Result pairs recommendations with the snapshot that produced them
type Result struct {
	Snapshot        *Snapshot
	Recommendations []Recommendation
}

// RecommendByName ranks the k products most similar to the named one
func (e *Engine) RecommendByName(name string, k int) (*Result, error) {
	started := time.Now()

	snap := e.Current()
	if snap == nil {
		metrics.ObserveRanking(metrics.ModeByName, "not_ready", started)
		return nil, ErrNotReady
	}

	recs, err := snap.SimilarTo(name, k)
	switch {
	case errors.Is(err, search.ErrItemNotFound):
		metrics.ObserveRanking(metrics.ModeByName, "not_found", started)
		return nil, err
	case err != nil:
		metrics.ObserveRanking(metrics.ModeByName, "error", started)
		return nil, err
	}

	metrics.ObserveRanking(metrics.ModeByName, "success", started)
	return &Result{Snapshot: snap, Recommendations: recs}, nil
}

// RecommendByAttributes ranks the whole catalog against an attribute list
func (e *Engine) RecommendByAttributes(attributes []string) (*Result, error) {
	started := time.Now()

	snap := e.Current()
	if snap == nil {
		metrics.ObserveRanking(metrics.ModeByAttributes, "not_ready", started)
		return nil, ErrNotReady
	}

	recs := snap.SimilarToAttributes(attributes)
	metrics.ObserveRanking(metrics.ModeByAttributes, "success", started)
	return &Result{Snapshot: snap, Recommendations: recs}, nil
}

func (e *Engine) Stats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}
