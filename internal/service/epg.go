package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tvdeck/tvdeck/internal/cache"
	"github.com/tvdeck/tvdeck/internal/epg"
	"github.com/tvdeck/tvdeck/internal/fetcher"
	"github.com/tvdeck/tvdeck/internal/models"
)

const (
	epgSnapshotKey = "epg:snapshot"
	epgRefreshLock = "locks:epg-refresh"
	epgLockTTL     = 10 * time.Minute
	epgSnapshotTTL = 48 * time.Hour
)

// ErrNoGuide is returned by query methods when no guide data has been loaded.
var ErrNoGuide = errors.New("no guide data loaded")

// Guide holds the current XMLTV snapshot and refreshes it from an upstream
// URL. The snapshot is replaced wholesale on every successful refresh; queries
// between refreshes see a consistent view.
//
// With Redis configured the snapshot is also persisted so restarts do not
// start with an empty guide, and refreshes across replicas are coordinated
// through a lock.
type Guide struct {
	cache     *cache.Redis // nil disables persistence and locking
	userAgent string
	timeout   time.Duration
	log       logrus.FieldLogger

	snapshot atomic.Pointer[models.EPGData]
}

// NewGuide creates a Guide. rds may be nil.
func NewGuide(rds *cache.Redis, userAgent string, timeout time.Duration, log logrus.FieldLogger) *Guide {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Guide{cache: rds, userAgent: userAgent, timeout: timeout, log: log}
}

// Restore loads a previously persisted snapshot from Redis. Call once at
// startup; a cache miss is not an error.
func (g *Guide) Restore(ctx context.Context) {
	if g.cache == nil {
		return
	}
	data, err := cache.Get[models.EPGData](ctx, g.cache, epgSnapshotKey)
	if err != nil {
		return
	}
	g.snapshot.Store(&data)
	g.log.WithField("programs", len(data.Programs)).Info("guide restored from cache")
}

// Refresh fetches and parses the XMLTV document at url, replacing the current
// snapshot. A malformed document leaves the previous snapshot in place. When
// another replica holds the refresh lock, Refresh returns nil without doing
// anything.
func (g *Guide) Refresh(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("guide URL is required")
	}

	if g.cache != nil {
		unlock, err := cache.TryLock(ctx, g.cache, epgRefreshLock, epgLockTTL)
		if err != nil {
			if errors.Is(err, cache.ErrLocked) {
				g.log.Debug("guide refresh already in progress elsewhere")
				return nil
			}
			return err
		}
		defer unlock()
	}

	content, err := fetcher.FetchText(ctx, url, g.userAgent, g.timeout)
	if err != nil {
		return fmt.Errorf("fetch guide: %w", err)
	}

	data, err := epg.Parse(content)
	if err != nil {
		// Keep serving the old snapshot rather than dropping the guide.
		g.log.WithError(err).Warn("guide parse failed; keeping previous data")
		return fmt.Errorf("parse guide: %w", err)
	}
	data.SourceURL = url

	g.snapshot.Store(data)
	if g.cache != nil {
		if err := cache.Set(ctx, g.cache, epgSnapshotKey, data, epgSnapshotTTL); err != nil {
			g.log.WithError(err).Warn("guide snapshot cache write failed")
		}
	}

	g.log.WithFields(logrus.Fields{
		"programs": len(data.Programs),
		"url":      url,
	}).Info("guide refreshed")
	return nil
}

// Data returns the current snapshot, or nil when no guide is loaded.
func (g *Guide) Data() *models.EPGData {
	return g.snapshot.Load()
}

// Loaded reports whether guide data is available.
func (g *Guide) Loaded() bool {
	return g.snapshot.Load() != nil
}

// Schedule returns the current and upcoming programs for a channel's tvg-id.
func (g *Guide) Schedule(channelID string, now time.Time, limit int) (*epg.ChannelSchedule, error) {
	data := g.snapshot.Load()
	if data == nil {
		return nil, ErrNoGuide
	}
	sched := epg.ChannelPrograms(data, channelID, now, limit)
	return &sched, nil
}
