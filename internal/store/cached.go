package store

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tvdeck/tvdeck/internal/cache"
	"github.com/tvdeck/tvdeck/internal/models"
)

// Cache TTLs per entity type. Channel lists churn only on playlist reloads
// and favorite toggles, both of which invalidate explicitly; the TTLs are a
// safety net.
const (
	ttlPlaylists = 2 * time.Minute
	ttlPlaylist  = 5 * time.Minute
	ttlChannels  = 1 * time.Minute
	ttlGroups    = 5 * time.Minute
	ttlFavorites = 5 * time.Minute
)

// CachedStore wraps a Store with a Redis caching layer. Reads are served from
// cache when possible; writes invalidate the relevant keys.
type CachedStore struct {
	inner Store
	cache *cache.Redis
	log   logrus.FieldLogger
}

// NewCachedStore wraps inner with Redis caching.
func NewCachedStore(inner Store, c *cache.Redis, log logrus.FieldLogger) *CachedStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CachedStore{inner: inner, cache: c, log: log}
}

// --- cached reads ---

func (c *CachedStore) ListPlaylists(ctx context.Context) ([]models.StoredPlaylist, error) {
	const key = "playlists:all"
	if v, err := cache.Get[[]models.StoredPlaylist](ctx, c.cache, key); err == nil {
		return v, nil
	}
	playlists, err := c.inner.ListPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, playlists, ttlPlaylists)
	return playlists, nil
}

func (c *CachedStore) GetPlaylist(ctx context.Context, id int64) (*models.StoredPlaylist, error) {
	key := fmt.Sprintf("playlist:%d", id)
	if v, err := cache.Get[models.StoredPlaylist](ctx, c.cache, key); err == nil {
		return &v, nil
	}
	pl, err := c.inner.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, pl, ttlPlaylist)
	return pl, nil
}

// channelListResult caches the ListChannels tuple.
type channelListResult struct {
	Channels []models.Channel `json:"channels"`
	Total    int              `json:"total"`
}

func (c *CachedStore) ListChannels(ctx context.Context, filter ChannelFilter) ([]models.Channel, int, error) {
	key := "channels:" + filterHash(filter)
	if v, err := cache.Get[channelListResult](ctx, c.cache, key); err == nil {
		return v.Channels, v.Total, nil
	}
	channels, total, err := c.inner.ListChannels(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	c.set(ctx, key, channelListResult{Channels: channels, Total: total}, ttlChannels)
	return channels, total, nil
}

func (c *CachedStore) ListGroups(ctx context.Context, playlistID int64) ([]models.ChannelGroup, error) {
	key := fmt.Sprintf("groups:%d", playlistID)
	if v, err := cache.Get[[]models.ChannelGroup](ctx, c.cache, key); err == nil {
		return v, nil
	}
	groups, err := c.inner.ListGroups(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, groups, ttlGroups)
	return groups, nil
}

func (c *CachedStore) ListFavorites(ctx context.Context) ([]string, error) {
	const key = "favorites:all"
	if v, err := cache.Get[[]string](ctx, c.cache, key); err == nil {
		return v, nil
	}
	favorites, err := c.inner.ListFavorites(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, favorites, ttlFavorites)
	return favorites, nil
}

// --- writes with invalidation ---

func (c *CachedStore) SavePlaylist(ctx context.Context, pl *models.Playlist) (int64, error) {
	id, err := c.inner.SavePlaylist(ctx, pl)
	if err != nil {
		return 0, err
	}
	c.invalidate(ctx, "playlists:all", fmt.Sprintf("playlist:%d", id))
	c.invalidatePattern(ctx, "channels:*", "groups:*", "playlist:*")
	return id, nil
}

func (c *CachedStore) DeletePlaylist(ctx context.Context, id int64) error {
	if err := c.inner.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, "playlists:all", fmt.Sprintf("playlist:%d", id))
	c.invalidatePattern(ctx, "channels:*", "groups:*")
	return nil
}

func (c *CachedStore) SetActivePlaylist(ctx context.Context, id int64) error {
	if err := c.inner.SetActivePlaylist(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, "playlists:all")
	c.invalidatePattern(ctx, "playlist:*")
	return nil
}

func (c *CachedStore) ToggleFavorite(ctx context.Context, channelID string) (bool, error) {
	favorite, err := c.inner.ToggleFavorite(ctx, channelID)
	if err != nil {
		return false, err
	}
	c.invalidate(ctx, "favorites:all")
	c.invalidatePattern(ctx, "channels:*")
	return favorite, nil
}

func (c *CachedStore) ClearFavorites(ctx context.Context) error {
	if err := c.inner.ClearFavorites(ctx); err != nil {
		return err
	}
	c.invalidate(ctx, "favorites:all")
	c.invalidatePattern(ctx, "channels:*")
	return nil
}

func (c *CachedStore) SetPreference(ctx context.Context, key, value string) error {
	return c.inner.SetPreference(ctx, key, value)
}

// --- passthrough ---

func (c *CachedStore) ActivePlaylist(ctx context.Context) (*models.StoredPlaylist, error) {
	return c.inner.ActivePlaylist(ctx)
}

func (c *CachedStore) GetChannel(ctx context.Context, playlistID int64, channelID string) (*models.Channel, error) {
	return c.inner.GetChannel(ctx, playlistID, channelID)
}

func (c *CachedStore) Preferences(ctx context.Context) (map[string]string, error) {
	return c.inner.Preferences(ctx)
}

// --- helpers ---

func (c *CachedStore) set(ctx context.Context, key string, v any, ttl time.Duration) {
	if err := cache.Set(ctx, c.cache, key, v, ttl); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache set failed")
	}
}

func (c *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := cache.Del(ctx, c.cache, keys...); err != nil {
		c.log.WithError(err).Warn("cache invalidation failed")
	}
}

func (c *CachedStore) invalidatePattern(ctx context.Context, patterns ...string) {
	for _, p := range patterns {
		if err := cache.DelPattern(ctx, c.cache, p); err != nil {
			c.log.WithError(err).WithField("pattern", p).Warn("cache invalidation failed")
		}
	}
}

// filterHash produces a short deterministic hash for a ChannelFilter so it
// can be used as part of a cache key.
func filterHash(f ChannelFilter) string {
	raw := fmt.Sprintf("%d|%s|%v|%s|%d|%d",
		f.PlaylistID, f.Group, f.FavoritesOnly, f.Search, f.Limit, f.Offset)
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:8])
}
