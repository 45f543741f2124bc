// Package store persists the playlist registry, parsed channels, favorites,
// and user preferences. The parsing core never touches a Store; persisted
// values reach it as plain arguments.
package store

import (
	"context"
	"errors"

	"github.com/tvdeck/tvdeck/internal/models"
)

// ErrNotFound is returned when a playlist or channel does not exist.
var ErrNotFound = errors.New("not found")

// DefaultPreferences are merged under stored preference values.
var DefaultPreferences = map[string]string{
	"default_language": "All",
	"items_per_page":   "120",
	"view_mode":        "grid",
}

// Store defines persistence for playlists, channels, favorites, preferences.
type Store interface {
	// SavePlaylist registers a parsed playlist and replaces its channel rows,
	// marks it active, and returns its registry id.
	SavePlaylist(ctx context.Context, pl *models.Playlist) (int64, error)
	// ListPlaylists returns all registry entries, oldest first.
	ListPlaylists(ctx context.Context) ([]models.StoredPlaylist, error)
	// GetPlaylist returns one registry entry by id.
	GetPlaylist(ctx context.Context, id int64) (*models.StoredPlaylist, error)
	// DeletePlaylist removes a registry entry and its channels.
	DeletePlaylist(ctx context.Context, id int64) error
	// SetActivePlaylist marks one playlist active and all others inactive.
	SetActivePlaylist(ctx context.Context, id int64) error
	// ActivePlaylist returns the active registry entry, or ErrNotFound.
	ActivePlaylist(ctx context.Context) (*models.StoredPlaylist, error)

	// ListChannels returns channels matching the filter plus the total count
	// before limit/offset, with the favorite flag joined in.
	ListChannels(ctx context.Context, filter ChannelFilter) ([]models.Channel, int, error)
	// GetChannel returns one channel of a playlist by its stable channel id.
	GetChannel(ctx context.Context, playlistID int64, channelID string) (*models.Channel, error)
	// ListGroups returns group names and counts for a playlist, sorted by
	// case-insensitive name.
	ListGroups(ctx context.Context, playlistID int64) ([]models.ChannelGroup, error)

	// ToggleFavorite flips a channel id's favorite status, returning the new state.
	ToggleFavorite(ctx context.Context, channelID string) (bool, error)
	// ListFavorites returns all favorite channel ids.
	ListFavorites(ctx context.Context) ([]string, error)
	// ClearFavorites removes every favorite.
	ClearFavorites(ctx context.Context) error

	// Preferences returns the preference map with defaults applied.
	Preferences(ctx context.Context) (map[string]string, error)
	// SetPreference stores one preference value.
	SetPreference(ctx context.Context, key, value string) error
}

// ChannelFilter holds optional filters for listing channels.
type ChannelFilter struct {
	PlaylistID    int64
	Group         string // exact group name; GroupSentinel matches ungrouped channels
	FavoritesOnly bool
	Search        string // case-insensitive substring match on channel name
	Limit         int    // default 50, max 500
	Offset        int
}

// normalize applies the filter's paging defaults.
func (f *ChannelFilter) normalize() {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// mergeDefaults fills missing preference keys with their defaults.
func mergeDefaults(prefs map[string]string) map[string]string {
	merged := make(map[string]string, len(DefaultPreferences)+len(prefs))
	for k, v := range DefaultPreferences {
		merged[k] = v
	}
	for k, v := range prefs {
		merged[k] = v
	}
	return merged
}
