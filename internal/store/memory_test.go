package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvdeck/tvdeck/internal/models"
)

func testPlaylist(name string, channels ...models.Channel) *models.Playlist {
	return &models.Playlist{
		Name:       name,
		Channels:   channels,
		TotalCount: len(channels),
		LoadedAt:   time.Now(),
		Source:     models.SourceURL,
		SourceURL:  "http://provider.example.com/" + name + ".m3u8",
	}
}

func testChannels() []models.Channel {
	return []models.Channel{
		{ID: "bbc-one-1", Name: "BBC One", URL: "http://s/1", Group: "News"},
		{ID: "bbc-two-2", Name: "BBC Two", URL: "http://s/2", Group: "News"},
		{ID: "mtv-3", Name: "MTV", URL: "http://s/3", Group: "Music"},
		{ID: "local-4", Name: "Local", URL: "http://s/4"},
	}
}

func TestMemorySavePlaylist(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.SavePlaylist(ctx, testPlaylist("main", testChannels()...))
	require.NoError(t, err)

	got, err := m.GetPlaylist(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "main", got.Name)
	assert.Equal(t, 4, got.ChannelCount)
	assert.True(t, got.Active)

	// Saving under the same name upserts instead of duplicating.
	id2, err := m.SavePlaylist(ctx, testPlaylist("main", testChannels()[:2]...))
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	all, err := m.ListPlaylists(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2, all[0].ChannelCount)
}

func TestMemoryActivePlaylist(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.ActivePlaylist(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := m.SavePlaylist(ctx, testPlaylist("first", testChannels()...))
	require.NoError(t, err)
	second, err := m.SavePlaylist(ctx, testPlaylist("second", testChannels()...))
	require.NoError(t, err)

	// The most recently saved playlist is active.
	active, err := m.ActivePlaylist(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, active.ID)

	require.NoError(t, m.SetActivePlaylist(ctx, first))
	active, err = m.ActivePlaylist(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, active.ID)

	assert.ErrorIs(t, m.SetActivePlaylist(ctx, 999), ErrNotFound)
}

func TestMemoryListChannels(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.SavePlaylist(ctx, testPlaylist("main", testChannels()...))
	require.NoError(t, err)

	channels, total, err := m.ListChannels(ctx, ChannelFilter{PlaylistID: id})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, channels, 4)

	// Group filter, with the sentinel matching ungrouped channels.
	channels, total, err = m.ListChannels(ctx, ChannelFilter{PlaylistID: id, Group: "News"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	channels, total, err = m.ListChannels(ctx, ChannelFilter{PlaylistID: id, Group: models.GroupSentinel})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "Local", channels[0].Name)

	// Case-insensitive name search.
	channels, total, err = m.ListChannels(ctx, ChannelFilter{PlaylistID: id, Search: "bbc"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// Pagination: total counts all matches, the page is capped.
	channels, total, err = m.ListChannels(ctx, ChannelFilter{PlaylistID: id, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, channels, 2)
	assert.Equal(t, "MTV", channels[0].Name)
}

func TestMemoryFavorites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.SavePlaylist(ctx, testPlaylist("main", testChannels()...))
	require.NoError(t, err)

	fav, err := m.ToggleFavorite(ctx, "mtv-3")
	require.NoError(t, err)
	assert.True(t, fav)

	ch, err := m.GetChannel(ctx, id, "mtv-3")
	require.NoError(t, err)
	assert.True(t, ch.Favorite)

	channels, total, err := m.ListChannels(ctx, ChannelFilter{PlaylistID: id, FavoritesOnly: true})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "MTV", channels[0].Name)

	fav, err = m.ToggleFavorite(ctx, "mtv-3")
	require.NoError(t, err)
	assert.False(t, fav)

	_, err = m.ToggleFavorite(ctx, "bbc-one-1")
	require.NoError(t, err)
	require.NoError(t, m.ClearFavorites(ctx))
	favs, err := m.ListFavorites(ctx)
	require.NoError(t, err)
	assert.Empty(t, favs)
}

func TestMemoryGroups(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.SavePlaylist(ctx, testPlaylist("main", testChannels()...))
	require.NoError(t, err)

	groups, err := m.ListGroups(ctx, id)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "Music", groups[0].Name)
	assert.Equal(t, "News", groups[1].Name)
	assert.Equal(t, models.GroupSentinel, groups[2].Name)
	assert.Equal(t, 2, groups[1].Count)
}

func TestMemoryDeletePlaylist(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.SavePlaylist(ctx, testPlaylist("main", testChannels()...))
	require.NoError(t, err)

	require.NoError(t, m.DeletePlaylist(ctx, id))
	assert.ErrorIs(t, m.DeletePlaylist(ctx, id), ErrNotFound)
	_, err = m.GetPlaylist(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPreferences(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	prefs, err := m.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultPreferences["items_per_page"], prefs["items_per_page"])

	require.NoError(t, m.SetPreference(ctx, "view_mode", "list"))
	require.NoError(t, m.SetPreference(ctx, "theme", "dark"))

	prefs, err = m.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, "list", prefs["view_mode"])
	assert.Equal(t, "dark", prefs["theme"])
	assert.Equal(t, DefaultPreferences["default_language"], prefs["default_language"])
}
