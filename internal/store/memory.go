package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tvdeck/tvdeck/internal/models"
)

// Memory is an in-memory Store used when no database is configured and in
// tests. Nothing survives a restart.
type Memory struct {
	mu        sync.Mutex
	nextID    int64
	playlists map[int64]*memPlaylist
	favorites map[string]time.Time
	prefs     map[string]string
}

type memPlaylist struct {
	meta     models.StoredPlaylist
	channels []models.Channel
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nextID:    1,
		playlists: make(map[int64]*memPlaylist),
		favorites: make(map[string]time.Time),
		prefs:     make(map[string]string),
	}
}

func (m *Memory) SavePlaylist(_ context.Context, pl *models.Playlist) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entry *memPlaylist
	for _, existing := range m.playlists {
		if existing.meta.Name == pl.Name {
			entry = existing
			break
		}
	}
	if entry == nil {
		entry = &memPlaylist{meta: models.StoredPlaylist{
			ID:      m.nextID,
			AddedAt: time.Now(),
		}}
		m.nextID++
		m.playlists[entry.meta.ID] = entry
	}

	loadedAt := pl.LoadedAt
	entry.meta.Name = pl.Name
	entry.meta.Source = pl.Source
	entry.meta.SourceURL = pl.SourceURL
	entry.meta.EPGURL = pl.EPGURL
	entry.meta.ChannelCount = pl.TotalCount
	entry.meta.LoadedAt = &loadedAt
	entry.channels = append([]models.Channel(nil), pl.Channels...)

	for id, other := range m.playlists {
		other.meta.Active = id == entry.meta.ID
	}
	return entry.meta.ID, nil
}

func (m *Memory) ListPlaylists(context.Context) ([]models.StoredPlaylist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.StoredPlaylist, 0, len(m.playlists))
	for _, pl := range m.playlists {
		out = append(out, pl.meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetPlaylist(_ context.Context, id int64) (*models.StoredPlaylist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pl, ok := m.playlists[id]
	if !ok {
		return nil, ErrNotFound
	}
	meta := pl.meta
	return &meta, nil
}

func (m *Memory) DeletePlaylist(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.playlists[id]; !ok {
		return ErrNotFound
	}
	delete(m.playlists, id)
	return nil
}

func (m *Memory) SetActivePlaylist(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.playlists[id]; !ok {
		return ErrNotFound
	}
	for pid, pl := range m.playlists {
		pl.meta.Active = pid == id
	}
	return nil
}

func (m *Memory) ActivePlaylist(context.Context) (*models.StoredPlaylist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pl := range m.playlists {
		if pl.meta.Active {
			meta := pl.meta
			return &meta, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListChannels(_ context.Context, filter ChannelFilter) ([]models.Channel, int, error) {
	filter.normalize()
	m.mu.Lock()
	defer m.mu.Unlock()

	pl, ok := m.playlists[filter.PlaylistID]
	if !ok {
		return nil, 0, nil
	}

	var matched []models.Channel
	for _, ch := range pl.channels {
		if filter.Group != "" {
			group := ch.Group
			if group == "" {
				group = models.GroupSentinel
			}
			if group != filter.Group {
				continue
			}
		}
		_, fav := m.favorites[ch.ID]
		if filter.FavoritesOnly && !fav {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(ch.Name), strings.ToLower(filter.Search)) {
			continue
		}
		ch.Favorite = fav
		matched = append(matched, ch)
	}

	total := len(matched)
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (m *Memory) GetChannel(_ context.Context, playlistID int64, channelID string) (*models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pl, ok := m.playlists[playlistID]
	if !ok {
		return nil, ErrNotFound
	}
	for _, ch := range pl.channels {
		if ch.ID == channelID {
			_, ch.Favorite = m.favorites[ch.ID]
			return &ch, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListGroups(_ context.Context, playlistID int64) ([]models.ChannelGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pl, ok := m.playlists[playlistID]
	if !ok {
		return nil, nil
	}

	counts := make(map[string]int)
	for _, ch := range pl.channels {
		name := ch.Group
		if name == "" {
			name = models.GroupSentinel
		}
		counts[name]++
	}
	out := make([]models.ChannelGroup, 0, len(counts))
	for name, count := range counts {
		out = append(out, models.ChannelGroup{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (m *Memory) ToggleFavorite(_ context.Context, channelID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.favorites[channelID]; ok {
		delete(m.favorites, channelID)
		return false, nil
	}
	m.favorites[channelID] = time.Now()
	return true, nil
}

func (m *Memory) ListFavorites(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type fav struct {
		id string
		at time.Time
	}
	favs := make([]fav, 0, len(m.favorites))
	for id, at := range m.favorites {
		favs = append(favs, fav{id, at})
	}
	sort.Slice(favs, func(i, j int) bool {
		if favs[i].at.Equal(favs[j].at) {
			return favs[i].id < favs[j].id
		}
		return favs[i].at.Before(favs[j].at)
	})
	out := make([]string, len(favs))
	for i, f := range favs {
		out[i] = f.id
	}
	return out, nil
}

func (m *Memory) ClearFavorites(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favorites = make(map[string]time.Time)
	return nil
}

func (m *Memory) Preferences(context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return mergeDefaults(m.prefs), nil
}

func (m *Memory) SetPreference(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[key] = value
	return nil
}
