package service

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tvdeck/tvdeck/internal/fetcher"
	"github.com/tvdeck/tvdeck/internal/models"
	"github.com/tvdeck/tvdeck/internal/playlist"
	"github.com/tvdeck/tvdeck/internal/store"
)

// LoadPlaylistFromURL fetches an M3U URL, parses it, and stores the playlist
// with its channels. The stored playlist becomes the active one. name is
// optional; if empty it is derived from the URL.
func LoadPlaylistFromURL(ctx context.Context, s store.Store, rawURL, name, userAgent string, timeout time.Duration, log logrus.FieldLogger) (int64, *models.Playlist, error) {
	if rawURL == "" {
		return 0, nil, fmt.Errorf("playlist URL is required")
	}
	if name == "" {
		name = nameFromURL(rawURL)
	}

	content, err := fetcher.FetchText(ctx, rawURL, userAgent, timeout)
	if err != nil {
		return 0, nil, fmt.Errorf("fetch: %w", err)
	}

	pl, err := playlist.Parse(content)
	if err != nil {
		return 0, nil, fmt.Errorf("parse: %w", err)
	}
	pl.Name = name
	pl.Source = models.SourceURL
	pl.SourceURL = rawURL

	id, err := s.SavePlaylist(ctx, pl)
	if err != nil {
		return 0, nil, fmt.Errorf("SavePlaylist: %w", err)
	}

	log.WithFields(logrus.Fields{
		"playlist": name,
		"channels": pl.TotalCount,
		"groups":   len(pl.Groups),
	}).Info("playlist loaded")
	return id, pl, nil
}

// LoadPlaylistFromFile parses uploaded M3U content and stores it. filename is
// used to derive the playlist name when name is empty.
func LoadPlaylistFromFile(ctx context.Context, s store.Store, content, name, filename string, log logrus.FieldLogger) (int64, *models.Playlist, error) {
	if name == "" {
		name = strings.TrimSuffix(filename, path.Ext(filename))
	}
	if name == "" {
		name = "playlist"
	}

	pl, err := playlist.Parse(content)
	if err != nil {
		return 0, nil, fmt.Errorf("parse: %w", err)
	}
	pl.Name = name
	pl.Source = models.SourceFile

	id, err := s.SavePlaylist(ctx, pl)
	if err != nil {
		return 0, nil, fmt.Errorf("SavePlaylist: %w", err)
	}

	log.WithFields(logrus.Fields{
		"playlist": name,
		"channels": pl.TotalCount,
		"groups":   len(pl.Groups),
	}).Info("playlist loaded")
	return id, pl, nil
}

// RefreshPlaylist re-fetches a stored URL playlist by id. File playlists have
// no upstream to refresh.
func RefreshPlaylist(ctx context.Context, s store.Store, id int64, userAgent string, timeout time.Duration, log logrus.FieldLogger) (*models.Playlist, error) {
	meta, err := s.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	if meta.Source != models.SourceURL || meta.SourceURL == "" {
		return nil, fmt.Errorf("playlist %q was loaded from a file and cannot be refreshed", meta.Name)
	}
	_, pl, err := LoadPlaylistFromURL(ctx, s, meta.SourceURL, meta.Name, userAgent, timeout, log)
	return pl, err
}

// nameFromURL derives a human-readable playlist name from the URL path,
// falling back to the host.
func nameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "playlist"
	}
	base := path.Base(u.Path)
	if base != "" && base != "/" && base != "." {
		if name := strings.TrimSuffix(base, path.Ext(base)); name != "" {
			return name
		}
	}
	if u.Host != "" {
		return u.Host
	}
	return "playlist"
}
