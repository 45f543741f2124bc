package models

import "time"

// Playlist source kinds.
const (
	SourceURL  = "url"
	SourceFile = "file"
)

// Playlist is the result of one successful M3U parse. A Playlist is never
// constructed with zero channels; parsing with no valid entries is an error.
type Playlist struct {
	Name       string         `json:"name,omitempty"`
	Channels   []Channel      `json:"channels"`
	Groups     []ChannelGroup `json:"groups"`
	TotalCount int            `json:"totalCount"`
	LoadedAt   time.Time      `json:"loadedAt"`
	Source     string         `json:"source"` // SourceURL or SourceFile
	SourceURL  string         `json:"sourceUrl,omitempty"`
	EPGURL     string         `json:"epgUrl,omitempty"`
}

// StoredPlaylist is a playlist registry row: the persisted record of a
// previously loaded playlist, without its channel payload.
type StoredPlaylist struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Source       string     `json:"source"`
	SourceURL    string     `json:"sourceUrl,omitempty"`
	EPGURL       string     `json:"epgUrl,omitempty"`
	ChannelCount int        `json:"channelCount"`
	Active       bool       `json:"active"`
	AddedAt      time.Time  `json:"addedAt"`
	LoadedAt     *time.Time `json:"loadedAt,omitempty"`
}
