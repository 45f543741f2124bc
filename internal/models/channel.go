package models

// Channel represents a single playable stream entry parsed from an M3U playlist.
// ID is derived deterministically from (name, url) so it stays stable across
// reparses of the same playlist; favorites reference it.
type Channel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Logo     string `json:"logo,omitempty"`
	Group    string `json:"group,omitempty"`
	TvgID    string `json:"tvgId,omitempty"`
	TvgName  string `json:"tvgName,omitempty"`
	TvgLogo  string `json:"tvgLogo,omitempty"`
	Language string `json:"language,omitempty"`
	Country  string `json:"country,omitempty"`
	Favorite bool   `json:"favorite,omitempty"` // populated by read queries, never by the parser
}

// ChannelGroup is a named bucket of channels sharing a group-title value.
// Channels keep their playlist order; groups are sorted by case-insensitive name.
type ChannelGroup struct {
	Name     string    `json:"name"`
	Channels []Channel `json:"channels,omitempty"`
	Count    int       `json:"count"`
}

// GroupSentinel is the group assigned to channels without a group-title.
const GroupSentinel = "Uncategorized"
