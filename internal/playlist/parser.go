// Package playlist parses M3U/M3U8 channel playlists into structured form.
//
// Expected input:
//
//	#EXTM3U
//	#EXTINF:-1 tvg-id="channel1" tvg-name="Channel One" tvg-logo="http://logo.png" group-title="News",Channel One HD
//	http://stream.url/channel1.m3u8
//
// Individual malformed entries are dropped; only structural problems (empty
// input, missing header, zero surviving channels) fail the parse.
package playlist

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/tvdeck/tvdeck/internal/models"
)

// Structural parse failures. Anything else is handled per entry.
var (
	ErrEmptyContent  = errors.New("empty playlist content")
	ErrMissingHeader = errors.New("invalid M3U format: missing #EXTM3U header")
	ErrNoChannels    = errors.New("no valid channels found in playlist")
)

// streamProtocols is the allow-list for stream URL lines. Anything else is
// treated as garbage and skipped.
var streamProtocols = []string{"http://", "https://", "rtmp://", "rtsp://", "mms://"}

// Parse converts raw M3U text into a Playlist. The caller is expected to fill
// in Source/SourceURL/Name afterwards; Parse sets Source to SourceFile.
func Parse(content string) (*models.Playlist, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	// Normalize line endings before splitting.
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	lines := strings.Split(normalized, "\n")

	header := strings.TrimSpace(lines[0])
	if !strings.HasPrefix(header, "#EXTM3U") {
		return nil, ErrMissingHeader
	}

	epgURL := headerEPGURL(lines[0])

	var channels []models.Channel
	var pending string // most recent #EXTINF line awaiting its URL

	for _, raw := range lines[1:] {
		line := strings.TrimSpace(raw)

		// Skip empty lines and comments that are not #EXTINF.
		if line == "" || (strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "#EXTINF")) {
			continue
		}

		if strings.HasPrefix(line, "#EXTINF") {
			pending = line
			continue
		}

		if pending != "" && isStreamURL(line) {
			if ch, ok := parseChannel(pending, line); ok {
				channels = append(channels, ch)
			}
			pending = ""
		}
	}

	if len(channels) == 0 {
		return nil, ErrNoChannels
	}

	return &models.Playlist{
		Channels:   channels,
		Groups:     ExtractGroups(channels),
		TotalCount: len(channels),
		LoadedAt:   time.Now(),
		Source:     models.SourceFile,
		EPGURL:     epgURL,
	}, nil
}

// headerEPGURL pulls an EPG source URL out of the #EXTM3U header line.
// Both x-tvg-url and url-tvg spellings are accepted; x-tvg-url wins.
func headerEPGURL(header string) string {
	if v := attrValue(header, "x-tvg-url"); v != "" {
		return v
	}
	return attrValue(header, "url-tvg")
}

// parseChannel builds a channel from an #EXTINF line and its stream URL.
// The display name is everything after the last comma; a metadata line with
// no comma or an empty name yields no channel.
func parseChannel(extinf, url string) (models.Channel, bool) {
	lastComma := strings.LastIndex(extinf, ",")
	if lastComma == -1 {
		return models.Channel{}, false
	}
	name := strings.TrimSpace(extinf[lastComma+1:])
	if name == "" {
		return models.Channel{}, false
	}

	ch := models.Channel{
		ID:       ChannelID(name, url),
		Name:     name,
		URL:      url,
		Group:    attrValue(extinf, "group-title"),
		TvgID:    attrValue(extinf, "tvg-id"),
		TvgName:  attrValue(extinf, "tvg-name"),
		Language: attrValue(extinf, "language"),
		Country:  attrValue(extinf, "country"),
	}
	if logo := attrValue(extinf, "tvg-logo"); logo != "" {
		ch.TvgLogo = logo
		ch.Logo = logo
	}
	return ch, true
}

// attrValue extracts a double-quoted key="value" attribute from a line.
// Key matching is case-insensitive; the first occurrence wins.
func attrValue(line, key string) string {
	lower := strings.ToLower(line)
	marker := strings.ToLower(key) + `="`
	start := strings.Index(lower, marker)
	if start == -1 {
		return ""
	}
	rest := line[start+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end == -1 {
		return ""
	}
	return rest[:end]
}

// isStreamURL reports whether a line looks like a playable stream URI.
func isStreamURL(line string) bool {
	if line == "" || strings.HasPrefix(line, "#") {
		return false
	}
	lower := strings.ToLower(line)
	for _, proto := range streamProtocols {
		if strings.HasPrefix(lower, proto) {
			return true
		}
	}
	return false
}

// ExtractGroups partitions channels into groups keyed by their group-title,
// defaulting to the Uncategorized sentinel. Per-group channel order follows
// playlist order; groups are sorted by case-insensitive name.
func ExtractGroups(channels []models.Channel) []models.ChannelGroup {
	byName := make(map[string][]models.Channel)
	var order []string

	for _, ch := range channels {
		name := ch.Group
		if name == "" {
			name = models.GroupSentinel
		}
		if _, ok := byName[name]; !ok {
			order = append(order, name)
		}
		byName[name] = append(byName[name], ch)
	}

	groups := make([]models.ChannelGroup, 0, len(order))
	for _, name := range order {
		groups = append(groups, models.ChannelGroup{
			Name:     name,
			Channels: byName[name],
			Count:    len(byName[name]),
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := strings.ToLower(groups[i].Name), strings.ToLower(groups[j].Name)
		if a == b {
			return groups[i].Name < groups[j].Name
		}
		return a < b
	})
	return groups
}
