package playlist

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvdeck/tvdeck/internal/models"
)

const samplePlaylist = `#EXTM3U x-tvg-url="http://epg.example.com/guide.xml"
#EXTINF:-1 tvg-id="bbc1" tvg-name="BBC One" tvg-logo="http://logos.example.com/bbc1.png" group-title="News",BBC One HD
http://streams.example.com/bbc1.m3u8
#EXTINF:-1 tvg-id="bbc2" group-title="News",BBC Two
http://streams.example.com/bbc2.m3u8
#EXTINF:-1 tvg-id="music1" group-title="Music",MTV
http://streams.example.com/mtv.m3u8
#EXTINF:-1,Local Channel
http://streams.example.com/local.m3u8
`

func TestParsePlaylist(t *testing.T) {
	pl, err := Parse(samplePlaylist)
	require.NoError(t, err)

	assert.Equal(t, 4, pl.TotalCount)
	assert.Len(t, pl.Channels, 4)
	assert.Equal(t, "http://epg.example.com/guide.xml", pl.EPGURL)

	bbc := pl.Channels[0]
	assert.Equal(t, "BBC One HD", bbc.Name)
	assert.Equal(t, "http://streams.example.com/bbc1.m3u8", bbc.URL)
	assert.Equal(t, "bbc1", bbc.TvgID)
	assert.Equal(t, "BBC One", bbc.TvgName)
	assert.Equal(t, "News", bbc.Group)
	assert.Equal(t, "http://logos.example.com/bbc1.png", bbc.TvgLogo)
	assert.Equal(t, "http://logos.example.com/bbc1.png", bbc.Logo)

	// No group-title lands in the sentinel group.
	assert.Equal(t, "", pl.Channels[3].Group)
}

func TestParseRejectsStructuralProblems(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = Parse("   \n\t\n")
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = Parse("#EXTINF:-1,No Header\nhttp://streams.example.com/x.m3u8\n")
	assert.ErrorIs(t, err, ErrMissingHeader)

	_, err = Parse("#EXTM3U\n")
	assert.ErrorIs(t, err, ErrNoChannels)
}

func TestParseDropsMalformedEntries(t *testing.T) {
	content := `#EXTM3U
#EXTINF:-1 group-title="News",BBC One
http://streams.example.com/bbc1.m3u8
#EXTINF:-1 group-title="News"
http://streams.example.com/nocomma.m3u8
#EXTINF:-1,Valid After Bad
http://streams.example.com/ok.m3u8
`
	pl, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, 2, pl.TotalCount)
	assert.Equal(t, "BBC One", pl.Channels[0].Name)
	assert.Equal(t, "Valid After Bad", pl.Channels[1].Name)
}

func TestParseSkipsNonStreamURLs(t *testing.T) {
	content := `#EXTM3U
#EXTINF:-1,File Channel
file:///etc/passwd
#EXTINF:-1,Upper Proto
HTTP://streams.example.com/upper.m3u8
#EXTINF:-1,RTSP Cam
rtsp://cam.example.com/live
`
	pl, err := Parse(content)
	require.NoError(t, err)
	require.Equal(t, 2, pl.TotalCount)
	assert.Equal(t, "Upper Proto", pl.Channels[0].Name)
	assert.Equal(t, "RTSP Cam", pl.Channels[1].Name)
}

func TestParseIgnoresInterveningComments(t *testing.T) {
	// Comment and junk lines between the #EXTINF and its URL must not
	// detach the metadata from the stream.
	content := "#EXTM3U\n#EXTINF:-1,Channel\n#EXTVLCOPT:http-referrer=x\nhttp://streams.example.com/ch.m3u8\n"
	pl, err := Parse(content)
	require.NoError(t, err)
	require.Equal(t, 1, pl.TotalCount)
	assert.Equal(t, "Channel", pl.Channels[0].Name)
}

func TestParseHandlesCRLF(t *testing.T) {
	content := strings.ReplaceAll(samplePlaylist, "\n", "\r\n")
	pl, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, 4, pl.TotalCount)
}

func TestParseNameAfterLastComma(t *testing.T) {
	content := "#EXTM3U\n" +
		`#EXTINF:-1 tvg-name="x,y",News, Weather & Sport` + "\n" +
		"http://streams.example.com/n.m3u8\n"
	pl, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, "Weather & Sport", pl.Channels[0].Name)
}

func TestHeaderEPGURLSpellings(t *testing.T) {
	pl, err := Parse("#EXTM3U url-tvg=\"http://epg.example.com/alt.xml\"\n#EXTINF:-1,A\nhttp://s.example.com/a.m3u8\n")
	require.NoError(t, err)
	assert.Equal(t, "http://epg.example.com/alt.xml", pl.EPGURL)

	// x-tvg-url wins when both are present.
	pl, err = Parse("#EXTM3U x-tvg-url=\"http://epg.example.com/x.xml\" url-tvg=\"http://epg.example.com/alt.xml\"\n#EXTINF:-1,A\nhttp://s.example.com/a.m3u8\n")
	require.NoError(t, err)
	assert.Equal(t, "http://epg.example.com/x.xml", pl.EPGURL)
}

func TestExtractGroups(t *testing.T) {
	pl, err := Parse(samplePlaylist)
	require.NoError(t, err)

	require.Len(t, pl.Groups, 3)
	assert.Equal(t, "Music", pl.Groups[0].Name)
	assert.Equal(t, "News", pl.Groups[1].Name)
	assert.Equal(t, models.GroupSentinel, pl.Groups[2].Name)

	// Per-group counts add up to the playlist total.
	sum := 0
	for _, g := range pl.Groups {
		assert.Equal(t, len(g.Channels), g.Count)
		sum += g.Count
	}
	assert.Equal(t, pl.TotalCount, sum)
}

func TestChannelID(t *testing.T) {
	id := ChannelID("BBC One HD", "http://streams.example.com/bbc1.m3u8")
	assert.True(t, strings.HasPrefix(id, "bbc-one-hd-"), id)

	// Deterministic.
	assert.Equal(t, id, ChannelID("BBC One HD", "http://streams.example.com/bbc1.m3u8"))

	// Same name, different URL gets a different suffix.
	other := ChannelID("BBC One HD", "http://streams.example.com/bbc1-backup.m3u8")
	assert.NotEqual(t, id, other)

	// Punctuation collapses to dashes.
	assert.True(t, strings.HasPrefix(ChannelID("News 24/7 (HD)", "u"), "news-24-7--hd-"))
}
