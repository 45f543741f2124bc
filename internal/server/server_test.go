package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvdeck/tvdeck/internal/config"
	"github.com/tvdeck/tvdeck/internal/service"
	"github.com/tvdeck/tvdeck/internal/session"
	"github.com/tvdeck/tvdeck/internal/store"
)

const samplePlaylist = `#EXTM3U x-tvg-url="http://epg.example.com/guide.xml"
#EXTINF:-1 tvg-id="bbc1" group-title="News",BBC One
http://streams.example.com/bbc1.m3u8
#EXTINF:-1 tvg-id="bbc2" group-title="News",BBC Two
http://streams.example.com/bbc2.m3u8
#EXTINF:-1 group-title="Music",MTV
http://streams.example.com/mtv.m3u8
`

const sampleGuide = `<tv>
  <programme channel="bbc1" start="20200101000000 +0000" stop="20500101000000 +0000">
    <title>Always On</title>
  </programme>
</tv>`

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// upstream serves the provider side: an M3U playlist and an XMLTV guide.
func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/main.m3u8", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, samplePlaylist)
	})
	mux.HandleFunc("/guide.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, sampleGuide)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		ServerPort: "0",
		UserAgent:  "TVDeck/1.0",
		Timeout:    5 * time.Second,
	}
	log := quietLogger()
	guide := service.NewGuide(nil, cfg.UserAgent, cfg.Timeout, log)
	sessions := session.New(session.NewSinkSurface(), session.Options{Logger: log})
	t.Cleanup(sessions.Destroy)
	return New(store.NewMemory(), cfg, guide, sessions, nil, log)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func loadPlaylist(t *testing.T, srv *Server, up *httptest.Server) int64 {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/playlists", map[string]string{
		"url":  up.URL + "/main.m3u8",
		"name": "main",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		PlaylistID int64 `json:"playlist_id"`
	}
	decode(t, rec, &resp)
	return resp.PlaylistID
}

func TestHealth(t *testing.T) {
	rec := doJSON(t, newTestServer(t), http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAddPlaylistValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/playlists", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/playlists", map[string]string{"url": "ftp://bad"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaylistLifecycle(t *testing.T) {
	srv := newTestServer(t)
	up := upstream(t)
	loadPlaylist(t, srv, up)

	rec := doJSON(t, srv, http.MethodGet, "/api/playlists", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var playlists []map[string]any
	decode(t, rec, &playlists)
	require.Len(t, playlists, 1)
	assert.Equal(t, "main", playlists[0]["name"])
	assert.Equal(t, true, playlists[0]["active"])

	rec = doJSON(t, srv, http.MethodGet, "/api/playlists/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/playlists/1/refresh", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodDelete, "/api/playlists/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/playlists/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChannelsAndGroups(t *testing.T) {
	srv := newTestServer(t)
	up := upstream(t)
	loadPlaylist(t, srv, up)

	// The active playlist is implied.
	rec := doJSON(t, srv, http.MethodGet, "/api/channels?group=News", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Channels []map[string]any `json:"channels"`
		Total    int              `json:"total"`
	}
	decode(t, rec, &page)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Channels, 2)
	assert.Equal(t, "BBC One", page.Channels[0]["name"])

	rec = doJSON(t, srv, http.MethodGet, "/api/channels?search=mtv", nil)
	decode(t, rec, &page)
	assert.Equal(t, 1, page.Total)

	rec = doJSON(t, srv, http.MethodGet, "/api/groups", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var groups []map[string]any
	decode(t, rec, &groups)
	assert.Len(t, groups, 2)
}

func TestFavorites(t *testing.T) {
	srv := newTestServer(t)
	up := upstream(t)
	loadPlaylist(t, srv, up)

	// Find a channel id first.
	rec := doJSON(t, srv, http.MethodGet, "/api/channels?search=mtv", nil)
	var page struct {
		Channels []struct {
			ID string `json:"id"`
		} `json:"channels"`
	}
	decode(t, rec, &page)
	require.Len(t, page.Channels, 1)
	channelID := page.Channels[0].ID

	rec = doJSON(t, srv, http.MethodPost, "/api/channels/"+channelID+"/favorite", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var toggle struct {
		Favorite bool `json:"favorite"`
	}
	decode(t, rec, &toggle)
	assert.True(t, toggle.Favorite)

	rec = doJSON(t, srv, http.MethodGet, "/api/favorites", nil)
	var favs struct {
		Favorites []string `json:"favorites"`
	}
	decode(t, rec, &favs)
	assert.Equal(t, []string{channelID}, favs.Favorites)

	rec = doJSON(t, srv, http.MethodDelete, "/api/favorites", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPreferences(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/preferences", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var prefs map[string]string
	decode(t, rec, &prefs)
	assert.Equal(t, "grid", prefs["view_mode"])

	rec = doJSON(t, srv, http.MethodPatch, "/api/preferences", map[string]string{"view_mode": "list"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &prefs)
	assert.Equal(t, "list", prefs["view_mode"])

	rec = doJSON(t, srv, http.MethodPatch, "/api/preferences", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGuideEndpoints(t *testing.T) {
	srv := newTestServer(t)
	up := upstream(t)

	// No guide URL known yet.
	rec := doJSON(t, srv, http.MethodPost, "/api/epg/refresh", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/epg/refresh", map[string]string{"url": up.URL + "/guide.xml"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var refreshed struct {
		Programs int `json:"programs"`
	}
	decode(t, rec, &refreshed)
	assert.Equal(t, 1, refreshed.Programs)

	rec = doJSON(t, srv, http.MethodGet, "/api/epg/now?channel=bbc1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sched struct {
		Current map[string]any `json:"current"`
	}
	decode(t, rec, &sched)
	require.NotNil(t, sched.Current)
	assert.Equal(t, "Always On", sched.Current["title"])

	rec = doJSON(t, srv, http.MethodGet, "/api/epg/now", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGuideNowWithoutData(t *testing.T) {
	rec := doJSON(t, newTestServer(t), http.MethodGet, "/api/epg/now?channel=bbc1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionEndpoints(t *testing.T) {
	srv := newTestServer(t)

	hls := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:2\n#EXT-X-MEDIA-SEQUENCE:0\n#EXTINF:2.000,\nseg0.ts\n#EXT-X-ENDLIST\n")
	}))
	t.Cleanup(hls.Close)

	rec := doJSON(t, srv, http.MethodPost, "/api/session", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/session", map[string]string{"url": hls.URL + "/live.m3u8"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var state struct {
		Phase string `json:"phase"`
		URL   string `json:"url"`
	}
	decode(t, rec, &state)
	assert.Equal(t, hls.URL+"/live.m3u8", state.URL)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		rec = doJSON(t, srv, http.MethodGet, "/api/session", nil)
		decode(t, rec, &state)
		if state.Phase == "ready" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, "ready", state.Phase)

	rec = doJSON(t, srv, http.MethodPost, "/api/session/play", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/session", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/session", nil)
	decode(t, rec, &state)
	assert.Equal(t, "idle", state.Phase)
}
