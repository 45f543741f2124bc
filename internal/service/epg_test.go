package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGuide = `<tv>
  <programme channel="bbc1" start="20231225120000 +0000" stop="20231225130000 +0000">
    <title>Noon News</title>
  </programme>
  <programme channel="bbc1" start="20231225130000 +0000" stop="20231225140000 +0000">
    <title>Afternoon Film</title>
  </programme>
</tv>`

func TestGuideRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, sampleGuide)
	}))
	t.Cleanup(srv.Close)

	g := NewGuide(nil, "TVDeck/1.0", 5*time.Second, quietLogger())
	assert.False(t, g.Loaded())

	require.NoError(t, g.Refresh(context.Background(), srv.URL+"/guide.xml"))
	require.True(t, g.Loaded())
	assert.Len(t, g.Data().Programs, 2)
	assert.Equal(t, srv.URL+"/guide.xml", g.Data().SourceURL)
}

func TestGuideRefreshKeepsSnapshotOnParseError(t *testing.T) {
	broken := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if broken {
			_, _ = io.WriteString(w, "<tv><programme>")
			return
		}
		_, _ = io.WriteString(w, sampleGuide)
	}))
	t.Cleanup(srv.Close)

	g := NewGuide(nil, "", 5*time.Second, quietLogger())
	require.NoError(t, g.Refresh(context.Background(), srv.URL))

	broken = true
	err := g.Refresh(context.Background(), srv.URL)
	assert.Error(t, err)

	// The previous snapshot is still served.
	require.True(t, g.Loaded())
	assert.Len(t, g.Data().Programs, 2)
}

func TestGuideSchedule(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, sampleGuide)
	}))
	t.Cleanup(srv.Close)

	g := NewGuide(nil, "", 5*time.Second, quietLogger())

	_, err := g.Schedule("bbc1", time.Now(), 5)
	assert.ErrorIs(t, err, ErrNoGuide)

	require.NoError(t, g.Refresh(context.Background(), srv.URL))

	now := time.Date(2023, 12, 25, 12, 30, 0, 0, time.UTC)
	sched, err := g.Schedule("bbc1", now, 5)
	require.NoError(t, err)
	require.NotNil(t, sched.Current)
	assert.Equal(t, "Noon News", sched.Current.Title)
	require.Len(t, sched.Upcoming, 1)
	assert.Equal(t, "Afternoon Film", sched.Upcoming[0].Title)
}
