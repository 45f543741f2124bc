package epg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvdeck/tvdeck/internal/models"
)

func guideFixture() *models.EPGData {
	base := time.Date(2023, 12, 25, 12, 0, 0, 0, time.UTC)
	hour := time.Hour
	return &models.EPGData{
		Programs: []models.Program{
			// Deliberately out of order.
			{Channel: "bbc1", Title: "Late Show", Start: base.Add(2 * hour), Stop: base.Add(3 * hour)},
			{Channel: "bbc1", Title: "Noon News", Start: base, Stop: base.Add(hour)},
			{Channel: "bbc1", Title: "Afternoon Film", Start: base.Add(hour), Stop: base.Add(2 * hour)},
			{Channel: "bbc2", Title: "Other Channel", Start: base, Stop: base.Add(hour)},
		},
		LastUpdated: base,
	}
}

func TestChannelPrograms(t *testing.T) {
	data := guideFixture()
	now := time.Date(2023, 12, 25, 12, 30, 0, 0, time.UTC)

	sched := ChannelPrograms(data, "bbc1", now, 5)
	require.NotNil(t, sched.Current)
	assert.Equal(t, "Noon News", sched.Current.Title)
	require.Len(t, sched.Upcoming, 2)
	assert.Equal(t, "Afternoon Film", sched.Upcoming[0].Title)
	assert.Equal(t, "Late Show", sched.Upcoming[1].Title)
}

func TestChannelProgramsBoundaries(t *testing.T) {
	data := guideFixture()

	// Exactly at start the program is current.
	atStart := ChannelPrograms(data, "bbc1", time.Date(2023, 12, 25, 12, 0, 0, 0, time.UTC), 1)
	require.NotNil(t, atStart.Current)
	assert.Equal(t, "Noon News", atStart.Current.Title)

	// Exactly at stop it is not; the next one is.
	atStop := ChannelPrograms(data, "bbc1", time.Date(2023, 12, 25, 13, 0, 0, 0, time.UTC), 1)
	require.NotNil(t, atStop.Current)
	assert.Equal(t, "Afternoon Film", atStop.Current.Title)
}

func TestChannelProgramsLimits(t *testing.T) {
	data := guideFixture()
	now := time.Date(2023, 12, 25, 11, 0, 0, 0, time.UTC)

	sched := ChannelPrograms(data, "bbc1", now, 0)
	assert.Nil(t, sched.Current)
	assert.Empty(t, sched.Upcoming)

	sched = ChannelPrograms(data, "bbc1", now, 2)
	require.Len(t, sched.Upcoming, 2)
	assert.Equal(t, "Noon News", sched.Upcoming[0].Title)

	sched = ChannelPrograms(data, "unknown", now, 5)
	assert.Nil(t, sched.Current)
	assert.Empty(t, sched.Upcoming)

	sched = ChannelPrograms(nil, "bbc1", now, 5)
	assert.Nil(t, sched.Current)
	assert.Empty(t, sched.Upcoming)
}

func TestProgress(t *testing.T) {
	start := time.Date(2023, 12, 25, 12, 0, 0, 0, time.UTC)
	stop := start.Add(time.Hour)

	assert.Equal(t, 0, Progress(start, stop, start))
	assert.Equal(t, 50, Progress(start, stop, start.Add(30*time.Minute)))
	assert.Equal(t, 100, Progress(start, stop, stop))
	assert.Equal(t, 0, Progress(start, stop, start.Add(-time.Minute)))
	assert.Equal(t, 100, Progress(start, stop, stop.Add(time.Minute)))
}

func TestFormatDuration(t *testing.T) {
	start := time.Date(2023, 12, 25, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "45m", FormatDuration(start, start.Add(45*time.Minute)))
	assert.Equal(t, "1h 30m", FormatDuration(start, start.Add(90*time.Minute)))
	assert.Equal(t, "2h", FormatDuration(start, start.Add(2*time.Hour)))
}
