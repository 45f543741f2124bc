package epg

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tvdeck/tvdeck/internal/models"
)

// ChannelSchedule is the answer to a "what's on" query for one channel.
type ChannelSchedule struct {
	Current  *models.Program  `json:"current"`
	Upcoming []models.Program `json:"upcoming"`
}

// ChannelPrograms returns the program airing on the given channel at now,
// plus up to limit upcoming programs in start order. The current program uses
// the half-open interval [start, stop): a program ending exactly at now is
// not current. A limit of 0 returns no upcoming entries. The snapshot is
// never mutated, so repeated calls as now advances are safe.
func ChannelPrograms(data *models.EPGData, channelID string, now time.Time, limit int) ChannelSchedule {
	sched := ChannelSchedule{Upcoming: []models.Program{}}
	if data == nil || channelID == "" {
		return sched
	}

	var programs []models.Program
	for _, p := range data.Programs {
		if p.Channel == channelID {
			programs = append(programs, p)
		}
	}
	sort.Slice(programs, func(i, j int) bool { return programs[i].Start.Before(programs[j].Start) })

	for i := range programs {
		p := programs[i]
		if !p.Start.After(now) && p.Stop.After(now) {
			sched.Current = &programs[i]
			break
		}
	}

	for _, p := range programs {
		if len(sched.Upcoming) >= limit {
			break
		}
		if p.Start.After(now) {
			sched.Upcoming = append(sched.Upcoming, p)
		}
	}
	return sched
}

// Progress reports how far through a program now is, as an integer 0-100.
func Progress(start, stop, now time.Time) int {
	total := stop.Sub(start)
	elapsed := now.Sub(start)
	if elapsed < 0 {
		return 0
	}
	if elapsed > total {
		return 100
	}
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(elapsed) / float64(total) * 100))
}

// FormatDuration renders a program length like "1h 30m" or "45m".
func FormatDuration(start, stop time.Time) string {
	minutes := int(stop.Sub(start).Minutes())
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours := minutes / 60
	rem := minutes % 60
	if rem > 0 {
		return fmt.Sprintf("%dh %dm", hours, rem)
	}
	return fmt.Sprintf("%dh", hours)
}
