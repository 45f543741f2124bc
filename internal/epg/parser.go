// Package epg parses XMLTV program guides and answers now/next queries
// against a parsed snapshot.
package epg

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/tvdeck/tvdeck/internal/models"
)

// tvDoc mirrors the XMLTV <tv> document root. Only programme elements are
// consumed; channel declarations carry nothing the playlist does not.
type tvDoc struct {
	XMLName  xml.Name    `xml:"tv"`
	Programs []programme `xml:"programme"`
}

type programme struct {
	Channel  string       `xml:"channel,attr"`
	Start    string       `xml:"start,attr"`
	Stop     string       `xml:"stop,attr"`
	Title    string       `xml:"title"`
	Desc     string       `xml:"desc"`
	Category string       `xml:"category"`
	Icon     icon         `xml:"icon"`
	Rating   rating       `xml:"rating"`
	Episodes []episodeNum `xml:"episode-num"`
}

type icon struct {
	Src string `xml:"src,attr"`
}

type rating struct {
	Value string `xml:"value"`
}

type episodeNum struct {
	System string `xml:"system,attr"`
	Value  string `xml:",chardata"`
}

// Parse decodes an XMLTV document into an EPG snapshot. Programme entries
// with a missing channel key, empty title, malformed timestamps, or
// start >= stop are dropped individually; a document-level XML error fails
// the whole parse. Callers treat that failure as "guide unavailable", not as
// a fatal application error.
func Parse(content string) (*models.EPGData, error) {
	var doc tvDoc
	if err := xml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, err
	}

	programs := make([]models.Program, 0, len(doc.Programs))
	for _, p := range doc.Programs {
		start, okStart := parseXMLTVTime(p.Start)
		stop, okStop := parseXMLTVTime(p.Stop)
		title := strings.TrimSpace(p.Title)
		if !okStart || !okStop || p.Channel == "" || title == "" {
			continue
		}
		if !start.Before(stop) {
			continue
		}
		programs = append(programs, models.Program{
			Channel:     p.Channel,
			Title:       title,
			Start:       start,
			Stop:        stop,
			Description: strings.TrimSpace(p.Desc),
			Category:    strings.TrimSpace(p.Category),
			Icon:        p.Icon.Src,
			Rating:      strings.TrimSpace(p.Rating.Value),
			Episode:     onscreenEpisode(p.Episodes),
		})
	}

	return &models.EPGData{
		Programs:    programs,
		LastUpdated: time.Now(),
	}, nil
}

// onscreenEpisode picks the human-readable episode number, e.g. "S02E05".
func onscreenEpisode(nums []episodeNum) string {
	for _, n := range nums {
		if n.System == "onscreen" {
			return strings.TrimSpace(n.Value)
		}
	}
	return ""
}

// parseXMLTVTime parses the broadcast timestamp format YYYYMMDDHHmmss with an
// optional trailing signed 4-digit offset (+HHMM/-HHMM). The numeric fields
// are read as UTC wall clock and the offset is then subtracted, so
// "20231225070000 -0500" and "20231225120000 +0000" name the same instant.
func parseXMLTVTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 14 {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102150405", s[:14])
	if err != nil {
		return time.Time{}, false
	}

	rest := strings.TrimSpace(s[14:])
	if rest == "" {
		return t, true
	}
	if len(rest) != 5 || (rest[0] != '+' && rest[0] != '-') {
		return time.Time{}, false
	}
	hours, err1 := strconv.Atoi(rest[1:3])
	minutes, err2 := strconv.Atoi(rest[3:5])
	if err1 != nil || err2 != nil {
		return time.Time{}, false
	}
	offset := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	if rest[0] == '+' {
		return t.Add(-offset), true
	}
	return t.Add(offset), true
}
