package models

import "time"

// Program is one scheduled broadcast from an XMLTV guide. Channel matches a
// playlist channel's TvgID. Start and Stop are UTC instants with Start < Stop.
type Program struct {
	Channel     string    `json:"channel"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	Stop        time.Time `json:"stop"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Rating      string    `json:"rating,omitempty"`
	Episode     string    `json:"episode,omitempty"`
}

// EPGData is one parsed guide snapshot. It is replaced wholesale on reload,
// never mutated in place.
type EPGData struct {
	Programs    []Program `json:"programs"`
	LastUpdated time.Time `json:"lastUpdated"`
	SourceURL   string    `json:"sourceUrl,omitempty"`
}
