package models

// QualityLevel is one encoding rendition offered by a stream manifest.
// Index is the manifest-assigned position, stable for the life of one
// loaded stream.
type QualityLevel struct {
	Index   int    `json:"index"`
	Height  int    `json:"height"`
	Width   int    `json:"width"`
	Bitrate int    `json:"bitrate"`
	Name    string `json:"name"`
}

// QualityAuto is the sentinel quality index meaning automatic level selection.
const QualityAuto = -1
