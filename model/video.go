package model

import (
	"time"

	"github.com/google/uuid"
)

type YoutubeVideoID string

type YoutubeChannelID string

type Video struct {
	ID          uuid.UUID
	YoutubeID   YoutubeVideoID
	Title       string
	Thumbnail   string
	ChannelName string
	Transcript  string
	Concepts    []Concept
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasConcepts reports whether concepts were extracted for this video before.
func (v *Video) HasConcepts() bool {
	return len(v.Concepts) > 0
}

// Concept is a single educational takeaway. It has no identity of its own and
// only exists as part of a Video.
type Concept struct {
	Title       string `json:"conceptTitle" yaml:"conceptTitle"`
	Reference   string `json:"reference" yaml:"reference"`
	Description string `json:"description" yaml:"description"`
}

func (c Concept) Complete() bool {
	return c.Title != "" && c.Reference != "" && c.Description != ""
}
