package model

import (
	"time"

	"github.com/google/uuid"
)

// Channel holds a weak back-reference list of its videos. Removing a video
// does not update the channel.
type Channel struct {
	ID               uuid.UUID
	Name             string
	YoutubeChannelID YoutubeChannelID
	VideoIDs         []YoutubeVideoID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (c *Channel) HasVideo(id YoutubeVideoID) bool {
	for _, v := range c.VideoIDs {
		if v == id {
			return true
		}
	}
	return false
}
