package fetcher

import "ewintr.nl/eduvid/model"

type FeedEntry struct {
	EntryID          int64
	FeedID           int64
	YoutubeChannelID model.YoutubeChannelID
	ChannelTitle     string
	YoutubeID        model.YoutubeVideoID
}

type FeedReader interface {
	Unread() ([]FeedEntry, error)
	MarkRead(entryID int64) error
}
