package fetcher

import (
	"strings"

	"ewintr.nl/eduvid/model"
	"miniflux.app/client"
)

const (
	youtubeFeedPrefix  = "https://www.youtube.com/feeds/videos.xml?channel_id="
	youtubeWatchPrefix = "https://www.youtube.com/watch?v="
)

type MinifluxInfo struct {
	Endpoint string
	ApiKey   string
}

type Miniflux struct {
	client *client.Client
}

func NewMiniflux(mflInfo MinifluxInfo) *Miniflux {
	return &Miniflux{
		client: client.New(mflInfo.Endpoint, mflInfo.ApiKey),
	}
}

func (m *Miniflux) Unread() ([]FeedEntry, error) {
	result, err := m.client.Entries(&client.Filter{Status: "unread"})
	if err != nil {
		return nil, err
	}

	entries := make([]FeedEntry, 0, len(result.Entries))
	for _, entry := range result.Entries {
		if !strings.HasPrefix(entry.URL, youtubeWatchPrefix) || entry.Feed == nil {
			continue
		}
		entries = append(entries, FeedEntry{
			EntryID:          entry.ID,
			FeedID:           entry.FeedID,
			YoutubeChannelID: model.YoutubeChannelID(strings.TrimPrefix(entry.Feed.FeedURL, youtubeFeedPrefix)),
			ChannelTitle:     entry.Feed.Title,
			YoutubeID:        model.YoutubeVideoID(strings.TrimPrefix(entry.URL, youtubeWatchPrefix)),
		})
	}

	return entries, nil
}

func (m *Miniflux) MarkRead(entryID int64) error {
	if err := m.client.UpdateEntries([]int64{entryID}, "read"); err != nil {
		return err
	}

	return nil
}
