package fetcher

import (
	"context"
	"strings"

	"ewintr.nl/eduvid/model"
	"google.golang.org/api/youtube/v3"
)

type Youtube struct {
	Client *youtube.Service
}

func NewYoutube(client *youtube.Service) *Youtube {
	return &Youtube{Client: client}
}

func (y *Youtube) FetchMetadata(ctx context.Context, ytIDs []model.YoutubeVideoID) (map[model.YoutubeVideoID]Metadata, error) {
	if len(ytIDs) == 0 {
		return map[model.YoutubeVideoID]Metadata{}, nil
	}
	strIDs := make([]string, len(ytIDs))
	for i, id := range ytIDs {
		strIDs[i] = string(id)
	}
	call := y.Client.Videos.
		List([]string{"snippet", "contentDetails"}).
		Id(strings.Join(strIDs, ",")).
		Context(ctx)

	response, err := call.Do()
	if err != nil {
		return map[model.YoutubeVideoID]Metadata{}, err
	}

	mds := make(map[model.YoutubeVideoID]Metadata, len(response.Items))
	for _, item := range response.Items {
		if item.Snippet == nil {
			continue
		}
		md := Metadata{
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelID:    model.YoutubeChannelID(item.Snippet.ChannelId),
			ChannelTitle: item.Snippet.ChannelTitle,
			PublishedAt:  item.Snippet.PublishedAt,
		}
		if th := item.Snippet.Thumbnails; th != nil && th.High != nil {
			md.Thumbnail = th.High.Url
		}
		if item.ContentDetails != nil {
			md.Duration = item.ContentDetails.Duration
		}

		mds[model.YoutubeVideoID(item.Id)] = md
	}

	return mds, nil
}
