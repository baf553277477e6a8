package fetcher

import (
	"context"

	"ewintr.nl/eduvid/model"
)

type Metadata struct {
	Title        string
	Description  string
	Thumbnail    string
	ChannelID    model.YoutubeChannelID
	ChannelTitle string
	Duration     string
	PublishedAt  string
}

// MetadataFetcher returns metadata for the ids it knows. Unknown ids are left
// out of the result.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, ids []model.YoutubeVideoID) (map[model.YoutubeVideoID]Metadata, error)
}
