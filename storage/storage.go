package storage

import (
	"context"
	"errors"

	"ewintr.nl/eduvid/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate youtube id")
)

type VideoRepository interface {
	FindByYoutubeID(ctx context.Context, id model.YoutubeVideoID) (*model.Video, error)
	FindAll(ctx context.Context) ([]*model.Video, error)
	DeleteAll(ctx context.Context) error
	InsertMany(ctx context.Context, videos []*model.Video) error
	// ReplaceAll deletes every video and inserts the given set as one unit.
	ReplaceAll(ctx context.Context, videos []*model.Video) error
	SaveConcepts(ctx context.Context, id model.YoutubeVideoID, transcript string, concepts []model.Concept) error
}

type ChannelRepository interface {
	FindByYoutubeChannelID(ctx context.Context, id model.YoutubeChannelID) (*model.Channel, error)
	Save(ctx context.Context, channel *model.Channel) error
	AddVideo(ctx context.Context, channelID model.YoutubeChannelID, videoID model.YoutubeVideoID) error
}

type ConceptCache interface {
	Get(ctx context.Context, id model.YoutubeVideoID) ([]model.Concept, bool, error)
	Set(ctx context.Context, id model.YoutubeVideoID, concepts []model.Concept) error
	Delete(ctx context.Context, id model.YoutubeVideoID) error
}

type SearchHit struct {
	YoutubeID model.YoutubeVideoID
	Title     string
	Concepts  string
	Distance  float64
}

type ConceptIndex interface {
	Save(ctx context.Context, video *model.Video) error
	// Delete removes the indexed object of the video, if any.
	Delete(ctx context.Context, video *model.Video) error
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
}
