package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"ewintr.nl/eduvid/model"
	"ewintr.nl/eduvid/storage"
	"golang.org/x/exp/slog"
	"gopkg.in/yaml.v3"
)

var ErrInvalidFixture = errors.New("invalid seed fixture")

//go:embed videos.yaml
var defaultVideos []byte

type entry struct {
	VideoID   string `yaml:"videoId"`
	Title     string `yaml:"title"`
	Thumbnail string `yaml:"thumbnail"`
	Channel   string `yaml:"channel"`
}

// Load reads a list of sample videos. Every video needs an id, a title and a
// thumbnail, and ids must be unique.
func Load(r io.Reader) ([]*model.Video, error) {
	var entries []entry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}

	seen := map[string]bool{}
	videos := make([]*model.Video, 0, len(entries))
	for i, e := range entries {
		if e.VideoID == "" || e.Title == "" || e.Thumbnail == "" {
			return nil, fmt.Errorf("%w: entry %d needs videoId, title and thumbnail", ErrInvalidFixture, i)
		}
		if seen[e.VideoID] {
			return nil, fmt.Errorf("%w: video %s is listed twice", ErrInvalidFixture, e.VideoID)
		}
		seen[e.VideoID] = true

		videos = append(videos, &model.Video{
			YoutubeID:   model.YoutubeVideoID(e.VideoID),
			Title:       e.Title,
			Thumbnail:   e.Thumbnail,
			ChannelName: e.Channel,
			Concepts:    []model.Concept{},
		})
	}

	return videos, nil
}

// LoadFile reads the fixture at path, or the built-in one when path is empty.
func LoadFile(path string) ([]*model.Video, error) {
	if path == "" {
		return Load(bytes.NewReader(defaultVideos))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open seed file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

type Seeder struct {
	videos    []*model.Video
	videoRepo storage.VideoRepository
	cache     storage.ConceptCache
	index     storage.ConceptIndex
	logger    *slog.Logger
}

// NewSeeder creates a seeder. cache and index may be nil.
func NewSeeder(videos []*model.Video, videoRepo storage.VideoRepository, cache storage.ConceptCache, index storage.ConceptIndex, logger *slog.Logger) *Seeder {
	return &Seeder{
		videos:    videos,
		videoRepo: videoRepo,
		cache:     cache,
		index:     index,
		logger:    logger,
	}
}

// Seed replaces every stored video with the fixture set. Concepts extracted
// earlier are lost, also from the cache and the search index.
func (s *Seeder) Seed(ctx context.Context) error {
	previous, err := s.videoRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("could not read current videos: %w", err)
	}

	videos := make([]*model.Video, 0, len(s.videos))
	for _, v := range s.videos {
		c := *v
		c.Concepts = []model.Concept{}
		videos = append(videos, &c)
	}

	if err := s.videoRepo.ReplaceAll(ctx, videos); err != nil {
		return fmt.Errorf("could not seed videos: %w", err)
	}
	s.logger.Info("seeded videos", slog.Int("count", len(videos)), slog.Int("replaced", len(previous)))

	s.forget(ctx, previous, videos)

	return nil
}

// forget clears what was derived from the replaced videos. Failures are only
// logged, the new set is stored already.
func (s *Seeder) forget(ctx context.Context, previous, seeded []*model.Video) {
	if s.index != nil {
		for _, v := range previous {
			if err := s.index.Delete(ctx, v); err != nil {
				s.logger.Warn("could not remove video from index", slog.String("video", string(v.YoutubeID)), slog.String("error", err.Error()))
			}
		}
	}

	if s.cache == nil {
		return
	}
	cleared := map[model.YoutubeVideoID]bool{}
	for _, v := range append(previous, seeded...) {
		if cleared[v.YoutubeID] {
			continue
		}
		cleared[v.YoutubeID] = true
		if err := s.cache.Delete(ctx, v.YoutubeID); err != nil {
			s.logger.Warn("could not clear cached concepts", slog.String("video", string(v.YoutubeID)), slog.String("error", err.Error()))
		}
	}
}
