package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ewintr.nl/eduvid/model"
	"github.com/google/uuid"
)

// Memory keeps videos and channels in process. Used for local runs without a
// database and in tests.
type Memory struct {
	mu       sync.RWMutex
	videos   []*model.Video
	channels map[model.YoutubeChannelID]*model.Channel
}

func NewMemory() *Memory {
	return &Memory{
		videos:   []*model.Video{},
		channels: map[model.YoutubeChannelID]*model.Channel{},
	}
}

func (m *Memory) FindByYoutubeID(_ context.Context, id model.YoutubeVideoID) (*model.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, v := range m.videos {
		if v.YoutubeID == id {
			return copyVideo(v), nil
		}
	}

	return nil, ErrNotFound
}

func (m *Memory) FindAll(_ context.Context) ([]*model.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	videos := make([]*model.Video, 0, len(m.videos))
	for _, v := range m.videos {
		videos = append(videos, copyVideo(v))
	}

	return videos, nil
}

func (m *Memory) DeleteAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.videos = []*model.Video{}
	return nil
}

func (m *Memory) InsertMany(_ context.Context, videos []*model.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged, err := m.insert(m.videos, videos)
	if err != nil {
		return err
	}
	m.videos = merged

	return nil
}

func (m *Memory) ReplaceAll(_ context.Context, videos []*model.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged, err := m.insert([]*model.Video{}, videos)
	if err != nil {
		return err
	}
	m.videos = merged

	return nil
}

func (m *Memory) insert(existing, videos []*model.Video) ([]*model.Video, error) {
	seen := make(map[model.YoutubeVideoID]bool, len(existing)+len(videos))
	for _, v := range existing {
		seen[v.YoutubeID] = true
	}

	now := time.Now().UTC()
	result := append([]*model.Video{}, existing...)
	for _, v := range videos {
		if seen[v.YoutubeID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, v.YoutubeID)
		}
		seen[v.YoutubeID] = true
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		if v.CreatedAt.IsZero() {
			v.CreatedAt = now
		}
		v.UpdatedAt = now
		result = append(result, copyVideo(v))
	}

	return result, nil
}

func (m *Memory) SaveConcepts(_ context.Context, id model.YoutubeVideoID, transcript string, concepts []model.Concept) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, v := range m.videos {
		if v.YoutubeID == id {
			v.Transcript = transcript
			v.Concepts = append([]model.Concept{}, concepts...)
			v.UpdatedAt = time.Now().UTC()
			return nil
		}
	}

	return ErrNotFound
}

func (m *Memory) FindByYoutubeChannelID(_ context.Context, id model.YoutubeChannelID) (*model.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.channels[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	cp.VideoIDs = append([]model.YoutubeVideoID{}, c.VideoIDs...)

	return &cp, nil
}

func (m *Memory) Save(_ context.Context, channel *model.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if channel.ID == uuid.Nil {
		channel.ID = uuid.New()
	}
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = now
	}
	channel.UpdatedAt = now

	stored, ok := m.channels[channel.YoutubeChannelID]
	if !ok {
		cp := *channel
		cp.VideoIDs = []model.YoutubeVideoID{}
		stored = &cp
		m.channels[channel.YoutubeChannelID] = stored
	}
	stored.Name = channel.Name
	stored.UpdatedAt = now
	for _, id := range channel.VideoIDs {
		if !stored.HasVideo(id) {
			stored.VideoIDs = append(stored.VideoIDs, id)
		}
	}

	return nil
}

func (m *Memory) AddVideo(_ context.Context, channelID model.YoutubeChannelID, videoID model.YoutubeVideoID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.channels[channelID]
	if !ok {
		return ErrNotFound
	}
	if !c.HasVideo(videoID) {
		c.VideoIDs = append(c.VideoIDs, videoID)
	}

	return nil
}

func copyVideo(v *model.Video) *model.Video {
	cp := *v
	cp.Concepts = append([]model.Concept(nil), v.Concepts...)
	return &cp
}
