package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ewintr.nl/eduvid/model"
	"ewintr.nl/eduvid/storage"
	"golang.org/x/exp/slog"
)

const metadataBatchSize = 50

// Fetcher imports videos that appear in the feeds of subscribed channels.
type Fetcher struct {
	interval        time.Duration
	videoRepo       storage.VideoRepository
	channelRepo     storage.ChannelRepository
	feedReader      FeedReader
	metadataFetcher MetadataFetcher
	logger          *slog.Logger
}

func NewFetch(videoRepo storage.VideoRepository, channelRepo storage.ChannelRepository, feedReader FeedReader, interval time.Duration, metadataFetcher MetadataFetcher, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		interval:        interval,
		videoRepo:       videoRepo,
		channelRepo:     channelRepo,
		feedReader:      feedReader,
		metadataFetcher: metadataFetcher,
		logger:          logger,
	}
}

func (f *Fetcher) Run(ctx context.Context) {
	f.logger.Info("started feed reader", slog.Duration("interval", f.interval))
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("stopped feed reader")
			return
		case <-ticker.C:
			if err := f.ReadFeeds(ctx); err != nil {
				f.logger.Error("failed to read feeds", slog.String("error", err.Error()))
			}
		}
	}
}

// ReadFeeds imports all unread entries. Entries that could not be imported
// stay unread and are tried again on the next run.
func (f *Fetcher) ReadFeeds(ctx context.Context) error {
	entries, err := f.feedReader.Unread()
	if err != nil {
		return fmt.Errorf("failed to fetch unread entries: %w", err)
	}
	f.logger.Info("fetched unread entries", slog.Int("count", len(entries)))

	for start := 0; start < len(entries); start += metadataBatchSize {
		end := start + metadataBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		if err := f.importBatch(ctx, entries[start:end]); err != nil {
			return err
		}
	}

	return nil
}

func (f *Fetcher) importBatch(ctx context.Context, entries []FeedEntry) error {
	ids := make([]model.YoutubeVideoID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.YoutubeID)
	}
	mds, err := f.metadataFetcher.FetchMetadata(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to fetch metadata: %w", err)
	}

	for _, entry := range entries {
		md, ok := mds[entry.YoutubeID]
		if !ok {
			f.logger.Warn("no metadata for video", slog.String("video", string(entry.YoutubeID)))
			continue
		}
		if err := f.importEntry(ctx, entry, md); err != nil {
			f.logger.Error("failed to import video", slog.String("video", string(entry.YoutubeID)), slog.String("error", err.Error()))
			continue
		}
		if err := f.feedReader.MarkRead(entry.EntryID); err != nil {
			f.logger.Error("failed to mark entry as read", slog.Int64("entry", entry.EntryID), slog.String("error", err.Error()))
			continue
		}
		f.logger.Info("imported video", slog.String("video", string(entry.YoutubeID)), slog.String("channel", string(entry.YoutubeChannelID)))
	}

	return nil
}

func (f *Fetcher) importEntry(ctx context.Context, entry FeedEntry, md Metadata) error {
	channelName := md.ChannelTitle
	if channelName == "" {
		channelName = entry.ChannelTitle
	}

	_, err := f.videoRepo.FindByYoutubeID(ctx, entry.YoutubeID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		video := &model.Video{
			YoutubeID:   entry.YoutubeID,
			Title:       md.Title,
			Thumbnail:   md.Thumbnail,
			ChannelName: channelName,
		}
		if video.Thumbnail == "" {
			video.Thumbnail = DefaultThumbnail(entry.YoutubeID)
		}
		if err := f.videoRepo.InsertMany(ctx, []*model.Video{video}); err != nil && !errors.Is(err, storage.ErrDuplicate) {
			return err
		}
	case err != nil:
		return err
	}

	_, err = f.channelRepo.FindByYoutubeChannelID(ctx, entry.YoutubeChannelID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return f.channelRepo.Save(ctx, &model.Channel{
			Name:             channelName,
			YoutubeChannelID: entry.YoutubeChannelID,
			VideoIDs:         []model.YoutubeVideoID{entry.YoutubeID},
		})
	case err != nil:
		return err
	}

	return f.channelRepo.AddVideo(ctx, entry.YoutubeChannelID, entry.YoutubeID)
}

func DefaultThumbnail(id model.YoutubeVideoID) string {
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", id)
}
