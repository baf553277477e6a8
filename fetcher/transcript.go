package fetcher

import (
	"context"
	"errors"
	"strings"

	"ewintr.nl/eduvid/model"
	"golang.org/x/exp/slog"
)

var (
	ErrCaptionsDisabled = errors.New("captions are disabled for this video")
	ErrVideoUnavailable = errors.New("video is unavailable")
)

type Segment struct {
	Text     string
	Start    float64
	Duration float64
}

type TranscriptSource interface {
	Segments(ctx context.Context, id model.YoutubeVideoID) ([]Segment, error)
}

// Transcript is the outcome of a transcript lookup. When no text could be
// found, Available is false and Reason says why.
type Transcript struct {
	VideoID  model.YoutubeVideoID
	Segments []Segment
	Reason   string
}

func NoTranscript(id model.YoutubeVideoID, reason string) Transcript {
	return Transcript{VideoID: id, Reason: reason}
}

func (t Transcript) Available() bool {
	return strings.TrimSpace(t.Text()) != ""
}

func (t Transcript) Text() string {
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		if txt := strings.TrimSpace(s.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}

type TranscriptFetcher struct {
	source TranscriptSource
	logger *slog.Logger
}

func NewTranscriptFetcher(source TranscriptSource, logger *slog.Logger) *TranscriptFetcher {
	return &TranscriptFetcher{
		source: source,
		logger: logger,
	}
}

// Fetch makes a single attempt. Errors from the source never reach the
// caller, they turn into a transcript that is not available.
func (tf *TranscriptFetcher) Fetch(ctx context.Context, id model.YoutubeVideoID) Transcript {
	segments, err := tf.source.Segments(ctx, id)
	if err != nil {
		tf.logger.Info("no transcript", slog.String("video", string(id)), slog.String("error", err.Error()))
		return NoTranscript(id, err.Error())
	}

	t := Transcript{VideoID: id, Segments: segments}
	if !t.Available() {
		tf.logger.Info("no transcript", slog.String("video", string(id)), slog.String("error", "empty transcript"))
		return NoTranscript(id, "empty transcript")
	}

	return t
}
