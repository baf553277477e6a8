package fetcher

import (
	"context"
	"io"
	"testing"

	"ewintr.nl/eduvid/model"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

type fakeSource struct {
	segments []Segment
	err      error
	calls    int
}

func (fs *fakeSource) Segments(_ context.Context, _ model.YoutubeVideoID) ([]Segment, error) {
	fs.calls++
	return fs.segments, fs.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTranscriptFetcher(t *testing.T) {
	for _, tc := range []struct {
		name       string
		source     *fakeSource
		expText    string
		expReason  string
		expPresent bool
	}{
		{
			name: "segments",
			source: &fakeSource{segments: []Segment{
				{Text: " first part "},
				{Text: ""},
				{Text: "second part"},
			}},
			expText:    "first part second part",
			expPresent: true,
		},
		{
			name:      "captions disabled",
			source:    &fakeSource{err: ErrCaptionsDisabled},
			expReason: ErrCaptionsDisabled.Error(),
		},
		{
			name:      "only whitespace",
			source:    &fakeSource{segments: []Segment{{Text: "  "}, {Text: "\n"}}},
			expReason: "empty transcript",
		},
		{
			name:      "no segments",
			source:    &fakeSource{segments: []Segment{}},
			expReason: "empty transcript",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tf := NewTranscriptFetcher(tc.source, testLogger())
			act := tf.Fetch(context.Background(), "vid")

			assert.Equal(t, 1, tc.source.calls)
			assert.Equal(t, model.YoutubeVideoID("vid"), act.VideoID)
			assert.Equal(t, tc.expPresent, act.Available())
			assert.Equal(t, tc.expText, act.Text())
			assert.Equal(t, tc.expReason, act.Reason)
		})
	}
}
