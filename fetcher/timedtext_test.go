package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trackXML = `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0.5" dur="2.1">Newton&amp;#39;s first law</text>
<text start="2.6" dur="3">says an object   at rest
stays at rest</text>
</transcript>`

const srv3XML = `<?xml version="1.0" encoding="utf-8" ?><timedtext format="3">
<body>
<p t="500" d="2100">Newton&#39;s first law</p>
<p t="2600" d="3000"><s ac="0">says</s><s t="200"> an</s><s t="400"> object</s><s t="600"> at rest</s></p>
<p t="5600" d="10">
</p>
</body>
</timedtext>`

func watchPage(tracks string) string {
	return fmt.Sprintf(`<html><script>var ytInitialPlayerResponse = {"playabilityStatus":{"status":"OK"},"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":%s,"audioTracks":[]}}};</script></html>`, tracks)
}

func TestTimedtextSegments(t *testing.T) {
	for _, tc := range []struct {
		name   string
		tracks string
		want   string
	}{
		{
			name:   "manual track preferred",
			tracks: `[{"baseUrl":"/api/timedtext?v=abc&kind=asr","languageCode":"en","kind":"asr"},{"baseUrl":"/api/timedtext?v=abc&lang=en","languageCode":"en"}]`,
			want:   "lang=en",
		},
		{
			name:   "generated track in language",
			tracks: `[{"baseUrl":"/api/timedtext?v=abc&lang=de","languageCode":"de"},{"baseUrl":"/api/timedtext?v=abc&kind=asr","languageCode":"en","kind":"asr"}]`,
			want:   "kind=asr",
		},
		{
			name:   "format parameter dropped",
			tracks: `[{"baseUrl":"/api/timedtext?v=abc\u0026lang=en\u0026fmt=srv3","languageCode":"en"}]`,
			want:   "lang=en",
		},
		{
			name:   "first track as fallback",
			tracks: `[{"baseUrl":"/api/timedtext?v=abc&lang=fr","languageCode":"fr"},{"baseUrl":"/api/timedtext?v=abc&lang=de","languageCode":"de"}]`,
			want:   "lang=fr",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var requested string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/watch":
					assert.Equal(t, "abc", r.URL.Query().Get("v"))
					fmt.Fprint(w, watchPage(tc.tracks))
				case "/api/timedtext":
					requested = r.URL.RawQuery
					if r.URL.Query().Get("fmt") == "srv3" {
						fmt.Fprint(w, srv3XML)
						return
					}
					fmt.Fprint(w, trackXML)
				default:
					http.NotFound(w, r)
				}
			}))
			defer srv.Close()

			tt := NewTimedtext(TimedtextInfo{BaseURL: srv.URL, Language: "en"})
			segments, err := tt.Segments(context.Background(), "abc")
			require.NoError(t, err)
			assert.Contains(t, requested, tc.want)
			assert.NotContains(t, requested, "fmt=")
			require.Len(t, segments, 2)
			assert.Equal(t, "Newton's first law", segments[0].Text)
			assert.Equal(t, 0.5, segments[0].Start)
			assert.Equal(t, 2.1, segments[0].Duration)
			assert.Equal(t, "says an object at rest stays at rest", segments[1].Text)
		})
	}
}

func TestParseTimedtextFormat3(t *testing.T) {
	segments, err := parseTimedtext([]byte(srv3XML))
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, Segment{Text: "Newton's first law", Start: 0.5, Duration: 2.1}, segments[0])
	assert.Equal(t, Segment{Text: "says an object at rest", Start: 2.6, Duration: 3}, segments[1])
}

func TestTimedtextSegmentsErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		page string
		exp  error
	}{
		{
			name: "no captions",
			page: `<html>{"playabilityStatus":{"status":"OK"}}</html>`,
			exp:  ErrCaptionsDisabled,
		},
		{
			name: "unavailable",
			page: `<html>{"playabilityStatus":{"status":"ERROR","reason":"Video unavailable"}}</html>`,
			exp:  ErrVideoUnavailable,
		},
		{
			name: "tracks without url",
			page: watchPage(`[{"languageCode":"en"}]`),
			exp:  ErrCaptionsDisabled,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tc.page)
			}))
			defer srv.Close()

			tt := NewTimedtext(TimedtextInfo{BaseURL: srv.URL})
			_, err := tt.Segments(context.Background(), "abc")
			assert.ErrorIs(t, err, tc.exp)
		})
	}
}

func TestTimedtextStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tt := NewTimedtext(TimedtextInfo{BaseURL: srv.URL})
	_, err := tt.Segments(context.Background(), "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestJSONArrayAt(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
		exp   string
		err   bool
	}{
		{
			name:  "nested",
			input: ` [{"a":[1,2]},{"b":"]"}], "rest":1}`,
			exp:   `[{"a":[1,2]},{"b":"]"}]`,
		},
		{
			name:  "escaped quote",
			input: `["a\"]"]tail`,
			exp:   `["a\"]"]`,
		},
		{
			name:  "not an array",
			input: `{"a":1}`,
			err:   true,
		},
		{
			name:  "unterminated",
			input: `[{"a":1}`,
			err:   true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			act, err := jsonArrayAt([]byte(tc.input))
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.exp, string(act))
		})
	}
}
