package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ewintr.nl/eduvid/model"
	"golang.org/x/time/rate"
)

const (
	YoutubeBaseURL   = "https://www.youtube.com"
	captionTracksKey = `"captionTracks":`
)

type TimedtextInfo struct {
	BaseURL  string
	Language string
	// PerMinute limits requests sent to YouTube.
	PerMinute int
}

// Timedtext reads the caption tracks that the watch page of a video links to.
type Timedtext struct {
	baseURL  string
	language string
	client   *http.Client
	limiter  *rate.Limiter
}

func NewTimedtext(info TimedtextInfo) *Timedtext {
	if info.BaseURL == "" {
		info.BaseURL = YoutubeBaseURL
	}
	if info.Language == "" {
		info.Language = "en"
	}
	limit := rate.Inf
	if info.PerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(info.PerMinute))
	}

	return &Timedtext{
		baseURL:  strings.TrimSuffix(info.BaseURL, "/"),
		language: info.Language,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(limit, 1),
	}
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// timedtextDoc reads both the classic format, with seconds, and format 3,
// with milliseconds and words split into <s> elements.
type timedtextDoc struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
	Paragraphs []struct {
		T     string   `xml:"t,attr"`
		D     string   `xml:"d,attr"`
		Body  string   `xml:",chardata"`
		Words []string `xml:"s"`
	} `xml:"body>p"`
}

func (t *Timedtext) Segments(ctx context.Context, id model.YoutubeVideoID) ([]Segment, error) {
	page, err := t.get(ctx, fmt.Sprintf("%s/watch?v=%s", t.baseURL, url.QueryEscape(string(id))))
	if err != nil {
		return nil, fmt.Errorf("failed to load watch page: %w", err)
	}

	tracks, err := captionTracks(page)
	if err != nil {
		return nil, err
	}
	track := t.pickTrack(tracks)

	trackURL, err := t.trackURL(track)
	if err != nil {
		return nil, err
	}
	body, err := t.get(ctx, trackURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load caption track: %w", err)
	}

	return parseTimedtext(body)
}

// trackURL drops the fmt parameter so the track is served in the classic
// <transcript> format.
func (t *Timedtext) trackURL(track captionTrack) (string, error) {
	raw := track.BaseURL
	if strings.HasPrefix(raw, "/") {
		raw = t.baseURL + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid caption track url: %w", err)
	}
	q := u.Query()
	q.Del("fmt")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (t *Timedtext) pickTrack(tracks []captionTrack) captionTrack {
	// prefer manual captions over generated ones in the wanted language
	var generated *captionTrack
	for i, tr := range tracks {
		if tr.LanguageCode != t.language {
			continue
		}
		if tr.Kind != "asr" {
			return tr
		}
		if generated == nil {
			generated = &tracks[i]
		}
	}
	if generated != nil {
		return *generated
	}

	return tracks[0]
}

func (t *Timedtext) get(ctx context.Context, u string) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", t.language)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return body, nil
}

func captionTracks(page []byte) ([]captionTrack, error) {
	i := bytes.Index(page, []byte(captionTracksKey))
	if i < 0 {
		if bytes.Contains(page, []byte(`"playabilityStatus":{"status":"ERROR"`)) ||
			bytes.Contains(page, []byte(`"playabilityStatus":{"status":"UNPLAYABLE"`)) ||
			bytes.Contains(page, []byte(`"playabilityStatus":{"status":"LOGIN_REQUIRED"`)) {
			return nil, ErrVideoUnavailable
		}
		return nil, ErrCaptionsDisabled
	}

	raw, err := jsonArrayAt(page[i+len(captionTracksKey):])
	if err != nil {
		return nil, fmt.Errorf("invalid caption tracks: %w", err)
	}
	var tracks []captionTrack
	if err := json.Unmarshal(raw, &tracks); err != nil {
		return nil, fmt.Errorf("invalid caption tracks: %w", err)
	}

	usable := make([]captionTrack, 0, len(tracks))
	for _, tr := range tracks {
		if tr.BaseURL != "" {
			usable = append(usable, tr)
		}
	}
	if len(usable) == 0 {
		return nil, ErrCaptionsDisabled
	}

	return usable, nil
}

// jsonArrayAt returns the JSON array that starts at the beginning of b,
// ignoring leading whitespace.
func jsonArrayAt(b []byte) ([]byte, error) {
	b = bytes.TrimLeft(b, " \t\r\n")
	if len(b) == 0 || b[0] != '[' {
		return nil, fmt.Errorf("no array found")
	}

	depth := 0
	inString := false
	escaped := false
	for i, c := range b {
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '[' || c == '{':
			depth++
		case c == ']' || c == '}':
			depth--
			if depth == 0 {
				return b[:i+1], nil
			}
		}
	}

	return nil, fmt.Errorf("unterminated array")
}

func parseTimedtext(body []byte) ([]Segment, error) {
	var doc timedtextDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("invalid timedtext document: %w", err)
	}

	segments := make([]Segment, 0, len(doc.Texts)+len(doc.Paragraphs))
	for _, txt := range doc.Texts {
		start, _ := strconv.ParseFloat(txt.Start, 64)
		dur, _ := strconv.ParseFloat(txt.Dur, 64)
		segments = append(segments, Segment{
			Text:     cleanText(txt.Body),
			Start:    start,
			Duration: dur,
		})
	}
	for _, p := range doc.Paragraphs {
		text := cleanText(p.Body + " " + strings.Join(p.Words, ""))
		if text == "" {
			continue
		}
		start, _ := strconv.ParseFloat(p.T, 64)
		dur, _ := strconv.ParseFloat(p.D, 64)
		segments = append(segments, Segment{
			Text:     text,
			Start:    start / 1000,
			Duration: dur / 1000,
		})
	}

	return segments, nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}
