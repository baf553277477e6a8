package process

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ewintr.nl/eduvid/fetcher"
	"ewintr.nl/eduvid/model"
	"ewintr.nl/eduvid/storage"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidInput = errors.New("video id or content is required")
	ErrNoContent    = errors.New("could not retrieve video details and no manual content was provided")
)

const (
	ManualContent = "Manual Content"

	extractionTimeout = 3 * time.Minute
)

type State int

const (
	AwaitingTranscript State = iota
	AwaitingAIResponse
	Done
	EmptyResult
	Failed
)

func (s State) String() string {
	switch s {
	case AwaitingTranscript:
		return "awaiting_transcript"
	case AwaitingAIResponse:
		return "awaiting_ai_response"
	case Done:
		return "done"
	case EmptyResult:
		return "empty_result"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Source string

const (
	SourceNone  Source = ""
	SourceCache Source = "cache"
	SourceStore Source = "store"
	SourceModel Source = "model"
)

type Result struct {
	VideoID  model.YoutubeVideoID
	State    State
	Source   Source
	Concepts []model.Concept
	// Reason explains an EmptyResult.
	Reason string
}

type Options struct {
	// Refresh skips stored concepts and extracts them again.
	Refresh bool
}

type TranscriptFetcher interface {
	Fetch(ctx context.Context, id model.YoutubeVideoID) fetcher.Transcript
}

type Extractor interface {
	Extract(ctx context.Context, text string) ([]model.Concept, error)
}

type Processor struct {
	transcripts TranscriptFetcher
	extractor   Extractor
	metadata    fetcher.MetadataFetcher
	generator   Generator
	prompts     PromptBuilder
	videoRepo   storage.VideoRepository
	cache       storage.ConceptCache
	index       storage.ConceptIndex
	inFlight    singleflight.Group
	logger      *slog.Logger
}

type ProcessorOption func(*Processor)

func WithCache(cache storage.ConceptCache) ProcessorOption {
	return func(p *Processor) {
		p.cache = cache
	}
}

func WithIndex(index storage.ConceptIndex) ProcessorOption {
	return func(p *Processor) {
		p.index = index
	}
}

func WithExtractor(extractor Extractor) ProcessorOption {
	return func(p *Processor) {
		p.extractor = extractor
	}
}

func NewProcessor(transcripts TranscriptFetcher, metadata fetcher.MetadataFetcher, generator Generator, prompts PromptBuilder, videoRepo storage.VideoRepository, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	p := &Processor{
		transcripts: transcripts,
		extractor:   NewConceptExtractor(generator, prompts),
		metadata:    metadata,
		generator:   generator,
		prompts:     prompts,
		videoRepo:   videoRepo,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Concepts returns the key concepts of a video. Concepts extracted before are
// served from the cache or the store unless a refresh is asked for. A video
// without transcript gives an EmptyResult, never an error.
func (p *Processor) Concepts(ctx context.Context, id model.YoutubeVideoID, opts Options) (Result, error) {
	if id == "" {
		return Result{State: Failed}, ErrInvalidInput
	}

	if !opts.Refresh {
		if res, ok := p.memoized(ctx, id); ok {
			return res, nil
		}
	}

	// the extraction is shared and must outlive the caller that started it
	detached := context.WithoutCancel(ctx)
	ch := p.inFlight.DoChan(string(id), func() (any, error) {
		sctx, cancel := context.WithTimeout(detached, extractionTimeout)
		defer cancel()
		// an extraction may have finished between the lookup above and here
		if !opts.Refresh {
			if res, ok := p.memoized(sctx, id); ok {
				return res, nil
			}
		}
		return p.extract(sctx, id)
	})

	select {
	case <-ctx.Done():
		return Result{VideoID: id, State: Failed, Concepts: []model.Concept{}}, ctx.Err()
	case r := <-ch:
		res := r.Val.(Result)
		if r.Shared {
			p.logger.Debug("shared extraction", slog.String("video", string(id)))
			res.Concepts = append([]model.Concept{}, res.Concepts...)
		}
		return res, r.Err
	}
}

func (p *Processor) memoized(ctx context.Context, id model.YoutubeVideoID) (Result, bool) {
	if p.cache != nil {
		concepts, ok, err := p.cache.Get(ctx, id)
		switch {
		case err != nil:
			p.logger.Warn("concept cache unavailable", slog.String("video", string(id)), slog.String("error", err.Error()))
		case ok:
			return Result{VideoID: id, State: Done, Source: SourceCache, Concepts: concepts}, true
		}
	}

	video, err := p.videoRepo.FindByYoutubeID(ctx, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return Result{}, false
	case err != nil:
		p.logger.Warn("could not read stored concepts", slog.String("video", string(id)), slog.String("error", err.Error()))
		return Result{}, false
	case !video.HasConcepts():
		return Result{}, false
	}

	return Result{VideoID: id, State: Done, Source: SourceStore, Concepts: video.Concepts}, true
}

func (p *Processor) extract(ctx context.Context, id model.YoutubeVideoID) (Result, error) {
	res := Result{VideoID: id, State: AwaitingTranscript, Concepts: []model.Concept{}}
	p.logger.Info("fetching transcript", slog.String("video", string(id)), slog.String("state", res.State.String()))

	transcript := p.transcripts.Fetch(ctx, id)
	if !transcript.Available() {
		res.State = EmptyResult
		res.Reason = transcript.Reason
		p.logger.Info("nothing to extract", slog.String("video", string(id)), slog.String("state", res.State.String()), slog.String("reason", res.Reason))
		return res, nil
	}

	res.State = AwaitingAIResponse
	text := transcript.Text()
	p.logger.Info("extracting concepts", slog.String("video", string(id)), slog.String("state", res.State.String()), slog.Int("chars", len(text)))

	concepts, err := p.extractor.Extract(ctx, text)
	if err != nil {
		res.State = Failed
		p.logger.Error("failed to extract concepts", slog.String("video", string(id)), slog.String("state", res.State.String()), slog.String("error", err.Error()))
		return res, fmt.Errorf("failed to extract concepts for %s: %w", id, err)
	}

	res.State = Done
	res.Source = SourceModel
	res.Concepts = concepts
	p.logger.Info("extracted concepts", slog.String("video", string(id)), slog.String("state", res.State.String()), slog.Int("count", len(concepts)))

	p.persist(ctx, id, text, concepts)

	return res, nil
}

// persist writes the outcome back. Failures are logged and do not affect the
// result handed to the caller.
func (p *Processor) persist(ctx context.Context, id model.YoutubeVideoID, transcript string, concepts []model.Concept) {
	if p.cache != nil {
		if err := p.cache.Set(ctx, id, concepts); err != nil {
			p.logger.Warn("failed to cache concepts", slog.String("video", string(id)), slog.String("error", err.Error()))
		}
	}

	err := p.videoRepo.SaveConcepts(ctx, id, transcript, concepts)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		p.logger.Debug("video not stored, concepts not saved", slog.String("video", string(id)))
		return
	case err != nil:
		p.logger.Error("failed to save concepts", slog.String("video", string(id)), slog.String("error", err.Error()))
		return
	}

	if p.index == nil {
		return
	}
	video, err := p.videoRepo.FindByYoutubeID(ctx, id)
	if err != nil {
		p.logger.Error("failed to reload video for index", slog.String("video", string(id)), slog.String("error", err.Error()))
		return
	}
	if err := p.index.Save(ctx, video); err != nil {
		p.logger.Error("failed to index video", slog.String("video", string(id)), slog.String("error", err.Error()))
	}
}

type ProcessRequest struct {
	VideoID model.YoutubeVideoID
	Content string
}

type ProcessResult struct {
	SourceVideoID string
	Analysis      string
}

// Process summarizes the title and description of a video, or the given
// content when no metadata can be found, into free text. Nothing is stored.
func (p *Processor) Process(ctx context.Context, req ProcessRequest) (ProcessResult, error) {
	if req.VideoID == "" && req.Content == "" {
		return ProcessResult{}, ErrInvalidInput
	}

	text := ""
	if req.VideoID != "" && p.metadata != nil {
		mds, err := p.metadata.FetchMetadata(ctx, []model.YoutubeVideoID{req.VideoID})
		if err != nil {
			p.logger.Warn("failed to fetch metadata", slog.String("video", string(req.VideoID)), slog.String("error", err.Error()))
		}
		if md, ok := mds[req.VideoID]; ok {
			text = fmt.Sprintf("Title: %s\n\nDescription: %s", md.Title, md.Description)
		}
	}
	if text == "" {
		text = req.Content
	}
	if text == "" {
		return ProcessResult{}, ErrNoContent
	}

	analysis, err := p.generator.Generate(ctx, p.prompts.Summary(text), false)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("failed to process content: %w", err)
	}

	source := string(req.VideoID)
	if source == "" {
		source = ManualContent
	}

	return ProcessResult{
		SourceVideoID: source,
		Analysis:      analysis,
	}, nil
}
