package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ewintr.nl/eduvid/model"
	"ewintr.nl/eduvid/process"
	"golang.org/x/exp/slog"
)

type ConceptProcessor interface {
	Concepts(ctx context.Context, id model.YoutubeVideoID, opts process.Options) (process.Result, error)
	Process(ctx context.Context, req process.ProcessRequest) (process.ProcessResult, error)
}

type ConceptAPI struct {
	processor ConceptProcessor
	logger    *slog.Logger
}

func NewConceptAPI(processor ConceptProcessor, logger *slog.Logger) *ConceptAPI {
	return &ConceptAPI{
		processor: processor,
		logger:    logger,
	}
}

func (c *ConceptAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	videoID, _ := ShiftPath(r.URL.Path)

	switch {
	case r.Method == http.MethodGet && videoID == "":
		Message(w, http.StatusBadRequest, "Video ID is required")
	case r.Method == http.MethodGet:
		c.Get(w, r, model.YoutubeVideoID(videoID))
	default:
		Error(w, http.StatusNotFound, "Not found", fmt.Errorf("method %s with subpath %q was not registered in the concept api", r.Method, videoID))
	}
}

// Get always answers with a list. A video without transcript gives an empty
// list, a failed extraction an empty list with status 500.
func (c *ConceptAPI) Get(w http.ResponseWriter, r *http.Request, id model.YoutubeVideoID) {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	res, err := c.processor.Concepts(r.Context(), id, process.Options{Refresh: refresh})
	switch {
	case errors.Is(err, process.ErrInvalidInput):
		Message(w, http.StatusBadRequest, "Video ID is required")
		return
	case err != nil:
		c.logger.Error("could not get concepts", slog.String("video", string(id)), slog.String("error", err.Error()))
		JSON(w, http.StatusInternalServerError, []model.Concept{})
		return
	}

	concepts := res.Concepts
	if res.State != process.Done || concepts == nil {
		concepts = []model.Concept{}
	}
	JSON(w, http.StatusOK, concepts)
}
