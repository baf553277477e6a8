package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ewintr.nl/eduvid/model"
	"ewintr.nl/eduvid/process"
	"golang.org/x/exp/slog"
)

type ProcessAPI struct {
	processor ConceptProcessor
	logger    *slog.Logger
}

func NewProcessAPI(processor ConceptProcessor, logger *slog.Logger) *ProcessAPI {
	return &ProcessAPI{
		processor: processor,
		logger:    logger,
	}
}

type processRequest struct {
	VideoID      string `json:"videoId"`
	VideoContent string `json:"videoContent"`
}

type processResponse struct {
	Message           string `json:"message"`
	SourceVideoID     string `json:"sourceVideoId"`
	AIConceptAnalysis string `json:"aiConceptAnalysis"`
}

func (p *ProcessAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subPath, _ := ShiftPath(r.URL.Path)

	switch {
	case r.Method == http.MethodPost && subPath == "":
		p.Process(w, r)
	default:
		Error(w, http.StatusNotFound, "Not found", fmt.Errorf("method %s with subpath %q was not registered in the process api", r.Method, subPath))
	}
}

func (p *ProcessAPI) Process(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "Video ID or manual content is required", err)
		return
	}

	res, err := p.processor.Process(r.Context(), process.ProcessRequest{
		VideoID: model.YoutubeVideoID(req.VideoID),
		Content: req.VideoContent,
	})
	switch {
	case errors.Is(err, process.ErrInvalidInput):
		Message(w, http.StatusBadRequest, "Video ID or manual content is required")
		return
	case err != nil:
		p.logger.Error("could not process video", slog.String("video", req.VideoID), slog.String("error", err.Error()))
		Message(w, http.StatusInternalServerError, "Failed to process video.")
		return
	}

	JSON(w, http.StatusOK, processResponse{
		Message:           "AI processing complete!",
		SourceVideoID:     res.SourceVideoID,
		AIConceptAnalysis: res.Analysis,
	})
}
