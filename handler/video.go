package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"ewintr.nl/eduvid/model"
	"ewintr.nl/eduvid/storage"
	"golang.org/x/exp/slog"
)

type VideoAPI struct {
	videoRepo storage.VideoRepository
	logger    *slog.Logger
}

func NewVideoAPI(videoRepo storage.VideoRepository, logger *slog.Logger) *VideoAPI {
	return &VideoAPI{
		videoRepo: videoRepo,
		logger:    logger,
	}
}

type videoResponse struct {
	VideoID    string          `json:"videoId"`
	Title      string          `json:"title"`
	Thumbnail  string          `json:"thumbnail"`
	Channel    string          `json:"channel,omitempty"`
	Transcript string          `json:"transcript,omitempty"`
	Concepts   []model.Concept `json:"ncertConcepts"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func newVideoResponse(v *model.Video) videoResponse {
	concepts := v.Concepts
	if concepts == nil {
		concepts = []model.Concept{}
	}
	return videoResponse{
		VideoID:    string(v.YoutubeID),
		Title:      v.Title,
		Thumbnail:  v.Thumbnail,
		Channel:    v.ChannelName,
		Transcript: v.Transcript,
		Concepts:   concepts,
		CreatedAt:  v.CreatedAt,
		UpdatedAt:  v.UpdatedAt,
	}
}

func (v *VideoAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	videoID, _ := ShiftPath(r.URL.Path)

	switch {
	case r.Method == http.MethodGet && videoID == "":
		v.List(w, r)
	case r.Method == http.MethodGet:
		v.Get(w, r, model.YoutubeVideoID(videoID))
	default:
		Error(w, http.StatusNotFound, "Not found", fmt.Errorf("method %s with subpath %q was not registered in the video api", r.Method, videoID))
	}
}

func (v *VideoAPI) List(w http.ResponseWriter, r *http.Request) {
	videos, err := v.videoRepo.FindAll(r.Context())
	if err != nil {
		v.returnErr(w, http.StatusInternalServerError, "could not list videos", err)
		return
	}

	resp := make([]videoResponse, 0, len(videos))
	for _, video := range videos {
		resp = append(resp, newVideoResponse(video))
	}

	JSON(w, http.StatusOK, resp)
}

func (v *VideoAPI) Get(w http.ResponseWriter, r *http.Request, id model.YoutubeVideoID) {
	video, err := v.videoRepo.FindByYoutubeID(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		Message(w, http.StatusNotFound, "Video not found")
		return
	case err != nil:
		v.returnErr(w, http.StatusInternalServerError, "could not get video", err)
		return
	}

	JSON(w, http.StatusOK, newVideoResponse(video))
}

func (v *VideoAPI) returnErr(w http.ResponseWriter, status int, message string, err error, details ...any) {
	v.logger.Error(message, slog.String("error", err.Error()), slog.String("details", fmt.Sprintf("%+v", details)))
	Error(w, status, message, err, details...)
}
