package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ewintr.nl/eduvid/storage"
	"golang.org/x/exp/slog"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

type SearchAPI struct {
	index  storage.ConceptIndex
	logger *slog.Logger
}

func NewSearchAPI(index storage.ConceptIndex, logger *slog.Logger) *SearchAPI {
	return &SearchAPI{
		index:  index,
		logger: logger,
	}
}

type searchHit struct {
	VideoID  string  `json:"videoId"`
	Title    string  `json:"title"`
	Concepts string  `json:"concepts"`
	Distance float64 `json:"distance"`
}

func (s *SearchAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subPath, _ := ShiftPath(r.URL.Path)

	switch {
	case s.index == nil:
		Error(w, http.StatusNotFound, "Not found", errors.New("search is not configured"))
	case r.Method == http.MethodGet && subPath == "":
		s.Search(w, r)
	default:
		Error(w, http.StatusNotFound, "Not found", fmt.Errorf("method %s with subpath %q was not registered in the search api", r.Method, subPath))
	}
}

func (s *SearchAPI) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		Message(w, http.StatusBadRequest, "Query is required")
		return
	}
	limit := defaultSearchLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "Invalid limit", fmt.Errorf("limit %q is not a positive number", l))
			return
		}
		limit = min(n, maxSearchLimit)
	}

	hits, err := s.index.Search(r.Context(), query, limit)
	if err != nil {
		s.logger.Error("could not search", slog.String("query", query), slog.String("error", err.Error()))
		Error(w, http.StatusInternalServerError, "could not search", err)
		return
	}

	resp := make([]searchHit, 0, len(hits))
	for _, h := range hits {
		resp = append(resp, searchHit{
			VideoID:  string(h.YoutubeID),
			Title:    h.Title,
			Concepts: h.Concepts,
			Distance: h.Distance,
		})
	}

	JSON(w, http.StatusOK, resp)
}
