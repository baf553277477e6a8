package handler

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/exp/slog"
)

type Seeder interface {
	Seed(ctx context.Context) error
}

type SeedAPI struct {
	seeder Seeder
	logger *slog.Logger
}

func NewSeedAPI(seeder Seeder, logger *slog.Logger) *SeedAPI {
	return &SeedAPI{
		seeder: seeder,
		logger: logger,
	}
}

func (s *SeedAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subPath, _ := ShiftPath(r.URL.Path)

	switch {
	case r.Method == http.MethodPost && subPath == "":
		s.Seed(w, r)
	default:
		Error(w, http.StatusNotFound, "Not found", fmt.Errorf("method %s with subpath %q was not registered in the seed api", r.Method, subPath))
	}
}

func (s *SeedAPI) Seed(w http.ResponseWriter, r *http.Request) {
	if err := s.seeder.Seed(r.Context()); err != nil {
		s.logger.Error("could not seed videos", slog.String("error", err.Error()))
		Message(w, http.StatusInternalServerError, "Failed to seed videos.")
		return
	}

	Text(w, http.StatusOK, "Sample videos have been added!")
}
