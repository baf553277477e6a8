package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"time"

	"ewintr.nl/eduvid/storage"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

const apiPrefix = "api"

type Server struct {
	apis   map[string]http.Handler
	logger *slog.Logger
}

// NewServer builds the api. index may be nil, search then answers with not
// found.
func NewServer(videoRepo storage.VideoRepository, processor ConceptProcessor, seeder Seeder, index storage.ConceptIndex, logger *slog.Logger) *Server {
	return &Server{
		apis: map[string]http.Handler{
			"videos":   NewVideoAPI(videoRepo, logger),
			"concepts": NewConceptAPI(processor, logger),
			"process":  NewProcessAPI(processor, logger),
			"seed":     NewSeedAPI(seeder, logger),
			"search":   NewSearchAPI(index, logger),
		},
		logger: logger,
	}
}

// Handler wraps the server in CORS handling and a per client rate limit.
// A limit of zero or less disables rate limiting.
func (s *Server) Handler(requestsPerMinute int) http.Handler {
	var h http.Handler = s
	if requestsPerMinute > 0 {
		h = httprate.LimitByIP(requestsPerMinute, time.Minute)(h)
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})(h)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	originalPath := r.URL.Path
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	rec := httptest.NewRecorder() // records the response to be able to mix writing headers and content

	w.Header().Set("X-Request-ID", requestID)

	head, tail := ShiftPath(r.URL.Path)
	switch {
	case head == "":
		Index(rec)
	case head != apiPrefix:
		Error(rec, http.StatusNotFound, "Not found", fmt.Errorf("%s is not a valid path", originalPath))
	default:
		head, tail = ShiftPath(tail)
		api, ok := s.apis[head]
		if !ok {
			Error(rec, http.StatusNotFound, "Not found", fmt.Errorf("%s is not a valid path", originalPath))
			break
		}
		r.URL.Path = tail
		api.ServeHTTP(rec, r)
	}

	returnResponse(w, rec)
	s.logger.Info("request served",
		slog.String("request", requestID),
		slog.String("method", r.Method),
		slog.String("path", originalPath),
		slog.Int("status", rec.Code),
		slog.Duration("duration", time.Since(start)),
	)
}

func returnResponse(w http.ResponseWriter, rec *httptest.ResponseRecorder) {
	for k, v := range rec.Header() {
		w.Header()[k] = v
	}
	w.WriteHeader(rec.Code)
	w.Write(rec.Body.Bytes())
}

// ShiftPath splits off the first component of p, which will be cleaned of
// relative components before processing. head will never contain a slash and
// tail will always be a rooted path without trailing slash.
// See https://blog.merovius.de/posts/2017-06-18-how-not-to-use-an-http-router/
func ShiftPath(p string) (string, string) {
	p = path.Clean("/" + p)

	i := strings.Index(p[1:], "/") + 1
	if i <= 0 {
		return p[1:], "/"
	}
	return p[1:i], p[i:]
}
