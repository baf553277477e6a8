package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ewintr.nl/eduvid/fetcher"
	"ewintr.nl/eduvid/handler"
	"ewintr.nl/eduvid/process"
	"ewintr.nl/eduvid/seed"
	"ewintr.nl/eduvid/storage"
	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "could not read .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var level slog.Level
	if err := level.UnmarshalText([]byte(getParam("LOG_LEVEL", "info"))); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var videoRepo storage.VideoRepository
	var channelRepo storage.ChannelRepository
	switch getParam("STORAGE", "postgres") {
	case "memory":
		mem := storage.NewMemory()
		videoRepo, channelRepo = mem, mem
		logger.Info("using in-memory storage")
	case "postgres":
		postgres, err := storage.NewPostgres(ctx, storage.PostgresInfo{
			Host:     getParam("POSTGRES_HOST", "localhost"),
			Port:     getParam("POSTGRES_PORT", "5432"),
			User:     getParam("POSTGRES_USER", "eduvid"),
			Password: getParam("POSTGRES_PASSWORD", "eduvid"),
			Database: getParam("POSTGRES_DB", "eduvid"),
		}.DSN(), logger)
		if err != nil {
			logger.Error("unable to connect to postgres", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer postgres.Close()
		videoRepo = storage.NewPostgresVideoRepository(postgres)
		channelRepo = storage.NewPostgresChannelRepository(postgres)
	default:
		logger.Error("unknown storage", slog.String("storage", getParam("STORAGE", "")))
		os.Exit(1)
	}

	var procOpts []process.ProcessorOption
	var cache storage.ConceptCache
	if redisURL := getParam("REDIS_URL", ""); redisURL != "" {
		ttl, err := time.ParseDuration(getParam("CONCEPT_CACHE_TTL", "24h"))
		if err != nil {
			logger.Error("unable to parse concept cache ttl", slog.String("error", err.Error()))
			os.Exit(1)
		}
		redisCache, err := storage.NewRedisConceptCache(ctx, redisURL, ttl, logger)
		if err != nil {
			logger.Error("unable to connect to redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisCache.Close()
		cache = redisCache
		procOpts = append(procOpts, process.WithCache(redisCache))
	}

	var index storage.ConceptIndex
	if host := getParam("WEAVIATE_HOST", ""); host != "" {
		wv, err := storage.NewWeaviate(host, getParam("WEAVIATE_API_KEY", ""), getParam("OPENAI_API_KEY", ""))
		if err != nil {
			logger.Error("unable to create weaviate client", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if reset, _ := strconv.ParseBool(getParam("WEAVIATE_RESET", "false")); reset {
			if err := wv.ResetSchema(ctx); err != nil {
				logger.Error("unable to reset weaviate schema", slog.String("error", err.Error()))
				os.Exit(1)
			}
			logger.Info("weaviate schema reset")
		}
		index = wv
		procOpts = append(procOpts, process.WithIndex(wv))
	}

	ytClient, err := youtube.NewService(ctx, option.WithAPIKey(getParam("YOUTUBE_API_KEY", "")))
	if err != nil {
		logger.Error("unable to create youtube service", slog.String("error", err.Error()))
		os.Exit(1)
	}
	yt := fetcher.NewYoutube(ytClient)

	ratePerMinute, err := strconv.Atoi(getParam("RATE_LIMIT_PER_MINUTE", "100"))
	if err != nil {
		logger.Error("invalid rate limit", slog.String("error", err.Error()))
		os.Exit(1)
	}
	transcriptsPerMinute, err := strconv.Atoi(getParam("TRANSCRIPT_REQUESTS_PER_MINUTE", "30"))
	if err != nil {
		logger.Error("invalid transcript rate", slog.String("error", err.Error()))
		os.Exit(1)
	}
	transcripts := fetcher.NewTranscriptFetcher(fetcher.NewTimedtext(fetcher.TimedtextInfo{
		Language:  getParam("TRANSCRIPT_LANG", "en"),
		PerMinute: transcriptsPerMinute,
	}), logger)

	var generator process.Generator
	switch getParam("LLM_PROVIDER", "gemini") {
	case "gemini":
		gemini, err := process.NewGemini(ctx, process.GeminiInfo{
			BaseURL: getParam("GEMINI_BASE_URL", ""),
			ApiKey:  getParam("GOOGLE_API_KEY", ""),
			Model:   getParam("GEMINI_MODEL", process.GeminiModel),
		})
		if err != nil {
			logger.Error("unable to create gemini client", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer gemini.Close()
		generator = gemini
	case "openai":
		generator = process.NewOpenAI(process.OpenAIInfo{
			BaseURL: getParam("OPENAI_BASE_URL", ""),
			ApiKey:  getParam("OPENAI_API_KEY", ""),
			Model:   getParam("OPENAI_MODEL", process.OpenAIModel),
		})
	default:
		logger.Error("unknown llm provider", slog.String("provider", getParam("LLM_PROVIDER", "")))
		os.Exit(1)
	}
	logger.Info("using language model", slog.String("model", generator.Name()))

	maxChars, err := strconv.Atoi(getParam("PROMPT_MAX_CHARS", strconv.Itoa(process.DefaultMaxChars)))
	if err != nil {
		logger.Error("invalid prompt max chars", slog.String("error", err.Error()))
		os.Exit(1)
	}
	processor := process.NewProcessor(transcripts, yt, generator, process.NewPromptBuilder(maxChars), videoRepo, logger, procOpts...)

	sampleVideos, err := seed.LoadFile(getParam("SEED_FILE", ""))
	if err != nil {
		logger.Error("unable to load seed file", slog.String("error", err.Error()))
		os.Exit(1)
	}
	seeder := seed.NewSeeder(sampleVideos, videoRepo, cache, index, logger)

	if endpoint := getParam("MINIFLUX_ENDPOINT", ""); endpoint != "" {
		fetchInterval, err := time.ParseDuration(getParam("FETCH_INTERVAL", "1m"))
		if err != nil {
			logger.Error("unable to parse fetch interval", slog.String("error", err.Error()))
			os.Exit(1)
		}
		mflx := fetcher.NewMiniflux(fetcher.MinifluxInfo{
			Endpoint: endpoint,
			ApiKey:   getParam("MINIFLUX_APIKEY", ""),
		})
		fetch := fetcher.NewFetch(videoRepo, channelRepo, mflx, fetchInterval, yt, logger)
		go fetch.Run(ctx)
		logger.Info("fetch service started")
	}

	port, err := strconv.Atoi(getParam("API_PORT", "5000"))
	if err != nil {
		logger.Error("invalid port", slog.String("error", err.Error()))
		os.Exit(1)
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler.NewServer(videoRepo, processor, seeder, index, logger).Handler(ratePerMinute),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", slog.String("error", err.Error()))
			stop()
		}
	}()
	logger.Info("http server started", slog.Int("port", port))

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("could not shut down http server", slog.String("error", err.Error()))
	}

	logger.Info("service stopped")
}

func getParam(param, def string) string {
	if val, ok := os.LookupEnv(param); ok {
		return val
	}
	return def
}
