package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"lecturenotes/internal/ai"
	"lecturenotes/internal/audio"
	"lecturenotes/internal/config"
	"lecturenotes/internal/handlers"
	"lecturenotes/internal/middleware"
	"lecturenotes/internal/pipeline"
	"lecturenotes/internal/store"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	st, err := newStore(cfg)
	if err != nil {
		log.Fatalf("could not initialize store: %v", err)
	}

	files, err := audio.NewFiles(cfg.DataDir)
	if err != nil {
		log.Fatalf("could not initialize audio storage: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer asynqClient.Close()

	openaiClient := openai.NewClient(cfg.OpenAIAPIKey)
	transcriber := ai.NewOpenAITranscriber(openaiClient, cfg.OpenAITranscribeModel)
	generator := ai.NewOpenAIGenerator(openaiClient, cfg.OpenAIChatModel)

	opts := []pipeline.Option{pipeline.WithMaxParallel(cfg.MaxParallelCalls)}
	if cfg.FFmpegPath != "" {
		opts = append(opts, pipeline.WithSplitter(
			audio.NewSplitter(cfg.FFmpegPath, cfg.ChunkWindowSeconds, cfg.MaxParallelCalls)))
	}
	orchestrator := pipeline.NewOrchestrator(st, files, transcriber, generator, opts...)

	prober := audio.NewProber(cfg.FFmpegPath)
	h := handlers.New(st, files, prober, orchestrator, asynqClient,
		cfg.BaseURL, cfg.AsyncThresholdSeconds, cfg.MaxUploadBytes)

	auth := middleware.NewAuth(st, cfg.TelegramBotToken)
	// One upload per 30s per user with a small burst; reads are cheap.
	uploadLimiter := middleware.NewRateLimiter(rate.Limit(1.0/30.0), 3)

	r := mux.NewRouter()
	r.Handle("/feed/{uuid}", http.HandlerFunc(h.GetRSSFeed)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware)
	api.Handle("/lectures", uploadLimiter.Middleware(http.HandlerFunc(h.UploadLecture))).Methods(http.MethodPost)
	api.HandleFunc("/lectures", h.ListLectures).Methods(http.MethodGet)
	api.HandleFunc("/lectures/{id}", h.GetLecture).Methods(http.MethodGet)
	api.HandleFunc("/lectures/{id}", h.RenameLecture).Methods(http.MethodPatch)
	api.HandleFunc("/lectures/{id}", h.DeleteLecture).Methods(http.MethodDelete)
	api.HandleFunc("/lectures/{id}/status", h.GetStatus).Methods(http.MethodGet)

	log.Printf("Starting server on :%s (commit: %s)", cfg.Port, CommitSHA)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}

func newStore(cfg config.Config) (store.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendDocument:
		return store.NewDocument(cfg.DataDir)
	default:
		return store.NewPostgres(cfg.DatabaseURL)
	}
}
