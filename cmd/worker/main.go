package main

import (
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"

	"lecturenotes/internal/ai"
	"lecturenotes/internal/audio"
	"lecturenotes/internal/config"
	"lecturenotes/internal/pipeline"
	"lecturenotes/internal/store"
	"lecturenotes/internal/worker"
	"lecturenotes/pkg/tasks"
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

	openaiClient := openai.NewClient(cfg.OpenAIAPIKey)
	transcriber := ai.NewOpenAITranscriber(openaiClient, cfg.OpenAITranscribeModel)
	generator := ai.NewOpenAIGenerator(openaiClient, cfg.OpenAIChatModel)

	opts := []pipeline.Option{pipeline.WithMaxParallel(cfg.MaxParallelCalls)}
	if cfg.FFmpegPath != "" {
		opts = append(opts, pipeline.WithSplitter(
			audio.NewSplitter(cfg.FFmpegPath, cfg.ChunkWindowSeconds, cfg.MaxParallelCalls)))
	}
	orchestrator := pipeline.NewOrchestrator(st, files, transcriber, generator, opts...)

	var notifier worker.Notifier
	if cfg.TelegramBotToken != "" {
		n, err := worker.NewTelegramNotifier(cfg.TelegramBotToken)
		if err != nil {
			log.Printf("completion notifications disabled: %v", err)
		} else {
			notifier = n
		}
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{
			// One lecture at a time per worker; the pipeline already
			// fans out its own transcription and generation calls.
			Concurrency: 1,
			Queues: map[string]int{
				"high":    2,
				"default": 1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := min(time.Duration(1<<n)*time.Minute, time.Hour)
				log.Printf("Task %s failed %d times, retrying in %v", task.Type(), n+1, delay)
				return delay
			},
		},
	)

	taskHandler := worker.NewTaskHandler(st, orchestrator, notifier, cfg.StaleAfter)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeProcessLecture, taskHandler.HandleProcessLectureTask)
	mux.HandleFunc(tasks.TypeReapStale, taskHandler.HandleReapStaleTask)

	log.Printf("Worker starting (commit: %s)", CommitSHA)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run server: %v", err)
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
