package config

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// Storage backend names.
const (
	BackendPostgres = "postgres"
	BackendDocument = "document"
)

type Config struct {
	Port           string
	BaseURL        string
	DatabaseURL    string
	RedisAddr      string
	StorageBackend string
	DataDir        string

	OpenAIAPIKey          string
	OpenAITranscribeModel string
	OpenAIChatModel       string
	TelegramBotToken      string

	// FFmpegPath is resolved once at startup. Empty means the binary is
	// missing: duration probes fall back and chunking is disabled.
	FFmpegPath string

	AsyncThresholdSeconds int
	ChunkWindowSeconds    int
	MaxParallelCalls      int
	MaxUploadBytes        int64
	StaleAfter            time.Duration
}

func Load() (Config, error) {
	cfg := Config{}

	cfg.Port = envOrDefault("PORT", "8080")
	cfg.BaseURL = envOrDefault("BASE_URL", fmt.Sprintf("http://localhost:%s", cfg.Port))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisAddr = envOrDefault("REDIS_ADDR", "127.0.0.1:6379")
	cfg.StorageBackend = envOrDefault("STORAGE_BACKEND", BackendPostgres)
	cfg.DataDir = envOrDefault("DATA_DIR", "data")

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAITranscribeModel = envOrDefault("OPENAI_MODEL_TRANSCRIBE", "whisper-1")
	cfg.OpenAIChatModel = envOrDefault("OPENAI_MODEL_CHAT", "gpt-4o-mini")
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	if path, err := exec.LookPath("ffmpeg"); err == nil {
		cfg.FFmpegPath = path
	} else {
		log.Println("ffmpeg not found in PATH; duration probing and chunking are disabled")
	}

	asyncThreshold, err := parseIntEnv("ASYNC_THRESHOLD_SECONDS", 1800)
	if err != nil {
		return Config{}, fmt.Errorf("parse ASYNC_THRESHOLD_SECONDS: %w", err)
	}
	cfg.AsyncThresholdSeconds = int(asyncThreshold)

	chunkWindow, err := parseIntEnv("CHUNK_WINDOW_SECONDS", 600)
	if err != nil {
		return Config{}, fmt.Errorf("parse CHUNK_WINDOW_SECONDS: %w", err)
	}
	cfg.ChunkWindowSeconds = int(chunkWindow)

	maxParallel, err := parseIntEnv("MAX_PARALLEL_CALLS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse MAX_PARALLEL_CALLS: %w", err)
	}
	cfg.MaxParallelCalls = int(maxParallel)

	maxUploadMB, err := parseIntEnv("MAX_UPLOAD_MB", 200)
	if err != nil {
		return Config{}, fmt.Errorf("parse MAX_UPLOAD_MB: %w", err)
	}
	cfg.MaxUploadBytes = maxUploadMB * 1024 * 1024

	staleAfterMinutes, err := parseIntEnv("STALE_AFTER_MINUTES", 120)
	if err != nil {
		return Config{}, fmt.Errorf("parse STALE_AFTER_MINUTES: %w", err)
	}
	cfg.StaleAfter = time.Duration(staleAfterMinutes) * time.Minute

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = absDataDir

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseIntEnv(key string, fallback int64) (int64, error) {
	value := envOrDefault(key, "")
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseInt(value, 10, 64)
}
