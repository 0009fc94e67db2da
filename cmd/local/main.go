package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"chat-backend/cmd"
	"chat-backend/internal/api"
	"chat-backend/internal/archive"
	"chat-backend/internal/chat"
	"chat-backend/internal/database"
	"chat-backend/internal/llm"
	"chat-backend/internal/messaging"
	"chat-backend/internal/storage"

	"github.com/caarlos0/env/v11"
)

// Config for running the whole service in one process: sqlite for chats, an
// in-memory queue for exchange events and a local directory for the archive.
type Config struct {
	Root        string        `env:"ROOT" envDefault:"./chat-local"`
	Port        int           `env:"PORT" envDefault:"3001"`
	LLMProvider string        `env:"LLM_PROVIDER" envDefault:"gemini"`
	LLMModel    string        `env:"LLM_MODEL" envDefault:"gemini-2.0-flash"`
	LLMAPIKey   string        `env:"LLM_API_KEY"`
	GeminiKey   string        `env:"GEMINI_API_KEY"`
	OpenAIKey   string        `env:"OPENAI_API_KEY"`
	LLMBaseURL  string        `env:"LLM_BASE_URL"`
	LLMTimeout  time.Duration `env:"LLM_TIMEOUT" envDefault:"50s"`
	QueueSize   int           `env:"QUEUE_SIZE" envDefault:"1000"`
}

const archiveBucket = "chat-archive"

func (cfg Config) apiKey() string {
	if cfg.LLMAPIKey != "" {
		return cfg.LLMAPIKey
	}
	if cfg.LLMProvider == llm.ProviderGemini {
		return cfg.GeminiKey
	}
	return cfg.OpenAIKey
}

func main() {
	cmd.LoadEnvFile()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	ctx := context.Background()

	db, err := database.NewDatabase(database.DriverSqlite, filepath.Join(cfg.Root, "db", "chat.db"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	generator, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		APIKey:   cfg.apiKey(),
		BaseURL:  cfg.LLMBaseURL,
		Timeout:  cfg.LLMTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to initialize llm: %v", err)
	}

	objectStore, err := storage.NewLocalObjectStore(filepath.Join(cfg.Root, "archive"))
	if err != nil {
		log.Fatalf("Failed to initialize archive store: %v", err)
	}

	queue := messaging.NewInMemoryQueue(cfg.QueueSize)
	tasks := queue.Tasks()

	archiverDone := make(chan struct{})
	go func() {
		defer close(archiverDone)
		if err := archive.NewArchiver(objectStore, archiveBucket).Run(ctx, tasks, 1); err != nil {
			slog.Error("archiver stopped with error", "error", err)
		}
	}()

	chats := chat.NewService(chat.NewGormStore(db), generator, queue)
	server := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: api.NewRouter(api.RouterConfig{}, api.NewChatService(chats)),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("local chat server listening on port %d, data in %s", cfg.Port, cfg.Root)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v\n", cfg.Port, err)
	}

	// Shutdown returns once in-flight requests are done, so nothing is left
	// publishing when the queue closes.
	<-done
	queue.Close()
	<-archiverDone

	log.Println("Server stopped.")
}
