package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-backend/cmd"
	"chat-backend/internal/api"
	"chat-backend/internal/chat"
	"chat-backend/internal/database"
	"chat-backend/internal/llm"
	"chat-backend/internal/messaging"

	"github.com/caarlos0/env/v11"
)

const (
	StoreSqlite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type APIConfig struct {
	Port           string        `env:"PORT" envDefault:"5000"`
	Store          string        `env:"STORE" envDefault:"sqlite"`
	DatabaseURL    string        `env:"DATABASE_URL" envDefault:"./chat.db"`
	MongoURI       string        `env:"MONGODB_URI"`
	MongoDatabase  string        `env:"MONGODB_DATABASE" envDefault:"chat"`
	LLMProvider    string        `env:"LLM_PROVIDER" envDefault:"gemini"`
	LLMModel       string        `env:"LLM_MODEL" envDefault:"gemini-2.0-flash"`
	LLMAPIKey      string        `env:"LLM_API_KEY"`
	GeminiAPIKey   string        `env:"GEMINI_API_KEY"`
	OpenAIAPIKey   string        `env:"OPENAI_API_KEY"`
	LLMBaseURL     string        `env:"LLM_BASE_URL"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"50s"`
	RabbitMQURL    string        `env:"RABBITMQ_URL"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

func (cfg APIConfig) apiKey() string {
	if cfg.LLMAPIKey != "" {
		return cfg.LLMAPIKey
	}
	if cfg.LLMProvider == llm.ProviderGemini {
		return cfg.GeminiAPIKey
	}
	return cfg.OpenAIAPIKey
}

func newStore(ctx context.Context, cfg APIConfig) (chat.Store, func(), error) {
	switch cfg.Store {
	case StoreSqlite, StorePostgres:
		db, err := database.NewDatabase(cfg.Store, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closer := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return chat.NewGormStore(db), closer, nil
	case StoreMongo:
		if cfg.MongoURI == "" {
			return nil, nil, fmt.Errorf("MONGODB_URI must be set when STORE=mongo")
		}
		store, err := chat.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		closer := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			store.Close(ctx)
		}
		return store, closer, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store '%s'", cfg.Store)
	}
}

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	ctx := context.Background()

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer closeStore()

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
	log.Printf("using generator %s", generator.Name())

	var publisher messaging.Publisher
	if cfg.RabbitMQURL != "" {
		rabbit, err := messaging.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer rabbit.Close()
		publisher = rabbit
	} else {
		log.Printf("RABBITMQ_URL not set, exchange events disabled")
	}

	chats := chat.NewService(store, generator, publisher)

	r := api.NewRouter(api.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: 60 * time.Second,
	}, api.NewChatService(chats))

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
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

	log.Printf("API server listening on port %s", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.Port, err)
	}

	<-done
	log.Println("Server stopped.")
}
