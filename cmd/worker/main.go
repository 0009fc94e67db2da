package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"chat-backend/cmd"
	"chat-backend/internal/archive"
	"chat-backend/internal/messaging"
	"chat-backend/internal/storage"

	"github.com/caarlos0/env/v11"
)

type WorkerConfig struct {
	RabbitMQURL       string `env:"RABBITMQ_URL,notEmpty,required"`
	ArchiveStore      string `env:"ARCHIVE_STORE" envDefault:"local"`
	ArchiveDir        string `env:"ARCHIVE_DIR" envDefault:"./archive"`
	ArchiveBucket     string `env:"ARCHIVE_BUCKET" envDefault:"chat-archive"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	WorkerConcurrency int    `env:"CONCURRENCY" envDefault:"4"`
}

func newObjectStore(ctx context.Context, cfg WorkerConfig) (storage.ObjectStore, error) {
	switch cfg.ArchiveStore {
	case "s3":
		return storage.NewS3ObjectStore(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3EndpointURL,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		return storage.NewLocalObjectStore(cfg.ArchiveDir)
	}
}

func main() {
	log.Println("Starting Worker Process...")

	cmd.LoadEnvFile()

	var cfg WorkerConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	objectStore, err := newObjectStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize archive store: %v", err)
	}

	receiver, err := messaging.NewRabbitMQReceiver(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer receiver.Close()

	archiver := archive.NewArchiver(objectStore, cfg.ArchiveBucket)

	log.Printf("Worker started with %d threads, archiving to %s bucket %s. Press Ctrl+C to exit.", cfg.WorkerConcurrency, cfg.ArchiveStore, cfg.ArchiveBucket)

	if err := archiver.Run(ctx, receiver.Tasks(), cfg.WorkerConcurrency); err != nil {
		log.Fatalf("Worker stopped with error: %v", err)
	}

	log.Println("Worker process stopped.")
}
