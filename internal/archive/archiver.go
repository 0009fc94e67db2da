// Package archive copies chat exchange events into an object store so that
// conversations can be audited without touching the primary database.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chat-backend/internal/messaging"
	"chat-backend/internal/storage"
)

const keyPrefix = "exchanges/"

type Archiver struct {
	store  storage.ObjectStore
	bucket string
}

func NewArchiver(store storage.ObjectStore, bucket string) *Archiver {
	return &Archiver{store: store, bucket: bucket}
}

// ExchangeKey is deterministic so a redelivered event overwrites its own
// object instead of producing a duplicate.
func ExchangeKey(payload messaging.ExchangePayload) string {
	return fmt.Sprintf("%s%s/%s.json", keyPrefix, payload.ChatId, payload.CreatedAt.UTC().Format("20060102T150405.000000000Z"))
}

func (a *Archiver) Archive(ctx context.Context, task messaging.Task) (string, error) {
	var payload messaging.ExchangePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.ChatId == "" {
		if rejectErr := task.Reject(); rejectErr != nil {
			slog.Error("error rejecting task", "error", rejectErr)
		}
		if err == nil {
			err = fmt.Errorf("missing chat id")
		}
		return "", fmt.Errorf("invalid exchange payload: %w", err)
	}

	key := ExchangeKey(payload)
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		task.Nack() //nolint:errcheck
		return "", fmt.Errorf("error encoding exchange: %w", err)
	}

	if err := a.store.PutObject(ctx, a.bucket, key, bytes.NewReader(body)); err != nil {
		if nackErr := task.Nack(); nackErr != nil {
			slog.Error("error nacking task", "error", nackErr)
		}
		return "", err
	}

	if err := task.Ack(); err != nil {
		return key, fmt.Errorf("error acking task: %w", err)
	}

	return key, nil
}

// Run archives tasks with the given number of workers until tasks is closed
// or ctx is cancelled. Tasks not yet picked up when ctx ends stay unacked.
func (a *Archiver) Run(ctx context.Context, tasks <-chan messaging.Task, workers int) error {
	if err := a.store.CreateBucket(ctx, a.bucket); err != nil {
		return fmt.Errorf("error preparing archive bucket: %w", err)
	}

	queue := make(chan messaging.Task)
	completed := make(chan CompletedTask[string])

	RunInPool(func(task messaging.Task) (string, error) {
		return a.Archive(ctx, task)
	}, queue, completed, workers)

	go func() {
		defer close(queue)
		for {
			select {
			case <-ctx.Done():
				return
			case task, ok := <-tasks:
				if !ok {
					return
				}
				select {
				case queue <- task:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	start := time.Now()
	archived, failed := 0, 0
	for res := range completed {
		if res.Error != nil {
			failed++
			slog.Error("error archiving exchange", "error", res.Error)
			continue
		}
		archived++
		slog.Debug("exchange archived", "key", res.Result)
	}

	slog.Info("archiver stopped", "archived", archived, "failed", failed, "uptime", time.Since(start))

	return nil
}
