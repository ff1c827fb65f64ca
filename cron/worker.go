package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"lingodoc/config"
	documentRepo "lingodoc/database/repository/document"
	"lingodoc/models"
	"lingodoc/services/notify"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// DraftRetentionPeriod is how long an unpaid draft with no file survives
// before the cleanup task removes it.
const DraftRetentionPeriod = 30 * 24 * time.Hour

// InitTaskWorker runs the async worker in background.
func InitTaskWorker(sender *notify.HTTPIntakeSender, docs documentRepo.DocumentRepository) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(notify.TaskTypeIntakeNotify, handleIntakeTask(sender))
	mux.HandleFunc(notify.TaskTypeDraftCleanup, handleDraftCleanupTask(docs))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[TaskWorker] 🚀 Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[TaskWorker] ❌ Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[TaskWorker] ❗ Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleIntakeTask(sender *notify.HTTPIntakeSender) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.IntakeNotification
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[IntakeHandler] 🔴 Invalid payload: %v", err)
			return err
		}

		log.Printf("[IntakeHandler] 📨 Delivering intake notification for document %s", p.DocumentID)

		if err := sender.NotifyIntake(ctx, p); err != nil {
			log.Printf("[IntakeHandler] ❌ Failed to deliver notification: %v", err)
			return err
		}
		return nil
	}
}

func handleDraftCleanupTask(docs documentRepo.DocumentRepository) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		cutoff := time.Now().Add(-DraftRetentionPeriod)
		removed, err := docs.DeleteAbandonedDrafts(cutoff)
		if err != nil {
			log.Printf("[DraftCleanup] ❌ Failed to remove abandoned drafts: %v", err)
			return err
		}
		log.Printf("[DraftCleanup] 🧹 Removed %d abandoned drafts older than %s", removed, cutoff.Format(time.RFC3339))
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[TaskWorker] ⚠️ Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
