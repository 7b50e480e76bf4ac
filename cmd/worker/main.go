package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/Bokorus/podcast-ingestion-pipeline/internal/audio"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/db"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/feed"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/pipeline"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/transcribe"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/worker"
	"github.com/Bokorus/podcast-ingestion-pipeline/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	db.InitDB()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	concurrency := 1
	if v := os.Getenv("WORKER_COUNT"); v != "" {
		concurrency, err = strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid WORKER_COUNT: %v", err)
		}
	}

	feedSourcesPath := os.Getenv("FEED_SOURCES")
	if feedSourcesPath == "" {
		feedSourcesPath = "rss_feeds.csv"
	}
	yearFilter := 2024
	if v := os.Getenv("YEAR_FILTER"); v != "" {
		yearFilter, err = strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid YEAR_FILTER: %v", err)
		}
	}
	whisperModel := os.Getenv("WHISPER_MODEL")
	if whisperModel == "" {
		whisperModel = "base"
	}
	audioDir := os.Getenv("AUDIO_DIR")
	if audioDir == "" {
		audioDir = "audio"
	}

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	defer client.Close()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			// One transcription at a time unless configured higher; the
			// whisper invocation is CPU bound.
			Concurrency: concurrency,
			Queues: map[string]int{
				"high":    2,
				"default": 1,
			},
			// Custom retry delay function for exponential backoff
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := 5 * time.Minute
				maxDelay := 24 * time.Hour

				// Exponential backoff: 5min, 10min, 20min, 40min, 80min, etc.
				for i := 0; i < n; i++ {
					delay *= 2
					if delay > maxDelay {
						delay = maxDelay
						break
					}
				}

				log.Printf("Task %s failed %d times, retrying in %v", task.Type(), n+1, delay)
				return delay
			},
		},
	)

	engine := transcribe.NewWhisperEngine(whisperModel)
	fetcher := audio.NewFetcher(audioDir, 1, 2)
	stage := pipeline.NewStage(fetcher, engine, os.Getenv("KEEP_AUDIO") == "true")
	persister := pipeline.NewPersister(pipeline.DefaultRetryConfig)

	taskHandler := worker.NewTaskHandler(client, feed.NewReader(), stage, persister, feedSourcesPath, yearFilter)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeIngestAllFeeds, taskHandler.HandleIngestAllFeedsTask)
	mux.HandleFunc(tasks.TypeProcessFeed, taskHandler.HandleProcessFeedTask)
	mux.HandleFunc(tasks.TypeTranscribeEpisode, taskHandler.HandleTranscribeEpisodeTask)

	log.Printf("Worker starting (commit: %s)", CommitSHA)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}
