package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Bokorus/podcast-ingestion-pipeline/internal/audio"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/db"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/feed"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/pipeline"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/transcribe"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	initDB := flag.Bool("init-db", false, "create database tables and exit")
	flag.Parse()

	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	db.InitDB()

	if *initDB {
		if err := db.CreateTables(); err != nil {
			log.Fatalf("could not create tables: %v", err)
		}
		return
	}

	feedSourcesPath := getenv("FEED_SOURCES", "rss_feeds.csv")
	yearFilter := getenvInt("YEAR_FILTER", 2024)
	workerCount := getenvInt("WORKER_COUNT", 1)
	maxAttempts := getenvInt("STORE_MAX_ATTEMPTS", pipeline.DefaultRetryConfig.MaxAttempts)
	baseDelaySeconds := getenvInt("STORE_RETRY_BASE_SECONDS", int(pipeline.DefaultRetryConfig.BaseDelay/time.Second))
	whisperModel := getenv("WHISPER_MODEL", "base")
	audioDir := getenv("AUDIO_DIR", "audio")
	keepAudio := os.Getenv("KEEP_AUDIO") == "true"

	feedURLs, err := pipeline.ReadFeedSources(feedSourcesPath)
	if err != nil {
		log.Fatalf("could not read feed sources: %v", err)
	}

	// One engine for the whole run; model initialization is expensive.
	engine := transcribe.NewWhisperEngine(whisperModel)
	fetcher := audio.NewFetcher(audioDir, 1, 2)
	stage := pipeline.NewStage(fetcher, engine, keepAudio)
	persister := pipeline.NewPersister(pipeline.RetryConfig{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Duration(baseDelaySeconds) * time.Second,
	})

	orchestrator := pipeline.NewOrchestrator(feed.NewReader(), stage, persister, pipeline.Config{
		YearFilter:  yearFilter,
		WorkerCount: workerCount,
	})

	log.Printf("Pipeline starting (commit: %s)", CommitSHA)
	summary := orchestrator.Run(context.Background(), feedURLs)
	if summary.Failed > 0 {
		log.Printf("%d episodes failed; they will be retried on the next run", summary.Failed)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return n
}
