package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/Bokorus/podcast-ingestion-pipeline/internal/db"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/pipeline"
	"github.com/Bokorus/podcast-ingestion-pipeline/pkg/tasks"
)

// TaskHandler processes the ingestion task chain: one feeds:ingest task fans
// out into per-feed tasks, each of which fans out into per-episode
// transcription tasks. Episode failures stay contained to their own task.
type TaskHandler struct {
	asynqClient     tasks.TaskEnqueuer
	reader          pipeline.Discoverer
	stage           pipeline.StageRunner
	persister       pipeline.EpisodeStorer
	feedSourcesPath string
	yearFilter      int

	// exists is the idempotency gate, swapped in tests.
	exists func(audioURL string) (bool, error)
}

func NewTaskHandler(client tasks.TaskEnqueuer, reader pipeline.Discoverer, stage pipeline.StageRunner, persister pipeline.EpisodeStorer, feedSourcesPath string, yearFilter int) *TaskHandler {
	return &TaskHandler{
		asynqClient:     client,
		reader:          reader,
		stage:           stage,
		persister:       persister,
		feedSourcesPath: feedSourcesPath,
		yearFilter:      yearFilter,
		exists:          db.EpisodeExists,
	}
}

// HandleIngestAllFeedsTask enqueues one feed:process task per configured feed.
func (h *TaskHandler) HandleIngestAllFeedsTask(ctx context.Context, t *asynq.Task) error {
	log.Println("Ingesting all feeds...")

	feedURLs, err := pipeline.ReadFeedSources(h.feedSourcesPath)
	if err != nil {
		return fmt.Errorf("failed to read feed sources: %w", err)
	}

	for _, rssURL := range feedURLs {
		task, err := tasks.NewProcessFeedTask(rssURL, h.yearFilter)
		if err != nil {
			log.Printf("failed to create process feed task for %s: %v", rssURL, err)
			continue
		}
		if _, err := h.asynqClient.Enqueue(task); err != nil {
			log.Printf("failed to enqueue process feed task for %s: %v", rssURL, err)
			continue
		}
	}

	log.Println("Finished ingesting all feeds.")
	return nil
}

// HandleProcessFeedTask discovers a feed's episodes and enqueues a
// transcription task for each one not already persisted.
func (h *TaskHandler) HandleProcessFeedTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.ProcessFeedTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	log.Printf("Processing feed: %s", p.RSSURL)

	episodes, err := h.reader.FetchEpisodes(ctx, p.RSSURL, p.YearFilter)
	if err != nil {
		return fmt.Errorf("failed to fetch episodes for %s: %w", p.RSSURL, err)
	}

	for _, episode := range episodes {
		exists, err := h.exists(episode.AudioURL)
		if err != nil {
			log.Printf("failed to check episode %s: %v", episode.AudioURL, err)
			continue
		}
		if exists {
			continue
		}

		task, err := tasks.NewTranscribeEpisodeTask(episode)
		if err != nil {
			log.Printf("failed to create transcribe task for %s: %v", episode.AudioURL, err)
			continue
		}
		if _, err := h.asynqClient.Enqueue(task); err != nil {
			log.Printf("failed to enqueue transcribe task for %s: %v", episode.AudioURL, err)
			continue
		}
	}

	return nil
}

// HandleTranscribeEpisodeTask runs one episode through acquisition,
// transcription and persistence. Returning an error hands the episode back
// to asynq for a delayed retry.
func (h *TaskHandler) HandleTranscribeEpisodeTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.TranscribeEpisodeTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	episode := p.Episode
	log.Printf("Transcribing episode: %s", episode.AudioURL)

	// Re-check: the episode may have been persisted between discovery and
	// this task running.
	exists, err := h.exists(episode.AudioURL)
	if err != nil {
		return fmt.Errorf("failed to check episode existence: %w", err)
	}
	if exists {
		log.Printf("Skipping existing episode: %s", episode.AudioURL)
		return nil
	}

	segments, err := h.stage.Run(ctx, episode.AudioURL)
	if err != nil {
		return fmt.Errorf("failed to transcribe episode %s: %w", episode.AudioURL, err)
	}

	if _, err := h.persister.Store(episode, segments); err != nil {
		if errors.Is(err, db.ErrDuplicateEpisode) {
			log.Printf("Skipping existing episode: %s", episode.AudioURL)
			return nil
		}
		return fmt.Errorf("failed to store episode %s: %w", episode.AudioURL, err)
	}

	log.Printf("Successfully transcribed episode: %s", episode.AudioURL)
	return nil
}
