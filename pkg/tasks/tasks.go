package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/Bokorus/podcast-ingestion-pipeline/internal/models"
)

const (
	TypeIngestAllFeeds    = "feeds:ingest"
	TypeProcessFeed       = "feed:process"
	TypeTranscribeEpisode = "episode:transcribe"
)

type ProcessFeedTaskPayload struct {
	RSSURL     string
	YearFilter int
}

func NewProcessFeedTask(rssURL string, yearFilter int) (*asynq.Task, error) {
	payload, err := json.Marshal(ProcessFeedTaskPayload{RSSURL: rssURL, YearFilter: yearFilter})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProcessFeed, payload), nil
}

// TranscribeEpisodeTaskPayload carries the full candidate so the worker does
// not have to re-discover the feed entry.
type TranscribeEpisodeTaskPayload struct {
	Episode models.Episode
}

func NewTranscribeEpisodeTask(episode models.Episode) (*asynq.Task, error) {
	payload, err := json.Marshal(TranscribeEpisodeTaskPayload{Episode: episode})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTranscribeEpisode, payload), nil
}

func NewIngestAllFeedsTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeIngestAllFeeds, nil), nil
}
