package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/Bokorus/podcast-ingestion-pipeline/internal/db"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/models"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/transcribe"
)

// Discoverer yields episode candidates for a feed. Implemented by feed.Reader.
type Discoverer interface {
	FetchEpisodes(ctx context.Context, rssURL string, yearFilter int) ([]models.Episode, error)
}

// StageRunner is the acquisition and transcription step. Implemented by Stage.
type StageRunner interface {
	Run(ctx context.Context, audioURL string) ([]models.TranscriptSegment, error)
}

// EpisodeStorer persists one episode with its segments. Implemented by Persister.
type EpisodeStorer interface {
	Store(episode models.Episode, segments []models.TranscriptSegment) (int64, error)
}

// EpisodeStatus is the terminal state of one episode within a run.
type EpisodeStatus string

const (
	StatusProcessed EpisodeStatus = "PROCESSED"
	StatusSkipped   EpisodeStatus = "SKIPPED"
	StatusFailed    EpisodeStatus = "FAILED"
)

// EpisodeResult reports how one episode ended up.
type EpisodeResult struct {
	Episode   models.Episode
	Status    EpisodeStatus
	EpisodeID int64
	Segments  int
	Err       error
}

// Summary aggregates one full run.
type Summary struct {
	Feeds      int
	Discovered int
	Processed  int
	Skipped    int
	Failed     int
}

// Config holds the run parameters.
type Config struct {
	// YearFilter restricts discovery to episodes published in this year.
	// Zero disables the filter. A fixed value keeps runs reproducible.
	YearFilter int
	// WorkerCount bounds concurrent episode processing. 1 gives strictly
	// sequential processing.
	WorkerCount int
}

// Orchestrator sequences a run: feeds, then episodes, then the gate,
// acquisition/transcription and persistence stages per episode. One failed
// episode never aborts the run.
type Orchestrator struct {
	reader    Discoverer
	stage     StageRunner
	persister EpisodeStorer
	cfg       Config

	// exists is the idempotency gate, swapped in tests.
	exists func(audioURL string) (bool, error)
}

func NewOrchestrator(reader Discoverer, stage StageRunner, persister EpisodeStorer, cfg Config) *Orchestrator {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	return &Orchestrator{
		reader:    reader,
		stage:     stage,
		persister: persister,
		cfg:       cfg,
		exists:    db.EpisodeExists,
	}
}

// Run processes every feed in order and returns the aggregated summary.
func (o *Orchestrator) Run(ctx context.Context, feedURLs []string) Summary {
	log.Println("Starting ingestion run")
	var summary Summary

	for _, rssURL := range feedURLs {
		episodes, err := o.reader.FetchEpisodes(ctx, rssURL, o.cfg.YearFilter)
		if err != nil {
			// A malformed or unreachable feed yields nothing; the run continues.
			log.Printf("Skipping feed %s: %v", rssURL, err)
			continue
		}
		summary.Feeds++
		summary.Discovered += len(episodes)
		log.Printf("Fetched %d episodes for RSS URL: %s", len(episodes), rssURL)

		for _, result := range o.processEpisodes(ctx, episodes) {
			switch result.Status {
			case StatusProcessed:
				summary.Processed++
			case StatusSkipped:
				summary.Skipped++
			case StatusFailed:
				summary.Failed++
				log.Printf("Episode failed: %s: %v", result.Episode.AudioURL, result.Err)
			}
		}
	}

	log.Printf("Completed ingestion run: %d feeds, %d discovered, %d processed, %d skipped, %d failed",
		summary.Feeds, summary.Discovered, summary.Processed, summary.Skipped, summary.Failed)
	return summary
}

type indexedResult struct {
	idx    int
	result EpisodeResult
}

// processEpisodes runs one feed's episodes over a bounded worker pool and
// collects one result per episode, reported in discovery order.
func (o *Orchestrator) processEpisodes(ctx context.Context, episodes []models.Episode) []EpisodeResult {
	jobs := make(chan int)
	resultCh := make(chan indexedResult)

	var wg sync.WaitGroup
	for w := 0; w < o.cfg.WorkerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				resultCh <- indexedResult{idx: i, result: o.ProcessEpisode(ctx, episodes[i])}
			}
		}()
	}
	go func() {
		for i := range episodes {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
		close(resultCh)
	}()

	results := make([]EpisodeResult, len(episodes))
	for ir := range resultCh {
		results[ir.idx] = ir.result
	}
	return results
}

// ProcessEpisode takes one episode through gate, acquisition/transcription
// and persistence, and returns its terminal state. Every error is captured
// in the result rather than propagated.
func (o *Orchestrator) ProcessEpisode(ctx context.Context, episode models.Episode) EpisodeResult {
	exists, err := o.exists(episode.AudioURL)
	if err != nil {
		return EpisodeResult{Episode: episode, Status: StatusFailed, Err: err}
	}
	if exists {
		log.Printf("Skipping existing episode: %s", episode.AudioURL)
		return EpisodeResult{Episode: episode, Status: StatusSkipped}
	}

	segments, err := o.stage.Run(ctx, episode.AudioURL)
	if err != nil {
		if errors.Is(err, transcribe.ErrFFmpegMissing) {
			log.Printf("Environment problem, fix before retrying: %v", err)
		}
		return EpisodeResult{Episode: episode, Status: StatusFailed, Err: err}
	}
	logTranscriptPreview(episode, segments)

	episodeID, err := o.persister.Store(episode, segments)
	if errors.Is(err, db.ErrDuplicateEpisode) {
		// A concurrent writer won the race past the gate; same outcome as
		// the gate catching it.
		log.Printf("Skipping existing episode: %s", episode.AudioURL)
		return EpisodeResult{Episode: episode, Status: StatusSkipped}
	}
	if err != nil {
		return EpisodeResult{Episode: episode, Status: StatusFailed, Err: err}
	}

	log.Printf("Inserted episode %s with %d segments", episode.Title, len(segments))
	return EpisodeResult{Episode: episode, Status: StatusProcessed, EpisodeID: episodeID, Segments: len(segments)}
}

func logTranscriptPreview(episode models.Episode, segments []models.TranscriptSegment) {
	log.Printf("Episode: %s", episode.Title)
	if len(segments) == 0 {
		log.Println("No transcript segments available.")
		return
	}
	preview := segments[0].Text
	if len(preview) > 100 {
		preview = preview[:100]
	}
	log.Printf("First segment (first 100 chars): %s", preview)
}
