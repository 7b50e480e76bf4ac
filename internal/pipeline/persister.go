package pipeline

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/Bokorus/podcast-ingestion-pipeline/internal/db"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/models"
)

// RetryConfig bounds the persistence retry loop. Before retry attempt n the
// delay is drawn uniformly from [0, BaseDelay * 2^(n-1)] (full jitter), so
// concurrently retrying episodes do not synchronize into retry storms.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryConfig matches the original deployment: up to 4 total attempts
// with a 30 second backoff base.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts: 4,
	BaseDelay:   30 * time.Second,
}

// Persister stores episodes with bounded retry. Each attempt is one
// StoreEpisode call, which scopes its own transaction; nothing is shared
// between attempts.
type Persister struct {
	cfg RetryConfig

	// Swapped in tests.
	store     func(models.Episode, []models.TranscriptSegment) (int64, error)
	sleep     func(time.Duration)
	randFloat func() float64
}

func NewPersister(cfg RetryConfig) *Persister {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Persister{
		cfg:       cfg,
		store:     db.StoreEpisode,
		sleep:     time.Sleep,
		randFloat: rand.Float64,
	}
}

// Store persists the episode and its segments, retrying transient failures
// up to the configured attempt ceiling. A duplicate episode is not a
// transient failure and is returned immediately. After exhausting attempts
// the last failure is surfaced to the caller.
func (p *Persister) Store(episode models.Episode, segments []models.TranscriptSegment) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			ceiling := p.cfg.BaseDelay << (attempt - 2)
			delay := time.Duration(p.randFloat() * float64(ceiling))
			log.Printf("Store attempt %d/%d for %s in %v", attempt, p.cfg.MaxAttempts, episode.AudioURL, delay)
			p.sleep(delay)
		}

		id, err := p.store(episode, segments)
		if err == nil {
			return id, nil
		}
		if errors.Is(err, db.ErrDuplicateEpisode) {
			return 0, err
		}
		lastErr = err
		log.Printf("Failed to insert episode %s (attempt %d/%d): %v", episode.AudioURL, attempt, p.cfg.MaxAttempts, err)
	}
	return 0, fmt.Errorf("store failed after %d attempts: %w", p.cfg.MaxAttempts, lastErr)
}
