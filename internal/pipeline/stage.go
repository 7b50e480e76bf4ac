package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/Bokorus/podcast-ingestion-pipeline/internal/models"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/transcribe"
)

// AudioFetcher downloads a remote audio resource to a local file and
// returns its path. Implemented by audio.Fetcher.
type AudioFetcher interface {
	Fetch(ctx context.Context, audioURL string) (string, error)
}

// Stage is the acquisition and transcription step: download the episode
// audio, transcribe it with the run's shared engine, and remove the local
// artifact afterwards on every path unless KeepAudio is set.
type Stage struct {
	fetcher   AudioFetcher
	engine    transcribe.Engine
	keepAudio bool
}

// NewStage wires the stage to a fetcher and the run's shared engine. The
// engine is owned by the caller; the stage never constructs its own.
func NewStage(fetcher AudioFetcher, engine transcribe.Engine, keepAudio bool) *Stage {
	return &Stage{fetcher: fetcher, engine: engine, keepAudio: keepAudio}
}

// Run acquires and transcribes one episode's audio.
func (s *Stage) Run(ctx context.Context, audioURL string) ([]models.TranscriptSegment, error) {
	audioPath, err := s.fetcher.Fetch(ctx, audioURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download audio: %w", err)
	}
	if !s.keepAudio {
		defer func() {
			if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
				log.Printf("Failed to remove audio file %s: %v", audioPath, err)
			}
		}()
	}

	segments, err := s.engine.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to transcribe %s: %w", audioPath, err)
	}
	log.Printf("Transcribed %d segments from audio file: %s", len(segments), audioPath)
	return segments, nil
}
