package transcribe

import (
	"context"

	"github.com/Bokorus/podcast-ingestion-pipeline/internal/models"
)

// Engine turns a local audio file into ordered transcript segments.
// Implementations may hold expensive state (model weights); one instance is
// meant to be shared across a whole ingestion run.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string) ([]models.TranscriptSegment, error)
}
