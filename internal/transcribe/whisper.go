package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Bokorus/podcast-ingestion-pipeline/internal/models"
)

// ErrFFmpegMissing reports that the ffmpeg binary whisper needs for decoding
// is not installed. It is an environment problem, not a transcription
// failure, so callers can surface it distinctly instead of retrying.
var ErrFFmpegMissing = errors.New("ffmpeg not found")

var (
	execCommandContext = exec.CommandContext
	execLookPath       = exec.LookPath
)

// WhisperEngine transcribes audio by invoking the whisper CLI. Loading model
// weights dominates a single inference, so the process is kept warm by the
// CLI's model cache and one engine value is reused for a whole run. The
// underlying invocation is not safe for concurrent use; calls are serialized.
type WhisperEngine struct {
	model string
	mu    sync.Mutex
}

// NewWhisperEngine returns an engine using the named whisper model size
// (tiny, base, small, medium, large).
func NewWhisperEngine(model string) *WhisperEngine {
	return &WhisperEngine{model: model}
}

type whisperSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type whisperResult struct {
	Segments []whisperSegment `json:"segments"`
}

// Transcribe runs whisper over the audio file and returns its utterance
// segments in engine order, with whitespace-trimmed text.
func (e *WhisperEngine) Transcribe(ctx context.Context, audioPath string) ([]models.TranscriptSegment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := execLookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: install ffmpeg and ensure it is on PATH", ErrFFmpegMissing)
	}

	outDir, err := os.MkdirTemp("", "whisper-")
	if err != nil {
		return nil, fmt.Errorf("failed to create whisper output directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	cmd := execCommandContext(ctx, "whisper", audioPath,
		"--model", e.model,
		"--output_format", "json",
		"--output_dir", outDir,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w, output: %s", err, string(output))
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(outDir, base+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper output: %w", err)
	}

	var result whisperResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse whisper output: %w", err)
	}

	segments := make([]models.TranscriptSegment, 0, len(result.Segments))
	for _, seg := range result.Segments {
		segments = append(segments, models.TranscriptSegment{
			SegmentID: seg.ID,
			Start:     seg.Start,
			End:       seg.End,
			Text:      strings.TrimSpace(seg.Text),
		})
	}
	return segments, nil
}
