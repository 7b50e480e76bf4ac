package models

// TranscriptSegment is one transcribed utterance of an episode. SegmentID is
// the transcription engine's own ordering index, unique and increasing within
// a single episode's transcript.
type TranscriptSegment struct {
	EpisodeID int64   `db:"episode_id"`
	SegmentID int     `db:"whisper_segment_id"`
	Start     float64 `db:"segment_start"`
	End       float64 `db:"segment_end"`
	Text      string  `db:"segment_text"`
}
