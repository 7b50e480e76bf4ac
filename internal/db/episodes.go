package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"

	"github.com/Bokorus/podcast-ingestion-pipeline/internal/models"
)

// ErrDuplicateEpisode is returned by StoreEpisode when the unique index on
// episodes.audio_url rejects the insert. It signals "already persisted" and
// must not be retried.
var ErrDuplicateEpisode = errors.New("episode already exists")

const pqUniqueViolation = "23505"

// EpisodeExists reports whether an episode with the given audio URL has
// already been persisted. It never mutates state; callers use it to skip
// episodes before spending download and transcription cost.
func EpisodeExists(audioURL string) (bool, error) {
	var one int
	err := DB.Get(&one, "SELECT 1 FROM episodes WHERE audio_url = $1 LIMIT 1", audioURL)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check episode existence: %w", err)
	}
	return true, nil
}

// StoreEpisode writes an episode and all of its transcript segments in a
// single transaction. Either every row becomes visible or none does. A
// unique-violation on audio_url is mapped to ErrDuplicateEpisode.
func StoreEpisode(episode models.Episode, segments []models.TranscriptSegment) (int64, error) {
	tx, err := DB.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var episodeID int64
	err = tx.Get(&episodeID, `
		INSERT INTO episodes (
			episode_title, feed_title, description, summary,
			rss_url, audio_url, episode_link, published_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		episode.Title, episode.FeedTitle, episode.Description, episode.Summary,
		episode.RSSURL, episode.AudioURL, episode.EpisodeLink, episode.PublishedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return 0, ErrDuplicateEpisode
		}
		return 0, fmt.Errorf("failed to insert episode: %w", err)
	}

	for _, seg := range segments {
		_, err = tx.Exec(`
			INSERT INTO transcript_segments (
				episode_id, whisper_segment_id, segment_start, segment_end, segment_text
			) VALUES ($1, $2, $3, $4, $5)`,
			episodeID, seg.SegmentID, seg.Start, seg.End, seg.Text)
		if err != nil {
			return 0, fmt.Errorf("failed to insert transcript segment %d: %w", seg.SegmentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit episode transaction: %w", err)
	}
	return episodeID, nil
}

// GetEpisodeByID returns a single persisted episode.
func GetEpisodeByID(id int64) (models.Episode, error) {
	episode := models.Episode{}
	err := DB.Get(&episode, "SELECT * FROM episodes WHERE id = $1", id)
	return episode, err
}

// GetEpisodes returns persisted episodes, newest first.
func GetEpisodes(limit int) ([]models.Episode, error) {
	query := `
		SELECT id, episode_title, feed_title, description, summary,
		       rss_url, audio_url, episode_link, published_at
		FROM episodes
		ORDER BY published_at DESC, id DESC
		LIMIT $1
	`
	var episodes []models.Episode
	err := DB.Select(&episodes, query, limit)
	if err != nil {
		log.Printf("Error getting episodes: %v", err)
		return nil, err
	}
	return episodes, nil
}

// GetEpisodesByFeedURL returns all persisted episodes of one feed, newest first.
func GetEpisodesByFeedURL(rssURL string) ([]models.Episode, error) {
	query := `
		SELECT id, episode_title, feed_title, description, summary,
		       rss_url, audio_url, episode_link, published_at
		FROM episodes
		WHERE rss_url = $1
		ORDER BY published_at DESC, id DESC
	`
	var episodes []models.Episode
	err := DB.Select(&episodes, query, rssURL)
	if err != nil {
		log.Printf("Error getting episodes for feed %s: %v", rssURL, err)
		return nil, err
	}
	return episodes, nil
}

// GetSegmentsByEpisodeID returns an episode's transcript in segment order.
func GetSegmentsByEpisodeID(episodeID int64) ([]models.TranscriptSegment, error) {
	query := `
		SELECT episode_id, whisper_segment_id, segment_start, segment_end, segment_text
		FROM transcript_segments
		WHERE episode_id = $1
		ORDER BY whisper_segment_id ASC
	`
	var segments []models.TranscriptSegment
	err := DB.Select(&segments, query, episodeID)
	if err != nil {
		log.Printf("Error getting segments for episode %d: %v", episodeID, err)
		return nil, err
	}
	return segments, nil
}
