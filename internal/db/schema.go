package db

import (
	"fmt"
	"log"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS episodes (
		id BIGSERIAL PRIMARY KEY,
		episode_title TEXT NOT NULL,
		feed_title TEXT NOT NULL,
		description TEXT NOT NULL,
		summary TEXT NOT NULL,
		rss_url TEXT NOT NULL,
		audio_url TEXT NOT NULL,
		episode_link TEXT NOT NULL,
		published_at TIMESTAMPTZ NOT NULL
	)`,
	// The unique index makes check-and-insert atomic at the store layer:
	// concurrent writers racing past the existence check get a
	// unique-violation instead of a duplicate row.
	`CREATE UNIQUE INDEX IF NOT EXISTS episodes_audio_url_key ON episodes (audio_url)`,
	`CREATE TABLE IF NOT EXISTS transcript_segments (
		episode_id BIGINT NOT NULL REFERENCES episodes (id),
		whisper_segment_id INT NOT NULL,
		segment_start DOUBLE PRECISION NOT NULL,
		segment_end DOUBLE PRECISION NOT NULL,
		segment_text TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transcript_segments_episode_id_idx ON transcript_segments (episode_id)`,
}

// CreateTables creates the episodes and transcript_segments tables if they
// do not exist yet.
func CreateTables() error {
	for _, stmt := range schemaStatements {
		if _, err := DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	log.Println("Database schema is up to date")
	return nil
}
