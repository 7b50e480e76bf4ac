package db

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/Bokorus/podcast-ingestion-pipeline/internal/models"
)

func newMockDB(t *testing.T) sqlmock.Sqlmock {
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	originalDB := DB
	DB = sqlx.NewDb(mockDb, "sqlmock")
	t.Cleanup(func() {
		DB = originalDB
		mockDb.Close()
	})
	return mock
}

func testEpisode() models.Episode {
	return models.Episode{
		Title:       "Episode One",
		FeedTitle:   "Feed A",
		Description: "desc",
		Summary:     "summary",
		RSSURL:      "http://feeds.example.com/a.xml",
		AudioURL:    "http://x/1.mp3",
		EpisodeLink: "http://x/episodes/1",
		PublishedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testSegments() []models.TranscriptSegment {
	return []models.TranscriptSegment{
		{SegmentID: 0, Start: 0, End: 4.2, Text: "Hello and welcome."},
		{SegmentID: 1, Start: 4.2, End: 9.8, Text: "Today we talk about feeds."},
	}
}

func TestEpisodeExists(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectQuery(`SELECT 1 FROM episodes WHERE audio_url = \$1 LIMIT 1`).
		WithArgs("http://x/1.mp3").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := EpisodeExists("http://x/1.mp3")
	assert.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(`SELECT 1 FROM episodes WHERE audio_url = \$1 LIMIT 1`).
		WithArgs("http://x/2.mp3").
		WillReturnError(sql.ErrNoRows)

	exists, err = EpisodeExists("http://x/2.mp3")
	assert.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreEpisode(t *testing.T) {
	mock := newMockDB(t)
	episode := testEpisode()
	segments := testSegments()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO episodes`).
		WithArgs(episode.Title, episode.FeedTitle, episode.Description, episode.Summary,
			episode.RSSURL, episode.AudioURL, episode.EpisodeLink, episode.PublishedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectExec(`INSERT INTO transcript_segments`).
		WithArgs(int64(42), 0, 0.0, 4.2, "Hello and welcome.").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO transcript_segments`).
		WithArgs(int64(42), 1, 4.2, 9.8, "Today we talk about feeds.").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := StoreEpisode(episode, segments)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreEpisodeRollsBackWhenSegmentInsertFails(t *testing.T) {
	mock := newMockDB(t)
	episode := testEpisode()
	segments := testSegments()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO episodes`).
		WithArgs(episode.Title, episode.FeedTitle, episode.Description, episode.Summary,
			episode.RSSURL, episode.AudioURL, episode.EpisodeLink, episode.PublishedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectExec(`INSERT INTO transcript_segments`).
		WithArgs(int64(42), 0, 0.0, 4.2, "Hello and welcome.").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := StoreEpisode(episode, segments)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert transcript segment 0")

	// The episode insert must not survive the failed segment insert.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreEpisodeMapsUniqueViolationToDuplicate(t *testing.T) {
	mock := newMockDB(t)
	episode := testEpisode()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO episodes`).
		WithArgs(episode.Title, episode.FeedTitle, episode.Description, episode.Summary,
			episode.RSSURL, episode.AudioURL, episode.EpisodeLink, episode.PublishedAt).
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: "episodes_audio_url_key"})
	mock.ExpectRollback()

	_, err := StoreEpisode(episode, nil)
	assert.ErrorIs(t, err, ErrDuplicateEpisode)

	assert.NoError(t, mock.ExpectationsWereMet())
}
