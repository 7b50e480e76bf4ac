package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Bokorus/podcast-ingestion-pipeline/internal/db"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/models"
)

type fakeReader struct {
	feeds map[string][]models.Episode
	errs  map[string]error
}

func (r *fakeReader) FetchEpisodes(ctx context.Context, rssURL string, yearFilter int) ([]models.Episode, error) {
	if err := r.errs[rssURL]; err != nil {
		return nil, err
	}
	return r.feeds[rssURL], nil
}

type fakeStage struct {
	mu      sync.Mutex
	failFor map[string]error
	ran     []string
}

func (s *fakeStage) Run(ctx context.Context, audioURL string) ([]models.TranscriptSegment, error) {
	s.mu.Lock()
	s.ran = append(s.ran, audioURL)
	s.mu.Unlock()
	if err := s.failFor[audioURL]; err != nil {
		return nil, err
	}
	return []models.TranscriptSegment{{SegmentID: 0, Text: "segment for " + audioURL}}, nil
}

// fakeStore persists into an in-memory set so back-to-back runs exercise the
// idempotency gate the way a real database would.
type fakeStore struct {
	mu        sync.Mutex
	persisted map[string]bool
	storeErr  error
	nextID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{persisted: make(map[string]bool)}
}

func (s *fakeStore) Store(episode models.Episode, segments []models.TranscriptSegment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return 0, s.storeErr
	}
	if s.persisted[episode.AudioURL] {
		return 0, db.ErrDuplicateEpisode
	}
	s.persisted[episode.AudioURL] = true
	s.nextID++
	return s.nextID, nil
}

func (s *fakeStore) exists(audioURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persisted[audioURL], nil
}

func episodeFor(url string) models.Episode {
	return models.Episode{Title: "ep " + url, AudioURL: url, RSSURL: "http://feeds.example.com/a.xml"}
}

func newTestOrchestrator(reader Discoverer, stage StageRunner, store *fakeStore, workers int) *Orchestrator {
	o := NewOrchestrator(reader, stage, store, Config{YearFilter: 2024, WorkerCount: workers})
	o.exists = store.exists
	return o
}

func TestRunProcessesAllFeeds(t *testing.T) {
	reader := &fakeReader{feeds: map[string][]models.Episode{
		"http://feeds.example.com/a.xml": {episodeFor("http://x/1.mp3"), episodeFor("http://x/2.mp3")},
		"http://feeds.example.com/b.xml": {episodeFor("http://y/1.mp3")},
	}}
	store := newFakeStore()
	o := newTestOrchestrator(reader, &fakeStage{}, store, 1)

	summary := o.Run(context.Background(), []string{"http://feeds.example.com/a.xml", "http://feeds.example.com/b.xml"})

	assert.Equal(t, Summary{Feeds: 2, Discovered: 3, Processed: 3}, summary)
	assert.True(t, store.persisted["http://x/1.mp3"])
	assert.True(t, store.persisted["http://x/2.mp3"])
	assert.True(t, store.persisted["http://y/1.mp3"])
}

func TestRunIsolatesEpisodeFailures(t *testing.T) {
	episodes := []models.Episode{
		episodeFor("http://x/1.mp3"),
		episodeFor("http://x/2.mp3"),
		episodeFor("http://x/3.mp3"),
	}
	reader := &fakeReader{feeds: map[string][]models.Episode{"http://feeds.example.com/a.xml": episodes}}
	stage := &fakeStage{failFor: map[string]error{"http://x/2.mp3": errors.New("download blew up")}}
	store := newFakeStore()
	o := newTestOrchestrator(reader, stage, store, 1)

	summary := o.Run(context.Background(), []string{"http://feeds.example.com/a.xml"})

	// The failing episode must not stop the ones after it.
	assert.Equal(t, Summary{Feeds: 1, Discovered: 3, Processed: 2, Failed: 1}, summary)
	assert.Len(t, stage.ran, 3)
	assert.False(t, store.persisted["http://x/2.mp3"])
}

func TestRunContinuesPastUnreadableFeed(t *testing.T) {
	reader := &fakeReader{
		feeds: map[string][]models.Episode{"http://feeds.example.com/good.xml": {episodeFor("http://x/1.mp3")}},
		errs:  map[string]error{"http://feeds.example.com/bad.xml": errors.New("malformed XML")},
	}
	store := newFakeStore()
	o := newTestOrchestrator(reader, &fakeStage{}, store, 1)

	summary := o.Run(context.Background(), []string{"http://feeds.example.com/bad.xml", "http://feeds.example.com/good.xml"})

	assert.Equal(t, Summary{Feeds: 1, Discovered: 1, Processed: 1}, summary)
}

func TestRunTwiceSkipsAlreadyPersistedEpisodes(t *testing.T) {
	reader := &fakeReader{feeds: map[string][]models.Episode{
		"http://feeds.example.com/a.xml": {episodeFor("http://x/1.mp3"), episodeFor("http://x/2.mp3")},
	}}
	stage := &fakeStage{}
	store := newFakeStore()
	o := newTestOrchestrator(reader, stage, store, 1)

	first := o.Run(context.Background(), []string{"http://feeds.example.com/a.xml"})
	assert.Equal(t, Summary{Feeds: 1, Discovered: 2, Processed: 2}, first)

	second := o.Run(context.Background(), []string{"http://feeds.example.com/a.xml"})
	assert.Equal(t, Summary{Feeds: 1, Discovered: 2, Skipped: 2}, second)

	// The second run must not pay acquisition or transcription cost.
	assert.Len(t, stage.ran, 2)
	assert.Len(t, store.persisted, 2)
}

func TestProcessEpisodeTreatsDuplicateInsertAsSkip(t *testing.T) {
	store := newFakeStore()
	store.persisted["http://x/1.mp3"] = true
	o := newTestOrchestrator(&fakeReader{}, &fakeStage{}, store, 1)
	// Gate misses, simulating a concurrent writer committing after the check.
	o.exists = func(string) (bool, error) { return false, nil }

	result := o.ProcessEpisode(context.Background(), episodeFor("http://x/1.mp3"))
	assert.Equal(t, StatusSkipped, result.Status)
	assert.NoError(t, result.Err)
}

func TestProcessEpisodesPreservesDiscoveryOrderSequentially(t *testing.T) {
	urls := []string{"http://x/1.mp3", "http://x/2.mp3", "http://x/3.mp3", "http://x/4.mp3"}
	var episodes []models.Episode
	for _, u := range urls {
		episodes = append(episodes, episodeFor(u))
	}
	reader := &fakeReader{feeds: map[string][]models.Episode{"http://feeds.example.com/a.xml": episodes}}
	stage := &fakeStage{}
	o := newTestOrchestrator(reader, stage, newFakeStore(), 1)

	o.Run(context.Background(), []string{"http://feeds.example.com/a.xml"})
	assert.Equal(t, urls, stage.ran)
}

func TestRunWithWorkerPoolStillReachesEveryEpisode(t *testing.T) {
	var episodes []models.Episode
	for _, u := range []string{"http://x/1.mp3", "http://x/2.mp3", "http://x/3.mp3", "http://x/4.mp3", "http://x/5.mp3"} {
		episodes = append(episodes, episodeFor(u))
	}
	reader := &fakeReader{feeds: map[string][]models.Episode{"http://feeds.example.com/a.xml": episodes}}
	stage := &fakeStage{failFor: map[string]error{"http://x/3.mp3": errors.New("boom")}}
	store := newFakeStore()
	o := newTestOrchestrator(reader, stage, store, 3)

	summary := o.Run(context.Background(), []string{"http://feeds.example.com/a.xml"})
	assert.Equal(t, Summary{Feeds: 1, Discovered: 5, Processed: 4, Failed: 1}, summary)
}
