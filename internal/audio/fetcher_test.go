package audio

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchStreamsToLocalFile(t *testing.T) {
	// Larger than any internal copy buffer, so the download is exercised
	// across multiple chunks.
	payload := bytes.Repeat([]byte("abcdefgh"), 64*1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	fetcher := NewFetcher(t.TempDir(), 100, 10)
	path, err := fetcher.Fetch(context.Background(), server.URL+"/shows/episode-1.mp3")
	assert.NoError(t, err)
	t.Cleanup(func() { os.Remove(path) })

	assert.True(t, strings.HasSuffix(path, "episode-1.mp3"))
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestFetchRejectsNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := NewFetcher(dir, 100, 10)
	_, err := fetcher.Fetch(context.Background(), server.URL+"/missing.mp3")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code 404")

	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFilenameFromURL(t *testing.T) {
	assert.Equal(t, "episode.mp3", FilenameFromURL("http://x/shows/episode.mp3"))
	assert.Equal(t, "episode.mp3", FilenameFromURL("http://x/shows/episode.mp3?updated=123"))
	assert.Equal(t, "audio.mp3", FilenameFromURL("http://x/"))
	assert.Equal(t, "audio.mp3", FilenameFromURL("http://x"))
	assert.Equal(t, "audio.mp3", FilenameFromURL("://bad url"))
}
