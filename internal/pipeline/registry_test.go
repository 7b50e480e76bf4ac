package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeCSV(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "rss_feeds.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}
	return path
}

func TestReadFeedSources(t *testing.T) {
	path := writeCSV(t, "name,rss_url\nShow A,http://feeds.example.com/a.xml\nShow B,http://feeds.example.com/b.xml\n")

	urls, err := ReadFeedSources(path)
	assert.NoError(t, err)
	assert.Equal(t, []string{"http://feeds.example.com/a.xml", "http://feeds.example.com/b.xml"}, urls)
}

func TestReadFeedSourcesSkipsEmptyRows(t *testing.T) {
	path := writeCSV(t, "rss_url\nhttp://feeds.example.com/a.xml\n\"\"\n")

	urls, err := ReadFeedSources(path)
	assert.NoError(t, err)
	assert.Equal(t, []string{"http://feeds.example.com/a.xml"}, urls)
}

func TestReadFeedSourcesRequiresColumn(t *testing.T) {
	path := writeCSV(t, "name,url\nShow A,http://feeds.example.com/a.xml\n")

	_, err := ReadFeedSources(path)
	assert.EqualError(t, err, "feed sources file has no rss_url column")
}

func TestReadFeedSourcesMissingFile(t *testing.T) {
	_, err := ReadFeedSources(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
