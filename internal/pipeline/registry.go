package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
)

// ReadFeedSources loads the ordered list of feed URLs for a run from the
// rss_url column of a CSV file.
func ReadFeedSources(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed sources file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read feed sources header: %w", err)
	}

	col := -1
	for i, name := range header {
		if name == "rss_url" {
			col = i
			break
		}
	}
	if col == -1 {
		return nil, errors.New("feed sources file has no rss_url column")
	}

	var urls []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read feed sources row: %w", err)
		}
		if record[col] != "" {
			urls = append(urls, record[col])
		}
	}

	log.Printf("Found %d RSS URLs in %s", len(urls), path)
	return urls, nil
}
