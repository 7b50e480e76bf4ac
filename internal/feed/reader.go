package feed

import (
	"context"
	"fmt"
	"log"

	"github.com/mmcdole/gofeed"

	"github.com/Bokorus/podcast-ingestion-pipeline/internal/models"
)

// Reader fetches and parses podcast RSS feeds into episode candidates.
// Re-fetching the same feed reproduces the same candidates unless the
// upstream feed changed.
type Reader struct {
	parser *gofeed.Parser
}

func NewReader() *Reader {
	return &Reader{parser: gofeed.NewParser()}
}

// FetchEpisodes returns the episodes of the feed at rssURL. When yearFilter
// is non-zero, only entries published in exactly that year are returned and
// entries without a parseable publication date are dropped. Missing entry
// fields resolve to sentinel values rather than failing the entry.
func (r *Reader) FetchEpisodes(ctx context.Context, rssURL string, yearFilter int) ([]models.Episode, error) {
	parsed, err := r.parser.ParseURLWithContext(rssURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", rssURL, err)
	}

	feedTitle := parsed.Title
	if feedTitle == "" {
		feedTitle = models.UnknownTitle
	}

	var episodes []models.Episode
	for _, item := range parsed.Items {
		if yearFilter != 0 {
			if item.PublishedParsed == nil || item.PublishedParsed.Year() != yearFilter {
				continue
			}
		}

		audioURL := models.UnknownAudioURL
		if len(item.Enclosures) > 0 && item.Enclosures[0].URL != "" {
			audioURL = item.Enclosures[0].URL
		}

		publishedAt := models.SentinelPublishedAt
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		}

		episodes = append(episodes, models.Episode{
			Title:       coalesce(item.Title, models.UnknownTitle),
			FeedTitle:   feedTitle,
			Description: coalesce(item.Description, models.NoDescription),
			Summary:     coalesce(itemSummary(item), models.NoSummary),
			RSSURL:      rssURL,
			AudioURL:    audioURL,
			EpisodeLink: coalesce(item.Link, models.NoEpisodeLink),
			PublishedAt: publishedAt,
		})
	}

	log.Printf("Parsed feed '%s' with %d matching episodes", feedTitle, len(episodes))
	return episodes, nil
}

// itemSummary prefers the iTunes summary over the generic description, the
// way podcast feeds typically populate them.
func itemSummary(item *gofeed.Item) string {
	if item.ITunesExt != nil && item.ITunesExt.Summary != "" {
		return item.ITunesExt.Summary
	}
	return item.Description
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
