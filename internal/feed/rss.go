package feed

import (
	"fmt"

	"github.com/eduncan911/podcast"

	"github.com/Bokorus/podcast-ingestion-pipeline/internal/models"
)

// GenerateRSS renders the persisted episodes of a single feed back out as an
// RSS podcast feed. Enclosures point at the original upstream audio URLs.
func GenerateRSS(rssURL string, episodes []models.Episode) (string, error) {
	title := models.UnknownTitle
	if len(episodes) > 0 {
		title = episodes[0].FeedTitle
	}

	p := podcast.New(
		title,
		rssURL,
		fmt.Sprintf("Transcribed episodes of %s", title),
		nil, nil,
	)

	for i := range episodes {
		episode := episodes[i]
		item := podcast.Item{
			Title:       episode.Title,
			Description: episode.Description,
			Link:        episode.EpisodeLink,
			PubDate:     &episode.PublishedAt,
		}
		item.AddEnclosure(episode.AudioURL, podcast.MP3, 0)
		if _, err := p.AddItem(item); err != nil {
			return "", fmt.Errorf("failed to add episode %q to feed: %w", episode.Title, err)
		}
	}

	return p.String(), nil
}
