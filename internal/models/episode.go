package models

import "time"

// Sentinel values substituted for feed entry fields the source feed omits.
const (
	UnknownTitle    = "unknown title"
	NoSummary       = "no summary"
	NoDescription   = "no description"
	NoEpisodeLink   = "no episode link"
	UnknownAudioURL = "unknown audio_url"
)

// SentinelPublishedAt is stored when a feed entry carries no parseable
// publication date.
var SentinelPublishedAt = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Episode is one podcast episode discovered from an RSS feed. ID is zero
// until the episode has been persisted; AudioURL is the natural identity
// key for deduplication.
type Episode struct {
	ID          int64     `db:"id"`
	Title       string    `db:"episode_title"`
	FeedTitle   string    `db:"feed_title"`
	Description string    `db:"description"`
	Summary     string    `db:"summary"`
	RSSURL      string    `db:"rss_url"`
	AudioURL    string    `db:"audio_url"`
	EpisodeLink string    `db:"episode_link"`
	PublishedAt time.Time `db:"published_at"`
}
