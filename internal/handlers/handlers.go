package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Bokorus/podcast-ingestion-pipeline/internal/db"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/feed"
)

const defaultEpisodeLimit = 50

// Handlers serves the read API over persisted episodes and transcripts.
type Handlers struct{}

func New() *Handlers {
	return &Handlers{}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// ListEpisodes returns persisted episodes, newest first.
func (h *Handlers) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	limit := defaultEpisodeLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	episodes, err := db.GetEpisodes(limit)
	if err != nil {
		log.Printf("Error getting episodes: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, episodes)
}

// GetTranscript returns one episode together with its ordered segments.
func (h *Handlers) GetTranscript(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid episode ID", http.StatusBadRequest)
		return
	}

	episode, err := db.GetEpisodeByID(id)
	if err != nil {
		http.Error(w, "Episode not found", http.StatusNotFound)
		return
	}

	segments, err := db.GetSegmentsByEpisodeID(id)
	if err != nil {
		log.Printf("Error getting segments: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"episode":  episode,
		"segments": segments,
	})
}

// GetFeedRSS re-publishes the persisted episodes of one feed as RSS.
func (h *Handlers) GetFeedRSS(w http.ResponseWriter, r *http.Request) {
	rssURL := r.URL.Query().Get("url")
	if rssURL == "" {
		http.Error(w, "Missing url parameter", http.StatusBadRequest)
		return
	}

	episodes, err := db.GetEpisodesByFeedURL(rssURL)
	if err != nil {
		log.Printf("Error getting episodes for feed %s: %v", rssURL, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if len(episodes) == 0 {
		http.Error(w, "Feed not found", http.StatusNotFound)
		return
	}

	rss, err := feed.GenerateRSS(rssURL, episodes)
	if err != nil {
		log.Printf("Error generating RSS: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml")
	w.Write([]byte(rss))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
