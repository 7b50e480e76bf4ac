package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/Bokorus/podcast-ingestion-pipeline/internal/db"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/handlers"
	"github.com/Bokorus/podcast-ingestion-pipeline/internal/middleware"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	db.InitDB()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	h := handlers.New()
	rateLimiter := middleware.NewRateLimiterMiddleware(5, 10)

	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/").Subrouter()
	api.Use(rateLimiter.Middleware)
	api.HandleFunc("/episodes", h.ListEpisodes).Methods(http.MethodGet)
	api.HandleFunc("/episodes/{id:[0-9]+}/transcript", h.GetTranscript).Methods(http.MethodGet)
	api.HandleFunc("/feeds/rss", h.GetFeedRSS).Methods(http.MethodGet)

	log.Printf("Starting server on :%s (commit: %s)", port, CommitSHA)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}
