package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"lecturenotes/internal/feed"
	"lecturenotes/internal/store"
)

// GetRSSFeed serves a user's completed lectures as RSS. The feed UUID acts
// as a capability token, so this route is not behind the auth middleware.
func (h *Handlers) GetRSSFeed(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]

	user, err := h.store.GetUserByFeedUUID(uuid)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Feed not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Error looking up feed %s: %v", uuid, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	lectures, err := h.store.ListCompletedLectures(user.ID)
	if err != nil {
		log.Printf("Error getting lectures: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	rss, err := feed.Generate(user, lectures, h.baseURL)
	if err != nil {
		log.Printf("Error generating RSS: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml")
	w.Write([]byte(rss))
}
