package tasks

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterEvents mounts GET /events, a server-sent event stream carrying a
// "state" event with the current Snapshot and one more after every change.
// It must not sit behind a request timeout.
func RegisterEvents(r chi.Router, s *Store) {
	r.Get("/events", streamEvents(s))
}

func streamEvents(s *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)

		updates := make(chan Snapshot, 16)
		unsubscribe := s.Subscribe(func(snap Snapshot) {
			select {
			case updates <- snap:
			default:
				// slow client; it still gets the next change
			}
		})
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		if err := writeEvent(w, rc, s.Snapshot()); err != nil {
			return
		}
		for {
			select {
			case <-r.Context().Done():
				return
			case snap := <-updates:
				if err := writeEvent(w, rc, snap); err != nil {
					return
				}
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, snap Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", b); err != nil {
		return err
	}
	return rc.Flush()
}
