package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/playperu/scoreboard/internal/scoreboard"
	"github.com/playperu/scoreboard/internal/store"
)

// handleEvents streams store changes to admin pages. State changes carry
// the full state so the page never has to refetch.
func handleEvents(ledger *scoreboard.Ledger, events store.Notifier, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		ch, cancel := events.Subscribe()
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		sendState := func() {
			s, err := ledger.State(r.Context())
			if err != nil {
				logger.Warn("reading state for event stream", "error", err)
				return
			}
			data, _ := json.Marshal(newStateResponse(s, ledger.Mode()))
			fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
			flusher.Flush()
		}
		sendState()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if ev.Key == scoreboard.StateKey {
					sendState()
					continue
				}
				data, _ := json.Marshal(ev)
				fmt.Fprintf(w, "event: trigger\ndata: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
