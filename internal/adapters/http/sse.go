package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

// streamEvents writes a query's event stream as server-sent events, one
// "data:" frame per event, closed by a [DONE] frame.
func streamEvents(w http.ResponseWriter, events <-chan domain.QueryEvent) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming is not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			slog.Warn("sse_marshal_failed", "event_type", event.Type, "error", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
	}

	if _, err := io.WriteString(w, "data: [DONE]\n\n"); err != nil {
		return
	}
	flusher.Flush()
}
