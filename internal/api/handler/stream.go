package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/vehicletracker/vehicletracker/internal/animation"
	"github.com/vehicletracker/vehicletracker/internal/api/models"
)

const (
	streamBuffer      = 16
	heartbeatInterval = 15 * time.Second
)

// Stream handles GET /v1/tracker/stream as Server-Sent Events. The current snapshot is
// sent first, then one "snapshot" event per engine emission. The route polyline is
// omitted from Playing events since it cannot change during playback.
func (h *TrackerHandler) Stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	ch, cancel := h.tracker.Subscribe(streamBuffer)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, h.tracker.Snapshot(), true); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Warn().Err(err).Msg("stream does not support flushing")
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		case s, ok := <-ch:
			if !ok {
				_, _ = io.WriteString(w, "event: closed\ndata: {}\n\n")
				_ = rc.Flush()
				return
			}
			if err := writeEvent(w, s, s.State != animation.StatePlaying); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w io.Writer, s animation.Snapshot, withRoute bool) error {
	data, err := json.Marshal(models.NewTrackerSnapshot(s, withRoute))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: snapshot\ndata: %s\n\n", strconv.FormatUint(s.Seq, 10), data)
	return err
}
