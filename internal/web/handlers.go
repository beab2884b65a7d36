package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/attendify/kiosk/internal/capture"
	"github.com/attendify/kiosk/internal/session"
)

type statusResponse struct {
	Gate    string         `json:"gate"`
	Role    session.Role   `json:"role,omitempty"`
	Loop    capture.Status `json:"loop"`
	Backend string         `json:"backend"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Gate:    s.sess.Gate().String(),
		Loop:    s.loop.Snapshot(),
		Backend: "unknown",
	}
	if resp.Gate == session.GateAuthenticated.String() {
		resp.Role = s.sess.Role()
	}

	// Reachability is best-effort display data; keep the probe short.
	if s.api != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if _, err := s.api.Health(ctx); err == nil {
			resp.Backend = "reachable"
		} else {
			resp.Backend = "unreachable"
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	frame, ok := s.loop.LastFrame()
	if !ok {
		respondError(w, http.StatusNotFound, "no preview frame available")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(frame)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if s.sess.Gate() != session.GateAuthenticated {
		respondError(w, http.StatusForbidden, "capture requires an authenticated session")
		return
	}
	accepted := s.loop.Trigger()
	respondJSON(w, http.StatusOK, map[string]bool{"accepted": accepted})
}

// handleEvents streams capture loop events as server-sent events until the
// client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventCh := s.loop.Subscribe()
	defer s.loop.Unsubscribe(eventCh)

	sendSSEEvent(w, flusher, "status", s.loop.Snapshot())

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, string(event.Type), event)
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
	flusher.Flush()
}
