// ABOUTME: Server-Sent Events endpoints streaming live lists
// ABOUTME: Each snapshot event carries a complete list: messages, posts, or comments

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/2389/pairchat/internal/auth"
	"github.com/2389/pairchat/internal/chat"
)

// SSE event names.
const (
	EventSnapshot = "snapshot"
	EventError    = "error"
)

// SnapshotEvent is the data of a "snapshot" event on the message stream.
type SnapshotEvent struct {
	ConversationID string         `json:"conversation_id"`
	Messages       []chat.Message `json:"messages"`
}

// handleStream handles GET /api/messages/stream?peer_id=X.
//
// The first event is the current message list; another follows every time
// the conversation changes. A terminal subscription failure is reported as a
// single "error" event before the stream closes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	peerID := r.URL.Query().Get("peer_id")
	if peerID == "" {
		s.sendJSONError(w, http.StatusBadRequest, "peer_id is required")
		return
	}

	flusher, ok := s.streamingWriter(w)
	if !ok {
		return
	}

	ctx := r.Context()
	caller := auth.MustFromContext(ctx)

	conv, err := s.resolver.Resolve(ctx, caller.UserID, peerID)
	if err != nil {
		s.sendChatError(w, r, err)
		return
	}

	updates := make(chan SnapshotEvent, 1)
	failures := make(chan error, 1)
	unsubscribe, err := s.resolver.SubscribeToMessages(ctx, caller.UserID, peerID, chat.Observer{
		OnUpdate: func(msgs []chat.Message) {
			offerLatest(updates, SnapshotEvent{ConversationID: conv.ID, Messages: msgs})
		},
		OnError: func(err error) { failures <- err },
	})
	if err != nil {
		s.sendChatError(w, r, err)
		return
	}
	defer unsubscribe()

	serveSnapshots(s, w, r, flusher, updates, failures, "conversation_id", conv.ID, "user_id", caller.UserID)
}

// streamingWriter returns w's flusher, replying with an error when w cannot
// stream. Call it before subscribing.
func (s *Server) streamingWriter(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("streaming not supported")
		s.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
	}
	return flusher, ok
}

// serveSnapshots writes the SSE headers and then one snapshot event per
// value from updates until the request ends or failures yields. attrs
// identify the stream in logs.
func serveSnapshots[T any](s *Server, w http.ResponseWriter, r *http.Request, flusher http.Flusher, updates chan T, failures chan error, attrs ...any) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger := s.logger.With(attrs...).With("path", r.URL.Path)
	logger.Debug("stream opened")

	keepAlive := time.NewTicker(s.opts.KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug("stream closed")
			return
		case v := <-updates:
			s.writeSSEEvent(w, EventSnapshot, v)
			flusher.Flush()
		case err := <-failures:
			logger.Warn("subscription failed", "error", err)
			s.writeSSEEvent(w, EventError, ErrorResponse{Error: "subscription failed"})
			flusher.Flush()
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// offerLatest puts v on a one-slot channel, replacing an undelivered older
// value. Values are complete snapshots, so only the newest matters. There is
// a single producer per channel.
func offerLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// writeSSEEvent writes a single SSE event with JSON data.
func (s *Server) writeSSEEvent(w http.ResponseWriter, event string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}
