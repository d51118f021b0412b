// ABOUTME: HTTP handlers for resolving conversations and sending messages
// ABOUTME: Maps resolver errors onto HTTP status codes with JSON bodies

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/2389/pairchat/internal/auth"
	"github.com/2389/pairchat/internal/chat"
	"github.com/2389/pairchat/internal/store"
)

// IdempotencyHeader carries a client-chosen key for POST /api/messages. A
// repeated key from the same caller returns the first result instead of
// posting again.
const IdempotencyHeader = "Idempotency-Key"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

var validate = validator.New()

// ResolveRequest is the JSON body for POST /api/conversations.
type ResolveRequest struct {
	PeerID string `json:"peer_id" validate:"required"`
}

// SendRequest is the JSON body for POST /api/messages.
type SendRequest struct {
	PeerID string `json:"peer_id" validate:"required"`
	Text   string `json:"text" validate:"required"`
}

// SendResponse is the JSON response for POST /api/messages.
type SendResponse struct {
	Message chat.Message `json:"message"`
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := decodeRequest(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller := auth.MustFromContext(r.Context())
	conv, err := s.resolver.Resolve(r.Context(), caller.UserID, req.PeerID)
	if err != nil {
		s.sendChatError(w, r, err)
		return
	}

	s.sendJSON(w, http.StatusOK, conv)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := decodeRequest(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller := auth.MustFromContext(r.Context())
	msg, err := s.send(r.Context(), caller.UserID, req, r.Header.Get(IdempotencyHeader))
	if err != nil {
		s.sendChatError(w, r, err)
		return
	}

	s.sendJSON(w, http.StatusCreated, SendResponse{Message: msg})
}

// send posts req once per idempotency key. Concurrent requests with the
// same key share one store write.
func (s *Server) send(ctx context.Context, callerID string, req SendRequest, key string) (chat.Message, error) {
	if key == "" {
		return s.resolver.SendMessage(ctx, callerID, req.PeerID, req.Text)
	}

	cacheKey := callerID + "\x00" + key
	if msg, ok := s.sent.Get(cacheKey); ok {
		s.logger.Debug("replaying idempotent send", "user_id", callerID)
		return msg, nil
	}

	v, err, _ := s.sends.Do(cacheKey, func() (any, error) {
		if msg, ok := s.sent.Get(cacheKey); ok {
			return msg, nil
		}
		msg, err := s.resolver.SendMessage(context.WithoutCancel(ctx), callerID, req.PeerID, req.Text)
		if err != nil {
			return nil, err
		}
		s.sent.Put(cacheKey, msg)
		return msg, nil
	})
	if err != nil {
		return chat.Message{}, err
	}
	return v.(chat.Message), nil
}

// decodeRequest parses a JSON body into dst and validates its tags.
func decodeRequest(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid JSON body")
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s is required", jsonFieldName(verrs[0].Field()))
		}
		return err
	}
	return nil
}

func jsonFieldName(field string) string {
	switch field {
	case "PeerID":
		return "peer_id"
	default:
		return strings.ToLower(field)
	}
}

// sendChatError maps resolver errors to status codes. Store details are
// logged, not returned.
func (s *Server) sendChatError(w http.ResponseWriter, r *http.Request, err error) {
	var qerr *chat.QueryError
	var werr *chat.WriteError

	switch {
	case errors.Is(err, chat.ErrInvalidInput):
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		s.logger.Debug("request canceled", "path", r.URL.Path)
	case errors.Is(err, store.ErrClosed):
		s.sendJSONError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.As(err, &qerr), errors.As(err, &werr):
		s.logger.Error("store operation failed", "path", r.URL.Path, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}
