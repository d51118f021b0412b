// ABOUTME: Server-Sent Events reader for live message, post, and comment lists
// ABOUTME: Calls back with each full snapshot until the stream ends

package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/2389/pairchat/internal/api"
)

// ErrStreamFailed is returned when the server ends a stream with an error event.
var ErrStreamFailed = errors.New("stream failed")

// Watch streams the conversation with peerID, calling onSnapshot with every
// full message list. It returns nil when ctx is cancelled, ErrStreamFailed
// when the server reports a terminal error, and io.ErrUnexpectedEOF when the
// server hangs up.
func (c *Client) Watch(ctx context.Context, peerID string, onSnapshot func(api.SnapshotEvent) error) error {
	return watchSnapshots(ctx, c, "/api/messages/stream?peer_id="+url.QueryEscape(peerID), onSnapshot)
}

// WatchPosts streams the post list, newest first. It ends like Watch.
func (c *Client) WatchPosts(ctx context.Context, onSnapshot func(api.PostsEvent) error) error {
	return watchSnapshots(ctx, c, "/api/posts/stream", onSnapshot)
}

// WatchComments streams the comments on postID, oldest first. It ends like
// Watch.
func (c *Client) WatchComments(ctx context.Context, postID string, onSnapshot func(api.CommentsEvent) error) error {
	return watchSnapshots(ctx, c, "/api/posts/"+url.PathEscape(postID)+"/comments/stream", onSnapshot)
}

// watchSnapshots opens the SSE stream at path and decodes each snapshot
// event as T.
func watchSnapshots[T any](ctx context.Context, c *Client, path string, onSnapshot func(T) error) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("opening stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}

	err = streamSSE(resp.Body, func(eventType, data string) error {
		switch eventType {
		case api.EventSnapshot:
			var snap T
			if err := json.Unmarshal([]byte(data), &snap); err != nil {
				return fmt.Errorf("parsing snapshot: %w", err)
			}
			return onSnapshot(snap)
		case api.EventError:
			var errResp api.ErrorResponse
			_ = json.Unmarshal([]byte(data), &errResp)
			return fmt.Errorf("%w: %s", ErrStreamFailed, errResp.Error)
		default:
			return nil
		}
	})
	if ctx.Err() != nil {
		return nil
	}
	if err == nil {
		return io.ErrUnexpectedEOF
	}
	return err
}

// streamSSE parses SSE frames from body, calling handle for each complete
// event. Comment lines are ignored.
func streamSSE(body io.Reader, handle func(eventType, data string) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var eventType string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line signals end of event
		if line == "" {
			if eventType != "" && len(dataLines) > 0 {
				if err := handle(eventType, strings.Join(dataLines, "\n")); err != nil {
					return err
				}
			}
			eventType = ""
			dataLines = nil
			continue
		}

		switch {
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	return scanner.Err()
}
