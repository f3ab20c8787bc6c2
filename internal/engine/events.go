package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/cieldm/ciel/internal/domain"
)

// Event stream names emitted by the engine.
const (
	eventProgress    = "download-progress"
	eventCompleted   = "download-completed"
	eventError       = "download-error"
	eventNameUpdated = "download-name-updated"
	eventAutocatch   = "autocatch-url"
)

const eventBufferSize = 64

type progressPayload struct {
	ID          string `json:"id"`
	Total       int64  `json:"total"`
	Downloaded  int64  `json:"downloaded"`
	Speed       int64  `json:"speed"`
	ETA         int64  `json:"eta"`
	Connections int    `json:"connections"`
	StatusText  string `json:"status_text"`
}

type completedPayload struct {
	ID string `json:"id"`
}

type errorPayload struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type nameUpdatedPayload struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

type autocatchPayload struct {
	URL string `json:"url"`
}

// parseEvent maps one named SSE event and its JSON data line to a domain
// event. Unknown names return (nil, nil) so new engine events are ignored
// rather than fatal.
func parseEvent(name string, data []byte) (domain.Event, error) {
	switch name {
	case eventProgress:
		var p progressPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("bad %s payload: %w", name, err)
		}
		return domain.ProgressEvent{
			ID:          p.ID,
			Total:       p.Total,
			Downloaded:  p.Downloaded,
			Speed:       p.Speed,
			ETA:         p.ETA,
			Connections: p.Connections,
			StatusText:  p.StatusText,
		}, nil
	case eventCompleted:
		var p completedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("bad %s payload: %w", name, err)
		}
		return domain.CompletedEvent{ID: p.ID}, nil
	case eventError:
		var p errorPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("bad %s payload: %w", name, err)
		}
		return domain.ErrorEvent{ID: p.ID, Message: p.Message}, nil
	case eventNameUpdated:
		var p nameUpdatedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("bad %s payload: %w", name, err)
		}
		return domain.NameUpdatedEvent{ID: p.ID, Filename: p.Filename}, nil
	case eventAutocatch:
		var p autocatchPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("bad %s payload: %w", name, err)
		}
		return domain.AutocatchEvent{URL: p.URL}, nil
	default:
		return nil, nil
	}
}

// subscription reads the engine's SSE stream and delivers parsed events.
// Closing is idempotent; the events channel is closed when the stream ends.
type subscription struct {
	events    chan domain.Event
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (s *subscription) Events() <-chan domain.Event { return s.events }

func (s *subscription) Close() error {
	s.closeOnce.Do(s.cancel)
	return nil
}

// Subscribe opens the engine event stream at /api/events. The returned
// subscription delivers events until ctx is cancelled, Close is called, or
// the stream drops; the channel then closes and the caller decides whether
// to resubscribe.
func (c *Client) Subscribe(ctx context.Context) (domain.Subscription, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.baseURL+"/api/events", nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", userAgent)

	// The shared client has a request timeout, which would kill a
	// long-lived stream. Use a transport-only client here.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		cancel()
		c.logger.Error("engine event stream failed", "error", err)
		return nil, domain.ErrEngineOffline
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	sub := &subscription{
		events: make(chan domain.Event, eventBufferSize),
		cancel: cancel,
	}
	go c.readStream(streamCtx, resp.Body, sub.events)
	return sub, nil
}

// readStream parses the text/event-stream wire format: "event:" and "data:"
// fields accumulated until a blank line dispatches the pair.
func (c *Client) readStream(ctx context.Context, body io.ReadCloser, out chan<- domain.Event) {
	defer close(out)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var name string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			c.dispatch(ctx, name, data.String(), out)
			name = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		case strings.HasPrefix(line, ":"):
			// keepalive comment
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		c.logger.Warn("engine event stream closed", "error", err)
	}
	// last event may lack a trailing blank line
	c.dispatch(ctx, name, data.String(), out)
}

func (c *Client) dispatch(ctx context.Context, name, data string, out chan<- domain.Event) {
	if name == "" || data == "" {
		return
	}
	ev, err := parseEvent(name, []byte(data))
	if err != nil {
		c.logger.Warn("dropping malformed event", "event", name, "error", err)
		return
	}
	if ev == nil {
		c.logger.Debug("ignoring unknown event", "event", name)
		return
	}
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}
