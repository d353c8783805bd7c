package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ChangeEvent is one row change delivered by the backend's change feed.
type ChangeEvent struct {
	Type      string          `json:"type"` // INSERT | UPDATE | DELETE
	Table     string          `json:"table"`
	Record    json.RawMessage `json:"record,omitempty"`
	OldRecord json.RawMessage `json:"old_record,omitempty"`
}

// phoenixMessage is the framing used by the realtime websocket.
type phoenixMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

const (
	realtimeHeartbeatInterval = 25 * time.Second
	realtimeDialAttempts      = 3
)

// Subscription is a single long-lived change feed for one table filter. It is
// closed explicitly by the owner; a dropped connection is logged and ends the
// feed, and the owner's next full re-fetch restores convergence.
type Subscription struct {
	conn           *websocket.Conn
	topic          string
	done           chan struct{}
	heartbeatEvery time.Duration
	writeMu        sync.Mutex
	closeMu        sync.Mutex
	closed         bool
}

// writeJSON serializes frames onto the connection. gorilla/websocket allows
// only one concurrent writer, and heartbeats race the leave frame otherwise.
func (s *Subscription) writeJSON(msg phoenixMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(msg)
}

// Subscribe opens a change feed for rows of table matching the column
// equality filter (e.g. "media_id=eq.42"). Every insert, update, and delete
// event is passed to onChange from a dedicated goroutine. Only the initial
// dial is retried; data operations elsewhere never are.
func (c *Client) Subscribe(ctx context.Context, table, filter string, onChange func(ChangeEvent)) (*Subscription, error) {
	wsURL, err := c.realtimeURL()
	if err != nil {
		return nil, err
	}

	conn, err := retry.DoWithData(func() (*websocket.Conn, error) {
		dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
		conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
		if resp != nil {
			resp.Body.Close()
		}
		if err != nil {
			return nil, fmt.Errorf("realtime dial: %w", err)
		}
		return conn, nil
	}, retry.Attempts(realtimeDialAttempts), retry.Context(ctx), retry.LastErrorOnly(true))
	if err != nil {
		return nil, err
	}

	topic := "realtime:" + table + ":" + filter
	sub := &Subscription{conn: conn, topic: topic, done: make(chan struct{}), heartbeatEvery: realtimeHeartbeatInterval}

	if err := sub.join(table, filter); err != nil {
		conn.Close()
		return nil, err
	}

	go sub.listen(table, onChange)
	go sub.heartbeat()
	return sub, nil
}

func (c *Client) realtimeURL() (string, error) {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse backend url: %w", err)
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	case "http":
		parsed.Scheme = "ws"
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/realtime/v1/websocket"
	q := parsed.Query()
	q.Set("apikey", c.anonKey)
	q.Set("vsn", "1.0.0")
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func (s *Subscription) join(table, filter string) error {
	join := map[string]any{
		"config": map[string]any{
			"postgres_changes": []map[string]string{
				{"event": "*", "schema": "public", "table": table, "filter": filter},
			},
		},
	}
	payload, err := json.Marshal(join)
	if err != nil {
		return fmt.Errorf("encode join payload: %w", err)
	}
	msg := phoenixMessage{Topic: s.topic, Event: "phx_join", Payload: payload, Ref: uuid.NewString()}
	if err := s.writeJSON(msg); err != nil {
		return fmt.Errorf("join realtime channel: %w", err)
	}
	return nil
}

func (s *Subscription) listen(table string, onChange func(ChangeEvent)) {
	for {
		var msg phoenixMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			select {
			case <-s.done:
			default:
				log.Printf("[realtime] change feed for %s ended: %v", table, err)
			}
			return
		}
		if msg.Event != "postgres_changes" {
			continue
		}
		var payload struct {
			Data ChangeEvent `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			log.Printf("[realtime] discarding malformed change event: %v", err)
			continue
		}
		onChange(payload.Data)
	}
}

func (s *Subscription) heartbeat() {
	ticker := time.NewTicker(s.heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			msg := phoenixMessage{Topic: "phoenix", Event: "heartbeat", Payload: json.RawMessage("{}"), Ref: uuid.NewString()}
			if err := s.writeJSON(msg); err != nil {
				select {
				case <-s.done:
				default:
					log.Printf("[realtime] heartbeat failed: %v", err)
				}
				return
			}
		}
	}
}

// Close leaves the channel and shuts the connection down. Safe to call more
// than once.
func (s *Subscription) Close() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)

	leave := phoenixMessage{Topic: s.topic, Event: "phx_leave", Payload: json.RawMessage("{}"), Ref: uuid.NewString()}
	if err := s.writeJSON(leave); err != nil {
		log.Printf("[realtime] leave failed: %v", err)
	}
	s.conn.Close()
}
