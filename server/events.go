package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// Event is fanned out to everyone watching a root list.
type Event struct {
	Type    string `json:"type"`
	RootID  int64  `json:"rootId"`
	NodeID  *int64 `json:"nodeId,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

const (
	EventNodeCreated = "node.created"
	EventNodeUpdated = "node.updated"
	EventNodeDeleted = "node.deleted"
	EventNodeMoved   = "node.moved"
	EventReordered   = "children.reordered"
	EventShared      = "list.shared"
)

// frame is one published event, encoded once for every subscriber.
type frame struct {
	seq  uint64
	typ  string
	data []byte
}

type EventBus struct {
	mu   sync.RWMutex
	seq  atomic.Uint64
	subs map[int64]map[chan frame]struct{}
}

func NewEventBus() *EventBus { return &EventBus{subs: make(map[int64]map[chan frame]struct{})} }

func (b *EventBus) Subscribe(rootID int64) (ch chan frame, cancel func()) {
	ch = make(chan frame, 16)
	b.mu.Lock()
	if b.subs[rootID] == nil {
		b.subs[rootID] = make(map[chan frame]struct{})
	}
	b.subs[rootID][ch] = struct{}{}
	b.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs, ok := b.subs[rootID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, rootID)
				}
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *EventBus) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	f := frame{seq: b.seq.Add(1), typ: ev.Type, data: data}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[ev.RootID] {
		select {
		case ch <- f:
		default: // slow subscribers miss events and reload on reconnect
		}
	}
}

// Subscribers reports how many streams watch rootID.
func (b *EventBus) Subscribers(rootID int64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[rootID])
}

const heartbeat = 25 * time.Second

// sseRetry is the reconnect delay suggested to EventSource clients.
const sseRetry = 3 * time.Second

// writeSSE renders f as one server-sent event named after its type, so
// browsers can addEventListener per event kind.
func writeSSE(w io.Writer, f frame) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "id: %d\nevent: %s\ndata: ", f.seq, f.typ)
	buf.Write(f.data)
	buf.WriteString("\n\n")
	_, err := w.Write(buf.Bytes())
	return err
}

// ServeSSE streams rootID's events until the client goes away.
func (b *EventBus) ServeSSE(w http.ResponseWriter, r *http.Request, rootID int64) {
	rc := http.NewResponseController(w)
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")

	ch, cancel := b.Subscribe(rootID)
	defer cancel()

	fmt.Fprintf(w, "retry: %d\n: watching list %d\n\n", sseRetry.Milliseconds(), rootID)
	if err := rc.Flush(); err != nil {
		return
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_, err = io.WriteString(w, ": ping\n\n")
		case f, ok := <-ch:
			if !ok {
				return
			}
			err = writeSSE(w, f)
		}
		if err == nil {
			err = rc.Flush()
		}
		if err != nil {
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// origin is checked by the CORS layer and the session
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS streams the same events as ServeSSE over a websocket. Client
// frames are read and discarded so close and pong frames get handled.
func (b *EventBus) ServeWS(w http.ResponseWriter, r *http.Request, rootID int64) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, cancel := b.Subscribe(rootID)
	defer cancel()

	done := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(2 * heartbeat))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * heartbeat))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return nil
		case <-r.Context().Done():
			return nil
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return nil
			}
		case f, ok := <-ch:
			if !ok {
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, f.data); err != nil {
				return nil
			}
		}
	}
}
