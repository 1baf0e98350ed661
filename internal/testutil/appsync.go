package testutil

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// FakeAppSync is an in-process AppSync realtime endpoint.
type FakeAppSync struct {
	Server *httptest.Server
	APIKey string

	mu          sync.Mutex
	rejectStart bool
	conns       map[*fakeConn]struct{}
	starts      []FakeStart
	stops       []string
	headers     []map[string]string
}

// FakeStart records one start message.
type FakeStart struct {
	ID    string
	Query string
	Host  string
}

type fakeConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	subs    map[string]struct{}
}

func (c *fakeConn) send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

// NewFakeAppSync starts a fake realtime server accepting apiKey.
func NewFakeAppSync(t *testing.T, apiKey string) *FakeAppSync {
	t.Helper()
	f := &FakeAppSync{APIKey: apiKey, conns: make(map[*fakeConn]struct{})}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Close)
	return f
}

// URL is the websocket URL to dial.
func (f *FakeAppSync) URL() string {
	return "ws" + strings.TrimPrefix(f.Server.URL, "http") + "/graphql"
}

// HTTPURL is the matching GraphQL HTTP endpoint.
func (f *FakeAppSync) HTTPURL() string {
	return f.Server.URL + "/graphql"
}

func (f *FakeAppSync) handle(w http.ResponseWriter, r *http.Request) {
	header := map[string]string{}
	if raw, err := base64.StdEncoding.DecodeString(r.URL.Query().Get("header")); err == nil {
		_ = json.Unmarshal(raw, &header)
	}
	if header["x-api-key"] != f.APIKey || r.URL.Query().Get("payload") != "e30=" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{Subprotocols: []string{"graphql-ws"}}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := &fakeConn{ws: ws, subs: make(map[string]struct{})}

	f.mu.Lock()
	f.conns[conn] = struct{}{}
	f.headers = append(f.headers, header)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.conns, conn)
		f.mu.Unlock()
		ws.Close()
	}()

	for {
		var msg struct {
			ID      string          `json:"id"`
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "connection_init":
			_ = conn.send(map[string]any{"type": "connection_ack", "payload": map[string]any{"connectionTimeoutMs": 300000}})
			_ = conn.send(map[string]any{"type": "ka"})
		case "start":
			var p struct {
				Data       string `json:"data"`
				Extensions struct {
					Authorization map[string]string `json:"authorization"`
				} `json:"extensions"`
			}
			_ = json.Unmarshal(msg.Payload, &p)
			var req struct {
				Query string `json:"query"`
			}
			_ = json.Unmarshal([]byte(p.Data), &req)

			f.mu.Lock()
			f.starts = append(f.starts, FakeStart{ID: msg.ID, Query: req.Query, Host: p.Extensions.Authorization["host"]})
			reject := f.rejectStart
			if !reject {
				conn.subs[msg.ID] = struct{}{}
			}
			f.mu.Unlock()

			if reject {
				_ = conn.send(map[string]any{"id": msg.ID, "type": "error", "payload": map[string]any{
					"errors": []map[string]any{{"errorType": "UnauthorizedException", "message": "Not Authorized"}},
				}})
				continue
			}
			_ = conn.send(map[string]any{"id": msg.ID, "type": "start_ack"})
		case "stop":
			f.mu.Lock()
			delete(conn.subs, msg.ID)
			f.stops = append(f.stops, msg.ID)
			f.mu.Unlock()
			_ = conn.send(map[string]any{"id": msg.ID, "type": "complete"})
		}
	}
}

// RejectStarts makes every later start message fail with an error message.
func (f *FakeAppSync) RejectStarts() {
	f.mu.Lock()
	f.rejectStart = true
	f.mu.Unlock()
}

// Publish delivers {field: value} to every active subscription.
func (f *FakeAppSync) Publish(t *testing.T, field string, value any) {
	t.Helper()
	f.mu.Lock()
	type target struct {
		conn *fakeConn
		id   string
	}
	var targets []target
	for c := range f.conns {
		for id := range c.subs {
			targets = append(targets, target{c, id})
		}
	}
	f.mu.Unlock()

	for _, tg := range targets {
		err := tg.conn.send(map[string]any{
			"id":      tg.id,
			"type":    "data",
			"payload": map[string]any{"data": map[string]any{field: value}},
		})
		require.NoError(t, err)
	}
}

// ActiveSubscriptions counts subscriptions that are started and not stopped.
func (f *FakeAppSync) ActiveSubscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for c := range f.conns {
		n += len(c.subs)
	}
	return n
}

// WaitForSubscriptions blocks until n subscriptions are active.
func (f *FakeAppSync) WaitForSubscriptions(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return f.ActiveSubscriptions() == n }, 2*time.Second, 5*time.Millisecond)
}

func (f *FakeAppSync) Starts() []FakeStart {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeStart(nil), f.starts...)
}

func (f *FakeAppSync) Stops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.stops...)
}

func (f *FakeAppSync) Headers() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.headers...)
}

// DropConnections closes every server side socket without a close frame.
func (f *FakeAppSync) DropConnections() {
	f.mu.Lock()
	conns := make([]*fakeConn, 0, len(f.conns))
	for c := range f.conns {
		conns = append(conns, c)
	}
	f.mu.Unlock()
	for _, c := range conns {
		c.ws.UnderlyingConn().Close()
	}
}

func (f *FakeAppSync) Close() {
	f.DropConnections()
	f.Server.Close()
}
