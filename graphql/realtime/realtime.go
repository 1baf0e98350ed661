// Package realtime speaks the AppSync realtime websocket protocol used for GraphQL
// subscriptions: connection_init/ack, start/start_ack, data, ka keep-alives and stop.
package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jrsteele09/go-teamchat/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	subprotocol      = "graphql-ws"
	emptyPayload     = "e30=" // base64("{}")
	defaultKeepAlive = 5 * time.Minute
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

// ErrClosed is returned by operations on a closed connection.
var ErrClosed = errors.New("realtime connection closed")

// Config locates a realtime endpoint. HTTPEndpoint is the GraphQL HTTPS URL whose host
// is used in the authorization header.
type Config struct {
	RealtimeURL  string
	HTTPEndpoint string
	APIKey       string
	Dialer       *websocket.Dialer
}

// Conn is one websocket carrying any number of subscriptions.
type Conn struct {
	ws        *websocket.Conn
	auth      map[string]string
	keepAlive time.Duration

	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[string]*Subscription
	err  error

	closeOnce sync.Once
	done      chan struct{}
}

// Subscription receives the data member of every event published for one GraphQL subscription.
type Subscription struct {
	id     string
	conn   *Conn
	onData func(json.RawMessage)
	acked  chan error
	once   sync.Once
}

// Dial opens the websocket and completes the connection handshake.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	if cfg.RealtimeURL == "" || cfg.APIKey == "" {
		return nil, errors.Kind(errors.ErrConfiguration, nil, "realtime endpoint or API key is missing")
	}
	host, err := hostOf(cfg.HTTPEndpoint, cfg.RealtimeURL)
	if err != nil {
		return nil, errors.Kind(errors.ErrConfiguration, err, "realtime endpoint")
	}
	auth := map[string]string{"host": host, "x-api-key": cfg.APIKey}

	u, err := connectURL(cfg.RealtimeURL, auth)
	if err != nil {
		return nil, errors.Kind(errors.ErrConfiguration, err, "realtime endpoint")
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		}
	}
	d := *dialer
	d.Subprotocols = []string{subprotocol}

	ws, _, err := d.DialContext(ctx, u, nil)
	if err != nil {
		return nil, errors.Kind(errors.ErrNetwork, err, "realtime dial")
	}

	c := &Conn{
		ws:        ws,
		auth:      auth,
		keepAlive: defaultKeepAlive,
		subs:      make(map[string]*Subscription),
		done:      make(chan struct{}),
	}
	if err := c.handshake(ctx); err != nil {
		ws.Close()
		return nil, err
	}
	go c.readLoop()
	return c, nil
}

func (c *Conn) handshake(ctx context.Context) error {
	if err := c.write(message{Type: typeConnectionInit}); err != nil {
		return errors.Kind(errors.ErrNetwork, err, "realtime connection_init")
	}

	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.ws.SetReadDeadline(deadline)
	defer c.ws.SetReadDeadline(time.Time{})

	for {
		var msg message
		if err := c.ws.ReadJSON(&msg); err != nil {
			return errors.Kind(errors.ErrNetwork, err, "realtime handshake")
		}
		switch msg.Type {
		case typeConnectionAck:
			var ack connectionAckPayload
			if len(msg.Payload) > 0 && json.Unmarshal(msg.Payload, &ack) == nil && ack.ConnectionTimeoutMs > 0 {
				c.keepAlive = time.Duration(ack.ConnectionTimeoutMs) * time.Millisecond
			}
			return nil
		case typeKeepAlive:
			continue
		case typeConnectionError, typeError:
			var p errorPayload
			_ = json.Unmarshal(msg.Payload, &p)
			return errors.Kind(errors.ErrProtocol, nil, "realtime handshake: %s", p.message())
		default:
			return errors.Kind(errors.ErrProtocol, nil, "realtime handshake: unexpected %q", msg.Type)
		}
	}
}

// Subscribe starts a GraphQL subscription and waits for the server to acknowledge it.
// onData runs on the connection's read goroutine; it must not call Close.
func (c *Conn) Subscribe(ctx context.Context, query string, variables map[string]any, onData func(json.RawMessage)) (*Subscription, error) {
	if variables == nil {
		variables = map[string]any{}
	}
	data, err := json.Marshal(subscriptionRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(startPayload{Data: string(data), Extensions: startExtension{Authorization: c.auth}})
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		id:     uuid.NewString(),
		conn:   c,
		onData: onData,
		acked:  make(chan error, 1),
	}

	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.subs[sub.id] = sub
	c.mu.Unlock()

	if err := c.write(message{ID: sub.id, Type: typeStart, Payload: payload}); err != nil {
		c.remove(sub.id)
		return nil, errors.Kind(errors.ErrNetwork, err, "realtime start")
	}

	select {
	case err := <-sub.acked:
		if err != nil {
			c.remove(sub.id)
			return nil, err
		}
		return sub, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		sub.Unsubscribe()
		return nil, ctx.Err()
	}
}

// Unsubscribe stops delivery. It is idempotent. An event already being dispatched may
// still reach onData after it returns.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.conn.remove(s.id)
		if err := s.conn.write(message{ID: s.id, Type: typeStop}); err != nil {
			log.Debug().Err(err).Str("subscription", s.id).Msg("realtime stop not sent")
		}
	})
}

func (s *Subscription) ID() string {
	return s.id
}

// Done is closed when the connection ends for any reason.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err reports why the connection ended.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close shuts the websocket and waits for the read goroutine to exit.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		if c.err == nil {
			c.err = ErrClosed
		}
		c.mu.Unlock()

		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.ws.Close()
	})
	<-c.done
	return nil
}

func (c *Conn) readLoop() {
	defer close(c.done)
	for {
		c.ws.SetReadDeadline(time.Now().Add(c.keepAlive))
		var msg message
		if err := c.ws.ReadJSON(&msg); err != nil {
			c.fail(err)
			return
		}

		switch msg.Type {
		case typeKeepAlive:
		case typeStartAck:
			if sub := c.lookup(msg.ID); sub != nil {
				sub.ack(nil)
			}
		case typeData:
			sub := c.lookup(msg.ID)
			if sub == nil {
				continue
			}
			var p dataPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				log.Warn().Err(err).Str("subscription", msg.ID).Msg("realtime data payload dropped")
				continue
			}
			sub.onData(p.Data)
		case typeError:
			var p errorPayload
			_ = json.Unmarshal(msg.Payload, &p)
			err := errors.Kind(errors.ErrProtocol, nil, "realtime: %s", p.message())
			if sub := c.lookup(msg.ID); sub != nil {
				sub.ack(err)
			}
			log.Warn().Err(err).Str("subscription", msg.ID).Msg("realtime subscription error")
		case typeComplete:
			c.remove(msg.ID)
		case typeConnectionError:
			var p errorPayload
			_ = json.Unmarshal(msg.Payload, &p)
			c.fail(errors.Kind(errors.ErrProtocol, nil, "realtime: %s", p.message()))
			return
		default:
			log.Debug().Str("type", msg.Type).Msg("realtime message ignored")
		}
	}
}

func (c *Conn) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = errors.Kind(errors.ErrNetwork, err, "realtime connection lost")
		log.Warn().Err(err).Msg("realtime connection lost")
	}
	subs := c.subs
	c.subs = make(map[string]*Subscription)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.ack(ErrClosed)
	}
	_ = c.ws.Close()
}

func (c *Conn) write(msg message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(msg)
}

func (c *Conn) lookup(id string) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[id]
}

func (c *Conn) remove(id string) {
	c.mu.Lock()
	delete(c.subs, id)
	c.mu.Unlock()
}

func (s *Subscription) ack(err error) {
	select {
	case s.acked <- err:
	default:
	}
}

func connectURL(realtimeURL string, auth map[string]string) (string, error) {
	u, err := url.Parse(realtimeURL)
	if err != nil {
		return "", err
	}
	header, err := json.Marshal(auth)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("header", base64.StdEncoding.EncodeToString(header))
	q.Set("payload", emptyPayload)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// hostOf picks the host used in the authorization header: the GraphQL HTTP host when known.
func hostOf(httpEndpoint, realtimeURL string) (string, error) {
	endpoint := httpEndpoint
	if endpoint == "" {
		endpoint = realtimeURL
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", errors.New("endpoint has no host")
	}
	return u.Host, nil
}
