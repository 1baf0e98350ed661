// Package chat keeps the message list of the board a user is looking at: an initial load
// merged with a live feed of created messages.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-teamchat/internal/errors"
	"github.com/jrsteele09/go-teamchat/messages"
	"github.com/rs/zerolog/log"
)

var (
	ErrSendInFlight = errors.New("a message is already being sent")
	ErrEmptyMessage = errors.New("message is empty")
	ErrNoBoard      = errors.New("no board is open")
	ErrViewClosed   = errors.New("chat view is closed")
)

// Channel is the message backend as the view uses it. *messages.Service implements it.
type Channel interface {
	List(ctx context.Context, boardID string, pageSize int) ([]messages.Message, error)
	Send(ctx context.Context, input messages.CreateInput) (messages.Message, error)
	Subscribe(ctx context.Context, onMessage func(messages.Message)) (messages.Subscription, error)
}

type EventKind int

const (
	// EventReset empties the list for a newly opened board.
	EventReset EventKind = iota
	// EventLoaded replaces the list with a full snapshot.
	EventLoaded
	// EventAppend adds one message at the end.
	EventAppend
	EventLoadFailed
	EventConnected
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventReset:
		return "reset"
	case EventLoaded:
		return "loaded"
	case EventAppend:
		return "append"
	case EventLoadFailed:
		return "load_failed"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	}
	return "unknown"
}

type Event struct {
	Kind     EventKind
	BoardID  string
	Messages []messages.Message
	Err      error
}

// Listener receives events in order. It runs with the view locked, so it must not call
// back into the View and should hand work off rather than block.
type Listener func(Event)

type Options struct {
	// Sender is stamped on every message sent through the view.
	Sender   messages.SenderInfo
	PageSize int
	Listener Listener
	Now      func() time.Time
}

// View is the message cache of one viewer. Safe for concurrent use.
type View struct {
	channel  Channel
	sender   messages.SenderInfo
	pageSize int
	listener Listener
	now      func() time.Time

	mu         sync.Mutex
	boardID    string
	generation uint64
	cache      []messages.Message
	seen       map[string]struct{}
	sub        messages.Subscription
	connected  bool
	sending    bool
	closed     bool
}

func NewView(channel Channel, opts Options) *View {
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.Listener == nil {
		opts.Listener = func(Event) {}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &View{
		channel:  channel,
		sender:   opts.Sender,
		pageSize: opts.PageSize,
		listener: opts.Listener,
		now:      opts.Now,
		seen:     make(map[string]struct{}),
	}
}

// Open shows boardID. The previous subscription is cancelled and the list cleared before
// anything is loaded. A failed subscription leaves the view usable but disconnected; a
// failed load is returned and reported as EventLoadFailed.
func (v *View) Open(ctx context.Context, boardID string) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	v.generation++
	gen := v.generation
	v.boardID = boardID
	v.cache = nil
	v.seen = make(map[string]struct{})
	v.connected = false
	previous := v.sub
	v.sub = nil
	v.listener(Event{Kind: EventReset, BoardID: boardID, Messages: []messages.Message{}})
	v.mu.Unlock()

	if previous != nil {
		previous.Unsubscribe()
	}

	v.subscribe(ctx, gen, boardID)
	return v.load(ctx, gen, boardID)
}

// SwitchBoard is Open for a view that already shows a board.
func (v *View) SwitchBoard(ctx context.Context, boardID string) error {
	return v.Open(ctx, boardID)
}

// Reload fetches the current board again and merges it with what is shown.
func (v *View) Reload(ctx context.Context) error {
	v.mu.Lock()
	gen, boardID, closed := v.generation, v.boardID, v.closed
	v.mu.Unlock()
	if closed {
		return ErrViewClosed
	}
	if boardID == "" {
		return ErrNoBoard
	}
	return v.load(ctx, gen, boardID)
}

func (v *View) subscribe(ctx context.Context, gen uint64, boardID string) {
	sub, err := v.channel.Subscribe(ctx, func(m messages.Message) {
		v.deliver(gen, m)
	})

	v.mu.Lock()
	if err != nil {
		if v.current(gen) {
			v.listener(Event{Kind: EventDisconnected, BoardID: boardID, Err: err})
		}
		v.mu.Unlock()
		log.Warn().Err(err).Str("boardId", boardID).Msg("Failed to setup subscription")
		return
	}
	if !v.current(gen) {
		v.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	v.sub = sub
	v.connected = true
	v.listener(Event{Kind: EventConnected, BoardID: boardID})
	v.mu.Unlock()

	go v.watch(gen, boardID, sub)
}

// watch reports a feed that ends while its board is still shown.
func (v *View) watch(gen uint64, boardID string, sub messages.Subscription) {
	<-sub.Done()
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current(gen) && v.sub == sub {
		v.sub = nil
		v.connected = false
		v.listener(Event{Kind: EventDisconnected, BoardID: boardID})
	}
}

func (v *View) load(ctx context.Context, gen uint64, boardID string) error {
	list, err := v.channel.List(ctx, boardID, v.pageSize)

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.current(gen) {
		return nil
	}
	if err != nil {
		v.listener(Event{Kind: EventLoadFailed, BoardID: boardID, Err: err})
		return err
	}

	merged := messages.ForBoard(list, boardID)
	seen := make(map[string]struct{}, len(merged)+len(v.cache))
	for _, m := range merged {
		seen[m.ID] = struct{}{}
	}
	for _, m := range v.cache {
		if _, dup := seen[m.ID]; !dup {
			seen[m.ID] = struct{}{}
			merged = append(merged, m)
		}
	}
	v.cache = merged
	v.seen = seen
	v.listener(Event{Kind: EventLoaded, BoardID: boardID, Messages: v.snapshot()})
	return nil
}

// deliver appends m if it belongs to the board shown now and is not already listed.
func (v *View) deliver(gen uint64, m messages.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.current(gen) {
		return
	}
	v.insert(m)
}

func (v *View) insert(m messages.Message) {
	if m.BoardID != v.boardID {
		return
	}
	if _, dup := v.seen[m.ID]; dup {
		return
	}
	v.seen[m.ID] = struct{}{}
	v.cache = append(v.cache, m)
	v.listener(Event{Kind: EventAppend, BoardID: v.boardID, Messages: []messages.Message{m}})
}

// Send creates a message on the current board. Only one send runs at a time; a second call
// meanwhile gets ErrSendInFlight. Nothing is shown until the backend accepts the message.
func (v *View) Send(ctx context.Context, body string) (messages.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return messages.Message{}, ErrEmptyMessage
	}

	v.mu.Lock()
	switch {
	case v.closed:
		v.mu.Unlock()
		return messages.Message{}, ErrViewClosed
	case v.boardID == "":
		v.mu.Unlock()
		return messages.Message{}, ErrNoBoard
	case v.sending:
		v.mu.Unlock()
		return messages.Message{}, ErrSendInFlight
	}
	v.sending = true
	gen, boardID := v.generation, v.boardID
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.sending = false
		v.mu.Unlock()
	}()

	now := v.now().UTC()
	sender := v.sender
	sent, err := v.channel.Send(ctx, messages.CreateInput{
		ID:         messages.NewID(now),
		BoardID:    boardID,
		SenderID:   sender.ID,
		SenderInfo: &sender,
		Body:       body,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return messages.Message{}, err
	}

	v.mu.Lock()
	if v.current(gen) {
		v.insert(sent)
	}
	v.mu.Unlock()
	return sent, nil
}

// Messages returns a copy of the list shown now.
func (v *View) Messages() []messages.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot()
}

func (v *View) BoardID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.boardID
}

func (v *View) Connected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.connected
}

func (v *View) Sending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sending
}

// Close cancels the subscription. Later events are dropped. It is idempotent.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.generation++
	sub := v.sub
	v.sub = nil
	v.connected = false
	v.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// current must be called with mu held.
func (v *View) current(gen uint64) bool {
	return !v.closed && gen == v.generation
}

func (v *View) snapshot() []messages.Message {
	out := make([]messages.Message, len(v.cache))
	copy(out, v.cache)
	return out
}
