package chat_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jrsteele09/go-teamchat/chat"
	"github.com/jrsteele09/go-teamchat/internal/errors"
	"github.com/jrsteele09/go-teamchat/messages"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func msg(id, board string, minute int) messages.Message {
	at := t0.Add(time.Duration(minute) * time.Minute)
	return messages.Message{ID: id, BoardID: board, SenderID: "user-2", Body: id, CreatedAt: at, UpdatedAt: at}
}

type fakeSub struct {
	channel *fakeChannel
	done    chan struct{}
	once    sync.Once
}

func (s *fakeSub) Unsubscribe() {
	s.once.Do(func() {
		s.channel.mu.Lock()
		delete(s.channel.subs, s)
		s.channel.mu.Unlock()
		close(s.done)
	})
}

func (s *fakeSub) Done() <-chan struct{} {
	return s.done
}

// fakeChannel serves List from per-board rows and lets tests block List and Send.
type fakeChannel struct {
	mu           sync.Mutex
	rows         map[string][]messages.Message
	listGate     map[string]chan struct{}
	sendGate     chan struct{}
	sendErr      error
	subscribeErr error
	subs         map[*fakeSub]func(messages.Message)
	callbacks    []func(messages.Message)
	sent         []messages.CreateInput
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		rows:     make(map[string][]messages.Message),
		listGate: make(map[string]chan struct{}),
		subs:     make(map[*fakeSub]func(messages.Message)),
	}
}

func (f *fakeChannel) List(ctx context.Context, boardID string, _ int) ([]messages.Message, error) {
	f.mu.Lock()
	gate := f.listGate[boardID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]messages.Message(nil), f.rows[boardID]...), nil
}

func (f *fakeChannel) Send(ctx context.Context, input messages.CreateInput) (messages.Message, error) {
	f.mu.Lock()
	gate := f.sendGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return messages.Message{}, f.sendErr
	}
	f.sent = append(f.sent, input)
	m := messages.Message{
		ID: input.ID, BoardID: input.BoardID, SenderID: input.SenderID, SenderInfo: input.SenderInfo,
		Body: input.Body, CreatedAt: input.CreatedAt, UpdatedAt: input.UpdatedAt,
	}
	f.rows[input.BoardID] = append(f.rows[input.BoardID], m)
	return m, nil
}

func (f *fakeChannel) Subscribe(ctx context.Context, onMessage func(messages.Message)) (messages.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	sub := &fakeSub{channel: f, done: make(chan struct{})}
	f.subs[sub] = onMessage
	f.callbacks = append(f.callbacks, onMessage)
	return sub, nil
}

// publish calls every active subscription, as the backend fans out to all boards.
func (f *fakeChannel) publish(m messages.Message) {
	f.mu.Lock()
	var fns []func(messages.Message)
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(m)
	}
}

// dropAll ends every feed as a lost connection would.
func (f *fakeChannel) dropAll() {
	f.mu.Lock()
	subs := make([]*fakeSub, 0, len(f.subs))
	for sub := range f.subs {
		subs = append(subs, sub)
	}
	f.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

func (f *fakeChannel) activeSubs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeChannel) gateList(boardID string) chan struct{} {
	gate := make(chan struct{})
	f.mu.Lock()
	f.listGate[boardID] = gate
	f.mu.Unlock()
	return gate
}

type recorder struct {
	mu     sync.Mutex
	events []chat.Event
}

func (r *recorder) listen(e chat.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []chat.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]chat.EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func (r *recorder) last() chat.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func ids(msgs []messages.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func requireIDs(t *testing.T, want []string, got []messages.Message) {
	t.Helper()
	if diff := cmp.Diff(want, ids(got)); diff != "" {
		t.Fatalf("message ids (-want +got):\n%s", diff)
	}
}

func newView(t *testing.T, ch *fakeChannel) (*chat.View, *recorder) {
	t.Helper()
	rec := &recorder{}
	v := chat.NewView(ch, chat.Options{
		Sender:   messages.SenderInfo{ID: "user-1", Name: "Alice Johnson", Email: "alice@company.com"},
		Listener: rec.listen,
		Now:      func() time.Time { return t0.Add(time.Hour) },
	})
	t.Cleanup(v.Close)
	return v, rec
}

func TestOpen_LoadsBoardMessages(t *testing.T) {
	ch := newFakeChannel()
	ch.rows["b1"] = []messages.Message{msg("m2", "b1", 2), msg("m1", "b1", 1), msg("x1", "b2", 0)}
	v, rec := newView(t, ch)

	require.NoError(t, v.Open(context.Background(), "b1"))

	requireIDs(t, []string{"m1", "m2"}, v.Messages())
	require.Equal(t, "b1", v.BoardID())
	require.True(t, v.Connected())
	require.Equal(t, []chat.EventKind{chat.EventReset, chat.EventConnected, chat.EventLoaded}, rec.kinds())
}

func TestDelivery(t *testing.T) {
	t.Run("only the current board is appended", func(t *testing.T) {
		ch := newFakeChannel()
		v, rec := newView(t, ch)
		require.NoError(t, v.Open(context.Background(), "b1"))

		ch.publish(msg("x1", "b2", 1))
		ch.publish(msg("m1", "b1", 2))

		requireIDs(t, []string{"m1"}, v.Messages())
		last := rec.last()
		require.Equal(t, chat.EventAppend, last.Kind)
		requireIDs(t, []string{"m1"}, last.Messages)
	})

	t.Run("a message already listed is not appended twice", func(t *testing.T) {
		ch := newFakeChannel()
		ch.rows["b1"] = []messages.Message{msg("m1", "b1", 1)}
		v, _ := newView(t, ch)
		require.NoError(t, v.Open(context.Background(), "b1"))

		ch.publish(msg("m1", "b1", 1))
		ch.publish(msg("m2", "b1", 2))
		ch.publish(msg("m2", "b1", 2))

		requireIDs(t, []string{"m1", "m2"}, v.Messages())
	})

	t.Run("live messages delivered during the load are kept once", func(t *testing.T) {
		ch := newFakeChannel()
		ch.rows["b1"] = []messages.Message{msg("m1", "b1", 1), msg("m2", "b1", 2)}
		gate := ch.gateList("b1")
		v, _ := newView(t, ch)

		done := make(chan error)
		go func() { done <- v.Open(context.Background(), "b1") }()
		require.Eventually(t, func() bool { return ch.activeSubs() == 1 }, time.Second, time.Millisecond)

		ch.publish(msg("m2", "b1", 2))
		ch.publish(msg("m3", "b1", 3))
		requireIDs(t, []string{"m2", "m3"}, v.Messages())

		close(gate)
		require.NoError(t, <-done)
		requireIDs(t, []string{"m1", "m2", "m3"}, v.Messages())
	})
}

func TestSwitchBoard(t *testing.T) {
	t.Run("clears before the next load resolves", func(t *testing.T) {
		ch := newFakeChannel()
		ch.rows["b1"] = []messages.Message{msg("m1", "b1", 1)}
		ch.rows["b2"] = []messages.Message{msg("n1", "b2", 1)}
		v, rec := newView(t, ch)
		require.NoError(t, v.Open(context.Background(), "b1"))
		requireIDs(t, []string{"m1"}, v.Messages())

		gate := ch.gateList("b2")
		done := make(chan error)
		go func() { done <- v.SwitchBoard(context.Background(), "b2") }()

		require.Eventually(t, func() bool { return v.BoardID() == "b2" && ch.activeSubs() == 1 }, time.Second, time.Millisecond)
		require.Empty(t, v.Messages())

		close(gate)
		require.NoError(t, <-done)
		requireIDs(t, []string{"n1"}, v.Messages())

		var resets int
		for _, k := range rec.kinds() {
			if k == chat.EventReset {
				resets++
			}
		}
		require.Equal(t, 2, resets)
	})

	t.Run("the old subscription is cancelled and its late callbacks dropped", func(t *testing.T) {
		ch := newFakeChannel()
		v, _ := newView(t, ch)
		require.NoError(t, v.Open(context.Background(), "b1"))
		require.NoError(t, v.SwitchBoard(context.Background(), "b2"))

		require.Equal(t, 1, ch.activeSubs())
		stale := ch.callbacks[0]
		stale(msg("n1", "b2", 1))
		stale(msg("m9", "b1", 1))
		require.Empty(t, v.Messages())

		ch.publish(msg("n2", "b2", 2))
		ch.publish(msg("m2", "b1", 2))
		requireIDs(t, []string{"n2"}, v.Messages())
	})

	t.Run("a slow load of the previous board is discarded", func(t *testing.T) {
		ch := newFakeChannel()
		ch.rows["b1"] = []messages.Message{msg("m1", "b1", 1)}
		ch.rows["b2"] = []messages.Message{msg("n1", "b2", 1)}
		gate := ch.gateList("b1")
		v, _ := newView(t, ch)

		done := make(chan error)
		go func() { done <- v.Open(context.Background(), "b1") }()
		require.Eventually(t, func() bool { return ch.activeSubs() == 1 }, time.Second, time.Millisecond)

		require.NoError(t, v.SwitchBoard(context.Background(), "b2"))
		close(gate)
		require.NoError(t, <-done)

		requireIDs(t, []string{"n1"}, v.Messages())
		require.Equal(t, "b2", v.BoardID())
	})
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("sent message is shown once", func(t *testing.T) {
		ch := newFakeChannel()
		v, _ := newView(t, ch)
		require.NoError(t, v.Open(ctx, "b1"))

		sent, err := v.Send(ctx, "  hello  ")
		require.NoError(t, err)
		require.Equal(t, "hello", sent.Body)
		require.Regexp(t, `^msg_\d+_[0-9a-f]{9}$`, sent.ID)

		ch.publish(sent)
		require.Len(t, v.Messages(), 1)

		input := ch.sent[0]
		require.Equal(t, "b1", input.BoardID)
		require.Equal(t, "user-1", input.SenderID)
		require.Equal(t, "Alice Johnson", input.SenderInfo.Name)
		require.True(t, t0.Add(time.Hour).Equal(input.CreatedAt))

		listed, err := ch.List(ctx, "b1", 50)
		require.NoError(t, err)
		require.Equal(t, "hello", listed[0].Body)
	})

	t.Run("second send while one is in flight is rejected", func(t *testing.T) {
		ch := newFakeChannel()
		ch.sendGate = make(chan struct{})
		v, _ := newView(t, ch)
		require.NoError(t, v.Open(ctx, "b1"))

		done := make(chan error)
		go func() {
			_, err := v.Send(ctx, "first")
			done <- err
		}()
		require.Eventually(t, v.Sending, time.Second, time.Millisecond)

		_, err := v.Send(ctx, "second")
		require.ErrorIs(t, err, chat.ErrSendInFlight)

		close(ch.sendGate)
		require.NoError(t, <-done)
		require.False(t, v.Sending())
		require.Len(t, ch.sent, 1)
	})

	t.Run("failure is returned and nothing is shown", func(t *testing.T) {
		ch := newFakeChannel()
		ch.sendErr = errors.Kind(errors.ErrNetwork, nil, "down")
		v, _ := newView(t, ch)
		require.NoError(t, v.Open(ctx, "b1"))

		_, err := v.Send(ctx, "hello")
		require.True(t, errors.Is(err, errors.ErrNetwork))
		require.Empty(t, v.Messages())
		require.False(t, v.Sending())
	})

	t.Run("empty body and no board", func(t *testing.T) {
		ch := newFakeChannel()
		v, _ := newView(t, ch)

		_, err := v.Send(ctx, "hello")
		require.ErrorIs(t, err, chat.ErrNoBoard)

		require.NoError(t, v.Open(ctx, "b1"))
		_, err = v.Send(ctx, "   ")
		require.ErrorIs(t, err, chat.ErrEmptyMessage)
	})
}

func TestConnectionState(t *testing.T) {
	t.Run("subscribe failure still loads", func(t *testing.T) {
		ch := newFakeChannel()
		ch.subscribeErr = errors.Kind(errors.ErrNetwork, nil, "dial")
		ch.rows["b1"] = []messages.Message{msg("m1", "b1", 1)}
		v, rec := newView(t, ch)

		require.NoError(t, v.Open(context.Background(), "b1"))
		requireIDs(t, []string{"m1"}, v.Messages())
		require.False(t, v.Connected())
		require.Equal(t, []chat.EventKind{chat.EventReset, chat.EventDisconnected, chat.EventLoaded}, rec.kinds())
	})

	t.Run("dropped feed is reported", func(t *testing.T) {
		ch := newFakeChannel()
		v, rec := newView(t, ch)
		require.NoError(t, v.Open(context.Background(), "b1"))

		ch.dropAll()
		require.Eventually(t, func() bool { return !v.Connected() }, time.Second, time.Millisecond)
		require.Equal(t, chat.EventDisconnected, rec.last().Kind)
	})

	t.Run("close cancels the feed", func(t *testing.T) {
		ch := newFakeChannel()
		v, _ := newView(t, ch)
		require.NoError(t, v.Open(context.Background(), "b1"))

		v.Close()
		v.Close()
		require.Zero(t, ch.activeSubs())
		require.ErrorIs(t, v.Open(context.Background(), "b2"), chat.ErrViewClosed)
	})
}
