package messages_test

import (
	"context"
	"net/http"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jrsteele09/go-teamchat/graphql"
	"github.com/jrsteele09/go-teamchat/graphql/realtime"
	"github.com/jrsteele09/go-teamchat/internal/errors"
	"github.com/jrsteele09/go-teamchat/internal/testutil"
	"github.com/jrsteele09/go-teamchat/internal/utils"
	"github.com/jrsteele09/go-teamchat/messages"
	"github.com/stretchr/testify/require"
)

const apiKey = "msg-key"

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*messages.Service, *testutil.FakeGraphQL, *testutil.FakeAppSync) {
	t.Helper()
	backend := testutil.NewFakeGraphQL(t, apiKey)
	live := testutil.NewFakeAppSync(t, apiKey)
	client, err := graphql.NewClient("message", backend.URL(), apiKey, nil)
	require.NoError(t, err)
	return messages.NewService(client, realtime.Config{RealtimeURL: live.URL()}), backend, live
}

func wire(id, board, body string, at time.Time) map[string]any {
	return map[string]any{
		"id":        id,
		"boardId":   board,
		"senderId":  "user-1",
		"message":   body,
		"createdAt": at.Format(time.RFC3339),
		"updatedAt": at.Format(time.RFC3339),
	}
}

func ids(msgs []messages.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestNewID(t *testing.T) {
	id := messages.NewID(t0)
	require.Regexp(t, regexp.MustCompile(`^msg_1740823200000_[0-9a-f]{9}$`), id)
	require.NotEqual(t, id, messages.NewID(t0))
}

func TestList(t *testing.T) {
	ctx := context.Background()

	t.Run("filters other boards and sorts ascending", func(t *testing.T) {
		svc, backend, _ := newService(t)
		backend.Respond("QueryTeamMessagesByBoardIdIndex", map[string]any{
			"queryTeamMessagesByBoardIdIndex": map[string]any{
				"items": []any{
					wire("m3", "b1", "third", t0.Add(2*time.Minute)),
					wire("x1", "b2", "elsewhere", t0),
					wire("m1", "b1", "first", t0),
					wire("m2", "b1", "second", t0.Add(time.Minute)),
				},
			},
		})

		got, err := svc.List(ctx, "b1", 50)
		require.NoError(t, err)
		if diff := cmp.Diff([]string{"m1", "m2", "m3"}, ids(got)); diff != "" {
			t.Fatalf("ids (-want +got):\n%s", diff)
		}
		require.Equal(t, "first", got[0].Body)

		calls := backend.Calls("QueryTeamMessagesByBoardIdIndex")
		require.Len(t, calls, 1)
		require.Equal(t, "b1", calls[0].Variables["boardId"])
		require.EqualValues(t, 50, calls[0].Variables["first"])
	})

	t.Run("null connection is empty", func(t *testing.T) {
		svc, backend, _ := newService(t)
		backend.Respond("QueryTeamMessagesByBoardIdIndex", map[string]any{"queryTeamMessagesByBoardIdIndex": nil})

		got, err := svc.List(ctx, "b1", 50)
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("backend failure is a protocol error", func(t *testing.T) {
		svc, backend, _ := newService(t)
		backend.Status("QueryTeamMessagesByBoardIdIndex", http.StatusInternalServerError)

		_, err := svc.List(ctx, "b1", 50)
		require.True(t, errors.Is(err, errors.ErrProtocol))
	})
}

func TestForBoard_StableForEqualTimestamps(t *testing.T) {
	in := []messages.Message{
		{ID: "a", BoardID: "b1", CreatedAt: t0},
		{ID: "b", BoardID: "b1", CreatedAt: t0},
		{ID: "c", BoardID: "b1", CreatedAt: t0.Add(-time.Second)},
	}
	require.Equal(t, []string{"c", "a", "b"}, ids(messages.ForBoard(in, "b1")))
}

// memoryBackend keeps created messages so send and list can be checked together.
type memoryBackend struct {
	mu   sync.Mutex
	rows []map[string]any
}

func (m *memoryBackend) install(backend *testutil.FakeGraphQL) {
	backend.Handle("CreateTeamMessage", func(call testutil.GraphQLCall) testutil.GraphQLResponse {
		input := call.Variables["input"].(map[string]any)
		m.mu.Lock()
		m.rows = append(m.rows, input)
		m.mu.Unlock()
		return testutil.GraphQLResponse{Body: map[string]any{"data": map[string]any{"createTeamMessage": input}}}
	})
	backend.Handle("QueryTeamMessagesByBoardIdIndex", func(testutil.GraphQLCall) testutil.GraphQLResponse {
		m.mu.Lock()
		defer m.mu.Unlock()
		return testutil.GraphQLResponse{Body: map[string]any{"data": map[string]any{
			"queryTeamMessagesByBoardIdIndex": map[string]any{"items": m.rows},
		}}}
	})
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("sent message is listed", func(t *testing.T) {
		svc, backend, _ := newService(t)
		(&memoryBackend{}).install(backend)

		sent, err := svc.Send(ctx, messages.CreateInput{
			ID:         messages.NewID(t0),
			BoardID:    "b1",
			SenderID:   "user-1",
			SenderInfo: &messages.SenderInfo{ID: "user-1", Name: "Alice Johnson", Email: "alice@company.com"},
			Body:       "hello",
			CreatedAt:  t0,
			UpdatedAt:  t0,
		})
		require.NoError(t, err)
		require.Equal(t, "hello", sent.Body)

		listed, err := svc.List(ctx, "b1", 50)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		require.Equal(t, "hello", listed[0].Body)
		require.Equal(t, "b1", listed[0].BoardID)

		input := backend.Calls("CreateTeamMessage")[0].Variables["input"].(map[string]any)
		require.Equal(t, "hello", input["message"])
		require.Equal(t, t0.Format(time.RFC3339), input["createdAt"])
		require.Equal(t, "Alice Johnson", input["senderInfo"].(map[string]any)["name"])
	})

	t.Run("requires board and sender", func(t *testing.T) {
		svc, backend, _ := newService(t)
		_, err := svc.Send(ctx, messages.CreateInput{Body: "hello"})
		require.Error(t, err)
		require.Empty(t, backend.Calls(""))
	})

	t.Run("GraphQL errors are returned", func(t *testing.T) {
		svc, backend, _ := newService(t)
		backend.Errors("CreateTeamMessage", "Not Authorized")

		_, err := svc.Send(ctx, messages.CreateInput{BoardID: "b1", SenderID: "user-1", Body: "x"})
		require.True(t, errors.Is(err, errors.ErrProtocol))
		require.Equal(t, "Not Authorized", graphql.Message(err))
	})
}

func TestGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	svc, backend, _ := newService(t)

	backend.Respond("GetTeamMessage", map[string]any{"getTeamMessage": wire("m1", "b1", "hi", t0)})
	got, err := svc.Get(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, "hi", got.Body)
	require.True(t, t0.Equal(got.CreatedAt))

	backend.Respond("GetTeamMessage", map[string]any{"getTeamMessage": nil})
	_, err = svc.Get(ctx, "missing")
	require.True(t, errors.Is(err, errors.ErrNotFound))

	backend.Respond("UpdateTeamMessage", map[string]any{"updateTeamMessage": wire("m1", "b1", "edited", t0)})
	updated, err := svc.Update(ctx, messages.UpdateInput{ID: "m1", Body: utils.Ptr("edited")})
	require.NoError(t, err)
	require.Equal(t, "edited", updated.Body)
	input := backend.Calls("UpdateTeamMessage")[0].Variables["input"].(map[string]any)
	require.Equal(t, map[string]any{"id": "m1", "message": "edited"}, input)

	backend.Respond("DeleteTeamMessage", map[string]any{"deleteTeamMessage": wire("m1", "b1", "edited", t0)})
	deleted, err := svc.Delete(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, "m1", deleted.ID)
	require.Equal(t, map[string]any{"id": "m1"}, backend.Calls("DeleteTeamMessage")[0].Variables["input"])
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers messages from every board", func(t *testing.T) {
		svc, _, live := newService(t)

		got := make(chan messages.Message, 4)
		sub, err := svc.Subscribe(ctx, func(m messages.Message) { got <- m })
		require.NoError(t, err)
		defer sub.Unsubscribe()

		live.Publish(t, "onCreateTeamMessage", wire("m1", "b1", "one", t0))
		live.Publish(t, "onCreateTeamMessage", wire("m2", "b2", "two", t0))

		var boards []string
		for range 2 {
			select {
			case m := <-got:
				boards = append(boards, m.BoardID)
			case <-time.After(2 * time.Second):
				t.Fatal("message not delivered")
			}
		}
		require.ElementsMatch(t, []string{"b1", "b2"}, boards)
	})

	t.Run("unsubscribe stops the feed", func(t *testing.T) {
		svc, _, live := newService(t)

		sub, err := svc.Subscribe(ctx, func(messages.Message) {})
		require.NoError(t, err)
		live.WaitForSubscriptions(t, 1)

		sub.Unsubscribe()
		sub.Unsubscribe()

		select {
		case <-sub.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("subscription not done")
		}
		require.Eventually(t, func() bool { return len(live.Stops()) == 1 }, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("rejected start is returned", func(t *testing.T) {
		svc, _, live := newService(t)
		live.RejectStarts()

		_, err := svc.Subscribe(ctx, func(messages.Message) {})
		require.True(t, errors.Is(err, errors.ErrProtocol))
	})
}
