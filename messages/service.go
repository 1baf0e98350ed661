// Package messages reads and writes team messages on the message backend and follows
// newly created messages over its realtime channel.
package messages

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/jrsteele09/go-teamchat/graphql"
	"github.com/jrsteele09/go-teamchat/graphql/realtime"
	"github.com/jrsteele09/go-teamchat/internal/errors"
	"github.com/rs/zerolog/log"
)

// Subscription is a live feed of created messages.
type Subscription interface {
	// Unsubscribe stops delivery and releases the connection. It is idempotent and
	// must not be called from the onMessage callback.
	Unsubscribe()
	// Done is closed when the feed ends, whether by Unsubscribe or connection loss.
	Done() <-chan struct{}
}

// Service talks to the message backend with its API key.
type Service struct {
	client   *graphql.Client
	realtime realtime.Config
}

// NewService uses client for queries and mutations and rt for subscriptions.
func NewService(client *graphql.Client, rt realtime.Config) *Service {
	if rt.HTTPEndpoint == "" {
		rt.HTTPEndpoint = client.Endpoint()
	}
	if rt.APIKey == "" {
		rt.APIKey = client.APIKey()
	}
	return &Service{client: client, realtime: rt}
}

// List returns up to pageSize messages of boardID, oldest first. Entries for other boards
// are dropped even when the backend returns them.
func (s *Service) List(ctx context.Context, boardID string, pageSize int) ([]Message, error) {
	vars := map[string]any{"boardId": boardID}
	if pageSize > 0 {
		vars["first"] = pageSize
	}
	result, err := graphql.Query[struct {
		Query *connection `json:"queryTeamMessagesByBoardIdIndex"`
	}](ctx, s.client, graphql.Request{
		OperationName: "QueryTeamMessagesByBoardIdIndex",
		Query:         listByBoardQuery,
		Variables:     vars,
	}, "")
	if err != nil {
		log.Err(err).Str("boardId", boardID).Msg("Error loading messages")
		return nil, err
	}
	if result.Query == nil {
		return []Message{}, nil
	}
	return ForBoard(result.Query.Items, boardID), nil
}

// ForBoard keeps the messages of boardID and orders them by CreatedAt. Equal timestamps
// keep their input order.
func ForBoard(items []Message, boardID string) []Message {
	out := make([]Message, 0, len(items))
	for _, m := range items {
		if m.BoardID == boardID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Send creates a message. Retries are not de-duplicated here.
func (s *Service) Send(ctx context.Context, input CreateInput) (Message, error) {
	if input.BoardID == "" || input.SenderID == "" {
		return Message{}, errors.New("message needs a board and a sender")
	}
	result, err := graphql.Query[struct {
		Message *Message `json:"createTeamMessage"`
	}](ctx, s.client, graphql.Request{
		OperationName: "CreateTeamMessage",
		Query:         createMutation,
		Variables:     map[string]any{"input": input},
	}, "")
	if err != nil {
		log.Err(err).Str("boardId", input.BoardID).Str("id", input.ID).Msg("Error sending message")
		return Message{}, err
	}
	if result.Message == nil {
		return Message{}, errors.Kind(errors.ErrProtocol, nil, "createTeamMessage returned no message")
	}
	return *result.Message, nil
}

// Get returns errors.ErrNotFound when the message does not exist.
func (s *Service) Get(ctx context.Context, id string) (Message, error) {
	result, err := graphql.Query[struct {
		Message *Message `json:"getTeamMessage"`
	}](ctx, s.client, graphql.Request{
		OperationName: "GetTeamMessage",
		Query:         getQuery,
		Variables:     map[string]any{"id": id},
	}, "")
	if err != nil {
		return Message{}, err
	}
	if result.Message == nil {
		return Message{}, errors.Wrapf(errors.ErrNotFound, "message %s", id)
	}
	return *result.Message, nil
}

func (s *Service) Update(ctx context.Context, input UpdateInput) (Message, error) {
	result, err := graphql.Query[struct {
		Message *Message `json:"updateTeamMessage"`
	}](ctx, s.client, graphql.Request{
		OperationName: "UpdateTeamMessage",
		Query:         updateMutation,
		Variables:     map[string]any{"input": input},
	}, "")
	if err != nil {
		return Message{}, err
	}
	if result.Message == nil {
		return Message{}, errors.Wrapf(errors.ErrNotFound, "message %s", input.ID)
	}
	return *result.Message, nil
}

// Delete returns the removed message.
func (s *Service) Delete(ctx context.Context, id string) (Message, error) {
	result, err := graphql.Query[struct {
		Message *Message `json:"deleteTeamMessage"`
	}](ctx, s.client, graphql.Request{
		OperationName: "DeleteTeamMessage",
		Query:         deleteMutation,
		Variables:     map[string]any{"input": map[string]string{"id": id}},
	}, "")
	if err != nil {
		return Message{}, err
	}
	if result.Message == nil {
		return Message{}, errors.Wrapf(errors.ErrNotFound, "message %s", id)
	}
	return *result.Message, nil
}

// Subscribe opens a realtime connection and calls onMessage for every message created on
// any board. Callers filter by board themselves. onMessage runs on the connection's read
// goroutine. Nothing is replayed after a dropped connection; Done reports the drop.
func (s *Service) Subscribe(ctx context.Context, onMessage func(Message)) (Subscription, error) {
	conn, err := realtime.Dial(ctx, s.realtime)
	if err != nil {
		log.Err(err).Msg("Failed to open message subscription")
		return nil, err
	}
	sub, err := conn.Subscribe(ctx, onCreateSubscription, nil, func(data json.RawMessage) {
		var event struct {
			Message *Message `json:"onCreateTeamMessage"`
		}
		if err := json.Unmarshal(data, &event); err != nil || event.Message == nil {
			log.Warn().Err(err).Msg("Dropped undecodable message event")
			return
		}
		onMessage(*event.Message)
	})
	if err != nil {
		conn.Close()
		log.Err(err).Msg("Failed to start message subscription")
		return nil, err
	}
	return &liveSubscription{conn: conn, sub: sub}, nil
}

type liveSubscription struct {
	conn *realtime.Conn
	sub  *realtime.Subscription
}

func (l *liveSubscription) Unsubscribe() {
	l.sub.Unsubscribe()
	l.conn.Close()
}

func (l *liveSubscription) Done() <-chan struct{} {
	return l.conn.Done()
}
