package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jrsteele09/go-teamchat/chat"
	"github.com/jrsteele09/go-teamchat/internal/errors"
	"github.com/jrsteele09/go-teamchat/internal/htmlsanitize"
	"github.com/jrsteele09/go-teamchat/messages"
	"github.com/jrsteele09/go-teamchat/sessions"
	"github.com/rs/zerolog/log"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
	liveMaxMessage = 16 * 1024
	liveSendBuffer = 256
)

// Frames sent to the browser. Event frames use chat.EventKind names.
const (
	frameSent       = "sent"
	frameSendFailed = "send_failed"
	frameError      = "error"
)

// Frames accepted from the browser.
const (
	clientSend   = "send"
	clientReload = "reload"
	clientSwitch = "switch"
)

type liveFrame struct {
	Type     string             `json:"type"`
	BoardID  string             `json:"boardId,omitempty"`
	Messages []messages.Message `json:"messages,omitempty"`
	Message  *messages.Message  `json:"message,omitempty"`
	Error    string             `json:"error,omitempty"`
	Draft    string             `json:"draft,omitempty"`
}

type clientFrame struct {
	Type    string `json:"type"`
	Body    string `json:"body,omitempty"`
	BoardID string `json:"boardId,omitempty"`
}

// liveSession bridges one browser socket to one chat.View.
type liveSession struct {
	server      *Server
	conn        *websocket.Conn
	view        *chat.View
	user        *sessions.UserProfile
	accessToken string

	out       chan liveFrame
	done      chan struct{}
	closeOnce sync.Once
}

// LiveHandler upgrades to a websocket and streams the board's messages to the page.
func (s *Server) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		boardID := r.PathValue("boardId")
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Str("boardId", boardID).Msg("Websocket upgrade failed")
			return
		}

		user := userFromContext(r.Context())
		accessToken := accessTokenFromContext(r.Context())
		switch err := s.requireMembership(r.Context(), accessToken, user, boardID); {
		case errors.Is(err, errNotBoardMember):
			log.Warn().Str("boardId", boardID).Str("userId", user.Sub).Msg("Live connection rejected, not a board member")
			rejectLive(conn, boardID, websocket.ClosePolicyViolation, notMemberMessage)
			return
		case err != nil:
			log.Err(err).Str("boardId", boardID).Msg("Error fetching board members")
			rejectLive(conn, boardID, websocket.CloseTryAgainLater, "Failed to load board")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		ls := &liveSession{
			server:      s,
			conn:        conn,
			user:        user,
			accessToken: accessToken,
			out:         make(chan liveFrame, liveSendBuffer),
			done:        make(chan struct{}),
		}
		ls.view = chat.NewView(s.messages, chat.Options{
			Sender:   senderInfo(ls.user),
			PageSize: s.config.GetMessagePageSize(),
			Listener: ls.onEvent,
		})

		stop := context.AfterFunc(s.liveCtx, ls.goingAway)
		defer stop()

		go ls.writeLoop()
		go func() {
			if err := ls.view.Open(ctx, boardID); err != nil {
				log.Warn().Err(err).Str("boardId", boardID).Msg("Initial message load failed")
			}
		}()

		ls.readLoop(ctx)
		ls.close()
		ls.view.Close()
	}
}

// rejectLive tells the page why and closes the socket before any view is opened.
func rejectLive(conn *websocket.Conn, boardID string, code int, reason string) {
	defer conn.Close()
	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := conn.WriteJSON(liveFrame{Type: frameError, BoardID: boardID, Error: reason}); err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}

// onEvent runs with the view locked, so it only queues. A client too slow to keep up is
// disconnected rather than shown a list with gaps.
func (ls *liveSession) onEvent(e chat.Event) {
	f := liveFrame{Type: e.Kind.String(), BoardID: e.BoardID, Messages: e.Messages}
	if e.Err != nil {
		f.Error = e.Err.Error()
	}
	ls.push(f)
}

func (ls *liveSession) push(f liveFrame) {
	select {
	case <-ls.done:
	case ls.out <- f:
	default:
		log.Warn().Str("boardId", f.BoardID).Msg("Live client is too slow, disconnecting")
		ls.close()
	}
}

func (ls *liveSession) close() {
	ls.closeOnce.Do(func() {
		close(ls.done)
		_ = ls.conn.Close()
	})
}

// goingAway closes the socket on server shutdown. WriteControl may run alongside writeLoop.
func (ls *liveSession) goingAway() {
	_ = ls.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(liveWriteWait))
	ls.close()
}

func (ls *liveSession) readLoop(ctx context.Context) {
	ls.conn.SetReadLimit(liveMaxMessage)
	_ = ls.conn.SetReadDeadline(time.Now().Add(livePongWait))
	ls.conn.SetPongHandler(func(string) error {
		return ls.conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		var f clientFrame
		if err := ls.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("Live connection closed")
			}
			return
		}

		switch f.Type {
		case clientSend:
			go ls.send(ctx, f.Body)
		case clientReload:
			go func() { _ = ls.view.Reload(ctx) }()
		case clientSwitch:
			go ls.switchBoard(ctx, f.BoardID)
		default:
			ls.push(liveFrame{Type: frameError, Error: "unknown frame type " + f.Type})
		}
	}
}

func (ls *liveSession) send(ctx context.Context, draft string) {
	sent, err := ls.view.Send(ctx, htmlsanitize.PlainText(draft))
	switch {
	case err == nil:
		ls.push(liveFrame{Type: frameSent, BoardID: sent.BoardID, Message: &sent})
	case errors.Is(err, chat.ErrEmptyMessage):
	case errors.Is(err, chat.ErrSendInFlight):
		ls.push(liveFrame{Type: frameSendFailed, Error: "A message is already being sent", Draft: draft})
	default:
		log.Err(err).Str("boardId", ls.view.BoardID()).Msg("Error sending message")
		ls.push(liveFrame{Type: frameSendFailed, Error: sendFailedMessage, Draft: draft})
	}
}

// switchBoard opens another board the user has joined on the same socket.
func (ls *liveSession) switchBoard(ctx context.Context, boardID string) {
	if boardID == "" {
		ls.push(liveFrame{Type: frameError, Error: "boardId is required"})
		return
	}
	switch err := ls.server.requireMembership(ctx, ls.accessToken, ls.user, boardID); {
	case errors.Is(err, errNotBoardMember):
		ls.push(liveFrame{Type: frameError, BoardID: boardID, Error: notMemberMessage})
		return
	case err != nil:
		log.Err(err).Str("boardId", boardID).Msg("Error fetching board members")
		ls.push(liveFrame{Type: frameError, BoardID: boardID, Error: "Failed to load board"})
		return
	}
	if err := ls.view.SwitchBoard(ctx, boardID); err != nil {
		log.Warn().Err(err).Str("boardId", boardID).Msg("Message load failed after switch")
	}
}

func (ls *liveSession) writeLoop() {
	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ls.done:
			return
		case f := <-ls.out:
			_ = ls.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := ls.conn.WriteJSON(f); err != nil {
				ls.close()
				return
			}
		case <-ticker.C:
			_ = ls.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := ls.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				ls.close()
				return
			}
		}
	}
}
