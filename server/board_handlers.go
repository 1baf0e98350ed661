package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-teamchat/boards"
	"github.com/jrsteele09/go-teamchat/internal/errors"
	"github.com/jrsteele09/go-teamchat/internal/utils"
	"github.com/jrsteele09/go-teamchat/messages"
	"github.com/jrsteele09/go-teamchat/sessions"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const notMemberMessage = "You are not a member of this board."

var errNotBoardMember = errors.New("not a board member")

// requireMembership loads the members of boardID and returns errNotBoardMember when user is
// not one of them. The board page checks the members it already loaded with isMember.
func (s *Server) requireMembership(ctx context.Context, accessToken string, user *sessions.UserProfile, boardID string) error {
	members, err := s.boards.GetBoardMembers(ctx, accessToken, boardID)
	if err != nil {
		return err
	}
	if !isMember(user, members) {
		return errNotBoardMember
	}
	return nil
}

func isMember(user *sessions.UserProfile, members []boards.BoardMember) bool {
	return user != nil && boards.IsBoardMember(members, user.Email, user.Sub)
}

type BoardsPageData struct {
	AppName string
	User    *sessions.UserProfile
	Boards  []boards.MyBoard
	Error   string
}

// BoardsPageHandler lists the boards of the signed in user.
func (s *Server) BoardsPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		data := BoardsPageData{AppName: s.config.GetAppName(), User: user}

		result, err := s.boards.GetMyBoards(r.Context(), accessTokenFromContext(r.Context()), user.Sub)
		switch {
		case err != nil:
			log.Err(err).Str("userId", user.Sub).Msg("Error fetching my boards")
			data.Error = "Failed to fetch boards"
		case !result.Success:
			data.Error = result.Message
			if data.Error == "" {
				data.Error = "Failed to fetch boards"
			}
		default:
			for _, b := range result.Data {
				if b.BoardInfo != nil {
					data.Boards = append(data.Boards, b)
				}
			}
		}

		s.render(w, http.StatusOK, pageBoards, data)
	}
}

type BoardPageData struct {
	AppName   string
	User      *sessions.UserProfile
	BoardID   string
	BoardType string
	BoardName string
	Members   []boards.BoardMember
	Messages  []messages.Message
	LoadError string
	Draft     string
	SendError string
}

type ErrorPageData struct {
	AppName  string
	Title    string
	Message  string
	RetryURL string
}

// BoardPageHandler renders one board with its members and latest messages. Members, board
// details and messages load concurrently; the page then opens the live feed itself.
func (s *Server) BoardPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		boardID := r.PathValue("boardId")
		boardType := r.URL.Query().Get("type")
		if boardID == "" || boardType == "" {
			redirectSuccess(w, r, RouteBoards)
			return
		}

		user := userFromContext(r.Context())
		accessToken := accessTokenFromContext(r.Context())

		var (
			members []boards.BoardMember
			board   *boards.Board
			msgs    []messages.Message
			listErr error
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			var err error
			members, err = s.boards.GetBoardMembers(ctx, accessToken, boardID)
			return err
		})
		g.Go(func() error {
			var err error
			if board, err = s.boards.GetBoardByID(ctx, accessToken, boardID, boardType); err != nil {
				log.Warn().Err(err).Str("boardId", boardID).Msg("Error fetching board by id")
			}
			return nil
		})
		g.Go(func() error {
			msgs, listErr = s.messages.List(ctx, boardID, s.config.GetMessagePageSize())
			return nil
		})
		if err := g.Wait(); err != nil {
			log.Err(err).Str("boardId", boardID).Msg("Error fetching board members")
			s.render(w, http.StatusBadGateway, pageError, ErrorPageData{
				AppName:  s.config.GetAppName(),
				Title:    "Failed to load board",
				Message:  "The board members could not be loaded.",
				RetryURL: boardPath(boardID, boardType),
			})
			return
		}

		if !isMember(user, members) {
			s.renderDenied(w)
			return
		}

		data := BoardPageData{
			AppName:   s.config.GetAppName(),
			User:      user,
			BoardID:   boardID,
			BoardType: strings.ToLower(boardType),
			BoardName: boardName(board, boardID),
			Members:   boards.ActiveMembers(members),
			Messages:  msgs,
		}
		if listErr != nil {
			log.Err(listErr).Str("boardId", boardID).Msg("Error loading messages")
			data.LoadError = "Failed to load messages"
		}
		flash := s.flash.Pop(w, r, flashDraft, flashError)
		data.Draft = flash[flashDraft]
		data.SendError = flash[flashError]

		s.render(w, http.StatusOK, pageBoard, data)
	}
}

func (s *Server) renderDenied(w http.ResponseWriter) {
	s.render(w, http.StatusForbidden, pageDenied, ErrorPageData{AppName: s.config.GetAppName()})
}

// boardName falls back to the tail of the id when the board record is unavailable.
func boardName(board *boards.Board, boardID string) string {
	if board != nil && board.Name != "" {
		return board.Name
	}
	suffix := boardID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return "Board " + suffix
}

// SenderName prefers the name stamped on the message, then the board member list.
func (d BoardPageData) SenderName(m messages.Message) string {
	info := utils.Value(m.SenderInfo)
	if info.Name != "" {
		return info.Name
	}
	for _, member := range d.Members {
		if member.ID == m.SenderID {
			return member.DisplayName()
		}
	}
	if info.Email != "" {
		return info.Email
	}
	return "Unknown"
}

func (d BoardPageData) IsMine(m messages.Message) bool {
	return d.User != nil && m.SenderID == d.User.Sub
}
