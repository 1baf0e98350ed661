package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/go-teamchat/internal/errors"
	"github.com/jrsteele09/go-teamchat/internal/htmlsanitize"
	"github.com/jrsteele09/go-teamchat/messages"
	"github.com/jrsteele09/go-teamchat/sessions"
	"github.com/rs/zerolog/log"
)

const sendFailedMessage = "Failed to send message. Please try again."

// senderInfo is the identity stamped on messages the user sends.
func senderInfo(user *sessions.UserProfile) messages.SenderInfo {
	return messages.SenderInfo{
		ID:      user.Sub,
		Name:    user.Name,
		Email:   user.Email,
		Picture: user.Picture,
	}
}

// SendMessageHandler is the form fallback for browsers without the live connection. A
// failed send comes back to the board with the draft restored.
func (s *Server) SendMessageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		boardID := r.PathValue("boardId")
		back := boardPath(boardID, r.FormValue("type"))
		draft := r.FormValue("message")
		body := htmlsanitize.PlainText(draft)
		if body == "" {
			redirectSuccess(w, r, back)
			return
		}

		user := userFromContext(r.Context())
		switch err := s.requireMembership(r.Context(), accessTokenFromContext(r.Context()), user, boardID); {
		case errors.Is(err, errNotBoardMember):
			log.Warn().Str("boardId", boardID).Str("userId", user.Sub).Msg("Send rejected, not a board member")
			s.renderDenied(w)
			return
		case err != nil:
			log.Err(err).Str("boardId", boardID).Msg("Error fetching board members")
			s.flash.Set(w, r, map[string]string{flashDraft: draft, flashError: sendFailedMessage})
			redirectSuccess(w, r, back)
			return
		}

		sender := senderInfo(user)
		now := time.Now().UTC()
		_, err := s.messages.Send(r.Context(), messages.CreateInput{
			ID:         messages.NewID(now),
			BoardID:    boardID,
			SenderID:   sender.ID,
			SenderInfo: &sender,
			Body:       body,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			log.Err(err).Str("boardId", boardID).Msg("Error sending message")
			s.flash.Set(w, r, map[string]string{flashDraft: draft, flashError: sendFailedMessage})
		}
		redirectSuccess(w, r, back)
	}
}

type messagesResponse struct {
	BoardID  string             `json:"boardId"`
	Messages []messages.Message `json:"messages"`
}

// BoardMessagesAPIHandler returns the latest messages of a board as JSON. The page uses it
// to retry a failed load.
func (s *Server) BoardMessagesAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		boardID := r.PathValue("boardId")
		pageSize := s.config.GetMessagePageSize()
		if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= pageSize {
			pageSize = n
		}

		user := userFromContext(r.Context())
		switch err := s.requireMembership(r.Context(), accessTokenFromContext(r.Context()), user, boardID); {
		case errors.Is(err, errNotBoardMember):
			writeJSONError(w, http.StatusForbidden, "access_denied", notMemberMessage)
			return
		case err != nil:
			log.Err(err).Str("boardId", boardID).Msg("Error fetching board members")
			writeJSONError(w, http.StatusBadGateway, "members_unavailable", "Failed to load board members")
			return
		}

		list, err := s.messages.List(r.Context(), boardID, pageSize)
		if err != nil {
			log.Err(err).Str("boardId", boardID).Msg("Error loading messages")
			status := http.StatusBadGateway
			if errors.Is(err, errors.ErrConfiguration) {
				status = http.StatusServiceUnavailable
			}
			writeJSONError(w, status, "messages_unavailable", "Failed to load messages")
			return
		}
		if list == nil {
			list = []messages.Message{}
		}
		writeJSON(w, http.StatusOK, messagesResponse{BoardID: boardID, Messages: list})
	}
}
