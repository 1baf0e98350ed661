// Package boards reads board memberships, members and details from the board backend.
package boards

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-teamchat/graphql"
	"github.com/jrsteele09/go-teamchat/internal/errors"
	"github.com/rs/zerolog/log"
)

// Service calls the board backend with its API key and, when given, the user's access token.
type Service struct {
	client *graphql.Client
}

func NewService(client *graphql.Client) *Service {
	return &Service{client: client}
}

// GetMyBoards lists the memberships of userID. A backend that answers success=false is not
// an error; the result carries its message.
func (s *Service) GetMyBoards(ctx context.Context, accessToken, userID string) (MyBoardsResult, error) {
	result, err := graphql.Query[struct {
		MyBoards *MyBoardsResult `json:"getMyBoards"`
	}](ctx, s.client, graphql.Request{
		OperationName: "GetMyBoards",
		Query:         myBoardsQuery,
		Variables:     map[string]any{"userId": userID},
	}, accessToken)
	if err != nil {
		log.Err(err).Str("userId", userID).Msg("Error fetching boards")
		return MyBoardsResult{}, err
	}
	if result.MyBoards == nil {
		return MyBoardsResult{Data: []MyBoard{}}, nil
	}
	if result.MyBoards.Data == nil {
		result.MyBoards.Data = []MyBoard{}
	}
	return *result.MyBoards, nil
}

func (s *Service) GetBoardMembers(ctx context.Context, accessToken, boardID string) ([]BoardMember, error) {
	result, err := graphql.Query[struct {
		Members []BoardMember `json:"getBoardMembers"`
	}](ctx, s.client, graphql.Request{
		OperationName: "GetBoardMembers",
		Query:         boardMembersQuery,
		Variables:     map[string]any{"boardId": boardID},
	}, accessToken)
	if err != nil {
		log.Err(err).Str("boardId", boardID).Msg("Error fetching board members")
		return nil, err
	}
	if result.Members == nil {
		return []BoardMember{}, nil
	}
	return result.Members, nil
}

// GetBoardByID fetches the full board. The board type is sent upper-cased; a missing board
// is errors.ErrNotFound.
func (s *Service) GetBoardByID(ctx context.Context, accessToken, boardID, boardType string) (*Board, error) {
	result, err := graphql.Query[struct {
		Boards *struct {
			Data    *Board `json:"data"`
			Success bool   `json:"success"`
			Message string `json:"message"`
		} `json:"getBoardsById"`
	}](ctx, s.client, graphql.Request{
		OperationName: "GetBoardsById",
		Query:         boardsByIDQuery,
		Variables:     map[string]any{"boardId": boardID, "boardType": strings.ToUpper(boardType)},
	}, accessToken)
	if err != nil {
		log.Err(err).Str("boardId", boardID).Msg("Error fetching board by ID")
		return nil, err
	}
	if result.Boards == nil || result.Boards.Data == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "board %s", boardID)
	}
	return result.Boards.Data, nil
}

// GetBoardDetails looks in the user's own memberships first and falls back to the direct
// getBoardDetails query.
func (s *Service) GetBoardDetails(ctx context.Context, accessToken, boardID, userID string) (*BoardInfo, error) {
	mine, err := s.GetMyBoards(ctx, accessToken, userID)
	if err == nil {
		for _, b := range mine.Data {
			if b.BoardID == boardID && b.BoardInfo != nil {
				return b.BoardInfo, nil
			}
		}
	}

	result, err := graphql.Query[struct {
		Details *BoardInfo `json:"getBoardDetails"`
	}](ctx, s.client, graphql.Request{
		OperationName: "GetBoardDetails",
		Query:         boardDetailsQuery,
		Variables:     map[string]any{"boardId": boardID, "userId": userID},
	}, accessToken)
	if err != nil {
		log.Warn().Err(err).Str("boardId", boardID).Msg("Direct board query failed")
		return nil, err
	}
	if result.Details == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "board %s", boardID)
	}
	return result.Details, nil
}

// IsBoardMember reports whether the user, matched by email or id, has joined.
func IsBoardMember(members []BoardMember, email, sub string) bool {
	m := FindMember(members, email, sub)
	return m != nil && m.Status == StatusJoined
}

// FindMember returns the first member whose email or id matches.
func FindMember(members []BoardMember, email, sub string) *BoardMember {
	for i := range members {
		m := &members[i]
		if (email != "" && m.Email == email) || (sub != "" && m.ID == sub) {
			return m
		}
	}
	return nil
}

// ActiveMembers keeps the joined members.
func ActiveMembers(members []BoardMember) []BoardMember {
	out := make([]BoardMember, 0, len(members))
	for _, m := range members {
		if m.Status == StatusJoined {
			out = append(out, m)
		}
	}
	return out
}
