package server

import (
	"net/url"
	"strings"
)

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex = "/"

	// Auth Routes - Login & Logout
	RouteLogin      = "/login"
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Board Routes
	RouteBoards       = "/boards"
	RouteBoard        = "/board/{boardId}"
	RouteBoardMessage = "/board/{boardId}/messages"
	RouteBoardLive    = "/board/{boardId}/live"

	// API Routes
	RouteAPIBoardMessages = "/api/board/{boardId}/messages"

	// Static Asset Routes (patterns)
	RouteStatic  = "/static/{file...}"
	RouteFavicon = "/favicon.ico"
)

// boardPath fills in RouteBoard. boardType is optional.
func boardPath(boardID, boardType string) string {
	p := "/board/" + url.PathEscape(boardID)
	if boardType != "" {
		p += "?type=" + url.QueryEscape(strings.ToLower(boardType))
	}
	return p
}
