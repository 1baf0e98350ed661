package server

import (
	"net/http"
	"strings"
)

func (s *Server) initRoutes() {
	// The guard has already redirected "/" by the time this runs.
	s.RegisterRouteHandler("GET "+RouteIndex+"{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// BOARDS
	s.RegisterRouteHandler("GET "+RouteBoards, ChainMiddleware(s.BoardsPageHandler(), s.HTMLMiddleWare(s.RequireSessionUser)...))
	s.RegisterRouteHandler("GET "+RouteBoard, ChainMiddleware(s.BoardPageHandler(), s.HTMLMiddleWare(s.RequireSessionUser)...))
	s.RegisterRouteHandler("POST "+RouteBoardMessage, ChainMiddleware(s.SendMessageHandler(), s.HTMLMiddleWare(s.RequireSessionUser)...))
	s.RegisterRouteHandler("GET "+RouteBoardLive, ChainMiddleware(s.LiveHandler(), s.WWWRedirectMiddleware, s.LoggingMiddleware, s.RecoverMiddleware, s.RequireSessionUser))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPIBoardMessages, ChainMiddleware(s.BoardMessagesAPIHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteHandler("OPTIONS "+RouteAPIBoardMessages, ChainMiddleware(s.NotFoundHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(s.serveFileHandler(), s.StaticMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteFavicon, ChainMiddleware(s.serveFileHandler(), s.StaticMiddleware()...))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/static"), "/")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		err := StreamFile(w, r, filePath)
		if err != nil {
			logError("GET", filePath, err.Error())
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}
