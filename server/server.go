package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/jrsteele09/go-teamchat/boards"
	"github.com/jrsteele09/go-teamchat/guard"
	"github.com/jrsteele09/go-teamchat/identity"
	"github.com/jrsteele09/go-teamchat/internal/config"
	"github.com/jrsteele09/go-teamchat/messages"
	"github.com/jrsteele09/go-teamchat/sessions"
)

// Services are the backends the web app renders from.
type Services struct {
	Sessions *sessions.Store
	Identity *identity.Gateway
	Boards   *boards.Service
	Messages *messages.Service
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	handler  http.Handler
	routes   []string
	config   config.Config
	rules    guard.Rules
	sessions *sessions.Store
	identity *identity.Gateway
	boards   *boards.Service
	messages *messages.Service
	flash    *flashStore
	limiter  *loginLimiter
	pages    map[string]*template.Template
	upgrader websocket.Upgrader

	// liveCtx is cancelled by CloseLiveConnections.
	liveCtx  context.Context
	stopLive context.CancelFunc
}

func New(cfg config.Config, services Services) (*Server, error) {
	if services.Sessions == nil || services.Identity == nil || services.Boards == nil || services.Messages == nil {
		return nil, fmt.Errorf("[Server New] all services are required")
	}

	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	flash, err := newFlashStore(cfg.GetSessionSecret(), cfg.GetSecureCookies())
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create flash store: %w", err)
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		rules:    guard.DefaultRules(),
		sessions: services.Sessions,
		identity: services.Identity,
		boards:   services.Boards,
		messages: services.Messages,
		flash:    flash,
		limiter:  newLoginLimiter(cfg.GetLoginRatePerMinute(), cfg.GetTrustedProxies()),
		pages:    pages,
	}
	s.liveCtx, s.stopLive = context.WithCancel(context.Background())
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.initRoutes()
	s.handler = s.GuardMiddleware(s.mux)
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// CloseLiveConnections ends every live socket, including ones opened afterwards.
// http.Server.Shutdown does not track hijacked connections, so register this with
// RegisterOnShutdown.
func (s *Server) CloseLiveConnections() {
	s.stopLive()
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

// checkOrigin accepts same-host upgrades and the configured CORS origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if s.config.GetAllowedOrigins().IsAllowedOrigin(origin) {
		return true
	}
	return strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://") == r.Host
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
