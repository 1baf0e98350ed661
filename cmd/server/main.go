package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-teamchat/boards"
	"github.com/jrsteele09/go-teamchat/graphql"
	"github.com/jrsteele09/go-teamchat/graphql/realtime"
	"github.com/jrsteele09/go-teamchat/identity"
	"github.com/jrsteele09/go-teamchat/internal/config"
	"github.com/jrsteele09/go-teamchat/messages"
	"github.com/jrsteele09/go-teamchat/server"
	"github.com/jrsteele09/go-teamchat/sessions"
	"github.com/jrsteele09/go-teamchat/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env")
	}

	c := config.New()
	setupLogging(c)

	if err := run(c); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func setupLogging(c config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if c.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func run(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := buildServices(ctx, c)
	if err != nil {
		return err
	}
	handler, err := server.New(c, services)
	if err != nil {
		return err
	}

	displayAppname(c.GetAppName())
	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer.RegisterOnShutdown(handler.CloseLiveConnections)
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// buildServices wires the GraphQL backends. Missing endpoints or keys stop start-up.
func buildServices(ctx context.Context, c config.Config) (server.Services, error) {
	var verifier token.Verifier
	if c.GetIdentityIssuer() != "" || c.GetIdentityJWKSURL() != "" {
		v, err := token.NewOIDCVerifier(ctx, c.GetIdentityIssuer(), c.GetIdentityJWKSURL(), c.GetIdentityClientID())
		if err != nil {
			return server.Services{}, err
		}
		verifier = v
	} else {
		log.Warn().Msg("IDENTITY_ISSUER and IDENTITY_JWKS_URL are not set, ID token signatures will not be verified")
	}

	if c.GetAuthEndpoint() == "" || c.GetAuthAPIKey() == "" {
		return server.Services{}, errors.New("AUTH_APPSYNC_ENDPOINT and AUTH_APPSYNC_API_KEY are required")
	}
	boardClient, err := graphql.NewClient("Board", c.GetBoardEndpoint(), c.GetBoardAPIKey(), nil)
	if err != nil {
		return server.Services{}, err
	}
	messageClient, err := graphql.NewClient("Message", c.GetMessageEndpoint(), c.GetMessageAPIKey(), nil)
	if err != nil {
		return server.Services{}, err
	}

	store := sessions.NewStore(c.GetSecureCookies(), c.GetRefreshTokenLifetime(), verifier)
	return server.Services{
		Sessions: store,
		Identity: identity.NewGateway(identity.Config{
			Endpoint: c.GetAuthEndpoint(),
			APIKey:   c.GetAuthAPIKey(),
			Store:    store,
			Verifier: verifier,
		}),
		Boards:   boards.NewService(boardClient),
		Messages: messages.NewService(messageClient, realtime.Config{RealtimeURL: c.GetRealtimeEndpoint()}),
	}, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
