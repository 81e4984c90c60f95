package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-user-auth/accounts"
	fakeaccountrepo "github.com/jrsteele09/go-user-auth/accounts/repofake"
	"github.com/jrsteele09/go-user-auth/accounts/sqliterepo"
	"github.com/jrsteele09/go-user-auth/auth"
	"github.com/jrsteele09/go-user-auth/federation"
	"github.com/jrsteele09/go-user-auth/internal/config"
	"github.com/jrsteele09/go-user-auth/server"
	"github.com/jrsteele09/go-user-auth/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}
	setupLogging(cfg)
	displayAppname(cfg.AppName)

	repo, closeRepo, err := openAccountStore(cfg)
	if err != nil {
		return errors.Wrap(err, "open account store")
	}
	defer closeRepo()

	issuer, err := sessions.NewIssuer(sessions.NewHMACSigner(cfg.SessionSecret), cfg.SessionLifetime)
	if err != nil {
		return errors.Wrap(err, "create session issuer")
	}

	authService, err := auth.NewService(
		repo,
		accounts.NewHasher(cfg.BcryptCost),
		issuer,
		auth.WithMinPasswordLength(cfg.MinPasswordLength),
	)
	if err != nil {
		return errors.Wrap(err, "create auth service")
	}

	providers, err := setupFederation(cfg)
	if err != nil {
		return errors.Wrap(err, "set up federation")
	}

	httpServer := &http.Server{Addr: cfg.ListenAddr(), Handler: server.New(cfg, authService, providers)}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func setupLogging(cfg config.Config) {
	if cfg.Env == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func openAccountStore(cfg config.Config) (accounts.Repo, func(), error) {
	if cfg.DataFolder == "" {
		log.Warn().Msg("no data folder configured, using in-memory account store")
		return fakeaccountrepo.NewFakeAccountRepo(), func() {}, nil
	}

	if err := os.MkdirAll(cfg.DataFolder, 0o755); err != nil {
		return nil, nil, errors.Wrap(err, "create data folder")
	}
	repo, err := sqliterepo.Open(filepath.Join(cfg.DataFolder, "accounts.db"))
	if err != nil {
		return nil, nil, err
	}
	return repo, func() { _ = repo.Close() }, nil
}

func setupFederation(cfg config.Config) (*federation.Registry, error) {
	if !cfg.FederationEnabled() {
		log.Info().Msg("no federated provider configured")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return federation.NewRegistry(ctx, []federation.ProviderConfig{{
		Name:         cfg.FedProviderName,
		IssuerURL:    cfg.FedIssuerURL,
		ClientID:     cfg.FedClientID,
		ClientSecret: cfg.FedClientSecret,
		RedirectURL:  cfg.FedRedirectURL,
		Scopes:       cfg.FedScopes,
	}})
}

func listenAndServe(httpServer *http.Server) {
	log.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server.Shutdown")
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
