// Package app wires the swappbot subsystems together and owns the process
// lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huzaifa838/swappbot/internal/swappbot/auth"
	"github.com/huzaifa838/swappbot/internal/swappbot/bank"
	"github.com/huzaifa838/swappbot/internal/swappbot/bot"
	"github.com/huzaifa838/swappbot/internal/swappbot/pending"
	"github.com/huzaifa838/swappbot/internal/swappbot/store"
	"github.com/huzaifa838/swappbot/internal/swappbot/weather"
)

// Config holds application configuration, populated from the environment by
// cmd/swappbot.
type Config struct {
	// HTTPAddr is the listen address, e.g. ":8080".
	HTTPAddr string

	// DatabasePath is the SQLite file path.
	DatabasePath string

	// WeatherAPIKey authenticates against the weather provider. Required;
	// weather replies surface an error without it.
	WeatherAPIKey string

	// WeatherBaseURL overrides the provider endpoint (tests).
	WeatherBaseURL string

	// PendingTTL bounds how long a "which city?" follow-up stays live.
	// When zero, pending.DefaultTTL is used.
	PendingTTL time.Duration

	// SessionTTL bounds login sessions. When zero, auth.DefaultSessionTTL
	// is used.
	SessionTTL time.Duration

	// SMTP configures outbound password-reset mail. When Host is empty the
	// forgot-password endpoint logs the OTP instead of mailing it.
	SMTP auth.SMTPConfig
}

// App is the assembled swappbot application.
type App struct {
	config *Config
	store  *store.Store
	server *Server
}

// logMailer is the fallback when SMTP is not configured: the OTP goes to the
// application log so local setups can still exercise the reset flow.
type logMailer struct{}

func (logMailer) SendOTP(to, otp string) error {
	slog.Info("smtp not configured; logging otp instead", "to", to, "otp", otp)
	return nil
}

// New creates the application: opens the database, loads the response
// catalog, and wires the engine and HTTP server.
func New(config *Config) (*App, error) {
	slog.Info("opening database", "path", config.DatabasePath)
	st, err := store.New(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	catalog, err := bank.Load()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load response catalog: %w", err)
	}
	slog.Info("response catalog loaded", "entries", catalog.Len())

	tracker := pending.NewTracker(config.PendingTTL)

	weatherClient := weather.NewClient(weather.Config{
		APIKey:  config.WeatherAPIKey,
		BaseURL: config.WeatherBaseURL,
	})

	engine := bot.New(bot.Config{
		Bank:         catalog,
		Pending:      tracker,
		Weather:      weatherClient,
		Sink:         st,
		RedactValues: []string{config.WeatherAPIKey},
	})

	var mailer auth.Mailer = logMailer{}
	if config.SMTP.Host != "" {
		mailer = auth.NewSMTPMailer(config.SMTP)
	}
	tokens := auth.NewTokenStore(st.DB(), config.SessionTTL)
	authSvc := auth.NewService(st, tokens, mailer)

	server := NewServer(config.HTTPAddr, engine, st, authSvc, tracker)

	return &App{
		config: config,
		store:  st,
		server: server,
	}, nil
}

// Run starts the HTTP server and blocks until an interrupt signal arrives.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.server.Start(ctx); err != nil {
		return err
	}

	slog.Info("swappbot is running; press Ctrl+C to stop", "addr", a.config.HTTPAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	return nil
}

// Stop stops the application.
func (a *App) Stop() {
	slog.Info("stopping http server")
	a.server.Stop()

	slog.Info("closing database")
	a.store.Close()
}
