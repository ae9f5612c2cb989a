package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/paddockhq/paddock/internal/auth/email"
	"github.com/paddockhq/paddock/internal/auth/service"
	"github.com/paddockhq/paddock/internal/auth/store"
	"github.com/paddockhq/paddock/internal/auth/store/drivers/sqlite"
	"github.com/paddockhq/paddock/pkg/jwtx"
	"github.com/paddockhq/paddock/pkg/ratex"
	"github.com/paddockhq/paddock/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application wires the auth core together: store, signer, mailer, and
// services. It owns the lifecycle of the background housekeeping worker.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	signer jwtx.Signer
	mailer email.Sender

	// Services
	TokenService        *service.TokenService
	RefreshService      *service.RefreshService
	AuthService         *service.AuthService
	InviteService       *service.InviteService
	FarmService         *service.FarmService
	HousekeepingService *service.HousekeepingService
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "paddock-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initSigner(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initMailer(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()

	return app, nil
}

// Run starts the background workers and blocks until shutdown is
// requested via SIGINT or SIGTERM.
func (app *Application) Run() error {
	app.HousekeepingService.Start()

	app.logger.Info("auth core started", "version", BuildVersion, "env", app.cfg.Env)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdown
	app.logger.Info("shutdown signal received", "signal", sig.String())

	return app.Shutdown()
}

// Shutdown stops the workers and closes the database. The housekeeping
// worker gets cfg.ShutdownGracePeriod to finish an in-flight sweep
// before the database is closed out from under it.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth core...")

	stopped := make(chan struct{})
	go func() {
		app.HousekeepingService.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(app.cfg.ShutdownGracePeriod):
		app.logger.Warn("housekeeping did not stop within the grace period",
			"grace_period", app.cfg.ShutdownGracePeriod)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth core stopped")
	return nil
}

// initDatabase opens the database and applies migrations.
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initSigner builds the JWT signer from configuration.
func (app *Application) initSigner() error {
	switch strings.ToUpper(app.cfg.Algorithm) {
	case "HS256", "":
		if app.cfg.JWTSecret == "" {
			return errors.New("AUTH_JWT_SECRET is required for HS256")
		}
		signer, err := jwtx.NewSignerHS256([]byte(app.cfg.JWTSecret))
		if err != nil {
			return fmt.Errorf("failed to initialize HS256 signer: %w", err)
		}
		app.signer = signer

	case "EDDSA":
		if app.cfg.SigningKeyFile == "" {
			return errors.New("AUTH_SIGNING_KEY_FILE is required for EdDSA")
		}
		pemKey, err := os.ReadFile(app.cfg.SigningKeyFile)
		if err != nil {
			return fmt.Errorf("failed to read signing key: %w", err)
		}
		signer, err := jwtx.NewSignerEdDSA(pemKey)
		if err != nil {
			return fmt.Errorf("failed to initialize EdDSA signer: %w", err)
		}
		app.signer = signer

	default:
		return fmt.Errorf("unsupported signing algorithm %q", app.cfg.Algorithm)
	}

	return app.signer.Validate()
}

// initMailer selects the outbound mail implementation.
func (app *Application) initMailer() error {
	if strings.ToLower(app.cfg.EmailMode) == "smtp" {
		sender, err := email.NewSMTPSender(email.SMTPConfig{
			Host:     app.cfg.SMTPHost,
			Port:     app.cfg.SMTPPort,
			Username: app.cfg.SMTPUsername,
			Password: app.cfg.SMTPPassword,
			From:     app.cfg.SMTPFrom,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize SMTP sender: %w", err)
		}
		app.mailer = sender
		return nil
	}

	app.mailer = email.NewDevSender()
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.TokenService = &service.TokenService{
		Signer:    app.signer,
		Issuer:    app.cfg.Issuer,
		Audience:  app.cfg.Audience,
		AccessTTL: app.cfg.AccessTTL,
	}

	app.RefreshService = &service.RefreshService{
		Store:      app.db,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	app.AuthService = &service.AuthService{
		Store:      app.db,
		Tokens:     app.TokenService,
		Sessions:   app.RefreshService,
		Limiter:    ratex.New(ratex.StrictLimit),
		Mailer:     app.mailer,
		ConfirmTTL: app.cfg.ConfirmTTL,
	}

	app.InviteService = &service.InviteService{
		Store:     app.db,
		Mailer:    app.mailer,
		InviteTTL: app.cfg.InviteTTL,
	}

	app.FarmService = &service.FarmService{Store: app.db}

	app.HousekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}
