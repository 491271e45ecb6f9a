// Package server initializes and runs the authentication server.
// It opens storage, builds the services and serves gRPC until a shutdown
// signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/shieldauth/internal/cryptox"
	"github.com/dmitrijs2005/shieldauth/internal/filex"
	"github.com/dmitrijs2005/shieldauth/internal/logging"
	"github.com/dmitrijs2005/shieldauth/internal/netx"
	"github.com/dmitrijs2005/shieldauth/internal/server/config"
	"github.com/dmitrijs2005/shieldauth/internal/server/gemini"
	"github.com/dmitrijs2005/shieldauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shieldauth/internal/server/services"

	gs "github.com/dmitrijs2005/shieldauth/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	authService *services.AuthService
	analyzer    *gemini.Client
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if c.DatabaseDriver == repomanager.DriverSQLite && strings.HasPrefix(c.DatabaseDSN, "file:data/") {
		if _, err := filex.EnsureSubdDir("data"); err != nil {
			return nil, fmt.Errorf("data dir: %w", err)
		}
	}

	db, rm, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	cipher, err := cryptox.NewSecretCipher(c.EncryptionKey)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cipher init error: %w", err)
	}

	as := services.NewAuthService(db, rm, cipher, logger, services.WithIssuer(c.TOTPIssuer))

	an := gemini.NewClient(gemini.Config{
		URL:       c.GeminiAPIURL,
		APIKey:    c.GeminiAPIKey,
		OCRPolicy: netx.DefaultPolicy(c.OCRTimeout),
		AIPolicy:  netx.DefaultPolicy(c.AITimeout),
	}, logger)

	if c.GeminiAPIKey == "" {
		logger.Warn(ctx, "Gemini API key not set, OCR and analysis are disabled")
	}

	return &App{config: c, logger: logger, db: db, authService: as, analyzer: an}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.authService, app.analyzer,
		app.config.SecretKey, app.config.EnrollmentTicketValidityDuration)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
