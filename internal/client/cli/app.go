package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/shieldauth/internal/client/client"
	"github.com/dmitrijs2005/shieldauth/internal/client/config"
	"github.com/dmitrijs2005/shieldauth/internal/client/services"
	"github.com/dmitrijs2005/shieldauth/internal/filex"
)

type App struct {
	config   *config.Config
	sessions services.SessionService
	reader   *bufio.Reader
}

// NewApp opens the local state store and the server connection.
func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	dsn, err := stateDSN(c)
	if err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("error initializing state store: %w", err)
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ss := services.NewSessionService(apiClient, db)
	closeDB := &closingService{SessionService: ss, close: db.Close}

	return &App{config: c, sessions: closeDB, reader: bufio.NewReader(os.Stdin)}, nil
}

func stateDSN(c *config.Config) (string, error) {
	if c.StateDSN != "" {
		return c.StateDSN, nil
	}
	dir, err := filex.EnsureHomeSubdDir(config.StateDirName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.db"), nil
}

// closingService also closes the state store when the service is closed.
type closingService struct {
	services.SessionService
	close func() error
}

func (c *closingService) Close() error {
	err := c.SessionService.Close()
	if cerr := c.close(); err == nil {
		err = cerr
	}
	return err
}

func (a *App) Close() error {
	return a.sessions.Close()
}
