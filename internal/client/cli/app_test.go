package cli

import (
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/shieldauth/internal/client/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_OpensStateStore(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StateDSN = filepath.Join(t.TempDir(), "state.db")

	app, err := NewApp(cfg)
	require.NoError(t, err)
	require.NotNil(t, app.sessions)
	require.NoError(t, app.Close())
}

func TestStateDSN_DefaultsUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	got, err := stateDSN(&config.Config{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, config.StateDirName, "state.db"), got)

	got, err = stateDSN(&config.Config{StateDSN: "custom.db"})
	require.NoError(t, err)
	assert.Equal(t, "custom.db", got)
}
