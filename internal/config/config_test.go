package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BEBOP_STORE_DSN", "file::memory:")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/", cfg.APIURL)
	assert.Equal(t, "https://explorer.dbhub.org", cfg.ExplorerURL)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, 30*time.Second, cfg.HeadInterval)
	assert.True(t, cfg.OpenBrowser)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BEBOP_API_URL", "https://forum.example.org/")
	t.Setenv("BEBOP_STORE_DRIVER", "pgx")
	t.Setenv("BEBOP_STORE_DSN", "postgres://bebop@localhost/bebop")
	t.Setenv("BEBOP_HEAD_INTERVAL", "5s")
	t.Setenv("BEBOP_OPEN_BROWSER", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://forum.example.org/", cfg.APIURL)
	assert.Equal(t, "pgx", cfg.StoreDriver)
	assert.Equal(t, 5*time.Second, cfg.HeadInterval)
	assert.False(t, cfg.OpenBrowser)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("BEBOP_STORE_DRIVER", "mysql")
	t.Setenv("BEBOP_STORE_DSN", "whatever")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BEBOP_STORE_DRIVER")
}

func TestLoadRequiresDSNForPgx(t *testing.T) {
	t.Setenv("BEBOP_STORE_DRIVER", "pgx")
	t.Setenv("BEBOP_STORE_DSN", "")

	_, err := Load()
	require.Error(t, err)
}
