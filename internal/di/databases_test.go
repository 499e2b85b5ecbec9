package di

import (
	"path/filepath"
	"testing"

	"github.com/aristath/fundoverlap/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDatabases(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &config.Config{DataDir: tmpDir}

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, container)
	t.Cleanup(container.Close)

	assert.NotNil(t, container.CatalogDB)
	assert.NotNil(t, container.ClientDataDB)

	assert.FileExists(t, filepath.Join(tmpDir, "catalog.db"))
	assert.FileExists(t, filepath.Join(tmpDir, "client_data.db"))

	// Schemas applied
	var count int
	err = container.CatalogDB.Conn().QueryRow("SELECT COUNT(*) FROM funds").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	err = container.ClientDataDB.Conn().QueryRow("SELECT COUNT(*) FROM alphavantage_etf_profile").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestInitializeDatabases_Reopen(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir()}

	first, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	first.Close()

	second, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	second.Close()
}
