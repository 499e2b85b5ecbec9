// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/aristath/fundoverlap/internal/config"
	"github.com/aristath/fundoverlap/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens both databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. catalog.db - funds, holdings snapshots, sector classifications
	catalogDB, err := database.New(database.Config{
		Path:    cfg.CatalogDBPath(),
		Profile: database.ProfileStandard,
		Name:    database.NameCatalog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog database: %w", err)
	}
	container.CatalogDB = catalogDB

	// 2. client_data.db - cached external API responses, safe to delete
	clientDataDB, err := database.New(database.Config{
		Path:    cfg.ClientDataDBPath(),
		Profile: database.ProfileCache,
		Name:    database.NameClientData,
	})
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize client data database: %w", err)
	}
	container.ClientDataDB = clientDataDB

	for _, db := range []*database.DB{catalogDB, clientDataDB} {
		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to apply schema for %s: %w", db.Name(), err)
		}
	}

	log.Info().
		Str("catalog", catalogDB.Path()).
		Str("client_data", clientDataDB.Path()).
		Msg("Databases initialized")

	return container, nil
}
