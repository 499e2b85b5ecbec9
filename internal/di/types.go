// Package di provides dependency injection type definitions.
package di

import (
	"github.com/aristath/fundoverlap/internal/clientdata"
	"github.com/aristath/fundoverlap/internal/clients/alphavantage"
	"github.com/aristath/fundoverlap/internal/database"
	"github.com/aristath/fundoverlap/internal/modules/holdings"
	"github.com/aristath/fundoverlap/internal/modules/overlap"
	"github.com/aristath/fundoverlap/internal/reliability"
)

// Container holds all dependencies for the application.
// It is created by Wire() and passed to the server for access to services.
type Container struct {
	// Databases
	CatalogDB    *database.DB // funds, holdings snapshots, security sectors
	ClientDataDB *database.DB // external API response cache

	// Repositories
	CatalogRepo    *holdings.Repository
	ClientDataRepo *clientdata.Repository

	// Clients (nil when ALPHAVANTAGE_API_KEY is not set)
	AlphaVantageClient *alphavantage.Client

	// Services
	FallbackProvider *holdings.CategoryFallbackProvider
	HoldingsResolver *holdings.Resolver
	OverlapService   *overlap.Service
}

// JobInstances holds the background jobs for scheduling and manual triggering
type JobInstances struct {
	HoldingsRefresh *holdings.RefreshJob
	CacheCleanup    *clientdata.CleanupJob
	Maintenance     *reliability.DailyMaintenanceJob
}

// Close closes every open database
func (c *Container) Close() {
	if c.CatalogDB != nil {
		c.CatalogDB.Close()
	}
	if c.ClientDataDB != nil {
		c.ClientDataDB.Close()
	}
}
