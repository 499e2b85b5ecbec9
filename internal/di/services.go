// Package di provides dependency injection for repositories and services.
package di

import (
	"fmt"

	"github.com/aristath/fundoverlap/internal/clientdata"
	"github.com/aristath/fundoverlap/internal/clients/alphavantage"
	"github.com/aristath/fundoverlap/internal/config"
	"github.com/aristath/fundoverlap/internal/modules/holdings"
	"github.com/aristath/fundoverlap/internal/modules/overlap"
	"github.com/rs/zerolog"
)

// InitializeServices creates repositories, clients and services
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.CatalogRepo = holdings.NewRepository(container.CatalogDB.Conn(), log)
	container.ClientDataRepo = clientdata.NewRepository(container.ClientDataDB.Conn())

	// A nil interface, not a typed nil pointer, keeps the resolver off the ETF path
	var etfSource holdings.ETFProfileSource
	if cfg.AlphaVantageAPIKey != "" {
		container.AlphaVantageClient = alphavantage.NewClientWithCache(cfg.AlphaVantageAPIKey, container.ClientDataRepo, log)
		etfSource = container.AlphaVantageClient
	} else {
		log.Warn().Msg("ALPHAVANTAGE_API_KEY not set, ETF holdings will not be fetched")
	}

	container.FallbackProvider = holdings.NewCategoryFallbackProvider()
	container.HoldingsResolver = holdings.NewResolver(container.CatalogRepo, etfSource, container.FallbackProvider, log)

	matchMode, err := overlap.ParseMatchMode(cfg.MatchMode)
	if err != nil {
		return fmt.Errorf("invalid match mode: %w", err)
	}

	analysisLog := log.With().Str("component", "overlap_state").Logger()
	container.OverlapService = overlap.NewService(
		container.HoldingsResolver,
		container.FallbackProvider,
		overlap.ServiceConfig{
			ResolveTimeout: cfg.ResolveTimeout,
			MatchMode:      matchMode,
			StateObserver: func(analysisID string, state overlap.State) {
				analysisLog.Debug().Str("analysis_id", analysisID).Str("state", state.String()).Msg("Analysis state changed")
			},
		},
		log,
	)

	return nil
}
