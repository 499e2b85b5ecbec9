// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"
	"time"

	"github.com/aristath/fundoverlap/internal/clientdata"
	"github.com/aristath/fundoverlap/internal/config"
	"github.com/aristath/fundoverlap/internal/database"
	"github.com/aristath/fundoverlap/internal/modules/holdings"
	"github.com/aristath/fundoverlap/internal/reliability"
	"github.com/aristath/fundoverlap/internal/scheduler"
	"github.com/rs/zerolog"
)

// refreshTimeoutPerFund bounds one ETF fetch during the nightly refresh
const refreshTimeoutPerFund = 30 * time.Second

// RegisterJobs creates the background jobs and registers them on their cron schedules.
// sched may be nil, in which case the jobs are only created (used by tests).
func RegisterJobs(container *Container, cfg *config.Config, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	databases := []*database.DB{container.CatalogDB, container.ClientDataDB}

	instances := &JobInstances{
		HoldingsRefresh: holdings.NewRefreshJob(container.CatalogRepo, container.HoldingsResolver, refreshTimeoutPerFund, log),
		CacheCleanup:    clientdata.NewCleanupJob(container.ClientDataRepo, clientdata.StaleRetention, log),
		Maintenance:     reliability.NewDailyMaintenanceJob(databases, cfg.DataDir, cfg.MinFreeDiskMB, log),
	}

	if sched == nil {
		return instances, nil
	}

	if err := sched.AddJob(cfg.HoldingsRefreshSchedule, instances.HoldingsRefresh); err != nil {
		return nil, fmt.Errorf("failed to register holdings refresh job: %w", err)
	}
	if err := sched.AddJob(cfg.CacheCleanupSchedule, instances.CacheCleanup); err != nil {
		return nil, fmt.Errorf("failed to register cache cleanup job: %w", err)
	}
	if err := sched.AddJob(cfg.MaintenanceSchedule, instances.Maintenance); err != nil {
		return nil, fmt.Errorf("failed to register maintenance job: %w", err)
	}

	log.Info().
		Str("holdings_refresh", cfg.HoldingsRefreshSchedule).
		Str("cache_cleanup", cfg.CacheCleanupSchedule).
		Str("maintenance", cfg.MaintenanceSchedule).
		Msg("Background jobs registered")

	return instances, nil
}
