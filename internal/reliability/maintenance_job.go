// Package reliability provides database maintenance jobs.
package reliability

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aristath/fundoverlap/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// DailyMaintenanceJob checks database health, truncates WAL files and
// verifies free disk space under the data directory
type DailyMaintenanceJob struct {
	databases []*database.DB
	dataDir   string
	minFreeMB float64
	usage     func(path string) (*disk.UsageStat, error)
	log       zerolog.Logger
}

// NewDailyMaintenanceJob creates a new daily maintenance job
func NewDailyMaintenanceJob(databases []*database.DB, dataDir string, minFreeMB int, log zerolog.Logger) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		databases: databases,
		dataDir:   dataDir,
		minFreeMB: float64(minFreeMB),
		usage:     disk.Usage,
		log:       log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Run executes the daily maintenance job
func (j *DailyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	// Step 1: Health check
	for _, db := range j.databases {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := db.QuickCheck(ctx)
		cancel()
		if err != nil {
			j.log.Error().
				Str("database", db.Name()).
				Err(err).
				Msg("Database health check failed")
			return fmt.Errorf("database %s unhealthy: %w", db.Name(), err)
		}
	}

	// Step 2: WAL checkpoint (prevent bloat)
	for _, db := range j.databases {
		if _, err := db.Conn().Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			// Not critical
			j.log.Warn().
				Str("database", db.Name()).
				Err(err).
				Msg("WAL checkpoint failed")
		}
	}

	// Step 3: Disk space
	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	// Step 4: Sizes
	j.logDatabaseSizes()

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed successfully")

	return nil
}

// Name returns the job name for scheduler
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

// checkDiskSpace fails when free space drops below the configured minimum
func (j *DailyMaintenanceJob) checkDiskSpace() error {
	stat, err := j.usage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	availableMB := float64(stat.Free) / 1024 / 1024
	j.log.Debug().Float64("available_mb", availableMB).Msg("Disk space check")

	if availableMB < j.minFreeMB {
		j.log.Error().
			Float64("available_mb", availableMB).
			Float64("minimum_mb", j.minFreeMB).
			Msg("Insufficient disk space")
		return fmt.Errorf("only %.0f MB free under %s", availableMB, j.dataDir)
	}

	if availableMB < 4*j.minFreeMB {
		j.log.Warn().
			Float64("available_mb", availableMB).
			Msg("Disk space running low")
	}

	return nil
}

func (j *DailyMaintenanceJob) logDatabaseSizes() {
	for _, db := range j.databases {
		event := j.log.Info().Str("database", db.Name())
		if info, err := os.Stat(db.Path()); err == nil {
			event = event.Float64("size_mb", float64(info.Size())/1024/1024)
		}
		if info, err := os.Stat(db.Path() + "-wal"); err == nil {
			event = event.Float64("wal_size_mb", float64(info.Size())/1024/1024)
		}
		event.Msg("Database metrics")
	}
}
