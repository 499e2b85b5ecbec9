package clientdata

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// CleanupJob purges cache entries whose stale retention window has passed.
// Recently expired entries survive so clients can still serve them when
// the upstream API is failing.
type CleanupJob struct {
	repo      *Repository
	retention time.Duration
	log       zerolog.Logger
}

// NewCleanupJob creates a cleanup job keeping expired entries for retention
func NewCleanupJob(repo *Repository, retention time.Duration, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo:      repo,
		retention: retention,
		log:       log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

// Run deletes entries that expired more than the retention window ago
func (j *CleanupJob) Run() error {
	results, err := j.repo.DeleteAllExpired(j.retention)
	if err != nil {
		return fmt.Errorf("client data cleanup: %w", err)
	}

	tables := make([]string, 0, len(results))
	for table := range results {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	var purged int64
	for _, table := range tables {
		j.log.Debug().Str("table", table).Int64("purged", results[table]).Msg("Purged stale cache entries")
		purged += results[table]
	}

	j.log.Info().
		Int64("purged", purged).
		Dur("retention", j.retention).
		Msg("Client data cleanup finished")

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "client_data_cleanup"
}
