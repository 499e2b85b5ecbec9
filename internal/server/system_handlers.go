// Package server provides the HTTP server and routing for fundoverlap.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/aristath/fundoverlap/internal/database"
	"github.com/aristath/fundoverlap/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// RequestBudget reports the remaining daily allowance of a rate limited API
type RequestBudget interface {
	GetRemainingRequests() int
}

// SystemHandlers handles system-wide monitoring and job endpoints
type SystemHandlers struct {
	log          zerolog.Logger
	startupTime  time.Time
	catalogDB    *database.DB
	clientDataDB *database.DB
	scheduler    *scheduler.Scheduler
	jobs         map[string]scheduler.Job
	alphaVantage RequestBudget // nil when the ETF source is disabled
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	catalogDB, clientDataDB *database.DB,
	sched *scheduler.Scheduler,
	alphaVantage RequestBudget,
) *SystemHandlers {
	return &SystemHandlers{
		log:          log.With().Str("component", "system_handlers").Logger(),
		startupTime:  time.Now(),
		catalogDB:    catalogDB,
		clientDataDB: clientDataDB,
		scheduler:    sched,
		jobs:         make(map[string]scheduler.Job),
		alphaVantage: alphaVantage,
	}
}

// SetJobs registers job references for manual triggering
func (h *SystemHandlers) SetJobs(jobs ...scheduler.Job) {
	for _, job := range jobs {
		if job != nil {
			h.jobs[job.Name()] = job
		}
	}
}

// HealthResponse reports whether the service can answer analyses.
// Only the catalog matters: without the cache every fund still resolves.
type HealthResponse struct {
	Status       string `json:"status"` // healthy | unavailable
	Service      string `json:"service"`
	CatalogReady bool   `json:"catalog_ready"`
	FundCount    int    `json:"fund_count"`
	ETFSource    bool   `json:"etf_source"`
}

// DBInfo describes one database file
type DBInfo struct {
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	SizeMB  float64 `json:"size_mb"`
	Healthy bool    `json:"healthy"`
}

// AlphaVantageStatus describes the ETF profile source
type AlphaVantageStatus struct {
	Enabled           bool `json:"enabled"`
	RemainingRequests int  `json:"remaining_requests"`
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status        string             `json:"status"`
	UptimeHours   float64            `json:"uptime_hours"`
	CPUPercent    float64            `json:"cpu_percent"`
	RAMPercent    float64            `json:"ram_percent"`
	FundCount     int                `json:"fund_count"`
	SnapshotCount int                `json:"snapshot_count"`
	Databases     []DBInfo           `json:"databases"`
	AlphaVantage  AlphaVantageStatus `json:"alphavantage"`
}

// JobsStatusResponse represents the scheduler job list
type JobsStatusResponse struct {
	TotalJobs int                   `json:"total_jobs"`
	Jobs      []scheduler.JobStatus `json:"jobs"`
}

// GetSystemStatusSnapshot returns a snapshot of the current system status.
// The first error encountered is returned alongside a best-effort response.
func (h *SystemHandlers) GetSystemStatusSnapshot(ctx context.Context) (SystemStatusResponse, error) {
	var firstErr error
	recordErr := func(err error) {
		if err != nil && err != sql.ErrNoRows && firstErr == nil {
			firstErr = err
		}
	}

	var fundCount, snapshotCount int
	err := h.catalogDB.Conn().QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM funds),
			(SELECT COUNT(*) FROM fund_holdings_snapshots)
	`).Scan(&fundCount, &snapshotCount)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count funds")
		recordErr(err)
	}

	databases := make([]DBInfo, 0, 2)
	for _, db := range []*database.DB{h.catalogDB, h.clientDataDB} {
		if db == nil {
			continue
		}
		info := DBInfo{Name: db.Name(), Path: db.Path()}
		if err := db.QuickCheck(ctx); err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Database health check failed")
			recordErr(err)
		} else {
			info.Healthy = true
		}
		if stat, err := os.Stat(db.Path()); err == nil {
			info.SizeMB = float64(stat.Size()) / 1024 / 1024
		}
		databases = append(databases, info)
	}

	cpuPercent, ramPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeHours:   time.Since(h.startupTime).Hours(),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		FundCount:     fundCount,
		SnapshotCount: snapshotCount,
		Databases:     databases,
	}
	if h.alphaVantage != nil {
		response.AlphaVantage = AlphaVantageStatus{
			Enabled:           true,
			RemainingRequests: h.alphaVantage.GetRemainingRequests(),
		}
	}
	if firstErr != nil {
		response.Status = "degraded"
	}

	return response, firstErr
}

// HandleHealth answers 200 while the fund catalog is readable, 503 otherwise
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Service:   "fundoverlap",
		ETFSource: h.alphaVantage != nil,
	}

	err := h.catalogDB.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM funds").Scan(&response.FundCount)
	if err != nil {
		h.log.Error().Err(err).Msg("Health check: fund catalog unreadable")
		response.Status = "unavailable"
		h.writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	response.CatalogReady = true
	h.writeJSON(w, http.StatusOK, response)
}

// HandleSystemStatus returns comprehensive system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response, err := h.GetSystemStatusSnapshot(r.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("System status collected with warnings")
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleJobsStatus returns scheduler job status
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobStatus{}
	if h.scheduler != nil {
		jobs = h.scheduler.Jobs()
	}

	h.writeJSON(w, http.StatusOK, JobsStatusResponse{
		TotalJobs: len(jobs),
		Jobs:      jobs,
	})
}

// HandleTriggerJob runs a registered job immediately
// POST /api/system/jobs/{name}/run
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	job, ok := h.jobs[name]
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "Unknown job"})
		return
	}

	var err error
	if h.scheduler != nil {
		err = h.scheduler.RunNow(job)
	} else {
		err = job.Run()
	}
	if err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": name + " completed",
	})
}

// getSystemStats calculates CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the status call fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
