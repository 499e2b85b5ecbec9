package holdings

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/fundoverlap/internal/database"
	"github.com/aristath/fundoverlap/internal/domain"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const fundsColumns = `id, name, category, etf_symbol, updated_at`

// Repository handles catalog database operations (catalog.db)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new catalog repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "catalog").Logger(),
	}
}

// UpsertFund inserts or updates a fund. UpdatedAt is set to now.
func (r *Repository) UpsertFund(f Fund) error {
	if strings.TrimSpace(f.ID) == "" {
		return fmt.Errorf("fund id is required")
	}

	query := `
		INSERT INTO funds (id, name, category, etf_symbol, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			etf_symbol = excluded.etf_symbol,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		f.ID,
		strings.TrimSpace(f.Name),
		strings.TrimSpace(f.Category),
		strings.ToUpper(strings.TrimSpace(f.ETFSymbol)),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert fund %s: %w", f.ID, err)
	}

	return nil
}

// GetFund returns a fund by ID, nil when it does not exist
func (r *Repository) GetFund(id string) (*Fund, error) {
	row := r.db.QueryRow("SELECT "+fundsColumns+" FROM funds WHERE id = ?", id)

	f, err := scanFund(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fund %s: %w", id, err)
	}

	return &f, nil
}

// ListFunds returns every catalog fund ordered by name
func (r *Repository) ListFunds() ([]Fund, error) {
	return r.queryFunds("SELECT " + fundsColumns + " FROM funds ORDER BY name, id")
}

// ListETFFunds returns the funds whose holdings can be fetched from an ETF profile
func (r *Repository) ListETFFunds() ([]Fund, error) {
	return r.queryFunds("SELECT " + fundsColumns + " FROM funds WHERE etf_symbol != '' ORDER BY id")
}

func (r *Repository) queryFunds(query string) ([]Fund, error) {
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query funds: %w", err)
	}
	defer rows.Close()

	funds := make([]Fund, 0)
	for rows.Next() {
		f, err := scanFund(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", err)
		}
		funds = append(funds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating funds: %w", err)
	}

	return funds, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFund(s rowScanner) (Fund, error) {
	var f Fund
	var updatedAt int64
	if err := s.Scan(&f.ID, &f.Name, &f.Category, &f.ETFSymbol, &updatedAt); err != nil {
		return Fund{}, err
	}
	f.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return f, nil
}

// SaveHoldings replaces the stored holdings snapshot of a fund.
// The fund must exist in the catalog.
func (r *Repository) SaveHoldings(fundID string, holdings []domain.Holding, source string, asOf time.Time) error {
	payload, err := msgpack.Marshal(holdings)
	if err != nil {
		return fmt.Errorf("failed to encode holdings for %s: %w", fundID, err)
	}

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRow("SELECT COUNT(*) FROM funds WHERE id = ?", fundID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check fund %s: %w", fundID, err)
		}
		if exists == 0 {
			return fmt.Errorf("fund %s is not in the catalog", fundID)
		}

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO fund_holdings_snapshots (fund_id, payload, source, holdings_count, as_of)
			VALUES (?, ?, ?, ?, ?)
		`, fundID, payload, source, len(holdings), asOf.Unix())
		if err != nil {
			return fmt.Errorf("failed to save holdings for %s: %w", fundID, err)
		}

		r.log.Debug().
			Str("fund_id", fundID).
			Str("source", source).
			Int("holdings", len(holdings)).
			Msg("Saved holdings snapshot")
		return nil
	})
}

// GetHoldings returns the stored snapshot of a fund, nil when none exists
func (r *Repository) GetHoldings(fundID string) (*Snapshot, error) {
	var (
		payload []byte
		source  string
		asOf    int64
	)

	err := r.db.QueryRow(
		"SELECT payload, source, as_of FROM fund_holdings_snapshots WHERE fund_id = ?",
		fundID,
	).Scan(&payload, &source, &asOf)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings for %s: %w", fundID, err)
	}

	var holdings []domain.Holding
	if err := msgpack.Unmarshal(payload, &holdings); err != nil {
		return nil, fmt.Errorf("failed to decode holdings for %s: %w", fundID, err)
	}

	return &Snapshot{
		FundID:   fundID,
		Holdings: holdings,
		Source:   source,
		AsOf:     time.Unix(asOf, 0).UTC(),
	}, nil
}

// SetSecuritySector records the sector classification of a ticker
func (r *Repository) SetSecuritySector(ticker, sector string) error {
	ticker = domain.NormalizeTicker(ticker)
	if ticker == "" || strings.TrimSpace(sector) == "" {
		return fmt.Errorf("ticker and sector are required")
	}

	_, err := r.db.Exec(
		"INSERT OR REPLACE INTO security_sectors (ticker, sector) VALUES (?, ?)",
		ticker, strings.TrimSpace(sector),
	)
	if err != nil {
		return fmt.Errorf("failed to set sector for %s: %w", ticker, err)
	}
	return nil
}

// SectorsForTickers returns the known sectors of the given tickers.
// Tickers without a classification are absent from the map.
func (r *Repository) SectorsForTickers(tickers []string) (map[string]string, error) {
	sectors := make(map[string]string)
	if len(tickers) == 0 {
		return sectors, nil
	}

	placeholders := make([]string, len(tickers))
	args := make([]interface{}, len(tickers))
	for i, t := range tickers {
		placeholders[i] = "?"
		args[i] = domain.NormalizeTicker(t)
	}

	query := "SELECT ticker, sector FROM security_sectors WHERE ticker IN (" + strings.Join(placeholders, ",") + ")"
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sectors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ticker, sector string
		if err := rows.Scan(&ticker, &sector); err != nil {
			return nil, fmt.Errorf("failed to scan sector: %w", err)
		}
		sectors[ticker] = sector
	}

	return sectors, rows.Err()
}
