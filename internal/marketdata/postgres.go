package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mdthewzrd/chartscan/internal/contracts"
)

// PostgresStore reads whole-market daily bars from PostgreSQL. It
// implements contracts.BarStore.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new postgres-backed bar store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// FetchSession returns every symbol's bar for one trading session.
func (s *PostgresStore) FetchSession(ctx context.Context, date time.Time) ([]contracts.Bar, error) {
	query := `
		SELECT symbol, session_date, open, high, low, close, volume
		FROM market.daily_bars
		WHERE session_date = $1
		ORDER BY symbol ASC
	`

	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("query session %s: %w", date.Format("2006-01-02"), err)
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(&b.Symbol, &b.SessionDate, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// SaveBatch upserts bars, one session's worth at a time. Used by the
// nightly collection job to keep the local mirror current.
func (s *PostgresStore) SaveBatch(ctx context.Context, bars []contracts.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.daily_bars (symbol, session_date, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, session_date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`

	for _, b := range bars {
		if _, err := s.pool.Exec(ctx, query,
			b.Symbol, b.SessionDate, b.Open, b.High, b.Low, b.Close, b.Volume,
		); err != nil {
			return fmt.Errorf("upsert bar %s %s: %w", b.Symbol, b.SessionDate.Format("2006-01-02"), err)
		}
	}
	return nil
}

// LatestSession returns the most recent session date present in the
// mirror, or the zero time when the table is empty.
func (s *PostgresStore) LatestSession(ctx context.Context) (time.Time, error) {
	var latest *time.Time
	err := s.pool.QueryRow(ctx, `SELECT MAX(session_date) FROM market.daily_bars`).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("query latest session: %w", err)
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}
