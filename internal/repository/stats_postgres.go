package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/extra24/bus-booking-deploy/internal/model"
)

// PostgresStatsRepository keeps the counters in one row of table, keyed by id.
type PostgresStatsRepository struct {
	db    RepoExtension
	table string
	id    string
}

func NewPostgresStatsRepository(db RepoExtension, table, id string) *PostgresStatsRepository {
	return &PostgresStatsRepository{
		db:    db,
		table: pgx.Identifier{table}.Sanitize(),
		id:    id,
	}
}

// EnsureTable creates the counters table when it is missing, so a table other
// than the migrated one works too. Existing tables are left as they are.
func (r *PostgresStatsRepository) EnsureTable(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		processed BIGINT NOT NULL DEFAULT 0,
		success BIGINT NOT NULL DEFAULT 0,
		requests BIGINT NOT NULL DEFAULT 0
	);`, r.table)

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure table %s: %w", r.table, err)
	}

	return nil
}

// Add upserts the row and adds every non-zero delta in one statement.
func (r *PostgresStatsRepository) Add(ctx context.Context, deltas model.Deltas) error {
	fields := deltas.NonZero()
	if len(fields) == 0 {
		return nil
	}

	columns := make([]string, 0, len(fields))
	placeholders := make([]string, 0, len(fields))
	updates := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)

	args = append(args, r.id)

	for i, f := range fields {
		col := pgx.Identifier{string(f)}.Sanitize()

		columns = append(columns, col)
		placeholders = append(placeholders, "$"+strconv.Itoa(i+2))
		updates = append(updates, fmt.Sprintf("%s = %s.%s + EXCLUDED.%s", col, r.table, col, col))
		args = append(args, deltas[f])
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (id, %s) VALUES ($1, %s) ON CONFLICT (id) DO UPDATE SET %s;`,
		r.table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to increment %s: %w", r.table, err)
	}

	return nil
}

func (r *PostgresStatsRepository) Read(ctx context.Context) (*model.Stats, error) {
	query := fmt.Sprintf(`SELECT processed, success, requests FROM %s WHERE id = $1;`, r.table)

	var stats model.Stats

	if err := r.db.QueryRow(ctx, query, r.id).Scan(
		&stats.Processed,
		&stats.Success,
		&stats.Requests,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.Stats{}, nil
		}

		return nil, fmt.Errorf("failed to read %s: %w", r.table, err)
	}

	return &stats, nil
}
