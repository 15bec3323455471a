package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/petrijr/deepflow/pkg/api"
)

// PostgresFlowStore is a FlowStore backed by PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib").
//
// The caller is responsible for:
//   - importing the driver for its side effects, e.g.:
//     _ "github.com/jackc/pgx/v5/stdlib"
//   - providing a DSN via sql.Open.
type PostgresFlowStore struct {
	db *sql.DB
}

// Ensure PostgresFlowStore implements FlowStore.
var _ FlowStore = (*PostgresFlowStore)(nil)

// NewPostgresFlowStore initializes the required schema in the given
// database and returns a new PostgresFlowStore.
func NewPostgresFlowStore(db *sql.DB) (*PostgresFlowStore, error) {
	s := &PostgresFlowStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresFlowStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS flows (
			id TEXT PRIMARY KEY,
			intent TEXT NOT NULL,
			record BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	return err
}

func (s *PostgresFlowStore) SaveFlow(ctx context.Context, rec api.FlowRecord) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO flows (id, intent, record, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET
			intent = EXCLUDED.intent,
			record = EXCLUDED.record,
			updated_at = now()`,
		rec.ID,
		rec.Intent,
		data,
	)
	return err
}

func (s *PostgresFlowStore) GetFlow(ctx context.Context, id string) (api.FlowRecord, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM flows WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return api.FlowRecord{}, ErrFlowNotFound
	}
	if err != nil {
		return api.FlowRecord{}, err
	}
	return DecodeRecord(data)
}

func (s *PostgresFlowStore) ListFlows(ctx context.Context, filter FlowFilter) ([]api.FlowRecord, error) {
	query := `SELECT record FROM flows`
	var args []any
	if filter.Intent != "" {
		query += ` WHERE intent = $1`
		args = append(args, filter.Intent)
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows, filter)
}

func (s *PostgresFlowStore) DeleteFlow(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flows WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
