package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/petrijr/deepflow/pkg/api"
)

// SQLiteFlowStore is a FlowStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteFlowStore struct {
	db *sql.DB
}

// Ensure SQLiteFlowStore implements FlowStore.
var _ FlowStore = (*SQLiteFlowStore)(nil)

// NewSQLiteFlowStore initializes the required schema in the given
// database and returns a new SQLiteFlowStore.
func NewSQLiteFlowStore(db *sql.DB) (*SQLiteFlowStore, error) {
	s := &SQLiteFlowStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteFlowStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS flows (
			id TEXT PRIMARY KEY,
			intent TEXT NOT NULL,
			record BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteFlowStore) SaveFlow(ctx context.Context, rec api.FlowRecord) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO flows (id, intent, record, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			intent = excluded.intent,
			record = excluded.record,
			updated_at = excluded.updated_at`,
		rec.ID,
		rec.Intent,
		data,
		time.Now().UnixNano(),
	)
	return err
}

func (s *SQLiteFlowStore) GetFlow(ctx context.Context, id string) (api.FlowRecord, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM flows WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return api.FlowRecord{}, ErrFlowNotFound
	}
	if err != nil {
		return api.FlowRecord{}, err
	}
	return DecodeRecord(data)
}

func (s *SQLiteFlowStore) ListFlows(ctx context.Context, filter FlowFilter) ([]api.FlowRecord, error) {
	query := `SELECT record FROM flows`
	var args []any
	if filter.Intent != "" {
		query += ` WHERE intent = ?`
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

func (s *SQLiteFlowStore) DeleteFlow(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flows WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// scanRecords decodes a single-column result set of record documents,
// keeping only those that pass filter.
func scanRecords(rows *sql.Rows, filter FlowFilter) ([]api.FlowRecord, error) {
	var out []api.FlowRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		rec, err := DecodeRecord(data)
		if err != nil {
			return nil, err
		}
		if filter.Match(rec) {
			out = append(out, rec)
		}
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFlowNotFound
	}
	return nil
}
