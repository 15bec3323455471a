package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/petrijr/deepflow/pkg/api"
)

// SQLiteEventStore stores flow events in SQLite.
type SQLiteEventStore struct {
	db *sql.DB
}

// Ensure SQLiteEventStore implements the interfaces.
var _ EventStore = (*SQLiteEventStore)(nil)

func NewSQLiteEventStore(db *sql.DB) (*SQLiteEventStore, error) {
	s := &SQLiteEventStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteEventStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS flow_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			flow_id TEXT NOT NULL,
			at INTEGER NOT NULL,
			type TEXT NOT NULL,
			wave INTEGER NOT NULL DEFAULT -1,
			step_id TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_flow_events_flow_id ON flow_events(flow_id, id);
	`)
	return err
}

func (s *SQLiteEventStore) AppendEvent(ctx context.Context, ev api.FlowEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flow_events (flow_id, at, type, wave, step_id, detail)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.FlowID,
		at.UnixNano(),
		string(ev.Type),
		ev.Wave,
		ev.StepID,
		ev.Detail,
	)
	return err
}

func (s *SQLiteEventStore) ListEvents(ctx context.Context, flowID string) ([]api.FlowEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT flow_id, at, type, wave, step_id, detail
		FROM flow_events
		WHERE flow_id = ?
		ORDER BY id ASC`, flowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.FlowEvent
	for rows.Next() {
		var (
			id     string
			atN    int64
			typ    string
			wave   int
			stepID string
			detail string
		)
		if err := rows.Scan(&id, &atN, &typ, &wave, &stepID, &detail); err != nil {
			return nil, err
		}
		out = append(out, api.FlowEvent{
			FlowID: id,
			At:     time.Unix(0, atN),
			Type:   api.EventType(typ),
			Wave:   wave,
			StepID: stepID,
			Detail: detail,
		})
	}
	return out, rows.Err()
}
