package persistence

import (
	"database/sql"
	"errors"
	"time"

	"github.com/janngomaa/ai-job-application/pkg/flow"
)

// SQLiteRunStore is a RunStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteRunStore struct {
	db *sql.DB
}

// Ensure SQLiteRunStore implements RunStore.
var _ RunStore = (*SQLiteRunStore)(nil)

// NewSQLiteRunStore initializes the required schema in the given database and
// returns a new SQLiteRunStore.
func NewSQLiteRunStore(db *sql.DB) (*SQLiteRunStore, error) {
	s := &SQLiteRunStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteRunStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			workflow_name TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			result BLOB,
			error TEXT
		);`,
	)
	return err
}

func (s *SQLiteRunStore) SaveRun(run *flow.Run) error {
	result, err := encodeValue(run.Result)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (id, workflow_name, status, started_at, result, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.WorkflowName,
		string(run.Status),
		run.StartedAt.UnixNano(),
		result,
		errString(run.Err),
	)
	return err
}

func (s *SQLiteRunStore) UpdateRun(run *flow.Run) error {
	result, err := encodeValue(run.Result)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		UPDATE runs
		SET workflow_name = ?, status = ?, started_at = ?, result = ?, error = ?
		WHERE id = ?`,
		run.WorkflowName,
		string(run.Status),
		run.StartedAt.UnixNano(),
		result,
		errString(run.Err),
		run.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *SQLiteRunStore) GetRun(id string) (*flow.Run, error) {
	row := s.db.QueryRow(`
		SELECT id, workflow_name, status, started_at, result, error
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

func (s *SQLiteRunStore) ListRuns(filter RunFilter) ([]*flow.Run, error) {
	query := `SELECT id, workflow_name, status, started_at, result, error FROM runs`
	var (
		conds []string
		args  []any
	)
	if filter.WorkflowName != "" {
		conds = append(conds, "workflow_name = ?")
		args = append(args, filter.WorkflowName)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY started_at ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*flow.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*flow.Run, error) {
	var (
		id        string
		name      string
		status    string
		startedAt int64
		resultRaw []byte
		errStr    string
	)
	if err := row.Scan(&id, &name, &status, &startedAt, &resultRaw, &errStr); err != nil {
		return nil, err
	}

	result, err := decodeValue(resultRaw)
	if err != nil {
		return nil, err
	}

	run := &flow.Run{
		ID:           id,
		WorkflowName: name,
		Status:       flow.Status(status),
		StartedAt:    time.Unix(0, startedAt),
		Result:       result,
	}
	if errStr != "" {
		run.Err = errors.New(errStr)
	}
	return run, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
