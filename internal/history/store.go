package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) SaveRun(run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}
	if run.SchemaVersion == 0 {
		run.SchemaVersion = SchemaVersion
	}
	if run.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported run schema version %d", run.SchemaVersion)
	}

	changed, err := marshalList(run.ChangedCrates)
	if err != nil {
		return err
	}
	libraries, err := marshalList(run.AffectedLibraryMembers)
	if err != nil {
		return err
	}
	binaries, err := marshalList(run.AffectedBinaryMembers)
	if err != nil {
		return err
	}

	query := `
INSERT INTO runs (
  id, schema_version, ts_utc, workspace_root, base_ref, head_ref, commit_hash,
  changed_file_count, force_all, changed_crates, affected_library_members,
  affected_binary_members, duration_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  schema_version=excluded.schema_version,
  ts_utc=excluded.ts_utc,
  workspace_root=excluded.workspace_root,
  base_ref=excluded.base_ref,
  head_ref=excluded.head_ref,
  commit_hash=excluded.commit_hash,
  changed_file_count=excluded.changed_file_count,
  force_all=excluded.force_all,
  changed_crates=excluded.changed_crates,
  affected_library_members=excluded.affected_library_members,
  affected_binary_members=excluded.affected_binary_members,
  duration_ms=excluded.duration_ms
`
	return s.withRetry("save run", func() error {
		_, err := s.db.Exec(
			query,
			run.ID,
			run.SchemaVersion,
			run.Timestamp.UTC().Format(time.RFC3339Nano),
			run.WorkspaceRoot,
			run.Base,
			run.Head,
			run.CommitHash,
			run.ChangedFileCount,
			boolToInt(run.ForceAll),
			changed,
			libraries,
			binaries,
			run.Duration.Milliseconds(),
		)
		return err
	})
}

// RecentRuns returns up to limit runs for the workspace, newest first.
func (s *Store) RecentRuns(workspaceRoot string, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}

	query := selectRuns + ` WHERE workspace_root = ? ORDER BY ts_utc DESC, id DESC LIMIT ?`

	var rows *sql.Rows
	err := s.withRetry("load recent runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, workspaceRoot, limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

// RunsSince returns runs for the workspace at or after since, oldest first.
func (s *Store) RunsSince(workspaceRoot string, since time.Time) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := selectRuns + ` WHERE workspace_root = ?`
	args := make([]any, 0, 2)
	args = append(args, workspaceRoot)
	if !since.IsZero() {
		query += ` AND ts_utc >= ?`
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	query += ` ORDER BY ts_utc ASC, id ASC`

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

// Prune deletes all but the newest keep runs and reports how many rows went away.
func (s *Store) Prune(keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}

	var deleted int64
	err := s.withRetry("prune runs", func() error {
		res, execErr := s.db.Exec(
			`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY ts_utc DESC, id DESC LIMIT ?)`,
			keep,
		)
		if execErr != nil {
			return execErr
		}
		deleted, execErr = res.RowsAffected()
		return execErr
	})
	return deleted, err
}

const selectRuns = `
SELECT
  id, schema_version, ts_utc, workspace_root, base_ref, head_ref, commit_hash,
  changed_file_count, force_all, changed_crates, affected_library_members,
  affected_binary_members, duration_ms
FROM runs
`

func scanRuns(rows *sql.Rows) ([]Run, error) {
	runs := make([]Run, 0)
	for rows.Next() {
		var (
			tsRaw      string
			forceAll   int
			changed    string
			libraries  string
			binaries   string
			durationMS int64
			run        Run
		)
		if err := rows.Scan(
			&run.ID,
			&run.SchemaVersion,
			&tsRaw,
			&run.WorkspaceRoot,
			&run.Base,
			&run.Head,
			&run.CommitHash,
			&run.ChangedFileCount,
			&forceAll,
			&changed,
			&libraries,
			&binaries,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}

		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
		}
		run.Timestamp = ts.UTC()
		run.ForceAll = forceAll != 0
		run.Duration = time.Duration(durationMS) * time.Millisecond

		if run.ChangedCrates, err = unmarshalList(changed); err != nil {
			return nil, fmt.Errorf("decode changed_crates for run %s: %w", run.ID, err)
		}
		if run.AffectedLibraryMembers, err = unmarshalList(libraries); err != nil {
			return nil, fmt.Errorf("decode affected_library_members for run %s: %w", run.ID, err)
		}
		if run.AffectedBinaryMembers, err = unmarshalList(binaries); err != nil {
			return nil, fmt.Errorf("decode affected_binary_members for run %s: %w", run.ID, err)
		}

		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return runs, nil
}

func marshalList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode member list: %w", err)
	}
	return string(data), nil
}

func unmarshalList(raw string) ([]string, error) {
	values := make([]string, 0)
	if strings.TrimSpace(raw) == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database")
}
