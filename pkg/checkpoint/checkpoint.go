// Package checkpoint implements the durable, per-repository snapshot store
// described in spec.md §4.2 (Checkpoint Store, C2). A single-writer
// embedded SQLite database holds the most recent Workflow State for every
// thread id, so a workflow may be interrupted and resumed without loss.
package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/continuum-labs/govern/pkg/constants"
	"github.com/continuum-labs/govern/pkg/logger"
	"github.com/fsnotify/fsnotify"
	_ "modernc.org/sqlite"
)

var log = logger.New("checkpoint:store")

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	thread_id  TEXT PRIMARY KEY,
	state_json TEXT NOT NULL,
	terminal   TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);
`

// ErrPauseRequested is the cooperative pause signal a node MUST raise to
// suspend a workflow with work still pending (spec.md §4.2, "Pause
// primitive — the critical contract"; §9, "Pause-by-exception is
// load-bearing"). The underlying execution framework only persists a
// checkpoint when a node returns normally; returning normally here would
// mark the node complete and defeat resume. Wrap with fmt.Errorf("%w: ...",
// ErrPauseRequested) to attach context, and test with errors.Is.
var ErrPauseRequested = errors.New("checkpoint: pause requested")

// Store is a single-writer checkpoint database scoped to one repository.
// Running two workflow processes against the same database file is
// unsupported; the engine acquires no OS locks (spec.md §5).
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath returns the checkpoint database path for repoRoot, honoring
// the WORKFLOW_DB environment variable override (spec.md §4.2 "Storage
// backend"; §6 "Environment variables").
func DefaultPath(repoRoot string) string {
	if override := os.Getenv(constants.EnvWorkflowDB); override != "" {
		return override
	}
	return filepath.Join(repoRoot, constants.LineageRootDir, "checkpoint.db")
}

// Open opens or creates the checkpoint database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer per spec.md §5

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize checkpoint schema: %w", err)
	}

	log.Printf("opened checkpoint store at %s", path)
	return &Store{db: db, path: path}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save durably stores stateJSON for threadID, overwriting any prior
// snapshot. The write is wrapped in a transaction so a concurrent reader
// never observes a torn write (spec.md §4.2, "save").
func (s *Store) Save(ctx context.Context, threadID string, stateJSON []byte, terminal string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkpoint tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO checkpoints (thread_id, state_json, terminal, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			state_json = excluded.state_json,
			terminal   = excluded.terminal,
			updated_at = excluded.updated_at
	`, threadID, string(stateJSON), terminal, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	log.Printf("saved checkpoint thread=%s terminal=%q", threadID, terminal)
	return nil
}

// Load returns the most recent snapshot for threadID, or found=false if
// none exists (spec.md §4.2, "load").
func (s *Store) Load(ctx context.Context, threadID string) (stateJSON []byte, terminal string, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT state_json, terminal FROM checkpoints WHERE thread_id = ?`, threadID)
	var js string
	if scanErr := row.Scan(&js, &terminal); scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return nil, "", false, nil
		}
		return nil, "", false, fmt.Errorf("load checkpoint: %w", scanErr)
	}
	return []byte(js), terminal, true, nil
}

// ListActive returns every thread id whose checkpoint has no terminal
// state set, used by the resume driver to enumerate interrupted workflows
// (spec.md §4.2, "list_active").
func (s *Store) ListActive(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT thread_id FROM checkpoints WHERE terminal = '' ORDER BY updated_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active checkpoints: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan active checkpoint: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IsPauseRequested reports whether err (or anything it wraps) is the
// cooperative pause signal.
func IsPauseRequested(err error) bool {
	return errors.Is(err, ErrPauseRequested)
}

// IsSchemaError reports whether err looks like a SQLite schema mismatch,
// mirroring the recreate-on-mismatch pattern used for other embedded
// SQLite stores in this codebase's lineage.
func IsSchemaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "SQL logic error")
}

// DeletionWatcher notices when a lineage active directory disappears out
// from under a long-running `resume --all` batch (spec.md §4.2
// "list_active" feeding a batch driver whose lineage directories are not
// itself locked). `resume --all` opens one for the length of the batch but
// does not read its events: every listed thread is resumed whether or not
// its directory was removed.
type DeletionWatcher struct {
	watcher *fsnotify.Watcher
	root    string
}

// WatchActiveDir starts watching activeRoot (the repo's
// docs/lineage/active directory) for removed subdirectories. Call Close
// when the batch run finishes.
func WatchActiveDir(activeRoot string) (*DeletionWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create lineage watcher: %w", err)
	}
	if err := w.Add(activeRoot); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch lineage active dir: %w", err)
	}
	return &DeletionWatcher{watcher: w, root: activeRoot}, nil
}

// Deleted returns the thread id of the next lineage directory removed
// from under the watch, or ok=false once the watcher is closed.
func (d *DeletionWatcher) Deleted() (threadID string, ok bool) {
	for {
		select {
		case ev, open := <-d.watcher.Events:
			if !open {
				return "", false
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			return filepath.Base(ev.Name), true
		case err, open := <-d.watcher.Errors:
			if !open {
				return "", false
			}
			log.Printf("lineage watcher error: %v", err)
		}
	}
}

// Close releases the underlying inotify/kqueue handle.
func (d *DeletionWatcher) Close() error {
	return d.watcher.Close()
}
