package llm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/continuum-labs/govern/pkg/logger"
)

var exhaustionLog = logger.New("llm:exhaustion")

// ExhaustionRegistry is a per-user JSON file recording, per credential, a
// UTC timestamp before which it is considered unusable (spec.md §4.3,
// "Exhaustion registry"). Entries older than "now" are automatically
// reactivated on load.
type ExhaustionRegistry struct {
	mu      sync.Mutex
	path    string
	entries map[string]time.Time
}

// NewExhaustionRegistry loads (or lazily creates) the registry at path.
func NewExhaustionRegistry(path string) (*ExhaustionRegistry, error) {
	r := &ExhaustionRegistry{path: path, entries: map[string]time.Time{}}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *ExhaustionRegistry) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var raw map[string]time.Time
	if err := json.Unmarshal(data, &raw); err != nil {
		exhaustionLog.Printf("exhaustion registry corrupt, resetting: %v", err)
		return nil
	}

	now := time.Now().UTC()
	for name, until := range raw {
		if until.After(now) {
			r.entries[name] = until
		}
	}
	return nil
}

// IsExhausted reports whether credential name is currently marked
// unusable. Entries whose deadline has passed are reactivated in place.
func (r *ExhaustionRegistry) IsExhausted(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	until, ok := r.entries[name]
	if !ok {
		return false
	}
	if time.Now().UTC().After(until) {
		delete(r.entries, name)
		return false
	}
	return true
}

// MarkExhausted records that name is unusable until until. Last writer
// wins across concurrent processes; this is safe because it is
// conservative — at worst it briefly marks an available credential as
// exhausted (spec.md §5, "Credential pool").
func (r *ExhaustionRegistry) MarkExhausted(name string, until time.Time) error {
	r.mu.Lock()
	r.entries[name] = until.UTC()
	snapshot := make(map[string]time.Time, len(r.entries))
	for k, v := range r.entries {
		snapshot[k] = v
	}
	r.mu.Unlock()

	return r.persist(snapshot)
}

// NextMidnightUTC returns the next UTC midnight strictly after now, used
// as the default quota-exhaustion reset time when the external tool does
// not report one (spec.md §4.3, error taxonomy "quota_exhausted").
func NextMidnightUTC(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return next
}

func (r *ExhaustionRegistry) persist(entries map[string]time.Time) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-exhaustion-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, r.path)
}
