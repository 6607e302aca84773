package llm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/continuum-labs/govern/pkg/constants"
	"github.com/continuum-labs/govern/pkg/logger"
)

var apiLog = logger.New("llm:apilog")

// APILogEvent is one event kind appended to the user-level LLM API log
// (spec.md §4.3, "Observability"; §6, "LLM API log record schema").
type APILogEvent string

// Known API log events.
const (
	EventAttempt            APILogEvent = "attempt"
	EventSuccess            APILogEvent = "success"
	EventQuotaExhausted     APILogEvent = "quota_exhausted"
	EventCapacityExhausted  APILogEvent = "capacity_exhausted"
	EventRateLimited        APILogEvent = "rate_limited"
	EventCredentialRotated  APILogEvent = "credential_rotated"
	EventAuthError          APILogEvent = "auth_error"
	EventAllExhausted       APILogEvent = "all_exhausted"
)

type apiLogRecord struct {
	Timestamp time.Time   `json:"timestamp"`
	Event     APILogEvent `json:"event"`
	Credential string     `json:"credential"`
	Model     string      `json:"model"`
	ResetTime *time.Time  `json:"reset_time,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

// APILogger appends one JSONL line per attempt/success/rotation/exhaustion
// event to ~/<app>/llm-api.jsonl.
type APILogger struct {
	path string
}

// DefaultAPILogPath returns ~/<app>/llm-api.jsonl.
func DefaultAPILogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, constants.AppDirName, constants.LLMLogFile), nil
}

// NewAPILogger returns a logger writing to path.
func NewAPILogger(path string) *APILogger {
	return &APILogger{path: path}
}

// Log appends one record. Failures are logged to stderr but never
// propagated, mirroring the audit log's best-effort semantics
// (spec.md §4.1).
func (l *APILogger) Log(event APILogEvent, credential, model, reason string, resetTime *time.Time) {
	rec := apiLogRecord{
		Timestamp:  time.Now().UTC(),
		Event:      event,
		Credential: credential,
		Model:      model,
		ResetTime:  resetTime,
		Reason:     reason,
	}

	line, err := json.Marshal(rec)
	if err != nil {
		apiLog.Printf("marshal failed: %v", err)
		return
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		apiLog.Printf("mkdir failed: %v", err)
		fmt.Fprintf(os.Stderr, "govern: llm api log directory unavailable: %v\n", err)
		return
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		apiLog.Printf("open failed: %v", err)
		fmt.Fprintf(os.Stderr, "govern: llm api log append failed: %v\n", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		apiLog.Printf("write failed: %v", err)
	}
}
