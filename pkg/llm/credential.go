// Package llm implements the LLM Invoker (spec.md §4.3, C3): a single-call
// primitive that hides credential selection, rotation, retry, and output
// shape coercion behind one Invoke call.
package llm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/continuum-labs/govern/pkg/constants"
)

// CredentialKind is how a credential authenticates (spec.md §6, Credential
// registry schema).
type CredentialKind string

// Known credential kinds.
const (
	KindAPIKey CredentialKind = "api_key"
	KindOAuth  CredentialKind = "oauth"
)

// Credential is one entry in the persistent, per-user registry (spec.md
// §4.3, "Credential pool"; §6, "Credential registry schema").
type Credential struct {
	Name         string         `json:"name" console:"header:NAME"`
	Kind         CredentialKind `json:"kind" console:"header:KIND"`
	Enabled      bool           `json:"enabled" console:"header:ENABLED"`
	AccountLabel string         `json:"account_label" console:"header:ACCOUNT LABEL"`
	Key          string         `json:"key,omitempty" console:"-"`
}

type registryFile struct {
	Credentials []Credential `json:"credentials"`
}

// CredentialStore reads and writes the per-user credential registry file.
type CredentialStore struct {
	path string
}

// DefaultCredentialsPath returns ~/<app>/credentials.json.
func DefaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, constants.AppDirName, constants.CredentialsDB), nil
}

// NewCredentialStore opens the registry at path (created lazily on first
// write if it does not yet exist).
func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// List returns every registered credential in registry order, the order
// credentials are tried (spec.md §4.3, "Credentials are tried in registry
// order").
func (s *CredentialStore) List() ([]Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credential registry: %w", err)
	}

	var rf registryFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse credential registry: %w", err)
	}
	return rf.Credentials, nil
}

// Add appends cred to the registry, replacing any entry with the same
// name in place, writing atomically via lineage's write
// helper semantics (temp file + rename) so a crash mid-write never
// corrupts the registry (spec.md §5, "atomic rename for updates").
func (s *CredentialStore) Add(cred Credential) error {
	creds, err := s.List()
	if err != nil {
		return err
	}

	for i, existing := range creds {
		if existing.Name == cred.Name {
			creds[i] = cred
			return s.writeAll(creds)
		}
	}
	creds = append(creds, cred)
	return s.writeAll(creds)
}

func (s *CredentialStore) writeAll(creds []Credential) error {
	data, err := json.MarshalIndent(registryFile{Credentials: creds}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credential registry: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential registry dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-credentials-*")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("install credential registry: %w", err)
	}
	return nil
}

// Enabled returns only the enabled credentials, in registry order.
func (s *CredentialStore) Enabled() ([]Credential, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var enabled []Credential
	for _, c := range all {
		if c.Enabled {
			enabled = append(enabled, c)
		}
	}
	return enabled, nil
}
