package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend stores the session as a small JSON object in a file readable
// by the user only.
type FileBackend struct {
	Path string
}

// DefaultSessionPath returns the session file location under the user's
// configuration directory, falling back to the temp dir.
func DefaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "moneymanager", "session.json")
}

func (f FileBackend) Load(context.Context) (Session, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("cannot read session file %q: %w", f.Path, err)
	}
	m := make(map[string]string)
	if err := json.Unmarshal(data, &m); err != nil {
		return Session{}, fmt.Errorf("cannot decode session file %q: %w", f.Path, err)
	}
	return fromMap(m), nil
}

// Save writes to a temporary file and renames it over the previous one, so
// a reader never sees a half written session.
func (f FileBackend) Save(_ context.Context, s Session) error {
	data, err := json.MarshalIndent(toMap(s), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0700); err != nil {
		return fmt.Errorf("cannot create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".session-*")
	if err != nil {
		return fmt.Errorf("cannot create session file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("cannot write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

// Delete removes the session file. A missing file is not an error.
func (f FileBackend) Delete(context.Context) error {
	err := os.Remove(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
