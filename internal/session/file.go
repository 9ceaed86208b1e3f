package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spec-kit/tr4ction-console/internal/domain"
)

const (
	tokenFile = "token"
	userFile  = "user.json"
)

// FileStore keeps the token and the user record as two files in one
// private directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created lazily.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the directory holding the session files.
func (f *FileStore) Dir() string {
	return f.dir
}

func (f *FileStore) Load(_ context.Context) (Session, error) {
	raw, err := os.ReadFile(filepath.Join(f.dir, tokenFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session token: %w", err)
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return Session{}, nil
	}

	out := Session{Token: token}
	userRaw, err := os.ReadFile(filepath.Join(f.dir, userFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return out, nil
	case err != nil:
		return Session{}, fmt.Errorf("read session user: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal(userRaw, &user); err == nil {
		out.User = &user
	}
	return out, nil
}

// Save writes the user record first and the token last, so a reader never
// sees a token paired with a stale user.
func (f *FileStore) Save(_ context.Context, s Session) error {
	if err := validate(s); err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	if s.User != nil {
		data, err := json.Marshal(s.User)
		if err != nil {
			return fmt.Errorf("encode session user: %w", err)
		}
		if err := writeFileAtomic(f.dir, userFile, data); err != nil {
			return err
		}
	} else if err := removeIfExists(filepath.Join(f.dir, userFile)); err != nil {
		return err
	}

	return writeFileAtomic(f.dir, tokenFile, []byte(s.Token))
}

func (f *FileStore) Clear(_ context.Context) error {
	return errors.Join(
		removeIfExists(filepath.Join(f.dir, tokenFile)),
		removeIfExists(filepath.Join(f.dir, userFile)),
	)
}

func writeFileAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("create temp %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
	}
	return nil
}
