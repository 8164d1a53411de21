// Package store persists sessions as one JSON file per session.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/aviary/errors"
	"github.com/grovetools/aviary/logging"
	"github.com/grovetools/aviary/pkg/models"
)

const fileExtension = ".json"

// Store is the persistence interface the session manager depends on. The
// file-backed implementation is the only one used in production; tests
// substitute MemoryStore.
type Store interface {
	EnsureDirectory() error
	Save(session *models.Session) error
	LoadAll() ([]*models.Session, error)
	LoadByBranch(branch string) (*models.Session, error)
	Remove(id string) error
}

// FileStore keeps one <id>.json per session in a single directory. It owns
// on-disk state exclusively; callers treat loaded sessions as snapshots.
type FileStore struct {
	dir string
	log *logrus.Entry
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir. The directory is created lazily
// by EnsureDirectory or the first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir: dir,
		log: logging.NewLogger("store"),
	}
}

// Dir returns the sessions directory path.
func (s *FileStore) Dir() string {
	return s.dir
}

// EnsureDirectory creates the sessions directory. Idempotent.
func (s *FileStore) EnsureDirectory() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create sessions directory").
			WithDetail("dir", s.dir)
	}
	return nil
}

// Save writes the session atomically: the JSON goes to a temp file in the
// same directory, then a rename replaces the target, so no reader ever
// observes a half-written file.
func (s *FileStore) Save(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "refusing to save invalid session")
	}
	if err := s.EnsureDirectory(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to serialize session")
	}

	path := s.pathFor(session.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write session file").
			WithDetail("path", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to finalize session file").
			WithDetail("path", path)
	}

	return nil
}

// LoadAll reads every session file in the directory. Files that fail to parse
// or fail validation are skipped and logged; one bad file never aborts the
// batch. A missing directory yields an empty result.
func (s *FileStore) LoadAll() ([]*models.Session, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read sessions directory").
			WithDetail("dir", s.dir)
	}

	var sessions []*models.Session
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExtension) {
			continue
		}

		path := filepath.Join(s.dir, name)
		session, err := s.loadFile(path)
		if err != nil {
			s.log.WithError(err).WithField("path", path).Warn("Skipping unreadable session file")
			continue
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}

// LoadByBranch finds the session for a branch. Branch is not a directory key,
// so this is LoadAll plus a linear scan.
func (s *FileStore) LoadByBranch(branch string) (*models.Session, error) {
	sessions, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	for _, session := range sessions {
		if session.Branch == branch {
			return session, nil
		}
	}
	return nil, errors.SessionNotFound(branch)
}

// Remove deletes a session file. Removing an absent file is success.
func (s *FileStore) Remove(id string) error {
	err := os.Remove(s.pathFor(id))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to remove session file").
			WithDetail("id", id)
	}
	return nil
}

func (s *FileStore) pathFor(id string) string {
	return filepath.Join(s.dir, id+fileExtension)
}

func (s *FileStore) loadFile(path string) (*models.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.SessionCorrupt(path, err)
	}
	if err := session.Validate(); err != nil {
		return nil, errors.SessionCorrupt(path, err)
	}

	return &session, nil
}
