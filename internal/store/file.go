package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/gofrs/flock"
)

// DefaultPath is the history file used when none is configured.
const DefaultPath = "weather_history.json"

// FileStore is the file-backed history log.
//
// Every operation is a full read-modify-write of one JSON file. Writes go to a
// temporary file in the same directory which is then renamed over the target,
// so readers see either the old or the new log. Mutations hold an exclusive
// advisory lock on "<path>.lock" for the whole cycle, which serialises
// concurrent processes sharing the file.
type FileStore struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock

	retention RetentionPolicy
	now       func() time.Time
	logger    *slog.Logger
	metrics   *Metrics
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithRetention sets the retention policy used by Prune callers.
func WithRetention(p RetentionPolicy) Option {
	return func(s *FileStore) { s.retention = p }
}

// WithClock replaces the wall clock used to stamp appended records.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *FileStore) { s.metrics = m }
}

// NewFileStore returns a store backed by path. The file is not touched until
// the first operation.
func NewFileStore(path string, opts ...Option) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	s := &FileStore{
		path:      path,
		lock:      flock.New(path + ".lock"),
		retention: NewRetentionPolicy(DefaultRetentionWindow),
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the history file path.
func (s *FileStore) Path() string { return s.path }

// Retention returns the configured retention policy.
func (s *FileStore) Retention() RetentionPolicy { return s.retention }

// Now returns the store clock as Unix seconds.
func (s *FileStore) Now() uint64 { return TimestampOf(s.now()) }

// Load reads the whole history. A missing or blank file is an empty log.
//
// Load never creates files. It takes the shared lock only when the lock file
// already exists and can be opened; otherwise it reads unlocked, which is
// safe because writers replace the file with a single rename.
func (s *FileStore) Load() (Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var log Log
	err := s.withLock(false, func() error {
		var err error
		log, err = s.loadLocked()
		return err
	})
	if err != nil {
		s.metrics.recordError("load", err)
		return nil, err
	}
	return log, nil
}

// Append stamps a new record for city with the current time and adds it to
// the end of the log. Nil data is stored as JSON null. A city that is not
// valid UTF-8 is rejected since JSON could not store it unchanged.
func (s *FileStore) Append(city string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var size int
	err := s.withLock(true, func() error {
		log, err := s.loadLocked()
		if err != nil {
			return err
		}

		if !utf8.ValidString(city) {
			return &ParseError{Path: s.path, Index: len(log), Field: "city", Err: errors.New("not valid UTF-8")}
		}
		if len(data) == 0 {
			data = json.RawMessage("null")
		} else if !json.Valid(data) {
			return &ParseError{Path: s.path, Index: len(log), Field: "data", Err: errors.New("not a JSON document")}
		}

		log = append(log, Record{
			City:      city,
			Timestamp: TimestampOf(s.now()),
			Data:      data,
		})
		size = len(log)
		return s.writeLocked(log)
	})
	if err != nil {
		s.metrics.recordError("append", err)
		return err
	}

	s.metrics.recordAppend(size)
	s.logger.Debug("history record appended", "path", s.path, "city", city, "records", size)
	return nil
}

// PruneResult reports the outcome of a prune.
type PruneResult struct {
	Removed   int `json:"removed"`
	Remaining int `json:"remaining"`
}

// Prune drops every record that the retention policy no longer considers
// fresh as of now (Unix seconds). Both counts in the result are taken under
// the same lock as the rewrite. The file is rewritten even when nothing was
// removed, so repeated prunes with the same now leave byte-identical content.
func (s *FileStore) Prune(now uint64) (PruneResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res PruneResult
	err := s.withLock(true, func() error {
		log, err := s.loadLocked()
		if err != nil {
			return err
		}

		kept := make(Log, 0, len(log))
		for _, r := range log {
			if s.retention.IsFresh(now, r.Timestamp) {
				kept = append(kept, r)
			}
		}
		res.Removed = len(log) - len(kept)
		res.Remaining = len(kept)
		return s.writeLocked(kept)
	})
	if err != nil {
		s.metrics.recordError("prune", err)
		return PruneResult{}, err
	}

	s.metrics.recordPrune(res.Removed, res.Remaining)
	s.logger.Debug("history pruned", "path", s.path, "removed", res.Removed, "records", res.Remaining)
	return res, nil
}

// Archive moves the current history file aside to "<path>.corrupt-<unix>" and
// returns the new location, leaving the store empty. It is a no-op returning
// "" when there is no history file.
func (s *FileStore) Archive() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dest string
	err := s.withLock(true, func() error {
		if _, err := os.Stat(s.path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return &IOError{Op: "stat", Path: s.path, Err: err}
		}

		base := fmt.Sprintf("%s.corrupt-%d", s.path, TimestampOf(s.now()))
		dest = base
		for i := 1; ; i++ {
			_, err := os.Stat(dest)
			if errors.Is(err, fs.ErrNotExist) {
				break
			}
			if err != nil {
				return &IOError{Op: "archive", Path: s.path, Err: err}
			}
			dest = fmt.Sprintf("%s-%d", base, i)
		}
		if err := os.Rename(s.path, dest); err != nil {
			dest = ""
			return &IOError{Op: "archive", Path: s.path, Err: err}
		}
		return nil
	})
	if err != nil {
		s.metrics.recordError("archive", err)
		return "", err
	}

	if dest != "" {
		s.logger.Warn("history file archived", "path", s.path, "archive", dest)
	}
	return dest, nil
}

func (s *FileStore) loadLocked() (Log, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Log{}, nil
		}
		return nil, &IOError{Op: "read", Path: s.path, Err: err}
	}
	return decodeLog(s.path, content)
}

func (s *FileStore) writeLocked(log Log) error {
	content, err := encodeLog(log)
	if err != nil {
		return &IOError{Op: "encode", Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return &IOError{Op: "write", Path: s.path, Err: err}
	}

	if _, err := tmp.Write(content); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &IOError{Op: "rename", Path: s.path, Err: err}
	}
	return nil
}

// withLock runs fn while holding the advisory file lock. Exclusive locks
// create the parent directory and the lock file. A shared lock is skipped
// when the lock file is absent or cannot be opened by this user.
func (s *FileStore) withLock(exclusive bool, fn func() error) error {
	if exclusive {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return &IOError{Op: "mkdir", Path: s.path, Err: err}
		}
		if err := s.lock.Lock(); err != nil {
			return &IOError{Op: "lock", Path: s.path, Err: err}
		}
	} else {
		if _, err := os.Stat(s.lock.Path()); errors.Is(err, fs.ErrNotExist) {
			return fn()
		}
		if err := s.lock.RLock(); err != nil {
			if skipSharedLock(err) {
				s.logger.Debug("reading history without lock", "path", s.path, "error", err)
				return fn()
			}
			return &IOError{Op: "lock", Path: s.path, Err: err}
		}
	}

	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release history lock", "path", s.path, "error", err)
		}
	}()
	return fn()
}

func skipSharedLock(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, syscall.EROFS)
}
