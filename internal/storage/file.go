package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/constants"
	"github.com/kapu/cashier-dialog-gen/internal/domain"
	"github.com/kapu/cashier-dialog-gen/pkg/errors"
)

var recordFilePattern = regexp.MustCompile(`^dialog-(\d+)\.json$`)

// FileStore writes one JSON file per dialogue and appends each profile's
// key=value line to an index log. It doubles as the default id sequence,
// continuing after the highest record already on disk.
type FileStore struct {
	dir       string
	indexPath string
	logger    *zap.Logger

	mu   sync.Mutex
	last int64
}

func NewFileStore(dir, indexPath string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewStorageError("failed to create dialogs directory", "file", "init", err)
	}
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, errors.NewStorageError("failed to create profile index directory", "file", "init", err)
	}

	last, err := scanMaxID(dir)
	if err != nil {
		return nil, err
	}

	logger.Info("File store ready",
		zap.String("dir", dir),
		zap.String("index", indexPath),
		zap.Int64("last_dialog_id", last),
	)

	return &FileStore{dir: dir, indexPath: indexPath, logger: logger, last: last}, nil
}

func scanMaxID(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errors.NewStorageError("failed to list dialogs directory", "file", "scan", err)
	}
	var maxID int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := recordFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil && id > maxID {
			maxID = id
		}
	}
	return maxID, nil
}

func (s *FileStore) Name() string { return "file" }

// MaxID returns the highest id issued or found on disk.
func (s *FileStore) MaxID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *FileStore) NextID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	return s.last, nil
}

// Path returns the record file for id.
func (s *FileStore) Path(id int64) string {
	return filepath.Join(s.dir, fmt.Sprintf(constants.StorageConfig.RecordPattern, id))
}

// Save writes the record through a temp file and rename, then appends the
// index line. A record whose id was allocated elsewhere bumps the local counter.
func (s *FileStore) Save(_ context.Context, rec *domain.DialogueRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.NewStorageError("failed to encode dialogue record", s.Name(), "save", err)
	}

	path := s.Path(rec.DialogID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.NewStorageError("failed to write dialogue record", s.Name(), "save", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.NewStorageError("failed to move dialogue record into place", s.Name(), "save", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.DialogID > s.last {
		s.last = rec.DialogID
	}
	if err := s.appendIndex(rec); err != nil {
		return err
	}

	s.logger.Debug("Dialogue record written", zap.String("path", path))
	return nil
}

// appendIndex must be called with mu held.
func (s *FileStore) appendIndex(rec *domain.DialogueRecord) error {
	f, err := os.OpenFile(s.indexPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.NewStorageError("failed to open profile index", s.Name(), "index", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "dialog_id=%d %s\n", rec.DialogID, rec.ClientProfile.RegLine)
	if err := w.Flush(); err != nil {
		return errors.NewStorageError("failed to append profile index", s.Name(), "index", err)
	}
	return nil
}

// Load reads a record back.
func (s *FileStore) Load(id int64) (*domain.DialogueRecord, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		return nil, errors.NewStorageError("failed to read dialogue record", s.Name(), "load", err)
	}
	var rec domain.DialogueRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.NewStorageError("failed to decode dialogue record", s.Name(), "load", err)
	}
	return &rec, nil
}
