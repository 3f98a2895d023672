package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"hls-ingest/internal/fileutil"
)

// Store is the persistence abstraction for published assets.
// Append is the only write path during ingestion; MigrateLegacy is an
// explicit whole-file rewrite and is never run implicitly.
type Store interface {
	// Append writes one record as one line. Prior lines are never rewritten.
	Append(r Record) error

	// ReadAll returns every non-blank line in append order, oldest first.
	// Lines that do not parse come back as degraded entries, never as errors.
	ReadAll() ([]Entry, error)

	// FindByAssetID returns the last entry whose identifier is id.
	FindByAssetID(id string) (Entry, bool, error)

	// MigrateLegacy normalizes degraded lines whose URL matches the published
	// asset shape and returns how many lines were rewritten.
	MigrateLegacy() (int, error)
}

// maxLine bounds a single catalog line when reading.
const maxLine = 16 * 1024 * 1024

// FileStore is a Store backed by a UTF-8 text file, one record per line.
// Writers are serialized in-process by a mutex and across processes by an
// advisory lock on <path>.lock. Readers take no lock.
type FileStore struct {
	path  string
	shape URLShape
	now   func() time.Time

	mu   sync.Mutex
	lock *flock.Flock
}

// NewFileStore returns a store for the catalog at path. The file is created on
// first append.
func NewFileStore(path string, shape URLShape) *FileStore {
	return &FileStore{
		path:  path,
		shape: shape,
		now:   func() time.Time { return time.Now().UTC() },
		lock:  flock.New(path + ".lock"),
	}
}

var _ Store = (*FileStore)(nil)

// Path returns the catalog file location.
func (s *FileStore) Path() string { return s.path }

// Shape returns the URL shape used to build and recognize manifest URLs.
func (s *FileStore) Shape() URLShape { return s.shape }

// Append implements Store.Append.
func (s *FileStore) Append(r Record) error {
	line, err := marshalRecord(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock catalog %s: %w", s.path, err)
	}
	defer func() { _ = s.lock.Unlock() }()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("append %s: %w", s.path, err)
	}
	defer f.Close()

	// A torn final line from an earlier crash must not swallow this record.
	buf := make([]byte, 0, len(line)+2)
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("append %s: %w", s.path, err)
	}
	if size := info.Size(); size > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, size-1); err != nil {
			return fmt.Errorf("append %s: %w", s.path, err)
		}
		if last[0] != '\n' {
			buf = append(buf, '\n')
		}
	}
	buf = append(buf, line...)
	buf = append(buf, '\n')

	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("append %s: %w", s.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("append %s: %w", s.path, err)
	}
	return nil
}

// ReadAll implements Store.ReadAll. A missing file is an empty catalog.
func (s *FileStore) ReadAll() ([]Entry, error) {
	lines, err := s.readLines()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for i, raw := range lines {
		entries = append(entries, parseLine(raw, i))
	}
	return entries, nil
}

// FindByAssetID implements Store.FindByAssetID.
func (s *FileStore) FindByAssetID(id string) (Entry, bool, error) {
	entries, err := s.ReadAll()
	if err != nil {
		return Entry{}, false, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].ID == id {
			return entries[i], true, nil
		}
	}
	return Entry{}, false, nil
}

// Count returns the number of non-blank lines in the catalog.
func (s *FileStore) Count() (int, error) {
	lines, err := s.readLines()
	if err != nil {
		return 0, err
	}
	return len(lines), nil
}

// MigrateLegacy implements Store.MigrateLegacy. Structured lines and lines
// whose URL does not match the shape are written back byte for byte. The file
// is left untouched when nothing needs rewriting.
func (s *FileStore) MigrateLegacy() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return 0, fmt.Errorf("lock catalog %s: %w", s.path, err)
	}
	defer func() { _ = s.lock.Unlock() }()

	lines, err := s.readLines()
	if err != nil {
		return 0, err
	}

	var (
		out      strings.Builder
		migrated int
	)
	for i, raw := range lines {
		e := parseLine(raw, i)
		if !e.Degraded {
			out.WriteString(raw)
			out.WriteByte('\n')
			continue
		}
		id, ok := s.shape.AssetID(e.URL)
		if !ok {
			out.WriteString(raw)
			out.WriteByte('\n')
			continue
		}

		rec := e.Record
		rec.URL = strings.TrimSpace(rec.URL)
		rec.ID = id
		if rec.UploadDate.IsZero() {
			rec.UploadDate = s.now()
		}
		b, err := marshalRecord(rec)
		if err != nil {
			return 0, err
		}
		out.Write(b)
		out.WriteByte('\n')
		migrated++
	}

	if migrated == 0 {
		return 0, nil
	}
	if err := fileutil.WriteAtomic(s.path, []byte(out.String()), 0o644); err != nil {
		return 0, fmt.Errorf("migrate %s: %w", s.path, err)
	}
	return migrated, nil
}

// readLines returns the non-blank lines of the catalog with line endings
// removed.
func (s *FileStore) readLines() ([]string, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		raw := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		lines = append(lines, raw)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return lines, nil
}
