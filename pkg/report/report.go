package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sw33tLie/lootscope/internal/utils"
	"github.com/sw33tLie/lootscope/pkg/loot"
)

// ErrNotFound is returned by Open when nothing has been published yet.
var ErrNotFound = errors.New("report not found")

// Header is the first line of every published report.
var Header = []string{"Loot ID", "Name"}

// Store publishes report rows and hands out the latest published artifact.
type Store interface {
	Publish(rows []loot.Row) error
	Open() (*Artifact, error)
}

// Artifact is an open handle on a published report. Because publishing swaps
// files by rename, a handle keeps reading the version it was opened on.
type Artifact struct {
	*os.File
	ModTime time.Time
	Size    int64
}

// WriteCSV writes the header and one line per row.
func WriteCSV(w io.Writer, rows []loot.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{strconv.FormatInt(r.ID, 10), r.Name}); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileStore keeps the current report as a single CSV file on disk.
type FileStore struct {
	path   string
	mu     sync.Mutex
	encode func(io.Writer, []loot.Row) error
}

// NewFileStore prepares a store publishing to path. Intermediate directories are created.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("report: create output dir: %w", err)
	}
	return &FileStore{path: path, encode: WriteCSV}, nil
}

func (s *FileStore) Path() string { return s.path }

// Publish writes rows to a temp file next to the report and renames it over
// the previous one. On error the previous report is left as it was.
func (s *FileStore) Publish(rows []loot.Row) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock := utils.NewFileLock(s.path)
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("report: create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = s.encode(tmp, rows); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("report: sync temp file: %w", err)
	}
	if err = tmp.Chmod(0644); err != nil {
		return fmt.Errorf("report: chmod temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("report: close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("report: replace %s: %w", s.path, err)
	}
	return nil
}

// Open returns the currently published report, or ErrNotFound.
func (s *FileStore) Open() (*Artifact, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Artifact{
		File:    f,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}, nil
}
