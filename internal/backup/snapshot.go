// Package backup writes compressed snapshots of the inventory, the
// identities and the recent audit log, and runs them on a timer.
package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// FormatVersion tags the snapshot document layout.
const FormatVersion = "2.0.0"

const nameLayout = "20060102_150405"

var (
	// ErrBusy is returned by TrySnapshot while another snapshot is running.
	ErrBusy = errors.New("backup already running")
	// ErrArchiveExists is returned when an archive for the same second is
	// already published. Existing archives are never replaced.
	ErrArchiveExists = fmt.Errorf("%w: backup archive for this second", models.ErrAlreadyExists)
)

// Source reads every collection as of a single point in time.
type Source interface {
	ReadDataset(ctx context.Context, auditLimit int) (*models.Dataset, error)
}

// Metrics observes finished snapshot runs.
type Metrics interface {
	BackupFinished(success bool, took time.Duration)
}

// Options configures a Snapshotter.
type Options struct {
	Dir        string
	Prefix     string
	Retention  int
	AuditLimit int
}

// Document is the JSON stored inside each archive.
type Document struct {
	Timestamp   time.Time      `json:"timestamp"`
	Version     string         `json:"version"`
	Collections models.Dataset `json:"collections"`
}

// Snapshotter produces backup archives. Runs are serialized.
type Snapshotter struct {
	source  Source
	opts    Options
	log     *zap.Logger
	metrics Metrics

	mu sync.Mutex

	lastMu  sync.RWMutex
	last    time.Time
	hasLast bool
}

// NewSnapshotter creates a Snapshotter. m may be nil.
func NewSnapshotter(source Source, opts Options, log *zap.Logger, m Metrics) *Snapshotter {
	if opts.Prefix == "" {
		opts.Prefix = "inei_backup"
	}
	if opts.Retention <= 0 {
		opts.Retention = 30
	}
	if opts.AuditLimit <= 0 {
		opts.AuditLimit = 1000
	}
	return &Snapshotter{source: source, opts: opts, log: log, metrics: m}
}

// Snapshot writes an archive for now, waiting for any running snapshot to
// finish first. It returns the archive path.
func (s *Snapshotter) Snapshot(ctx context.Context, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, now)
}

// TrySnapshot is like Snapshot but returns ErrBusy instead of waiting.
func (s *Snapshotter) TrySnapshot(ctx context.Context, now time.Time) (string, error) {
	if !s.mu.TryLock() {
		return "", ErrBusy
	}
	defer s.mu.Unlock()
	return s.run(ctx, now)
}

// LastSuccess returns the time of the last successful snapshot.
func (s *Snapshotter) LastSuccess() (time.Time, bool) {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.last, s.hasLast
}

func (s *Snapshotter) run(ctx context.Context, now time.Time) (string, error) {
	start := time.Now()
	path, err := s.write(ctx, now)
	if s.metrics != nil {
		s.metrics.BackupFinished(err == nil, time.Since(start))
	}
	if err != nil {
		s.log.Error("backup failed", zap.Error(err))
		return "", err
	}

	s.lastMu.Lock()
	s.last, s.hasLast = now, true
	s.lastMu.Unlock()

	removed, err := s.prune()
	if err != nil {
		s.log.Warn("prune old backups", zap.Error(err))
	}
	s.log.Info("backup completed", zap.String("file", filepath.Base(path)), zap.Int("pruned", removed))
	return path, nil
}

func (s *Snapshotter) collect(ctx context.Context, now time.Time) (*Document, error) {
	data, err := s.source.ReadDataset(ctx, s.opts.AuditLimit)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	for i := range data.Users {
		data.Users[i].PasswordHash = ""
	}
	return &Document{Timestamp: now, Version: FormatVersion, Collections: *data}, nil
}

func (s *Snapshotter) write(ctx context.Context, now time.Time) (path string, err error) {
	doc, err := s.collect(ctx, now)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.opts.Dir, 0o750); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	stem := fmt.Sprintf("%s_%s", s.opts.Prefix, now.Format(nameLayout))
	path = filepath.Join(s.opts.Dir, stem+".zip")
	if _, statErr := os.Lstat(path); statErr == nil {
		return "", fmt.Errorf("%w: %s", ErrArchiveExists, filepath.Base(path))
	}

	tmp, err := os.CreateTemp(s.opts.Dir, "."+stem+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp archive: %w", err)
	}
	closed := false
	defer func() {
		if !closed {
			_ = tmp.Close()
		}
		_ = os.Remove(tmp.Name())
	}()

	zw := zip.NewWriter(tmp)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: stem + ".json", Method: zip.Deflate, Modified: now})
	if err != nil {
		return "", fmt.Errorf("create archive entry: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err = enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err = zw.Close(); err != nil {
		return "", fmt.Errorf("finish archive: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync archive: %w", err)
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w", err)
	}

	// Link fails instead of replacing an archive published meanwhile.
	if err = os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrArchiveExists, filepath.Base(path))
		}
		return "", fmt.Errorf("publish archive: %w", err)
	}
	return path, nil
}

// Archives returns the archive names in dir, oldest first.
func (s *Snapshotter) Archives() ([]string, error) {
	entries, err := os.ReadDir(s.opts.Dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(name, s.opts.Prefix+"_") && strings.HasSuffix(name, ".zip") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Snapshotter) prune() (int, error) {
	names, err := s.Archives()
	if err != nil {
		return 0, err
	}
	if len(names) <= s.opts.Retention {
		return 0, nil
	}
	removed := 0
	var errs []error
	for _, name := range names[:len(names)-s.opts.Retention] {
		if err := os.Remove(filepath.Join(s.opts.Dir, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
