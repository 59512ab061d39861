package service

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// Snapshotter writes a backup archive and returns its path.
type Snapshotter interface {
	Snapshot(ctx context.Context, now time.Time) (string, error)
}

// BackupService runs manual backups on behalf of an admin.
type BackupService struct {
	snap  Snapshotter
	audit Auditor
	log   *zap.Logger
}

// NewBackupService constructs a BackupService.
func NewBackupService(snap Snapshotter, audit Auditor, log *zap.Logger) *BackupService {
	return &BackupService{snap: snap, audit: audit, log: log}
}

// Run writes a snapshot, waiting for a scheduled one to finish if needed,
// and records a BACKUP entry. It returns the archive file name.
func (s *BackupService) Run(ctx context.Context, actor *models.User) (string, error) {
	path, err := s.snap.Snapshot(ctx, time.Now())
	if err != nil {
		s.log.Error("manual backup failed",
			zap.String("actor", actor.Username),
			zap.String("action", string(models.ActionBackup)),
			zap.String("resource", models.ResourceSystem),
			zap.Error(err))
		return "", err
	}
	file := filepath.Base(path)
	s.audit.Record(ctx, actor, models.ActionBackup, models.ResourceSystem, nil,
		map[string]any{"type": "manual", "file": file})
	return file, nil
}
