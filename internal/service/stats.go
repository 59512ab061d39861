package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// StatsRepository answers aggregate queries.
type StatsRepository interface {
	CountUsers(ctx context.Context) (total, active int, err error)
	CountItems(ctx context.Context, s *models.Stats) error
	CountByDevice(ctx context.Context) (map[string]int, error)
	CountStolen(ctx context.Context) (int, error)
	CountStaleDamaged(ctx context.Context, before time.Time) (int, error)
	CountWarrantyExpiring(ctx context.Context, from, to time.Time) (int, error)
	Ping(ctx context.Context) error
}

// RecentAudit returns the newest audit entries.
type RecentAudit interface {
	Recent(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// BackupStatus reports the time of the last successful snapshot.
type BackupStatus interface {
	LastSuccess() (time.Time, bool)
}

const (
	recentActivityLimit = 10
	alertWindow         = 30 * 24 * time.Hour
)

// StatsService builds the statistics summary and the equipment alerts.
type StatsService struct {
	repo    StatsRepository
	audit   RecentAudit
	backups BackupStatus
	log     *zap.Logger
	started time.Time
	now     func() time.Time
}

// NewStatsService constructs a StatsService. backups may be nil when the
// scheduler is disabled.
func NewStatsService(repo StatsRepository, audit RecentAudit, backups BackupStatus, log *zap.Logger) *StatsService {
	return &StatsService{repo: repo, audit: audit, backups: backups, log: log, started: time.Now(), now: time.Now}
}

// Stats returns the current summary.
func (s *StatsService) Stats(ctx context.Context) (*models.Stats, error) {
	st := &models.Stats{}
	var err error
	if st.TotalUsers, st.ActiveUsers, err = s.repo.CountUsers(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.CountItems(ctx, st); err != nil {
		return nil, err
	}
	if st.DevicesByType, err = s.repo.CountByDevice(ctx); err != nil {
		return nil, err
	}
	if st.RecentActivities, err = s.audit.Recent(ctx, recentActivityLimit); err != nil {
		return nil, err
	}

	if err := s.repo.Ping(ctx); err != nil {
		s.log.Warn("database ping failed", zap.Error(err))
	} else {
		st.SystemHealth.DatabaseConnected = true
	}
	if s.backups != nil {
		if at, ok := s.backups.LastSuccess(); ok {
			st.SystemHealth.LastBackup = &at
		}
	}
	st.SystemHealth.Uptime = formatUptime(s.now().Sub(s.started))
	return st, nil
}

// Alerts returns the equipment conditions needing attention. Conditions
// with a zero count are omitted.
func (s *StatsService) Alerts(ctx context.Context) ([]models.Alert, error) {
	now := s.now().UTC()
	alerts := []models.Alert{}

	stolen, err := s.repo.CountStolen(ctx)
	if err != nil {
		return nil, err
	}
	if stolen > 0 {
		alerts = append(alerts, models.Alert{
			Type:    "warning",
			Message: fmt.Sprintf("%d equipos reportados como robados", stolen),
			Action:  "revisar_robados",
			Count:   stolen,
		})
	}

	damaged, err := s.repo.CountStaleDamaged(ctx, now.Add(-alertWindow))
	if err != nil {
		return nil, err
	}
	if damaged > 0 {
		alerts = append(alerts, models.Alert{
			Type:    "info",
			Message: fmt.Sprintf("%d equipos en mal estado por más de 30 días", damaged),
			Action:  "revisar_mal_estado",
			Count:   damaged,
		})
	}

	expiring, err := s.repo.CountWarrantyExpiring(ctx, now, now.Add(alertWindow))
	if err != nil {
		return nil, err
	}
	if expiring > 0 {
		alerts = append(alerts, models.Alert{
			Type:    "warning",
			Message: fmt.Sprintf("%d equipos con garantía por vencer", expiring),
			Action:  "revisar_garantias",
			Count:   expiring,
		})
	}
	return alerts, nil
}

func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Minute)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%d days, %d hours, %d minutes", days, hours, minutes)
}
