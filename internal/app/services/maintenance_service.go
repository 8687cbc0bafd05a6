package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/tuitiontrack/internal/domain"
	"github.com/yigit/tuitiontrack/internal/pkg/filestorage"
	"github.com/yigit/tuitiontrack/internal/pkg/metrics"
)

// MaintenanceResult counts what one run removed.
type MaintenanceResult struct {
	HomeworkRows   int64
	Files          int
	AttendanceRows int64
}

// MaintenanceService purges expired homework and, when configured, old
// attendance. Run is idempotent and safe to call from any page handler, the
// CLI or the cron timer.
type MaintenanceService struct {
	homework      HomeworkStore
	attendance    AttendanceStore
	files         filestorage.FileStorage
	clock         *domain.Clock
	retentionDays int
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

// NewMaintenanceService creates a new MaintenanceService. retentionDays 0
// keeps attendance forever.
func NewMaintenanceService(homework HomeworkStore, attendance AttendanceStore, files filestorage.FileStorage, clock *domain.Clock, retentionDays int, m *metrics.Metrics, logger zerolog.Logger) *MaintenanceService {
	return &MaintenanceService{
		homework:      homework,
		attendance:    attendance,
		files:         files,
		clock:         clock,
		retentionDays: retentionDays,
		metrics:       m,
		logger:        logger,
	}
}

// Run performs one maintenance pass.
func (s *MaintenanceService) Run(ctx context.Context) (MaintenanceResult, error) {
	var res MaintenanceResult
	today := s.clock.Today()

	expired, err := s.homework.ExpiredBefore(ctx, domain.HomeworkCutoff(today))
	if err != nil {
		return res, fmt.Errorf("error listing expired homework: %w", err)
	}
	if len(expired) > 0 {
		ids := make([]int64, 0, len(expired))
		keys := make([]string, 0, len(expired))
		for _, h := range expired {
			ids = append(ids, h.ID)
			keys = append(keys, h.FileKey)
		}
		// Files go first; a file that cannot be removed never blocks its row.
		res.Files = removeFiles(ctx, s.files, keys, s.logger)
		if res.HomeworkRows, err = s.homework.DeleteByIDs(ctx, ids); err != nil {
			return res, fmt.Errorf("error deleting expired homework: %w", err)
		}
	}

	if s.retentionDays > 0 {
		if res.AttendanceRows, err = s.attendance.DeleteBefore(ctx, today.AddDays(-s.retentionDays)); err != nil {
			return res, fmt.Errorf("error purging attendance: %w", err)
		}
	}

	s.metrics.HomeworkPurged.Add(float64(res.HomeworkRows))
	s.metrics.FilesPurged.Add(float64(res.Files))
	s.metrics.AttendancePurged.Add(float64(res.AttendanceRows))

	if res.HomeworkRows > 0 || res.AttendanceRows > 0 {
		s.logger.Info().
			Int64("homeworkRows", res.HomeworkRows).
			Int("files", res.Files).
			Int64("attendanceRows", res.AttendanceRows).
			Msg("Maintenance removed expired data")
	}
	return res, nil
}

// RunQuietly is Run for page handlers: errors are logged, never returned.
func (s *MaintenanceService) RunQuietly(ctx context.Context) {
	if _, err := s.Run(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Maintenance run failed")
	}
}
