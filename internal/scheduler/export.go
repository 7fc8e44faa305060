package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/library"
)

// StatusStore records the outcome of the last export. The settings
// repository of a local library satisfies it.
type StatusStore interface {
	SetSetting(key, value string) error
}

// ExportConfig configures the periodic export.
type ExportConfig struct {
	Schedule string // Cron format: "0 3 * * *" = daily at 03:00
	Dir      string
	Format   string
}

// ExportResult summarizes one export run.
type ExportResult struct {
	Exported int
	Failed   int
	Took     time.Duration
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a 5-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// ExportScheduler periodically exports every story of a library.
type ExportScheduler struct {
	lib    library.Contract
	status StatusStore
	cfg    ExportConfig
	logger *zap.Logger

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool

	// one export at a time
	runMu sync.Mutex
}

// NewExportScheduler creates a scheduler. status may be nil.
func NewExportScheduler(lib library.Contract, status StatusStore, cfg ExportConfig, logger *zap.Logger) *ExportScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportScheduler{
		lib:    lib,
		status: status,
		cfg:    cfg,
		logger: logger.Named("export-scheduler"),
		cron:   cron.New(cron.WithParser(parser)),
	}
}

// Start schedules the export job. The scheduler stops when ctx is done.
func (s *ExportScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.cfg.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("scheduled export failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule export job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	s.logger.Info("started",
		zap.String("schedule", s.cfg.Schedule),
		zap.String("dir", s.cfg.Dir),
		zap.String("format", s.cfg.Format),
		zap.Time("next_run", s.cron.Entry(entryID).Next))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for a running export.
func (s *ExportScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	done := s.cron.Stop()
	<-done.Done()
	s.cron.Remove(s.entryID)

	s.isRunning = false
	s.logger.Info("stopped")
}

// IsRunning returns whether the scheduler is active
func (s *ExportScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the next export will occur
func (s *ExportScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}

// RunOnce exports every story now. A story that fails to export is logged
// and counted; the run goes on with the next one.
func (s *ExportScheduler) RunOnce(ctx context.Context) (ExportResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()
	var result ExportResult

	if err := os.MkdirAll(s.cfg.Dir, 0755); err != nil {
		err = fmt.Errorf("create export dir: %w", err)
		s.record("failed", err.Error())
		return result, err
	}

	metas, err := s.lib.GetMetas(ctx, nil)
	if err != nil {
		err = fmt.Errorf("list stories: %w", err)
		s.record("failed", err.Error())
		return result, err
	}

	for _, meta := range metas {
		if err := ctx.Err(); err != nil {
			s.record("failed", "cancelled")
			return result, err
		}

		path, err := s.lib.Export(ctx, meta.LUID, s.cfg.Format, s.cfg.Dir, nil)
		if err != nil {
			result.Failed++
			s.logger.Warn("story not exported",
				zap.String("luid", meta.LUID),
				zap.String("title", meta.Title),
				zap.Error(err))
			continue
		}
		result.Exported++
		s.logger.Debug("story exported", zap.String("luid", meta.LUID), zap.String("path", path))
	}

	result.Took = time.Since(start)
	msg := fmt.Sprintf("Exported %d stories (%d failed) in %v",
		result.Exported, result.Failed, result.Took.Round(time.Millisecond))
	s.logger.Info(msg)

	status := "success"
	if result.Failed > 0 {
		status = "partial"
	}
	s.record(status, msg)
	return result, nil
}

func (s *ExportScheduler) record(status, message string) {
	if s.status == nil {
		return
	}
	values := map[string]string{
		entities.SettingKeyExportLastAt:      time.Now().UTC().Format(time.RFC3339),
		entities.SettingKeyExportLastStatus:  status,
		entities.SettingKeyExportLastMessage: message,
	}
	for key, value := range values {
		if err := s.status.SetSetting(key, value); err != nil {
			s.logger.Warn("cannot record export status", zap.String("key", key), zap.Error(err))
		}
	}
}
