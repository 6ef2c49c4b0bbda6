// Package repositories provides data access for run history.
package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/bbernstein/lacylights-matrix/internal/database/models"
)

// DefaultRecentLimit is used by FindRecent when limit is not positive.
const DefaultRecentLimit = 20

// RunStats are the counters recorded when a run finishes.
type RunStats struct {
	FramesRendered  uint64
	Timeouts        uint64
	PacketsAccepted uint64
	PacketsRejected uint64
	Duplicates      uint64
}

// RunRepository handles run record data access.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create stores a new run. ID and StartedAt are filled in when empty.
func (r *RunRepository) Create(ctx context.Context, run *models.RunRecord) error {
	if run.ID == "" {
		run.ID = cuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.ExitReason == "" {
		run.ExitReason = models.ExitRunning
	}
	return r.db.WithContext(ctx).Create(run).Error
}

// Finish marks a run as stopped with its final counters.
func (r *RunRepository) Finish(ctx context.Context, id, reason string, stats RunStats, runErr error) error {
	updates := map[string]interface{}{
		"stopped_at":       time.Now(),
		"exit_reason":      reason,
		"frames_rendered":  int64(stats.FramesRendered),
		"timeouts":         int64(stats.Timeouts),
		"packets_accepted": int64(stats.PacketsAccepted),
		"packets_rejected": int64(stats.PacketsRejected),
		"duplicates":       int64(stats.Duplicates),
	}
	if runErr != nil {
		updates["error"] = runErr.Error()
	}

	result := r.db.WithContext(ctx).
		Model(&models.RunRecord{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByID returns a run by ID, or nil if it does not exist.
func (r *RunRepository) FindByID(ctx context.Context, id string) (*models.RunRecord, error) {
	var run models.RunRecord
	result := r.db.WithContext(ctx).First(&run, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &run, nil
}

// FindRecent returns the most recent runs, newest first.
func (r *RunRepository) FindRecent(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	var runs []models.RunRecord
	result := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs)
	return runs, result.Error
}
