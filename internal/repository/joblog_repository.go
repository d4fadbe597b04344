package repository

import (
	"context"

	"gorm.io/gorm"

	"catalog-sync-service/internal/models"
)

// JobLogRepository handles database operations for job run logs
type JobLogRepository struct {
	db *gorm.DB
}

// NewJobLogRepository creates a new job log repository
func NewJobLogRepository(db *gorm.DB) *JobLogRepository {
	return &JobLogRepository{db: db}
}

// Create persists one log entry
func (r *JobLogRepository) Create(ctx context.Context, log *models.JobRunLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// Log is the common write path: level + message + structured data
func (r *JobLogRepository) Log(ctx context.Context, jobID string, level models.LogLevel, message string, data models.JSONB) error {
	return r.Create(ctx, &models.JobRunLog{
		JobID:   jobID,
		Level:   level,
		Message: message,
		Data:    data,
	})
}

// ListByJob returns a job's log entries, newest first
func (r *JobLogRepository) ListByJob(ctx context.Context, jobID string, limit int) ([]models.JobRunLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var logs []models.JobRunLog
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// DeleteOlderThan prunes old run logs
func (r *JobLogRepository) DeleteOlderThan(ctx context.Context, days int) error {
	return r.db.WithContext(ctx).
		Where("created_at < NOW() - (? || ' days')::interval", days).
		Delete(&models.JobRunLog{}).Error
}
