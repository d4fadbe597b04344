package models

import (
	"time"

	"github.com/google/uuid"
)

// LogLevel represents the severity level of a job run log
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// JobRunLog is a locally persisted log entry for a transformation job.
// The authoritative job record lives in the catalog service; these rows
// keep an auditable run history on the worker side.
type JobRunLog struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	JobID string    `gorm:"type:varchar(255);not null;index:idx_job_run_logs_job" json:"jobId"`

	Level   LogLevel `gorm:"type:varchar(20);not null;default:'info';index:idx_job_run_logs_level" json:"level"`
	Message string   `gorm:"type:text;not null" json:"message"`
	Data    JSONB    `gorm:"type:jsonb;default:'{}'" json:"data,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_job_run_logs_created" json:"createdAt"`
}

// TableName specifies the table name for JobRunLog
func (JobRunLog) TableName() string {
	return "job_run_logs"
}
