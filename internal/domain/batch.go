package domain

import "time"

// BatchStatus represents the status of an ingestion batch run.
// Values include BatchStatusRunning, BatchStatusCompleted, and BatchStatusAborted.
type BatchStatus string

const (
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusAborted   BatchStatus = "aborted"
)

// BatchRun records the outcome of one ingestion batch for operator visibility.
type BatchRun struct {
	ID           string      `gorm:"type:text;primaryKey" json:"id"`
	Source       string      `gorm:"type:text;not null;index" json:"source"`
	Status       BatchStatus `gorm:"type:text;default:running" json:"status"`
	TotalItems   int         `gorm:"default:0" json:"total_items"`
	StagedItems  int         `gorm:"default:0" json:"staged_items"`
	DroppedItems int         `gorm:"default:0" json:"dropped_items"`
	FailedItems  int         `gorm:"default:0" json:"failed_items"`
	StartedAt    time.Time   `json:"started_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	ErrorLog     string      `json:"error_log,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TableName returns the database table name for BatchRun.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (BatchRun) TableName() string {
	return "batch_runs"
}
