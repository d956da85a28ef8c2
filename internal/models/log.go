package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type ProcessingStatus string

const (
	StatusPending                 ProcessingStatus = "pending"
	StatusProcessing              ProcessingStatus = "processing"
	StatusCompleted               ProcessingStatus = "completed"
	StatusCompletedWithoutVectors ProcessingStatus = "completed_without_vectors"
	StatusError                   ProcessingStatus = "error"
)

// IsTerminal reports whether the status ends the processing state machine.
func (s ProcessingStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedWithoutVectors, StatusError:
		return true
	}
	return false
}

type LogRecord struct {
	ID         uint             `json:"id" gorm:"primaryKey"`
	Filename   string           `json:"filename" gorm:"not null"`
	Content    string           `json:"content" gorm:"type:text"`
	Size       int64            `json:"size"`
	UploadedBy uint             `json:"uploadedBy"`
	Status     ProcessingStatus `json:"processingStatus" gorm:"column:processing_status;default:'pending'"`
	UploadedAt time.Time        `json:"uploadedAt" gorm:"autoCreateTime"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt   `json:"-" gorm:"index"`

	Embeddings []EmbeddingRecord `json:"embeddings,omitempty" gorm:"foreignKey:LogID"`
}

// EmbeddingRecord stores one embedded segment of a log. VectorID is the id
// assigned by the vector store, or a locally generated "local-" id when the
// store was unreachable at insert time. Placeholder ids mark segments that
// are stored but not searchable until re-indexed.
type EmbeddingRecord struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	LogID     uint           `json:"logId" gorm:"not null;index"`
	Segment   string         `json:"segment" gorm:"type:text"`
	VectorID  string         `json:"vectorId"`
	CreatedAt time.Time      `json:"createdAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// IsPlaceholder reports whether the record was persisted without a backing
// vector-store entry.
func (e EmbeddingRecord) IsPlaceholder() bool {
	return strings.HasPrefix(e.VectorID, "local-")
}

type ActivityType string

const (
	ActivityUpload       ActivityType = "upload"
	ActivityProcessing   ActivityType = "processing"
	ActivityAnalysis     ActivityType = "analysis"
	ActivityStatusChange ActivityType = "status_change"
	ActivityError        ActivityType = "error"
)

// Activity is an append-only audit trail entry. Never mutated or deleted;
// read newest-first for the recent-activity feed.
type Activity struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	LogID       *uint        `json:"logId,omitempty" gorm:"index"`
	Type        ActivityType `json:"type" gorm:"not null"`
	Description string       `json:"description" gorm:"type:text"`
	Status      string       `json:"status"`
	CreatedAt   time.Time    `json:"timestamp"`
}

func (LogRecord) TableName() string {
	return "log_records"
}

func (EmbeddingRecord) TableName() string {
	return "embedding_records"
}

func (Activity) TableName() string {
	return "activities"
}
