// Package storage defines the persistence boundary for the analysis core.
// The pipeline and search services talk to Store only; the postgres
// implementation backs production and the in-memory one backs tests and
// development without a database.
package storage

import (
	"errors"

	"github.com/telcolog/backend/internal/models"
)

var ErrNotFound = errors.New("record not found")

// Stats is the dashboard statistics response shape.
type Stats struct {
	AnalyzedLogs      int64  `json:"analyzedLogs"`
	IssuesResolved    int64  `json:"issuesResolved"`
	PendingIssues     int64  `json:"pendingIssues"`
	AvgResolutionTime string `json:"avgResolutionTime"`
}

type Store interface {
	CreateLog(record *models.LogRecord) error
	GetLog(id uint) (*models.LogRecord, error)
	ListLogs() ([]models.LogRecord, error)
	UpdateLogStatus(id uint, status models.ProcessingStatus) error

	CreateAnalysis(result *models.AnalysisResult) error
	GetAnalysis(id uint) (*models.AnalysisResult, error)
	GetAnalysisByLogID(logID uint) (*models.AnalysisResult, error)
	UpdateResolutionStatus(id uint, status models.ResolutionStatus) error

	CreateEmbeddings(records []models.EmbeddingRecord) error
	ListEmbeddingsByLogID(logID uint) ([]models.EmbeddingRecord, error)

	CreateActivity(activity *models.Activity) error
	ListRecentActivities(limit int) ([]models.Activity, error)

	CreateUser(user *models.User) error
	GetUser(id uint) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)

	GetStats() (*Stats, error)
}
