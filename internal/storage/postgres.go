package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/telcolog/backend/internal/models"
)

// PostgresStore implements Store on top of gorm.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateLog(record *models.LogRecord) error {
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to create log record: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetLog(id uint) (*models.LogRecord, error) {
	var record models.LogRecord
	if err := s.db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get log record: %w", err)
	}
	return &record, nil
}

func (s *PostgresStore) ListLogs() ([]models.LogRecord, error) {
	var records []models.LogRecord
	if err := s.db.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list log records: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) UpdateLogStatus(id uint, status models.ProcessingStatus) error {
	res := s.db.Model(&models.LogRecord{}).Where("id = ?", id).Update("processing_status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update log status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateAnalysis(result *models.AnalysisResult) error {
	if err := s.db.Create(result).Error; err != nil {
		return fmt.Errorf("failed to create analysis result: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAnalysis(id uint) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	if err := s.db.First(&result, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analysis result: %w", err)
	}
	return &result, nil
}

func (s *PostgresStore) GetAnalysisByLogID(logID uint) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	err := s.db.Where("log_id = ?", logID).Order("created_at DESC").First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analysis for log %d: %w", logID, err)
	}
	return &result, nil
}

func (s *PostgresStore) UpdateResolutionStatus(id uint, status models.ResolutionStatus) error {
	updates := map[string]interface{}{"resolution_status": status}
	if status == models.ResolutionResolved {
		now := time.Now()
		updates["resolved_at"] = &now
	}
	res := s.db.Model(&models.AnalysisResult{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update resolution status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateEmbeddings(records []models.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.db.CreateInBatches(records, 100).Error; err != nil {
		return fmt.Errorf("failed to create embedding records: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListEmbeddingsByLogID(logID uint) ([]models.EmbeddingRecord, error) {
	var records []models.EmbeddingRecord
	if err := s.db.Where("log_id = ?", logID).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list embeddings for log %d: %w", logID, err)
	}
	return records, nil
}

func (s *PostgresStore) CreateActivity(activity *models.Activity) error {
	if err := s.db.Create(activity).Error; err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecentActivities(limit int) ([]models.Activity, error) {
	var activities []models.Activity
	if err := s.db.Order("id DESC").Limit(limit).Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

func (s *PostgresStore) CreateUser(user *models.User) error {
	if err := s.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) GetStats() (*Stats, error) {
	stats := &Stats{AvgResolutionTime: "0h"}

	if err := s.db.Model(&models.AnalysisResult{}).
		Distinct("log_id").Count(&stats.AnalyzedLogs).Error; err != nil {
		return nil, fmt.Errorf("failed to count analyzed logs: %w", err)
	}
	if err := s.db.Model(&models.AnalysisResult{}).
		Where("resolution_status = ?", models.ResolutionResolved).
		Count(&stats.IssuesResolved).Error; err != nil {
		return nil, fmt.Errorf("failed to count resolved analyses: %w", err)
	}

	var pending []models.AnalysisResult
	if err := s.db.Where("resolution_status <> ?", models.ResolutionResolved).
		Find(&pending).Error; err != nil {
		return nil, fmt.Errorf("failed to load pending analyses: %w", err)
	}
	for _, result := range pending {
		stats.PendingIssues += int64(len(result.Issues))
	}

	var resolved []models.AnalysisResult
	if err := s.db.Where("resolution_status = ? AND resolved_at IS NOT NULL",
		models.ResolutionResolved).Find(&resolved).Error; err != nil {
		return nil, fmt.Errorf("failed to load resolved analyses: %w", err)
	}
	stats.AvgResolutionTime = formatAvgResolution(resolved)

	return stats, nil
}

// formatAvgResolution averages resolvedAt-analyzedAt over resolved analyses
// and renders it as whole hours.
func formatAvgResolution(resolved []models.AnalysisResult) string {
	if len(resolved) == 0 {
		return "0h"
	}
	var total time.Duration
	counted := 0
	for _, r := range resolved {
		if r.ResolvedAt == nil {
			continue
		}
		total += r.ResolvedAt.Sub(r.AnalyzedAt)
		counted++
	}
	if counted == 0 {
		return "0h"
	}
	hours := int(total.Hours()) / counted
	return fmt.Sprintf("%dh", hours)
}
