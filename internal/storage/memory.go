package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/telcolog/backend/internal/models"
)

// MemoryStore is an in-memory Store for tests and database-less development.
type MemoryStore struct {
	mu sync.RWMutex

	logs       map[uint]*models.LogRecord
	analyses   map[uint]*models.AnalysisResult
	embeddings map[uint][]models.EmbeddingRecord
	activities []models.Activity
	users      map[uint]*models.User

	logID      uint
	analysisID uint
	embedID    uint
	activityID uint
	userID     uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs:       make(map[uint]*models.LogRecord),
		analyses:   make(map[uint]*models.AnalysisResult),
		embeddings: make(map[uint][]models.EmbeddingRecord),
		users:      make(map[uint]*models.User),
	}
}

func (s *MemoryStore) CreateLog(record *models.LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logID++
	record.ID = s.logID
	if record.Status == "" {
		record.Status = models.StatusPending
	}
	now := time.Now()
	record.UploadedAt = now
	record.CreatedAt = now
	copied := *record
	s.logs[record.ID] = &copied
	return nil
}

func (s *MemoryStore) GetLog(id uint) (*models.LogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.logs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *MemoryStore) ListLogs() ([]models.LogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]models.LogRecord, 0, len(s.logs))
	for _, record := range s.logs {
		records = append(records, *record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID > records[j].ID })
	return records, nil
}

func (s *MemoryStore) UpdateLogStatus(id uint, status models.ProcessingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.logs[id]
	if !ok {
		return ErrNotFound
	}
	record.Status = status
	record.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) CreateAnalysis(result *models.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysisID++
	result.ID = s.analysisID
	if result.ResolutionStatus == "" {
		result.ResolutionStatus = models.ResolutionPending
	}
	now := time.Now()
	result.AnalyzedAt = now
	result.CreatedAt = now
	copied := *result
	s.analyses[result.ID] = &copied
	return nil
}

func (s *MemoryStore) GetAnalysis(id uint) (*models.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.analyses[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *result
	return &copied, nil
}

func (s *MemoryStore) GetAnalysisByLogID(logID uint) (*models.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.AnalysisResult
	for _, result := range s.analyses {
		if result.LogID != logID {
			continue
		}
		if latest == nil || result.ID > latest.ID {
			latest = result
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (s *MemoryStore) UpdateResolutionStatus(id uint, status models.ResolutionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.analyses[id]
	if !ok {
		return ErrNotFound
	}
	result.ResolutionStatus = status
	if status == models.ResolutionResolved {
		now := time.Now()
		result.ResolvedAt = &now
	}
	result.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) CreateEmbeddings(records []models.EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range records {
		s.embedID++
		records[i].ID = s.embedID
		records[i].CreatedAt = time.Now()
		s.embeddings[records[i].LogID] = append(s.embeddings[records[i].LogID], records[i])
	}
	return nil
}

func (s *MemoryStore) ListEmbeddingsByLogID(logID uint) ([]models.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]models.EmbeddingRecord, len(s.embeddings[logID]))
	copy(records, s.embeddings[logID])
	return records, nil
}

func (s *MemoryStore) CreateActivity(activity *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activityID++
	activity.ID = s.activityID
	activity.CreatedAt = time.Now()
	s.activities = append(s.activities, *activity)
	return nil
}

func (s *MemoryStore) ListRecentActivities(limit int) ([]models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Activity, 0, limit)
	for i := len(s.activities) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.activities[i])
	}
	return out, nil
}

func (s *MemoryStore) CreateUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID++
	user.ID = s.userID
	user.CreatedAt = time.Now()
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *MemoryStore) GetUser(id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *MemoryStore) GetUserByEmail(email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetStats() (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &Stats{AvgResolutionTime: "0h"}

	analyzed := make(map[uint]bool)
	var resolved []models.AnalysisResult
	for _, result := range s.analyses {
		analyzed[result.LogID] = true
		if result.ResolutionStatus == models.ResolutionResolved {
			stats.IssuesResolved++
			resolved = append(resolved, *result)
		} else {
			stats.PendingIssues += int64(len(result.Issues))
		}
	}
	stats.AnalyzedLogs = int64(len(analyzed))
	stats.AvgResolutionTime = formatAvgResolution(resolved)
	return stats, nil
}
