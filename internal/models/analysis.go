package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// severityRank orders severities for comparisons; unknown values rank lowest.
func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// MaxSeverity returns the higher of two severities.
func MaxSeverity(a, b Severity) Severity {
	if severityRank(b) > severityRank(a) {
		return b
	}
	return a
}

// NormalizeSeverity maps arbitrary LLM-produced severity strings onto the
// closed enum, defaulting to medium.
func NormalizeSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "minor", "info":
		return SeverityLow
	case "medium", "moderate":
		return SeverityMedium
	case "high", "major", "critical", "fatal":
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

type IssueStatus string

const (
	IssuePending    IssueStatus = "pending"
	IssueInProgress IssueStatus = "in_progress"
	IssueFixed      IssueStatus = "fixed"
)

// NormalizeIssueStatus defaults unknown values to pending.
func NormalizeIssueStatus(s string) IssueStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in_progress", "in-progress", "open":
		return IssueInProgress
	case "fixed", "resolved", "closed":
		return IssueFixed
	default:
		return IssuePending
	}
}

type RecommendationCategory string

const (
	CategoryConfiguration  RecommendationCategory = "configuration"
	CategoryMonitoring     RecommendationCategory = "monitoring"
	CategoryAuthentication RecommendationCategory = "authentication"
	CategoryNetwork        RecommendationCategory = "network"
	CategoryOther          RecommendationCategory = "other"
)

// NormalizeCategory defaults unknown values to other.
func NormalizeCategory(s string) RecommendationCategory {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "configuration", "config":
		return CategoryConfiguration
	case "monitoring":
		return CategoryMonitoring
	case "authentication", "auth", "security":
		return CategoryAuthentication
	case "network", "connectivity":
		return CategoryNetwork
	default:
		return CategoryOther
	}
}

type Issue struct {
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Severity        Severity    `json:"severity"`
	FirstOccurrence string      `json:"firstOccurrence,omitempty"`
	Status          IssueStatus `json:"status"`
}

type Recommendation struct {
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	Category     RecommendationCategory `json:"category"`
	AutoResolved bool                   `json:"autoResolved"`
	DocLink      string                 `json:"docLink,omitempty"`
}

type IssueList []Issue

func (l IssueList) Value() (driver.Value, error) {
	if l == nil {
		l = IssueList{}
	}
	return json.Marshal(l)
}

func (l *IssueList) Scan(value interface{}) error {
	if value == nil {
		*l = IssueList{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("unsupported type for IssueList: %T", value)
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, l)
}

type RecommendationList []Recommendation

func (l RecommendationList) Value() (driver.Value, error) {
	if l == nil {
		l = RecommendationList{}
	}
	return json.Marshal(l)
}

func (l *RecommendationList) Scan(value interface{}) error {
	if value == nil {
		*l = RecommendationList{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("unsupported type for RecommendationList: %T", value)
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, l)
}

type ResolutionStatus string

const (
	ResolutionPending    ResolutionStatus = "pending"
	ResolutionInProgress ResolutionStatus = "in_progress"
	ResolutionResolved   ResolutionStatus = "resolved"
)

// ValidResolutionStatus reports whether s is one of the allowed values.
func ValidResolutionStatus(s string) bool {
	switch ResolutionStatus(s) {
	case ResolutionPending, ResolutionInProgress, ResolutionResolved:
		return true
	}
	return false
}

// AnalysisResult holds one analysis of a log. A log may be re-analyzed,
// producing a new row; the latest row wins. Severity is never lower than the
// highest severity among the issues.
type AnalysisResult struct {
	ID               uint               `json:"id" gorm:"primaryKey"`
	LogID            uint               `json:"logId" gorm:"not null;index"`
	Issues           IssueList          `json:"issues" gorm:"type:jsonb"`
	Recommendations  RecommendationList `json:"recommendations" gorm:"type:jsonb"`
	Severity         Severity           `json:"severity"`
	Summary          string             `json:"summary" gorm:"type:text"`
	ResolutionStatus ResolutionStatus   `json:"resolutionStatus" gorm:"default:'pending'"`
	ResolvedAt       *time.Time         `json:"resolvedAt,omitempty"`
	AnalyzedAt       time.Time          `json:"analyzedAt" gorm:"autoCreateTime"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt     `json:"-" gorm:"index"`
}

func (AnalysisResult) TableName() string {
	return "analysis_results"
}
