package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/telcolog/backend/internal/config"
	"github.com/telcolog/backend/internal/logger"
	"github.com/telcolog/backend/internal/metrics"
	"github.com/telcolog/backend/internal/models"
	"github.com/telcolog/backend/internal/parser"
)

// Error- and warning-indicating tokens scanned by the heuristic analyzer.
var (
	errorTokens   = []string{"error", "exception", "fail"}
	warningTokens = []string{"warning", "warn", "timeout"}
)

// AnalysisReport is the engine's output, already normalized onto the closed
// enums. Fallback records whether the heuristic path produced it.
type AnalysisReport struct {
	Issues          []models.Issue          `json:"issues"`
	Recommendations []models.Recommendation `json:"recommendations"`
	Summary         string                  `json:"summary"`
	Severity        models.Severity         `json:"severity"`
	Fallback        bool                    `json:"-"`
}

// AnalysisEngine wraps the text-completion endpoint with a structured-output
// contract. Analyze never fails: any backend or parsing problem falls back to
// the deterministic heuristic analyzer, which has no external dependency.
type AnalysisEngine struct {
	url         string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
	health      *HealthState
	thresholds  config.AnalysisConfig
}

type completionRequest struct {
	Model       string  `json:"model,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type completionResponse struct {
	Text string `json:"text"`
}

// llmAnalysis is the loosely-typed shape the model returns; its enum fields
// are normalized at this boundary and never stored raw.
type llmAnalysis struct {
	Issues []struct {
		Title           string `json:"title"`
		Description     string `json:"description"`
		Severity        string `json:"severity"`
		FirstOccurrence string `json:"firstOccurrence"`
		Status          string `json:"status"`
	} `json:"issues"`
	Recommendations []struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		Category     string `json:"category"`
		AutoResolved bool   `json:"autoResolved"`
		DocLink      string `json:"docLink"`
	} `json:"recommendations"`
	Summary  string `json:"summary"`
	Severity string `json:"severity"`
}

func NewAnalysisEngine(llmCfg *config.LLMConfig, analysisCfg config.AnalysisConfig) *AnalysisEngine {
	return &AnalysisEngine{
		url:         llmCfg.URL,
		model:       llmCfg.Model,
		maxTokens:   llmCfg.MaxTokens,
		temperature: llmCfg.Temperature,
		client:      &http.Client{Timeout: llmCfg.Timeout},
		health:      NewHealthState(llmCfg.ProbeCooldown),
		thresholds:  analysisCfg,
	}
}

// Analyze produces a structured analysis of logContent. It always succeeds.
func (ae *AnalysisEngine) Analyze(ctx context.Context, logContent string) *AnalysisReport {
	if ae.health.ShouldAttempt() {
		report, err := ae.analyzeWithLLM(ctx, logContent)
		if err == nil {
			ae.health.MarkHealthy()
			return report
		}
		logger.WithBackend("llm").WithField("error", err.Error()).
			Warn("LLM analysis failed, using heuristic analyzer")
		ae.health.MarkDegraded()
	}
	metrics.AnalysisFallbacks.Inc()
	return ae.heuristicAnalysis(logContent)
}

// Degraded reports whether the engine is currently serving heuristic results.
func (ae *AnalysisEngine) Degraded() bool {
	return ae.health.Degraded()
}

// SemanticSearch synthesizes a short answer from retrieved segments. On any
// failure it returns a templated fallback so the caller always gets an
// answer.
func (ae *AnalysisEngine) SemanticSearch(ctx context.Context, query string, segments []string) string {
	if ae.health.ShouldAttempt() {
		answer, err := ae.complete(ctx, buildSearchPrompt(query, segments))
		if err == nil {
			ae.health.MarkHealthy()
			return strings.TrimSpace(answer)
		}
		logger.WithBackend("llm").WithField("error", err.Error()).
			Warn("semantic search synthesis failed, using templated answer")
		ae.health.MarkDegraded()
	}
	return fmt.Sprintf("Found %d log segments matching %q. Semantic synthesis is currently unavailable.",
		len(segments), query)
}

func (ae *AnalysisEngine) analyzeWithLLM(ctx context.Context, logContent string) (*AnalysisReport, error) {
	response, err := ae.complete(ctx, buildAnalysisPrompt(logContent))
	if err != nil {
		return nil, err
	}

	raw, ok := extractJSONObject(response)
	if !ok {
		return nil, fmt.Errorf("no JSON object found in LLM response")
	}

	var parsed llmAnalysis
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse LLM JSON: %w", err)
	}

	report := &AnalysisReport{
		Issues:          make([]models.Issue, 0, len(parsed.Issues)),
		Recommendations: make([]models.Recommendation, 0, len(parsed.Recommendations)),
		Summary:         strings.TrimSpace(parsed.Summary),
		Severity:        models.NormalizeSeverity(parsed.Severity),
	}
	for _, issue := range parsed.Issues {
		report.Issues = append(report.Issues, models.Issue{
			Title:           issue.Title,
			Description:     issue.Description,
			Severity:        models.NormalizeSeverity(issue.Severity),
			FirstOccurrence: issue.FirstOccurrence,
			Status:          models.NormalizeIssueStatus(issue.Status),
		})
	}
	for _, rec := range parsed.Recommendations {
		report.Recommendations = append(report.Recommendations, models.Recommendation{
			Title:        rec.Title,
			Description:  rec.Description,
			Category:     models.NormalizeCategory(rec.Category),
			AutoResolved: rec.AutoResolved,
			DocLink:      rec.DocLink,
		})
	}

	// Safe defaults for missing optional fields rather than rejecting the
	// whole result.
	if report.Summary == "" {
		report.Summary = "Analysis completed; no summary was generated."
	}
	// The overall severity is never lower than the highest issue severity.
	for _, issue := range report.Issues {
		report.Severity = models.MaxSeverity(report.Severity, issue.Severity)
	}
	return report, nil
}

func (ae *AnalysisEngine) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:       ae.model,
		Prompt:      prompt,
		MaxTokens:   ae.maxTokens,
		Temperature: ae.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ae.url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ae.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("completion endpoint returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	return result.Text, nil
}

// extractJSONObject locates the first balanced JSON object embedded in text.
// The model may wrap JSON in prose or markdown code fences; brace counting
// skips braces inside string literals.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// heuristicAnalysis is the deterministic fallback: count error- and
// warning-indicating tokens and map the counts onto a severity. It always
// succeeds and has no external dependency.
func (ae *AnalysisEngine) heuristicAnalysis(logContent string) *AnalysisReport {
	lowered := strings.ToLower(logContent)
	errorCount := countTokens(lowered, errorTokens)
	warningCount := countTokens(lowered, warningTokens)

	severity := models.SeverityLow
	switch {
	case errorCount > ae.thresholds.HighErrorThreshold:
		severity = models.SeverityHigh
	case errorCount > ae.thresholds.MediumErrorThreshold,
		warningCount > ae.thresholds.MediumWarningThreshold:
		severity = models.SeverityMedium
	}

	firstOccurrence := ""
	if ts := parser.ExtractTimestamps(logContent); len(ts) > 0 {
		firstOccurrence = ts[0].Timestamp
	}

	report := &AnalysisReport{
		Severity: severity,
		Summary: fmt.Sprintf(
			"Heuristic analysis found %d error indicators and %d warning indicators. Overall severity: %s.",
			errorCount, warningCount, severity),
		Fallback: true,
	}

	if errorCount > 0 {
		report.Issues = append(report.Issues, models.Issue{
			Title:           "Recurring error events",
			Description:     fmt.Sprintf("The log contains %d error-indicating entries that may point to equipment or connectivity faults.", errorCount),
			Severity:        severity,
			FirstOccurrence: firstOccurrence,
			Status:          models.IssuePending,
		})
	}
	if warningCount > 0 {
		report.Issues = append(report.Issues, models.Issue{
			Title:           "Elevated warning volume",
			Description:     fmt.Sprintf("The log contains %d warning-indicating entries, including possible timeouts.", warningCount),
			Severity:        models.SeverityLow,
			FirstOccurrence: firstOccurrence,
			Status:          models.IssuePending,
		})
	}
	if len(report.Issues) == 0 {
		report.Issues = append(report.Issues, models.Issue{
			Title:       "No significant issues detected",
			Description: "No error or warning indicators were found in the log.",
			Severity:    models.SeverityLow,
			Status:      models.IssueFixed,
		})
	}

	report.Recommendations = append(report.Recommendations,
		models.Recommendation{
			Title:       "Review device configuration",
			Description: "Verify the configuration of the affected equipment against the vendor baseline.",
			Category:    models.CategoryConfiguration,
		},
		models.Recommendation{
			Title:       "Increase monitoring coverage",
			Description: "Add alerting on the recurring patterns found in this log to catch regressions earlier.",
			Category:    models.CategoryMonitoring,
		},
	)

	// Keep the invariant in the fallback path too.
	for _, issue := range report.Issues {
		report.Severity = models.MaxSeverity(report.Severity, issue.Severity)
	}
	return report
}

func countTokens(lowered string, tokens []string) int {
	count := 0
	for _, token := range tokens {
		count += strings.Count(lowered, token)
	}
	return count
}
