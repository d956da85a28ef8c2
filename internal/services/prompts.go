package services

import (
	"fmt"
	"strings"
)

const (
	maxAnalysisPromptChars = 4000
	maxSearchContextChars  = 5000
)

// buildAnalysisPrompt asks the model for a JSON object with exactly the four
// top-level fields the analysis schema requires. The log content is truncated
// to keep the prompt bounded.
func buildAnalysisPrompt(logContent string) string {
	content := logContent
	if len(content) > maxAnalysisPromptChars {
		content = content[:maxAnalysisPromptChars] + "\n... (truncated)"
	}

	return fmt.Sprintf(`You are an expert telecom network engineer analyzing equipment log files.

Analyze the following log content and identify issues and recommendations.

LOG CONTENT:
%s

Respond with a single JSON object with exactly these four top-level fields:

{
  "issues": [
    {
      "title": "Short issue title",
      "description": "What is failing and why it matters",
      "severity": "low|medium|high",
      "firstOccurrence": "timestamp string from the log, if identifiable",
      "status": "pending"
    }
  ],
  "recommendations": [
    {
      "title": "Short recommendation title",
      "description": "Concrete corrective or preventive action",
      "category": "configuration|monitoring|authentication|network|other",
      "autoResolved": false,
      "docLink": ""
    }
  ],
  "summary": "2-3 sentence summary of the overall health of this equipment",
  "severity": "low|medium|high"
}

REQUIREMENTS:
1. severity must never be lower than the highest issue severity
2. Use only the listed enum values
3. Output valid JSON only, no prose around it`, content)
}

// buildSearchPrompt asks the model to synthesize an answer grounded in the
// retrieved segments.
func buildSearchPrompt(query string, segments []string) string {
	context := strings.Join(segments, "\n\n")
	if len(context) > maxSearchContextChars {
		context = context[:maxSearchContextChars] + "\n... (truncated)"
	}

	return fmt.Sprintf(`You are a telecom log search assistant. Answer the question using only the log excerpts below.

QUESTION: %s

LOG EXCERPTS:
%s

Give a short natural-language answer grounded in the excerpts. If the excerpts do not contain the answer, say so.`, query, context)
}
