// Package parser recognizes telecom equipment log formats and segments raw
// log text for embedding. It is pure and stateless: no operation performs I/O
// or returns an error, the worst case for malformed input is a sparsely
// populated segment.
package parser

import (
	"regexp"
	"strings"
)

// DefaultChunkSize bounds a chunk produced for embedding, in characters.
const DefaultChunkSize = 512

// DefaultSampleSize is how many leading non-empty lines the validity gate
// inspects. A tunable heuristic, not a contract.
const DefaultSampleSize = 5

// Segment is one parsed log line. Timestamp, Level and Component are empty
// when no recognizer matched the line.
type Segment struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
	Level     string `json:"level,omitempty"`
	Component string `json:"component,omitempty"`
	Message   string `json:"message"`
}

// TimestampedLine pairs an extracted timestamp with its source line.
type TimestampedLine struct {
	Timestamp string `json:"timestamp"`
	Line      string `json:"line"`
}

// format is one vendor recognizer. The patterns are permissive and overlap,
// so the table order is a deliberate tie-break: the first match wins.
type format struct {
	name    string
	pattern *regexp.Regexp
}

// Recognizers in priority order: standard ISO, Cisco, Nokia, Huawei,
// Ericsson. Each pattern captures timestamp, level, component and message;
// level and component groups are optional. Adding a vendor format is a table
// entry, not a control-flow change.
var formats = []format{
	{
		name: "standard",
		pattern: regexp.MustCompile(
			`^(\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})?)\s+` +
				`(?:([A-Z]+)\s+)?` +
				`(?:\[([^\]]+)\]\s+)?` +
				`(.*)$`),
	},
	{
		name: "cisco",
		pattern: regexp.MustCompile(
			`^(\w+\s+\d+\s+\d{2}:\d{2}:\d{2}(?:\.\d+)?)\s+` +
				`(?:([A-Z0-9-]+):\s+)?` +
				`(?:%([A-Z0-9-]+)(?:-\d+)?:\s+)?` +
				`(.*)$`),
	},
	{
		name: "nokia",
		pattern: regexp.MustCompile(
			`^(\d{4}/\d{2}/\d{2}\s+\d{2}:\d{2}:\d{2}(?:\.\d+)?)\s+` +
				`(?:([A-Z]+)\s+)?` +
				`(?:\[(\w+(?:-\w+)*)\]\s+)?` +
				`(.*)$`),
	},
	{
		name: "huawei",
		pattern: regexp.MustCompile(
			`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?)\s+` +
				`(?:([A-Z]+)\s+)?` +
				`(?:\[([^\]]+)\]\s+)?` +
				`(.*)$`),
	},
	{
		name: "ericsson",
		pattern: regexp.MustCompile(
			`^(\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}(?:\.\d+)?)\s+` +
				`(?:(\w+)\s+)?` +
				`(?:(\w+(?:\.\w+)*)\s+)?` +
				`(.*)$`),
	},
}

// RecognizeFormat returns the name of the first recognizer matching line,
// honoring the table's priority order.
func RecognizeFormat(line string) (string, bool) {
	for _, f := range formats {
		if f.pattern.MatchString(line) {
			return f.name, true
		}
	}
	return "", false
}

// ParseLine matches a single line against the recognizer table in priority
// order. The second return value reports whether any recognizer matched.
func ParseLine(line string) (Segment, bool) {
	for _, f := range formats {
		m := f.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		return Segment{
			Text:      line,
			Timestamp: m[1],
			Level:     m[2],
			Component: m[3],
			Message:   m[4],
		}, true
	}
	return Segment{Text: line, Message: line}, false
}

// ParseLog splits content into non-empty lines and parses each one. Lines
// matching no recognizer are still emitted with only Text and Message set.
func ParseLog(content string) []Segment {
	var segments []Segment
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		seg, _ := ParseLine(line)
		segments = append(segments, seg)
	}
	return segments
}

// IsValidTelecomLog samples the first sampleSize non-empty lines and accepts
// the content when at least half of them match a recognizer. A cheap gate for
// upload time; false positives and negatives are expected.
func IsValidTelecomLog(content string, sampleSize int) bool {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	var sample []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		sample = append(sample, line)
		if len(sample) == sampleSize {
			break
		}
	}
	if len(sample) == 0 {
		return false
	}
	matches := 0
	for _, line := range sample {
		if _, ok := ParseLine(line); ok {
			matches++
		}
	}
	return matches*2 >= len(sample)
}

// SegmentForEmbedding greedily accumulates whole non-empty lines into chunks
// of at most maxChunkSize characters. A chunk is never split mid-line; a
// single line longer than maxChunkSize forms its own oversized chunk. The
// chunk boundaries are the unit of retrievable context in search, so the
// whole-line greedy policy is part of the contract.
func SegmentForEmbedding(content string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultChunkSize
	}
	var chunks []string
	var current []string
	currentLen := 0

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if currentLen+len(line) > maxChunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = current[:0]
			currentLen = 0
		}
		current = append(current, line)
		currentLen += len(line)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}

// ExtractTimestamps builds a time-ordered view of the log. Lines without a
// recognizable timestamp are omitted, unlike ParseLog which keeps them.
func ExtractTimestamps(content string) []TimestampedLine {
	var out []TimestampedLine
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if seg, ok := ParseLine(line); ok && seg.Timestamp != "" {
			out = append(out, TimestampedLine{Timestamp: seg.Timestamp, Line: line})
		}
	}
	return out
}
