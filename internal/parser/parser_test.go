package parser

import (
	"strings"
	"testing"
)

func TestParseLineStandardFormat(t *testing.T) {
	seg, ok := ParseLine("2024-01-15T10:30:00.123Z ERROR [RRC] Connection setup failure on cell 42")
	if !ok {
		t.Fatal("expected line to match a recognizer")
	}
	if seg.Timestamp != "2024-01-15T10:30:00.123Z" {
		t.Errorf("unexpected timestamp: %q", seg.Timestamp)
	}
	if seg.Level != "ERROR" {
		t.Errorf("unexpected level: %q", seg.Level)
	}
	if seg.Component != "RRC" {
		t.Errorf("unexpected component: %q", seg.Component)
	}
	if seg.Message != "Connection setup failure on cell 42" {
		t.Errorf("unexpected message: %q", seg.Message)
	}
}

func TestParseLineCiscoFormat(t *testing.T) {
	seg, ok := ParseLine("Jan 15 10:30:00 RTR1: %LINK-3: Interface GigabitEthernet0/1 down")
	if !ok {
		t.Fatal("expected Cisco line to match")
	}
	if seg.Timestamp != "Jan 15 10:30:00" {
		t.Errorf("unexpected timestamp: %q", seg.Timestamp)
	}
	if seg.Level != "RTR1" {
		t.Errorf("unexpected facility: %q", seg.Level)
	}
	if seg.Component != "LINK-3" {
		t.Errorf("unexpected message code: %q", seg.Component)
	}
	if seg.Message != "Interface GigabitEthernet0/1 down" {
		t.Errorf("unexpected message: %q", seg.Message)
	}
}

func TestParseLineNokiaFormat(t *testing.T) {
	seg, ok := ParseLine("2024/01/15 10:30:00 MAJOR [BTS-CTRL] Cell outage detected")
	if !ok {
		t.Fatal("expected Nokia line to match")
	}
	if seg.Timestamp != "2024/01/15 10:30:00" {
		t.Errorf("unexpected timestamp: %q", seg.Timestamp)
	}
	if seg.Component != "BTS-CTRL" {
		t.Errorf("unexpected module: %q", seg.Component)
	}
}

func TestParseLineUnmatched(t *testing.T) {
	line := "this is not a telecom log line"
	seg, ok := ParseLine(line)
	if ok {
		t.Fatal("expected no recognizer to match")
	}
	if seg.Timestamp != "" || seg.Level != "" || seg.Component != "" {
		t.Errorf("expected empty structured fields, got %+v", seg)
	}
	if seg.Message != line || seg.Text != line {
		t.Errorf("expected raw line carried through, got %+v", seg)
	}
}

func TestFormatPriorityTieBreak(t *testing.T) {
	// Matches both the standard and the Huawei pattern; the table order must
	// resolve the tie in favor of standard.
	name, ok := RecognizeFormat("2024-01-15T10:30:00 INFO [NE40] Board temperature normal")
	if !ok {
		t.Fatal("expected line to match")
	}
	if name != "standard" {
		t.Errorf("expected standard to win the tie-break, got %q", name)
	}

	// Matches both Nokia and (without the bracketed module) nothing earlier.
	name, ok = RecognizeFormat("2024/01/15 10:30:00 MINOR [IPA-RNC] Link degraded")
	if !ok {
		t.Fatal("expected line to match")
	}
	if name != "nokia" {
		t.Errorf("expected nokia, got %q", name)
	}
}

func TestParseLogMixedVendors(t *testing.T) {
	content := strings.Join([]string{
		"Jan 15 10:30:00 RTR1: %LINK-3: Interface down",
		"2024/01/15 10:31:00 MAJOR [BTS-CTRL] Cell outage detected",
		"free text without any timestamp",
	}, "\n")

	segments := ParseLog(content)
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	if segments[0].Timestamp == "" || segments[1].Timestamp == "" {
		t.Error("expected vendor lines to carry timestamps")
	}
	last := segments[2]
	if last.Timestamp != "" || last.Level != "" || last.Component != "" {
		t.Errorf("expected unmatched line to have empty structured fields, got %+v", last)
	}
	if last.Message != "free text without any timestamp" {
		t.Errorf("unexpected message: %q", last.Message)
	}
}

func TestParseLogSkipsBlankLines(t *testing.T) {
	segments := ParseLog("\n\n2024-01-15 10:30:00 INFO started\n\n")
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
}

func TestIsValidTelecomLogBoundary(t *testing.T) {
	matching := "2024-01-15 10:30:00 INFO node up"
	plain := "just some prose"

	// 2 of 5 matching lines: below half, rejected.
	rejected := strings.Join([]string{matching, matching, plain, plain, plain}, "\n")
	if IsValidTelecomLog(rejected, 5) {
		t.Error("expected 2/5 matching sample to be rejected")
	}

	// 3 of 5: at least half, accepted.
	accepted := strings.Join([]string{matching, matching, matching, plain, plain}, "\n")
	if !IsValidTelecomLog(accepted, 5) {
		t.Error("expected 3/5 matching sample to be accepted")
	}
}

func TestIsValidTelecomLogEmpty(t *testing.T) {
	if IsValidTelecomLog("", 5) {
		t.Error("expected empty content to be rejected")
	}
	if IsValidTelecomLog("\n\n\n", 5) {
		t.Error("expected blank content to be rejected")
	}
}

func TestSegmentForEmbeddingReassembles(t *testing.T) {
	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, strings.Repeat("x", 30+i))
	}
	content := strings.Join(lines, "\n")

	chunks := SegmentForEmbedding(content, 128)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	rejoined := strings.Split(strings.Join(chunks, "\n"), "\n")
	if len(rejoined) != len(lines) {
		t.Fatalf("expected %d lines after reassembly, got %d", len(lines), len(rejoined))
	}
	for i := range lines {
		if rejoined[i] != lines[i] {
			t.Fatalf("line %d changed after chunking", i)
		}
	}
}

func TestSegmentForEmbeddingChunkBound(t *testing.T) {
	lines := []string{
		strings.Repeat("a", 100),
		strings.Repeat("b", 100),
		strings.Repeat("c", 100),
	}
	chunks := SegmentForEmbedding(strings.Join(lines, "\n"), 250)
	for _, chunk := range chunks {
		for _, line := range strings.Split(chunk, "\n") {
			if len(line) != 100 {
				t.Errorf("chunk split a line: got length %d", len(line))
			}
		}
	}
	// First two lines fit in 250, third starts a new chunk.
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
}

func TestSegmentForEmbeddingOversizedLine(t *testing.T) {
	long := strings.Repeat("z", 900)
	chunks := SegmentForEmbedding("short\n"+long+"\nshort again", 512)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[1] != long {
		t.Error("expected oversized line to form its own unsplit chunk")
	}
}

func TestExtractTimestampsOmitsUnmatched(t *testing.T) {
	content := strings.Join([]string{
		"2024-01-15 10:30:00 INFO node up",
		"no timestamp here",
		"2024/01/15 10:31:00 MAJOR [BTS] outage",
	}, "\n")

	ts := ExtractTimestamps(content)
	if len(ts) != 2 {
		t.Fatalf("expected 2 timestamped lines, got %d", len(ts))
	}
	if ts[0].Timestamp != "2024-01-15 10:30:00" {
		t.Errorf("unexpected first timestamp: %q", ts[0].Timestamp)
	}
	if ts[1].Timestamp != "2024/01/15 10:31:00" {
		t.Errorf("unexpected second timestamp: %q", ts[1].Timestamp)
	}
}
