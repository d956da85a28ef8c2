package models

import "testing"

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"low", SeverityLow},
		{"LOW", SeverityLow},
		{"minor", SeverityLow},
		{"medium", SeverityMedium},
		{"high", SeverityHigh},
		{"CRITICAL", SeverityHigh},
		{"fatal", SeverityHigh},
		{" high ", SeverityHigh},
		{"", SeverityMedium},
		{"catastrophic", SeverityMedium},
	}
	for _, tt := range tests {
		if got := NormalizeSeverity(tt.in); got != tt.want {
			t.Errorf("NormalizeSeverity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaxSeverity(t *testing.T) {
	if got := MaxSeverity(SeverityLow, SeverityHigh); got != SeverityHigh {
		t.Errorf("MaxSeverity(low, high) = %q", got)
	}
	if got := MaxSeverity(SeverityHigh, SeverityMedium); got != SeverityHigh {
		t.Errorf("MaxSeverity(high, medium) = %q", got)
	}
	if got := MaxSeverity(SeverityMedium, SeverityMedium); got != SeverityMedium {
		t.Errorf("MaxSeverity(medium, medium) = %q", got)
	}
	// Unknown values never win.
	if got := MaxSeverity(Severity("bogus"), SeverityLow); got != SeverityLow {
		t.Errorf("MaxSeverity(bogus, low) = %q", got)
	}
}

func TestNormalizeIssueStatus(t *testing.T) {
	tests := []struct {
		in   string
		want IssueStatus
	}{
		{"pending", IssuePending},
		{"open", IssueInProgress},
		{"in-progress", IssueInProgress},
		{"resolved", IssueFixed},
		{"fixed", IssueFixed},
		{"???", IssuePending},
	}
	for _, tt := range tests {
		if got := NormalizeIssueStatus(tt.in); got != tt.want {
			t.Errorf("NormalizeIssueStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in   string
		want RecommendationCategory
	}{
		{"configuration", CategoryConfiguration},
		{"config", CategoryConfiguration},
		{"auth", CategoryAuthentication},
		{"security", CategoryAuthentication},
		{"connectivity", CategoryNetwork},
		{"hardware", CategoryOther},
	}
	for _, tt := range tests {
		if got := NormalizeCategory(tt.in); got != tt.want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProcessingStatusIsTerminal(t *testing.T) {
	terminal := []ProcessingStatus{StatusCompleted, StatusCompletedWithoutVectors, StatusError}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%q should be terminal", s)
		}
	}
	for _, s := range []ProcessingStatus{StatusPending, StatusProcessing} {
		if s.IsTerminal() {
			t.Errorf("%q should not be terminal", s)
		}
	}
}

func TestEmbeddingRecordIsPlaceholder(t *testing.T) {
	if !(EmbeddingRecord{VectorID: "local-9f3c"}).IsPlaceholder() {
		t.Error("local- prefixed ids are placeholders")
	}
	if (EmbeddingRecord{VectorID: "450128374650"}).IsPlaceholder() {
		t.Error("store-assigned ids are not placeholders")
	}
}

func TestIssueListRoundTrip(t *testing.T) {
	issues := IssueList{{Title: "Recurring error events", Severity: SeverityHigh, Status: IssuePending}}
	value, err := issues.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned IssueList
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(scanned) != 1 || scanned[0].Title != "Recurring error events" {
		t.Errorf("round trip lost data: %+v", scanned)
	}

	var fromNil IssueList
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if fromNil == nil || len(fromNil) != 0 {
		t.Errorf("Scan(nil) should yield an empty list, got %+v", fromNil)
	}
}
