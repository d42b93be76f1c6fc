package main

import (
	"strings"
	"testing"
)

func TestFormatSummaryMessage(t *testing.T) {
	entry := SummaryEntry{
		StartDate:     "2024-01-01",
		EndDate:       "2024-01-07",
		File:          "results-2024-01-01-to-2024-01-07.json",
		PositiveCount: 4,
		NegativeCount: 9,
		Categories: map[string]int{
			"Crash":     5,
			"Slow":      5,
			"Satisfied": 4,
			"YouTube":   3,
			"Battery":   2,
			"UI":        1,
			"Other":     1,
		},
	}

	msg := FormatSummaryMessage(entry)
	lines := strings.Split(msg, "\n")

	if !strings.Contains(lines[0], "2024-01-01 -> 2024-01-07") {
		t.Fatalf("header missing window: %q", lines[0])
	}
	if !strings.Contains(lines[0], "4 positive, 9 negative") {
		t.Fatalf("header missing counts: %q", lines[0])
	}
	// Top five categories, count descending with name as tiebreak.
	want := []string{"• Crash: 5", "• Slow: 5", "• Satisfied: 4", "• YouTube: 3", "• Battery: 2"}
	if len(lines) != 1+len(want) {
		t.Fatalf("expected %d lines, got %d: %q", 1+len(want), len(lines), msg)
	}
	for i, line := range want {
		if lines[i+1] != line {
			t.Fatalf("line %d: got %q want %q", i+1, lines[i+1], line)
		}
	}
}

func TestFormatSummaryMessageNoCategories(t *testing.T) {
	entry := SummaryEntry{StartDate: "2024-01-01", EndDate: "2024-01-07"}
	msg := FormatSummaryMessage(entry)
	if strings.Contains(msg, "\n") {
		t.Fatalf("expected single-line message, got %q", msg)
	}
}
