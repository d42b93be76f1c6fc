package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestGroupReviewsFanOut(t *testing.T) {
	vocab := DefaultVocabulary()
	reviews := []Review{
		{Device: "pixel8", Rating: 1, Text: "crashes on youtube", Classification: "Crash, YouTube"},
		{Device: "s24", Rating: 5, Text: "love it", Classification: "Satisfied"},
	}

	grouped := GroupReviews(reviews, vocab)

	if len(grouped["Crash"]) != 1 || len(grouped["YouTube"]) != 1 {
		t.Fatalf("expected the first review under both of its tokens, got %v", grouped)
	}
	if grouped["Crash"][0].Device != "pixel8" || grouped["YouTube"][0].Device != "pixel8" {
		t.Fatalf("fan-out must carry the same projection into every bucket")
	}
	if len(grouped["Satisfied"]) != 1 {
		t.Fatalf("expected one Satisfied review, got %d", len(grouped["Satisfied"]))
	}
}

func TestGroupReviewsDropsUnknownTokens(t *testing.T) {
	vocab := DefaultVocabulary()
	reviews := []Review{
		{Rating: 2, Text: "weird", Classification: "Crash, not a real category"},
	}

	grouped := GroupReviews(reviews, vocab)

	if len(grouped["Crash"]) != 1 {
		t.Fatalf("valid tokens must survive an invalid sibling, got %v", grouped)
	}
	if _, ok := grouped["not a real category"]; ok {
		t.Fatalf("unknown token must be dropped, got %v", grouped)
	}
	if len(grouped) != 1 {
		t.Fatalf("expected exactly one bucket, got %d", len(grouped))
	}
}

func TestGroupReviewsKeepsEntityTokens(t *testing.T) {
	vocab := DefaultVocabulary()
	reviews := []Review{
		// Someothersite is not enumerated anywhere; structure alone admits it.
		{Rating: 2, Text: "x", Classification: "Webcompat, Someothersite"},
	}

	grouped := GroupReviews(reviews, vocab)
	if len(grouped["Someothersite"]) != 1 {
		t.Fatalf("structurally valid entity tokens must be kept, got %v", grouped)
	}
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	w := mustWindow(t, "2024-01-01", "2024-01-07")
	translated := "very slow"
	grouped := GroupedReport{
		"Slow": {ReviewEntry{Device: "pixel8", Rating: 2, Language: "de", Text: "sehr langsam", Translated: &translated}},
	}

	path, err := WriteReport(dir, w, grouped)
	if err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	if filepath.Base(path) != "results-2024-01-01-to-2024-01-07.json" {
		t.Fatalf("unexpected report file name %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var decoded GroupedReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded["Slow"][0].Translated == nil || *decoded["Slow"][0].Translated != "very slow" {
		t.Fatalf("projection lost the translated text: %+v", decoded)
	}
}
