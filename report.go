package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// GroupReviews fans each review out into the bucket of every token in its
// classification. Tokens outside both the closed vocabulary and the entity
// heuristic are logged and dropped; the review still counts under its other
// valid tokens.
func GroupReviews(reviews []Review, vocab *Vocabulary) GroupedReport {
	grouped := make(GroupedReport)
	log.Printf("grouping classifications reviews=%d", len(reviews))

	for _, rv := range reviews {
		entry := ReviewEntry{
			Device:     rv.Device,
			Version:    rv.AppVersion,
			Package:    rv.PackageName,
			Rating:     rv.Rating,
			Language:   rv.Language,
			Text:       rv.Text,
			Translated: rv.Translated,
			Link:       rv.Link,
		}
		for _, token := range SplitClassification(rv.Classification) {
			if !vocab.IsKnownCategory(token) && !IsEntityToken(token) {
				log.Printf("grouping unknown category token=%q", token)
				continue
			}
			grouped[token] = append(grouped[token], entry)
		}
	}

	for category, entries := range grouped {
		log.Printf("grouping category=%s reviews=%d", category, len(entries))
	}
	return grouped
}

// ReportFileName is the per-window grouped-report document name, referenced
// from the matching summary entry.
func ReportFileName(w Window) string {
	return fmt.Sprintf("results-%s.json", w.Key())
}

func WriteReport(dir string, w Window, grouped GroupedReport) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(grouped, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	path := filepath.Join(dir, ReportFileName(w))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	log.Printf("report written path=%s categories=%d", path, len(grouped))
	return path, nil
}
