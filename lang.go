package main

import (
	"github.com/pemistahl/lingua-go"
)

const englishConfidenceFloor = 0.80

// LanguageChecker double-checks declared review languages. Store metadata
// regularly tags reviews with the device locale while the text itself is
// English; detecting that up front saves a translation call.
type LanguageChecker struct {
	detector lingua.LanguageDetector
}

func NewLanguageChecker() *LanguageChecker {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllSpokenLanguages().
		WithLowAccuracyMode().
		Build()
	return &LanguageChecker{detector: detector}
}

// LooksEnglish reports whether the text is confidently English. A nil
// checker always answers false, so the caller falls back to the declared
// language alone.
func (c *LanguageChecker) LooksEnglish(text string) bool {
	if c == nil {
		return false
	}
	lang, ok := c.detector.DetectLanguageOf(text)
	if !ok || lang != lingua.English {
		return false
	}
	return c.detector.ComputeLanguageConfidence(text, lingua.English) >= englishConfidenceFloor
}
