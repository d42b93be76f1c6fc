package main

import (
	"context"
	"log"
)

// ClassifyReviews drives the per-review translate -> classify -> reconcile
// sequence over the batch, strictly in order, one review at a time. Every
// review comes out with a non-empty classification: translation failures
// fall back to the original text, classification failures fall back to
// "Other". The input slice is returned enriched; no review is ever dropped
// here.
func ClassifyReviews(ctx context.Context, reviews []Review, gateway ModelGateway, detector *EntityDetector, checker *LanguageChecker, vocab *Vocabulary) []Review {
	total := len(reviews)
	log.Printf("classification start reviews=%d", total)

	for i := range reviews {
		if (i+1)%10 == 0 || i == 0 {
			log.Printf("classification progress %d/%d (%.1f%%)", i+1, total, float64(i+1)/float64(total)*100)
		}

		rv := &reviews[i]
		text := rv.Text

		if rv.Language != "en" {
			if checker.LooksEnglish(rv.Text) {
				log.Printf("translation skipped review=%d lang=%s text already English", i, rv.Language)
			} else {
				translated, err := gateway.Translate(ctx, rv.Language, "en", rv.Text)
				if err != nil {
					// Non-fatal for the record: classify the original text.
					log.Printf("translation failed review=%d lang=%s err=%v", i, rv.Language, err)
				} else {
					rv.Translated = &translated
					text = translated
				}
			}
		}

		classification, err := gateway.Classify(ctx, rv.Rating, text)
		if err != nil {
			log.Printf("classification failed review=%d err=%v", i, err)
			rv.Classification = FallbackCategory
			continue
		}

		// Reconcile against the raw original text, not the translation.
		classification = detector.Enhance(classification, rv.Text)
		if classification == "" {
			classification = FallbackCategory
		}
		ValidateClassification(classification, vocab)
		ValidateClassificationLogic(rv.Rating, classification, vocab)
		rv.Classification = classification
	}

	log.Printf("classification done reviews=%d", total)
	return reviews
}
