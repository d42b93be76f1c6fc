package main

import (
	"context"
	"fmt"
	"log"
)

// RunDeps carries the pipeline's external collaborators so runs are wired
// the same way from the CLI, the scheduler and tests.
type RunDeps struct {
	Source      ReviewSource
	SummaryPath string

	// NewGateway is only invoked when the classification stage actually has
	// to run; a fully checkpointed window never needs model credentials.
	NewGateway func(cfg Config, vocab *Vocabulary) (ModelGateway, error)

	// Checker may be nil to disable the pre-translation language check.
	Checker *LanguageChecker
}

// ResolveWindow enforces the both-or-neither contract on explicit window
// flags and otherwise derives the next window from the summary log.
func ResolveWindow(startDate, endDate string, entries []SummaryEntry) (Window, error) {
	switch {
	case startDate == "" && endDate == "":
		return NextWindow(entries)
	case startDate != "" && endDate != "":
		return ParseWindow(startDate, endDate)
	default:
		return Window{}, fmt.Errorf("--startDate and --endDate must be supplied together (or neither)")
	}
}

// RunWindow processes one window end to end: ingest, validate, classify,
// group, report, summarize. Stages with an existing checkpoint are skipped
// and their artifact loaded instead, so re-running a finished window never
// re-invokes the model.
func RunWindow(ctx context.Context, cfg Config, w Window, deps RunDeps) error {
	entries, err := LoadSummaryLog(deps.SummaryPath)
	if err != nil {
		return err
	}
	if err := CheckWindowUnprocessed(entries, w); err != nil {
		return err
	}

	vocab, err := LoadVocabulary(cfg.VocabularyPath)
	if err != nil {
		return err
	}

	store, err := OpenCheckpointStore(cfg.CheckpointDBPath)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer store.Close()

	log.Printf("run window=%s", w)

	// Stage 1: validated reviews.
	reviews, ok, err := store.Load(w, StageReviews)
	if err != nil {
		return err
	}
	if ok {
		log.Printf("checkpoint hit window=%s stage=%s reviews=%d", w.Key(), StageReviews, len(reviews))
	} else {
		raw, err := deps.Source.Fetch(w.Start, w.End)
		if err != nil {
			return fmt.Errorf("fetch reviews: %w", err)
		}
		if len(raw.Reviews) == 0 {
			log.Printf("no reviews to process window=%s", w)
			return nil
		}
		reviews, err = ValidateReviews(raw)
		if err != nil {
			return err
		}
		if len(reviews) == 0 {
			log.Printf("no valid reviews remaining window=%s", w)
			return nil
		}
		if err := ValidateDateRange(reviews, w); err != nil {
			return err
		}
		if err := store.Save(w, StageReviews, reviews); err != nil {
			return err
		}
		log.Printf("checkpoint saved window=%s stage=%s reviews=%d", w.Key(), StageReviews, len(reviews))
	}

	// Stage 2: classified reviews.
	classified, ok, err := store.Load(w, StageClassify)
	if err != nil {
		return err
	}
	if ok {
		log.Printf("checkpoint hit window=%s stage=%s reviews=%d", w.Key(), StageClassify, len(classified))
	} else {
		gateway, err := deps.NewGateway(cfg, vocab)
		if err != nil {
			return fmt.Errorf("init model gateway: %w", err)
		}
		detector := NewEntityDetector(vocab.EntityRules)
		classified = ClassifyReviews(ctx, reviews, gateway, detector, deps.Checker, vocab)
		if client, isClient := gateway.(*LLMClient); isClient {
			usage := client.Usage()
			log.Printf("llm usage window=%s tokens_in=%d tokens_out=%d cache_create=%d cache_read=%d",
				w.Key(), usage.InputTokens, usage.OutputTokens, usage.CacheCreationInputTokens, usage.CacheReadInputTokens)
		}
		if err := store.Save(w, StageClassify, classified); err != nil {
			return err
		}
		log.Printf("checkpoint saved window=%s stage=%s reviews=%d", w.Key(), StageClassify, len(classified))
	}

	// Aggregate and publish.
	grouped := GroupReviews(classified, vocab)
	reportPath, err := WriteReport(cfg.ResultsDir, w, grouped)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	entry := BuildSummaryEntry(classified, grouped, w)
	entries = append(entries, entry)
	if err := SaveSummaryLog(deps.SummaryPath, entries); err != nil {
		return fmt.Errorf("save summary log: %w", err)
	}

	log.Printf("run complete window=%s report=%s", w, reportPath)
	NotifySummary(cfg, entry)
	return nil
}
