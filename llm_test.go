package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func testLLMClient(call func(systemPrompt, userPrompt string) (string, LLMUsage, error)) *LLMClient {
	vocab := DefaultVocabulary()
	return &LLMClient{
		cfg: Config{
			MaxRetries:        3,
			RetryDelaySeconds: 0,
			RateLimitDelayMS:  0,
			LLMExampleCount:   6,
			AppName:           "Firefox",
		},
		vocab:    vocab,
		examples: buildExampleIndex(vocab.Examples),
		gate:     newRateGate(0),
		call:     call,
	}
}

func TestStripReasoning(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"<think>hmm, negative review</think>\nCrash, Tabs", "Crash, Tabs"},
		{"Satisfied", "Satisfied"},
		{"<think>a</think>x<think>b</think>y", "xy"},
		{"<think>only reasoning</think>", ""},
	}
	for _, c := range cases {
		if got := stripReasoning(c.in); got != c.want {
			t.Errorf("stripReasoning(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestClassifyPromptContents(t *testing.T) {
	var gotSystem, gotUser string
	client := testLLMClient(func(systemPrompt, userPrompt string) (string, LLMUsage, error) {
		gotSystem, gotUser = systemPrompt, userPrompt
		return "Satisfied", LLMUsage{}, nil
	})

	if _, err := client.Classify(context.Background(), 5, "best browser ever"); err != nil {
		t.Fatalf("Classify: %v", err)
	}

	for _, fragment := range []string{
		"Firefox",
		"Webcompat: Website functionality or rendering problems",
		"Other: Anything not covered by the above categories",
		"- YouTube (not youtube, Youtube, youtube.com)",
		"first letter capitalized, no domain extensions",
		"Examples:",
	} {
		if !strings.Contains(gotSystem, fragment) {
			t.Errorf("system prompt missing %q", fragment)
		}
	}
	if !strings.Contains(gotUser, "star rating of 5/5") {
		t.Errorf("user prompt missing rating, got %q", gotUser)
	}
	if !strings.Contains(gotUser, "best browser ever") {
		t.Errorf("user prompt missing review text, got %q", gotUser)
	}
}

func TestTranslatePromptHasNoSystemBlock(t *testing.T) {
	var gotSystem, gotUser string
	client := testLLMClient(func(systemPrompt, userPrompt string) (string, LLMUsage, error) {
		gotSystem, gotUser = systemPrompt, userPrompt
		return "translated text", LLMUsage{}, nil
	})

	out, err := client.Translate(context.Background(), "de", "en", "sehr langsam")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "translated text" {
		t.Fatalf("unexpected translation %q", out)
	}
	if gotSystem != "" {
		t.Errorf("translate should not send a system prompt, got %q", gotSystem)
	}
	if !strings.Contains(gotUser, "from de to en") || !strings.Contains(gotUser, "sehr langsam") {
		t.Errorf("unexpected translate prompt %q", gotUser)
	}
}

func TestInvokeRetriesThenSucceeds(t *testing.T) {
	calls := 0
	client := testLLMClient(func(systemPrompt, userPrompt string) (string, LLMUsage, error) {
		calls++
		if calls < 3 {
			return "", LLMUsage{}, errors.New("transient")
		}
		return "Other", LLMUsage{InputTokens: 10, OutputTokens: 2}, nil
	})

	out, err := client.Classify(context.Background(), 1, "broken")
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if out != "Other" {
		t.Fatalf("unexpected label %q", out)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if client.Usage().TotalTokens() != 12 {
		t.Fatalf("expected usage from successful call, got %d tokens", client.Usage().TotalTokens())
	}
}

func TestInvokeExhaustsRetries(t *testing.T) {
	calls := 0
	client := testLLMClient(func(systemPrompt, userPrompt string) (string, LLMUsage, error) {
		calls++
		return "", LLMUsage{}, errors.New("backend down")
	})

	_, err := client.Classify(context.Background(), 1, "broken")
	if err == nil {
		t.Fatalf("expected error after retries exhausted")
	}
	if calls != 3 {
		t.Fatalf("expected max_retries=3 attempts, got %d", calls)
	}
	if !strings.Contains(err.Error(), "backend down") {
		t.Fatalf("expected the last backend error to propagate, got %v", err)
	}
}

func TestInvokeEmptyResponseIsFailure(t *testing.T) {
	calls := 0
	client := testLLMClient(func(systemPrompt, userPrompt string) (string, LLMUsage, error) {
		calls++
		return "<think>all reasoning, no answer</think>", LLMUsage{}, nil
	})

	_, err := client.Classify(context.Background(), 2, "meh")
	if err == nil {
		t.Fatalf("expected error for empty content")
	}
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("empty responses should be retried, got %d attempts", calls)
	}
}

func TestNewLLMClientRequiresKey(t *testing.T) {
	if _, err := NewLLMClient(Config{LLMProvider: "openai", MaxRetries: 3}, DefaultVocabulary()); err == nil {
		t.Errorf("expected error without openai key")
	}
	if _, err := NewLLMClient(Config{LLMProvider: "anthropic", MaxRetries: 3}, DefaultVocabulary()); err == nil {
		t.Errorf("expected error without anthropic key")
	}
	if _, err := NewLLMClient(Config{LLMProvider: "openai", OpenAIAPIKey: "k", MaxRetries: 3}, DefaultVocabulary()); err != nil {
		t.Errorf("unexpected error with key set: %v", err)
	}
}

func TestRateGateSpacesCalls(t *testing.T) {
	gate := newRateGate(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := gate.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	// First call is immediate; the next two wait one interval each.
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("expected at least 40ms of spacing, got %s", elapsed)
	}
}

func TestRateGateZeroIntervalNeverBlocks(t *testing.T) {
	gate := newRateGate(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := gate.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("zero interval gate blocked for %s", elapsed)
	}
}

func TestRateGateHonorsCancellation(t *testing.T) {
	gate := newRateGate(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	if err := gate.Wait(ctx); err != nil {
		t.Fatalf("first Wait should pass: %v", err)
	}
	cancel()
	if err := gate.Wait(ctx); err == nil {
		t.Fatalf("expected context error for cancelled wait")
	}
}
