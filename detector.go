package main

import (
	"log"
	"regexp"
	"strings"
)

// EntityDetector finds known-website mentions in raw review text. It exists
// to backfill entity tokens the model tends to omit from its classification.
type EntityDetector struct {
	patterns []entityPattern
}

type entityPattern struct {
	canonical string
	re        *regexp.Regexp
}

// NewEntityDetector compiles one case-insensitive, word-bounded pattern per
// canonical entity from its surface variants. "youtube" in "my youtube feed"
// matches; "reddit" inside "shredditor" does not.
func NewEntityDetector(rules []EntityRule) *EntityDetector {
	d := &EntityDetector{}
	for _, rule := range rules {
		variants := make([]string, 0, len(rule.Variants)+1)
		seen := map[string]bool{}
		for _, v := range append([]string{rule.Canonical}, rule.Variants...) {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			variants = append(variants, regexp.QuoteMeta(v))
		}
		if len(variants) == 0 {
			continue
		}
		re := regexp.MustCompile(`(?i)\b(?:` + strings.Join(variants, "|") + `)\b`)
		d.patterns = append(d.patterns, entityPattern{canonical: rule.Canonical, re: re})
	}
	return d
}

// Detect returns the canonical names of every known entity mentioned in the
// text, in rule order.
func (d *EntityDetector) Detect(text string) []string {
	var found []string
	for _, p := range d.patterns {
		if p.re.MatchString(text) {
			found = append(found, p.canonical)
		}
	}
	return found
}

// Enhance appends detected entities missing from the model's classification:
// existing tokens first, newly detected after, each deduplicated. Detection
// runs against the raw original text, not the translation. Pure function
// apart from logging.
func (d *EntityDetector) Enhance(classification, text string) string {
	tokens := SplitClassification(classification)
	have := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		have[t] = true
	}

	var added []string
	for _, name := range d.Detect(text) {
		if have[name] {
			continue
		}
		have[name] = true
		tokens = append(tokens, name)
		added = append(added, name)
	}
	if len(added) > 0 {
		log.Printf("detector added entities=%s classification=%q", strings.Join(added, ","), classification)
	}
	return JoinClassification(tokens)
}
