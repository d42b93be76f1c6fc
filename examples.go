package main

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

type sparseVec = map[int]float64

// exampleIndex ranks the few-shot example pool by TF-IDF relevance to a
// review so the classify prompt carries the most similar examples first.
type exampleIndex struct {
	vocab    map[string]int
	idf      []float64
	docs     []sparseVec
	examples []ClassificationExample
}

func tokenize(s string) []string {
	s = strings.ToLower(s)
	var tokens []string
	var cur strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

func buildExampleIndex(examples []ClassificationExample) *exampleIndex {
	idx := &exampleIndex{
		vocab:    make(map[string]int),
		examples: examples,
	}
	if len(examples) == 0 {
		return idx
	}

	for _, ex := range examples {
		for _, tok := range tokenize(ex.Review) {
			if _, ok := idx.vocab[tok]; !ok {
				idx.vocab[tok] = len(idx.vocab)
			}
		}
	}

	df := make([]int, len(idx.vocab))
	idx.docs = make([]sparseVec, len(examples))
	n := float64(len(examples))

	for i, ex := range examples {
		tf := make(map[int]int)
		for _, tok := range tokenize(ex.Review) {
			tf[idx.vocab[tok]]++
		}
		vec := make(sparseVec, len(tf))
		for j, count := range tf {
			vec[j] = float64(count)
			df[j]++
		}
		idx.docs[i] = vec
	}

	idx.idf = make([]float64, len(idx.vocab))
	for i, d := range df {
		if d > 0 {
			idx.idf[i] = math.Log(n/float64(d)) + 1.0
		}
	}
	for _, vec := range idx.docs {
		for j := range vec {
			vec[j] *= idx.idf[j]
		}
	}
	return idx
}

func (idx *exampleIndex) queryVec(query string) sparseVec {
	tf := make(map[int]int)
	for _, tok := range tokenize(query) {
		if i, ok := idx.vocab[tok]; ok {
			tf[i]++
		}
	}
	vec := make(sparseVec, len(tf))
	for i, count := range tf {
		vec[i] = float64(count) * idx.idf[i]
	}
	return vec
}

// topK returns the k examples most similar to the review text. Examples with
// no term overlap keep the pool order and fill the tail, so a short or
// unusual review still gets a full example block.
func (idx *exampleIndex) topK(query string, k int) []ClassificationExample {
	if k <= 0 || len(idx.examples) == 0 {
		return nil
	}
	if k > len(idx.examples) {
		k = len(idx.examples)
	}

	qvec := idx.queryVec(query)
	type scored struct {
		index int
		score float64
	}
	results := make([]scored, len(idx.examples))
	for i, dvec := range idx.docs {
		results[i] = scored{index: i, score: cosineSim(qvec, dvec)}
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].score > results[b].score
	})

	out := make([]ClassificationExample, 0, k)
	for _, r := range results[:k] {
		out = append(out, idx.examples[r.index])
	}
	return out
}

func cosineSim(a, b sparseVec) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i, va := range a {
		normA += va * va
		if vb, ok := b[i]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if dot == 0 || normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
