// Package scoring implements the heuristic cognitive-scoring pipeline:
// per-message lexical feature extraction, domain-score aggregation, overall
// score calculation, risk classification, recommendation generation, and
// trend statistics. Everything here is pure computation over already-fetched
// data; persistence is the caller's concern.
package scoring

import (
	"regexp"
	"strings"
)

// Tone classifies the emotional direction of a message.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneNeutral  Tone = "neutral"
	ToneNegative Tone = "negative"
)

// Metrics is the lexical feature bundle computed for a single user message.
type Metrics struct {
	ResponseTime         float64 `json:"response_time"` // seconds; 0 = unknown
	WordCount            int     `json:"word_count"`
	VocabularyComplexity float64 `json:"vocabulary_complexity"` // 1-10
	EmotionalTone        Tone    `json:"emotional_tone"`
	CoherenceScore       float64 `json:"coherence_score"` // 1-10
	MemoryReferences     int     `json:"memory_references"`
}

var positiveWords = []string{
	"good", "happy", "glad", "love", "like", "wonderful", "enjoy", "pleased", "great",
}

var negativeWords = []string{
	"bad", "sad", "upset", "hate", "angry", "tired", "hurt", "worried", "awful",
}

var connectorWords = []string{
	"because", "therefore", "however", "but", "and then", "after that",
}

var memoryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bremember\b`),
	regexp.MustCompile(`(?i)\brecall\b`),
	regexp.MustCompile(`(?i)\bused to\b`),
	regexp.MustCompile(`(?i)\bback then\b`),
	regexp.MustCompile(`(?i)\bwhen i was\b`),
	regexp.MustCompile(`(?i)\byears ago\b`),
	regexp.MustCompile(`(?i)\bin the past\b`),
}

var sentenceSplit = regexp.MustCompile(`[.!?。！？]+`)

// Analyze extracts the lexical feature bundle from one message. It never
// fails: degenerate inputs (empty text, no tokens) produce boundary-clamped
// defaults. responseTime is the wall-clock seconds the user took to answer;
// pass 0 when unknown.
func Analyze(text string, responseTime float64) Metrics {
	m := Metrics{
		ResponseTime:         responseTime,
		EmotionalTone:        ToneNeutral,
		VocabularyComplexity: 1,
		CoherenceScore:       5,
	}

	tokens := strings.Fields(text)
	m.WordCount = len(tokens)

	if len(tokens) > 0 {
		unique := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			unique[strings.ToLower(t)] = struct{}{}
		}
		ratio := float64(len(unique)) / float64(len(tokens))
		m.VocabularyComplexity = clampFloat(ratio*10, 1, 10)
	}

	m.EmotionalTone = classifyTone(text)
	m.CoherenceScore = coherence(text)
	m.MemoryReferences = countMemoryReferences(text)
	return m
}

func classifyTone(text string) Tone {
	lower := strings.ToLower(text)
	var pos, neg int
	for _, w := range positiveWords {
		pos += strings.Count(lower, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(lower, w)
	}
	switch {
	case pos > neg:
		return TonePositive
	case neg > pos:
		return ToneNegative
	default:
		return ToneNeutral
	}
}

func coherence(text string) float64 {
	score := 5.0
	lower := strings.ToLower(text)

	bonus := 0
	for _, c := range connectorWords {
		if strings.Contains(lower, c) {
			bonus++
			if bonus == 3 {
				break
			}
		}
	}
	score += float64(bonus)

	sentences := splitSentences(text)
	if len(sentences) >= 4 && allShort(sentences, 10) {
		score -= 2
	}
	return clampFloat(score, 1, 10)
}

func splitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func allShort(sentences []string, limit int) bool {
	for _, s := range sentences {
		if len([]rune(strings.TrimSpace(s))) >= limit {
			return false
		}
	}
	return true
}

func countMemoryReferences(text string) int {
	var n int
	for _, p := range memoryPatterns {
		n += len(p.FindAllStringIndex(text, -1))
	}
	return n
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
