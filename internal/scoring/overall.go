package scoring

import "math"

// Weights for the overall cognitive score; they sum to 1.0.
const (
	weightVocabulary   = 0.20
	weightCoherence    = 0.30
	weightMemory       = 0.25
	weightEmotional    = 0.15
	weightResponseTime = 0.10
)

// OverallScore blends the aggregate message metrics into a single 0-100
// cognitive score. Sub-scores with no underlying data default to 50.
func OverallScore(msgs []Metrics) int {
	var memRefs, toneTotal, tonePositive int
	var vocabSum, cohSum, rtSum float64
	var cohCount, rtCount int
	for _, m := range msgs {
		memRefs += m.MemoryReferences
		vocabSum += m.VocabularyComplexity
		if m.CoherenceScore > 0 {
			cohSum += m.CoherenceScore
			cohCount++
		}
		if m.EmotionalTone != "" {
			toneTotal++
			if m.EmotionalTone == TonePositive {
				tonePositive++
			}
		}
		if m.ResponseTime > 0 {
			rtSum += m.ResponseTime
			rtCount++
		}
	}

	var avgVocab float64
	if len(msgs) > 0 {
		avgVocab = vocabSum / float64(len(msgs))
	}
	vocabScore := avgVocab / 10 * 100

	cohScore := 50.0
	if cohCount > 0 {
		cohScore = cohSum / float64(cohCount) / 10 * 100
	}

	memScore := math.Min(float64(memRefs)*5, 100)

	emoScore := 50.0
	if toneTotal > 0 {
		emoScore = float64(tonePositive) / float64(toneTotal) * 100
	}

	rtScore := 50.0
	if rtCount > 0 {
		rtScore = math.Max(0, 100-rtSum/float64(rtCount)*10)
	}

	total := vocabScore*weightVocabulary +
		cohScore*weightCoherence +
		memScore*weightMemory +
		emoScore*weightEmotional +
		rtScore*weightResponseTime

	return clampInt(int(math.Round(total)), 0, 100)
}
