package scoring

import "math"

// DomainScores holds the four cognitive domain ratings derivable from free
// text, each an integer in [1,10]. Orientation and visuospatial scores only
// come from formal assessments and are never derived here.
type DomainScores struct {
	Memory    int `json:"memory"`
	Attention int `json:"attention"`
	Executive int `json:"executive"`
	Language  int `json:"language"`
}

// Average returns the mean of the four domain scores.
func (d DomainScores) Average() float64 {
	return float64(d.Memory+d.Attention+d.Executive+d.Language) / 4
}

// AggregateDomains combines per-message metrics across a conversation into
// domain scores. Messages without a metrics bundle should be passed with the
// zero Metrics value; N=0 yields the clamped floor for every domain.
func AggregateDomains(msgs []Metrics) DomainScores {
	n := len(msgs)

	var memRefs int
	var vocabSum, cohSum float64
	var rtSum float64
	var rtCount int
	anyPositive := false
	for _, m := range msgs {
		memRefs += m.MemoryReferences
		vocabSum += m.VocabularyComplexity
		cohSum += m.CoherenceScore
		if m.ResponseTime > 0 {
			rtSum += m.ResponseTime
			rtCount++
		}
		if m.EmotionalTone == TonePositive {
			anyPositive = true
		}
	}

	var avgVocab, avgCoh float64
	if n > 0 {
		avgVocab = vocabSum / float64(n)
		avgCoh = cohSum / float64(n)
	}

	var memory float64
	if n > 0 {
		memory = 10*float64(memRefs)/float64(n) + 5*avgVocab/10
	}

	attentionBase := 5.0
	if rtCount > 0 {
		attentionBase = math.Max(0, 10-rtSum/float64(rtCount))
	}
	attention := attentionBase + 5*avgCoh/10

	executive := 7*avgCoh/10 + 3*avgVocab/10

	language := 8 * avgVocab / 10
	if anyPositive {
		language += 2
	}

	return DomainScores{
		Memory:    clampInt(int(math.Round(memory)), 1, 10),
		Attention: clampInt(int(math.Round(attention)), 1, 10),
		Executive: clampInt(int(math.Round(executive)), 1, 10),
		Language:  clampInt(int(math.Round(language)), 1, 10),
	}
}
