package scoring

// Recommendation texts are fixed strings keyed off the rule table; duplicates
// are removed with set semantics while preserving insertion order.

var domainSuggestions = map[string]string{
	"memory":       "Practice memory exercises such as recalling yesterday's events in detail",
	"attention":    "Try focused activities like reading aloud or puzzle solving for 20 minutes a day",
	"executive":    "Plan a multi-step activity such as cooking a new recipe to exercise planning skills",
	"language":     "Engage in word games and describe pictures out loud to strengthen language skills",
	"orientation":  "Keep a daily routine with a visible calendar and clock to support orientation",
	"visuospatial": "Practice drawing, copying shapes, or assembling jigsaw puzzles",
	"recall":       "Review names and recent conversations with a family member each evening",
}

const positiveReinforcement = "Great progress. Memory and attention are strong; keep up the current routine"

// ForAssessment builds the recommendation list for a formal assessment from
// the health status and the per-domain score map.
func ForAssessment(status HealthStatus, domains map[string]int) []string {
	var recs []string

	switch status {
	case StatusMild:
		recs = append(recs,
			"Play a cognitive training game for 15 minutes daily",
			"Join social activities at least 3 times a week",
			"Do 150 minutes of aerobic exercise per week",
		)
	case StatusModerate, StatusSevere:
		recs = append(recs,
			"Consult a doctor for a professional evaluation",
			"Begin structured cognitive rehabilitation training",
			"Involve family members in daily care and support",
		)
	}

	for domain, score := range domains {
		if score < 6 {
			if s, ok := domainSuggestions[domain]; ok {
				recs = append(recs, s)
			}
		}
	}

	return dedupe(recs)
}

// ForConversation builds the recommendation list from conversation-derived
// domain scores.
func ForConversation(d DomainScores) []string {
	var recs []string
	if d.Memory < 6 {
		recs = append(recs, domainSuggestions["memory"])
	}
	if d.Attention < 6 {
		recs = append(recs, domainSuggestions["attention"])
	}
	if d.Executive < 6 {
		recs = append(recs, domainSuggestions["executive"])
	}
	if d.Language < 6 {
		recs = append(recs, domainSuggestions["language"])
	}
	if d.Memory >= 7 && d.Attention >= 7 {
		recs = append(recs, positiveReinforcement)
	}
	return dedupe(recs)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
