package assessment

import "fmt"

// TemplateQuestion is one item of an assessment instrument.
type TemplateQuestion struct {
	ID        string `json:"id"`
	Domain    string `json:"domain"`
	Text      string `json:"text"`
	MaxPoints int    `json:"max_points"`
}

// Template describes an assessment instrument's question table.
type Template struct {
	Type      string             `json:"type"`
	Name      string             `json:"name"`
	MaxScore  int                `json:"max_score"`
	Questions []TemplateQuestion `json:"questions"`
}

// mmseTemplate is the Mini-Mental State Examination item table, 30 points.
var mmseTemplate = Template{
	Type:     TypeMMSE,
	Name:     "Mini-Mental State Examination",
	MaxScore: 30,
	Questions: []TemplateQuestion{
		{ID: "orientation_time", Domain: DomainOrientation, Text: "What is the year, season, date, day of the week and month?", MaxPoints: 5},
		{ID: "orientation_place", Domain: DomainOrientation, Text: "Where are we: country, province, city, building, floor?", MaxPoints: 5},
		{ID: "registration", Domain: DomainMemory, Text: "Repeat three named objects.", MaxPoints: 3},
		{ID: "attention_calculation", Domain: DomainAttention, Text: "Serial sevens: subtract 7 from 100, five times.", MaxPoints: 5},
		{ID: "recall", Domain: DomainRecall, Text: "Recall the three objects named earlier.", MaxPoints: 3},
		{ID: "naming", Domain: DomainLanguage, Text: "Name a pencil and a watch.", MaxPoints: 2},
		{ID: "repetition", Domain: DomainLanguage, Text: "Repeat: 'No ifs, ands or buts.'", MaxPoints: 1},
		{ID: "comprehension", Domain: DomainLanguage, Text: "Follow a three-stage command.", MaxPoints: 3},
		{ID: "reading", Domain: DomainLanguage, Text: "Read and obey: 'Close your eyes.'", MaxPoints: 1},
		{ID: "writing", Domain: DomainLanguage, Text: "Write a complete sentence.", MaxPoints: 1},
		{ID: "drawing", Domain: DomainVisuospatial, Text: "Copy the intersecting pentagons.", MaxPoints: 1},
	},
}

// mocaTemplate is the Montreal Cognitive Assessment item table, 30 points.
var mocaTemplate = Template{
	Type:     TypeMoCA,
	Name:     "Montreal Cognitive Assessment",
	MaxScore: 30,
	Questions: []TemplateQuestion{
		{ID: "visuospatial_executive", Domain: DomainVisuospatial, Text: "Trail making, cube copy and clock drawing.", MaxPoints: 5},
		{ID: "naming", Domain: DomainLanguage, Text: "Name the three animals shown.", MaxPoints: 3},
		{ID: "memory_registration", Domain: DomainMemory, Text: "Read five words; the subject repeats them (no points).", MaxPoints: 0},
		{ID: "attention", Domain: DomainAttention, Text: "Digit spans, letter tapping and serial sevens.", MaxPoints: 6},
		{ID: "language", Domain: DomainLanguage, Text: "Sentence repetition and verbal fluency.", MaxPoints: 3},
		{ID: "abstraction", Domain: DomainExecutive, Text: "Similarity between pairs of objects.", MaxPoints: 2},
		{ID: "delayed_recall", Domain: DomainRecall, Text: "Recall the five words without cues.", MaxPoints: 5},
		{ID: "orientation", Domain: DomainOrientation, Text: "Date, month, year, day, place and city.", MaxPoints: 6},
	},
}

// quickTemplate is the abbreviated 7-question screen, 30 points. Question
// ids are prefixed with the domain they score.
var quickTemplate = Template{
	Type:     TypeCustom,
	Name:     "Quick Cognitive Screen",
	MaxScore: 30,
	Questions: []TemplateQuestion{
		{ID: "orientation_time", Domain: DomainOrientation, Text: "What is today's date, including the day of the week?", MaxPoints: 5},
		{ID: "orientation_place", Domain: DomainOrientation, Text: "Where are you right now?", MaxPoints: 5},
		{ID: "memory_immediate", Domain: DomainMemory, Text: "Repeat these three words: apple, table, coin.", MaxPoints: 3},
		{ID: "attention", Domain: DomainAttention, Text: "Count backwards from 100 by sevens.", MaxPoints: 5},
		{ID: "memory_delayed", Domain: DomainMemory, Text: "What were the three words from earlier?", MaxPoints: 3},
		{ID: "language", Domain: DomainLanguage, Text: "Name as many animals as you can in one minute.", MaxPoints: 5},
		{ID: "visuospatial", Domain: DomainVisuospatial, Text: "Draw a clock showing ten past eleven.", MaxPoints: 4},
	},
}

var templates = map[string]Template{
	TypeMMSE: mmseTemplate,
	TypeMoCA: mocaTemplate,
	"quick":  quickTemplate,
}

// TemplateFor returns the question table for a known instrument type.
func TemplateFor(t string) (Template, error) {
	tpl, ok := templates[t]
	if !ok {
		return Template{}, fmt.Errorf("no template for assessment type %q", t)
	}
	return tpl, nil
}

// quickDomainFor maps a quick-screen question id to its domain by prefix.
func quickDomainFor(questionID string) string {
	for _, q := range quickTemplate.Questions {
		if q.ID == questionID {
			return q.Domain
		}
	}
	return ""
}

// quickMaxFor returns the point ceiling for a quick-screen question.
func quickMaxFor(questionID string) (int, bool) {
	for _, q := range quickTemplate.Questions {
		if q.ID == questionID {
			return q.MaxPoints, true
		}
	}
	return 0, false
}
