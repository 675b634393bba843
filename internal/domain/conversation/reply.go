package conversation

import (
	"math/rand"
	"sync"

	"github.com/cogniguard/cogniguard/internal/scoring"
)

// Chooser picks one option from a candidate list. It exists so tests can
// pin reply selection while production uses a seeded RNG.
type Chooser interface {
	Choose(options []string) string
}

// RandomChooser selects uniformly at random. Safe for concurrent use.
type RandomChooser struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomChooser creates a chooser seeded with the given value.
func NewRandomChooser(seed int64) *RandomChooser {
	return &RandomChooser{rng: rand.New(rand.NewSource(seed))}
}

func (c *RandomChooser) Choose(options []string) string {
	if len(options) == 0 {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return options[c.rng.Intn(len(options))]
}

// FirstChooser always picks the first option. Used in tests.
type FirstChooser struct{}

func (FirstChooser) Choose(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[0]
}

// fallbackReply is used whenever reply generation produces nothing.
const fallbackReply = "Thank you for sharing. Could you tell me more about that?"

var welcomeBank = map[string][]string{
	TypeDaily: {
		"Hello! How are you feeling today?",
		"Good to see you. What have you been up to today?",
		"Hi there! Tell me about your day so far.",
	},
	TypeAssessment: {
		"Welcome. We'll go through a few questions together, take your time.",
		"Hello! Let's start with some simple questions. There's no rush.",
	},
	TypeTherapeutic: {
		"Hello, I'm glad you're here. How have you been feeling lately?",
		"Welcome back. What's on your mind today?",
	},
}

var questionBank = map[string][]string{
	TypeDaily: {
		"What did you have for breakfast this morning?",
		"Did you talk with any friends or family recently?",
		"What was the best part of your day?",
		"Do you have any plans for tomorrow?",
	},
	TypeAssessment: {
		"Can you tell me what day of the week it is today?",
		"Could you describe what you did yesterday, step by step?",
		"Can you name three things you see around you right now?",
	},
	TypeTherapeutic: {
		"How did that make you feel?",
		"What usually helps you relax when you feel this way?",
		"Is there something you're looking forward to this week?",
	},
}

var empathyBank = []string{
	"That sounds difficult. I'm here to listen.",
	"I'm sorry to hear that. Would you like to talk about it a bit more?",
	"Thank you for telling me. It takes courage to share how you feel.",
}

var encouragementBank = []string{
	"That's wonderful to hear!",
	"I'm glad things are going well for you.",
	"That sounds like a lovely experience.",
}

// seniorAdviceBank is appended for older users in therapeutic conversations.
var seniorAdviceBank = []string{
	"A short daily walk can do wonders for both mood and memory.",
	"Keeping a small diary of your day is a gentle way to exercise memory.",
	"Staying in touch with friends, even a short phone call, helps a lot.",
}

var endingGreat = []string{
	"You did wonderfully today. Your responses were clear and engaged. See you next time!",
	"Excellent conversation today. Keep up this energy!",
}

var endingGood = []string{
	"Thanks for talking with me today. You're doing well, see you soon!",
	"That was a good session. Take care until next time!",
}

var endingGentle = []string{
	"Thank you for your time today. Remember to rest well, and let's talk again soon.",
	"We covered a lot today. Be kind to yourself, and I'll see you next time.",
}

// replyGenerator composes assistant messages from the banks above.
type replyGenerator struct {
	chooser Chooser
}

func newReplyGenerator(chooser Chooser) *replyGenerator {
	return &replyGenerator{chooser: chooser}
}

// Welcome returns the opening assistant message for a new conversation.
func (g *replyGenerator) Welcome(convType string) string {
	if msg := g.chooser.Choose(welcomeBank[convType]); msg != "" {
		return msg
	}
	return fallbackReply
}

// Reply builds a response to a user message: an acknowledgement keyed to
// emotional tone, a follow-up question from the type's bank, and for users
// aged 65 and over in therapeutic conversations a piece of practical advice.
func (g *replyGenerator) Reply(convType string, userAge int, m scoring.Metrics) string {
	var parts []string

	switch m.EmotionalTone {
	case scoring.ToneNegative:
		if ack := g.chooser.Choose(empathyBank); ack != "" {
			parts = append(parts, ack)
		}
	case scoring.TonePositive:
		if ack := g.chooser.Choose(encouragementBank); ack != "" {
			parts = append(parts, ack)
		}
	}

	if q := g.chooser.Choose(questionBank[convType]); q != "" {
		parts = append(parts, q)
	}

	if convType == TypeTherapeutic && userAge >= 65 {
		if advice := g.chooser.Choose(seniorAdviceBank); advice != "" {
			parts = append(parts, advice)
		}
	}

	if len(parts) == 0 {
		return fallbackReply
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += " " + p
	}
	return out
}

// Ending returns the closing message based on the average domain score.
func (g *replyGenerator) Ending(avgDomain float64) string {
	var bank []string
	switch {
	case avgDomain >= 7:
		bank = endingGreat
	case avgDomain >= 5:
		bank = endingGood
	default:
		bank = endingGentle
	}
	if msg := g.chooser.Choose(bank); msg != "" {
		return msg
	}
	return fallbackReply
}
