// Package conversation manages guided conversations with users: message
// exchange with automatic assistant replies, lexical metric capture and the
// cognitive analysis derived from it.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cogniguard/cogniguard/internal/domain/user"
	"github.com/cogniguard/cogniguard/internal/platform/websocket"
	"github.com/cogniguard/cogniguard/internal/scoring"
)

// ErrValidation wraps input validation failures so handlers can map them
// to 400 responses.
var ErrValidation = errors.New("validation failed")

const (
	defaultMoodScore       = 5.0
	defaultEngagementScore = 5.0
	statsWindow            = 5
)

var defaultTitles = map[string]string{
	TypeDaily:       "Daily check-in",
	TypeAssessment:  "Cognitive assessment",
	TypeTherapeutic: "Therapeutic session",
}

// UserDirectory is the slice of the user repository the conversation
// service needs. Satisfied by user.Repository.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	UpdateRisk(ctx context.Context, id uuid.UUID, riskLevel string, lastAssessment time.Time) error
}

// AnalysisResult is the outcome of the scoring pipeline over a
// conversation's user messages.
type AnalysisResult struct {
	ConversationID  uuid.UUID            `json:"conversation_id"`
	CognitiveScore  int                  `json:"cognitive_score"`
	DomainScores    scoring.DomainScores `json:"domain_scores"`
	HealthStatus    scoring.HealthStatus `json:"health_status"`
	RiskLevel       scoring.RiskLevel    `json:"risk_level"`
	Recommendations []string             `json:"recommendations"`
	MessagesScored  int                  `json:"messages_scored"`
}

// Stats summarizes a user's recent completed conversations.
type Stats struct {
	TotalConversations     int           `json:"total_conversations"`
	AverageCognitiveScore  *float64      `json:"average_cognitive_score,omitempty"`
	AverageMoodScore       *float64      `json:"average_mood_score,omitempty"`
	AverageEngagementScore *float64      `json:"average_engagement_score,omitempty"`
	Trend                  scoring.Trend `json:"trend"`
}

// OperationRecorder counts completed domain operations for the metrics
// endpoint. Satisfied by the telemetry provider.
type OperationRecorder interface {
	OperationCounter(resource, operation string)
}

// Service implements conversation operations.
type Service struct {
	convs  Repository
	msgs   MessageRepository
	users  UserDirectory
	events websocket.EventPublisher
	gen    *replyGenerator
	logger zerolog.Logger
	now    func() time.Time

	metrics     OperationRecorder
	activeGauge func(int64)
	active      atomic.Int64
}

// NewService creates a conversation service. A nil chooser falls back to a
// time-seeded random chooser.
func NewService(convs Repository, msgs MessageRepository, users UserDirectory, events websocket.EventPublisher, chooser Chooser, logger zerolog.Logger) *Service {
	if chooser == nil {
		chooser = NewRandomChooser(time.Now().UnixNano())
	}
	return &Service{
		convs:  convs,
		msgs:   msgs,
		users:  users,
		events: events,
		gen:    newReplyGenerator(chooser),
		logger: logger.With().Str("component", "conversation-service").Logger(),
		now:    time.Now,
	}
}

// SetMetrics attaches the operation counter and an optional gauge fed the
// number of conversations active in this process. Both may be nil.
func (s *Service) SetMetrics(rec OperationRecorder, activeGauge func(int64)) {
	s.metrics = rec
	s.activeGauge = activeGauge
}

func (s *Service) countOp(op string) {
	if s.metrics != nil {
		s.metrics.OperationCounter("conversations", op)
	}
}

func (s *Service) trackActive(delta int64) {
	n := s.active.Add(delta)
	if n < 0 {
		// End can arrive for conversations started before this process.
		s.active.Store(0)
		n = 0
	}
	if s.activeGauge != nil {
		s.activeGauge(n)
	}
}

// Create starts a conversation and authors the assistant's welcome message.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, title, convType string) (*Conversation, *Message, error) {
	if convType == "" {
		convType = TypeDaily
	}
	if !ValidType(convType) {
		return nil, nil, fmt.Errorf("%w: type must be one of daily, assessment, therapeutic", ErrValidation)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: user does not exist", ErrValidation)
		}
		return nil, nil, err
	}
	if title == "" {
		title = defaultTitles[convType]
	}

	mood := defaultMoodScore
	engagement := defaultEngagementScore
	conv := &Conversation{
		UserID:          userID,
		Title:           title,
		Type:            convType,
		Status:          StatusActive,
		MoodScore:       &mood,
		EngagementScore: &engagement,
		StartedAt:       s.now(),
	}
	if err := s.convs.Create(ctx, conv); err != nil {
		return nil, nil, err
	}

	welcome := &Message{
		ConversationID: conv.ID,
		Sender:         SenderAssistant,
		Content:        s.gen.Welcome(convType),
		Timestamp:      s.now(),
	}
	if err := s.msgs.Create(ctx, welcome); err != nil {
		return nil, nil, err
	}

	s.countOp("create")
	s.trackActive(1)
	s.logger.Info().
		Str("conversation_id", conv.ID.String()).
		Str("type", convType).
		Msg("conversation started")
	return conv, welcome, nil
}

// AddUserMessage records a user message with its lexical metrics, generates
// the assistant reply, refreshes the conversation duration and broadcasts
// both messages to the conversation's websocket room.
func (s *Service) AddUserMessage(ctx context.Context, conversationID uuid.UUID, content string) (*Message, *Message, error) {
	if content == "" {
		return nil, nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if conv.Status == StatusCompleted {
		return nil, nil, fmt.Errorf("%w: conversation is already completed", ErrValidation)
	}

	history, err := s.msgs.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	responseTime := 0.0
	if len(history) > 0 {
		responseTime = now.Sub(history[len(history)-1].Timestamp).Seconds()
		if responseTime < 0 {
			responseTime = 0
		}
	}

	metrics := scoring.Analyze(content, responseTime)
	userMsg := &Message{
		ConversationID: conversationID,
		Sender:         SenderUser,
		Content:        content,
		Timestamp:      now,
		Metrics:        &metrics,
	}
	if err := s.msgs.Create(ctx, userMsg); err != nil {
		return nil, nil, err
	}

	age := 0
	if u, err := s.users.GetByID(ctx, conv.UserID); err == nil {
		age = u.Age(now)
	} else {
		s.logger.Warn().Err(err).Str("user_id", conv.UserID.String()).Msg("reply generation without user profile")
	}

	reply := &Message{
		ConversationID: conversationID,
		Sender:         SenderAssistant,
		Content:        s.gen.Reply(conv.Type, age, metrics),
		Timestamp:      s.now(),
	}
	if err := s.msgs.Create(ctx, reply); err != nil {
		return nil, nil, err
	}

	first := conv.StartedAt
	if len(history) > 0 {
		first = history[0].Timestamp
	}
	conv.Duration = int(now.Sub(first).Minutes())
	if err := s.convs.Update(ctx, conv); err != nil {
		return nil, nil, err
	}

	s.countOp("message")
	s.publish(ctx, websocket.NewMessageEvent(conversationID, userMsg))
	s.publish(ctx, websocket.NewMessageEvent(conversationID, reply))
	return userMsg, reply, nil
}

// End completes a conversation: records final mood and engagement, runs the
// analysis and authors a closing message keyed to the average domain score.
func (s *Service) End(ctx context.Context, conversationID uuid.UUID, mood, engagement *float64) (*Conversation, *Message, error) {
	if err := validateScore("mood_score", mood); err != nil {
		return nil, nil, err
	}
	if err := validateScore("engagement_score", engagement); err != nil {
		return nil, nil, err
	}

	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if conv.Status == StatusCompleted {
		return nil, nil, fmt.Errorf("%w: conversation is already completed", ErrValidation)
	}

	result, err := s.Analyze(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}

	ending := &Message{
		ConversationID: conversationID,
		Sender:         SenderAssistant,
		Content:        s.gen.Ending(result.DomainScores.Average()),
		Timestamp:      s.now(),
	}
	if err := s.msgs.Create(ctx, ending); err != nil {
		return nil, nil, err
	}

	// Analyze rewrote the sub-scores; reload before the final update.
	conv, err = s.convs.GetByID(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	conv.Status = StatusCompleted
	conv.EndedAt = &now
	if mood != nil {
		conv.MoodScore = mood
	}
	if engagement != nil {
		conv.EngagementScore = engagement
	}
	if err := s.convs.Update(ctx, conv); err != nil {
		return nil, nil, err
	}

	s.countOp("end")
	s.trackActive(-1)
	s.publish(ctx, websocket.NewEvent(websocket.EventConversationEnded, conversationID, result))
	s.logger.Info().
		Str("conversation_id", conversationID.String()).
		Int("cognitive_score", result.CognitiveScore).
		Msg("conversation completed")
	return conv, ending, nil
}

// Analyze runs the scoring pipeline over the conversation's user messages,
// writes the sub-scores onto the conversation and refreshes the user's risk
// level from the resulting percentage.
func (s *Service) Analyze(ctx context.Context, conversationID uuid.UUID) (*AnalysisResult, error) {
	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	history, err := s.msgs.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	var metrics []scoring.Metrics
	for _, m := range history {
		if m.Sender != SenderUser {
			continue
		}
		if m.Metrics != nil {
			metrics = append(metrics, *m.Metrics)
		} else {
			metrics = append(metrics, scoring.Metrics{})
		}
	}

	domains := scoring.AggregateDomains(metrics)
	overall := scoring.OverallScore(metrics)

	conv.CognitiveScore = &overall
	conv.MemoryScore = &domains.Memory
	conv.AttentionScore = &domains.Attention
	conv.LanguageScore = &domains.Language
	conv.ExecutiveScore = &domains.Executive
	if err := s.convs.Update(ctx, conv); err != nil {
		return nil, err
	}

	percentage := domains.Average() * 10
	status := scoring.HealthStatusFor(percentage, conv.Type)
	risk := scoring.RiskFor(status)

	if err := s.users.UpdateRisk(ctx, conv.UserID, string(risk), s.now()); err != nil {
		s.logger.Error().Err(err).
			Str("user_id", conv.UserID.String()).
			Msg("failed to update user risk after analysis")
	}

	s.countOp("analyze")
	return &AnalysisResult{
		ConversationID:  conversationID,
		CognitiveScore:  overall,
		DomainScores:    domains,
		HealthStatus:    status,
		RiskLevel:       risk,
		Recommendations: scoring.ForConversation(domains),
		MessagesScored:  len(metrics),
	}, nil
}

// GetStats summarizes the user's last five completed conversations. The
// trend compares the oldest and newest cognitive scores.
func (s *Service) GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	recent, err := s.convs.ListRecentCompleted(ctx, userID, statsWindow)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalConversations: len(recent), Trend: scoring.TrendStable}
	if len(recent) == 0 {
		return stats, nil
	}

	// ListRecentCompleted returns newest first; the trend wants
	// chronological order.
	var cognitive, moods, engagements []float64
	for i := len(recent) - 1; i >= 0; i-- {
		c := recent[i]
		if c.CognitiveScore != nil {
			cognitive = append(cognitive, float64(*c.CognitiveScore))
		}
		if c.MoodScore != nil {
			moods = append(moods, *c.MoodScore)
		}
		if c.EngagementScore != nil {
			engagements = append(engagements, *c.EngagementScore)
		}
	}

	stats.AverageCognitiveScore = meanPtr(cognitive)
	stats.AverageMoodScore = meanPtr(moods)
	stats.AverageEngagementScore = meanPtr(engagements)
	stats.Trend = scoring.FirstLastTrend(cognitive, scoring.OverallTrendThreshold)
	return stats, nil
}

// Get returns a conversation by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	return s.convs.GetByID(ctx, id)
}

// List returns a page of the user's conversations, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Conversation, int, error) {
	return s.convs.ListByUser(ctx, userID, limit, offset)
}

// Messages returns a conversation's transcript in chronological order.
func (s *Service) Messages(ctx context.Context, conversationID uuid.UUID) ([]*Message, error) {
	if _, err := s.convs.GetByID(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.msgs.ListByConversation(ctx, conversationID)
}

// Upload ingests an externally recorded transcript, scores it and runs the
// full analysis. The user id is validated before anything is written.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*Conversation, *AnalysisResult, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: user_id must be a valid UUID", ErrValidation)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: user does not exist", ErrValidation)
		}
		return nil, nil, err
	}

	transcript, convType, err := normalizeUpload(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	first, last := transcript[0].Timestamp, transcript[len(transcript)-1].Timestamp
	duration := 0
	if last.After(first) {
		duration = int(last.Sub(first).Minutes())
	}

	mood, engagement := uploadScores(transcript)
	title := req.Title
	if title == "" {
		title = "Uploaded conversation"
	}

	conv := &Conversation{
		UserID:          userID,
		Title:           title,
		Type:            convType,
		Status:          StatusCompleted,
		Duration:        duration,
		MoodScore:       &mood,
		EngagementScore: &engagement,
		StartedAt:       first,
		EndedAt:         &last,
	}
	if err := s.convs.Create(ctx, conv); err != nil {
		return nil, nil, err
	}

	prev := time.Time{}
	for _, um := range transcript {
		msg := &Message{
			ConversationID: conv.ID,
			Sender:         um.Sender,
			Content:        um.Content,
			Timestamp:      um.Timestamp,
		}
		if um.Sender == SenderUser {
			responseTime := 0.0
			if !prev.IsZero() && um.Timestamp.After(prev) {
				responseTime = um.Timestamp.Sub(prev).Seconds()
			}
			m := scoring.Analyze(um.Content, responseTime)
			msg.Metrics = &m
		}
		if err := s.msgs.Create(ctx, msg); err != nil {
			return nil, nil, err
		}
		prev = um.Timestamp
	}

	result, err := s.Analyze(ctx, conv.ID)
	if err != nil {
		return nil, nil, err
	}
	conv, err = s.convs.GetByID(ctx, conv.ID)
	if err != nil {
		return nil, nil, err
	}

	s.countOp("upload")
	s.logger.Info().
		Str("conversation_id", conv.ID.String()).
		Int("messages", len(transcript)).
		Msg("transcript uploaded")
	return conv, result, nil
}

// uploadScores derives heuristic mood and engagement for uploaded
// transcripts. Mood starts at 5 per user message, nudged half a point by
// emotional tone, then averaged. Engagement starts at 5 and shifts with
// message count, average length and average response time.
func uploadScores(transcript []UploadMessage) (mood, engagement float64) {
	var moodSum float64
	var userCount int
	var wordSum int
	var respSum float64
	var respCount int

	prev := time.Time{}
	for _, um := range transcript {
		if um.Sender == SenderUser {
			m := scoring.Analyze(um.Content, 0)
			score := 5.0
			switch m.EmotionalTone {
			case scoring.TonePositive:
				score += 0.5
			case scoring.ToneNegative:
				score -= 0.5
			}
			moodSum += clamp(score, 1, 10)
			wordSum += int(m.WordCount)
			userCount++

			if !prev.IsZero() && um.Timestamp.After(prev) {
				respSum += um.Timestamp.Sub(prev).Seconds()
				respCount++
			}
		}
		prev = um.Timestamp
	}

	mood = 5
	if userCount > 0 {
		mood = moodSum / float64(userCount)
	}

	engagement = 5
	switch {
	case userCount >= 10:
		engagement += 2
	case userCount >= 5:
		engagement += 1
	}
	if userCount > 0 {
		avgWords := float64(wordSum) / float64(userCount)
		switch {
		case avgWords >= 15:
			engagement += 1
		case avgWords < 5:
			engagement -= 1
		}
	}
	if respCount > 0 {
		avgResp := respSum / float64(respCount)
		switch {
		case avgResp < 5:
			engagement += 1
		case avgResp > 30:
			engagement -= 1
		}
	}
	return mood, clamp(engagement, 1, 10)
}

func (s *Service) publish(ctx context.Context, ev websocket.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("event", ev.Type).Msg("websocket publish failed")
	}
}

func validateScore(field string, v *float64) error {
	if v != nil && (*v < 1 || *v > 10) {
		return fmt.Errorf("%w: %s must be between 1 and 10", ErrValidation, field)
	}
	return nil
}

func meanPtr(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	m := sum / float64(len(xs))
	return &m
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
