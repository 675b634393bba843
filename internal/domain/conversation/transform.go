package conversation

import (
	"fmt"
	"time"
)

// UploadRequest is the payload accepted by the upload endpoint. The format is
// detected from which field is populated; a flat Messages transcript takes
// precedence when both are present. Field names follow the external
// producers' exports, so UserID binds camelCase.
type UploadRequest struct {
	UserID string `json:"userId"`
	Title  string `json:"title"`
	Type   string `json:"type"`

	// Standard format: a flat transcript.
	Messages []UploadMessage `json:"messages"`

	// MoCA export format: user_query/bot_response exchanges.
	ConversationHistory []HistoryEntry `json:"conversation_history"`
}

// UploadMessage is one transcript entry in the standard format.
type UploadMessage struct {
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryEntry is one exchange in the MoCA export format.
type HistoryEntry struct {
	UserQuery   string    `json:"user_query"`
	BotResponse string    `json:"bot_response"`
	Timestamp   time.Time `json:"timestamp"`
}

// normalizeUpload flattens the request into transcript order and returns the
// conversation type to record. MoCA exchanges become a user/assistant pair
// sharing the exchange timestamp and force the assessment type.
func normalizeUpload(req UploadRequest) ([]UploadMessage, string, error) {
	switch {
	case len(req.Messages) > 0:
		convType := req.Type
		if convType == "" {
			convType = TypeDaily
		}
		if !ValidType(convType) {
			return nil, "", fmt.Errorf("invalid conversation type %q", convType)
		}
		for i, m := range req.Messages {
			if m.Sender != SenderUser && m.Sender != SenderAssistant {
				return nil, "", fmt.Errorf("message %d: sender must be user or assistant", i)
			}
			if m.Content == "" {
				return nil, "", fmt.Errorf("message %d: content is required", i)
			}
		}
		return req.Messages, convType, nil

	case len(req.ConversationHistory) > 0:
		out := make([]UploadMessage, 0, len(req.ConversationHistory)*2)
		for i, e := range req.ConversationHistory {
			if e.UserQuery == "" && e.BotResponse == "" {
				return nil, "", fmt.Errorf("exchange %d: user_query or bot_response is required", i)
			}
			if e.UserQuery != "" {
				out = append(out, UploadMessage{
					Sender:    SenderUser,
					Content:   e.UserQuery,
					Timestamp: e.Timestamp,
				})
			}
			if e.BotResponse != "" {
				out = append(out, UploadMessage{
					Sender:    SenderAssistant,
					Content:   e.BotResponse,
					Timestamp: e.Timestamp,
				})
			}
		}
		return out, TypeAssessment, nil
	}

	return nil, "", fmt.Errorf("payload contains no messages")
}
