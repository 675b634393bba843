package voice

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Platforms a voice device may report.
const (
	PlatformXiaoGPT    = "xiaogpt"
	PlatformXiaoAI     = "xiaoai"
	PlatformTmallGenie = "tmall_genie"
	PlatformDuerOS     = "dueros"
	PlatformOther      = "other"
)

// Intents the webhook dispatches on.
const (
	IntentConfirmMedication = "confirm_medication"
	IntentQueryReminders    = "query_reminders"
	IntentEmergencyCall     = "emergency_call"
)

// Device maps to the voice_devices table. DeviceID is the platform-issued
// identifier and is unique.
type Device struct {
	ID           uuid.UUID              `db:"id" json:"id"`
	DeviceID     string                 `db:"device_id" json:"device_id"`
	Platform     string                 `db:"platform" json:"platform"`
	OwnerUserID  *uuid.UUID             `db:"owner_user_id" json:"owner_user_id,omitempty"`
	DeviceName   *string                `db:"device_name" json:"device_name,omitempty"`
	Metadata     map[string]interface{} `db:"metadata" json:"metadata,omitempty"`
	IsActive     bool                   `db:"is_active" json:"is_active"`
	LastActiveAt *time.Time             `db:"last_active_at" json:"last_active_at,omitempty"`
	CreatedAt    time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time              `db:"updated_at" json:"updated_at"`
}

// Audit maps to the voice_audit table. One row per webhook request, created
// before dispatch and finalized with the outcome.
type Audit struct {
	ID               uuid.UUID              `db:"id" json:"id"`
	DeviceID         string                 `db:"device_id" json:"device_id"`
	Platform         string                 `db:"platform" json:"platform"`
	UserID           *uuid.UUID             `db:"user_id" json:"user_id,omitempty"`
	RequestID        *string                `db:"request_id" json:"request_id,omitempty"`
	Intent           string                 `db:"intent" json:"intent"`
	Slots            map[string]interface{} `db:"slots" json:"slots,omitempty"`
	RawPayload       json.RawMessage        `db:"raw_payload" json:"raw_payload,omitempty"`
	Reply            *string                `db:"reply" json:"reply,omitempty"`
	Action           *string                `db:"action" json:"action,omitempty"`
	Success          bool                   `db:"success" json:"success"`
	ErrorMessage     *string                `db:"error_message" json:"error_message,omitempty"`
	ProcessingTimeMs *int                   `db:"processing_time_ms" json:"processing_time_ms,omitempty"`
	CreatedAt        time.Time              `db:"created_at" json:"created_at"`
}

// ValidPlatform reports whether p is a recognized platform.
func ValidPlatform(p string) bool {
	switch p {
	case PlatformXiaoGPT, PlatformXiaoAI, PlatformTmallGenie, PlatformDuerOS, PlatformOther:
		return true
	}
	return false
}
