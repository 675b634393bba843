package voice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockDeviceRepo struct {
	devices map[string]*Device
	touched []string
}

func newMockDeviceRepo() *mockDeviceRepo {
	return &mockDeviceRepo{devices: make(map[string]*Device)}
}

func (m *mockDeviceRepo) Upsert(_ context.Context, d *Device) error {
	existing, ok := m.devices[d.DeviceID]
	now := time.Now()
	if !ok {
		d.ID = uuid.New()
		d.IsActive = true
		d.CreatedAt = now
		d.UpdatedAt = now
		cp := *d
		m.devices[d.DeviceID] = &cp
		return nil
	}
	merged := existing.Metadata
	if merged == nil {
		merged = map[string]interface{}{}
	}
	for k, v := range d.Metadata {
		merged[k] = v
	}
	if d.OwnerUserID == nil {
		d.OwnerUserID = existing.OwnerUserID
	}
	if d.DeviceName == nil {
		d.DeviceName = existing.DeviceName
	}
	d.ID = existing.ID
	d.Metadata = merged
	d.IsActive = true
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = now
	cp := *d
	m.devices[d.DeviceID] = &cp
	return nil
}

func (m *mockDeviceRepo) GetByDeviceID(_ context.Context, deviceID string) (*Device, error) {
	d, ok := m.devices[deviceID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockDeviceRepo) TouchLastActive(_ context.Context, deviceID string, at time.Time) error {
	m.touched = append(m.touched, deviceID)
	if d, ok := m.devices[deviceID]; ok {
		d.LastActiveAt = &at
	}
	return nil
}

type mockAuditRepo struct {
	created   []*Audit
	finalized []*Audit
	failOn    string
}

func (m *mockAuditRepo) Create(_ context.Context, a *Audit) error {
	if m.failOn == "create" {
		return errors.New("audit insert failed")
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	cp := *a
	m.created = append(m.created, &cp)
	return nil
}

func (m *mockAuditRepo) Finalize(_ context.Context, a *Audit) error {
	cp := *a
	m.finalized = append(m.finalized, &cp)
	return nil
}

func (m *mockAuditRepo) ListByDevice(_ context.Context, deviceID string, limit int) ([]*Audit, error) {
	var out []*Audit
	for _, a := range m.created {
		if a.DeviceID == deviceID {
			out = append(out, a)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestService() (*Service, *mockDeviceRepo, *mockAuditRepo) {
	devices := newMockDeviceRepo()
	audits := &mockAuditRepo{}
	return NewService(devices, audits, zerolog.Nop()), devices, audits
}

func strPtr(s string) *string { return &s }

func TestRegisterDevice_IdempotentUpsert(t *testing.T) {
	svc, _, _ := newTestService()

	first, err := svc.RegisterDevice(context.Background(), RegisterInput{
		DeviceID: "dev-1",
		Platform: PlatformXiaoAI,
		Metadata: map[string]interface{}{"room": "bedroom"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.IsActive {
		t.Error("expected new device to be active")
	}

	name := "Grandma's speaker"
	second, err := svc.RegisterDevice(context.Background(), RegisterInput{
		DeviceID:   "dev-1",
		Platform:   PlatformXiaoAI,
		DeviceName: &name,
		Metadata:   map[string]interface{}{"volume": 7},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Error("expected the same device record on re-registration")
	}
	if second.Metadata["room"] != "bedroom" || second.Metadata["volume"] != 7 {
		t.Errorf("expected merged metadata, got %v", second.Metadata)
	}
	if second.DeviceName == nil || *second.DeviceName != name {
		t.Error("expected device name to be set")
	}
}

func TestRegisterDevice_Validation(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.RegisterDevice(context.Background(), RegisterInput{}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for missing device_id, got %v", err)
	}
	if _, err := svc.RegisterDevice(context.Background(), RegisterInput{
		DeviceID: "dev-1", Platform: "alexa",
	}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for unknown platform, got %v", err)
	}
}

func TestRegisterDevice_DefaultPlatform(t *testing.T) {
	svc, _, _ := newTestService()

	d, err := svc.RegisterDevice(context.Background(), RegisterInput{DeviceID: "dev-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Platform != PlatformOther {
		t.Errorf("expected platform other, got %s", d.Platform)
	}
}

func TestHandleWebhook_IntentRequired(t *testing.T) {
	svc, _, audits := newTestService()

	_, err := svc.HandleWebhook(context.Background(), WebhookRequest{DeviceID: "dev-1"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(audits.created) != 0 {
		t.Error("expected no audit for a rejected request")
	}
}

func TestHandleWebhook_KnownIntents(t *testing.T) {
	tests := []struct {
		intent string
		action string
	}{
		{IntentConfirmMedication, "medication_confirmed"},
		{IntentQueryReminders, "reminders_queried"},
		{IntentEmergencyCall, "emergency_call_initiated"},
	}
	for _, tt := range tests {
		t.Run(tt.intent, func(t *testing.T) {
			svc, devices, audits := newTestService()
			if _, err := svc.RegisterDevice(context.Background(), RegisterInput{DeviceID: "dev-1", Platform: PlatformXiaoGPT}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			resp, err := svc.HandleWebhook(context.Background(), WebhookRequest{
				DeviceID:  "dev-1",
				Platform:  PlatformXiaoGPT,
				Intent:    tt.intent,
				RequestID: strPtr("req-9"),
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !resp.Success {
				t.Error("expected success")
			}
			if resp.Action == nil || *resp.Action != tt.action {
				t.Errorf("expected action %s, got %v", tt.action, resp.Action)
			}
			if resp.Reply == "" {
				t.Error("expected a spoken reply")
			}
			if resp.RequestID == nil || *resp.RequestID != "req-9" {
				t.Error("expected request id echoed back")
			}

			if len(audits.finalized) != 1 {
				t.Fatalf("expected 1 finalized audit, got %d", len(audits.finalized))
			}
			final := audits.finalized[0]
			if !final.Success || final.Reply == nil || final.ProcessingTimeMs == nil {
				t.Errorf("audit not finalized with outcome: %+v", final)
			}
			if len(devices.touched) != 1 {
				t.Error("expected device last-active touch")
			}
		})
	}
}

func TestHandleWebhook_MedicationSlot(t *testing.T) {
	svc, _, _ := newTestService()

	resp, err := svc.HandleWebhook(context.Background(), WebhookRequest{
		DeviceID: "dev-1",
		Intent:   IntentConfirmMedication,
		Slots:    map[string]interface{}{"medication": "aspirin"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Reply != "Got it, I've recorded that you took your aspirin." {
		t.Errorf("unexpected reply %q", resp.Reply)
	}
}

func TestHandleWebhook_UnsupportedIntent(t *testing.T) {
	svc, _, audits := newTestService()

	resp, err := svc.HandleWebhook(context.Background(), WebhookRequest{
		DeviceID: "dev-1",
		Intent:   "play_music",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success {
		t.Error("expected unsupported intent to be handled gracefully")
	}
	if resp.Action != nil {
		t.Errorf("expected no action, got %v", resp.Action)
	}
	if resp.Reply != unsupportedIntentReply {
		t.Errorf("unexpected reply %q", resp.Reply)
	}
	if len(audits.finalized) != 1 || !audits.finalized[0].Success {
		t.Error("expected a successful finalized audit")
	}
}

func TestDeviceAudits_LimitCap(t *testing.T) {
	svc, _, audits := newTestService()
	if _, err := svc.RegisterDevice(context.Background(), RegisterInput{DeviceID: "dev-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 150; i++ {
		audits.created = append(audits.created, &Audit{ID: uuid.New(), DeviceID: "dev-1"})
	}

	out, err := svc.DeviceAudits(context.Background(), "dev-1", 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != MaxAuditLimit {
		t.Errorf("expected cap at %d audits, got %d", MaxAuditLimit, len(out))
	}
}

func TestDeviceAudits_UnknownDevice(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.DeviceAudits(context.Background(), "ghost", 10)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
