package voice

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no device matches the lookup.
var ErrNotFound = errors.New("device not found")

// DeviceRepository is the persistence boundary for voice devices.
type DeviceRepository interface {
	// Upsert inserts the device or, when the device_id already exists,
	// refreshes its fields and merges metadata keys.
	Upsert(ctx context.Context, d *Device) error
	GetByDeviceID(ctx context.Context, deviceID string) (*Device, error)
	TouchLastActive(ctx context.Context, deviceID string, at time.Time) error
}

// AuditRepository is the persistence boundary for webhook audit records.
type AuditRepository interface {
	Create(ctx context.Context, a *Audit) error
	Finalize(ctx context.Context, a *Audit) error
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]*Audit, error)
}
