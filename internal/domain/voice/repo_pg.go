package voice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cogniguard/cogniguard/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// PGDeviceRepository is the pgx-backed device repository.
type PGDeviceRepository struct {
	pool *pgxpool.Pool
}

// NewPGDeviceRepository creates a device repository backed by the given pool.
func NewPGDeviceRepository(pool *pgxpool.Pool) *PGDeviceRepository {
	return &PGDeviceRepository{pool: pool}
}

func (r *PGDeviceRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const deviceCols = `id, device_id, platform, owner_user_id, device_name, metadata,
	is_active, last_active_at, created_at, updated_at`

func scanDevice(row pgx.Row) (*Device, error) {
	var d Device
	err := row.Scan(
		&d.ID, &d.DeviceID, &d.Platform, &d.OwnerUserID, &d.DeviceName, &d.Metadata,
		&d.IsActive, &d.LastActiveAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *PGDeviceRepository) Upsert(ctx context.Context, d *Device) error {
	existing, err := r.GetByDeviceID(ctx, d.DeviceID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	now := time.Now()
	if existing == nil {
		d.ID = uuid.New()
		d.IsActive = true
		d.CreatedAt = now
		d.UpdatedAt = now
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO voice_devices (id, device_id, platform, owner_user_id, device_name,
				metadata, is_active, last_active_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			d.ID, d.DeviceID, d.Platform, d.OwnerUserID, d.DeviceName,
			d.Metadata, d.IsActive, d.LastActiveAt, d.CreatedAt, d.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert device: %w", err)
		}
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
	d.LastActiveAt = existing.LastActiveAt
	d.UpdatedAt = now
	_, err = r.conn(ctx).Exec(ctx, `
		UPDATE voice_devices SET platform = $2, owner_user_id = $3, device_name = $4,
			metadata = $5, is_active = TRUE, updated_at = $6
		WHERE device_id = $1`,
		d.DeviceID, d.Platform, d.OwnerUserID, d.DeviceName, d.Metadata, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update device: %w", err)
	}
	return nil
}

func (r *PGDeviceRepository) GetByDeviceID(ctx context.Context, deviceID string) (*Device, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+deviceCols+` FROM voice_devices WHERE device_id = $1`, deviceID)
	return scanDevice(row)
}

func (r *PGDeviceRepository) TouchLastActive(ctx context.Context, deviceID string, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE voice_devices SET last_active_at = $2, updated_at = $2
		WHERE device_id = $1`, deviceID, at)
	if err != nil {
		return fmt.Errorf("touch device: %w", err)
	}
	return nil
}

// PGAuditRepository is the pgx-backed audit repository.
type PGAuditRepository struct {
	pool *pgxpool.Pool
}

// NewPGAuditRepository creates an audit repository backed by the given pool.
func NewPGAuditRepository(pool *pgxpool.Pool) *PGAuditRepository {
	return &PGAuditRepository{pool: pool}
}

func (r *PGAuditRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const auditCols = `id, device_id, platform, user_id, request_id, intent, slots,
	raw_payload, reply, action, success, error_message, processing_time_ms, created_at`

func (r *PGAuditRepository) Create(ctx context.Context, a *Audit) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO voice_audit (id, device_id, platform, user_id, request_id, intent,
			slots, raw_payload, reply, action, success, error_message,
			processing_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.DeviceID, a.Platform, a.UserID, a.RequestID, a.Intent,
		a.Slots, a.RawPayload, a.Reply, a.Action, a.Success, a.ErrorMessage,
		a.ProcessingTimeMs, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

func (r *PGAuditRepository) Finalize(ctx context.Context, a *Audit) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE voice_audit SET reply = $2, action = $3, success = $4,
			error_message = $5, processing_time_ms = $6
		WHERE id = $1`,
		a.ID, a.Reply, a.Action, a.Success, a.ErrorMessage, a.ProcessingTimeMs,
	)
	if err != nil {
		return fmt.Errorf("finalize audit: %w", err)
	}
	return nil
}

func (r *PGAuditRepository) ListByDevice(ctx context.Context, deviceID string, limit int) ([]*Audit, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+auditCols+` FROM voice_audit
		WHERE device_id = $1 ORDER BY created_at DESC LIMIT $2`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	defer rows.Close()

	var out []*Audit
	for rows.Next() {
		var a Audit
		err := rows.Scan(
			&a.ID, &a.DeviceID, &a.Platform, &a.UserID, &a.RequestID, &a.Intent,
			&a.Slots, &a.RawPayload, &a.Reply, &a.Action, &a.Success,
			&a.ErrorMessage, &a.ProcessingTimeMs, &a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
