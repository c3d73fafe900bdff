package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShipmentRepo persists shipments, their parent orders, and the append-only
// tracking event log.
type ShipmentRepo struct {
	db *gorm.DB
}

// NewShipmentRepo creates a shipment repository.
func NewShipmentRepo(db *gorm.DB) *ShipmentRepo {
	return &ShipmentRepo{db: db}
}

// Create inserts a shipment.
func (r *ShipmentRepo) Create(ctx context.Context, s *Shipment) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(s).Error
}

// Get returns a shipment by ID.
func (r *ShipmentRepo) Get(ctx context.Context, id uuid.UUID) (*Shipment, error) {
	var s Shipment
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByAWB returns a shipment by its vendor tracking number.
func (r *ShipmentRepo) GetByAWB(ctx context.Context, awb string) (*Shipment, error) {
	var s Shipment
	err := r.db.WithContext(ctx).First(&s, "awb = ?", awb).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListTrackable returns up to limit shipments that still need polling:
// an AWB and courier are present and the bucket is non-terminal. Callers
// pass the terminal bucket values so the store stays enum-agnostic.
func (r *ShipmentRepo) ListTrackable(ctx context.Context, terminalBuckets []int, limit int) ([]Shipment, error) {
	q := r.db.WithContext(ctx).
		Where("awb <> '' AND courier_name <> ''").
		Where("bucket NOT IN ?", terminalBuckets).
		Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []Shipment
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// AdvanceStatus writes the shipment's new bucket and raw vendor status, and
// mirrors the bucket onto the parent order, in one transaction.
func (r *ShipmentRepo) AdvanceStatus(ctx context.Context, shipmentID uuid.UUID, bucket int, vendorStatus string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s Shipment
		if err := tx.First(&s, "id = ?", shipmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Model(&Shipment{}).Where("id = ?", shipmentID).
			Updates(map[string]any{
				"bucket":        bucket,
				"vendor_status": vendorStatus,
				"updated_at":    time.Now(),
			}).Error; err != nil {
			return err
		}
		return tx.Model(&Order{}).Where("id = ?", s.OrderID).
			Updates(map[string]any{"bucket": bucket, "updated_at": time.Now()}).Error
	})
}

// AppendEvent writes one tracking event.
func (r *ShipmentRepo) AppendEvent(ctx context.Context, e *TrackingEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(e).Error
}

// LatestEventTime returns the timestamp of the newest stored tracking event
// for a shipment, or the zero time when none exist. The reconciler uses it
// as the duplicate-poll idempotency check.
func (r *ShipmentRepo) LatestEventTime(ctx context.Context, shipmentID uuid.UUID) (time.Time, error) {
	var e TrackingEvent
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("occurred_at DESC").
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return e.OccurredAt, nil
}

// Events returns the audit log for a shipment, oldest first.
func (r *ShipmentRepo) Events(ctx context.Context, shipmentID uuid.UUID) ([]TrackingEvent, error) {
	var out []TrackingEvent
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("occurred_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
