package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a store lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// MappingFilter narrows mapping listings.
type MappingFilter struct {
	CourierName string
	Bucket      *int
	OnlyActive  bool
}

// MappingRepo persists courier status mappings and the unmapped backlog.
type MappingRepo struct {
	db *gorm.DB
}

// NewMappingRepo creates a mapping repository.
func NewMappingRepo(db *gorm.DB) *MappingRepo {
	return &MappingRepo{db: db}
}

// FindActive returns the active, mapped entry for (courier, status code).
func (r *MappingRepo) FindActive(ctx context.Context, courierName, statusCode string) (*CourierStatusMapping, error) {
	var m CourierStatusMapping
	err := r.db.WithContext(ctx).
		Where("courier_name = ? AND status_code = ? AND is_active = ? AND is_mapped = ?",
			courierName, statusCode, true, true).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Upsert writes a mapping, replacing any existing row for the composite key.
func (r *MappingRepo) Upsert(ctx context.Context, m *CourierStatusMapping) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "courier_name"}, {Name: "status_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"bucket", "label", "description", "is_active", "is_mapped", "updated_at",
		}),
	}).Create(m).Error
}

// Deactivate soft-removes the mapping for (courier, status code).
func (r *MappingRepo) Deactivate(ctx context.Context, courierName, statusCode string) error {
	res := r.db.WithContext(ctx).
		Model(&CourierStatusMapping{}).
		Where("courier_name = ? AND status_code = ?", courierName, statusCode).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns mappings matching the filter.
func (r *MappingRepo) List(ctx context.Context, f MappingFilter) ([]CourierStatusMapping, error) {
	q := r.db.WithContext(ctx).Model(&CourierStatusMapping{})
	if f.CourierName != "" {
		q = q.Where("courier_name = ?", f.CourierName)
	}
	if f.Bucket != nil {
		q = q.Where("bucket = ?", *f.Bucket)
	}
	if f.OnlyActive {
		q = q.Where("is_active = ?", true)
	}
	var out []CourierStatusMapping
	if err := q.Order("courier_name, status_code").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertUnmapped increments the review counter for an unknown status,
// inserting the row on first sight.
func (r *MappingRepo) UpsertUnmapped(ctx context.Context, courierName, statusCode string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "courier_name"}, {Name: "status_code"}},
		DoUpdates: clause.Assignments(map[string]any{
			"count":     gorm.Expr("unmapped_statuses.count + 1"),
			"last_seen": now,
		}),
	}).Create(&UnmappedStatus{
		CourierName: courierName,
		StatusCode:  statusCode,
		Count:       1,
		LastSeen:    now,
	}).Error
}

// ListUnmapped returns the review backlog, most recently seen first.
func (r *MappingRepo) ListUnmapped(ctx context.Context, courierName string, limit int) ([]UnmappedStatus, error) {
	q := r.db.WithContext(ctx).Model(&UnmappedStatus{})
	if courierName != "" {
		q = q.Where("courier_name = ?", courierName)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []UnmappedStatus
	if err := q.Order("last_seen DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
