package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// CourierRepo reads admin-configured couriers, their pricing tables, plan
// membership, and hubs.
type CourierRepo struct {
	db *gorm.DB
}

// NewCourierRepo creates a courier repository.
func NewCourierRepo(db *gorm.DB) *CourierRepo {
	return &CourierRepo{db: db}
}

// ListActive returns all active couriers with pricing preloaded.
func (r *CourierRepo) ListActive(ctx context.Context) ([]Courier, error) {
	var out []Courier
	err := r.db.WithContext(ctx).
		Preload("Pricing").
		Where("active = ?", true).
		Order("name").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByPlan returns the active couriers available on a commercial plan.
func (r *CourierRepo) ListByPlan(ctx context.Context, planID string) ([]Courier, error) {
	var out []Courier
	err := r.db.WithContext(ctx).
		Preload("Pricing").
		Joins("JOIN plan_couriers ON plan_couriers.courier_id = couriers.id").
		Where("plan_couriers.plan_id = ? AND couriers.active = ?", planID, true).
		Order("couriers.name").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetByName returns one courier by its configured name.
func (r *CourierRepo) GetByName(ctx context.Context, name string) (*Courier, error) {
	var c Courier
	err := r.db.WithContext(ctx).Preload("Pricing").First(&c, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetHub returns a pickup hub by name.
func (r *CourierRepo) GetHub(ctx context.Context, name string) (*Hub, error) {
	var h Hub
	err := r.db.WithContext(ctx).First(&h, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}
