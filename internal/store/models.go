package store

import (
	"time"

	"github.com/google/uuid"
)

// Courier is an admin-configured courier offering. Couriers with capacity
// tiers appear once per tier, each bound to its own vendor code.
type Courier struct {
	ID             uint   `gorm:"primaryKey"`
	Name           string `gorm:"size:64;uniqueIndex;not null"` // e.g. "DELHIVERY-0.5"
	VendorCode     string `gorm:"size:32;not null"`             // registry key, e.g. "delhivery-0.5"
	WeightCategory string `gorm:"size:16"`                      // e.g. "0.5kg"
	Rating         float64
	Active         bool `gorm:"not null;default:true"`

	// COD and RTO terms are per courier, not per zone.
	CODFlatCharge  float64
	CODPercent     float64
	RTOPercent     float64
	VolumetricDiv  float64 // cm divisor; 5000 when unset
	Pricing        []CourierPricing `gorm:"foreignKey:CourierID"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CourierPricing is one zone slab row of a courier's pricing table.
type CourierPricing struct {
	ID              uint   `gorm:"primaryKey"`
	CourierID       uint   `gorm:"index:idx_courier_zone,unique;not null"`
	Zone            string `gorm:"size:2;index:idx_courier_zone,unique;not null"` // A..E
	BaseWeight      float64 // slab weight covered by the base price, kg
	BasePrice       float64
	IncrementWeight float64 // billing increment beyond the slab, kg
	IncrementPrice  float64
}

// PlanCourier maps a commercial plan to the couriers it can use.
type PlanCourier struct {
	ID        uint   `gorm:"primaryKey"`
	PlanID    string `gorm:"size:64;index:idx_plan_courier,unique;not null"`
	CourierID uint   `gorm:"index:idx_plan_courier,unique;not null"`
}

// CourierStatusMapping translates one vendor status code to a canonical
// bucket. At most one active mapping may exist per (courier, status code);
// the composite unique index enforces it.
type CourierStatusMapping struct {
	ID          uint   `gorm:"primaryKey"`
	CourierName string `gorm:"size:64;index:idx_courier_status,unique;not null"`
	StatusCode  string `gorm:"size:128;index:idx_courier_status,unique;not null"`
	Bucket      int    `gorm:"not null"`
	Label       string `gorm:"size:128"`
	Description string `gorm:"size:512"`
	IsActive    bool   `gorm:"not null;default:true"`
	IsMapped    bool   `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UnmappedStatus is the human-review backlog of vendor statuses the mapping
// table does not know. Append/increment only; never deleted automatically.
type UnmappedStatus struct {
	ID          uint   `gorm:"primaryKey"`
	CourierName string `gorm:"size:64;index:idx_unmapped,unique;not null"`
	StatusCode  string `gorm:"size:128;index:idx_unmapped,unique;not null"`
	Count       int64  `gorm:"not null;default:0"`
	LastSeen    time.Time
	CreatedAt   time.Time
}

// Order is the commerce order a shipment fulfils. Only its status moves
// here; everything else belongs to the excluded commerce surface.
type Order struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Reference string    `gorm:"size:64;uniqueIndex;not null"`
	Bucket    int       `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Shipment is one vendor booking for an order.
type Shipment struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID      uuid.UUID `gorm:"type:uuid;index;not null"`
	AWB          string    `gorm:"size:64;index"`
	CourierName  string    `gorm:"size:64"`
	VendorCode   string    `gorm:"size:32"`
	Bucket       int       `gorm:"not null"`
	VendorStatus string    `gorm:"size:256"` // last raw vendor status text
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TrackingEvent is the append-only audit record of one bucket transition.
type TrackingEvent struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ShipmentID   uuid.UUID `gorm:"type:uuid;index;not null"`
	Bucket       int       `gorm:"not null"`
	VendorStatus string    `gorm:"size:128"`
	Description  string    `gorm:"size:512"`
	Location     string    `gorm:"size:128"`
	OccurredAt   time.Time `gorm:"index;not null"`
	CreatedAt    time.Time
}

// Hub is a seller pickup location registered with vendors.
type Hub struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:64;uniqueIndex;not null"`
	Phone     string `gorm:"size:32"`
	Email     string `gorm:"size:128"`
	Line1     string `gorm:"size:256"`
	Line2     string `gorm:"size:256"`
	City      string `gorm:"size:64"`
	State     string `gorm:"size:64"`
	Pincode   string `gorm:"size:8"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
