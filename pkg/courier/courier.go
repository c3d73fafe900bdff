// Package courier provides the uniform capability contract over third-party
// courier vendor networks.
package courier

import (
	"context"
)

// Vendor is the interface every courier network adapter must implement.
//
// No method returns an error: vendor, network, and authentication failures
// are converted into a failed Outcome so that callers can always inspect a
// structured result and degrade one vendor without affecting the others.
type Vendor interface {
	// Code returns the enumerated vendor identity this adapter serves.
	Code() VendorCode

	// Name returns the human-readable vendor name (e.g. "Delhivery 0.5kg").
	Name() string

	// CheckServiceability reports whether the vendor can deliver between
	// the pickup and delivery pincodes under the given constraints.
	CheckServiceability(ctx context.Context, req *ServiceabilityRequest) *ServiceabilityResult

	// RegisterHub registers a pickup location with the vendor. Registering
	// a hub that already exists is a no-op success.
	RegisterHub(ctx context.Context, req *RegisterHubRequest) *RegisterHubResult

	// CreateShipment books a shipment and returns the vendor-issued AWB.
	CreateShipment(ctx context.Context, req *CreateShipmentRequest) *CreateShipmentResult

	// SchedulePickup requests a pickup from a registered hub.
	SchedulePickup(ctx context.Context, req *SchedulePickupRequest) *SchedulePickupResult

	// CancelShipment cancels a booked shipment by AWB.
	CancelShipment(ctx context.Context, req *CancelShipmentRequest) *CancelShipmentResult

	// TrackShipment returns the vendor's raw tracking events for an AWB,
	// ordered by vendor-reported timestamp.
	TrackShipment(ctx context.Context, req *TrackRequest) *TrackResult

	// NDRAction instructs the vendor how to handle a non-delivery report.
	NDRAction(ctx context.Context, req *NDRActionRequest) *NDRActionResult
}
