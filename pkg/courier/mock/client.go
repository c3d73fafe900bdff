// Package mock provides a scriptable vendor implementation for testing.
package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/parceldesk/courierhub/pkg/courier"
)

// Client is a mock vendor for testing. Every operation succeeds with
// plausible data unless the corresponding OnX hook overrides it.
type Client struct {
	code courier.VendorCode
	name string

	OnCheckServiceability func(ctx context.Context, req *courier.ServiceabilityRequest) *courier.ServiceabilityResult
	OnRegisterHub         func(ctx context.Context, req *courier.RegisterHubRequest) *courier.RegisterHubResult
	OnCreateShipment      func(ctx context.Context, req *courier.CreateShipmentRequest) *courier.CreateShipmentResult
	OnSchedulePickup      func(ctx context.Context, req *courier.SchedulePickupRequest) *courier.SchedulePickupResult
	OnCancelShipment      func(ctx context.Context, req *courier.CancelShipmentRequest) *courier.CancelShipmentResult
	OnTrackShipment       func(ctx context.Context, req *courier.TrackRequest) *courier.TrackResult
	OnNDRAction           func(ctx context.Context, req *courier.NDRActionRequest) *courier.NDRActionResult
}

// New creates a new mock vendor named after its code.
func New(code courier.VendorCode) *Client {
	return &Client{code: code, name: code.String()}
}

// NewNamed creates a new mock vendor with an explicit display name.
func NewNamed(code courier.VendorCode, name string) *Client {
	return &Client{code: code, name: name}
}

// Code returns the vendor code.
func (c *Client) Code() courier.VendorCode { return c.code }

// Name returns the vendor name.
func (c *Client) Name() string { return c.name }

// CheckServiceability reports the route as serviceable.
func (c *Client) CheckServiceability(ctx context.Context, req *courier.ServiceabilityRequest) *courier.ServiceabilityResult {
	if c.OnCheckServiceability != nil {
		return c.OnCheckServiceability(ctx, req)
	}
	return &courier.ServiceabilityResult{
		Outcome:               courier.OK("serviceable"),
		Serviceable:           true,
		CODAvailable:          true,
		EstimatedDeliveryDays: 4,
	}
}

// RegisterHub registers the hub.
func (c *Client) RegisterHub(ctx context.Context, req *courier.RegisterHubRequest) *courier.RegisterHubResult {
	if c.OnRegisterHub != nil {
		return c.OnRegisterHub(ctx, req)
	}
	return &courier.RegisterHubResult{
		Outcome: courier.OK("hub registered"),
		HubID:   fmt.Sprintf("%s-hub-%s", c.name, req.Hub.Name),
	}
}

// CreateShipment books a shipment with a synthetic AWB.
func (c *Client) CreateShipment(ctx context.Context, req *courier.CreateShipmentRequest) *courier.CreateShipmentResult {
	if c.OnCreateShipment != nil {
		return c.OnCreateShipment(ctx, req)
	}
	awb := fmt.Sprintf("%s%d", c.name[:2], time.Now().UnixNano()%1e12)
	return &courier.CreateShipmentResult{
		Outcome:  courier.OK("shipment created"),
		AWB:      awb,
		LabelURL: fmt.Sprintf("https://labels.%s.mock/%s.pdf", c.name, awb),
	}
}

// SchedulePickup schedules a pickup.
func (c *Client) SchedulePickup(ctx context.Context, req *courier.SchedulePickupRequest) *courier.SchedulePickupResult {
	if c.OnSchedulePickup != nil {
		return c.OnSchedulePickup(ctx, req)
	}
	return &courier.SchedulePickupResult{
		Outcome:  courier.OK("pickup scheduled"),
		PickupID: fmt.Sprintf("PU-%d", time.Now().UnixNano()),
	}
}

// CancelShipment cancels a shipment.
func (c *Client) CancelShipment(ctx context.Context, req *courier.CancelShipmentRequest) *courier.CancelShipmentResult {
	if c.OnCancelShipment != nil {
		return c.OnCancelShipment(ctx, req)
	}
	return &courier.CancelShipmentResult{Outcome: courier.OK("shipment cancelled")}
}

// TrackShipment returns a short in-transit event history.
func (c *Client) TrackShipment(ctx context.Context, req *courier.TrackRequest) *courier.TrackResult {
	if c.OnTrackShipment != nil {
		return c.OnTrackShipment(ctx, req)
	}
	now := time.Now()
	return &courier.TrackResult{
		Outcome:      courier.OK("tracking fetched"),
		VendorStatus: "In Transit",
		Events: []courier.TrackingEvent{
			{Timestamp: now.Add(-48 * time.Hour), StatusCode: "PU-01", Description: "Shipment Picked Up", Location: "Mumbai"},
			{Timestamp: now.Add(-12 * time.Hour), StatusCode: "IT-02", Description: "In Transit", Location: "Nagpur"},
		},
	}
}

// NDRAction records the NDR instruction.
func (c *Client) NDRAction(ctx context.Context, req *courier.NDRActionRequest) *courier.NDRActionResult {
	if c.OnNDRAction != nil {
		return c.OnNDRAction(ctx, req)
	}
	return &courier.NDRActionResult{Outcome: courier.OK("ndr action %s accepted", req.Action)}
}
