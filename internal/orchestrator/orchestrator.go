// Package orchestrator is the single entry point callers use to talk to
// courier vendors. It resolves plans to couriers, fans serviceability out
// across vendors, prices the serviceable ones, and drives shipment
// lifecycle operations through the adapter registry.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/parceldesk/courierhub/internal/bucketmap"
	"github.com/parceldesk/courierhub/internal/cache"
	"github.com/parceldesk/courierhub/internal/store"
	"github.com/parceldesk/courierhub/internal/telemetry"
	"github.com/parceldesk/courierhub/pkg/courier"
)

// CourierDirectory is the slice of the store the orchestrator reads
// couriers and hubs from. *store.CourierRepo satisfies it.
type CourierDirectory interface {
	ListByPlan(ctx context.Context, planID string) ([]store.Courier, error)
	GetHub(ctx context.Context, name string) (*store.Hub, error)
}

// ShipmentStore is the slice of the store the orchestrator writes shipment
// state through. *store.ShipmentRepo satisfies it.
type ShipmentStore interface {
	Create(ctx context.Context, s *store.Shipment) error
	GetByAWB(ctx context.Context, awb string) (*store.Shipment, error)
	AdvanceStatus(ctx context.Context, shipmentID uuid.UUID, bucket int, vendorStatus string) error
	AppendEvent(ctx context.Context, e *store.TrackingEvent) error
}

// BucketResolver maps vendor status vocabulary to canonical buckets.
// *bucketmap.Service satisfies it.
type BucketResolver interface {
	Resolve(ctx context.Context, courierName, statusCode, statusText string) bucketmap.Resolution
}

// Orchestrator coordinates vendor adapters, the courier directory, the
// bucket resolver, and the result cache.
type Orchestrator struct {
	registry  *courier.Registry
	couriers  CourierDirectory
	shipments ShipmentStore
	buckets   BucketResolver
	cache     cache.Cache
	metrics   *telemetry.Metrics
	logger    *otelzap.Logger
}

// New creates an orchestrator.
func New(
	registry *courier.Registry,
	couriers CourierDirectory,
	shipments ShipmentStore,
	buckets BucketResolver,
	c cache.Cache,
	metrics *telemetry.Metrics,
	logger *otelzap.Logger,
) *Orchestrator {
	return &Orchestrator{
		registry:  registry,
		couriers:  couriers,
		shipments: shipments,
		buckets:   buckets,
		cache:     c,
		metrics:   metrics,
		logger:    logger,
	}
}

// CreateShipmentParams books a shipment on one vendor and records it.
type CreateShipmentParams struct {
	OrderID           uuid.UUID
	OrderRef          string
	CourierName       string // configured courier name, e.g. "DELHIVERY-0.5"
	VendorCode        courier.VendorCode
	HubName           string
	Consignee         courier.Address
	Package           courier.Package
	PaymentMode       courier.PaymentMode
	CollectableAmount float64
	Reverse           bool
}

// CreateShipmentResult is the booking outcome plus the persisted shipment
// identifier.
type CreateShipmentResult struct {
	courier.Outcome
	ShipmentID  uuid.UUID
	AWB         string
	CourierName string
	LabelURL    string
}

// CreateShipment resolves the hub from the directory, books the shipment
// on the vendor, and records it with the NEW bucket. Vendor failures come
// back as a failed outcome; only store failures return an error.
func (o *Orchestrator) CreateShipment(ctx context.Context, p CreateShipmentParams) (*CreateShipmentResult, error) {
	v, err := o.registry.Get(p.VendorCode)
	if err != nil {
		return &CreateShipmentResult{Outcome: courier.Fail("vendor %s not registered", p.VendorCode)}, nil
	}

	hub, err := o.couriers.GetHub(ctx, p.HubName)
	if err != nil {
		return nil, fmt.Errorf("loading hub %q: %w", p.HubName, err)
	}

	start := time.Now()
	res := v.CreateShipment(ctx, &courier.CreateShipmentRequest{
		OrderRef:          p.OrderRef,
		Hub:               hubToVendor(hub),
		Consignee:         p.Consignee,
		Package:           p.Package,
		PaymentMode:       p.PaymentMode,
		CollectableAmount: p.CollectableAmount,
		Reverse:           p.Reverse,
	})
	o.metrics.RecordRequest("create_shipment", p.VendorCode.String(), statusLabel(res.Success), time.Since(start).Seconds())

	if !res.Success {
		o.logger.Ctx(ctx).Warn("shipment booking failed",
			zap.String("vendor", p.VendorCode.String()),
			zap.String("order_ref", p.OrderRef),
			zap.String("message", res.Message))
		return &CreateShipmentResult{Outcome: res.Outcome}, nil
	}

	courierName := p.CourierName
	if res.CourierName != "" {
		// Sub-brokering vendors assign the carrier at booking time.
		courierName = res.CourierName
	}
	s := &store.Shipment{
		OrderID:     p.OrderID,
		AWB:         res.AWB,
		CourierName: courierName,
		VendorCode:  p.VendorCode.String(),
		Bucket:      int(courier.BucketNew),
	}
	if err := o.shipments.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("recording shipment %s: %w", res.AWB, err)
	}

	return &CreateShipmentResult{
		Outcome:     res.Outcome,
		ShipmentID:  s.ID,
		AWB:         res.AWB,
		CourierName: courierName,
		LabelURL:    res.LabelURL,
	}, nil
}

// SchedulePickup passes a pickup request through to the vendor.
func (o *Orchestrator) SchedulePickup(ctx context.Context, code courier.VendorCode, req *courier.SchedulePickupRequest) *courier.SchedulePickupResult {
	v, err := o.registry.Get(code)
	if err != nil {
		return &courier.SchedulePickupResult{Outcome: courier.Fail("vendor %s not registered", code)}
	}
	start := time.Now()
	res := v.SchedulePickup(ctx, req)
	o.metrics.RecordRequest("schedule_pickup", code.String(), statusLabel(res.Success), time.Since(start).Seconds())
	return res
}

// RegisterHub registers a pickup location with one vendor.
func (o *Orchestrator) RegisterHub(ctx context.Context, code courier.VendorCode, req *courier.RegisterHubRequest) *courier.RegisterHubResult {
	v, err := o.registry.Get(code)
	if err != nil {
		return &courier.RegisterHubResult{Outcome: courier.Fail("vendor %s not registered", code)}
	}
	start := time.Now()
	res := v.RegisterHub(ctx, req)
	o.metrics.RecordRequest("register_hub", code.String(), statusLabel(res.Success), time.Since(start).Seconds())
	return res
}

// NDRAction forwards a non-delivery instruction to the vendor holding the
// shipment.
func (o *Orchestrator) NDRAction(ctx context.Context, req *courier.NDRActionRequest) (*courier.NDRActionResult, error) {
	s, err := o.shipments.GetByAWB(ctx, req.AWB)
	if err != nil {
		return nil, fmt.Errorf("loading shipment %s: %w", req.AWB, err)
	}
	code, err := courier.ParseVendorCode(s.VendorCode)
	if err != nil {
		return &courier.NDRActionResult{Outcome: courier.Fail("shipment %s has unknown vendor %q", req.AWB, s.VendorCode)}, nil
	}
	v, err := o.registry.Get(code)
	if err != nil {
		return &courier.NDRActionResult{Outcome: courier.Fail("vendor %s not registered", code)}, nil
	}
	start := time.Now()
	res := v.NDRAction(ctx, req)
	o.metrics.RecordRequest("ndr_action", code.String(), statusLabel(res.Success), time.Since(start).Seconds())
	return res, nil
}

// CancelShipment cancels the booking with its vendor and, on success,
// moves the shipment and its order to CANCELLED with an audit event.
func (o *Orchestrator) CancelShipment(ctx context.Context, awb, reason string) (*courier.CancelShipmentResult, error) {
	s, err := o.shipments.GetByAWB(ctx, awb)
	if err != nil {
		return nil, fmt.Errorf("loading shipment %s: %w", awb, err)
	}
	if courier.Bucket(s.Bucket).Terminal() {
		return &courier.CancelShipmentResult{
			Outcome: courier.Fail("shipment %s is already %s", awb, courier.Bucket(s.Bucket)),
		}, nil
	}

	code, err := courier.ParseVendorCode(s.VendorCode)
	if err != nil {
		return &courier.CancelShipmentResult{Outcome: courier.Fail("shipment %s has unknown vendor %q", awb, s.VendorCode)}, nil
	}
	v, err := o.registry.Get(code)
	if err != nil {
		return &courier.CancelShipmentResult{Outcome: courier.Fail("vendor %s not registered", code)}, nil
	}

	start := time.Now()
	res := v.CancelShipment(ctx, &courier.CancelShipmentRequest{AWB: awb, Reason: reason})
	o.metrics.RecordRequest("cancel_shipment", code.String(), statusLabel(res.Success), time.Since(start).Seconds())
	if !res.Success {
		return res, nil
	}

	if err := o.shipments.AdvanceStatus(ctx, s.ID, int(courier.BucketCancelled), "CANCELLED"); err != nil {
		return nil, fmt.Errorf("recording cancellation of %s: %w", awb, err)
	}
	if err := o.shipments.AppendEvent(ctx, &store.TrackingEvent{
		ShipmentID:   s.ID,
		Bucket:       int(courier.BucketCancelled),
		VendorStatus: "CANCELLED",
		Description:  reason,
		OccurredAt:   time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("recording cancellation event of %s: %w", awb, err)
	}
	return res, nil
}

func hubToVendor(h *store.Hub) courier.Hub {
	return courier.Hub{
		Name: h.Name,
		Address: courier.Address{
			Name:    h.Name,
			Phone:   h.Phone,
			Email:   h.Email,
			Line1:   h.Line1,
			Line2:   h.Line2,
			City:    h.City,
			State:   h.State,
			Pincode: h.Pincode,
		},
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
