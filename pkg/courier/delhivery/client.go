// Package delhivery provides the Delhivery courier network adapter.
package delhivery

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/parceldesk/courierhub/pkg/courier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tokenTTL bounds how long the static API key is held in the token cache.
const tokenTTL = 24 * time.Hour

// Config holds Delhivery configuration. Tier selects the weight-category
// variant this adapter instance represents; each tier registers separately.
type Config struct {
	APIKey  string
	BaseURL string
	Tier    courier.VendorCode // one of the VendorDelhivery* codes
	UseMock bool
}

// Client is the Delhivery vendor adapter. It implements courier.Vendor and
// delegates wire calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config Config
	api    APIClient
	tokens *courier.TokenSource
	logger *otelzap.Logger
	tracer trace.Tracer
}

// New creates a new Delhivery adapter. If cfg.UseMock is true it uses the
// mock API client, otherwise the real HTTP client.
func New(cfg Config, tokenCache courier.TokenCache, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var api APIClient
	if cfg.UseMock {
		api = NewMockAPIClient()
	} else {
		api = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL: cfg.BaseURL,
			Timeout: 30 * time.Second,
		})
	}
	return newClient(cfg, api, tokenCache, logger, tracer)
}

// NewWithAPIClient creates an adapter with a custom API client. Useful for
// injecting configured mocks in tests.
func NewWithAPIClient(cfg Config, api APIClient, tokenCache courier.TokenCache, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return newClient(cfg, api, tokenCache, logger, tracer)
}

func newClient(cfg Config, api APIClient, tokenCache courier.TokenCache, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	c := &Client{
		config: cfg,
		api:    api,
		logger: logger,
		tracer: tracer,
	}
	// Delhivery auth is a static key; generation just hands the configured
	// key back, and an unconfigured key degrades instead of erroring.
	c.tokens = &courier.TokenSource{
		CacheKey: "token:" + cfg.Tier.String(),
		Cache:    tokenCache,
		Generate: func(ctx context.Context) (string, time.Duration, error) {
			if cfg.APIKey == "" {
				return "", 0, courier.ErrAuthTokenUnavailable
			}
			return cfg.APIKey, tokenTTL, nil
		},
	}
	return c
}

// Code returns the vendor code.
func (c *Client) Code() courier.VendorCode {
	return c.config.Tier
}

// Name returns the vendor name.
func (c *Client) Name() string {
	return "Delhivery " + tierLabel(c.config.Tier)
}

func tierLabel(code courier.VendorCode) string {
	switch code {
	case courier.VendorDelhivery5KG:
		return "5kg"
	case courier.VendorDelhivery10KG:
		return "10kg"
	default:
		return "0.5kg"
	}
}

// CheckServiceability queries pincode coverage for both ends of the route.
func (c *Client) CheckServiceability(ctx context.Context, req *courier.ServiceabilityRequest) *courier.ServiceabilityResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.logger.Warn("Delhivery token unavailable, degrading to not serviceable", zap.Error(err))
		return &courier.ServiceabilityResult{Outcome: courier.Fail("auth token unavailable")}
	}

	delivery, err := c.api.CheckPincode(ctx, token, req.DeliveryPincode)
	if err != nil {
		c.logger.Error("Delhivery API error", zap.String("op", "serviceability"), zap.Error(err))
		return &courier.ServiceabilityResult{Outcome: courier.Fail("pincode lookup failed: %v", err)}
	}
	pickup, err := c.api.CheckPincode(ctx, token, req.PickupPincode)
	if err != nil {
		c.logger.Error("Delhivery API error", zap.String("op", "serviceability"), zap.Error(err))
		return &courier.ServiceabilityResult{Outcome: courier.Fail("pincode lookup failed: %v", err)}
	}

	dc, ok := firstCode(delivery)
	if !ok {
		return &courier.ServiceabilityResult{
			Outcome: courier.OK("delivery pincode %s not covered", req.DeliveryPincode),
			Data:    delivery,
		}
	}
	pc, ok := firstCode(pickup)
	if !ok || pc.Pickup != "Y" {
		return &courier.ServiceabilityResult{
			Outcome: courier.OK("pickup pincode %s not covered", req.PickupPincode),
			Data:    pickup,
		}
	}

	serviceable := dc.Prepaid == "Y"
	if req.PaymentMode == courier.PaymentCOD {
		serviceable = dc.COD == "Y"
	}
	if req.Reverse {
		serviceable = serviceable && dc.Repl == "Y"
	}

	return &courier.ServiceabilityResult{
		Outcome:      courier.OK("serviceability checked"),
		Serviceable:  serviceable,
		CODAvailable: dc.COD == "Y",
		Data:         delivery,
	}
}

type pincodeFlags struct {
	COD, Prepaid, Pickup, Repl string
}

func firstCode(resp *PincodeResponse) (pincodeFlags, bool) {
	if resp == nil || len(resp.DeliveryCodes) == 0 {
		return pincodeFlags{}, false
	}
	pc := resp.DeliveryCodes[0].PostalCode
	return pincodeFlags{COD: pc.COD, Prepaid: pc.Prepaid, Pickup: pc.Pickup, Repl: pc.Repl}, true
}

// RegisterHub registers a client warehouse. A duplicate registration is
// converted to a no-op success.
func (c *Client) RegisterHub(ctx context.Context, req *courier.RegisterHubRequest) *courier.RegisterHubResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &courier.RegisterHubResult{Outcome: courier.Fail("auth token unavailable")}
	}

	apiReq := warehouseToAPI(req.Hub)
	resp, err := c.api.CreateWarehouse(ctx, token, apiReq)
	if err != nil {
		if courier.IsAlreadyRegisteredMessage(err.Error()) {
			return &courier.RegisterHubResult{
				Outcome:           courier.OK("hub already registered"),
				HubID:             req.Hub.Name,
				AlreadyRegistered: true,
			}
		}
		c.logger.Error("Delhivery API error", zap.String("op", "register_hub"), zap.Error(err))
		return &courier.RegisterHubResult{Outcome: courier.Fail("warehouse creation failed: %v", err)}
	}

	if !resp.Success {
		if courier.IsAlreadyRegisteredMessage(resp.Error) {
			return &courier.RegisterHubResult{
				Outcome:           courier.OK("hub already registered"),
				HubID:             req.Hub.Name,
				AlreadyRegistered: true,
				Data:              resp,
			}
		}
		return &courier.RegisterHubResult{
			Outcome: courier.Fail("warehouse creation rejected: %s", resp.Error),
			Data:    resp,
		}
	}

	return &courier.RegisterHubResult{
		Outcome: courier.OK("hub registered"),
		HubID:   resp.Data.Name,
		Data:    resp,
	}
}

func warehouseToAPI(hub courier.Hub) *WarehouseRequest {
	req := &WarehouseRequest{
		Name:    hub.Name,
		Phone:   hub.Address.Phone,
		Email:   hub.Address.Email,
		Address: joinLines(hub.Address.Line1, hub.Address.Line2),
		City:    hub.Address.City,
		State:   hub.Address.State,
		Pin:     hub.Address.Pincode,
		Country: countryOrDefault(hub.Address.Country),
	}
	if ret := hub.ReturnAddress; ret != nil {
		req.ReturnAddress = joinLines(ret.Line1, ret.Line2)
		req.ReturnPin = ret.Pincode
		req.ReturnCity = ret.City
		req.ReturnState = ret.State
	}
	return req
}

// CreateShipment books a single-shipment manifest and returns the waybill.
func (c *Client) CreateShipment(ctx context.Context, req *courier.CreateShipmentRequest) *courier.CreateShipmentResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &courier.CreateShipmentResult{Outcome: courier.Fail("auth token unavailable")}
	}

	c.logger.Info("Creating Delhivery shipment",
		zap.String("order_ref", req.OrderRef),
		zap.String("tier", c.config.Tier.String()),
	)

	paymentMode := "Prepaid"
	var codAmount float64
	if req.PaymentMode == courier.PaymentCOD {
		paymentMode = "COD"
		codAmount = req.CollectableAmount
	}

	apiReq := &ManifestRequest{
		Shipments: []ManifestShipment{{
			Name:           req.Consignee.Name,
			Address:        joinLines(req.Consignee.Line1, req.Consignee.Line2),
			Pin:            req.Consignee.Pincode,
			City:           req.Consignee.City,
			State:          req.Consignee.State,
			Country:        countryOrDefault(req.Consignee.Country),
			Phone:          req.Consignee.Phone,
			OrderID:        req.OrderRef,
			PaymentMode:    paymentMode,
			CODAmount:      codAmount,
			TotalAmount:    req.Package.DeclaredValue,
			Weight:         req.Package.DeadWeight * 1000, // kg -> grams
			ShipmentLength: req.Package.Length,
			ShipmentWidth:  req.Package.Width,
			ShipmentHeight: req.Package.Height,
			ProductsDesc:   req.Package.Description,
		}},
	}
	apiReq.PickupLocation.Name = req.Hub.Name

	resp, err := c.api.CreateManifest(ctx, token, apiReq)
	if err != nil {
		c.logger.Error("Delhivery API error", zap.String("op", "create_shipment"), zap.Error(err))
		return &courier.CreateShipmentResult{Outcome: courier.Fail("manifest failed: %v", err)}
	}

	if len(resp.Packages) == 0 {
		return &courier.CreateShipmentResult{
			Outcome: courier.Fail("manifest returned no packages: %s", resp.RMK),
			Data:    resp,
		}
	}
	pkg := resp.Packages[0]
	if pkg.Status != "Success" || pkg.Waybill == "" {
		return &courier.CreateShipmentResult{
			Outcome: courier.Fail("manifest rejected: %v", pkg.Remarks),
			Data:    resp,
		}
	}

	return &courier.CreateShipmentResult{
		Outcome: courier.OK("shipment created"),
		AWB:     pkg.Waybill,
		Data:    resp,
	}
}

// SchedulePickup requests a pickup from a registered warehouse.
func (c *Client) SchedulePickup(ctx context.Context, req *courier.SchedulePickupRequest) *courier.SchedulePickupResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &courier.SchedulePickupResult{Outcome: courier.Fail("auth token unavailable")}
	}

	slot := req.Slot
	if slot == "" {
		slot = "14:00:00"
	}
	resp, err := c.api.RequestPickup(ctx, token, &PickupRequest{
		PickupLocation: req.HubName,
		PickupDate:     req.Date.Format("2006-01-02"),
		PickupTime:     slot,
		ExpectedCount:  req.ExpectedCount,
	})
	if err != nil {
		c.logger.Error("Delhivery API error", zap.String("op", "schedule_pickup"), zap.Error(err))
		return &courier.SchedulePickupResult{Outcome: courier.Fail("pickup request failed: %v", err)}
	}
	if resp.Error != "" {
		return &courier.SchedulePickupResult{
			Outcome: courier.Fail("pickup rejected: %s", resp.Error),
			Data:    resp,
		}
	}

	return &courier.SchedulePickupResult{
		Outcome:  courier.OK("pickup scheduled"),
		PickupID: fmt.Sprintf("%d", resp.PickupID),
		Data:     resp,
	}
}

// CancelShipment cancels a waybill via the package edit endpoint.
func (c *Client) CancelShipment(ctx context.Context, req *courier.CancelShipmentRequest) *courier.CancelShipmentResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &courier.CancelShipmentResult{Outcome: courier.Fail("auth token unavailable")}
	}

	resp, err := c.api.EditPackage(ctx, token, &EditRequest{Waybill: req.AWB, Cancellation: true})
	if err != nil {
		c.logger.Error("Delhivery API error", zap.String("op", "cancel_shipment"), zap.Error(err))
		return &courier.CancelShipmentResult{Outcome: courier.Fail("cancellation failed: %v", err)}
	}
	if !resp.Status {
		return &courier.CancelShipmentResult{
			Outcome: courier.Fail("cancellation rejected: %s", resp.Remarks),
			Data:    resp,
		}
	}
	return &courier.CancelShipmentResult{Outcome: courier.OK("shipment cancelled"), Data: resp}
}

// TrackShipment fetches the scan history for a waybill, ordered ascending
// by scan time.
func (c *Client) TrackShipment(ctx context.Context, req *courier.TrackRequest) *courier.TrackResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &courier.TrackResult{Outcome: courier.Fail("auth token unavailable")}
	}

	resp, err := c.api.Track(ctx, token, req.AWB)
	if err != nil {
		c.logger.Error("Delhivery API error", zap.String("op", "track"), zap.Error(err))
		return &courier.TrackResult{Outcome: courier.Fail("tracking failed: %v", err)}
	}
	if resp.Error != "" || len(resp.ShipmentData) == 0 {
		return &courier.TrackResult{
			Outcome: courier.Fail("no tracking data: %s", resp.Error),
			Data:    resp,
		}
	}

	sh := resp.ShipmentData[0].Shipment
	events := make([]courier.TrackingEvent, 0, len(sh.Scans))
	for _, s := range sh.Scans {
		events = append(events, courier.TrackingEvent{
			Timestamp:   parseScanTime(s.ScanDetail.ScanDateTime),
			StatusCode:  s.ScanDetail.StatusCode,
			Description: s.ScanDetail.Scan,
			Location:    s.ScanDetail.ScannedLocation,
		})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })

	return &courier.TrackResult{
		Outcome:      courier.OK("tracking fetched"),
		Events:       events,
		VendorStatus: sh.Status.Status,
		Data:         resp,
	}
}

// NDRAction pushes a non-delivery instruction for a waybill.
func (c *Client) NDRAction(ctx context.Context, req *courier.NDRActionRequest) *courier.NDRActionResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &courier.NDRActionResult{Outcome: courier.Fail("auth token unavailable")}
	}

	apiReq := &NDRRequest{Waybill: req.AWB, Phone: req.NewPhone}
	switch req.Action {
	case courier.NDRReattempt:
		apiReq.Act = "RE-ATTEMPT"
	case courier.NDRReschedule:
		apiReq.Act = "DEFER_DLV"
		if req.DeferredDate != nil {
			apiReq.DeferredDate = req.DeferredDate.Format("2006-01-02")
		}
	case courier.NDRReturn:
		apiReq.Act = "RTO"
	default:
		return &courier.NDRActionResult{Outcome: courier.Fail("unsupported ndr action %q", req.Action)}
	}
	if req.NewAddress != nil {
		apiReq.Address = joinLines(req.NewAddress.Line1, req.NewAddress.Line2)
	}

	resp, err := c.api.UpdateNDR(ctx, token, apiReq)
	if err != nil {
		c.logger.Error("Delhivery API error", zap.String("op", "ndr_action"), zap.Error(err))
		return &courier.NDRActionResult{Outcome: courier.Fail("ndr update failed: %v", err)}
	}
	if !resp.Status {
		return &courier.NDRActionResult{
			Outcome: courier.Fail("ndr update rejected: %s", resp.Error),
			Data:    resp,
		}
	}
	return &courier.NDRActionResult{Outcome: courier.OK("ndr action %s accepted", req.Action), Data: resp}
}

// ============================================================================
// Helpers
// ============================================================================

func joinLines(l1, l2 string) string {
	if l2 == "" {
		return l1
	}
	return l1 + ", " + l2
}

func countryOrDefault(c string) string {
	if c == "" {
		return "India"
	}
	return c
}

// parseScanTime accepts the timestamp shapes Delhivery emits.
func parseScanTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

var _ courier.Vendor = (*Client)(nil)
