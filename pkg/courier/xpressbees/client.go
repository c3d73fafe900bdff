// Package xpressbees provides the Xpressbees courier network adapter.
package xpressbees

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

// tokenTTL bounds how long a login token is held in the token cache.
const tokenTTL = 24 * time.Hour

// eventTimeLayout is the scan timestamp format Xpressbees emits.
const eventTimeLayout = "2006-01-02 15:04:05"

// Config holds Xpressbees configuration.
type Config struct {
	Email    string
	Password string
	BaseURL  string
	UseMock  bool
}

// Client is the Xpressbees vendor adapter. Xpressbees carries pickup
// addresses inline on each shipment and auto-schedules pickup on booking,
// so hub registration and pickup scheduling are local no-ops.
type Client struct {
	config Config
	api    APIClient
	tokens *courier.TokenSource
	logger *otelzap.Logger
	tracer trace.Tracer
}

// New creates a new Xpressbees adapter. If cfg.UseMock is true it uses the
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
	return NewWithAPIClient(cfg, api, tokenCache, logger, tracer)
}

// NewWithAPIClient creates an adapter with a custom API client.
func NewWithAPIClient(cfg Config, api APIClient, tokenCache courier.TokenCache, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	c := &Client{
		config: cfg,
		api:    api,
		logger: logger,
		tracer: tracer,
	}
	c.tokens = &courier.TokenSource{
		CacheKey: "token:" + courier.VendorXpressbees.String(),
		Cache:    tokenCache,
		Generate: func(ctx context.Context) (string, time.Duration, error) {
			if cfg.Email == "" || cfg.Password == "" {
				return "", 0, courier.ErrAuthTokenUnavailable
			}
			resp, err := api.Login(ctx, &LoginRequest{Email: cfg.Email, Password: cfg.Password})
			if err != nil {
				return "", 0, fmt.Errorf("xpressbees login: %w", err)
			}
			if !resp.Status || resp.Data == "" {
				return "", 0, courier.ErrAuthTokenUnavailable
			}
			return resp.Data, tokenTTL, nil
		},
	}
	return c
}

// Code returns the vendor code.
func (c *Client) Code() courier.VendorCode {
	return courier.VendorXpressbees
}

// Name returns the vendor name.
func (c *Client) Name() string {
	return "Xpressbees"
}

// CheckServiceability asks for serviceable products on the route. Zero
// products is a successful "not serviceable" answer.
func (c *Client) CheckServiceability(ctx context.Context, req *courier.ServiceabilityRequest) *courier.ServiceabilityResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.logger.Warn("Xpressbees token unavailable, degrading to not serviceable", zap.Error(err))
		return &courier.ServiceabilityResult{Outcome: courier.Fail("auth token unavailable")}
	}

	paymentType := "prepaid"
	if req.PaymentMode == courier.PaymentCOD {
		paymentType = "cod"
	}
	resp, err := c.api.Serviceability(ctx, token, &ServiceabilityRequest{
		OriginPincode:      req.PickupPincode,
		DestinationPincode: req.DeliveryPincode,
		PaymentType:        paymentType,
		OrderAmount:        req.CollectableAmount,
		Weight:             req.Weight * 1000, // kg -> grams
	})
	if err != nil {
		c.logger.Error("Xpressbees API error", zap.String("op", "serviceability"), zap.Error(err))
		return &courier.ServiceabilityResult{Outcome: courier.Fail("serviceability lookup failed: %v", err)}
	}

	if !resp.Status || len(resp.Data) == 0 {
		return &courier.ServiceabilityResult{
			Outcome: courier.OK("route %s -> %s not covered", req.PickupPincode, req.DeliveryPincode),
			Data:    resp,
		}
	}

	codAvailable := false
	for _, opt := range resp.Data {
		if opt.CODCharge > 0 {
			codAvailable = true
			break
		}
	}

	return &courier.ServiceabilityResult{
		Outcome:      courier.OK("%d services available", len(resp.Data)),
		Serviceable:  true,
		CODAvailable: codAvailable,
		Data:         resp,
	}
}

// RegisterHub is a local no-op: Xpressbees takes the pickup address inline
// on each shipment payload instead of a registered location.
func (c *Client) RegisterHub(ctx context.Context, req *courier.RegisterHubRequest) *courier.RegisterHubResult {
	return &courier.RegisterHubResult{
		Outcome:           courier.OK("hub registration not required, addresses travel with shipments"),
		HubID:             req.Hub.Name,
		AlreadyRegistered: true,
	}
}

// CreateShipment books a shipment with consignee and pickup inline.
func (c *Client) CreateShipment(ctx context.Context, req *courier.CreateShipmentRequest) *courier.CreateShipmentResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &courier.CreateShipmentResult{Outcome: courier.Fail("auth token unavailable")}
	}

	c.logger.Info("Creating Xpressbees shipment", zap.String("order_ref", req.OrderRef))

	paymentType := "prepaid"
	var collectable float64
	if req.PaymentMode == courier.PaymentCOD {
		paymentType = "cod"
		collectable = req.CollectableAmount
	}

	resp, err := c.api.CreateShipment(ctx, token, &ShipmentRequest{
		OrderNumber:    req.OrderRef,
		PaymentType:    paymentType,
		OrderAmount:    req.Package.DeclaredValue,
		PackageWeight:  req.Package.DeadWeight * 1000, // kg -> grams
		PackageLength:  req.Package.Length,
		PackageBreadth: req.Package.Width,
		PackageHeight:  req.Package.Height,
		Consignee:      addressToAPI(req.Consignee),
		Pickup:         hubToAPI(req.Hub),
		OrderItems: []OrderItem{{
			Name:  descriptionOrDefault(req.Package.Description),
			Qty:   1,
			Price: req.Package.DeclaredValue,
			SKU:   req.OrderRef,
		}},
		CollectableAmount: collectable,
		IsReverse:         req.Reverse,
	})
	if err != nil {
		c.logger.Error("Xpressbees API error", zap.String("op", "create_shipment"), zap.Error(err))
		return &courier.CreateShipmentResult{Outcome: courier.Fail("shipment booking failed: %v", err)}
	}
	if !resp.Status || resp.Data.AWBNumber == "" {
		return &courier.CreateShipmentResult{
			Outcome: courier.Fail("shipment booking rejected: %s", resp.Message),
			Data:    resp,
		}
	}

	return &courier.CreateShipmentResult{
		Outcome:     courier.OK("shipment created"),
		AWB:         resp.Data.AWBNumber,
		CourierName: resp.Data.CourierName,
		LabelURL:    resp.Data.Label,
		Data:        resp,
	}
}

// SchedulePickup is a local no-op: the vendor schedules pickup when the
// shipment is booked.
func (c *Client) SchedulePickup(ctx context.Context, req *courier.SchedulePickupRequest) *courier.SchedulePickupResult {
	return &courier.SchedulePickupResult{
		Outcome: courier.OK("pickup auto-scheduled at booking"),
	}
}

// CancelShipment cancels a booked waybill.
func (c *Client) CancelShipment(ctx context.Context, req *courier.CancelShipmentRequest) *courier.CancelShipmentResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &courier.CancelShipmentResult{Outcome: courier.Fail("auth token unavailable")}
	}

	resp, err := c.api.CancelShipment(ctx, token, req.AWB)
	if err != nil {
		c.logger.Error("Xpressbees API error", zap.String("op", "cancel_shipment"), zap.Error(err))
		return &courier.CancelShipmentResult{Outcome: courier.Fail("cancellation failed: %v", err)}
	}
	if !resp.Status {
		return &courier.CancelShipmentResult{
			Outcome: courier.Fail("cancellation rejected: %s", resp.Message),
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
		c.logger.Error("Xpressbees API error", zap.String("op", "track"), zap.Error(err))
		return &courier.TrackResult{Outcome: courier.Fail("tracking failed: %v", err)}
	}
	if !resp.Status {
		return &courier.TrackResult{
			Outcome: courier.Fail("no tracking data: %s", resp.Message),
			Data:    resp,
		}
	}

	events := make([]courier.TrackingEvent, 0, len(resp.Data.History))
	for _, e := range resp.Data.History {
		ts, err := time.Parse(eventTimeLayout, e.EventTime)
		if err != nil {
			ts = time.Time{}
		}
		events = append(events, courier.TrackingEvent{
			Timestamp:   ts,
			StatusCode:  e.StatusCode,
			Description: e.Message,
			Location:    e.Location,
		})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })

	return &courier.TrackResult{
		Outcome:      courier.OK("tracking fetched"),
		Events:       events,
		VendorStatus: resp.Data.Status,
		Data:         resp,
	}
}

// NDRAction pushes a non-delivery instruction for a waybill.
func (c *Client) NDRAction(ctx context.Context, req *courier.NDRActionRequest) *courier.NDRActionResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &courier.NDRActionResult{Outcome: courier.Fail("auth token unavailable")}
	}

	apiReq := &NDRRequest{AWBNumber: req.AWB, Remarks: req.Remarks, Phone: req.NewPhone}
	switch req.Action {
	case courier.NDRReattempt:
		apiReq.Action = "re-attempt"
	case courier.NDRReschedule:
		apiReq.Action = "re-attempt"
		if req.DeferredDate != nil {
			apiReq.DeferredDate = req.DeferredDate.Format("2006-01-02")
		}
	case courier.NDRReturn:
		apiReq.Action = "rto"
	default:
		return &courier.NDRActionResult{Outcome: courier.Fail("unsupported ndr action %q", req.Action)}
	}
	if req.NewAddress != nil {
		apiReq.Action = "change_address"
		apiReq.Address = joinLines(req.NewAddress.Line1, req.NewAddress.Line2)
	}

	resp, err := c.api.NDRAction(ctx, token, apiReq)
	if err != nil {
		c.logger.Error("Xpressbees API error", zap.String("op", "ndr_action"), zap.Error(err))
		return &courier.NDRActionResult{Outcome: courier.Fail("ndr update failed: %v", err)}
	}
	if !resp.Status {
		return &courier.NDRActionResult{
			Outcome: courier.Fail("ndr update rejected: %s", resp.Message),
			Data:    resp,
		}
	}
	return &courier.NDRActionResult{Outcome: courier.OK("ndr action %s accepted", req.Action), Data: resp}
}

// ============================================================================
// Helpers
// ============================================================================

func addressToAPI(a courier.Address) ShipmentAddress {
	return ShipmentAddress{
		Name:     a.Name,
		Address:  a.Line1,
		Address2: a.Line2,
		City:     a.City,
		State:    a.State,
		Pincode:  a.Pincode,
		Phone:    a.Phone,
	}
}

func hubToAPI(h courier.Hub) ShipmentAddress {
	addr := addressToAPI(h.Address)
	if addr.Name == "" {
		addr.Name = h.Name
	}
	return addr
}

func joinLines(l1, l2 string) string {
	if l2 == "" {
		return l1
	}
	return l1 + ", " + l2
}

func descriptionOrDefault(d string) string {
	if d == "" {
		return "Parcel"
	}
	return d
}

var _ courier.Vendor = (*Client)(nil)
