// Package shiprocket provides the Shiprocket aggregator network adapter.
package shiprocket

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/parceldesk/courierhub/pkg/courier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tokenTTL is shorter than the 10-day validity Shiprocket grants so that a
// revoked token self-heals within a day.
const tokenTTL = 24 * time.Hour

// activityTimeLayout is the scan timestamp format Shiprocket emits.
const activityTimeLayout = "2006-01-02 15:04:05"

// Config holds Shiprocket configuration.
type Config struct {
	Email    string
	Password string
	BaseURL  string
	UseMock  bool
}

// Client is the Shiprocket vendor adapter. Shiprocket is itself an
// aggregator, so a booked shipment reports the downstream carrier it was
// sub-brokered to.
type Client struct {
	config Config
	api    APIClient
	tokens *courier.TokenSource
	logger *otelzap.Logger
	tracer trace.Tracer

	// shipmentIDs remembers order/shipment IDs per waybill so cancellation
	// can map an AWB back to the vendor's order handle.
	shipments *shipmentIndex
}

// New creates a new Shiprocket adapter. If cfg.UseMock is true it uses the
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
		config:    cfg,
		api:       api,
		logger:    logger,
		tracer:    tracer,
		shipments: newShipmentIndex(),
	}
	c.tokens = &courier.TokenSource{
		CacheKey: "token:" + courier.VendorShiprocket.String(),
		Cache:    tokenCache,
		Generate: func(ctx context.Context) (string, time.Duration, error) {
			if cfg.Email == "" || cfg.Password == "" {
				return "", 0, courier.ErrAuthTokenUnavailable
			}
			resp, err := api.Login(ctx, &LoginRequest{Email: cfg.Email, Password: cfg.Password})
			if err != nil {
				return "", 0, fmt.Errorf("shiprocket login: %w", err)
			}
			if resp.Token == "" {
				return "", 0, courier.ErrAuthTokenUnavailable
			}
			return resp.Token, tokenTTL, nil
		},
	}
	return c
}

// Code returns the vendor code.
func (c *Client) Code() courier.VendorCode {
	return courier.VendorShiprocket
}

// Name returns the vendor name.
func (c *Client) Name() string {
	return "Shiprocket"
}

// CheckServiceability asks Shiprocket for couriers covering the route. A
// route with zero available couriers is a successful "not serviceable"
// answer, not a failure.
func (c *Client) CheckServiceability(ctx context.Context, req *courier.ServiceabilityRequest) *courier.ServiceabilityResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.logger.Warn("Shiprocket token unavailable, degrading to not serviceable", zap.Error(err))
		return &courier.ServiceabilityResult{Outcome: courier.Fail("auth token unavailable")}
	}

	resp, err := c.api.Serviceability(ctx, token, &ServiceabilityRequest{
		PickupPostcode:   req.PickupPincode,
		DeliveryPostcode: req.DeliveryPincode,
		Weight:           req.Weight,
		COD:              req.PaymentMode == courier.PaymentCOD,
		DeclaredValue:    req.CollectableAmount,
	})
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.String("op", "serviceability"), zap.Error(err))
		return &courier.ServiceabilityResult{Outcome: courier.Fail("serviceability lookup failed: %v", err)}
	}

	couriers := resp.Data.AvailableCourierCompanies
	if len(couriers) == 0 {
		return &courier.ServiceabilityResult{
			Outcome: courier.OK("route %s -> %s not covered", req.PickupPincode, req.DeliveryPincode),
			Data:    resp,
		}
	}

	// The cheapest option's ETD stands in for the route estimate.
	best := couriers[0]
	for _, ac := range couriers[1:] {
		if ac.Rate < best.Rate {
			best = ac
		}
	}
	etd, _ := strconv.Atoi(strings.TrimSpace(best.EstimatedDays))

	codAvailable := false
	for _, ac := range couriers {
		if ac.CODCharges > 0 || req.PaymentMode == courier.PaymentCOD {
			codAvailable = true
			break
		}
	}

	return &courier.ServiceabilityResult{
		Outcome:               courier.OK("%d couriers available", len(couriers)),
		Serviceable:           true,
		CODAvailable:          codAvailable,
		EstimatedDeliveryDays: etd,
		Data:                  resp,
	}
}

// RegisterHub registers a pickup location. A duplicate nickname is
// converted to a no-op success.
func (c *Client) RegisterHub(ctx context.Context, req *courier.RegisterHubRequest) *courier.RegisterHubResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &courier.RegisterHubResult{Outcome: courier.Fail("auth token unavailable")}
	}

	addr := req.Hub.Address
	resp, err := c.api.AddPickupLocation(ctx, token, &PickupLocationRequest{
		PickupLocation: req.Hub.Name,
		Name:           addr.Name,
		Email:          addr.Email,
		Phone:          addr.Phone,
		Address:        addr.Line1,
		Address2:       addr.Line2,
		City:           addr.City,
		State:          addr.State,
		Country:        countryOrDefault(addr.Country),
		PinCode:        addr.Pincode,
	})
	if err != nil {
		if courier.IsAlreadyRegisteredMessage(err.Error()) {
			return &courier.RegisterHubResult{
				Outcome:           courier.OK("hub already registered"),
				HubID:             req.Hub.Name,
				AlreadyRegistered: true,
			}
		}
		c.logger.Error("Shiprocket API error", zap.String("op", "register_hub"), zap.Error(err))
		return &courier.RegisterHubResult{Outcome: courier.Fail("pickup location failed: %v", err)}
	}

	if !resp.Success {
		if courier.IsAlreadyRegisteredMessage(resp.Message) {
			return &courier.RegisterHubResult{
				Outcome:           courier.OK("hub already registered"),
				HubID:             req.Hub.Name,
				AlreadyRegistered: true,
				Data:              resp,
			}
		}
		return &courier.RegisterHubResult{
			Outcome: courier.Fail("pickup location rejected: %s", resp.Message),
			Data:    resp,
		}
	}

	return &courier.RegisterHubResult{
		Outcome: courier.OK("hub registered"),
		HubID:   resp.Address.PickupLocation,
		Data:    resp,
	}
}

// CreateShipment books an adhoc order and assigns a waybill in two calls.
// An order created without a waybill is reported as a failure so the caller
// can retry cleanly under a fresh order reference.
func (c *Client) CreateShipment(ctx context.Context, req *courier.CreateShipmentRequest) *courier.CreateShipmentResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &courier.CreateShipmentResult{Outcome: courier.Fail("auth token unavailable")}
	}

	c.logger.Info("Creating Shiprocket shipment", zap.String("order_ref", req.OrderRef))

	paymentMethod := "Prepaid"
	subTotal := req.Package.DeclaredValue
	if req.PaymentMode == courier.PaymentCOD {
		paymentMethod = "COD"
		subTotal = req.CollectableAmount
	}

	order, err := c.api.CreateOrder(ctx, token, &OrderRequest{
		OrderID:           req.OrderRef,
		OrderDate:         time.Now().Format("2006-01-02 15:04"),
		PickupLocation:    req.Hub.Name,
		BillingName:       req.Consignee.Name,
		BillingAddress:    joinLines(req.Consignee.Line1, req.Consignee.Line2),
		BillingCity:       req.Consignee.City,
		BillingPincode:    req.Consignee.Pincode,
		BillingState:      req.Consignee.State,
		BillingCountry:    countryOrDefault(req.Consignee.Country),
		BillingPhone:      req.Consignee.Phone,
		ShippingIsBilling: true,
		OrderItems: []OrderItem{{
			Name:         descriptionOrDefault(req.Package.Description),
			SKU:          req.OrderRef,
			Units:        1,
			SellingPrice: req.Package.DeclaredValue,
		}},
		PaymentMethod: paymentMethod,
		SubTotal:      subTotal,
		Length:        req.Package.Length,
		Breadth:       req.Package.Width,
		Height:        req.Package.Height,
		Weight:        req.Package.DeadWeight,
	})
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.String("op", "create_order"), zap.Error(err))
		return &courier.CreateShipmentResult{Outcome: courier.Fail("order creation failed: %v", err)}
	}
	if order.ShipmentID == 0 {
		return &courier.CreateShipmentResult{
			Outcome: courier.Fail("order created without shipment id, status %q", order.Status),
			Data:    order,
		}
	}

	awbResp, err := c.api.AssignAWB(ctx, token, order.ShipmentID)
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.String("op", "assign_awb"), zap.Error(err))
		return &courier.CreateShipmentResult{Outcome: courier.Fail("awb assignment failed: %v", err), Data: order}
	}
	awb := awbResp.Response.Data.AWBCode
	if awbResp.AWBAssignStatus != 1 || awb == "" {
		return &courier.CreateShipmentResult{
			Outcome: courier.Fail("awb assignment rejected: %s", awbResp.Message),
			Data:    awbResp,
		}
	}

	c.shipments.put(awb, order.OrderID, order.ShipmentID)

	return &courier.CreateShipmentResult{
		Outcome:     courier.OK("shipment created"),
		AWB:         awb,
		CourierName: awbResp.Response.Data.CourierName,
		Data:        awbResp,
	}
}

// SchedulePickup schedules pickup for all shipments booked since the last
// pickup from the hub. Shiprocket keys pickups by shipment, not hub, so the
// locally indexed shipment IDs are submitted.
func (c *Client) SchedulePickup(ctx context.Context, req *courier.SchedulePickupRequest) *courier.SchedulePickupResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &courier.SchedulePickupResult{Outcome: courier.Fail("auth token unavailable")}
	}

	ids := c.shipments.pendingShipmentIDs()
	if len(ids) == 0 {
		return &courier.SchedulePickupResult{Outcome: courier.Fail("no shipments awaiting pickup")}
	}

	resp, err := c.api.GeneratePickup(ctx, token, &GeneratePickupRequest{
		ShipmentIDs: ids,
		PickupDate:  req.Date.Format("2006-01-02"),
	})
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.String("op", "schedule_pickup"), zap.Error(err))
		return &courier.SchedulePickupResult{Outcome: courier.Fail("pickup request failed: %v", err)}
	}
	if resp.PickupStatus != 1 {
		return &courier.SchedulePickupResult{
			Outcome: courier.Fail("pickup rejected: %s", resp.Message),
			Data:    resp,
		}
	}

	c.shipments.markPickedUp(ids)

	return &courier.SchedulePickupResult{
		Outcome:  courier.OK("pickup scheduled for %s", resp.Response.PickupScheduledDate),
		PickupID: resp.Response.PickupTokenNumber,
		Data:     resp,
	}
}

// CancelShipment cancels the order behind a waybill. Only waybills booked
// through this adapter instance can be mapped back to their order ID.
func (c *Client) CancelShipment(ctx context.Context, req *courier.CancelShipmentRequest) *courier.CancelShipmentResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &courier.CancelShipmentResult{Outcome: courier.Fail("auth token unavailable")}
	}

	orderID, ok := c.shipments.orderID(req.AWB)
	if !ok {
		return &courier.CancelShipmentResult{Outcome: courier.Fail("unknown awb %s, cannot resolve order", req.AWB)}
	}

	resp, err := c.api.CancelOrders(ctx, token, []int64{orderID})
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.String("op", "cancel_shipment"), zap.Error(err))
		return &courier.CancelShipmentResult{Outcome: courier.Fail("cancellation failed: %v", err)}
	}
	if resp.Status != 200 {
		return &courier.CancelShipmentResult{
			Outcome: courier.Fail("cancellation rejected: %s", resp.Message),
			Data:    resp,
		}
	}

	c.shipments.remove(req.AWB)

	return &courier.CancelShipmentResult{Outcome: courier.OK("shipment cancelled"), Data: resp}
}

// TrackShipment fetches scan activities for a waybill, ordered ascending by
// scan time.
func (c *Client) TrackShipment(ctx context.Context, req *courier.TrackRequest) *courier.TrackResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &courier.TrackResult{Outcome: courier.Fail("auth token unavailable")}
	}

	resp, err := c.api.TrackByAWB(ctx, token, req.AWB)
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.String("op", "track"), zap.Error(err))
		return &courier.TrackResult{Outcome: courier.Fail("tracking failed: %v", err)}
	}
	if resp.TrackingData.Error != "" {
		return &courier.TrackResult{
			Outcome: courier.Fail("no tracking data: %s", resp.TrackingData.Error),
			Data:    resp,
		}
	}

	events := make([]courier.TrackingEvent, 0, len(resp.TrackingData.ShipmentTrackActivities))
	for _, a := range resp.TrackingData.ShipmentTrackActivities {
		ts, err := time.Parse(activityTimeLayout, a.Date)
		if err != nil {
			ts = time.Time{}
		}
		events = append(events, courier.TrackingEvent{
			Timestamp:   ts,
			StatusCode:  a.Status,
			Description: a.Activity,
			Location:    a.Location,
		})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })

	var vendorStatus string
	if len(resp.TrackingData.ShipmentTrack) > 0 {
		vendorStatus = resp.TrackingData.ShipmentTrack[0].CurrentStatus
	}

	return &courier.TrackResult{
		Outcome:      courier.OK("tracking fetched"),
		Events:       events,
		VendorStatus: vendorStatus,
		Data:         resp,
	}
}

// NDRAction pushes a non-delivery instruction. Shiprocket has no deferred
// reattempt, so a reschedule becomes a reattempt with a deferred date.
func (c *Client) NDRAction(ctx context.Context, req *courier.NDRActionRequest) *courier.NDRActionResult {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &courier.NDRActionResult{Outcome: courier.Fail("auth token unavailable")}
	}

	apiReq := &NDRActionRequest{Comments: req.Remarks, Phone: req.NewPhone}
	switch req.Action {
	case courier.NDRReattempt:
		apiReq.Action = "re-attempt"
	case courier.NDRReschedule:
		apiReq.Action = "re-attempt"
		if req.DeferredDate != nil {
			apiReq.DeferredDate = req.DeferredDate.Format("2006-01-02")
		}
	case courier.NDRReturn:
		apiReq.Action = "return"
	default:
		return &courier.NDRActionResult{Outcome: courier.Fail("unsupported ndr action %q", req.Action)}
	}
	if req.NewAddress != nil {
		apiReq.Address = joinLines(req.NewAddress.Line1, req.NewAddress.Line2)
	}

	resp, err := c.api.NDRAction(ctx, token, req.AWB, apiReq)
	if err != nil {
		c.logger.Error("Shiprocket API error", zap.String("op", "ndr_action"), zap.Error(err))
		return &courier.NDRActionResult{Outcome: courier.Fail("ndr update failed: %v", err)}
	}
	if !resp.Success {
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

func descriptionOrDefault(d string) string {
	if d == "" {
		return "Parcel"
	}
	return d
}

var _ courier.Vendor = (*Client)(nil)
