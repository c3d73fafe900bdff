package xpressbees

import (
	"context"
)

// APIClient defines the Xpressbees API operations the adapter consumes.
// Login is tokenless; every other call carries the bearer token resolved by
// the adapter's token source.
type APIClient interface {
	// Login exchanges credentials for a bearer token.
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)

	// Serviceability lists services covering a route.
	Serviceability(ctx context.Context, token string, req *ServiceabilityRequest) (*ServiceabilityResponse, error)

	// CreateShipment books a shipment with inline consigner details.
	CreateShipment(ctx context.Context, token string, req *ShipmentRequest) (*ShipmentResponse, error)

	// CancelShipment cancels a booked waybill.
	CancelShipment(ctx context.Context, token, awb string) (*CancelResponse, error)

	// Track fetches the scan history for a waybill.
	Track(ctx context.Context, token, awb string) (*TrackResponse, error)

	// NDRAction submits a non-delivery instruction for a waybill.
	NDRAction(ctx context.Context, token string, req *NDRRequest) (*NDRResponse, error)
}

// ============================================================================
// API Request/Response Types (match Xpressbees shipment2 API structure)
// ============================================================================

// LoginRequest is the password-grant exchange.
// POST /api/users/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token in Data.
type LoginResponse struct {
	Status bool   `json:"status"`
	Data   string `json:"data"`
}

// ServiceabilityRequest queries route coverage.
// POST /api/courier/serviceability
type ServiceabilityRequest struct {
	OriginPincode      string  `json:"origin"`
	DestinationPincode string  `json:"destination"`
	PaymentType        string  `json:"payment_type"` // "prepaid" | "cod"
	OrderAmount        float64 `json:"order_amount"`
	Weight             float64 `json:"weight"` // grams
	Length             float64 `json:"length,omitempty"`
	Breadth            float64 `json:"breadth,omitempty"`
	Height             float64 `json:"height,omitempty"`
}

// ServiceOption is one serviceable courier product.
type ServiceOption struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	FreightCharge float64 `json:"freight_charges"`
	CODCharge    float64  `json:"cod_charges"`
	TotalCharge  float64  `json:"total_charges"`
	MinWeight    float64  `json:"min_weight"`
	ChargedWeight float64 `json:"chargeable_weight"`
}

// ServiceabilityResponse lists serviceable products; an empty Data means
// the route is not covered.
type ServiceabilityResponse struct {
	Status  bool            `json:"status"`
	Data    []ServiceOption `json:"data"`
	Message string          `json:"message,omitempty"`
}

// ShipmentAddress is an inline address on a shipment payload.
type ShipmentAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Address2 string `json:"address_2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Phone   string `json:"phone"`
}

// OrderItem is one line item of a shipment.
type OrderItem struct {
	Name  string  `json:"name"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
	SKU   string  `json:"sku"`
}

// ShipmentRequest books a shipment. Xpressbees carries the pickup address
// inline rather than via a registered hub.
// POST /api/shipments2
type ShipmentRequest struct {
	OrderNumber     string          `json:"order_number"`
	PaymentType     string          `json:"payment_type"` // "prepaid" | "cod"
	OrderAmount     float64         `json:"order_amount"`
	PackageWeight   float64         `json:"package_weight"` // grams
	PackageLength   float64         `json:"package_length"` // cm
	PackageBreadth  float64         `json:"package_breadth"`
	PackageHeight   float64         `json:"package_height"`
	Consignee       ShipmentAddress `json:"consignee"`
	Pickup          ShipmentAddress `json:"pickup"`
	OrderItems      []OrderItem     `json:"order_items"`
	CollectableAmount float64       `json:"collectable_amount"`
	IsReverse       bool            `json:"is_reverse,omitempty"`
}

// ShipmentResponse reports shipment creation.
type ShipmentResponse struct {
	Status bool `json:"status"`
	Data   struct {
		OrderID     int64  `json:"order_id"`
		ShipmentID  int64  `json:"shipment_id"`
		AWBNumber   string `json:"awb_number"`
		CourierID   int64  `json:"courier_id"`
		CourierName string `json:"courier_name"`
		Status      string `json:"status"`
		Label       string `json:"label"`
	} `json:"data"`
	Message string `json:"message,omitempty"`
}

// CancelResponse reports cancellation.
// POST /api/shipments2/cancel
type CancelResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
}

// TrackEvent is one tracking scan.
type TrackEvent struct {
	StatusCode string `json:"status_code"`
	Message    string `json:"message"`
	Location   string `json:"location"`
	EventTime  string `json:"event_time"` // "2006-01-02 15:04:05"
}

// TrackResponse is the tracking payload for one waybill.
// GET /api/shipments2/track/{awb}
type TrackResponse struct {
	Status bool `json:"status"`
	Data   struct {
		AWBNumber string       `json:"awb_number"`
		Status    string       `json:"status"`
		History   []TrackEvent `json:"history"`
	} `json:"data"`
	Message string `json:"message,omitempty"`
}

// NDRRequest submits a non-delivery instruction.
// POST /api/ndr/create
type NDRRequest struct {
	AWBNumber    string `json:"awb"`
	Action       string `json:"action"` // "re-attempt" | "change_address" | "rto"
	Remarks      string `json:"remarks,omitempty"`
	DeferredDate string `json:"deferred_date,omitempty"` // YYYY-MM-DD
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
}

// NDRResponse reports the NDR submission.
type NDRResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
}

// APIError represents an error from the Xpressbees API.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}
