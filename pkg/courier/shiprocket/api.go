package shiprocket

import (
	"context"
)

// APIClient defines the Shiprocket API operations the adapter consumes.
// Login is tokenless; every other call carries the bearer token resolved
// by the adapter's token source.
type APIClient interface {
	// Login exchanges credentials for a bearer token.
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)

	// Serviceability lists couriers able to serve a route.
	Serviceability(ctx context.Context, token string, req *ServiceabilityRequest) (*ServiceabilityResponse, error)

	// AddPickupLocation registers a pickup address.
	AddPickupLocation(ctx context.Context, token string, req *PickupLocationRequest) (*PickupLocationResponse, error)

	// CreateOrder creates an adhoc order and returns the shipment ID.
	CreateOrder(ctx context.Context, token string, req *OrderRequest) (*OrderResponse, error)

	// AssignAWB allocates a waybill to a shipment.
	AssignAWB(ctx context.Context, token string, shipmentID int64) (*AssignAWBResponse, error)

	// GeneratePickup schedules pickup for shipments.
	GeneratePickup(ctx context.Context, token string, req *GeneratePickupRequest) (*GeneratePickupResponse, error)

	// CancelOrders cancels orders by ID.
	CancelOrders(ctx context.Context, token string, orderIDs []int64) (*CancelResponse, error)

	// TrackByAWB fetches tracking activities for a waybill.
	TrackByAWB(ctx context.Context, token, awb string) (*TrackResponse, error)

	// NDRAction submits a non-delivery instruction for a waybill.
	NDRAction(ctx context.Context, token, awb string, req *NDRActionRequest) (*NDRActionResponse, error)
}

// ============================================================================
// API Request/Response Types (match Shiprocket REST API v1 structure)
// ============================================================================

// LoginRequest is the password-grant exchange.
// POST /v1/external/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token.
type LoginResponse struct {
	Token     string `json:"token"`
	FirstName string `json:"first_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// ServiceabilityRequest queries route coverage.
// GET /v1/external/courier/serviceability
type ServiceabilityRequest struct {
	PickupPostcode   string
	DeliveryPostcode string
	Weight           float64 // kg
	COD              bool
	DeclaredValue    float64
}

// AvailableCourier is one courier option on a serviceable route.
type AvailableCourier struct {
	CourierCompanyID int64   `json:"courier_company_id"`
	CourierName      string  `json:"courier_name"`
	Rate             float64 `json:"rate"`
	CODCharges       float64 `json:"cod_charges"`
	EstimatedDays    string  `json:"estimated_delivery_days"`
	Rating           float64 `json:"rating"`
	IsSurface        bool    `json:"is_surface"`
}

// ServiceabilityResponse lists available couriers.
type ServiceabilityResponse struct {
	Status int `json:"status"`
	Data   struct {
		AvailableCourierCompanies []AvailableCourier `json:"available_courier_companies"`
	} `json:"data"`
	Message string `json:"message,omitempty"`
}

// PickupLocationRequest registers a pickup address.
// POST /v1/external/settings/company/addpickup
type PickupLocationRequest struct {
	PickupLocation string `json:"pickup_location"` // nickname, unique
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	Address2       string `json:"address_2,omitempty"`
	City           string `json:"city"`
	State          string `json:"state"`
	Country        string `json:"country"`
	PinCode        string `json:"pin_code"`
}

// PickupLocationResponse reports pickup registration.
type PickupLocationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Address struct {
		ID             int64  `json:"id"`
		PickupLocation string `json:"pickup_location"`
	} `json:"address"`
}

// OrderItem is one line of an adhoc order.
type OrderItem struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Units        int     `json:"units"`
	SellingPrice float64 `json:"selling_price"`
}

// OrderRequest creates an adhoc order.
// POST /v1/external/orders/create/adhoc
type OrderRequest struct {
	OrderID         string      `json:"order_id"`
	OrderDate       string      `json:"order_date"` // YYYY-MM-DD HH:MM
	PickupLocation  string      `json:"pickup_location"`
	BillingName     string      `json:"billing_customer_name"`
	BillingAddress  string      `json:"billing_address"`
	BillingCity     string      `json:"billing_city"`
	BillingPincode  string      `json:"billing_pincode"`
	BillingState    string      `json:"billing_state"`
	BillingCountry  string      `json:"billing_country"`
	BillingPhone    string      `json:"billing_phone"`
	ShippingIsBilling bool      `json:"shipping_is_billing"`
	OrderItems      []OrderItem `json:"order_items"`
	PaymentMethod   string      `json:"payment_method"` // "Prepaid" | "COD"
	SubTotal        float64     `json:"sub_total"`
	Length          float64     `json:"length"`
	Breadth         float64     `json:"breadth"`
	Height          float64     `json:"height"`
	Weight          float64     `json:"weight"` // kg
}

// OrderResponse reports order creation.
type OrderResponse struct {
	OrderID    int64  `json:"order_id"`
	ShipmentID int64  `json:"shipment_id"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
}

// AssignAWBResponse reports waybill allocation.
// POST /v1/external/courier/assign/awb
type AssignAWBResponse struct {
	AWBAssignStatus int `json:"awb_assign_status"`
	Response        struct {
		Data struct {
			AWBCode     string `json:"awb_code"`
			CourierName string `json:"courier_name"`
		} `json:"data"`
	} `json:"response"`
	Message string `json:"message,omitempty"`
}

// GeneratePickupRequest schedules pickup.
// POST /v1/external/courier/generate/pickup
type GeneratePickupRequest struct {
	ShipmentIDs []int64 `json:"shipment_id"`
	PickupDate  string  `json:"pickup_date,omitempty"` // YYYY-MM-DD
}

// GeneratePickupResponse reports pickup scheduling.
type GeneratePickupResponse struct {
	PickupStatus int `json:"pickup_status"`
	Response     struct {
		PickupScheduledDate string `json:"pickup_scheduled_date"`
		PickupTokenNumber   string `json:"pickup_token_number"`
	} `json:"response"`
	Message string `json:"message,omitempty"`
}

// CancelResponse reports order cancellation.
// POST /v1/external/orders/cancel
type CancelResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}

// TrackActivity is one tracking scan.
type TrackActivity struct {
	Date     string `json:"date"` // "2006-01-02 15:04:05"
	Status   string `json:"status"`
	Activity string `json:"activity"`
	Location string `json:"location"`
	SRStatus string `json:"sr-status"`
}

// TrackResponse is the tracking payload for one waybill.
// GET /v1/external/courier/track/awb/{awb}
type TrackResponse struct {
	TrackingData struct {
		TrackStatus   int             `json:"track_status"`
		ShipmentTrack []struct {
			AWBCode       string `json:"awb_code"`
			CurrentStatus string `json:"current_status"`
		} `json:"shipment_track"`
		ShipmentTrackActivities []TrackActivity `json:"shipment_track_activities"`
		Error                   string          `json:"error,omitempty"`
	} `json:"tracking_data"`
}

// NDRActionRequest submits a non-delivery instruction.
// POST /v1/external/ndr/{awb}/action
type NDRActionRequest struct {
	Action       string `json:"action"` // "re-attempt" | "return"
	Comments     string `json:"comments,omitempty"`
	DeferredDate string `json:"deferred_date,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
}

// NDRActionResponse reports the NDR submission.
type NDRActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// APIError represents an error from the Shiprocket API.
type APIError struct {
	StatusCode int               `json:"status_code"`
	Message    string            `json:"message"`
	Errors     map[string]any    `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}
