package delhivery

import (
	"context"
)

// APIClient defines the Delhivery API operations the adapter consumes.
// The token parameter is the resolved auth token; the mock ignores it.
type APIClient interface {
	// CheckPincode queries route coverage for a delivery pincode.
	CheckPincode(ctx context.Context, token, pincode string) (*PincodeResponse, error)

	// CreateWarehouse registers a client pickup warehouse.
	CreateWarehouse(ctx context.Context, token string, req *WarehouseRequest) (*WarehouseResponse, error)

	// CreateManifest books shipments and assigns waybills.
	CreateManifest(ctx context.Context, token string, req *ManifestRequest) (*ManifestResponse, error)

	// RequestPickup schedules a pickup from a registered warehouse.
	RequestPickup(ctx context.Context, token string, req *PickupRequest) (*PickupResponse, error)

	// EditPackage mutates a package; used with Cancellation=true to cancel.
	EditPackage(ctx context.Context, token string, req *EditRequest) (*EditResponse, error)

	// Track fetches scan history for a waybill.
	Track(ctx context.Context, token, waybill string) (*TrackResponse, error)

	// UpdateNDR pushes a deferred/reattempt/RTO instruction for a waybill.
	UpdateNDR(ctx context.Context, token string, req *NDRRequest) (*NDRResponse, error)
}

// ============================================================================
// API Request/Response Types (match Delhivery REST structure)
// ============================================================================

// PincodeResponse is the coverage answer for one pincode.
// GET /c/api/pin-codes/json?filter_codes={pin}
type PincodeResponse struct {
	DeliveryCodes []struct {
		PostalCode struct {
			Pin          string `json:"pin"`
			COD          string `json:"cod"`      // "Y"/"N"
			Prepaid      string `json:"pre_paid"` // "Y"/"N"
			Pickup       string `json:"pickup"`   // "Y"/"N"
			Repl         string `json:"repl"`     // reverse pickup "Y"/"N"
			District     string `json:"district"`
			StateCode    string `json:"state_code"`
			MaxWeight    float64 `json:"max_weight,omitempty"`
			MaxAmount    float64 `json:"max_amount,omitempty"`
		} `json:"postal_code"`
	} `json:"delivery_codes"`
}

// WarehouseRequest registers a pickup warehouse.
// POST /api/backend/clientwarehouse/create/
type WarehouseRequest struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email,omitempty"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state,omitempty"`
	Pin           string `json:"pin"`
	Country       string `json:"country"`
	ReturnAddress string `json:"return_address,omitempty"`
	ReturnPin     string `json:"return_pin,omitempty"`
	ReturnCity    string `json:"return_city,omitempty"`
	ReturnState   string `json:"return_state,omitempty"`
}

// WarehouseResponse reports warehouse registration.
type WarehouseResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		Name string `json:"name"`
	} `json:"data"`
}

// ManifestShipment is one shipment inside a manifest push.
type ManifestShipment struct {
	Name            string  `json:"name"`
	Address         string  `json:"add"`
	Pin             string  `json:"pin"`
	City            string  `json:"city"`
	State           string  `json:"state"`
	Country         string  `json:"country"`
	Phone           string  `json:"phone"`
	OrderID         string  `json:"order"`
	PaymentMode     string  `json:"payment_mode"` // "Prepaid" | "COD"
	CODAmount       float64 `json:"cod_amount,omitempty"`
	TotalAmount     float64 `json:"total_amount,omitempty"`
	Weight          float64 `json:"weight"` // grams
	ShipmentLength  float64 `json:"shipment_length"`
	ShipmentWidth   float64 `json:"shipment_width"`
	ShipmentHeight  float64 `json:"shipment_height"`
	ProductsDesc    string  `json:"products_desc,omitempty"`
	ReturnReason    string  `json:"return_reason,omitempty"`
}

// ManifestRequest books shipments against a pickup location.
// POST /api/cmu/create.json
type ManifestRequest struct {
	Shipments      []ManifestShipment `json:"shipments"`
	PickupLocation struct {
		Name string `json:"name"`
	} `json:"pickup_location"`
}

// ManifestResponse reports waybill assignment per shipment.
type ManifestResponse struct {
	Success  bool   `json:"success"`
	RMK      string `json:"rmk,omitempty"` // top-level remark on failure
	Packages []struct {
		Waybill string `json:"waybill"`
		RefNum  string `json:"refnum"`
		Status  string `json:"status"` // "Success" | "Fail"
		Remarks any    `json:"remarks,omitempty"`
	} `json:"packages"`
}

// PickupRequest schedules a pickup.
// POST /fm/request/new/
type PickupRequest struct {
	PickupLocation string `json:"pickup_location"`
	PickupDate     string `json:"pickup_date"` // YYYY-MM-DD
	PickupTime     string `json:"pickup_time"` // HH:MM:SS
	ExpectedCount  int    `json:"expected_package_count"`
}

// PickupResponse reports pickup scheduling.
type PickupResponse struct {
	PickupID       int64  `json:"pickup_id"`
	Status         string `json:"status,omitempty"`
	IncomingCenter string `json:"incoming_center_name,omitempty"`
	Error          string `json:"error,omitempty"`
}

// EditRequest mutates a package. Cancellation=true cancels it.
// POST /api/p/edit
type EditRequest struct {
	Waybill      string `json:"waybill"`
	Cancellation bool   `json:"cancellation"`
}

// EditResponse reports the package edit.
type EditResponse struct {
	Status  bool   `json:"status"`
	Remarks string `json:"remarks,omitempty"`
}

// Scan is one tracking scan.
type Scan struct {
	ScanDateTime string `json:"ScanDateTime"` // RFC3339-ish, vendor local
	ScanType     string `json:"ScanType"`
	Scan         string `json:"Scan"`         // status text
	StatusCode   string `json:"StatusCode"`   // e.g. "X-RT-108"
	ScannedLocation string `json:"ScannedLocation"`
	Instructions string `json:"Instructions,omitempty"`
}

// TrackResponse is the scan history for a waybill.
// GET /api/v1/packages/json?waybill={wb}
type TrackResponse struct {
	ShipmentData []struct {
		Shipment struct {
			AWB    string `json:"AWB"`
			Status struct {
				Status     string `json:"Status"`
				StatusCode string `json:"StatusCode"`
				StatusDateTime string `json:"StatusDateTime"`
			} `json:"Status"`
			Scans []struct {
				ScanDetail Scan `json:"ScanDetail"`
			} `json:"Scans"`
		} `json:"Shipment"`
	} `json:"ShipmentData"`
	Error string `json:"Error,omitempty"`
}

// NDRRequest pushes a non-delivery instruction.
// POST /api/p/update
type NDRRequest struct {
	Waybill      string `json:"waybill"`
	Act          string `json:"act"` // "RE-ATTEMPT" | "DEFER_DLV" | "RTO"
	DeferredDate string `json:"deferred_date,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
}

// NDRResponse reports the NDR instruction.
type NDRResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Status    bool   `json:"status"`
	Error     string `json:"error,omitempty"`
}

// APIError represents an error from the Delhivery API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
