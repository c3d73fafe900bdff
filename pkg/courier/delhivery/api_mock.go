package delhivery

import (
	"context"
	"fmt"
	"time"
)

// MockAPIClient is a configurable mock of the Delhivery API for tests.
// Default behavior is a fully serviceable, healthy vendor; individual
// operations are overridable via the OnX hooks.
type MockAPIClient struct {
	SimulateErrors bool

	OnCheckPincode    func(ctx context.Context, token, pincode string) (*PincodeResponse, error)
	OnCreateWarehouse func(ctx context.Context, token string, req *WarehouseRequest) (*WarehouseResponse, error)
	OnCreateManifest  func(ctx context.Context, token string, req *ManifestRequest) (*ManifestResponse, error)
	OnRequestPickup   func(ctx context.Context, token string, req *PickupRequest) (*PickupResponse, error)
	OnEditPackage     func(ctx context.Context, token string, req *EditRequest) (*EditResponse, error)
	OnTrack           func(ctx context.Context, token, waybill string) (*TrackResponse, error)
	OnUpdateNDR       func(ctx context.Context, token string, req *NDRRequest) (*NDRResponse, error)
}

// NewMockAPIClient creates a mock API client.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) err(op string) error {
	return &APIError{Code: "MOCK_ERROR", Message: "simulated " + op + " failure"}
}

// CheckPincode returns full coverage for the pincode.
func (m *MockAPIClient) CheckPincode(ctx context.Context, token, pincode string) (*PincodeResponse, error) {
	if m.OnCheckPincode != nil {
		return m.OnCheckPincode(ctx, token, pincode)
	}
	if m.SimulateErrors {
		return nil, m.err("pincode")
	}
	var resp PincodeResponse
	resp.DeliveryCodes = make([]struct {
		PostalCode struct {
			Pin          string  `json:"pin"`
			COD          string  `json:"cod"`
			Prepaid      string  `json:"pre_paid"`
			Pickup       string  `json:"pickup"`
			Repl         string  `json:"repl"`
			District     string  `json:"district"`
			StateCode    string  `json:"state_code"`
			MaxWeight    float64 `json:"max_weight,omitempty"`
			MaxAmount    float64 `json:"max_amount,omitempty"`
		} `json:"postal_code"`
	}, 1)
	pc := &resp.DeliveryCodes[0].PostalCode
	pc.Pin = pincode
	pc.COD = "Y"
	pc.Prepaid = "Y"
	pc.Pickup = "Y"
	pc.Repl = "Y"
	pc.District = "Mumbai"
	pc.StateCode = "MH"
	return &resp, nil
}

// CreateWarehouse registers the warehouse.
func (m *MockAPIClient) CreateWarehouse(ctx context.Context, token string, req *WarehouseRequest) (*WarehouseResponse, error) {
	if m.OnCreateWarehouse != nil {
		return m.OnCreateWarehouse(ctx, token, req)
	}
	if m.SimulateErrors {
		return nil, m.err("warehouse")
	}
	resp := &WarehouseResponse{Success: true}
	resp.Data.Name = req.Name
	return resp, nil
}

// CreateManifest assigns one waybill per shipment.
func (m *MockAPIClient) CreateManifest(ctx context.Context, token string, req *ManifestRequest) (*ManifestResponse, error) {
	if m.OnCreateManifest != nil {
		return m.OnCreateManifest(ctx, token, req)
	}
	if m.SimulateErrors {
		return nil, m.err("manifest")
	}
	resp := &ManifestResponse{Success: true}
	for i, s := range req.Shipments {
		resp.Packages = append(resp.Packages, struct {
			Waybill string `json:"waybill"`
			RefNum  string `json:"refnum"`
			Status  string `json:"status"`
			Remarks any    `json:"remarks,omitempty"`
		}{
			Waybill: fmt.Sprintf("DL%012d", time.Now().UnixNano()%1e12+int64(i)),
			RefNum:  s.OrderID,
			Status:  "Success",
		})
	}
	return resp, nil
}

// RequestPickup schedules the pickup.
func (m *MockAPIClient) RequestPickup(ctx context.Context, token string, req *PickupRequest) (*PickupResponse, error) {
	if m.OnRequestPickup != nil {
		return m.OnRequestPickup(ctx, token, req)
	}
	if m.SimulateErrors {
		return nil, m.err("pickup")
	}
	return &PickupResponse{
		PickupID:       time.Now().UnixNano() % 1e9,
		IncomingCenter: "Mumbai_Hub",
	}, nil
}

// EditPackage acknowledges the edit.
func (m *MockAPIClient) EditPackage(ctx context.Context, token string, req *EditRequest) (*EditResponse, error) {
	if m.OnEditPackage != nil {
		return m.OnEditPackage(ctx, token, req)
	}
	if m.SimulateErrors {
		return nil, m.err("edit")
	}
	return &EditResponse{Status: true}, nil
}

// Track returns a short in-transit history.
func (m *MockAPIClient) Track(ctx context.Context, token, waybill string) (*TrackResponse, error) {
	if m.OnTrack != nil {
		return m.OnTrack(ctx, token, waybill)
	}
	if m.SimulateErrors {
		return nil, m.err("track")
	}
	now := time.Now()
	var resp TrackResponse
	resp.ShipmentData = make([]struct {
		Shipment struct {
			AWB    string `json:"AWB"`
			Status struct {
				Status         string `json:"Status"`
				StatusCode     string `json:"StatusCode"`
				StatusDateTime string `json:"StatusDateTime"`
			} `json:"Status"`
			Scans []struct {
				ScanDetail Scan `json:"ScanDetail"`
			} `json:"Scans"`
		} `json:"Shipment"`
	}, 1)
	sh := &resp.ShipmentData[0].Shipment
	sh.AWB = waybill
	sh.Status.Status = "In Transit"
	sh.Status.StatusCode = "UD"
	sh.Status.StatusDateTime = now.Format(time.RFC3339)
	sh.Scans = append(sh.Scans,
		struct {
			ScanDetail Scan `json:"ScanDetail"`
		}{Scan{
			ScanDateTime:    now.Add(-36 * time.Hour).Format(time.RFC3339),
			Scan:            "Shipment Picked Up",
			StatusCode:      "X-PPOM",
			ScannedLocation: "Mumbai_Hub",
		}},
		struct {
			ScanDetail Scan `json:"ScanDetail"`
		}{Scan{
			ScanDateTime:    now.Add(-6 * time.Hour).Format(time.RFC3339),
			Scan:            "In Transit",
			StatusCode:      "X-ILP",
			ScannedLocation: "Nagpur_Hub",
		}},
	)
	return &resp, nil
}

// UpdateNDR accepts the instruction.
func (m *MockAPIClient) UpdateNDR(ctx context.Context, token string, req *NDRRequest) (*NDRResponse, error) {
	if m.OnUpdateNDR != nil {
		return m.OnUpdateNDR(ctx, token, req)
	}
	if m.SimulateErrors {
		return nil, m.err("ndr")
	}
	return &NDRResponse{RequestID: fmt.Sprintf("ndr-%d", time.Now().UnixNano()), Status: true}, nil
}

// Ensure MockAPIClient implements APIClient interface
var _ APIClient = (*MockAPIClient)(nil)
