package shiprocket

import (
	"context"
	"fmt"
	"time"
)

// MockAPIClient is a configurable mock of the Shiprocket API for tests.
type MockAPIClient struct {
	SimulateErrors bool

	OnLogin             func(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	OnServiceability    func(ctx context.Context, token string, req *ServiceabilityRequest) (*ServiceabilityResponse, error)
	OnAddPickupLocation func(ctx context.Context, token string, req *PickupLocationRequest) (*PickupLocationResponse, error)
	OnCreateOrder       func(ctx context.Context, token string, req *OrderRequest) (*OrderResponse, error)
	OnAssignAWB         func(ctx context.Context, token string, shipmentID int64) (*AssignAWBResponse, error)
	OnGeneratePickup    func(ctx context.Context, token string, req *GeneratePickupRequest) (*GeneratePickupResponse, error)
	OnCancelOrders      func(ctx context.Context, token string, orderIDs []int64) (*CancelResponse, error)
	OnTrackByAWB        func(ctx context.Context, token, awb string) (*TrackResponse, error)
	OnNDRAction         func(ctx context.Context, token, awb string, req *NDRActionRequest) (*NDRActionResponse, error)

	// LoginCalls counts token generations, to assert cache-aside behavior.
	LoginCalls int
}

// NewMockAPIClient creates a mock API client.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) err(op string) error {
	return &APIError{StatusCode: 500, Message: "simulated " + op + " failure"}
}

// Login issues a synthetic token.
func (m *MockAPIClient) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	m.LoginCalls++
	if m.OnLogin != nil {
		return m.OnLogin(ctx, req)
	}
	if m.SimulateErrors {
		return nil, m.err("login")
	}
	return &LoginResponse{Token: fmt.Sprintf("sr-token-%d", time.Now().UnixNano())}, nil
}

// Serviceability returns two courier options.
func (m *MockAPIClient) Serviceability(ctx context.Context, token string, req *ServiceabilityRequest) (*ServiceabilityResponse, error) {
	if m.OnServiceability != nil {
		return m.OnServiceability(ctx, token, req)
	}
	if m.SimulateErrors {
		return nil, m.err("serviceability")
	}
	resp := &ServiceabilityResponse{Status: 200}
	resp.Data.AvailableCourierCompanies = []AvailableCourier{
		{CourierCompanyID: 24, CourierName: "Bluedart", Rate: 95.5, CODCharges: 35, EstimatedDays: "3", Rating: 4.3},
		{CourierCompanyID: 51, CourierName: "Ecom Express", Rate: 78.0, CODCharges: 30, EstimatedDays: "5", Rating: 4.0},
	}
	return resp, nil
}

// AddPickupLocation registers the pickup address.
func (m *MockAPIClient) AddPickupLocation(ctx context.Context, token string, req *PickupLocationRequest) (*PickupLocationResponse, error) {
	if m.OnAddPickupLocation != nil {
		return m.OnAddPickupLocation(ctx, token, req)
	}
	if m.SimulateErrors {
		return nil, m.err("addpickup")
	}
	resp := &PickupLocationResponse{Success: true}
	resp.Address.ID = time.Now().UnixNano() % 1e6
	resp.Address.PickupLocation = req.PickupLocation
	return resp, nil
}

// CreateOrder creates the order.
func (m *MockAPIClient) CreateOrder(ctx context.Context, token string, req *OrderRequest) (*OrderResponse, error) {
	if m.OnCreateOrder != nil {
		return m.OnCreateOrder(ctx, token, req)
	}
	if m.SimulateErrors {
		return nil, m.err("order")
	}
	return &OrderResponse{
		OrderID:    time.Now().UnixNano() % 1e9,
		ShipmentID: time.Now().UnixNano() % 1e9,
		Status:     "NEW",
		StatusCode: 1,
	}, nil
}

// AssignAWB allocates a waybill.
func (m *MockAPIClient) AssignAWB(ctx context.Context, token string, shipmentID int64) (*AssignAWBResponse, error) {
	if m.OnAssignAWB != nil {
		return m.OnAssignAWB(ctx, token, shipmentID)
	}
	if m.SimulateErrors {
		return nil, m.err("awb")
	}
	resp := &AssignAWBResponse{AWBAssignStatus: 1}
	resp.Response.Data.AWBCode = fmt.Sprintf("SR%012d", time.Now().UnixNano()%1e12)
	resp.Response.Data.CourierName = "Bluedart"
	return resp, nil
}

// GeneratePickup schedules the pickup.
func (m *MockAPIClient) GeneratePickup(ctx context.Context, token string, req *GeneratePickupRequest) (*GeneratePickupResponse, error) {
	if m.OnGeneratePickup != nil {
		return m.OnGeneratePickup(ctx, token, req)
	}
	if m.SimulateErrors {
		return nil, m.err("pickup")
	}
	resp := &GeneratePickupResponse{PickupStatus: 1}
	resp.Response.PickupScheduledDate = time.Now().Add(24 * time.Hour).Format("2006-01-02")
	resp.Response.PickupTokenNumber = fmt.Sprintf("PT-%d", time.Now().UnixNano()%1e6)
	return resp, nil
}

// CancelOrders cancels the orders.
func (m *MockAPIClient) CancelOrders(ctx context.Context, token string, orderIDs []int64) (*CancelResponse, error) {
	if m.OnCancelOrders != nil {
		return m.OnCancelOrders(ctx, token, orderIDs)
	}
	if m.SimulateErrors {
		return nil, m.err("cancel")
	}
	return &CancelResponse{Status: 200, Message: "Order cancelled successfully"}, nil
}

// TrackByAWB returns a short in-transit history.
func (m *MockAPIClient) TrackByAWB(ctx context.Context, token, awb string) (*TrackResponse, error) {
	if m.OnTrackByAWB != nil {
		return m.OnTrackByAWB(ctx, token, awb)
	}
	if m.SimulateErrors {
		return nil, m.err("track")
	}
	now := time.Now()
	var resp TrackResponse
	resp.TrackingData.TrackStatus = 1
	resp.TrackingData.ShipmentTrack = []struct {
		AWBCode       string `json:"awb_code"`
		CurrentStatus string `json:"current_status"`
	}{{AWBCode: awb, CurrentStatus: "In Transit"}}
	resp.TrackingData.ShipmentTrackActivities = []TrackActivity{
		{Date: now.Add(-30 * time.Hour).Format("2006-01-02 15:04:05"), Status: "PKD", Activity: "Shipment Picked Up", Location: "Delhi"},
		{Date: now.Add(-4 * time.Hour).Format("2006-01-02 15:04:05"), Status: "IT", Activity: "In Transit", Location: "Jaipur"},
	}
	return &resp, nil
}

// NDRAction accepts the instruction.
func (m *MockAPIClient) NDRAction(ctx context.Context, token, awb string, req *NDRActionRequest) (*NDRActionResponse, error) {
	if m.OnNDRAction != nil {
		return m.OnNDRAction(ctx, token, awb, req)
	}
	if m.SimulateErrors {
		return nil, m.err("ndr")
	}
	return &NDRActionResponse{Success: true}, nil
}

// Ensure MockAPIClient implements APIClient interface
var _ APIClient = (*MockAPIClient)(nil)
