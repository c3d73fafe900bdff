package xpressbees

import (
	"context"
	"fmt"
	"time"
)

// MockAPIClient is a configurable mock of the Xpressbees API for tests.
type MockAPIClient struct {
	SimulateErrors bool

	OnLogin          func(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	OnServiceability func(ctx context.Context, token string, req *ServiceabilityRequest) (*ServiceabilityResponse, error)
	OnCreateShipment func(ctx context.Context, token string, req *ShipmentRequest) (*ShipmentResponse, error)
	OnCancelShipment func(ctx context.Context, token, awb string) (*CancelResponse, error)
	OnTrack          func(ctx context.Context, token, awb string) (*TrackResponse, error)
	OnNDRAction      func(ctx context.Context, token string, req *NDRRequest) (*NDRResponse, error)

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
	return &LoginResponse{Status: true, Data: fmt.Sprintf("xb-token-%d", time.Now().UnixNano())}, nil
}

// Serviceability returns two surface products.
func (m *MockAPIClient) Serviceability(ctx context.Context, token string, req *ServiceabilityRequest) (*ServiceabilityResponse, error) {
	if m.OnServiceability != nil {
		return m.OnServiceability(ctx, token, req)
	}
	if m.SimulateErrors {
		return nil, m.err("serviceability")
	}
	return &ServiceabilityResponse{
		Status: true,
		Data: []ServiceOption{
			{ID: 1, Name: "Xpressbees Surface", FreightCharge: 52, CODCharge: 25, TotalCharge: 77, MinWeight: 0.5},
			{ID: 4, Name: "Xpressbees Air", FreightCharge: 88, CODCharge: 25, TotalCharge: 113, MinWeight: 0.5},
		},
	}, nil
}

// CreateShipment books the shipment.
func (m *MockAPIClient) CreateShipment(ctx context.Context, token string, req *ShipmentRequest) (*ShipmentResponse, error) {
	if m.OnCreateShipment != nil {
		return m.OnCreateShipment(ctx, token, req)
	}
	if m.SimulateErrors {
		return nil, m.err("shipment")
	}
	resp := &ShipmentResponse{Status: true}
	resp.Data.OrderID = time.Now().UnixNano() % 1e9
	resp.Data.ShipmentID = time.Now().UnixNano() % 1e9
	resp.Data.AWBNumber = fmt.Sprintf("XB%012d", time.Now().UnixNano()%1e12)
	resp.Data.CourierName = "Xpressbees Surface"
	resp.Data.Status = "booked"
	return resp, nil
}

// CancelShipment cancels the waybill.
func (m *MockAPIClient) CancelShipment(ctx context.Context, token, awb string) (*CancelResponse, error) {
	if m.OnCancelShipment != nil {
		return m.OnCancelShipment(ctx, token, awb)
	}
	if m.SimulateErrors {
		return nil, m.err("cancel")
	}
	return &CancelResponse{Status: true, Message: "shipment cancelled"}, nil
}

// Track returns a short in-transit history.
func (m *MockAPIClient) Track(ctx context.Context, token, awb string) (*TrackResponse, error) {
	if m.OnTrack != nil {
		return m.OnTrack(ctx, token, awb)
	}
	if m.SimulateErrors {
		return nil, m.err("track")
	}
	now := time.Now()
	resp := &TrackResponse{Status: true}
	resp.Data.AWBNumber = awb
	resp.Data.Status = "in transit"
	resp.Data.History = []TrackEvent{
		{StatusCode: "PKD", Message: "Shipment Picked Up", Location: "DELHI", EventTime: now.Add(-26 * time.Hour).Format("2006-01-02 15:04:05")},
		{StatusCode: "IT", Message: "In Transit", Location: "GURGAON HUB", EventTime: now.Add(-3 * time.Hour).Format("2006-01-02 15:04:05")},
	}
	return resp, nil
}

// NDRAction accepts the instruction.
func (m *MockAPIClient) NDRAction(ctx context.Context, token string, req *NDRRequest) (*NDRResponse, error) {
	if m.OnNDRAction != nil {
		return m.OnNDRAction(ctx, token, req)
	}
	if m.SimulateErrors {
		return nil, m.err("ndr")
	}
	return &NDRResponse{Status: true}, nil
}

// Ensure MockAPIClient implements APIClient interface
var _ APIClient = (*MockAPIClient)(nil)
