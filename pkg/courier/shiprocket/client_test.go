package shiprocket_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/parceldesk/courierhub/pkg/courier"
	"github.com/parceldesk/courierhub/pkg/courier/shiprocket"
)

type mapTokenCache struct {
	mu sync.Mutex
	m  map[string]string
}

func (c *mapTokenCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok, nil
}

func (c *mapTokenCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = make(map[string]string)
	}
	c.m[key] = value
	return nil
}

func newTestClient(mockAPI *shiprocket.MockAPIClient) *shiprocket.Client {
	logger := otelzap.New(zap.NewNop())
	return shiprocket.NewWithAPIClient(
		shiprocket.Config{Email: "seller@example.com", Password: "secret"},
		mockAPI,
		&mapTokenCache{},
		logger,
		nil,
	)
}

func TestClient_CheckServiceability_Success(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	client := newTestClient(mockAPI)

	res := client.CheckServiceability(context.Background(), &courier.ServiceabilityRequest{
		PickupPincode:   "110001",
		DeliveryPincode: "400001",
		Weight:          1.2,
		PaymentMode:     courier.PaymentPrepaid,
	})

	require.True(t, res.Success, res.Message)
	assert.True(t, res.Serviceable)
	assert.Equal(t, 5, res.EstimatedDeliveryDays) // cheapest mock courier's ETD
}

func TestClient_CheckServiceability_NoCoverage(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	mockAPI.OnServiceability = func(ctx context.Context, token string, req *shiprocket.ServiceabilityRequest) (*shiprocket.ServiceabilityResponse, error) {
		return &shiprocket.ServiceabilityResponse{Status: 200}, nil
	}
	client := newTestClient(mockAPI)

	res := client.CheckServiceability(context.Background(), &courier.ServiceabilityRequest{
		PickupPincode:   "110001",
		DeliveryPincode: "999999",
	})

	// An uncovered route is a successful answer, not a vendor failure.
	require.True(t, res.Success, res.Message)
	assert.False(t, res.Serviceable)
}

func TestClient_CheckServiceability_APIError(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	mockAPI.SimulateErrors = true
	client := newTestClient(mockAPI)

	res := client.CheckServiceability(context.Background(), &courier.ServiceabilityRequest{
		PickupPincode:   "110001",
		DeliveryPincode: "400001",
	})

	assert.False(t, res.Success)
	assert.False(t, res.Serviceable)
}

func TestClient_TokenCachedAcrossCalls(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	client := newTestClient(mockAPI)

	ctx := context.Background()
	req := &courier.ServiceabilityRequest{PickupPincode: "110001", DeliveryPincode: "400001"}
	client.CheckServiceability(ctx, req)
	client.CheckServiceability(ctx, req)
	client.CheckServiceability(ctx, req)

	assert.Equal(t, 1, mockAPI.LoginCalls)
}

func TestClient_RegisterHub_Duplicate(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	mockAPI.OnAddPickupLocation = func(ctx context.Context, token string, req *shiprocket.PickupLocationRequest) (*shiprocket.PickupLocationResponse, error) {
		return &shiprocket.PickupLocationResponse{
			Success: false,
			Message: "Address nick name already exists",
		}, nil
	}
	client := newTestClient(mockAPI)

	res := client.RegisterHub(context.Background(), &courier.RegisterHubRequest{
		Hub: courier.Hub{
			Name: "main-hub",
			Address: courier.Address{
				Name: "Warehouse", Phone: "9999999999", Line1: "Plot 4",
				City: "Delhi", State: "Delhi", Pincode: "110001",
			},
		},
	})

	require.True(t, res.Success, res.Message)
	assert.True(t, res.AlreadyRegistered)
	assert.Equal(t, "main-hub", res.HubID)
}

func TestClient_CreateShipment_Success(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	client := newTestClient(mockAPI)

	res := client.CreateShipment(context.Background(), &courier.CreateShipmentRequest{
		OrderRef: "ORD-1001",
		Hub:      courier.Hub{Name: "main-hub"},
		Consignee: courier.Address{
			Name: "Buyer", Phone: "8888888888", Line1: "12 Lake Rd",
			City: "Mumbai", State: "Maharashtra", Pincode: "400001",
		},
		Package:     courier.Package{DeadWeight: 0.5, DeclaredValue: 1200},
		PaymentMode: courier.PaymentCOD,
	})

	require.True(t, res.Success, res.Message)
	assert.NotEmpty(t, res.AWB)
	assert.Equal(t, "Bluedart", res.CourierName) // sub-brokered carrier
}

func TestClient_CreateShipment_AWBRejected(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	mockAPI.OnAssignAWB = func(ctx context.Context, token string, shipmentID int64) (*shiprocket.AssignAWBResponse, error) {
		return &shiprocket.AssignAWBResponse{AWBAssignStatus: 0, Message: "no couriers available"}, nil
	}
	client := newTestClient(mockAPI)

	res := client.CreateShipment(context.Background(), &courier.CreateShipmentRequest{
		OrderRef:  "ORD-1002",
		Hub:       courier.Hub{Name: "main-hub"},
		Consignee: courier.Address{Pincode: "400001"},
	})

	assert.False(t, res.Success)
	assert.Empty(t, res.AWB)
}

func TestClient_CancelShipment_MapsAWBToOrder(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	var cancelledOrders []int64
	mockAPI.OnCancelOrders = func(ctx context.Context, token string, orderIDs []int64) (*shiprocket.CancelResponse, error) {
		cancelledOrders = orderIDs
		return &shiprocket.CancelResponse{Status: 200}, nil
	}
	mockAPI.OnCreateOrder = func(ctx context.Context, token string, req *shiprocket.OrderRequest) (*shiprocket.OrderResponse, error) {
		return &shiprocket.OrderResponse{OrderID: 777, ShipmentID: 888}, nil
	}
	client := newTestClient(mockAPI)

	ctx := context.Background()
	created := client.CreateShipment(ctx, &courier.CreateShipmentRequest{
		OrderRef:  "ORD-1003",
		Hub:       courier.Hub{Name: "main-hub"},
		Consignee: courier.Address{Pincode: "400001"},
	})
	require.True(t, created.Success, created.Message)

	res := client.CancelShipment(ctx, &courier.CancelShipmentRequest{AWB: created.AWB})

	require.True(t, res.Success, res.Message)
	assert.Equal(t, []int64{777}, cancelledOrders)
}

func TestClient_CancelShipment_UnknownAWB(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	client := newTestClient(mockAPI)

	res := client.CancelShipment(context.Background(), &courier.CancelShipmentRequest{AWB: "SR000000000000"})

	assert.False(t, res.Success)
}

func TestClient_SchedulePickup_SubmitsBookedShipments(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	var pickedUp []int64
	mockAPI.OnGeneratePickup = func(ctx context.Context, token string, req *shiprocket.GeneratePickupRequest) (*shiprocket.GeneratePickupResponse, error) {
		pickedUp = req.ShipmentIDs
		resp := &shiprocket.GeneratePickupResponse{PickupStatus: 1}
		resp.Response.PickupTokenNumber = "PT-42"
		return resp, nil
	}
	mockAPI.OnCreateOrder = func(ctx context.Context, token string, req *shiprocket.OrderRequest) (*shiprocket.OrderResponse, error) {
		return &shiprocket.OrderResponse{OrderID: 1, ShipmentID: 555}, nil
	}
	client := newTestClient(mockAPI)

	ctx := context.Background()
	created := client.CreateShipment(ctx, &courier.CreateShipmentRequest{
		OrderRef:  "ORD-1004",
		Hub:       courier.Hub{Name: "main-hub"},
		Consignee: courier.Address{Pincode: "400001"},
	})
	require.True(t, created.Success, created.Message)

	res := client.SchedulePickup(ctx, &courier.SchedulePickupRequest{
		HubName: "main-hub",
		Date:    time.Now().Add(24 * time.Hour),
	})

	require.True(t, res.Success, res.Message)
	assert.Equal(t, "PT-42", res.PickupID)
	assert.Equal(t, []int64{555}, pickedUp)
}

func TestClient_SchedulePickup_NothingBooked(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	client := newTestClient(mockAPI)

	res := client.SchedulePickup(context.Background(), &courier.SchedulePickupRequest{
		HubName: "main-hub",
		Date:    time.Now(),
	})

	assert.False(t, res.Success)
}

func TestClient_TrackShipment_EventsAscending(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	mockAPI.OnTrackByAWB = func(ctx context.Context, token, awb string) (*shiprocket.TrackResponse, error) {
		var resp shiprocket.TrackResponse
		resp.TrackingData.TrackStatus = 1
		resp.TrackingData.ShipmentTrackActivities = []shiprocket.TrackActivity{
			{Date: "2026-02-03 09:15:00", Status: "OFD", Activity: "Out For Delivery", Location: "Mumbai"},
			{Date: "2026-02-01 18:30:00", Status: "PKD", Activity: "Shipment Picked Up", Location: "Delhi"},
			{Date: "2026-02-02 04:00:00", Status: "IT", Activity: "In Transit", Location: "Jaipur"},
		}
		return &resp, nil
	}
	client := newTestClient(mockAPI)

	res := client.TrackShipment(context.Background(), &courier.TrackRequest{AWB: "SR123"})

	require.True(t, res.Success, res.Message)
	require.Len(t, res.Events, 3)
	assert.Equal(t, "PKD", res.Events[0].StatusCode)
	assert.Equal(t, "IT", res.Events[1].StatusCode)
	assert.Equal(t, "OFD", res.Events[2].StatusCode)
	assert.True(t, res.Events[0].Timestamp.Before(res.Events[1].Timestamp))
}

func TestClient_NDRAction_Mapping(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	var submitted *shiprocket.NDRActionRequest
	mockAPI.OnNDRAction = func(ctx context.Context, token, awb string, req *shiprocket.NDRActionRequest) (*shiprocket.NDRActionResponse, error) {
		submitted = req
		return &shiprocket.NDRActionResponse{Success: true}, nil
	}
	client := newTestClient(mockAPI)

	deferred := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	res := client.NDRAction(context.Background(), &courier.NDRActionRequest{
		AWB:          "SR123",
		Action:       courier.NDRReschedule,
		DeferredDate: &deferred,
	})

	require.True(t, res.Success, res.Message)
	require.NotNil(t, submitted)
	assert.Equal(t, "re-attempt", submitted.Action)
	assert.Equal(t, "2026-02-10", submitted.DeferredDate)

	res = client.NDRAction(context.Background(), &courier.NDRActionRequest{AWB: "SR123", Action: courier.NDRReturn})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "return", submitted.Action)
}
