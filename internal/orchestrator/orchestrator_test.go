package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/parceldesk/courierhub/internal/bucketmap"
	"github.com/parceldesk/courierhub/internal/cache"
	"github.com/parceldesk/courierhub/internal/orchestrator"
	"github.com/parceldesk/courierhub/internal/rates"
	"github.com/parceldesk/courierhub/internal/store"
	"github.com/parceldesk/courierhub/internal/telemetry"
	"github.com/parceldesk/courierhub/pkg/courier"
	"github.com/parceldesk/courierhub/pkg/courier/mock"
)

type fakeDirectory struct {
	couriers  []store.Courier
	hub       *store.Hub
	listCalls int
}

func (f *fakeDirectory) ListByPlan(ctx context.Context, planID string) ([]store.Courier, error) {
	f.listCalls++
	return f.couriers, nil
}

func (f *fakeDirectory) GetHub(ctx context.Context, name string) (*store.Hub, error) {
	if f.hub == nil || f.hub.Name != name {
		return nil, store.ErrNotFound
	}
	return f.hub, nil
}

type advance struct {
	id     uuid.UUID
	bucket int
	status string
}

type fakeShipments struct {
	byAWB    map[string]*store.Shipment
	created  []*store.Shipment
	advanced []advance
	events   []*store.TrackingEvent
}

func newFakeShipments() *fakeShipments {
	return &fakeShipments{byAWB: make(map[string]*store.Shipment)}
}

func (f *fakeShipments) Create(ctx context.Context, s *store.Shipment) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	f.created = append(f.created, s)
	f.byAWB[s.AWB] = s
	return nil
}

func (f *fakeShipments) GetByAWB(ctx context.Context, awb string) (*store.Shipment, error) {
	if s, ok := f.byAWB[awb]; ok {
		return s, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeShipments) AdvanceStatus(ctx context.Context, id uuid.UUID, bucket int, status string) error {
	f.advanced = append(f.advanced, advance{id: id, bucket: bucket, status: status})
	return nil
}

func (f *fakeShipments) AppendEvent(ctx context.Context, e *store.TrackingEvent) error {
	f.events = append(f.events, e)
	return nil
}

// fakeResolver resolves only status codes it was seeded with.
type fakeResolver struct {
	buckets map[string]courier.Bucket
}

func (f *fakeResolver) Resolve(ctx context.Context, courierName, statusCode, statusText string) bucketmap.Resolution {
	if b, ok := f.buckets[statusCode]; ok {
		return bucketmap.Resolution{Bucket: b, Source: "store", Matched: true}
	}
	return bucketmap.Resolution{Bucket: courier.BucketNew, Source: "default"}
}

func courierWithSlab(name, vendorCode string, rating, basePrice float64) store.Courier {
	return store.Courier{
		Name:       name,
		VendorCode: vendorCode,
		Rating:     rating,
		Active:     true,
		Pricing: []store.CourierPricing{
			{Zone: "A", BaseWeight: 0.5, BasePrice: basePrice, IncrementWeight: 0.5, IncrementPrice: 30},
			{Zone: "D", BaseWeight: 0.5, BasePrice: basePrice * 2, IncrementWeight: 0.5, IncrementPrice: 60},
		},
	}
}

func newOrchestrator(t *testing.T, dir *fakeDirectory, ships *fakeShipments, resolver *fakeResolver, vendors ...courier.Vendor) *orchestrator.Orchestrator {
	t.Helper()
	reg := courier.NewRegistry()
	for _, v := range vendors {
		reg.Register(v)
	}
	if resolver == nil {
		resolver = &fakeResolver{}
	}
	logger := otelzap.New(zap.NewNop())
	return orchestrator.New(reg, dir, ships, resolver, cache.NewMemory(), telemetry.NewMetrics(), logger)
}

func planRequest() orchestrator.PlanServiceabilityRequest {
	return orchestrator.PlanServiceabilityRequest{
		UserID:      "user-1",
		PlanID:      "plan-lite",
		Pickup:      rates.Location{Pincode: "400001", City: "Mumbai", State: "Maharashtra"},
		Delivery:    rates.Location{Pincode: "400050", City: "Mumbai", State: "Maharashtra"},
		Package:     courier.Package{DeadWeight: 0.4, DimensionUnit: courier.DimensionCM},
		PaymentMode: courier.PaymentPrepaid,
	}
}

func TestCheckServiceabilityForPlan_PricesOnlyServiceableVendors(t *testing.T) {
	dir := &fakeDirectory{couriers: []store.Courier{
		courierWithSlab("SHIPROCKET", "shiprocket", 4.0, 45),
		courierWithSlab("DELHIVERY-0.5", "delhivery-0.5", 4.2, 35),
	}}

	sr := mock.New(courier.VendorShiprocket)
	dl := mock.New(courier.VendorDelhiveryHalfKG)
	dl.OnCheckServiceability = func(ctx context.Context, req *courier.ServiceabilityRequest) *courier.ServiceabilityResult {
		return &courier.ServiceabilityResult{Outcome: courier.OK("no coverage"), Serviceable: false}
	}

	o := newOrchestrator(t, dir, newFakeShipments(), nil, sr, dl)
	res, err := o.CheckServiceabilityForPlan(context.Background(), planRequest())
	require.NoError(t, err)

	assert.True(t, res.Serviceable)
	require.Len(t, res.Quotes, 1)
	assert.Equal(t, "SHIPROCKET", res.Quotes[0].CourierName)
	assert.Len(t, res.Vendors, 2)
}

func TestCheckServiceabilityForPlan_NoCoverageIsDefinedAnswer(t *testing.T) {
	dir := &fakeDirectory{couriers: []store.Courier{
		courierWithSlab("SHIPROCKET", "shiprocket", 4.0, 45),
	}}
	sr := mock.New(courier.VendorShiprocket)
	sr.OnCheckServiceability = func(ctx context.Context, req *courier.ServiceabilityRequest) *courier.ServiceabilityResult {
		return &courier.ServiceabilityResult{Outcome: courier.OK("pincode not covered"), Serviceable: false}
	}

	o := newOrchestrator(t, dir, newFakeShipments(), nil, sr)
	res, err := o.CheckServiceabilityForPlan(context.Background(), planRequest())
	require.NoError(t, err)

	assert.False(t, res.Serviceable)
	assert.Empty(t, res.Quotes)
	require.Len(t, res.Vendors, 1)
	assert.False(t, res.Vendors[0].Serviceable)
}

func TestCheckServiceabilityForPlan_ResultCachedByFingerprint(t *testing.T) {
	dir := &fakeDirectory{couriers: []store.Courier{
		courierWithSlab("SHIPROCKET", "shiprocket", 4.0, 45),
	}}
	o := newOrchestrator(t, dir, newFakeShipments(), nil, mock.New(courier.VendorShiprocket))

	req := planRequest()
	first, err := o.CheckServiceabilityForPlan(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := o.CheckServiceabilityForPlan(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, dir.listCalls)

	// A different parcel is a different fingerprint.
	heavier := req
	heavier.Package.DeadWeight = 4
	_, err = o.CheckServiceabilityForPlan(context.Background(), heavier)
	require.NoError(t, err)
	assert.Equal(t, 2, dir.listCalls)
}

func TestCheckServiceabilityForPlan_FailedVendorDegradesOnlyItself(t *testing.T) {
	dir := &fakeDirectory{couriers: []store.Courier{
		courierWithSlab("SHIPROCKET", "shiprocket", 4.0, 45),
		courierWithSlab("XPRESSBEES", "xpressbees", 3.8, 30),
	}}
	sr := mock.New(courier.VendorShiprocket)
	sr.OnCheckServiceability = func(ctx context.Context, req *courier.ServiceabilityRequest) *courier.ServiceabilityResult {
		return &courier.ServiceabilityResult{Outcome: courier.Fail("connection timed out")}
	}

	o := newOrchestrator(t, dir, newFakeShipments(), nil, sr, mock.New(courier.VendorXpressbees))
	res, err := o.CheckServiceabilityForPlan(context.Background(), planRequest())
	require.NoError(t, err)

	assert.True(t, res.Serviceable)
	require.Len(t, res.Quotes, 1)
	assert.Equal(t, "XPRESSBEES", res.Quotes[0].CourierName)
}

func TestCreateShipment_PersistsWithNewBucket(t *testing.T) {
	dir := &fakeDirectory{hub: &store.Hub{Name: "main-hub", City: "Mumbai", Pincode: "400001"}}
	ships := newFakeShipments()
	sr := mock.New(courier.VendorShiprocket)
	sr.OnCreateShipment = func(ctx context.Context, req *courier.CreateShipmentRequest) *courier.CreateShipmentResult {
		assert.Equal(t, "main-hub", req.Hub.Name)
		return &courier.CreateShipmentResult{
			Outcome:     courier.OK("order created"),
			AWB:         "SR100",
			CourierName: "Bluedart",
		}
	}

	o := newOrchestrator(t, dir, ships, nil, sr)
	res, err := o.CreateShipment(context.Background(), orchestrator.CreateShipmentParams{
		OrderID:     uuid.New(),
		OrderRef:    "ORD-1",
		CourierName: "SHIPROCKET",
		VendorCode:  courier.VendorShiprocket,
		HubName:     "main-hub",
		Consignee:   courier.Address{Name: "Asha", Pincode: "400050"},
		Package:     courier.Package{DeadWeight: 0.5},
		PaymentMode: courier.PaymentPrepaid,
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "SR100", res.AWB)
	// The sub-brokered carrier replaces the configured name.
	assert.Equal(t, "Bluedart", res.CourierName)

	require.Len(t, ships.created, 1)
	assert.Equal(t, int(courier.BucketNew), ships.created[0].Bucket)
	assert.Equal(t, "shiprocket", ships.created[0].VendorCode)
}

func TestCreateShipment_VendorFailureNotPersisted(t *testing.T) {
	dir := &fakeDirectory{hub: &store.Hub{Name: "main-hub"}}
	ships := newFakeShipments()
	sr := mock.New(courier.VendorShiprocket)
	sr.OnCreateShipment = func(ctx context.Context, req *courier.CreateShipmentRequest) *courier.CreateShipmentResult {
		return &courier.CreateShipmentResult{Outcome: courier.Fail("wallet balance insufficient")}
	}

	o := newOrchestrator(t, dir, ships, nil, sr)
	res, err := o.CreateShipment(context.Background(), orchestrator.CreateShipmentParams{
		VendorCode: courier.VendorShiprocket,
		HubName:    "main-hub",
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "wallet")
	assert.Empty(t, ships.created)
}

func TestCreateShipment_UnregisteredVendorFails(t *testing.T) {
	o := newOrchestrator(t, &fakeDirectory{}, newFakeShipments(), nil)
	res, err := o.CreateShipment(context.Background(), orchestrator.CreateShipmentParams{
		VendorCode: courier.VendorXpressbees,
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestCancelShipment_AdvancesToCancelled(t *testing.T) {
	ships := newFakeShipments()
	sid := uuid.New()
	ships.byAWB["SR100"] = &store.Shipment{
		ID: sid, AWB: "SR100", CourierName: "SHIPROCKET",
		VendorCode: "shiprocket", Bucket: int(courier.BucketPickedUp),
	}

	o := newOrchestrator(t, &fakeDirectory{}, ships, nil, mock.New(courier.VendorShiprocket))
	res, err := o.CancelShipment(context.Background(), "SR100", "customer changed mind")
	require.NoError(t, err)

	assert.True(t, res.Success)
	require.Len(t, ships.advanced, 1)
	assert.Equal(t, advance{id: sid, bucket: int(courier.BucketCancelled), status: "CANCELLED"}, ships.advanced[0])
	require.Len(t, ships.events, 1)
	assert.Equal(t, "customer changed mind", ships.events[0].Description)
}

func TestCancelShipment_TerminalShipmentRefusedWithoutVendorCall(t *testing.T) {
	ships := newFakeShipments()
	ships.byAWB["SR100"] = &store.Shipment{
		ID: uuid.New(), AWB: "SR100", VendorCode: "shiprocket",
		Bucket: int(courier.BucketDelivered),
	}
	sr := mock.New(courier.VendorShiprocket)
	sr.OnCancelShipment = func(ctx context.Context, req *courier.CancelShipmentRequest) *courier.CancelShipmentResult {
		t.Fatal("vendor must not be called for a terminal shipment")
		return nil
	}

	o := newOrchestrator(t, &fakeDirectory{}, ships, nil, sr)
	res, err := o.CancelShipment(context.Background(), "SR100", "late")
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "DELIVERED")
	assert.Empty(t, ships.advanced)
}

func TestTrackShipment_TerminalShortCircuits(t *testing.T) {
	ships := newFakeShipments()
	ships.byAWB["SR100"] = &store.Shipment{
		ID: uuid.New(), AWB: "SR100", VendorCode: "shiprocket",
		Bucket: int(courier.BucketRTODelivered),
	}
	sr := mock.New(courier.VendorShiprocket)
	sr.OnTrackShipment = func(ctx context.Context, req *courier.TrackRequest) *courier.TrackResult {
		t.Fatal("vendor must not be called for a terminal shipment")
		return nil
	}

	o := newOrchestrator(t, &fakeDirectory{}, ships, nil, sr)
	out, err := o.TrackShipment(context.Background(), "SR100")
	require.NoError(t, err)

	assert.True(t, out.Terminal)
	assert.Equal(t, courier.BucketRTODelivered, out.Bucket)
}

func TestTrackShipment_LatestResolvedEventWins(t *testing.T) {
	ships := newFakeShipments()
	ships.byAWB["SR100"] = &store.Shipment{
		ID: uuid.New(), AWB: "SR100", CourierName: "SHIPROCKET",
		VendorCode: "shiprocket", Bucket: int(courier.BucketPickedUp),
	}

	now := time.Now().Truncate(time.Second)
	sr := mock.New(courier.VendorShiprocket)
	sr.OnTrackShipment = func(ctx context.Context, req *courier.TrackRequest) *courier.TrackResult {
		return &courier.TrackResult{
			Outcome: courier.OK("ok"),
			Events: []courier.TrackingEvent{
				{Timestamp: now.Add(-2 * time.Hour), StatusCode: "PKD", Description: "Picked Up"},
				{Timestamp: now.Add(-30 * time.Minute), StatusCode: "QC-GLITCH", Description: "internal code"},
				{Timestamp: now.Add(-time.Hour), StatusCode: "IT", Description: "In Transit"},
			},
		}
	}
	resolver := &fakeResolver{buckets: map[string]courier.Bucket{
		"PKD": courier.BucketPickedUp,
		"IT":  courier.BucketInTransit,
	}}

	o := newOrchestrator(t, &fakeDirectory{}, ships, resolver, sr)
	out, err := o.TrackShipment(context.Background(), "SR100")
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.True(t, out.Resolved)
	assert.Equal(t, courier.BucketInTransit, out.Bucket)
	assert.Equal(t, "IT", out.VendorStatus)
	// The unresolvable scan is filtered out, not defaulted.
	assert.Len(t, out.Events, 2)
}

func TestTrackShipment_ResultCachedPerAWB(t *testing.T) {
	ships := newFakeShipments()
	ships.byAWB["SR100"] = &store.Shipment{
		ID: uuid.New(), AWB: "SR100", CourierName: "SHIPROCKET",
		VendorCode: "shiprocket", Bucket: int(courier.BucketPickedUp),
	}

	calls := 0
	sr := mock.New(courier.VendorShiprocket)
	sr.OnTrackShipment = func(ctx context.Context, req *courier.TrackRequest) *courier.TrackResult {
		calls++
		return &courier.TrackResult{
			Outcome: courier.OK("ok"),
			Events: []courier.TrackingEvent{
				{Timestamp: time.Now(), StatusCode: "IT", Description: "In Transit"},
			},
		}
	}
	resolver := &fakeResolver{buckets: map[string]courier.Bucket{"IT": courier.BucketInTransit}}

	o := newOrchestrator(t, &fakeDirectory{}, ships, resolver, sr)
	first, err := o.TrackShipment(context.Background(), "SR100")
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := o.TrackShipment(context.Background(), "SR100")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, calls)
}

func TestTrackShipment_NoResolvableEvents(t *testing.T) {
	ships := newFakeShipments()
	ships.byAWB["SR100"] = &store.Shipment{
		ID: uuid.New(), AWB: "SR100", CourierName: "SHIPROCKET",
		VendorCode: "shiprocket", Bucket: int(courier.BucketNew),
	}
	sr := mock.New(courier.VendorShiprocket)
	sr.OnTrackShipment = func(ctx context.Context, req *courier.TrackRequest) *courier.TrackResult {
		return &courier.TrackResult{
			Outcome: courier.OK("ok"),
			Events: []courier.TrackingEvent{
				{Timestamp: time.Now(), StatusCode: "ZZZ", Description: "mystery"},
			},
		}
	}

	o := newOrchestrator(t, &fakeDirectory{}, ships, &fakeResolver{}, sr)
	out, err := o.TrackShipment(context.Background(), "SR100")
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.False(t, out.Resolved)
	assert.Empty(t, out.Events)
}
