package reconciler_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/parceldesk/courierhub/internal/orchestrator"
	"github.com/parceldesk/courierhub/internal/reconciler"
	"github.com/parceldesk/courierhub/internal/store"
	"github.com/parceldesk/courierhub/internal/telemetry"
	"github.com/parceldesk/courierhub/pkg/courier"
)

// fakeTracker answers from a scripted per-AWB table.
type fakeTracker struct {
	mu       sync.Mutex
	outcomes map[string]*orchestrator.TrackOutcome
	errs     map[string]error
	calls    map[string]int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		outcomes: make(map[string]*orchestrator.TrackOutcome),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakeTracker) TrackShipment(ctx context.Context, awb string) (*orchestrator.TrackOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[awb]++
	if err, ok := f.errs[awb]; ok {
		return nil, err
	}
	if out, ok := f.outcomes[awb]; ok {
		return out, nil
	}
	return &orchestrator.TrackOutcome{Success: true}, nil
}

type writtenStatus struct {
	bucket int
	status string
}

type fakeShipmentStore struct {
	mu        sync.Mutex
	trackable []store.Shipment
	latest    map[uuid.UUID]time.Time
	advanced  map[uuid.UUID]writtenStatus
	events    []*store.TrackingEvent
}

func newFakeShipmentStore(ships ...store.Shipment) *fakeShipmentStore {
	return &fakeShipmentStore{
		trackable: ships,
		latest:    make(map[uuid.UUID]time.Time),
		advanced:  make(map[uuid.UUID]writtenStatus),
	}
}

func (f *fakeShipmentStore) ListTrackable(ctx context.Context, terminal []int, limit int) ([]store.Shipment, error) {
	isTerminal := make(map[int]bool, len(terminal))
	for _, b := range terminal {
		isTerminal[b] = true
	}
	var out []store.Shipment
	for _, s := range f.trackable {
		if s.AWB == "" || s.CourierName == "" || isTerminal[s.Bucket] {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeShipmentStore) AdvanceStatus(ctx context.Context, id uuid.UUID, bucket int, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanced[id] = writtenStatus{bucket: bucket, status: status}
	return nil
}

func (f *fakeShipmentStore) AppendEvent(ctx context.Context, e *store.TrackingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeShipmentStore) LatestEventTime(ctx context.Context, id uuid.UUID) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest[id], nil
}

func newReconciler(tracker *fakeTracker, ships *fakeShipmentStore, cfg reconciler.Config) *reconciler.Reconciler {
	logger := otelzap.New(zap.NewNop())
	return reconciler.New(tracker, ships, telemetry.NewMetrics(), logger, cfg)
}

func shipment(awb string, bucket courier.Bucket) store.Shipment {
	return store.Shipment{
		ID:          uuid.New(),
		OrderID:     uuid.New(),
		AWB:         awb,
		CourierName: "SHIPROCKET",
		VendorCode:  "shiprocket",
		Bucket:      int(bucket),
	}
}

func TestRun_ChangedBucketWritesStatusAndEvent(t *testing.T) {
	s := shipment("SR1", courier.BucketPickedUp)
	ships := newFakeShipmentStore(s)
	tracker := newFakeTracker()
	eventTime := time.Now().Truncate(time.Second)
	tracker.outcomes["SR1"] = &orchestrator.TrackOutcome{
		Success: true, Resolved: true,
		Bucket: courier.BucketInTransit, VendorStatus: "IT", EventTime: eventTime,
	}

	res, err := newReconciler(tracker, ships, reconciler.Config{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, writtenStatus{bucket: int(courier.BucketInTransit), status: "IT"}, ships.advanced[s.ID])
	require.Len(t, ships.events, 1)
	assert.Equal(t, eventTime, ships.events[0].OccurredAt)
}

func TestRun_UnchangedBucketSkips(t *testing.T) {
	s := shipment("SR1", courier.BucketInTransit)
	ships := newFakeShipmentStore(s)
	tracker := newFakeTracker()
	tracker.outcomes["SR1"] = &orchestrator.TrackOutcome{
		Success: true, Resolved: true,
		Bucket: courier.BucketInTransit, VendorStatus: "IT", EventTime: time.Now(),
	}

	res, err := newReconciler(tracker, ships, reconciler.Config{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Updated)
	assert.Empty(t, ships.advanced)
	assert.Empty(t, ships.events)
	assert.Equal(t, "no change", res.Results[0].Reason)
}

func TestRun_TerminalShipmentNeverWritten(t *testing.T) {
	delivered := shipment("SR1", courier.BucketDelivered)
	rto := shipment("SR2", courier.BucketRTODelivered)
	cancelled := shipment("SR3", courier.BucketCancelled)
	ships := newFakeShipmentStore(delivered, rto, cancelled)
	tracker := newFakeTracker()

	res, err := newReconciler(tracker, ships, reconciler.Config{}).Run(context.Background())
	require.NoError(t, err)

	// Terminal shipments are filtered out of the batch entirely.
	assert.Zero(t, res.Processed)
	assert.Empty(t, ships.advanced)
	assert.Empty(t, ships.events)
	assert.Empty(t, tracker.calls)
}

func TestRunBatch_TerminalShipmentInExplicitSliceSkipped(t *testing.T) {
	s := shipment("SR1", courier.BucketDelivered)
	ships := newFakeShipmentStore()
	tracker := newFakeTracker()

	res := newReconciler(tracker, ships, reconciler.Config{}).RunBatch(context.Background(), []store.Shipment{s})

	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, ships.advanced)
	assert.Empty(t, tracker.calls)
	assert.Contains(t, res.Results[0].Reason, "DELIVERED")
}

func TestRunBatch_MissingAWBAndCourierSkipped(t *testing.T) {
	noAWB := shipment("", courier.BucketNew)
	noCourier := shipment("SR2", courier.BucketNew)
	noCourier.CourierName = ""
	ships := newFakeShipmentStore()
	tracker := newFakeTracker()

	res := newReconciler(tracker, ships, reconciler.Config{}).
		RunBatch(context.Background(), []store.Shipment{noAWB, noCourier})

	assert.Equal(t, 2, res.Skipped)
	assert.Empty(t, tracker.calls)
}

func TestRun_FailureIsolatedPerShipment(t *testing.T) {
	bad := shipment("SR-BAD", courier.BucketPickedUp)
	good := shipment("SR-GOOD", courier.BucketPickedUp)
	ships := newFakeShipmentStore(bad, good)
	tracker := newFakeTracker()
	tracker.errs["SR-BAD"] = fmt.Errorf("vendor gateway unreachable")
	tracker.outcomes["SR-GOOD"] = &orchestrator.TrackOutcome{
		Success: true, Resolved: true,
		Bucket: courier.BucketDelivered, VendorStatus: "DLV", EventTime: time.Now(),
	}

	res, err := newReconciler(tracker, ships, reconciler.Config{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Failed)
	assert.Contains(t, ships.advanced, good.ID)
	assert.NotContains(t, ships.advanced, bad.ID)
}

func TestRun_UnresolvedBucketSkippedWithReason(t *testing.T) {
	s := shipment("SR1", courier.BucketPickedUp)
	ships := newFakeShipmentStore(s)
	tracker := newFakeTracker()
	tracker.outcomes["SR1"] = &orchestrator.TrackOutcome{Success: true, Resolved: false}

	res, err := newReconciler(tracker, ships, reconciler.Config{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, "no bucket resolved", res.Results[0].Reason)
}

func TestRun_StaleEventTimeNotDoubleAppended(t *testing.T) {
	s := shipment("SR1", courier.BucketPickedUp)
	ships := newFakeShipmentStore(s)
	eventTime := time.Now().Truncate(time.Second)
	ships.latest[s.ID] = eventTime // same scan already recorded

	tracker := newFakeTracker()
	tracker.outcomes["SR1"] = &orchestrator.TrackOutcome{
		Success: true, Resolved: true,
		Bucket: courier.BucketInTransit, VendorStatus: "IT", EventTime: eventTime,
	}

	res, err := newReconciler(tracker, ships, reconciler.Config{}).Run(context.Background())
	require.NoError(t, err)

	// The status still advances, but no duplicate event is written.
	assert.Equal(t, 1, res.Updated)
	assert.Contains(t, ships.advanced, s.ID)
	assert.Empty(t, ships.events)
}

func TestRun_RegressionAppliedNotRefused(t *testing.T) {
	s := shipment("SR1", courier.BucketOutForDelivery)
	ships := newFakeShipmentStore(s)
	tracker := newFakeTracker()
	tracker.outcomes["SR1"] = &orchestrator.TrackOutcome{
		Success: true, Resolved: true,
		Bucket: courier.BucketInTransit, VendorStatus: "IT", EventTime: time.Now(),
	}

	res, err := newReconciler(tracker, ships, reconciler.Config{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, int(courier.BucketInTransit), ships.advanced[s.ID].bucket)
}

func TestRun_BatchSizeBoundsThePull(t *testing.T) {
	var batch []store.Shipment
	for i := 0; i < 10; i++ {
		batch = append(batch, shipment(fmt.Sprintf("SR%d", i), courier.BucketPickedUp))
	}
	ships := newFakeShipmentStore(batch...)
	tracker := newFakeTracker()

	res, err := newReconciler(tracker, ships, reconciler.Config{BatchSize: 3}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Processed)
}

func TestRunBatch_PanicIsolatedAsFailed(t *testing.T) {
	s := shipment("SR1", courier.BucketPickedUp)
	ships := newFakeShipmentStore()
	tracker := &panickyTracker{}

	res := newReconciler2(tracker, ships).RunBatch(context.Background(), []store.Shipment{s})

	assert.Equal(t, 1, res.Failed)
	assert.Contains(t, res.Results[0].Reason, "panic")
}

type panickyTracker struct{}

func (p *panickyTracker) TrackShipment(ctx context.Context, awb string) (*orchestrator.TrackOutcome, error) {
	panic("nil adapter dereference")
}

func newReconciler2(tracker reconciler.Tracker, ships *fakeShipmentStore) *reconciler.Reconciler {
	logger := otelzap.New(zap.NewNop())
	return reconciler.New(tracker, ships, telemetry.NewMetrics(), logger, reconciler.Config{})
}
