// Package reconciler periodically polls vendors for shipments still in
// flight and advances shipment and order state exactly once per detected
// bucket change.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/parceldesk/courierhub/internal/orchestrator"
	"github.com/parceldesk/courierhub/internal/store"
	"github.com/parceldesk/courierhub/internal/telemetry"
	"github.com/parceldesk/courierhub/pkg/courier"
)

const (
	defaultBatchSize   = 200
	defaultConcurrency = 8
)

// Tracker is the tracking slice of the orchestrator.
type Tracker interface {
	TrackShipment(ctx context.Context, awb string) (*orchestrator.TrackOutcome, error)
}

// ShipmentStore is the persistence slice the reconciler drives.
// *store.ShipmentRepo satisfies it.
type ShipmentStore interface {
	ListTrackable(ctx context.Context, terminalBuckets []int, limit int) ([]store.Shipment, error)
	AdvanceStatus(ctx context.Context, shipmentID uuid.UUID, bucket int, vendorStatus string) error
	AppendEvent(ctx context.Context, e *store.TrackingEvent) error
	LatestEventTime(ctx context.Context, shipmentID uuid.UUID) (time.Time, error)
}

// Config bounds one reconciliation run.
type Config struct {
	// BatchSize caps how many shipments one run pulls.
	BatchSize int
	// Concurrency bounds parallel vendor polls so a large backlog does
	// not trip vendor rate limits.
	Concurrency int
}

// Reconciler is the batch state-machine driver.
type Reconciler struct {
	tracker   Tracker
	shipments ShipmentStore
	metrics   *telemetry.Metrics
	logger    *otelzap.Logger
	cfg       Config
}

// New creates a reconciler.
func New(tracker Tracker, shipments ShipmentStore, metrics *telemetry.Metrics, logger *otelzap.Logger, cfg Config) *Reconciler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Reconciler{tracker: tracker, shipments: shipments, metrics: metrics, logger: logger, cfg: cfg}
}

// Outcome classifies one shipment's reconciliation.
type Outcome string

const (
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// ShipmentResult is one shipment's line in a batch result.
type ShipmentResult struct {
	ShipmentID uuid.UUID      `json:"shipment_id"`
	AWB        string         `json:"awb"`
	Outcome    Outcome        `json:"outcome"`
	Bucket     courier.Bucket `json:"bucket,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

// Result aggregates one batch run.
type Result struct {
	Processed int              `json:"processed"`
	Updated   int              `json:"updated"`
	Skipped   int              `json:"skipped"`
	Failed    int              `json:"failed"`
	Results   []ShipmentResult `json:"results"`
}

func terminalBuckets() []int {
	out := make([]int, 0, 4)
	for b := courier.BucketNew; b <= courier.BucketCancelled; b++ {
		if b.Terminal() {
			out = append(out, int(b))
		}
	}
	return out
}

// Run pulls one batch of trackable shipments and reconciles them through a
// bounded worker pool. A failing shipment never aborts the batch.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	ships, err := r.shipments.ListTrackable(ctx, terminalBuckets(), r.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("listing trackable shipments: %w", err)
	}
	res := r.RunBatch(ctx, ships)

	r.metrics.RecordReconciler(res.Processed, res.Updated, res.Skipped, res.Failed)
	r.logger.Ctx(ctx).Info("reconciliation batch complete",
		zap.Int("processed", res.Processed),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed))
	return res, nil
}

// RunBatch reconciles an explicit shipment slice. Processing order across
// shipments is not significant.
func (r *Reconciler) RunBatch(ctx context.Context, ships []store.Shipment) *Result {
	res := &Result{
		Processed: len(ships),
		Results:   make([]ShipmentResult, len(ships)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, s := range ships {
		g.Go(func() error {
			res.Results[i] = r.reconcileOne(ctx, s)
			return nil
		})
	}
	g.Wait()

	for _, sr := range res.Results {
		switch sr.Outcome {
		case OutcomeUpdated:
			res.Updated++
		case OutcomeFailed:
			res.Failed++
		default:
			res.Skipped++
		}
	}
	return res
}

func (r *Reconciler) reconcileOne(ctx context.Context, s store.Shipment) (out ShipmentResult) {
	out = ShipmentResult{ShipmentID: s.ID, AWB: s.AWB}
	defer func() {
		if p := recover(); p != nil {
			out.Outcome = OutcomeFailed
			out.Reason = fmt.Sprintf("panic: %v", p)
			r.logger.Ctx(ctx).Error("reconcile panic",
				zap.String("awb", s.AWB), zap.Any("panic", p))
		}
	}()

	if s.AWB == "" {
		out.Outcome = OutcomeSkipped
		out.Reason = "no awb"
		return out
	}
	if s.CourierName == "" {
		out.Outcome = OutcomeSkipped
		out.Reason = "no courier"
		return out
	}
	stored := courier.Bucket(s.Bucket)
	if stored.Terminal() {
		out.Outcome = OutcomeSkipped
		out.Reason = fmt.Sprintf("already %s", stored)
		return out
	}

	track, err := r.tracker.TrackShipment(ctx, s.AWB)
	if err != nil {
		out.Outcome = OutcomeFailed
		out.Reason = err.Error()
		return out
	}
	if !track.Success {
		out.Outcome = OutcomeFailed
		out.Reason = track.Message
		return out
	}
	if !track.Resolved {
		out.Outcome = OutcomeSkipped
		out.Reason = "no bucket resolved"
		return out
	}

	out.Bucket = track.Bucket
	if track.Bucket == stored {
		out.Outcome = OutcomeSkipped
		out.Reason = "no change"
		return out
	}

	if track.Bucket.Rank() < stored.Rank() {
		// Vendors occasionally replay old scans; apply but flag it.
		r.logger.Ctx(ctx).Warn("bucket regression",
			zap.String("awb", s.AWB),
			zap.String("from", stored.String()),
			zap.String("to", track.Bucket.String()))
	}

	if err := r.shipments.AdvanceStatus(ctx, s.ID, int(track.Bucket), track.VendorStatus); err != nil {
		out.Outcome = OutcomeFailed
		out.Reason = err.Error()
		return out
	}

	// Duplicate polls of the same AWB must not double-append events.
	latest, err := r.shipments.LatestEventTime(ctx, s.ID)
	if err != nil {
		out.Outcome = OutcomeFailed
		out.Reason = err.Error()
		return out
	}
	if track.EventTime.After(latest) {
		if err := r.shipments.AppendEvent(ctx, &store.TrackingEvent{
			ShipmentID:   s.ID,
			Bucket:       int(track.Bucket),
			VendorStatus: track.VendorStatus,
			OccurredAt:   track.EventTime,
		}); err != nil {
			out.Outcome = OutcomeFailed
			out.Reason = err.Error()
			return out
		}
	}

	out.Outcome = OutcomeUpdated
	return out
}
