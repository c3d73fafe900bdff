package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/parceldesk/courierhub/internal/cache"
	"github.com/parceldesk/courierhub/pkg/courier"
)

const (
	trackingKeyPrefix = "track:"

	// Terminal shipments never move again; transiting ones are re-polled
	// within the half hour.
	trackingTerminalTTL = 24 * time.Hour
	trackingTransitTTL  = 30 * time.Minute
)

// ResolvedEvent is one vendor scan with its canonical bucket attached.
type ResolvedEvent struct {
	Bucket       courier.Bucket `json:"bucket"`
	VendorStatus string         `json:"vendor_status"`
	Description  string         `json:"description,omitempty"`
	Location     string         `json:"location,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// TrackOutcome is the bucket-resolved tracking answer for one AWB.
type TrackOutcome struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`

	// Resolved is false when the vendor answered but no event mapped to
	// a bucket; the caller has nothing to act on.
	Resolved bool           `json:"resolved"`
	Bucket   courier.Bucket `json:"bucket,omitempty"`
	// VendorStatus is the raw status of the latest resolved event.
	VendorStatus string          `json:"vendor_status,omitempty"`
	EventTime    time.Time       `json:"event_time,omitempty"`
	Events       []ResolvedEvent `json:"events,omitempty"`

	// Terminal is set when the stored bucket already ended the lifecycle
	// and no vendor call was made.
	Terminal  bool `json:"terminal,omitempty"`
	FromCache bool `json:"-"`
}

// TrackShipment returns the latest canonical state for an AWB. A shipment
// whose stored bucket is terminal short-circuits without a vendor call.
// Otherwise the vendor's events are bucket-resolved, unresolvable ones are
// dropped, and the newest resolved event wins. Results are cached per AWB.
func (o *Orchestrator) TrackShipment(ctx context.Context, awb string) (*TrackOutcome, error) {
	s, err := o.shipments.GetByAWB(ctx, awb)
	if err != nil {
		return nil, fmt.Errorf("loading shipment %s: %w", awb, err)
	}

	if stored := courier.Bucket(s.Bucket); stored.Terminal() {
		return &TrackOutcome{
			Success:  true,
			Message:  fmt.Sprintf("shipment is %s, no tracking needed", stored),
			Resolved: true,
			Bucket:   stored,
			Terminal: true,
		}, nil
	}

	code, err := courier.ParseVendorCode(s.VendorCode)
	if err != nil {
		return &TrackOutcome{Message: fmt.Sprintf("shipment %s has unknown vendor %q", awb, s.VendorCode)}, nil
	}

	key := trackingKeyPrefix + awb
	out, hit, err := cache.Through(ctx, o.cache, key, func(ctx context.Context) (*TrackOutcome, time.Duration, error) {
		r := o.trackOnVendor(ctx, code, s.CourierName, awb)
		ttl := trackingTransitTTL
		if r.Resolved && r.Bucket.Terminal() {
			ttl = trackingTerminalTTL
		}
		return r, ttl, nil
	})
	if err != nil {
		return nil, err
	}
	if hit {
		o.metrics.RecordCacheLookup("tracking", "hit")
	} else {
		o.metrics.RecordCacheLookup("tracking", "miss")
	}
	out.FromCache = hit
	return out, nil
}

func (o *Orchestrator) trackOnVendor(ctx context.Context, code courier.VendorCode, courierName, awb string) *TrackOutcome {
	v, err := o.registry.Get(code)
	if err != nil {
		return &TrackOutcome{Message: fmt.Sprintf("vendor %s not registered", code)}
	}

	start := time.Now()
	res := v.TrackShipment(ctx, &courier.TrackRequest{AWB: awb})
	o.metrics.RecordRequest("track_shipment", code.String(), statusLabel(res.Success), time.Since(start).Seconds())
	if !res.Success {
		return &TrackOutcome{Message: res.Message}
	}

	out := &TrackOutcome{Success: true, Message: res.Message}
	for _, e := range res.Events {
		r := o.buckets.Resolve(ctx, courierName, e.StatusCode, e.Description)
		if !r.Matched {
			o.logger.Ctx(ctx).Debug("tracking event dropped, status unresolved",
				zap.String("awb", awb),
				zap.String("courier", courierName),
				zap.String("status_code", e.StatusCode))
			continue
		}
		out.Events = append(out.Events, ResolvedEvent{
			Bucket:       r.Bucket,
			VendorStatus: e.StatusCode,
			Description:  e.Description,
			Location:     e.Location,
			OccurredAt:   e.Timestamp,
		})
	}

	// The newest resolved scan is the shipment's current state.
	for _, e := range out.Events {
		if !e.OccurredAt.Before(out.EventTime) {
			out.Resolved = true
			out.Bucket = e.Bucket
			out.VendorStatus = e.VendorStatus
			out.EventTime = e.OccurredAt
		}
	}
	if !out.Resolved {
		out.Message = "no tracking event resolved to a bucket"
	}
	return out
}
