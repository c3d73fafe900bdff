package orchestrator

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/parceldesk/courierhub/internal/cache"
	"github.com/parceldesk/courierhub/internal/rates"
	"github.com/parceldesk/courierhub/internal/store"
	"github.com/parceldesk/courierhub/pkg/courier"
)

const (
	serviceabilityKeyPrefix = "svc:"

	// Successful answers are stable enough to hold for half an hour; a
	// no-coverage or degraded answer is retried sooner so recovery is
	// visible quickly.
	serviceabilityHitTTL  = 30 * time.Minute
	serviceabilityMissTTL = 5 * time.Minute
)

// PlanServiceabilityRequest asks which of a plan's couriers can serve a
// route, and at what price.
type PlanServiceabilityRequest struct {
	UserID            string
	PlanID            string
	Pickup            rates.Location
	Delivery          rates.Location
	Package           courier.Package
	PaymentMode       courier.PaymentMode
	CollectableAmount float64
	Reverse           bool
}

// VendorReport is one vendor's contribution to a plan serviceability
// answer.
type VendorReport struct {
	Vendor                string `json:"vendor"`
	Serviceable           bool   `json:"serviceable"`
	CODAvailable          bool   `json:"cod_available"`
	EstimatedDeliveryDays int    `json:"estimated_delivery_days,omitempty"`
	Message               string `json:"message,omitempty"`
}

// PlanServiceabilityResult is the joined, priced answer. Serviceable is
// true when at least one courier on the plan can serve the route.
type PlanServiceabilityResult struct {
	Serviceable bool           `json:"serviceable"`
	Quotes      []rates.Quote  `json:"quotes"`
	Vendors     []VendorReport `json:"vendors"`
	FromCache   bool           `json:"-"`
}

// CheckServiceabilityForPlan resolves the plan's couriers, fans one
// serviceability call out per owning vendor, joins the answers, and prices
// every courier whose vendor covers the route. The whole result is cached
// by a fingerprint of user, route, dimensions, and payment.
func (o *Orchestrator) CheckServiceabilityForPlan(ctx context.Context, req PlanServiceabilityRequest) (*PlanServiceabilityResult, error) {
	key := serviceabilityKeyPrefix + fingerprint(req)

	res, hit, err := cache.Through(ctx, o.cache, key, func(ctx context.Context) (*PlanServiceabilityResult, time.Duration, error) {
		r, err := o.checkServiceability(ctx, req)
		if err != nil {
			return nil, 0, err
		}
		ttl := serviceabilityMissTTL
		if r.Serviceable {
			ttl = serviceabilityHitTTL
		}
		return r, ttl, nil
	})
	if err != nil {
		return nil, err
	}
	if hit {
		o.metrics.RecordCacheLookup("serviceability", "hit")
	} else {
		o.metrics.RecordCacheLookup("serviceability", "miss")
	}
	res.FromCache = hit
	return res, nil
}

func (o *Orchestrator) checkServiceability(ctx context.Context, req PlanServiceabilityRequest) (*PlanServiceabilityResult, error) {
	couriers, err := o.couriers.ListByPlan(ctx, req.PlanID)
	if err != nil {
		return nil, fmt.Errorf("loading couriers for plan %s: %w", req.PlanID, err)
	}
	if len(couriers) == 0 {
		return &PlanServiceabilityResult{Vendors: []VendorReport{}, Quotes: []rates.Quote{}}, nil
	}

	// One serviceability call per owning vendor covers every courier tier
	// it carries on this plan.
	byVendor := make(map[courier.VendorCode][]store.Courier)
	for _, c := range couriers {
		code, err := courier.ParseVendorCode(c.VendorCode)
		if err != nil {
			o.logger.Ctx(ctx).Warn("courier with unknown vendor code skipped",
				zap.String("courier", c.Name), zap.String("vendor_code", c.VendorCode))
			continue
		}
		byVendor[code] = append(byVendor[code], c)
	}

	codes := make([]courier.VendorCode, 0, len(byVendor))
	for code := range byVendor {
		codes = append(codes, code)
	}

	vreq := &courier.ServiceabilityRequest{
		PickupPincode:     req.Pickup.Pincode,
		DeliveryPincode:   req.Delivery.Pincode,
		Weight:            rates.ApplicableWeight(req.Package, 0),
		PaymentMode:       req.PaymentMode,
		CollectableAmount: req.CollectableAmount,
		Reverse:           req.Reverse,
	}
	answers := o.registry.CheckServiceabilityAll(ctx, vreq, codes)

	out := &PlanServiceabilityResult{Vendors: make([]VendorReport, 0, len(answers))}
	var priceable []rates.CourierPricing
	for code, ans := range answers {
		out.Vendors = append(out.Vendors, VendorReport{
			Vendor:                code.String(),
			Serviceable:           ans.Serviceable,
			CODAvailable:          ans.CODAvailable,
			EstimatedDeliveryDays: ans.EstimatedDeliveryDays,
			Message:               ans.Message,
		})
		if !ans.Serviceable {
			continue
		}
		out.Serviceable = true
		for _, c := range byVendor[code] {
			priceable = append(priceable, pricingOf(c))
		}
	}
	sort.Slice(out.Vendors, func(i, j int) bool { return out.Vendors[i].Vendor < out.Vendors[j].Vendor })

	out.Quotes = rates.Calculate(rates.Request{
		Package:           req.Package,
		Pickup:            req.Pickup,
		Delivery:          req.Delivery,
		PaymentMode:       req.PaymentMode,
		CollectableAmount: req.CollectableAmount,
		Reverse:           req.Reverse,
		Couriers:          priceable,
	})
	return out, nil
}

// pricingOf converts a configured courier row to the rate engine's input.
func pricingOf(c store.Courier) rates.CourierPricing {
	slabs := make(map[rates.Zone]rates.Slab, len(c.Pricing))
	for _, p := range c.Pricing {
		slabs[rates.Zone(p.Zone)] = rates.Slab{
			BaseWeight:      p.BaseWeight,
			BasePrice:       p.BasePrice,
			IncrementWeight: p.IncrementWeight,
			IncrementPrice:  p.IncrementPrice,
		}
	}
	return rates.CourierPricing{
		Name:              c.Name,
		Rating:            c.Rating,
		VolumetricDivisor: c.VolumetricDiv,
		CODFlatCharge:     c.CODFlatCharge,
		CODPercent:        c.CODPercent,
		RTOPercent:        c.RTOPercent,
		Slabs:             slabs,
	}
}

// fingerprint keys a serviceability answer by everything that can change
// it: caller, route, parcel dimensions, and payment terms.
func fingerprint(req PlanServiceabilityRequest) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%.2fx%.2fx%.2f|%s|%.3f|%s|%s|%.2f|%t",
		req.UserID, req.PlanID,
		req.Pickup.Pincode, req.Delivery.Pincode,
		req.Package.Length, req.Package.Width, req.Package.Height,
		req.Package.DimensionUnit,
		req.Package.DeadWeight, req.Package.WeightUnit,
		req.PaymentMode, req.CollectableAmount, req.Reverse)
	return hex.EncodeToString(h.Sum(nil))
}
