// Package rates computes shipping price quotes from zone slab tables. The
// engine is a pure function of its inputs; callers load pricing rows and
// serviceability elsewhere and hand them in.
package rates

import (
	"math"
	"sort"

	"github.com/parceldesk/courierhub/pkg/courier"
)

const (
	// defaultDivisorCM is the volumetric divisor for cm/kg conventions.
	defaultDivisorCM = 5000
	// divisorIN is the volumetric divisor for in/lb conventions.
	divisorIN = 139

	lbToKG = 0.453592
)

// Slab is one zone row of a courier's pricing table.
type Slab struct {
	BaseWeight      float64 // weight covered by the base price, kg
	BasePrice       float64
	IncrementWeight float64 // billing increment beyond the slab, kg
	IncrementPrice  float64
}

// CourierPricing is the rate card one courier brings to a quote request.
type CourierPricing struct {
	Name              string
	Rating            float64
	VolumetricDivisor float64 // cm divisor; 0 means the 5000 default
	CODFlatCharge     float64
	CODPercent        float64 // percent of collectable amount
	RTOPercent        float64 // percent of forward charges
	Slabs             map[Zone]Slab
}

// Request is everything a quote computation needs.
type Request struct {
	Package           courier.Package
	Pickup            Location
	Delivery          Location
	PaymentMode       courier.PaymentMode
	CollectableAmount float64
	// Reverse adds the RTO contingency to each quote.
	Reverse  bool
	Couriers []CourierPricing
}

// Quote is one courier's priced offer for the route.
type Quote struct {
	CourierName      string  `json:"courier_name"`
	Zone             Zone    `json:"zone"`
	ApplicableWeight float64 `json:"applicable_weight"` // kg
	BaseCharge       float64 `json:"base_charge"`
	WeightCharge     float64 `json:"weight_charge"`
	CODCharge        float64 `json:"cod_charge"`
	RTOCharge        float64 `json:"rto_charge"`
	Total            float64 `json:"total"`
	Rating           float64 `json:"rating"`
}

// VolumetricWeight converts box dimensions to billable kilograms. The
// divisor convention follows the dimension unit; a courier-specific cm
// divisor overrides the default.
func VolumetricWeight(pkg courier.Package, courierDivisor float64) float64 {
	volume := pkg.Length * pkg.Width * pkg.Height
	if volume <= 0 {
		return 0
	}
	divisor := float64(defaultDivisorCM)
	if courierDivisor > 0 {
		divisor = courierDivisor
	}
	if pkg.DimensionUnit == courier.DimensionIN {
		divisor = divisorIN
	}
	w := volume / divisor
	if pkg.DimensionUnit == courier.DimensionIN {
		// The inch convention yields pounds.
		w *= lbToKG
	}
	return w
}

// ApplicableWeight is the billable weight: the larger of dead and
// volumetric.
func ApplicableWeight(pkg courier.Package, courierDivisor float64) float64 {
	dead := pkg.DeadWeight
	if pkg.WeightUnit == courier.WeightLB {
		dead *= lbToKG
	}
	return math.Max(dead, VolumetricWeight(pkg, courierDivisor))
}

// Calculate prices the route for every courier carrying a slab for its
// zone and returns quotes ascending by total price. Ties break by rating
// descending, then courier name ascending, so equal-priced output is
// deterministic.
func Calculate(req Request) []Quote {
	zone := ResolveZone(req.Pickup, req.Delivery)

	quotes := make([]Quote, 0, len(req.Couriers))
	for _, c := range req.Couriers {
		slab, ok := c.Slabs[zone]
		if !ok {
			continue
		}

		weight := ApplicableWeight(req.Package, c.VolumetricDivisor)
		q := Quote{
			CourierName:      c.Name,
			Zone:             zone,
			ApplicableWeight: weight,
			BaseCharge:       slab.BasePrice,
			Rating:           c.Rating,
		}

		if extra := weight - slab.BaseWeight; extra > 0 && slab.IncrementWeight > 0 {
			q.WeightCharge = math.Ceil(extra/slab.IncrementWeight) * slab.IncrementPrice
		}

		if req.PaymentMode == courier.PaymentCOD {
			q.CODCharge = math.Max(c.CODFlatCharge, c.CODPercent/100*req.CollectableAmount)
		}

		if req.Reverse {
			q.RTOCharge = c.RTOPercent / 100 * (q.BaseCharge + q.WeightCharge)
		}

		q.Total = round2(q.BaseCharge + q.WeightCharge + q.CODCharge + q.RTOCharge)
		quotes = append(quotes, q)
	}

	sort.Slice(quotes, func(i, j int) bool {
		if quotes[i].Total != quotes[j].Total {
			return quotes[i].Total < quotes[j].Total
		}
		if quotes[i].Rating != quotes[j].Rating {
			return quotes[i].Rating > quotes[j].Rating
		}
		return quotes[i].CourierName < quotes[j].CourierName
	})
	return quotes
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
