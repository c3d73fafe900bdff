package rates

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parceldesk/courierhub/pkg/courier"
)

func TestResolveZone(t *testing.T) {
	tests := []struct {
		name     string
		pickup   Location
		delivery Location
		want     Zone
	}{
		{"same city", Location{City: "Mumbai", State: "Maharashtra"}, Location{City: "mumbai", State: "Maharashtra"}, ZoneA},
		{"same state", Location{City: "Pune", State: "Maharashtra"}, Location{City: "Nagpur", State: "Maharashtra"}, ZoneB},
		{"metro pair", Location{City: "Delhi", State: "Delhi"}, Location{City: "Chennai", State: "Tamil Nadu"}, ZoneC},
		{"rest of country", Location{City: "Surat", State: "Gujarat"}, Location{City: "Patna", State: "Bihar"}, ZoneD},
		{"extended delivery", Location{City: "Delhi", State: "Delhi"}, Location{City: "Leh", State: "Ladakh"}, ZoneE},
		{"extended pickup", Location{City: "Imphal", State: "Manipur"}, Location{City: "Mumbai", State: "Maharashtra"}, ZoneE},
		// Extended geography wins even over a same-state route.
		{"extended same state", Location{City: "Guwahati", State: "Assam"}, Location{City: "Silchar", State: "Assam"}, ZoneE},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveZone(tc.pickup, tc.delivery))
		})
	}
}

func TestVolumetricWeight(t *testing.T) {
	// 30x20x10 cm at the 5000 divisor is 1.2 kg.
	pkg := courier.Package{Length: 30, Width: 20, Height: 10, DimensionUnit: courier.DimensionCM}
	assert.InDelta(t, 1.2, VolumetricWeight(pkg, 0), 1e-9)

	// A courier-specific divisor overrides the default.
	assert.InDelta(t, 1.5, VolumetricWeight(pkg, 4000), 1e-9)

	// Inch dimensions use the 139 divisor and come out in pounds,
	// converted back to kilograms.
	inches := courier.Package{Length: 12, Width: 10, Height: 8, DimensionUnit: courier.DimensionIN}
	assert.InDelta(t, 12*10*8/139.0*0.453592, VolumetricWeight(inches, 0), 1e-9)

	// Zero dimensions contribute nothing.
	assert.Zero(t, VolumetricWeight(courier.Package{DeadWeight: 2}, 0))
}

func TestVolumetricWeight_MonotonicInEachDimension(t *testing.T) {
	base := courier.Package{Length: 30, Width: 20, Height: 10, DimensionUnit: courier.DimensionCM}
	w := VolumetricWeight(base, 0)

	longer := base
	longer.Length += 5
	wider := base
	wider.Width += 5
	taller := base
	taller.Height += 5

	assert.Greater(t, VolumetricWeight(longer, 0), w)
	assert.Greater(t, VolumetricWeight(wider, 0), w)
	assert.Greater(t, VolumetricWeight(taller, 0), w)
}

func TestApplicableWeight_MaxOfDeadAndVolumetric(t *testing.T) {
	light := courier.Package{Length: 30, Width: 20, Height: 10, DimensionUnit: courier.DimensionCM, DeadWeight: 0.4}
	assert.InDelta(t, 1.2, ApplicableWeight(light, 0), 1e-9) // volumetric wins

	dense := courier.Package{Length: 10, Width: 10, Height: 10, DimensionUnit: courier.DimensionCM, DeadWeight: 3}
	assert.InDelta(t, 3, ApplicableWeight(dense, 0), 1e-9) // dead weight wins
}

func testCouriers() []CourierPricing {
	slabs := func(base, incr float64) map[Zone]Slab {
		return map[Zone]Slab{
			ZoneA: {BaseWeight: 0.5, BasePrice: base, IncrementWeight: 0.5, IncrementPrice: incr},
			ZoneD: {BaseWeight: 0.5, BasePrice: base * 2, IncrementWeight: 0.5, IncrementPrice: incr * 2},
		}
	}
	return []CourierPricing{
		{Name: "DELHIVERY-0.5", Rating: 4.2, CODFlatCharge: 40, CODPercent: 1.5, RTOPercent: 80, Slabs: slabs(35, 30)},
		{Name: "SHIPROCKET", Rating: 4.0, CODFlatCharge: 30, CODPercent: 2, RTOPercent: 100, Slabs: slabs(45, 35)},
		{Name: "XPRESSBEES", Rating: 3.8, CODFlatCharge: 25, CODPercent: 1.8, RTOPercent: 50, Slabs: slabs(30, 28)},
	}
}

func TestCalculate_SortedAscendingByTotal(t *testing.T) {
	quotes := Calculate(Request{
		Package:     courier.Package{DeadWeight: 0.4, DimensionUnit: courier.DimensionCM},
		Pickup:      Location{City: "Mumbai", State: "Maharashtra"},
		Delivery:    Location{City: "Mumbai", State: "Maharashtra"},
		PaymentMode: courier.PaymentPrepaid,
		Couriers:    testCouriers(),
	})

	require.Len(t, quotes, 3)
	assert.True(t, sort.SliceIsSorted(quotes, func(i, j int) bool {
		return quotes[i].Total < quotes[j].Total
	}))
	assert.Equal(t, "XPRESSBEES", quotes[0].CourierName)
	assert.Equal(t, ZoneA, quotes[0].Zone)
	assert.Equal(t, 30.0, quotes[0].Total) // inside the base slab
}

func TestCalculate_WeightChargesRoundUpPerIncrement(t *testing.T) {
	quotes := Calculate(Request{
		// 1.3 kg dead: 0.8 kg over the 0.5 slab, billed as 2 increments.
		Package:     courier.Package{DeadWeight: 1.3},
		Pickup:      Location{City: "Mumbai", State: "Maharashtra"},
		Delivery:    Location{City: "Mumbai", State: "Maharashtra"},
		PaymentMode: courier.PaymentPrepaid,
		Couriers:    testCouriers()[:1],
	})

	require.Len(t, quotes, 1)
	assert.Equal(t, 35.0, quotes[0].BaseCharge)
	assert.Equal(t, 60.0, quotes[0].WeightCharge) // 2 x 30
	assert.Equal(t, 95.0, quotes[0].Total)
}

func TestCalculate_CODChargeIsMaxOfFlatAndPercent(t *testing.T) {
	base := Request{
		Package:     courier.Package{DeadWeight: 0.4},
		Pickup:      Location{City: "Mumbai", State: "Maharashtra"},
		Delivery:    Location{City: "Mumbai", State: "Maharashtra"},
		PaymentMode: courier.PaymentCOD,
		Couriers:    testCouriers()[:1], // flat 40, 1.5%
	}

	base.CollectableAmount = 1000 // 1.5% = 15, flat wins
	quotes := Calculate(base)
	require.Len(t, quotes, 1)
	assert.Equal(t, 40.0, quotes[0].CODCharge)

	base.CollectableAmount = 5000 // 1.5% = 75, percent wins
	quotes = Calculate(base)
	assert.Equal(t, 75.0, quotes[0].CODCharge)
}

func TestCalculate_RTOContingencyWhenReversible(t *testing.T) {
	quotes := Calculate(Request{
		Package:     courier.Package{DeadWeight: 0.4},
		Pickup:      Location{City: "Mumbai", State: "Maharashtra"},
		Delivery:    Location{City: "Mumbai", State: "Maharashtra"},
		PaymentMode: courier.PaymentPrepaid,
		Reverse:     true,
		Couriers:    testCouriers()[:1], // base 35, RTO 80%
	})

	require.Len(t, quotes, 1)
	assert.Equal(t, 28.0, quotes[0].RTOCharge)
	assert.Equal(t, 63.0, quotes[0].Total)
}

func TestCalculate_TieBreakRatingThenName(t *testing.T) {
	same := map[Zone]Slab{ZoneA: {BaseWeight: 0.5, BasePrice: 50}}
	quotes := Calculate(Request{
		Package:  courier.Package{DeadWeight: 0.3},
		Pickup:   Location{City: "Delhi", State: "Delhi"},
		Delivery: Location{City: "Delhi", State: "Delhi"},
		Couriers: []CourierPricing{
			{Name: "BRAVO", Rating: 4.0, Slabs: same},
			{Name: "ALPHA", Rating: 4.5, Slabs: same},
			{Name: "CHARLIE", Rating: 4.0, Slabs: same},
		},
	})

	require.Len(t, quotes, 3)
	assert.Equal(t, "ALPHA", quotes[0].CourierName)   // higher rating first
	assert.Equal(t, "BRAVO", quotes[1].CourierName)   // then name ascending
	assert.Equal(t, "CHARLIE", quotes[2].CourierName)
}

func TestCalculate_CourierWithoutZoneSlabIsSkipped(t *testing.T) {
	quotes := Calculate(Request{
		Package:  courier.Package{DeadWeight: 0.4},
		Pickup:   Location{City: "Surat", State: "Gujarat"},
		Delivery: Location{City: "Leh", State: "Ladakh"}, // zone E, no slabs seeded
		Couriers: testCouriers(),
	})
	assert.Empty(t, quotes)
}

func TestCalculate_EmptyInput(t *testing.T) {
	assert.Empty(t, Calculate(Request{}))
}
