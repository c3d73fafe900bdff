package courier_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parceldesk/courierhub/pkg/courier"
	"github.com/parceldesk/courierhub/pkg/courier/mock"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := courier.NewRegistry()
	reg.Register(mock.NewNamed(courier.VendorShiprocket, "Shiprocket"))
	reg.Register(mock.NewNamed(courier.VendorXpressbees, "Xpressbees"))

	v, err := reg.Get(courier.VendorShiprocket)
	require.NoError(t, err)
	assert.Equal(t, "Shiprocket", v.Name())

	assert.Equal(t, 2, reg.Count())
	assert.Len(t, reg.All(), 2)
	assert.ElementsMatch(t,
		[]courier.VendorCode{courier.VendorShiprocket, courier.VendorXpressbees},
		reg.Codes(),
	)
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg := courier.NewRegistry()

	_, err := reg.Get(courier.VendorDelhiveryHalfKG)
	require.Error(t, err)
	assert.True(t, errors.Is(err, courier.ErrVendorNotFound))
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	reg := courier.NewRegistry()
	reg.Register(mock.NewNamed(courier.VendorShiprocket, "first"))
	reg.Register(mock.NewNamed(courier.VendorShiprocket, "second"))

	v, err := reg.Get(courier.VendorShiprocket)
	require.NoError(t, err)
	assert.Equal(t, "second", v.Name())
	assert.Equal(t, 1, reg.Count())
}

func TestRegistry_CheckServiceabilityAll(t *testing.T) {
	reg := courier.NewRegistry()

	serviceable := mock.NewNamed(courier.VendorShiprocket, "Shiprocket")
	reg.Register(serviceable)

	notServiceable := mock.NewNamed(courier.VendorXpressbees, "Xpressbees")
	notServiceable.OnCheckServiceability = func(ctx context.Context, req *courier.ServiceabilityRequest) *courier.ServiceabilityResult {
		return &courier.ServiceabilityResult{Outcome: courier.OK("not covered"), Serviceable: false}
	}
	reg.Register(notServiceable)

	results := reg.CheckServiceabilityAll(context.Background(), &courier.ServiceabilityRequest{
		PickupPincode:   "110001",
		DeliveryPincode: "400001",
	}, nil)

	require.Len(t, results, 2)
	assert.True(t, results[courier.VendorShiprocket].Serviceable)
	assert.False(t, results[courier.VendorXpressbees].Serviceable)
	assert.True(t, results[courier.VendorXpressbees].Success)
}

func TestRegistry_CheckServiceabilityAll_MissingVendor(t *testing.T) {
	reg := courier.NewRegistry()
	reg.Register(mock.NewNamed(courier.VendorShiprocket, "Shiprocket"))

	results := reg.CheckServiceabilityAll(context.Background(), &courier.ServiceabilityRequest{
		PickupPincode:   "110001",
		DeliveryPincode: "400001",
	}, []courier.VendorCode{courier.VendorShiprocket, courier.VendorDelhivery5KG})

	require.Len(t, results, 2)
	assert.True(t, results[courier.VendorShiprocket].Success)
	// The unregistered vendor degrades to a failed result instead of
	// poisoning the whole fan-out.
	assert.False(t, results[courier.VendorDelhivery5KG].Success)
}

func TestRegistry_CheckServiceabilityAll_SlowVendorDoesNotBlockOthers(t *testing.T) {
	reg := courier.NewRegistry()

	fast := mock.NewNamed(courier.VendorShiprocket, "fast")
	reg.Register(fast)

	slow := mock.NewNamed(courier.VendorXpressbees, "slow")
	slow.OnCheckServiceability = func(ctx context.Context, req *courier.ServiceabilityRequest) *courier.ServiceabilityResult {
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
		}
		return &courier.ServiceabilityResult{Outcome: courier.Fail("timed out")}
	}
	reg.Register(slow)

	start := time.Now()
	results := reg.CheckServiceabilityAll(context.Background(), &courier.ServiceabilityRequest{
		PickupPincode:   "110001",
		DeliveryPincode: "400001",
	}, nil)
	elapsed := time.Since(start)

	require.Len(t, results, 2)
	assert.True(t, results[courier.VendorShiprocket].Success)
	// Calls run concurrently, so the join is bounded by the slowest vendor.
	assert.Less(t, elapsed, 500*time.Millisecond)
}
