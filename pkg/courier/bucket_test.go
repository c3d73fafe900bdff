package courier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucket_String(t *testing.T) {
	assert.Equal(t, "NEW", BucketNew.String())
	assert.Equal(t, "DELIVERED", BucketDelivered.String())
	assert.Equal(t, "RTO_DELIVERED", BucketRTODelivered.String())
	assert.Equal(t, "UNKNOWN", Bucket(99).String())
}

func TestBucket_Valid(t *testing.T) {
	for b := BucketNew; b <= BucketCancelled; b++ {
		assert.True(t, b.Valid(), b.String())
	}
	assert.False(t, Bucket(0).Valid())
	assert.False(t, Bucket(11).Valid())
	assert.False(t, Bucket(-1).Valid())
}

func TestBucket_Terminal(t *testing.T) {
	terminal := []Bucket{BucketDelivered, BucketRTODelivered, BucketException, BucketCancelled}
	for _, b := range terminal {
		assert.True(t, b.Terminal(), b.String())
	}
	open := []Bucket{BucketNew, BucketPickedUp, BucketInTransit, BucketOutForDelivery, BucketNDR, BucketRTOInitiated}
	for _, b := range open {
		assert.False(t, b.Terminal(), b.String())
	}
}

func TestBucket_RankOrdering(t *testing.T) {
	assert.Less(t, BucketNew.Rank(), BucketPickedUp.Rank())
	assert.Less(t, BucketPickedUp.Rank(), BucketInTransit.Rank())
	assert.Less(t, BucketOutForDelivery.Rank(), BucketNDR.Rank())
	assert.Less(t, BucketNDR.Rank(), BucketRTOInitiated.Rank())
	// Both completed outcomes share a rank.
	assert.Equal(t, BucketDelivered.Rank(), BucketRTODelivered.Rank())
}

func TestIsRTOStatusText(t *testing.T) {
	assert.True(t, IsRTOStatusText("RTO In Transit"))
	assert.True(t, IsRTOStatusText("Shipment Returned to Origin"))
	assert.True(t, IsRTOStatusText("return to shipper initiated"))
	assert.False(t, IsRTOStatusText("Out For Delivery"))
	assert.False(t, IsRTOStatusText("Delivered"))
}

func TestIsDeliveredStatusText(t *testing.T) {
	assert.True(t, IsDeliveredStatusText("Delivered"))
	assert.True(t, IsDeliveredStatusText("Shipment Delivered to consignee"))
	// An RTO delivery is not a forward delivery.
	assert.False(t, IsDeliveredStatusText("RTO Delivered"))
	assert.False(t, IsDeliveredStatusText("In Transit"))
}

func TestClassifyStatusText(t *testing.T) {
	tests := []struct {
		text    string
		want    Bucket
		matched bool
	}{
		{"Delivered", BucketDelivered, true},
		{"DELIVERED", BucketDelivered, true},
		{"RTO Delivered", BucketRTODelivered, true},
		{"RTO Initiated", BucketRTOInitiated, true},
		{"Return to Origin in transit", BucketRTOInitiated, true},
		{"Out for Delivery", BucketOutForDelivery, true},
		{"Consignee unavailable, delivery attempt failed", BucketNDR, true},
		{"Shipment Picked Up", BucketPickedUp, true},
		{"In Transit to destination hub", BucketInTransit, true},
		{"Departed from facility", BucketInTransit, true},
		{"Shipment Cancelled by seller", BucketCancelled, true},
		{"Package lost in transit", BucketException, true},
		{"Shipment damaged", BucketException, true},
		{"", BucketNew, false},
		{"QC check passed", BucketNew, false},
	}
	for _, tc := range tests {
		got, ok := ClassifyStatusText(tc.text)
		assert.Equal(t, tc.matched, ok, tc.text)
		assert.Equal(t, tc.want, got, tc.text)
	}
}

func TestClassifyStatusText_RTOWinsOverDelivered(t *testing.T) {
	// A scan that reads both ways resolves to the RTO branch.
	got, ok := ClassifyStatusText("RTO shipment delivered back to seller")
	assert.True(t, ok)
	assert.Equal(t, BucketRTODelivered, got)
}

func TestClassifyStatusText_ExceptionLosesToTransit(t *testing.T) {
	// "lost" inside an otherwise normal transit scan should not fire; the
	// transit phrase is checked first.
	got, ok := ClassifyStatusText("in transit, connection lost at hub")
	assert.True(t, ok)
	assert.Equal(t, BucketInTransit, got)
}

func TestIsAlreadyRegisteredMessage(t *testing.T) {
	assert.True(t, IsAlreadyRegisteredMessage("ClientWarehouse with this name already exists"))
	assert.True(t, IsAlreadyRegisteredMessage("Address nick name Already Exists"))
	assert.True(t, IsAlreadyRegisteredMessage("duplicate pickup location"))
	assert.False(t, IsAlreadyRegisteredMessage("invalid pincode"))
	assert.False(t, IsAlreadyRegisteredMessage(""))
}
