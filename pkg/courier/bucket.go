package courier

import (
	"strings"
)

// Bucket is the canonical lifecycle status shared across all vendors.
// The values are stable small integers persisted in the mapping table;
// never renumber them.
type Bucket int

const (
	BucketNew            Bucket = 1
	BucketPickedUp       Bucket = 2
	BucketInTransit      Bucket = 3
	BucketOutForDelivery Bucket = 4
	BucketNDR            Bucket = 5
	BucketRTOInitiated   Bucket = 6
	BucketDelivered      Bucket = 7
	BucketRTODelivered   Bucket = 8
	BucketException      Bucket = 9
	BucketCancelled      Bucket = 10
)

var bucketNames = map[Bucket]string{
	BucketNew:            "NEW",
	BucketPickedUp:       "PICKED_UP",
	BucketInTransit:      "IN_TRANSIT",
	BucketOutForDelivery: "OUT_FOR_DELIVERY",
	BucketNDR:            "NDR",
	BucketRTOInitiated:   "RTO_INITIATED",
	BucketDelivered:      "DELIVERED",
	BucketRTODelivered:   "RTO_DELIVERED",
	BucketException:      "EXCEPTION",
	BucketCancelled:      "CANCELLED",
}

// bucketRanks order buckets along the forward delivery path; the RTO branch
// ranks after NDR. Used only to detect regressions, not to forbid them.
var bucketRanks = map[Bucket]int{
	BucketNew:            0,
	BucketPickedUp:       1,
	BucketInTransit:      2,
	BucketOutForDelivery: 3,
	BucketNDR:            4,
	BucketRTOInitiated:   5,
	BucketDelivered:      6,
	BucketRTODelivered:   6,
	BucketException:      7,
	BucketCancelled:      7,
}

// String returns the canonical bucket name.
func (b Bucket) String() string {
	if name, ok := bucketNames[b]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether b is a member of the closed enumeration. Every
// mapping-table write path must hold this invariant.
func (b Bucket) Valid() bool {
	_, ok := bucketNames[b]
	return ok
}

// Terminal reports whether the bucket retires a shipment.
func (b Bucket) Terminal() bool {
	switch b {
	case BucketDelivered, BucketRTODelivered, BucketException, BucketCancelled:
		return true
	}
	return false
}

// Rank returns the bucket's position on the lifecycle path. A transition to
// a lower rank is a regression worth logging.
func (b Bucket) Rank() int {
	return bucketRanks[b]
}

// Status phrase sets for the keyword fallback. Matching is case-insensitive
// substring, same as the source-of-truth adapters do against vendor text.
var (
	rtoPhrases = []string{
		"rto", "return to origin", "returned to origin", "return to shipper",
		"returned to seller", "rts",
	}
	deliveredPhrases = []string{
		"delivered", "delivery completed", "shipment delivered",
	}
	outForDeliveryPhrases = []string{
		"out for delivery", "ofd", "with delivery courier",
	}
	pickedUpPhrases = []string{
		"picked up", "pickup done", "shipment picked", "manifested and picked",
	}
	transitPhrases = []string{
		"in transit", "in-transit", "reached at", "departed", "arrived at hub",
		"bagged", "shipment received at facility",
	}
	ndrPhrases = []string{
		"undelivered", "delivery attempt failed", "not delivered",
		"consignee unavailable", "ndr", "failed delivery",
	}
	cancelledPhrases = []string{
		"cancelled", "canceled", "cancellation",
	}
	exceptionPhrases = []string{
		"lost", "damaged", "destroyed", "shipment on hold", "seized",
	}
)

func matchesAny(s string, phrases []string) bool {
	s = strings.ToLower(s)
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// IsRTOStatusText reports whether a vendor status text reads as a return to
// origin. Shared across adapters as the mapping-table fallback.
func IsRTOStatusText(s string) bool {
	return matchesAny(s, rtoPhrases)
}

// IsDeliveredStatusText reports whether a vendor status text reads as a
// completed delivery. "RTO Delivered" counts as RTO, not delivery.
func IsDeliveredStatusText(s string) bool {
	return matchesAny(s, deliveredPhrases) && !IsRTOStatusText(s)
}

// ClassifyStatusText is the keyword heuristic of last resort: it maps any
// vendor status text to a bucket by phrase matching. The second return is
// false when no phrase set matched.
func ClassifyStatusText(s string) (Bucket, bool) {
	if strings.TrimSpace(s) == "" {
		return BucketNew, false
	}
	switch {
	case IsRTOStatusText(s):
		if matchesAny(s, deliveredPhrases) {
			return BucketRTODelivered, true
		}
		return BucketRTOInitiated, true
	case matchesAny(s, deliveredPhrases):
		return BucketDelivered, true
	case matchesAny(s, cancelledPhrases):
		return BucketCancelled, true
	case matchesAny(s, outForDeliveryPhrases):
		return BucketOutForDelivery, true
	case matchesAny(s, ndrPhrases):
		return BucketNDR, true
	case matchesAny(s, pickedUpPhrases):
		return BucketPickedUp, true
	case matchesAny(s, transitPhrases):
		return BucketInTransit, true
	case matchesAny(s, exceptionPhrases):
		return BucketException, true
	}
	return BucketNew, false
}

var alreadyRegisteredPhrases = []string{
	"already exists", "already exist", "already registered", "duplicate",
	"already created",
}

// IsAlreadyRegisteredMessage reports whether a vendor error payload means
// the hub was previously registered. Adapters convert such failures into
// no-op successes.
func IsAlreadyRegisteredMessage(s string) bool {
	return matchesAny(s, alreadyRegisteredPhrases)
}
