package courier

import (
	"fmt"
	"time"
)

// VendorCode identifies a vendor variant. Couriers with capacity tiers get
// one code per tier; the tier is part of the vendor identity, resolved once
// at configuration load.
type VendorCode int

const (
	VendorUnknown VendorCode = iota
	VendorDelhiveryHalfKG
	VendorDelhivery5KG
	VendorDelhivery10KG
	VendorShiprocket
	VendorXpressbees
)

var vendorCodeNames = map[VendorCode]string{
	VendorDelhiveryHalfKG: "delhivery-0.5",
	VendorDelhivery5KG:    "delhivery-5",
	VendorDelhivery10KG:   "delhivery-10",
	VendorShiprocket:      "shiprocket",
	VendorXpressbees:      "xpressbees",
}

// String returns the stable identifier for the vendor code.
func (v VendorCode) String() string {
	if name, ok := vendorCodeNames[v]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(v))
}

// ParseVendorCode resolves a configured vendor identifier to its code.
func ParseVendorCode(s string) (VendorCode, error) {
	for code, name := range vendorCodeNames {
		if name == s {
			return code, nil
		}
	}
	return VendorUnknown, fmt.Errorf("%w: %q", ErrVendorNotFound, s)
}

// PaymentMode is how a shipment is paid for.
type PaymentMode string

const (
	PaymentPrepaid PaymentMode = "prepaid"
	PaymentCOD     PaymentMode = "cod"
)

// NDRActionType is the instruction for a non-delivery report.
type NDRActionType string

const (
	NDRReattempt  NDRActionType = "reattempt"
	NDRReschedule NDRActionType = "reschedule"
	NDRReturn     NDRActionType = "rto"
)

// WeightUnit represents weight measurement unit.
type WeightUnit string

const (
	WeightKG WeightUnit = "kg"
	WeightLB WeightUnit = "lb"
)

// DimensionUnit represents dimension measurement unit.
type DimensionUnit string

const (
	DimensionCM DimensionUnit = "cm"
	DimensionIN DimensionUnit = "in"
)

// Outcome is the discriminated success/failure result every vendor
// operation carries. Failures are values, never panics or errors crossing
// the adapter boundary.
type Outcome struct {
	Success bool
	Message string
}

// OK builds a successful outcome.
func OK(format string, args ...any) Outcome {
	return Outcome{Success: true, Message: fmt.Sprintf(format, args...)}
}

// Fail builds a failed outcome.
func Fail(format string, args ...any) Outcome {
	return Outcome{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Address is a pickup or delivery address.
type Address struct {
	Name    string
	Phone   string
	Email   string
	Line1   string
	Line2   string
	City    string
	State   string
	Pincode string
	Country string // ISO 3166-1 alpha-2, defaults to "IN"
}

// Hub is a registered pickup location.
type Hub struct {
	Name    string // vendor-facing hub identifier, unique per seller
	Address Address
	// ReturnAddress receives RTO shipments; falls back to Address when empty.
	ReturnAddress *Address
}

// Package describes the physical parcel.
type Package struct {
	Length        float64
	Width         float64
	Height        float64
	DimensionUnit DimensionUnit
	DeadWeight    float64
	WeightUnit    WeightUnit
	Description   string
	DeclaredValue float64
}

// ServiceabilityRequest asks whether a vendor covers a route.
type ServiceabilityRequest struct {
	PickupPincode     string
	DeliveryPincode   string
	Weight            float64 // applicable weight in kg
	PaymentMode       PaymentMode
	CollectableAmount float64
	Reverse           bool // reverse pickup (customer -> seller)
}

// ServiceabilityResult is the uniform serviceability answer.
type ServiceabilityResult struct {
	Outcome
	Serviceable bool
	// CODAvailable reports whether cash-on-delivery is supported on the route.
	CODAvailable bool
	// EstimatedDeliveryDays is zero when the vendor does not report it.
	EstimatedDeliveryDays int
	// Data carries the vendor's raw payload for diagnostics.
	Data any
}

// RegisterHubRequest registers a pickup location.
type RegisterHubRequest struct {
	Hub Hub
}

// RegisterHubResult reports hub registration.
type RegisterHubResult struct {
	Outcome
	HubID string
	// AlreadyRegistered is set when the vendor reported a duplicate and the
	// call was converted to a no-op success.
	AlreadyRegistered bool
	Data              any
}

// CreateShipmentRequest books a shipment.
type CreateShipmentRequest struct {
	OrderRef          string // caller's order reference, used for idempotency
	Hub               Hub
	Consignee         Address
	Package           Package
	PaymentMode       PaymentMode
	CollectableAmount float64
	Reverse           bool
}

// CreateShipmentResult reports shipment creation.
type CreateShipmentResult struct {
	Outcome
	AWB         string
	CourierName string // vendor-assigned carrier, when the vendor sub-brokers
	LabelURL    string
	Data        any
}

// SchedulePickupRequest requests a pickup from a hub.
type SchedulePickupRequest struct {
	HubName       string
	Date          time.Time
	Slot          string // vendor slot identifier, e.g. "14:00-18:00"
	ExpectedCount int
}

// SchedulePickupResult reports pickup scheduling.
type SchedulePickupResult struct {
	Outcome
	PickupID string
	Data     any
}

// CancelShipmentRequest cancels a shipment.
type CancelShipmentRequest struct {
	AWB    string
	Reason string
}

// CancelShipmentResult reports cancellation.
type CancelShipmentResult struct {
	Outcome
	Data any
}

// TrackRequest asks for tracking state.
type TrackRequest struct {
	AWB string
}

// TrackingEvent is one vendor-reported scan, normalized only in shape; the
// status vocabulary stays vendor-specific until bucket resolution.
type TrackingEvent struct {
	Timestamp   time.Time
	StatusCode  string // vendor status code, e.g. "RT-108"
	Description string // vendor status text, e.g. "RTO In Transit"
	Location    string
}

// TrackResult reports tracking state.
type TrackResult struct {
	Outcome
	// Events are ordered ascending by vendor-reported timestamp.
	Events []TrackingEvent
	// VendorStatus is the vendor's own headline status string.
	VendorStatus string
	Data         any
}

// NDRActionRequest instructs non-delivery handling.
type NDRActionRequest struct {
	AWB          string
	Action       NDRActionType
	Remarks      string
	DeferredDate *time.Time // for reschedule
	NewPhone     string     // optional consignee correction
	NewAddress   *Address   // optional consignee correction
}

// NDRActionResult reports NDR handling.
type NDRActionResult struct {
	Outcome
	Data any
}
