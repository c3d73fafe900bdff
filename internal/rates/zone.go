package rates

import "strings"

// Zone is the pricing-relevant classification of a pickup/delivery pair.
// Slab tables are keyed by these letters.
type Zone string

const (
	ZoneA Zone = "A" // same city
	ZoneB Zone = "B" // same state
	ZoneC Zone = "C" // metro to metro
	ZoneD Zone = "D" // rest of country
	ZoneE Zone = "E" // extended and remote states
)

// Location is the geographic half of a route.
type Location struct {
	Pincode string
	City    string
	State   string
}

// metroCities are the zone C city pairs.
var metroCities = map[string]bool{
	"delhi":      true,
	"new delhi":  true,
	"mumbai":     true,
	"kolkata":    true,
	"chennai":    true,
	"bengaluru":  true,
	"bangalore":  true,
	"hyderabad":  true,
	"ahmedabad":  true,
	"pune":       true,
}

// extendedStates price as zone E regardless of the other end.
var extendedStates = map[string]bool{
	"jammu and kashmir": true,
	"jammu & kashmir":   true,
	"ladakh":            true,
	"himachal pradesh":  true,
	"assam":             true,
	"arunachal pradesh": true,
	"manipur":           true,
	"meghalaya":         true,
	"mizoram":           true,
	"nagaland":          true,
	"tripura":           true,
	"sikkim":            true,
	"andaman and nicobar islands": true,
	"lakshadweep":       true,
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ResolveZone classifies a route. Extended geography wins over every other
// rule; within the mainland the order is same city, same state, metro pair,
// rest of country.
func ResolveZone(pickup, delivery Location) Zone {
	if extendedStates[norm(pickup.State)] || extendedStates[norm(delivery.State)] {
		return ZoneE
	}
	if norm(pickup.City) != "" && norm(pickup.City) == norm(delivery.City) {
		return ZoneA
	}
	if norm(pickup.State) != "" && norm(pickup.State) == norm(delivery.State) {
		return ZoneB
	}
	if metroCities[norm(pickup.City)] && metroCities[norm(delivery.City)] {
		return ZoneC
	}
	return ZoneD
}
