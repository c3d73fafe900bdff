package courier

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry holds the constructed vendor adapters, keyed by VendorCode.
// It is built once at startup and injected into the orchestrator; there is
// no global instance.
type Registry struct {
	vendors map[VendorCode]Vendor
	mu      sync.RWMutex
}

// NewRegistry creates an empty vendor registry.
func NewRegistry() *Registry {
	return &Registry{
		vendors: make(map[VendorCode]Vendor),
	}
}

// Register adds a vendor to the registry, replacing any previous adapter
// for the same code.
func (r *Registry) Register(v Vendor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vendors[v.Code()] = v
}

// Get returns the adapter for a vendor code.
func (r *Registry) Get(code VendorCode) (Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.vendors[code]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrVendorNotFound, code)
}

// All returns all registered vendors.
func (r *Registry) All() []Vendor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Vendor, 0, len(r.vendors))
	for _, v := range r.vendors {
		result = append(result, v)
	}
	return result
}

// Codes returns the codes of all registered vendors.
func (r *Registry) Codes() []VendorCode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]VendorCode, 0, len(r.vendors))
	for code := range r.vendors {
		codes = append(codes, code)
	}
	return codes
}

// Count returns the number of registered vendors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.vendors)
}

// CheckServiceabilityAll fans the serviceability call out to the given
// vendors concurrently and joins all results. A vendor that is missing from
// the registry contributes a failed result under its own code; a slow or
// broken vendor never blocks the others past its own call.
func (r *Registry) CheckServiceabilityAll(ctx context.Context, req *ServiceabilityRequest, codes []VendorCode) map[VendorCode]*ServiceabilityResult {
	if len(codes) == 0 {
		codes = r.Codes()
	}

	results := make(map[VendorCode]*ServiceabilityResult, len(codes))
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)
	for _, code := range codes {
		g.Go(func() error {
			var res *ServiceabilityResult
			v, err := r.Get(code)
			if err != nil {
				res = &ServiceabilityResult{Outcome: Fail("vendor %s not registered", code)}
			} else {
				res = v.CheckServiceability(ctx, req)
			}
			mu.Lock()
			results[code] = res
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return results
}
