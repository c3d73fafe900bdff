package shiprocket

import "sync"

type indexEntry struct {
	orderID    int64
	shipmentID int64
	pickedUp   bool
}

// shipmentIndex maps waybills to the vendor order and shipment handles they
// were booked under. Shiprocket cancels by order ID and schedules pickups by
// shipment ID, while the caller only holds the AWB.
type shipmentIndex struct {
	mu      sync.Mutex
	entries map[string]*indexEntry
}

func newShipmentIndex() *shipmentIndex {
	return &shipmentIndex{entries: make(map[string]*indexEntry)}
}

func (x *shipmentIndex) put(awb string, orderID, shipmentID int64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries[awb] = &indexEntry{orderID: orderID, shipmentID: shipmentID}
}

func (x *shipmentIndex) orderID(awb string) (int64, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	e, ok := x.entries[awb]
	if !ok {
		return 0, false
	}
	return e.orderID, true
}

func (x *shipmentIndex) pendingShipmentIDs() []int64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	var ids []int64
	for _, e := range x.entries {
		if !e.pickedUp {
			ids = append(ids, e.shipmentID)
		}
	}
	return ids
}

func (x *shipmentIndex) markPickedUp(ids []int64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	marked := make(map[int64]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	for _, e := range x.entries {
		if marked[e.shipmentID] {
			e.pickedUp = true
		}
	}
}

func (x *shipmentIndex) remove(awb string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.entries, awb)
}
