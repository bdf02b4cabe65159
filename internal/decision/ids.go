package decision

import "sync"

// DefaultFallbackOrderID is handed out while no next-valid-id has arrived.
// Every such order reuses it.
const DefaultFallbackOrderID int64 = 2

// IDAllocator issues order ids from the gateway-supplied next valid id.
type IDAllocator struct {
	mu       sync.Mutex
	next     int64
	fallback int64
}

func NewIDAllocator(fallback int64) *IDAllocator {
	if fallback <= 0 {
		fallback = DefaultFallbackOrderID
	}
	return &IDAllocator{fallback: fallback}
}

// Seed sets the next id to hand out.
func (a *IDAllocator) Seed(id int64) {
	a.mu.Lock()
	a.next = id
	a.mu.Unlock()
}

// Next returns the next order id, or the fallback when unseeded.
func (a *IDAllocator) Next() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.next <= 0 {
		return a.fallback
	}
	id := a.next
	a.next++
	return id
}
