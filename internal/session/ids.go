package session

import "sync"

// PacketIDAllocator hands out outbound packet ids. The device reports the
// starting id during the handshake; until then the allocator refuses to
// produce ids. Ids within one session are strictly increasing; numeric
// wraparound is outside the allocator's contract.
type PacketIDAllocator struct {
	mu     sync.Mutex
	seeded bool
	last   uint32
}

// Seed sets the counter from the device's reported current packet id.
func (a *PacketIDAllocator) Seed(value uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seeded = true
	a.last = value
}

// Next returns the next packet id, or ErrNotConfigured before seeding.
func (a *PacketIDAllocator) Next() (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.seeded {
		return 0, ErrNotConfigured
	}
	a.last++
	return a.last, nil
}

// Reset clears the seed. Used on disconnect; the next session reseeds.
func (a *PacketIDAllocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seeded = false
	a.last = 0
}
