package trail

import (
	"github.com/autopeer-io/fleetlink/internal/console/core/model"
)

// DefaultCapacity is the number of positions kept per vehicle.
const DefaultCapacity = 50

// Buffer keeps the most recent positions of every vehicle, oldest first.
// It is not safe for concurrent use; the owning session serializes access.
type Buffer struct {
	capacity int
	trails   map[string][]model.Position
	order    []string
}

// New returns an empty Buffer. A non-positive capacity selects DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity: capacity,
		trails:   make(map[string][]model.Position),
	}
}

// Append records pos for the vehicle, evicting the oldest entries once the
// trail is full. Positions with non-finite coordinates are ignored.
func (b *Buffer) Append(vehicleID string, pos model.Position) bool {
	if !pos.Valid() {
		return false
	}

	t, ok := b.trails[vehicleID]
	if !ok {
		b.order = append(b.order, vehicleID)
	}
	t = append(t, pos)
	if over := len(t) - b.capacity; over > 0 {
		t = append(t[:0:0], t[over:]...)
	}
	b.trails[vehicleID] = t
	return true
}

// Get returns a copy of the vehicle's trail. An unknown vehicle yields an
// empty, non-nil slice.
func (b *Buffer) Get(vehicleID string) []model.Position {
	t := b.trails[vehicleID]
	out := make([]model.Position, len(t))
	copy(out, t)
	return out
}

// Vehicles lists the vehicles that have a trail, in first-seen order.
func (b *Buffer) Vehicles() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Capacity returns the per-vehicle bound.
func (b *Buffer) Capacity() int {
	return b.capacity
}
