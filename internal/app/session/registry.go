package session

import (
	"sort"
	"time"

	"syncboard/internal/app/protocol"
)

// Position is a participant's last known pointer location.
type Position struct {
	protocol.Point
	SeenAt time.Time
}

// Registry maps participant names to their last known position.
// With a zero TTL entries live until removed explicitly.
type Registry struct {
	entries map[string]Position
	ttl     time.Duration
}

// NewRegistry returns an empty registry. ttl <= 0 disables expiry.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		entries: make(map[string]Position),
		ttl:     ttl,
	}
}

// Touch records that name was at p at time now.
func (r *Registry) Touch(name string, p protocol.Point, now time.Time) {
	r.entries[name] = Position{Point: p, SeenAt: now}
}

// Remove deletes name and reports whether it was present.
func (r *Registry) Remove(name string) bool {
	if _, ok := r.entries[name]; !ok {
		return false
	}
	delete(r.entries, name)
	return true
}

// Get returns the entry for name.
func (r *Registry) Get(name string) (Position, bool) {
	pos, ok := r.entries[name]
	return pos, ok
}

// Len returns the number of known participants.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Prune removes entries not seen within the TTL and returns their names in order.
func (r *Registry) Prune(now time.Time) []string {
	if r.ttl <= 0 {
		return nil
	}

	var removed []string
	for name, pos := range r.entries {
		if now.Sub(pos.SeenAt) > r.ttl {
			delete(r.entries, name)
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	return removed
}

// Labels builds the full label set sorted by name, leaving out self.
func (r *Registry) Labels(self string) []Label {
	labels := make([]Label, 0, len(r.entries))
	for name, pos := range r.entries {
		if name == self {
			continue
		}
		labels = append(labels, Label{Name: name, X: pos.X, Y: pos.Y})
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })
	return labels
}
