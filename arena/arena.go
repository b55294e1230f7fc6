// Package arena implements versioned index->value storage: a slot table
// that hands out weak Entry{Index,Version} handles instead of pointers,
// so a handle taken before a slot was recycled safely resolves to "gone"
// rather than to whatever value moved in afterwards.
package arena

// Entry is a weak, versioned reference into a Repo. An Entry with
// Version == VersionNil (see Nil) never resolves.
type Entry struct {
	Index   uint32
	Version uint32
}

// VersionNil marks an Entry that never resolves, regardless of the state
// of the Repo it is checked against. Spec: "A nil ref (version=MAX) never
// resolves."
const VersionNil = ^uint32(0)

// Nil is the canonical non-resolving Entry.
var Nil = Entry{Index: 0, Version: VersionNil}

// IsNil reports whether e is the sentinel non-resolving entry.
func (e Entry) IsNil() bool { return e.Version == VersionNil }

type slot[T any] struct {
	value   T
	version uint32
	occupied bool
}

// Repo is a contiguous, versioned slot table. Get/Insert/Remove are O(1).
// Removed slots are tombstoned (version bumped, value zeroed) and reused
// by later Inserts via a freelist, so the table never needs to be
// reallocated to reclaim space.
type Repo[T any] struct {
	slots    []slot[T]
	freelist []uint32
	len      int
}

// New creates an empty Repo.
func New[T any]() *Repo[T] {
	return &Repo[T]{}
}

// NewWithCapacity creates an empty Repo whose backing slice is pre-sized
// to hold capacity slots, amortizing the Insert burst of an initial
// parse. A zero or negative capacity behaves like New.
func NewWithCapacity[T any](capacity int) *Repo[T] {
	if capacity <= 0 {
		return New[T]()
	}
	return &Repo[T]{slots: make([]slot[T], 0, capacity)}
}

// Len returns the number of live entries.
func (r *Repo[T]) Len() int { return r.len }

// Insert stores value and returns a fresh Entry that resolves to it.
func (r *Repo[T]) Insert(value T) Entry {
	r.len++
	if n := len(r.freelist); n > 0 {
		idx := r.freelist[n-1]
		r.freelist = r.freelist[:n-1]
		s := &r.slots[idx]
		s.value = value
		s.occupied = true
		return Entry{Index: idx, Version: s.version}
	}

	idx := uint32(len(r.slots))
	r.slots = append(r.slots, slot[T]{value: value, version: 1, occupied: true})
	return Entry{Index: idx, Version: 1}
}

// Get resolves e to its value. The second return is false if e is nil,
// out of range, or stale (the slot was removed and possibly reused since
// e was issued).
func (r *Repo[T]) Get(e Entry) (T, bool) {
	var zero T
	if e.IsNil() || int(e.Index) >= len(r.slots) {
		return zero, false
	}
	s := &r.slots[e.Index]
	if !s.occupied || s.version != e.Version {
		return zero, false
	}
	return s.value, true
}

// Contains reports whether e currently resolves.
func (r *Repo[T]) Contains(e Entry) bool {
	_, ok := r.Get(e)
	return ok
}

// Update replaces the value at e in place, provided e is still live.
// Reports whether the update took effect.
func (r *Repo[T]) Update(e Entry, value T) bool {
	if e.IsNil() || int(e.Index) >= len(r.slots) {
		return false
	}
	s := &r.slots[e.Index]
	if !s.occupied || s.version != e.Version {
		return false
	}
	s.value = value
	return true
}

// Remove frees the slot at e, bumping its version so outstanding handles
// observe it as gone, and returns the removed value. Reports whether
// anything was actually removed.
func (r *Repo[T]) Remove(e Entry) (T, bool) {
	var zero T
	if e.IsNil() || int(e.Index) >= len(r.slots) {
		return zero, false
	}
	s := &r.slots[e.Index]
	if !s.occupied || s.version != e.Version {
		return zero, false
	}

	value := s.value
	s.value = zero
	s.occupied = false
	// Version MAX is reserved for the nil sentinel: skip it on wraparound
	// so a recycled slot can never collide with Nil.
	s.version++
	if s.version == VersionNil {
		s.version++
	}
	r.freelist = append(r.freelist, e.Index)
	r.len--
	return value, true
}

// Each calls fn for every live entry, in slot order. fn must not mutate
// the Repo.
func (r *Repo[T]) Each(fn func(Entry, T)) {
	for i := range r.slots {
		s := &r.slots[i]
		if s.occupied {
			fn(Entry{Index: uint32(i), Version: s.version}, s.value)
		}
	}
}
