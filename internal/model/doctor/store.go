package doctor

// Store exposes the specialist catalog to HTTP handlers.
type Store interface {
	List() []Doctor
	FindByID(id int) (Doctor, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Doctor
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied doctors.
func NewMemoryStore(items []Doctor) *MemoryStore {
	return &MemoryStore{items: append([]Doctor(nil), items...)}
}

// List returns a copy of the catalog.
func (s *MemoryStore) List() []Doctor {
	return append([]Doctor(nil), s.items...)
}

// FindByID looks up a doctor by identifier.
func (s *MemoryStore) FindByID(id int) (Doctor, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Doctor{}, false
}
