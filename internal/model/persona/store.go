package persona

// Store exposes persona retrieval for services and HTTP handlers.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
	Resolve(id string) Persona
}

// MemoryStore implements Store with an in-memory slice. The registry is
// read-only after construction.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the registered personas in seed order.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

// Resolve returns the persona for id, falling back to the first registry
// entry when the id is unknown. The fallback is silent: selection mistakes
// degrade to the default persona instead of surfacing an error.
func (s *MemoryStore) Resolve(id string) Persona {
	if item, ok := s.FindByID(id); ok {
		return item
	}
	if len(s.items) == 0 {
		return Persona{}
	}
	return s.items[0]
}
