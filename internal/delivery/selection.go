package delivery

// Selection is an ordered set of checked ids, as kept by the listing and the
// delivery dialog.
type Selection[K comparable] struct {
	order []K
	set   map[K]struct{}
}

// NewSelection returns a selection holding ids.
func NewSelection[K comparable](ids ...K) *Selection[K] {
	s := &Selection[K]{set: make(map[K]struct{}, len(ids))}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

func (s *Selection[K]) add(id K) {
	if s.set == nil {
		s.set = make(map[K]struct{})
	}
	if _, ok := s.set[id]; ok {
		return
	}
	s.set[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *Selection[K]) remove(id K) {
	if _, ok := s.set[id]; !ok {
		return
	}
	delete(s.set, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Toggle flips membership of id.
func (s *Selection[K]) Toggle(id K) {
	if s.Has(id) {
		s.remove(id)
		return
	}
	s.add(id)
}

func (s *Selection[K]) Has(id K) bool {
	_, ok := s.set[id]
	return ok
}

func (s *Selection[K]) Len() int { return len(s.order) }

// Items returns the selected ids in the order they were added.
func (s *Selection[K]) Items() []K {
	out := make([]K, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Selection[K]) Clear() {
	s.order = nil
	s.set = make(map[K]struct{})
}

// ToggleAll clears the selection when it already holds exactly ids, and
// otherwise replaces it with ids.
func (s *Selection[K]) ToggleAll(ids []K) {
	if s.coversExactly(ids) {
		s.Clear()
		return
	}
	s.Clear()
	for _, id := range ids {
		s.add(id)
	}
}

func (s *Selection[K]) coversExactly(ids []K) bool {
	unique := make(map[K]struct{}, len(ids))
	for _, id := range ids {
		if !s.Has(id) {
			return false
		}
		unique[id] = struct{}{}
	}
	return len(unique) == s.Len()
}
