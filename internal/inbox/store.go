package inbox

// Listener observes every dispatched action together with the state before
// and after it.
type Listener func(prev, next State, a Action)

// Store owns the current State. It is not safe for concurrent use; all
// dispatches happen on the UI event loop.
type Store struct {
	state     State
	listeners []Listener
}

// NewStore returns a store holding initial.
func NewStore(initial State) *Store {
	return &Store{state: initial}
}

// State returns the current snapshot.
func (s *Store) State() State {
	return s.state
}

// Subscribe registers l to be called after each dispatch.
func (s *Store) Subscribe(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Dispatch applies a and notifies listeners. It returns the new state.
func (s *Store) Dispatch(a Action) State {
	prev := s.state
	s.state = Reduce(prev, a)
	for _, l := range s.listeners {
		l(prev, s.state, a)
	}
	return s.state
}
