package services

import "sync"

// ErrorSignal is a boolean value observers can subscribe to. Subscribers get
// the current value on registration and every change afterwards.
type ErrorSignal struct {
	mu     sync.Mutex
	active bool
	nextID int
	subs   map[int]func(active bool)
}

func NewErrorSignal() *ErrorSignal {
	return &ErrorSignal{subs: make(map[int]func(bool))}
}

// Subscribe registers fn and returns a func removing it again. fn must not
// call back into the signal.
func (s *ErrorSignal) Subscribe(fn func(active bool)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	current := s.active
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Set stores the value and notifies subscribers when it changed. It reports
// whether a change happened.
func (s *ErrorSignal) Set(active bool) bool {
	s.mu.Lock()
	if s.active == active {
		s.mu.Unlock()
		return false
	}
	s.active = active
	subs := make([]func(bool), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(active)
	}
	return true
}

func (s *ErrorSignal) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
