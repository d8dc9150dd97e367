package cart

import "time"

// IsOpen reports whether the cart drawer should be shown.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *Store) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.open = true
}

func (s *Store) CloseCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.open = false
}

// Toggle flips the visibility flag and returns the new value.
func (s *Store) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.open = !s.open
	return s.open
}

// openLocked opens the cart and schedules it to close again after autoClose.
func (s *Store) openLocked() {
	s.stopTimerLocked()
	s.open = true
	if s.autoClose <= 0 {
		return
	}
	gen := s.openGen
	s.closeTimer = time.AfterFunc(s.autoClose, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// a newer open or an explicit toggle supersedes this timer
		if s.openGen == gen {
			s.open = false
			s.closeTimer = nil
		}
	})
}

func (s *Store) stopTimerLocked() {
	s.openGen++
	if s.closeTimer != nil {
		s.closeTimer.Stop()
		s.closeTimer = nil
	}
}
