package store

// SetFailLink forces the frame-link step of CreateProductFromFrame to fail.
func SetFailLink(s *Store, fn func(*CapturedFrame) error) {
	s.failLink = fn
}
