package goldprice

// PriceState holds the most recently observed price, or nothing before the
// first observation. It is not safe for concurrent use; the watcher owns it.
type PriceState struct {
	value float64
	set   bool
}

// Get returns the stored price and whether one has been observed.
func (s *PriceState) Get() (float64, bool) {
	return s.value, s.set
}

// Previous returns the stored price as a pointer, nil when unset.
func (s *PriceState) Previous() *float64 {
	if !s.set {
		return nil
	}
	v := s.value
	return &v
}

// Set records price as the latest observation.
func (s *PriceState) Set(price float64) {
	s.value = price
	s.set = true
}

// Changed reports whether current differs from the stored price. An unset
// state always counts as changed. Comparison is exact.
func (s *PriceState) Changed(current float64) bool {
	return !s.set || current != s.value
}
