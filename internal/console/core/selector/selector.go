package selector

// Selector tracks which vehicle an operator session is targeting.
// The zero value has no selection.
type Selector struct {
	current string
}

// Select makes id the target. Any id is accepted, known or not.
func (s *Selector) Select(id string) {
	s.current = id
}

// EnsureDefault selects the first of ids when nothing is selected yet. It
// reports whether a selection was made.
func (s *Selector) EnsureDefault(ids []string) bool {
	if s.current != "" || len(ids) == 0 {
		return false
	}
	s.current = ids[0]
	return true
}

// Current returns the selected vehicle id, or "" when none.
func (s *Selector) Current() string {
	return s.current
}
