package signup

// Step is the visible field group of the form.
type Step int

const (
	Step1Active Step = iota
	Step2Active
)

func (s Step) String() string {
	switch s {
	case Step1Active:
		return "step1"
	case Step2Active:
		return "step2"
	default:
		return "unknown"
	}
}

// Stepper is the two-state step controller. The zero value is in
// Step1Active.
type Stepper struct {
	step Step
}

// Current returns the active step.
func (s *Stepper) Current() Step {
	return s.step
}

// Advance moves to Step2Active when ready is true and the controller is in
// Step1Active. It reports whether the step changed.
func (s *Stepper) Advance(ready bool) bool {
	if s.step != Step1Active || !ready {
		return false
	}
	s.step = Step2Active
	return true
}

// Back returns to Step1Active. It reports whether the step changed.
func (s *Stepper) Back() bool {
	changed := s.step != Step1Active
	s.step = Step1Active
	return changed
}
