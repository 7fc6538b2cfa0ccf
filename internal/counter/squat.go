package counter

// Phase is the position of the squat state machine.
type Phase int

const (
	Up Phase = iota
	Down
)

func (p Phase) String() string {
	switch p {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	default:
		return "UNKNOWN"
	}
}

// transition moves the machine from one phase to the other when guard holds.
type transition struct {
	from   Phase
	to     Phase
	guard  func(Measurement, Thresholds) bool
	counts bool
}

// transitions is the complete table. Angles between the down and up
// thresholds match no guard, which keeps the machine from oscillating at
// the margins.
var transitions = []transition{
	{from: Up, to: Down, guard: Measurement.deep},
	{from: Down, to: Up, guard: Measurement.extended, counts: true},
}

// Squat is the two-state rep detector.
type Squat struct {
	phase Phase
	count int
}

// Step applies one measurement and reports whether it completed a rep.
// At most one transition fires per step.
func (s *Squat) Step(m Measurement, t Thresholds) bool {
	for _, tr := range transitions {
		if tr.from != s.phase || !tr.guard(m, t) {
			continue
		}
		s.phase = tr.to
		if tr.counts {
			s.count++
		}
		return tr.counts
	}
	return false
}

// Phase returns the current phase.
func (s *Squat) Phase() Phase {
	return s.phase
}

// Count returns the number of completed reps.
func (s *Squat) Count() int {
	return s.count
}
