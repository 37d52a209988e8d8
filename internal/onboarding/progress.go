// Package onboarding holds the five-step first-run wizard state: a pure
// reducer over the flow state and a store that persists per-user snapshots.
package onboarding

// The five wizard steps in order.
const (
	StepWelcome = iota
	StepMeetAce
	StepHowAce
	StepPermissions
	StepProfile

	StepCount = 5
)

const lastStep = StepCount - 1

// Progress is the flow state. The zero value means a user who has never
// onboarded, which is also what a missing or corrupt snapshot decodes to.
// Step is only meaningful while Completed is false.
//
// The JSON field names are the snapshot wire format and cannot change without
// migrating stored snapshots.
type Progress struct {
	Completed bool `json:"isCompleted"`
	Step      int  `json:"currentStep"`
}

// Ratio returns the share of the wizard finished, for the progress indicator.
func (p Progress) Ratio() float64 {
	return float64(p.Step) / float64(StepCount)
}

// Direction tells the UI which way the step transition animates. It never
// affects control flow.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionForward
	DirectionBackward
)

// Action is a wizard controller operation.
type Action int

const (
	ActionNext Action = iota
	ActionPrevious
	ActionSkip
	ActionComplete
)

// Apply is the wizard transition function.
//
//   - Next advances one step, except on the last step where it completes the
//     wizard instead. Step never exceeds the last step.
//   - Previous goes back one step and is a no-op on the first step.
//   - Skip and Complete mark the wizard completed and leave Step at its last
//     value. Completion is terminal: the wizard is never rendered again.
func Apply(p Progress, action Action) (Progress, Direction) {
	switch action {
	case ActionNext:
		if p.Step < lastStep {
			p.Step++
			return p, DirectionForward
		}
		p.Completed = true
		return p, DirectionNone
	case ActionPrevious:
		if p.Step > 0 {
			p.Step--
			return p, DirectionBackward
		}
		return p, DirectionNone
	case ActionSkip, ActionComplete:
		p.Completed = true
		return p, DirectionNone
	}
	return p, DirectionNone
}
