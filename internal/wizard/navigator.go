package wizard

import (
	"fmt"

	"accreditation/internal/model"
)

// Outcome is the result of moving a Navigator
type Outcome int

const (
	// Moved means the pointer now rests on another indicator of the same step
	Moved Outcome = iota
	// StepComplete means Next ran past the last indicator of the last group
	StepComplete
	// StepExited means Previous ran before the first indicator of the first group
	StepExited
)

func (o Outcome) String() string {
	switch o {
	case Moved:
		return "moved"
	case StepComplete:
		return "step_complete"
	case StepExited:
		return "step_exited"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Navigator walks the indicators of one criteria step in group-then-index
// order. When a move leaves the step the pointer stays where it was.
type Navigator struct {
	step  *model.Step
	group int
	index int
}

// NewNavigator starts at the first indicator of the first group
func NewNavigator(step *model.Step) *Navigator {
	n := &Navigator{step: step}
	n.skipEmptyForward()
	return n
}

// Position returns the current group and indicator index
func (n *Navigator) Position() (group, index int) {
	return n.group, n.index
}

// CriteriaID returns the id of the current group
func (n *Navigator) CriteriaID() string {
	if n.group < len(n.step.Criteria) {
		return n.step.Criteria[n.group].ID
	}
	return ""
}

// Current returns the active indicator, or nil for a step without indicators
func (n *Navigator) Current() *model.Question {
	if n.step.IndicatorCount(n.group) == 0 {
		return nil
	}
	return &n.step.Criteria[n.group].Questions[n.index]
}

// Next advances one indicator, falling through to the next group's first
// indicator. Past the very last indicator it reports StepComplete.
func (n *Navigator) Next() Outcome {
	if n.index+1 < n.step.IndicatorCount(n.group) {
		n.index++
		return Moved
	}
	for g := n.group + 1; g < len(n.step.Criteria); g++ {
		if n.step.IndicatorCount(g) > 0 {
			n.group, n.index = g, 0
			return Moved
		}
	}
	return StepComplete
}

// Previous mirrors Next, falling through to the previous group's last
// indicator and reporting StepExited before the first one.
func (n *Navigator) Previous() Outcome {
	if n.index > 0 {
		n.index--
		return Moved
	}
	for g := n.group - 1; g >= 0; g-- {
		if count := n.step.IndicatorCount(g); count > 0 {
			n.group, n.index = g, count-1
			return Moved
		}
	}
	return StepExited
}

// Seek moves directly to an indicator of the named group
func (n *Navigator) Seek(criteriaID string, index int) error {
	g := n.step.GroupIndex(criteriaID)
	if g < 0 {
		return fmt.Errorf("criteria %q is not part of step %q", criteriaID, n.step.ID)
	}
	if index < 0 || index >= n.step.IndicatorCount(g) {
		return fmt.Errorf("indicator %d out of range for criteria %q", index, criteriaID)
	}
	n.group, n.index = g, index
	return nil
}

// Reset returns to the first indicator
func (n *Navigator) Reset() {
	n.group, n.index = 0, 0
	n.skipEmptyForward()
}

func (n *Navigator) skipEmptyForward() {
	for n.group < len(n.step.Criteria)-1 && n.step.IndicatorCount(n.group) == 0 {
		n.group++
	}
}
