package scoring

import "accreditation/internal/model"

// Decide maps an overall percentage onto the provisional decision
func Decide(percentage int, th model.Thresholds) model.Decision {
	switch {
	case percentage >= th.Eligible:
		return model.DecisionEligible
	case percentage >= th.Conditional:
		return model.DecisionConditional
	default:
		return model.DecisionNotEligible
	}
}
