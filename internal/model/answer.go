package model

import "strings"

// StepData is the answer slice owned by one step (field id -> value)
type StepData map[string]string

// AnswerSet maps step id to that step's answers
type AnswerSet map[string]StepData

// Answers is a flat question id -> selected option id view
type Answers map[string]string

// Merge copies data into the step's map, creating it if needed
func (a AnswerSet) Merge(stepID string, data StepData) {
	current, ok := a[stepID]
	if !ok {
		current = make(StepData, len(data))
		a[stepID] = current
	}
	for k, v := range data {
		current[k] = v
	}
}

// Value returns a single field value, or "" when absent
func (a AnswerSet) Value(stepID, field string) string {
	if data, ok := a[stepID]; ok {
		return data[field]
	}
	return ""
}

// HasData reports whether the step holds at least one non-empty value
func (a AnswerSet) HasData(stepID string) bool {
	for _, v := range a[stepID] {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// Indicators collects the selected option of every indicator, read only
// from the criteria step that owns it. Form fields and document keys never
// reach the result.
func (a AnswerSet) Indicators(rt *RequestType) Answers {
	out := make(Answers)
	for i := range rt.Steps {
		step := &rt.Steps[i]
		if step.Kind != StepKindCriteria {
			continue
		}
		data := a[step.ID]
		for _, g := range step.Criteria {
			for _, q := range g.Questions {
				if v, ok := data[q.ID]; ok {
					out[q.ID] = v
				}
			}
		}
	}
	return out
}

// Clone deep-copies the answer set
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for step, data := range a {
		cp := make(StepData, len(data))
		for k, v := range data {
			cp[k] = v
		}
		out[step] = cp
	}
	return out
}
