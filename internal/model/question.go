package model

// Option is one mutually exclusive answer to a Question
type Option struct {
	ID    string  `json:"id" bson:"id" yaml:"id"`
	Label string  `json:"label" bson:"label" yaml:"label"`
	Score float64 `json:"score" bson:"score" yaml:"score"` // non-negative, half points allowed
}

// Question is a single checklist indicator (single-select)
type Question struct {
	ID               string   `json:"id" bson:"id" yaml:"id"`
	Label            string   `json:"label" bson:"label" yaml:"label"`
	Options          []Option `json:"options" bson:"options" yaml:"options"`
	DocumentRequired bool     `json:"documentRequired" bson:"documentRequired" yaml:"documentRequired"`
	// MaxScore is optional. Nil means "highest option score"; an explicit 0
	// marks a placeholder whose weight is accounted for elsewhere.
	MaxScore *float64 `json:"maxScore,omitempty" bson:"maxScore,omitempty" yaml:"maxScore,omitempty"`
}

// Option looks up an option by id
func (q *Question) Option(id string) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// OptionIDs returns option ids in declaration order
func (q *Question) OptionIDs() []string {
	ids := make([]string, len(q.Options))
	for i, o := range q.Options {
		ids[i] = o.ID
	}
	return ids
}

// EffectiveMaxScore resolves the optional MaxScore
func (q *Question) EffectiveMaxScore() float64 {
	if q.MaxScore != nil {
		return *q.MaxScore
	}
	max := 0.0
	for _, o := range q.Options {
		if o.Score > max {
			max = o.Score
		}
	}
	return max
}

// DocumentKey is the step-data key holding the supporting document for a question
func DocumentKey(questionID string) string {
	return questionID + DocumentSuffix
}

// DocumentSuffix marks step-data keys that hold document references
const DocumentSuffix = "_document"
