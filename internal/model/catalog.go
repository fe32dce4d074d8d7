package model

import "strings"

// StepKind defines how a step collects its answers
type StepKind string

const (
	StepKindForm     StepKind = "form"     // flat schema-validated fields
	StepKindCriteria StepKind = "criteria" // criteria groups of indicators
)

// RuleKind tags the variant of a FieldRule
type RuleKind string

const (
	RuleEnum           RuleKind = "enum"
	RuleNonEmptyString RuleKind = "string"
	RuleFileRef        RuleKind = "file"
)

// IsValid checks if the RuleKind is a known variant
func (k RuleKind) IsValid() bool {
	switch k {
	case RuleEnum, RuleNonEmptyString, RuleFileRef:
		return true
	}
	return false
}

// FieldRule is the declarative validation rule for one field
type FieldRule struct {
	Kind      RuleKind `json:"kind" bson:"kind" yaml:"kind"`
	Options   []string `json:"options,omitempty" bson:"options,omitempty" yaml:"options,omitempty"`       // enum
	MinLength int      `json:"minLength,omitempty" bson:"minLength,omitempty" yaml:"minLength,omitempty"` // string
	MaxLength int      `json:"maxLength,omitempty" bson:"maxLength,omitempty" yaml:"maxLength,omitempty"` // string
	Pattern   string   `json:"pattern,omitempty" bson:"pattern,omitempty" yaml:"pattern,omitempty"`       // string
	Optional  bool     `json:"optional,omitempty" bson:"optional,omitempty" yaml:"optional,omitempty"`
	Message   string   `json:"message,omitempty" bson:"message,omitempty" yaml:"message,omitempty"`
}

// Field is a single input of a form step
type Field struct {
	ID    string    `json:"id" bson:"id" yaml:"id"`
	Label string    `json:"label" bson:"label" yaml:"label"`
	Rule  FieldRule `json:"rule" bson:"rule" yaml:"rule"`
}

// CriteriaGroup is a named, ordered cluster of indicators
type CriteriaGroup struct {
	ID        string     `json:"id" bson:"id" yaml:"id"`
	Label     string     `json:"label" bson:"label" yaml:"label"`
	Questions []Question `json:"indicators" bson:"indicators" yaml:"indicators"`
}

// Step is a top-level wizard stage
type Step struct {
	ID    string   `json:"id" bson:"id" yaml:"id"`
	Label string   `json:"label" bson:"label" yaml:"label"`
	Kind  StepKind `json:"kind" bson:"kind" yaml:"kind"`

	// form steps
	Fields []Field `json:"fields,omitempty" bson:"fields,omitempty" yaml:"fields,omitempty"`

	// criteria steps: inline groups, or Area to pull them from a CriteriaSource
	Area     string          `json:"area,omitempty" bson:"area,omitempty" yaml:"area,omitempty"`
	Criteria []CriteriaGroup `json:"criteria,omitempty" bson:"criteria,omitempty" yaml:"criteria,omitempty"`
}

// IndicatorCount returns the number of indicators in a criteria group by position
func (s *Step) IndicatorCount(group int) int {
	if group < 0 || group >= len(s.Criteria) {
		return 0
	}
	return len(s.Criteria[group].Questions)
}

// GroupIndex returns the position of a criteria group, or -1
func (s *Step) GroupIndex(id string) int {
	for i := range s.Criteria {
		if s.Criteria[i].ID == id {
			return i
		}
	}
	return -1
}

// Schema returns the field rules for the step keyed by field id.
// Criteria steps get an enum rule per indicator and a file rule per
// required document.
func (s *Step) Schema() map[string]FieldRule {
	schema := make(map[string]FieldRule)
	switch s.Kind {
	case StepKindForm:
		for _, f := range s.Fields {
			schema[f.ID] = f.Rule
		}
	case StepKindCriteria:
		for _, g := range s.Criteria {
			for i := range g.Questions {
				q := &g.Questions[i]
				schema[q.ID] = FieldRule{Kind: RuleEnum, Options: q.OptionIDs()}
				if q.DocumentRequired {
					schema[DocumentKey(q.ID)] = FieldRule{Kind: RuleFileRef}
				}
			}
		}
	}
	return schema
}

// Owns reports whether key is a field of the step. Criteria steps own each
// indicator id and its document key.
func (s *Step) Owns(key string) bool {
	switch s.Kind {
	case StepKindForm:
		for _, f := range s.Fields {
			if f.ID == key {
				return true
			}
		}
	case StepKindCriteria:
		id := strings.TrimSuffix(key, DocumentSuffix)
		for _, g := range s.Criteria {
			for _, q := range g.Questions {
				if q.ID == id {
					return true
				}
			}
		}
	}
	return false
}

// Thresholds are the percentage cut-offs for the provisional decision
type Thresholds struct {
	Eligible    int `json:"eligible" bson:"eligible" yaml:"eligible"`
	Conditional int `json:"conditional" bson:"conditional" yaml:"conditional"`
}

// RequestType is one kind of accreditation request and its wizard layout
type RequestType struct {
	ID         string     `json:"id" bson:"id" yaml:"id"`
	Label      string     `json:"label" bson:"label" yaml:"label"`
	Thresholds Thresholds `json:"thresholds" bson:"thresholds" yaml:"thresholds"`
	Steps      []Step     `json:"steps" bson:"steps" yaml:"steps"`
}

// StepIndex returns the position of a step, or -1
func (rt *RequestType) StepIndex(id string) int {
	for i := range rt.Steps {
		if rt.Steps[i].ID == id {
			return i
		}
	}
	return -1
}

// Questions returns every indicator in step, group, index order
func (rt *RequestType) Questions() []*Question {
	var out []*Question
	for si := range rt.Steps {
		for gi := range rt.Steps[si].Criteria {
			g := &rt.Steps[si].Criteria[gi]
			for qi := range g.Questions {
				out = append(out, &g.Questions[qi])
			}
		}
	}
	return out
}

// QuestionIDs returns indicator ids in traversal order
func (rt *RequestType) QuestionIDs() []string {
	qs := rt.Questions()
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}

// AreaSpec is an assessment area together with its criteria groups
type AreaSpec struct {
	Area     `yaml:",inline"`
	Criteria []CriteriaGroup `json:"criteria" yaml:"criteria"`
}

// Catalog is the full static configuration of request types
type Catalog struct {
	Version      string        `json:"version" yaml:"version"`
	Areas        []AreaSpec    `json:"areas" yaml:"areas"`
	RequestTypes []RequestType `json:"requestTypes" yaml:"requestTypes"`
}

// RequestType finds a request type by id
func (c *Catalog) RequestType(id string) (*RequestType, bool) {
	for i := range c.RequestTypes {
		if c.RequestTypes[i].ID == id {
			return &c.RequestTypes[i], true
		}
	}
	return nil, false
}
