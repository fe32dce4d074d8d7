package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"accreditation/internal/model"
)

// ConfigurationError lists every defect found in a catalog
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid catalog: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid catalog (%d problems):\n  %s", len(e.Problems), strings.Join(e.Problems, "\n  "))
}

type checker struct {
	problems []string
}

func (c *checker) addf(format string, args ...interface{}) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

// Validate checks a resolved catalog. Every answerable option must carry a
// score, ids must be unique where lookups depend on them, and every rule must
// be one the generic validator understands.
func Validate(cat *model.Catalog) error {
	c := &checker{}
	if len(cat.RequestTypes) == 0 {
		c.addf("no request types defined")
	}

	seenTypes := make(map[string]bool)
	for i := range cat.RequestTypes {
		rt := &cat.RequestTypes[i]
		if rt.ID == "" {
			c.addf("request type #%d: missing id", i)
		} else if seenTypes[rt.ID] {
			c.addf("request type %q: duplicate id", rt.ID)
		}
		seenTypes[rt.ID] = true
		c.requestType(rt)
	}

	if len(c.problems) > 0 {
		return &ConfigurationError{Problems: c.problems}
	}
	return nil
}

func (c *checker) requestType(rt *model.RequestType) {
	th := rt.Thresholds
	if th.Conditional < 0 || th.Eligible > 100 || th.Conditional > th.Eligible {
		c.addf("request type %q: thresholds must satisfy 0 <= conditional <= eligible <= 100", rt.ID)
	}
	if len(rt.Steps) == 0 {
		c.addf("request type %q: no steps", rt.ID)
	}

	seenSteps := make(map[string]bool)
	seenQuestions := make(map[string]string)
	fieldSteps := make(map[string]string)
	for i := range rt.Steps {
		step := &rt.Steps[i]
		where := fmt.Sprintf("request type %q step %q", rt.ID, step.ID)
		if step.ID == "" {
			c.addf("request type %q step #%d: missing id", rt.ID, i)
		} else if seenSteps[step.ID] {
			c.addf("%s: duplicate id", where)
		}
		seenSteps[step.ID] = true

		switch step.Kind {
		case model.StepKindForm:
			c.formStep(where, step)
			for _, f := range step.Fields {
				fieldSteps[f.ID] = step.ID
			}
		case model.StepKindCriteria:
			c.criteriaStep(where, step, seenQuestions)
		default:
			c.addf("%s: unknown kind %q", where, step.Kind)
		}
	}

	for field, stepID := range fieldSteps {
		if owner, ok := seenQuestions[field]; ok {
			c.addf("request type %q: field %q of step %q collides with indicator in step %q", rt.ID, field, stepID, owner)
		}
	}
}

func (c *checker) formStep(where string, step *model.Step) {
	if len(step.Fields) == 0 {
		c.addf("%s: form step has no fields", where)
	}
	seen := make(map[string]bool)
	for _, f := range step.Fields {
		if f.ID == "" {
			c.addf("%s: field without id", where)
			continue
		}
		if seen[f.ID] {
			c.addf("%s field %q: duplicate id", where, f.ID)
		}
		seen[f.ID] = true
		c.rule(fmt.Sprintf("%s field %q", where, f.ID), f.Rule)
	}
}

func (c *checker) rule(where string, r model.FieldRule) {
	if !r.Kind.IsValid() {
		c.addf("%s: unknown rule kind %q", where, r.Kind)
		return
	}
	switch r.Kind {
	case model.RuleEnum:
		if len(r.Options) == 0 {
			c.addf("%s: enum rule without options", where)
		}
		seen := make(map[string]bool)
		for _, o := range r.Options {
			if seen[o] {
				c.addf("%s: duplicate enum option %q", where, o)
			}
			seen[o] = true
		}
	case model.RuleNonEmptyString:
		if r.MinLength < 0 || r.MaxLength < 0 || (r.MaxLength > 0 && r.MinLength > r.MaxLength) {
			c.addf("%s: invalid length bounds %d..%d", where, r.MinLength, r.MaxLength)
		}
		if r.Pattern != "" {
			if _, err := regexp.Compile(r.Pattern); err != nil {
				c.addf("%s: invalid pattern: %v", where, err)
			}
		}
	}
}

func (c *checker) criteriaStep(where string, step *model.Step, seenQuestions map[string]string) {
	if len(step.Criteria) == 0 {
		if step.Area != "" {
			c.addf("%s: area %q has no criteria (unresolved or empty)", where, step.Area)
		} else {
			c.addf("%s: criteria step has no groups", where)
		}
	}
	seenGroups := make(map[string]bool)
	for _, g := range step.Criteria {
		gw := fmt.Sprintf("%s group %q", where, g.ID)
		if g.ID == "" {
			c.addf("%s: group without id", where)
		} else if seenGroups[g.ID] {
			c.addf("%s: duplicate id", gw)
		}
		seenGroups[g.ID] = true
		if len(g.Questions) == 0 {
			c.addf("%s: no indicators", gw)
		}
		for i := range g.Questions {
			q := &g.Questions[i]
			if q.ID == "" {
				c.addf("%s indicator #%d: missing id", gw, i)
				continue
			}
			if owner, ok := seenQuestions[q.ID]; ok {
				c.addf("%s indicator %q: id already used in step %q", gw, q.ID, owner)
			}
			seenQuestions[q.ID] = step.ID
			c.question(fmt.Sprintf("%s indicator %q", gw, q.ID), q)
		}
	}
}

func (c *checker) question(where string, q *model.Question) {
	if len(q.Options) == 0 {
		c.addf("%s: no options", where)
	}
	if q.MaxScore != nil && *q.MaxScore < 0 {
		c.addf("%s: negative maxScore %v", where, *q.MaxScore)
	}
	max := q.EffectiveMaxScore()
	seen := make(map[string]bool)
	for _, o := range q.Options {
		if o.ID == "" {
			c.addf("%s: option without id", where)
			continue
		}
		if seen[o.ID] {
			c.addf("%s: duplicate option %q", where, o.ID)
		}
		seen[o.ID] = true
		if o.Score < 0 {
			c.addf("%s option %q: negative score %v", where, o.ID, o.Score)
		}
		if o.Score > max {
			c.addf("%s option %q: score %v exceeds maxScore %v", where, o.ID, o.Score, max)
		}
	}
}
