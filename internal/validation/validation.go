// Package validation evaluates declarative field rules
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"accreditation/internal/model"
)

// FieldError is a single field failing its rule
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Errors collects field failures in field order
type Errors []*FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the failing field ids
func (e Errors) Fields() []string {
	out := make([]string, len(e))
	for i, fe := range e {
		out[i] = fe.Field
	}
	return out
}

var patterns sync.Map // pattern -> *regexp.Regexp

func compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patterns.Store(pattern, re)
	return re, nil
}

// Validate checks one value against its rule. It returns nil when the value passes.
func Validate(field string, rule model.FieldRule, value string) *FieldError {
	value = strings.TrimSpace(value)
	fail := func(msg string) *FieldError {
		if rule.Message != "" {
			msg = rule.Message
		}
		return &FieldError{Field: field, Message: msg}
	}

	if value == "" {
		if rule.Optional {
			return nil
		}
		switch rule.Kind {
		case model.RuleEnum:
			return fail("select an option")
		case model.RuleFileRef:
			return fail("a supporting document is required")
		default:
			return fail("this field is required")
		}
	}

	switch rule.Kind {
	case model.RuleEnum:
		for _, o := range rule.Options {
			if o == value {
				return nil
			}
		}
		return fail(fmt.Sprintf("%q is not a valid option", value))

	case model.RuleNonEmptyString:
		n := utf8.RuneCountInString(value)
		if rule.MinLength > 0 && n < rule.MinLength {
			return fail(fmt.Sprintf("must be at least %d characters", rule.MinLength))
		}
		if rule.MaxLength > 0 && n > rule.MaxLength {
			return fail(fmt.Sprintf("must be at most %d characters", rule.MaxLength))
		}
		if rule.Pattern != "" {
			re, err := compile(rule.Pattern)
			if err != nil {
				return &FieldError{Field: field, Message: "rule has an invalid pattern"}
			}
			if !re.MatchString(value) {
				return fail("has an invalid format")
			}
		}
		return nil

	case model.RuleFileRef:
		return nil
	}
	return &FieldError{Field: field, Message: fmt.Sprintf("unknown rule kind %q", rule.Kind)}
}

// ValidateSchema checks every field of schema against data. Fields present in
// data but absent from the schema are ignored.
func ValidateSchema(schema map[string]model.FieldRule, data model.StepData) error {
	fields := make([]string, 0, len(schema))
	for f := range schema {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var errs Errors
	for _, f := range fields {
		if fe := Validate(f, schema[f], data[f]); fe != nil {
			errs = append(errs, fe)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ApplicantSchema is the rule set for the person submitting a request
func ApplicantSchema() map[string]model.FieldRule {
	return map[string]model.FieldRule{
		"nationalId": {
			Kind:    model.RuleNonEmptyString,
			Pattern: `^[0-9]{16}$`,
			Message: "national ID must be 16 digits",
		},
		"applicantName": {Kind: model.RuleNonEmptyString, MinLength: 2, MaxLength: 120},
		"role":          {Kind: model.RuleNonEmptyString, MinLength: 2, MaxLength: 80},
		"email": {
			Kind:    model.RuleNonEmptyString,
			Pattern: `^[^@\s]+@[^@\s]+\.[^@\s]+$`,
			Message: "enter a valid email address",
		},
		"telephone": {
			Kind:    model.RuleNonEmptyString,
			Pattern: `^\+?[0-9]{10,13}$`,
			Message: "enter a valid telephone number",
		},
	}
}
