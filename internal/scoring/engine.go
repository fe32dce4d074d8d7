// Package scoring derives question, group and overall scores from an answer
// set using static score tables. Nothing here is stored; every record is
// recomputed from the answers it is given.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"accreditation/internal/model"
)

// ScoreTable holds the option scores of a single question
type ScoreTable struct {
	MaxScore float64
	Values   map[string]float64
}

// Engine scores answers against a fixed set of tables
type Engine struct {
	tables map[string]ScoreTable
	order  []string

	// Strict makes Check reject answered options missing from their table.
	// Lookups stay tolerant either way.
	Strict bool
}

// NewEngine creates an engine over tables. ScoreForAll visits questions in
// id order; use FromRequestType to keep catalog order.
func NewEngine(tables map[string]ScoreTable) *Engine {
	order := make([]string, 0, len(tables))
	for id := range tables {
		order = append(order, id)
	}
	sort.Strings(order)
	return &Engine{tables: tables, order: order}
}

// FromRequestType builds the tables of every indicator of rt
func FromRequestType(rt *model.RequestType) *Engine {
	e := &Engine{tables: make(map[string]ScoreTable)}
	for _, q := range rt.Questions() {
		values := make(map[string]float64, len(q.Options))
		for _, o := range q.Options {
			values[o.ID] = o.Score
		}
		e.tables[q.ID] = ScoreTable{MaxScore: q.EffectiveMaxScore(), Values: values}
		e.order = append(e.order, q.ID)
	}
	return e
}

// QuestionIDs returns every scored question in traversal order
func (e *Engine) QuestionIDs() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// ScoreForQuestion scores one answer. Unknown questions and options score 0.
func (e *Engine) ScoreForQuestion(questionID string, answers model.Answers) model.ScoreRecord {
	rec := model.ScoreRecord{QuestionID: questionID}
	table, ok := e.tables[questionID]
	if !ok {
		return rec
	}
	rec.MaxScore = table.MaxScore

	selected := strings.TrimSpace(answers[questionID])
	if selected == "" {
		return rec
	}
	rec.IsComplete = true
	rec.Score = table.Values[selected]
	rec.Percentage = Percentage(rec.Score, rec.MaxScore)
	return rec
}

// ScoreForGroup sums the records of the listed questions
func (e *Engine) ScoreForGroup(questionIDs []string, answers model.Answers) model.AggregateScore {
	var agg model.AggregateScore
	for _, id := range questionIDs {
		rec := e.ScoreForQuestion(id, answers)
		agg.TotalScore += rec.Score
		agg.TotalMaxScore += rec.MaxScore
		if rec.IsComplete {
			agg.CompletedCount++
		}
		agg.TotalCount++
	}
	agg.Percentage = Percentage(agg.TotalScore, agg.TotalMaxScore)
	return agg
}

// ScoreForAll reduces over every table the engine knows
func (e *Engine) ScoreForAll(answers model.Answers) model.AggregateScore {
	return e.ScoreForGroup(e.order, answers)
}

// Summary scores every criteria group of rt plus the whole request
func (e *Engine) Summary(rt *model.RequestType, answers model.Answers) model.ScoreSummary {
	var summary model.ScoreSummary
	for _, step := range rt.Steps {
		for _, g := range step.Criteria {
			ids := make([]string, len(g.Questions))
			for i, q := range g.Questions {
				ids[i] = q.ID
			}
			summary.Groups = append(summary.Groups, model.GroupScore{
				StepID:  step.ID,
				GroupID: g.ID,
				Label:   g.Label,
				Score:   e.ScoreForGroup(ids, answers),
			})
		}
	}
	summary.Overall = e.ScoreForAll(answers)
	summary.Decision = Decide(summary.Overall.Percentage, rt.Thresholds)
	return summary
}

// UnknownOptionError is an answered option that has no score table entry
type UnknownOptionError struct {
	QuestionID string
	OptionID   string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("option %q is not scored for question %q", e.OptionID, e.QuestionID)
}

// Check reports the first answered option without a score. It is a no-op
// unless the engine is strict.
func (e *Engine) Check(answers model.Answers) error {
	if !e.Strict {
		return nil
	}
	for _, id := range e.order {
		selected := strings.TrimSpace(answers[id])
		if selected == "" {
			continue
		}
		if _, ok := e.tables[id].Values[selected]; !ok {
			return &UnknownOptionError{QuestionID: id, OptionID: selected}
		}
	}
	return nil
}

// Percentage rounds half up to a whole percent; a zero max yields 0
func Percentage(score, max float64) int {
	if max == 0 {
		return 0
	}
	return int(math.Floor(100*score/max + 0.5))
}

// ForCatalog builds one engine per request type, keyed by request type id
func ForCatalog(cat *model.Catalog, strict bool) map[string]*Engine {
	engines := make(map[string]*Engine, len(cat.RequestTypes))
	for i := range cat.RequestTypes {
		e := FromRequestType(&cat.RequestTypes[i])
		e.Strict = strict
		engines[cat.RequestTypes[i].ID] = e
	}
	return engines
}
