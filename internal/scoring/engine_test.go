package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accreditation/internal/catalog"
	"accreditation/internal/model"
)

func newSchoolEngine(t *testing.T) (*Engine, *model.RequestType) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	cat, err = catalog.Resolve(context.Background(), cat, catalog.NewStaticSource(cat))
	require.NoError(t, err)
	rt, ok := cat.RequestType("new_school")
	require.True(t, ok)
	return FromRequestType(rt), rt
}

func TestScoreForQuestion(t *testing.T) {
	engine, _ := newSchoolEngine(t)

	tests := []struct {
		name     string
		question string
		option   string
		want     model.ScoreRecord
	}{
		{
			name:     "rented facilities",
			question: "landOwnership",
			option:   "rented_facilities",
			want:     model.ScoreRecord{QuestionID: "landOwnership", Score: 0.5, MaxScore: 2, Percentage: 25, IsComplete: true},
		},
		{
			name:     "registered owner",
			question: "registrationDocuments",
			option:   "has_registration",
			want:     model.ScoreRecord{QuestionID: "registrationDocuments", Score: 2, MaxScore: 2, Percentage: 100, IsComplete: true},
		},
		{
			name:     "unanswered",
			question: "landOwnership",
			option:   "",
			want:     model.ScoreRecord{QuestionID: "landOwnership", MaxScore: 2},
		},
		{
			name:     "option of another question",
			question: "landOwnership",
			option:   "maintenance_plan",
			want:     model.ScoreRecord{QuestionID: "landOwnership", MaxScore: 2, IsComplete: true},
		},
		{
			name:     "zero max placeholder",
			question: "combinationApproval",
			option:   "approved",
			want:     model.ScoreRecord{QuestionID: "combinationApproval", IsComplete: true},
		},
		{
			name:     "unknown question",
			question: "swimmingPool",
			option:   "olympic",
			want:     model.ScoreRecord{QuestionID: "swimmingPool"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers := model.Answers{}
			if tt.option != "" {
				answers[tt.question] = tt.option
			}
			assert.Equal(t, tt.want, engine.ScoreForQuestion(tt.question, answers))
		})
	}
}

func TestScoreForQuestion_ZeroMaxNeverDivides(t *testing.T) {
	engine := NewEngine(map[string]ScoreTable{
		"placeholder": {MaxScore: 0, Values: map[string]float64{"a": 0, "b": 3}},
	})
	for _, opt := range []string{"a", "b", "c"} {
		rec := engine.ScoreForQuestion("placeholder", model.Answers{"placeholder": opt})
		assert.Equal(t, 0, rec.Percentage, opt)
	}
}

func TestScoreForQuestion_OptionsAreNamespaced(t *testing.T) {
	engine := NewEngine(map[string]ScoreTable{
		"schoolDevelopmentPlan": {MaxScore: 2, Values: map[string]float64{"no_plan": 0, "approved_plan": 2}},
		"workshopMaintenance":   {MaxScore: 2, Values: map[string]float64{"no_plan": 1, "maintenance_plan": 2}},
	})
	answers := model.Answers{"schoolDevelopmentPlan": "no_plan", "workshopMaintenance": "no_plan"}

	assert.Equal(t, 0.0, engine.ScoreForQuestion("schoolDevelopmentPlan", answers).Score)
	assert.Equal(t, 1.0, engine.ScoreForQuestion("workshopMaintenance", answers).Score)

	answers["schoolDevelopmentPlan"] = "maintenance_plan"
	assert.Equal(t, 0.0, engine.ScoreForQuestion("schoolDevelopmentPlan", answers).Score)
}

func TestScoreForGroup_Classrooms(t *testing.T) {
	engine, _ := newSchoolEngine(t)
	ids := []string{"classroomCount", "classroomSize", "classroomLighting", "classroomFurniture"}
	answers := model.Answers{"classroomCount": "sufficient", "classroomLighting": "adequate"}

	got := engine.ScoreForGroup(ids, answers)
	assert.Equal(t, model.AggregateScore{
		TotalScore:     6,
		TotalMaxScore:  12,
		Percentage:     50,
		CompletedCount: 2,
		TotalCount:     4,
	}, got)

	// pure: same inputs, same output, answers untouched
	assert.Equal(t, got, engine.ScoreForGroup(ids, answers))
	assert.Len(t, answers, 2)
}

func TestScoreForGroup_CompletionIsMonotonic(t *testing.T) {
	engine, _ := newSchoolEngine(t)
	ids := []string{"classroomCount", "classroomSize"}
	answers := model.Answers{}

	before := engine.ScoreForGroup(ids, answers).CompletedCount
	answers["classroomCount"] = "insufficient"
	added := engine.ScoreForGroup(ids, answers).CompletedCount
	answers["classroomCount"] = "sufficient"
	overwritten := engine.ScoreForGroup(ids, answers).CompletedCount

	assert.Equal(t, 0, before)
	assert.Equal(t, 1, added)
	assert.Equal(t, added, overwritten)
}

func TestScoreForAll(t *testing.T) {
	engine, rt := newSchoolEngine(t)
	assert.Equal(t, rt.QuestionIDs(), engine.QuestionIDs())

	answers := model.Answers{}
	for _, q := range rt.Questions() {
		best := q.Options[0]
		for _, o := range q.Options {
			if o.Score > best.Score {
				best = o
			}
		}
		answers[q.ID] = best.ID
	}
	all := engine.ScoreForAll(answers)
	assert.Equal(t, 100, all.Percentage)
	assert.Equal(t, all.TotalCount, all.CompletedCount)
	assert.Equal(t, all.TotalMaxScore, all.TotalScore)
}

func TestPercentage_RoundsHalfUp(t *testing.T) {
	assert.Equal(t, 13, Percentage(0.5, 4))   // 12.5
	assert.Equal(t, 33, Percentage(1, 3))     // 33.33
	assert.Equal(t, 67, Percentage(2, 3))     // 66.67
	assert.Equal(t, 0, Percentage(0, 0))
	assert.Equal(t, 100, Percentage(12, 12))
}

func TestCheck(t *testing.T) {
	engine, _ := newSchoolEngine(t)
	answers := model.Answers{"landOwnership": "castle", "combination": "software_development"}

	require.NoError(t, engine.Check(answers))

	engine.Strict = true
	err := engine.Check(answers)
	var unknown *UnknownOptionError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "landOwnership", unknown.QuestionID)
	assert.Equal(t, "castle", unknown.OptionID)

	answers["landOwnership"] = "owned_title_deed"
	require.NoError(t, engine.Check(answers))
}

func TestSummary(t *testing.T) {
	engine, rt := newSchoolEngine(t)
	answers := model.Answers{"classroomCount": "sufficient", "classroomLighting": "adequate"}

	summary := engine.Summary(rt, answers)
	require.Len(t, summary.Groups, 6)
	assert.Equal(t, "infrastructure", summary.Groups[1].StepID)
	assert.Equal(t, "classrooms", summary.Groups[1].GroupID)
	assert.Equal(t, 50, summary.Groups[1].Score.Percentage)
	assert.Equal(t, model.DecisionNotEligible, summary.Decision)
}

func TestDecide(t *testing.T) {
	th := model.Thresholds{Eligible: 75, Conditional: 50}
	tests := []struct {
		pct  int
		want model.Decision
	}{
		{100, model.DecisionEligible},
		{75, model.DecisionEligible},
		{74, model.DecisionConditional},
		{50, model.DecisionConditional},
		{49, model.DecisionNotEligible},
		{0, model.DecisionNotEligible},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Decide(tt.pct, th), "percentage %d", tt.pct)
	}
}
