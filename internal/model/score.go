package model

// ScoreRecord is the derived score of a single question
type ScoreRecord struct {
	QuestionID string  `json:"questionId" bson:"questionId"`
	Score      float64 `json:"score" bson:"score"`
	MaxScore   float64 `json:"maxScore" bson:"maxScore"`
	Percentage int     `json:"percentage" bson:"percentage"`
	IsComplete bool    `json:"isComplete" bson:"isComplete"`
}

// AggregateScore is the derived score of a group of questions
type AggregateScore struct {
	TotalScore     float64 `json:"totalScore" bson:"totalScore"`
	TotalMaxScore  float64 `json:"totalMaxScore" bson:"totalMaxScore"`
	Percentage     int     `json:"percentage" bson:"percentage"`
	CompletedCount int     `json:"completedCount" bson:"completedCount"`
	TotalCount     int     `json:"totalCount" bson:"totalCount"`
}

// Decision is the provisional accreditation outcome
type Decision string

const (
	DecisionEligible    Decision = "eligible"
	DecisionConditional Decision = "conditional"
	DecisionNotEligible Decision = "not_eligible"
)

// GroupScore is the aggregate for one criteria group
type GroupScore struct {
	StepID  string         `json:"stepId" bson:"stepId"`
	GroupID string         `json:"groupId" bson:"groupId"`
	Label   string         `json:"label" bson:"label"`
	Score   AggregateScore `json:"score" bson:"score"`
}

// ScoreSummary is the live feedback for a whole request
type ScoreSummary struct {
	Groups   []GroupScore   `json:"groups" bson:"groups"`
	Overall  AggregateScore `json:"overall" bson:"overall"`
	Decision Decision       `json:"decision" bson:"decision"`
}
