package model

import "time"

// Applicant is the person submitting on behalf of a school
type Applicant struct {
	NationalID    string `json:"nationalId" bson:"nationalId"`
	ApplicantName string `json:"applicantName" bson:"applicantName"`
	Role          string `json:"role" bson:"role"`
	Email         string `json:"email" bson:"email"`
	Telephone     string `json:"telephone" bson:"telephone"`
}

// Fields exposes the applicant as step data for schema validation
func (a Applicant) Fields() StepData {
	return StepData{
		"nationalId":    a.NationalID,
		"applicantName": a.ApplicantName,
		"role":          a.Role,
		"email":         a.Email,
		"telephone":     a.Telephone,
	}
}

// SubmissionPayload is what the wizard hands to the Submitter
type SubmissionPayload struct {
	RequestTypeID       string    `json:"requestType" bson:"requestType"`
	Applicant           Applicant `json:"applicant" bson:"applicant"`
	Options             []string  `json:"options" bson:"options"`
	SelectedCombination string    `json:"selectedCombination" bson:"selectedCombination"`
	SchoolID            string    `json:"schoolId" bson:"schoolId"`
	Documents           []string  `json:"documents,omitempty" bson:"documents,omitempty"`
	// Answers keeps the question each option was chosen for, since option
	// ids are only unique within their question.
	Answers Answers `json:"answers" bson:"answers"`
}

// Application is a persisted submission with its computed outcome
type Application struct {
	ID          string            `json:"id" bson:"_id"`
	SessionID   string            `json:"sessionId" bson:"sessionId"`
	Payload     SubmissionPayload `json:"payload" bson:"payload"`
	Score       AggregateScore    `json:"score" bson:"score"`
	Decision    Decision          `json:"decision" bson:"decision"`
	SubmittedAt time.Time         `json:"submittedAt" bson:"submittedAt"`
}
