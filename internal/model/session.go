package model

import "time"

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionSubmitted SessionStatus = "submitted"
)

// SessionMeta identifies a wizard session and what it was started for
type SessionMeta struct {
	ID            string        `json:"id"`
	RequestTypeID string        `json:"requestType"`
	SchoolID      string        `json:"schoolId"`
	Status        SessionStatus `json:"status"`
	SubmissionID  string        `json:"submissionId,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Position is the wizard's navigation pointer
type Position struct {
	StepIndex      int    `json:"stepIndex"`
	CriteriaID     string `json:"criteriaId,omitempty"`
	IndicatorIndex int    `json:"indicatorIndex"`
}
