package model

import "time"

// Area is a top-level assessment area served by a CriteriaSource
type Area struct {
	ID    string `json:"id" bson:"_id" yaml:"id"`
	Label string `json:"label" bson:"label" yaml:"label"`
	Order int    `json:"order" bson:"order" yaml:"order"`
}

// Criterion is a criteria group as stored by a CriteriaSource
type Criterion struct {
	ID     string `json:"id" bson:"_id"`
	AreaID string `json:"areaId" bson:"areaId"`
	Label  string `json:"label" bson:"label"`
	Order  int    `json:"order" bson:"order"`
}

// Indicator is a question as stored by a CriteriaSource
type Indicator struct {
	Question   `bson:",inline"`
	CriteriaID string `json:"criteriaId" bson:"criteriaId"`
	Order      int    `json:"order" bson:"order"`
}

// Document is a stored supporting file
type Document struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	ContentType string    `json:"contentType" bson:"contentType"`
	Size        int64     `json:"size" bson:"size"`
	UploadedAt  time.Time `json:"uploadedAt" bson:"uploadedAt"`
}
