package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"accreditation/internal/model"
)

// ApplicationRepo handles MongoDB operations for submitted applications
type ApplicationRepo interface {
	Create(ctx context.Context, app *model.Application) error
	GetByID(ctx context.Context, id string) (*model.Application, error)
	GetBySessionID(ctx context.Context, sessionID string) (*model.Application, error)
	GetBySchoolID(ctx context.Context, schoolID string) ([]*model.Application, error)
	EnsureIndexes(ctx context.Context) error
}

type applicationRepo struct {
	collection *mongo.Collection
}

// NewApplicationRepo creates a new application repository
func NewApplicationRepo(db *mongo.Database) ApplicationRepo {
	return &applicationRepo{
		collection: db.Collection("applications"),
	}
}

func (r *applicationRepo) Create(ctx context.Context, app *model.Application) error {
	if app.SubmittedAt.IsZero() {
		app.SubmittedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, app)
	return err
}

func (r *applicationRepo) GetByID(ctx context.Context, id string) (*model.Application, error) {
	var app model.Application
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&app)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.Application, error) {
	var app model.Application
	err := r.collection.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&app)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepo) GetBySchoolID(ctx context.Context, schoolID string) ([]*model.Application, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"payload.schoolId": schoolID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var apps []*model.Application
	if err := cursor.All(ctx, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *applicationRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "payload.schoolId", Value: 1}, {Key: "submittedAt", Value: -1}}},
		{Keys: bson.D{{Key: "sessionId", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}
