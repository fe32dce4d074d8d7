package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"accreditation/internal/catalog"
	"accreditation/internal/model"
)

// CatalogRepo serves server-configured areas, criteria and indicators
type CatalogRepo interface {
	catalog.CriteriaSource
	// Seed replaces the stored checklist with the given areas
	Seed(ctx context.Context, areas []model.AreaSpec) error
}

type catalogRepo struct {
	areas      *mongo.Collection
	criteria   *mongo.Collection
	indicators *mongo.Collection
}

// NewCatalogRepo creates a new catalog repository
func NewCatalogRepo(db *mongo.Database) CatalogRepo {
	return &catalogRepo{
		areas:      db.Collection("areas"),
		criteria:   db.Collection("criteria"),
		indicators: db.Collection("indicators"),
	}
}

func byOrder() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "order", Value: 1}})
}

func (r *catalogRepo) GetAreas(ctx context.Context) ([]model.Area, error) {
	cursor, err := r.areas.Find(ctx, bson.M{}, byOrder())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var areas []model.Area
	if err := cursor.All(ctx, &areas); err != nil {
		return nil, err
	}
	return areas, nil
}

func (r *catalogRepo) GetCriteriaByAreaID(ctx context.Context, areaID string) ([]model.Criterion, error) {
	cursor, err := r.criteria.Find(ctx, bson.M{"areaId": areaID}, byOrder())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var criteria []model.Criterion
	if err := cursor.All(ctx, &criteria); err != nil {
		return nil, err
	}
	return criteria, nil
}

func (r *catalogRepo) GetIndicatorsByCriteriaID(ctx context.Context, criteriaID string) ([]model.Indicator, error) {
	cursor, err := r.indicators.Find(ctx, bson.M{"criteriaId": criteriaID}, byOrder())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var indicators []model.Indicator
	if err := cursor.All(ctx, &indicators); err != nil {
		return nil, err
	}
	return indicators, nil
}

func (r *catalogRepo) Seed(ctx context.Context, areas []model.AreaSpec) error {
	for _, coll := range []*mongo.Collection{r.areas, r.criteria, r.indicators} {
		if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("failed to clear %s: %w", coll.Name(), err)
		}
	}

	var areaDocs, criteriaDocs, indicatorDocs []interface{}
	for _, a := range areas {
		areaDocs = append(areaDocs, a.Area)
		for ci, g := range a.Criteria {
			criteriaDocs = append(criteriaDocs, model.Criterion{ID: g.ID, AreaID: a.ID, Label: g.Label, Order: ci})
			for qi, q := range g.Questions {
				indicatorDocs = append(indicatorDocs, model.Indicator{Question: q, CriteriaID: g.ID, Order: qi})
			}
		}
	}

	inserts := []struct {
		coll *mongo.Collection
		docs []interface{}
	}{
		{r.areas, areaDocs},
		{r.criteria, criteriaDocs},
		{r.indicators, indicatorDocs},
	}
	for _, ins := range inserts {
		if len(ins.docs) == 0 {
			continue
		}
		if _, err := ins.coll.InsertMany(ctx, ins.docs); err != nil {
			return fmt.Errorf("failed to seed %s: %w", ins.coll.Name(), err)
		}
	}
	return nil
}
