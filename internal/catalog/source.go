package catalog

import (
	"context"
	"fmt"
	"sort"

	"accreditation/internal/model"
)

// CriteriaSource serves server-configured checklists
type CriteriaSource interface {
	GetAreas(ctx context.Context) ([]model.Area, error)
	GetCriteriaByAreaID(ctx context.Context, areaID string) ([]model.Criterion, error)
	GetIndicatorsByCriteriaID(ctx context.Context, criteriaID string) ([]model.Indicator, error)
}

// StaticSource serves the areas declared in a catalog document
type StaticSource struct {
	areas []model.AreaSpec
}

var _ CriteriaSource = (*StaticSource)(nil)

// NewStaticSource creates a source over the catalog's areas
func NewStaticSource(c *model.Catalog) *StaticSource {
	return &StaticSource{areas: c.Areas}
}

func (s *StaticSource) GetAreas(ctx context.Context) ([]model.Area, error) {
	areas := make([]model.Area, len(s.areas))
	for i, a := range s.areas {
		areas[i] = a.Area
	}
	sort.SliceStable(areas, func(i, j int) bool { return areas[i].Order < areas[j].Order })
	return areas, nil
}

func (s *StaticSource) GetCriteriaByAreaID(ctx context.Context, areaID string) ([]model.Criterion, error) {
	for _, a := range s.areas {
		if a.ID != areaID {
			continue
		}
		criteria := make([]model.Criterion, len(a.Criteria))
		for i, g := range a.Criteria {
			criteria[i] = model.Criterion{ID: g.ID, AreaID: a.ID, Label: g.Label, Order: i}
		}
		return criteria, nil
	}
	return nil, nil
}

func (s *StaticSource) GetIndicatorsByCriteriaID(ctx context.Context, criteriaID string) ([]model.Indicator, error) {
	for _, a := range s.areas {
		for _, g := range a.Criteria {
			if g.ID != criteriaID {
				continue
			}
			indicators := make([]model.Indicator, len(g.Questions))
			for i, q := range g.Questions {
				indicators[i] = model.Indicator{Question: q, CriteriaID: g.ID, Order: i}
			}
			return indicators, nil
		}
	}
	return nil, nil
}

// BuildGroups assembles the ordered criteria groups of an area from a source
func BuildGroups(ctx context.Context, src CriteriaSource, areaID string) ([]model.CriteriaGroup, error) {
	criteria, err := src.GetCriteriaByAreaID(ctx, areaID)
	if err != nil {
		return nil, fmt.Errorf("failed to get criteria for area %s: %w", areaID, err)
	}
	sort.SliceStable(criteria, func(i, j int) bool { return criteria[i].Order < criteria[j].Order })

	groups := make([]model.CriteriaGroup, 0, len(criteria))
	for _, c := range criteria {
		indicators, err := src.GetIndicatorsByCriteriaID(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get indicators for criteria %s: %w", c.ID, err)
		}
		sort.SliceStable(indicators, func(i, j int) bool { return indicators[i].Order < indicators[j].Order })

		group := model.CriteriaGroup{ID: c.ID, Label: c.Label}
		for _, ind := range indicators {
			group.Questions = append(group.Questions, ind.Question)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// Resolve returns a copy of c where every criteria step that names an area
// carries that area's groups as served by src.
func Resolve(ctx context.Context, c *model.Catalog, src CriteriaSource) (*model.Catalog, error) {
	out := *c
	out.RequestTypes = make([]model.RequestType, len(c.RequestTypes))
	for i, rt := range c.RequestTypes {
		steps := make([]model.Step, len(rt.Steps))
		copy(steps, rt.Steps)
		for j := range steps {
			step := &steps[j]
			if step.Kind != model.StepKindCriteria || step.Area == "" || len(step.Criteria) > 0 {
				continue
			}
			groups, err := BuildGroups(ctx, src, step.Area)
			if err != nil {
				return nil, fmt.Errorf("request type %s step %s: %w", rt.ID, step.ID, err)
			}
			step.Criteria = groups
		}
		rt.Steps = steps
		out.RequestTypes[i] = rt
	}
	return &out, nil
}
