package service

import (
	"context"
	"strings"

	"geosm/internal/coordinator"
	"geosm/internal/geo"
	"geosm/internal/graph"
	"geosm/internal/models"
	"geosm/internal/observability"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// SearchService runs the tiered name search and the place lookup.
type SearchService struct {
	coord  coordinator.Runner
	places geo.Provider
}

func NewSearchService(coord coordinator.Runner, places geo.Provider) *SearchService {
	return &SearchService{coord: coord, places: places}
}

// Search cascades exact, prefix and substring matches. Each tier only gets
// the budget left by the earlier ones and never repeats their keys.
func (s *SearchService) Search(ctx context.Context, kind models.SearchKind, query string, limit int) ([]models.SearchHit, error) {
	if !kind.Valid() {
		return nil, models.NewValidationError("Unknown search kind")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	hits := make([]models.SearchHit, 0, limit)
	err := s.coord.Run(ctx, "search", coordinator.Graph, func(ctx context.Context, u *coordinator.Unit) error {
		for _, tier := range models.MatchTiers {
			budget := limit - len(hits)
			if budget <= 0 {
				break
			}
			exclude := make([]string, 0, len(hits))
			for _, h := range hits {
				exclude = append(exclude, h.Key)
			}
			found, err := u.Graph.Search(ctx, graph.SearchQuery{
				Kind:    kind,
				Match:   tier,
				Text:    query,
				Exclude: exclude,
				Limit:   budget,
			})
			if err != nil {
				return err
			}
			if len(found) > budget {
				found = found[:budget]
			}
			observability.SearchHits.WithLabelValues(string(kind), string(tier)).Add(float64(len(found)))
			hits = append(hits, found...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// SearchPlace geocodes text and drops duplicate descriptions.
func (s *SearchService) SearchPlace(ctx context.Context, text string) ([]geo.Place, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("Place query is required")
	}
	if s.places == nil {
		return []geo.Place{}, nil
	}
	places, err := s.places.Search(ctx, text)
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	return geo.Dedupe(places), nil
}
