package graph

import (
	"context"
	"fmt"
	"strconv"

	"geosm/internal/models"
)

// SearchQuery is one tier of a tiered search.
type SearchQuery struct {
	Kind  models.SearchKind
	Match models.MatchMode
	Text  string
	// Exclude holds keys already returned by earlier tiers.
	Exclude []string
	Limit   int
}

var matchOperators = map[models.MatchMode]string{
	models.MatchExact:     "=",
	models.MatchPrefix:    "STARTS WITH",
	models.MatchSubstring: "CONTAINS",
}

// Results keep store order inside a tier.
const (
	searchUsersTemplate = `
		MATCH (u:User)
		WHERE u.username %s $text AND NOT toString(u.userId) IN $exclude
		RETURN u.userId AS id, u.username AS label, false AS unlisted
		LIMIT $limit
	`
	searchPostsTemplate = `
		MATCH (p:Post)
		WHERE p.title %s $text AND NOT toString(p.postId) IN $exclude
		RETURN p.postId AS id, p.title AS label, p.blockSearchEngines AS unlisted
		LIMIT $limit
	`
	searchTagsTemplate = `
		MATCH (t:Tag)
		WHERE t.name %s $text AND NOT t.name IN $exclude AND EXISTS { (:Post)-[:HAS_TAG]->(t) }
		RETURN DISTINCT t.name AS label
		LIMIT $limit
	`
)

// BuildSearchQuery returns the statement and parameters for one tier.
func BuildSearchQuery(q SearchQuery) (string, map[string]any, error) {
	op, ok := matchOperators[q.Match]
	if !ok {
		return "", nil, models.NewValidationError(fmt.Sprintf("unknown match mode %q", q.Match))
	}
	var template string
	switch q.Kind {
	case models.SearchUsers:
		template = searchUsersTemplate
	case models.SearchPosts:
		template = searchPostsTemplate
	case models.SearchTags:
		template = searchTagsTemplate
	default:
		return "", nil, models.NewValidationError(fmt.Sprintf("unknown search kind %q", q.Kind))
	}
	exclude := make([]any, 0, len(q.Exclude))
	for _, key := range q.Exclude {
		exclude = append(exclude, key)
	}
	return fmt.Sprintf(template, op), map[string]any{
		"text":    q.Text,
		"exclude": exclude,
		"limit":   int64(q.Limit),
	}, nil
}

// Search runs a single tier.
func (r *repository) Search(ctx context.Context, q SearchQuery) ([]models.SearchHit, error) {
	if q.Limit <= 0 {
		return nil, nil
	}
	cypher, params, err := BuildSearchQuery(q)
	if err != nil {
		return nil, err
	}
	records, err := r.exec(ctx, "search "+string(q.Kind), cypher, params)
	if err != nil {
		return nil, err
	}
	hits := make([]models.SearchHit, 0, len(records))
	for _, record := range records {
		hit := models.SearchHit{
			Kind:     q.Kind,
			Label:    getStringFromRecord(record, "label"),
			Tier:     q.Match,
			Unlisted: getBoolFromRecord(record, "unlisted"),
		}
		if q.Kind == models.SearchTags {
			hit.Key = hit.Label
		} else {
			hit.ID = getUintFromRecord(record, "id")
			hit.Key = strconv.FormatUint(uint64(hit.ID), 10)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
