package graph

import (
	"context"
	"strings"
	"time"

	"geosm/internal/models"
)

// FeedView selects the ordering of the feed.
type FeedView string

const (
	FeedNew    FeedView = "new"
	FeedBest24 FeedView = "best24"
)

// Valid reports whether v is a known view.
func (v FeedView) Valid() bool {
	return v == FeedNew || v == FeedBest24
}

// FeedPageSize is the fixed page size; callers page with ExcludeIDs.
const FeedPageSize = 20

// FeedFilter holds the optional predicates of one feed page.
type FeedFilter struct {
	View           FeedView
	Tags           []string
	AuthorUsername string
	ExcludeIDs     []uint
	Location       *models.GeoPoint
	RadiusMeters   float64
	// Now anchors the Best24 window.
	Now time.Time
}

// BuildFeedQuery composes the feed statement. Predicates are AND-ed in a
// fixed order: tags, author, exclusions, distance, then the 24h window for
// Best24.
func BuildFeedQuery(f FeedFilter) (string, map[string]any) {
	var where []string
	params := map[string]any{}

	if len(f.Tags) > 0 {
		where = append(where, "EXISTS { MATCH (p)-[:HAS_TAG]->(t:Tag) WHERE t.name IN $tags }")
		params["tags"] = tagsParam(f.Tags)
	}
	if f.AuthorUsername != "" {
		where = append(where, "u.username = $author")
		params["author"] = f.AuthorUsername
	}
	if len(f.ExcludeIDs) > 0 {
		where = append(where, "NOT p.postId IN $excludeIds")
		ids := make([]any, 0, len(f.ExcludeIDs))
		for _, id := range f.ExcludeIDs {
			ids = append(ids, int64(id))
		}
		params["excludeIds"] = ids
	}
	if f.Location != nil {
		where = append(where, "p.location IS NOT NULL AND point.distance(p.location, point({latitude: $lat, longitude: $lng})) <= $radius")
		params["lat"] = f.Location.Latitude
		params["lng"] = f.Location.Longitude
		params["radius"] = f.RadiusMeters
	}
	order := "p.date DESC, p.postId DESC"
	if f.View == FeedBest24 {
		where = append(where, "p.date >= $since")
		params["since"] = toMillis(f.Now.Add(-24 * time.Hour))
		order = "p.counter DESC, p.date DESC"
	}

	var b strings.Builder
	b.WriteString("MATCH (u:User)-[:IS_AUTHOR]->(p:Post)")
	if len(where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(where, "\n  AND "))
	}
	b.WriteString("\nWITH u, p\nORDER BY ")
	b.WriteString(order)
	b.WriteString("\nLIMIT $limit")
	b.WriteString(postProjection)
	params["limit"] = int64(FeedPageSize)
	return b.String(), params
}

// Feed runs one feed page.
func (r *repository) Feed(ctx context.Context, f FeedFilter) ([]models.Post, error) {
	cypher, params := BuildFeedQuery(f)
	records, err := r.exec(ctx, "load feed", cypher, params)
	if err != nil {
		return nil, err
	}
	posts := make([]models.Post, 0, len(records))
	for _, record := range records {
		posts = append(posts, postFromRecord(record))
	}
	return posts, nil
}
