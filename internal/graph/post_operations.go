package graph

import (
	"context"

	"geosm/internal/models"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// postProjection is shared by every statement that returns full posts. It
// expects u bound to the author and p to the post.
const postProjection = `
	RETURN p.postId AS postId, p.authorId AS authorId, u.username AS author,
		p.date AS date, p.title AS title, p.content AS content, p.img AS img,
		p.counter AS counter, p.blockSearchEngines AS blockSearchEngines,
		p.location.latitude AS lat, p.location.longitude AS lng,
		[(p)-[:HAS_TAG]->(t:Tag) | t.name] AS tags,
		head([(f:Fact)-[:ABOUT]->(p) | f.content]) AS fact
`

func postFromRecord(record *neo4j.Record) models.Post {
	post := models.Post{
		PostID:             getUintFromRecord(record, "postId"),
		AuthorID:           getUintFromRecord(record, "authorId"),
		Author:             getStringFromRecord(record, "author"),
		Date:               getTimeFromRecord(record, "date"),
		Title:              getStringFromRecord(record, "title"),
		Content:            getStringFromRecord(record, "content"),
		Img:                getStringFromRecord(record, "img"),
		Counter:            getIntFromRecord(record, "counter"),
		BlockSearchEngines: getBoolFromRecord(record, "blockSearchEngines"),
		Tags:               sortedCopy(getStringSliceFromRecord(record, "tags")),
		Fact:               getOptionalStringFromRecord(record, "fact"),
	}
	lat, hasLat := getOptionalFloat64FromRecord(record, "lat")
	lng, hasLng := getOptionalFloat64FromRecord(record, "lng")
	if hasLat && hasLng {
		post.Location = &models.GeoPoint{Latitude: lat, Longitude: lng}
	}
	return post
}

// CreatePost creates the post node under its author and merges its tags.
// post.PostID must already be allocated by the relational shadow row.
func (r *repository) CreatePost(ctx context.Context, post models.Post) error {
	query := `
		MATCH (u:User {userId: $authorId})
		CREATE (u)-[:IS_AUTHOR]->(p:Post {
			postId: $postId,
			authorId: $authorId,
			date: $date,
			title: $title,
			content: $content,
			img: $img,
			counter: 0,
			blockSearchEngines: $blockSearchEngines
		})
		SET p.location = CASE WHEN $lat IS NULL THEN null ELSE point({latitude: $lat, longitude: $lng}) END
		FOREACH (tag IN $tags |
			MERGE (t:Tag {name: tag})
			MERGE (p)-[:HAS_TAG]->(t)
		)
		RETURN p.postId AS postId
	`
	params := map[string]any{
		"postId":             int64(post.PostID),
		"authorId":           int64(post.AuthorID),
		"date":               toMillis(post.Date),
		"title":              post.Title,
		"content":            post.Content,
		"img":                post.Img,
		"blockSearchEngines": post.BlockSearchEngines,
		"lat":                nil,
		"lng":                nil,
		"tags":               tagsParam(post.Tags),
	}
	if post.Location != nil {
		params["lat"] = post.Location.Latitude
		params["lng"] = post.Location.Longitude
	}
	_, err := r.single(ctx, "create post", query, params, "User", post.AuthorID)
	return err
}

func tagsParam(tags []string) []any {
	out := make([]any, 0, len(tags))
	for _, t := range tags {
		out = append(out, t)
	}
	return out
}

// GetPost fetches a post with its tags, fact and location.
func (r *repository) GetPost(ctx context.Context, postID uint) (*models.Post, error) {
	query := `MATCH (u:User)-[:IS_AUTHOR]->(p:Post {postId: $postId})` + postProjection
	record, err := r.single(ctx, "get post", query, map[string]any{"postId": int64(postID)}, "Post", postID)
	if err != nil {
		return nil, err
	}
	post := postFromRecord(record)
	return &post, nil
}

func (r *repository) DeletePost(ctx context.Context, postID uint) (string, error) {
	query := `
		MATCH (p:Post {postId: $postId})
		OPTIONAL MATCH (p)-[:HAS_COMMENT]->(c:Comment)
		OPTIONAL MATCH (f:Fact)-[:ABOUT]->(p)
		WITH p, p.img AS img, collect(DISTINCT c) + collect(DISTINCT f) AS children
		FOREACH (n IN children | DETACH DELETE n)
		DETACH DELETE p
		RETURN img
	`
	record, err := r.single(ctx, "delete post", query, map[string]any{"postId": int64(postID)}, "Post", postID)
	if err != nil {
		return "", err
	}
	img := getStringFromRecord(record, "img")
	if _, err := r.exec(ctx, "delete orphan tags", deleteOrphanTagsQuery, nil); err != nil {
		return "", err
	}
	return img, nil
}

// Relation returns the caller's vote state on a post.
func (r *repository) Relation(ctx context.Context, userID, postID uint) (models.Relation, error) {
	query := `
		OPTIONAL MATCH (:User {userId: $userId})-[e:LIKE|DISLIKE]->(:Post {postId: $postId})
		RETURN type(e) AS rel
	`
	records, err := r.exec(ctx, "get relation", query, map[string]any{
		"userId": int64(userID),
		"postId": int64(postID),
	})
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return models.RelationNone, nil
	}
	return relationFromEdge(getStringFromRecord(records[0], "rel")), nil
}

func (r *repository) Relations(ctx context.Context, userID uint, postIDs []uint) (map[uint]models.Relation, error) {
	out := make(map[uint]models.Relation, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	ids := make([]any, len(postIDs))
	for i, id := range postIDs {
		ids[i] = int64(id)
		out[id] = models.RelationNone
	}
	query := `
		UNWIND $postIds AS postId
		MATCH (:User {userId: $userId})-[e:LIKE|DISLIKE]->(p:Post {postId: postId})
		RETURN p.postId AS postId, type(e) AS rel
	`
	records, err := r.exec(ctx, "get relations", query, map[string]any{
		"userId":  int64(userID),
		"postIds": ids,
	})
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		out[getUintFromRecord(rec, "postId")] = relationFromEdge(getStringFromRecord(rec, "rel"))
	}
	return out, nil
}

func relationFromEdge(edge string) models.Relation {
	switch edge {
	case edgeLike:
		return models.RelationLiked
	case edgeDislike:
		return models.RelationDisliked
	}
	return models.RelationNone
}
