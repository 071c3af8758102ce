package graph

import (
	"context"

	"geosm/internal/models"
)

// CreateUser creates the social node of an activated account.
func (r *repository) CreateUser(ctx context.Context, user models.GraphUser) error {
	query := `
		CREATE (u:User {userId: $userId, username: $username, avatar: $avatar, reputation: $reputation})
		RETURN u.userId AS userId
	`
	_, err := r.exec(ctx, "create user", query, map[string]any{
		"userId":     int64(user.UserID),
		"username":   user.Username,
		"avatar":     user.Avatar,
		"reputation": int64(user.Reputation),
	})
	return err
}

// GetUser fetches the social node of a user.
func (r *repository) GetUser(ctx context.Context, userID uint) (*models.GraphUser, error) {
	query := `
		MATCH (u:User {userId: $userId})
		RETURN u.userId AS userId, u.username AS username, u.avatar AS avatar, u.reputation AS reputation
	`
	record, err := r.single(ctx, "get user", query, map[string]any{"userId": int64(userID)}, "User", userID)
	if err != nil {
		return nil, err
	}
	return &models.GraphUser{
		UserID:     getUintFromRecord(record, "userId"),
		Username:   getStringFromRecord(record, "username"),
		Avatar:     getStringFromRecord(record, "avatar"),
		Reputation: getIntFromRecord(record, "reputation"),
	}, nil
}

// UpdateAvatar swaps the avatar filename and returns the previous one.
func (r *repository) UpdateAvatar(ctx context.Context, userID uint, avatar string) (string, error) {
	query := `
		MATCH (u:User {userId: $userId})
		WITH u, u.avatar AS previous
		SET u.avatar = $avatar
		RETURN previous
	`
	record, err := r.single(ctx, "update avatar", query, map[string]any{
		"userId": int64(userID),
		"avatar": avatar,
	}, "User", userID)
	if err != nil {
		return "", err
	}
	return getStringFromRecord(record, "previous"), nil
}

// Statements run by DeleteUser, in order. Votes are reverted before the
// voter disappears so counter stays equal to likes minus dislikes.
var deleteUserStatements = []struct {
	op    string
	query string
}{
	{"revert likes", `
		MATCH (:User {userId: $userId})-[e:LIKE]->(p:Post)<-[:IS_AUTHOR]-(a:User)
		SET p.counter = p.counter - 1, a.reputation = a.reputation - 1
		DELETE e
	`},
	{"revert dislikes", `
		MATCH (:User {userId: $userId})-[e:DISLIKE]->(p:Post)<-[:IS_AUTHOR]-(a:User)
		SET p.counter = p.counter + 1, a.reputation = a.reputation + 1
		DELETE e
	`},
	{"delete authored posts", `
		MATCH (:User {userId: $userId})-[:IS_AUTHOR]->(p:Post)
		OPTIONAL MATCH (p)-[:HAS_COMMENT]->(c:Comment)
		OPTIONAL MATCH (f:Fact)-[:ABOUT]->(p)
		WITH collect(DISTINCT p) AS posts, collect(DISTINCT c) AS comments, collect(DISTINCT f) AS facts
		FOREACH (n IN comments + facts + posts | DETACH DELETE n)
	`},
	{"delete authored comments", `
		MATCH (:User {userId: $userId})-[:IS_AUTHOR]->(c:Comment)
		DETACH DELETE c
	`},
	{"delete user node", `
		MATCH (u:User {userId: $userId})
		DETACH DELETE u
	`},
	{"delete orphan tags", deleteOrphanTagsQuery},
}

const deleteOrphanTagsQuery = `
	MATCH (t:Tag)
	WHERE NOT EXISTS { (:Post)-[:HAS_TAG]->(t) }
	DELETE t
`

func (r *repository) DeleteUser(ctx context.Context, userID uint) (string, []string, error) {
	params := map[string]any{"userId": int64(userID)}

	query := `
		MATCH (u:User {userId: $userId})
		OPTIONAL MATCH (u)-[:IS_AUTHOR]->(p:Post)
		WITH u, collect(p.img) AS imgs
		RETURN u.avatar AS avatar, [img IN imgs WHERE img IS NOT NULL AND img <> ''] AS images
	`
	record, err := r.single(ctx, "collect user files", query, params, "User", userID)
	if err != nil {
		return "", nil, err
	}
	avatar := getStringFromRecord(record, "avatar")
	images := getStringSliceFromRecord(record, "images")

	for _, stmt := range deleteUserStatements {
		if _, err := r.exec(ctx, stmt.op, stmt.query, params); err != nil {
			return "", nil, err
		}
	}
	return avatar, images, nil
}
