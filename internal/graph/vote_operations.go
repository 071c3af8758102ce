package graph

import (
	"context"
	"fmt"

	"geosm/internal/models"
)

const (
	edgeLike    = "LIKE"
	edgeDislike = "DISLIKE"
)

// voteStep describes how one op touches the edges: which edge to drop and
// what to add back to counter and reputation when it existed, and which edge
// to create with what delta. keep is empty for the *_off ops.
type voteStep struct {
	drop     string
	dropUndo int
	keep     string
	keepDiff int
}

var voteSteps = map[models.VoteOp]voteStep{
	models.VoteUp:      {drop: edgeDislike, dropUndo: 1, keep: edgeLike, keepDiff: 1},
	models.VoteDown:    {drop: edgeLike, dropUndo: -1, keep: edgeDislike, keepDiff: -1},
	models.VoteUpOff:   {drop: edgeLike, dropUndo: -1},
	models.VoteDownOff: {drop: edgeDislike, dropUndo: 1},
}

// Edge types cannot be parameterized; they come from the closed set above.
const dropEdgeTemplate = `
	MATCH (a:User)-[:IS_AUTHOR]->(p:Post {postId: $postId})
	SET p._lock = true
	REMOVE p._lock
	WITH a, p
	OPTIONAL MATCH (:User {userId: $userId})-[e:%s]->(p)
	WITH a, p, e, CASE WHEN e IS NULL THEN 0 ELSE 1 END AS removed
	DELETE e
	SET p.counter = p.counter + $undo * removed,
		a.reputation = a.reputation + $undo * removed
	RETURN removed
`

const keepEdgeTemplate = `
	MATCH (a:User)-[:IS_AUTHOR]->(p:Post {postId: $postId})
	MATCH (u:User {userId: $userId})
	MERGE (u)-[:%s]->(p)
	ON CREATE SET p.counter = p.counter + $delta,
		a.reputation = a.reputation + $delta
	RETURN p.counter AS counter
`

// Vote applies op as two statements in the current transaction: drop the
// edge that must not survive, then merge the caller's own edge. The first
// statement write-locks the post so concurrent votes serialize on it.
func (r *repository) Vote(ctx context.Context, userID, postID uint, op models.VoteOp) error {
	step, ok := voteSteps[op]
	if !ok {
		return models.NewValidationError(fmt.Sprintf("unknown vote operation %q", op))
	}
	params := map[string]any{
		"userId": int64(userID),
		"postId": int64(postID),
		"undo":   int64(step.dropUndo),
	}
	if _, err := r.single(ctx, "drop vote edge", fmt.Sprintf(dropEdgeTemplate, step.drop), params, "Post", postID); err != nil {
		return err
	}
	if step.keep == "" {
		return nil
	}
	params["delta"] = int64(step.keepDiff)
	_, err := r.single(ctx, "merge vote edge", fmt.Sprintf(keepEdgeTemplate, step.keep), params, "User", userID)
	return err
}
