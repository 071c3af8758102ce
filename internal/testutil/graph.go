package testutil

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"geosm/internal/graph"
	"geosm/internal/models"
)

var (
	errTxDone       = errors.New("transaction already finished")
	errSingleTarget = errors.New("report must reference exactly one content row")
	errForeignKey   = errors.New("foreign key violation")
)

type voteKey struct {
	user uint
	post uint
}

type graphState struct {
	users     map[uint]models.GraphUser
	userOrder []uint
	posts     map[uint]models.Post
	postOrder []uint
	comments  map[uint]models.Comment
	facts     map[uint]string
	votes     map[voteKey]models.Relation
}

func newGraphState() *graphState {
	return &graphState{
		users:    map[uint]models.GraphUser{},
		posts:    map[uint]models.Post{},
		comments: map[uint]models.Comment{},
		facts:    map[uint]string{},
		votes:    map[voteKey]models.Relation{},
	}
}

func (s *graphState) clone() *graphState {
	return &graphState{
		users:     cloneMap(s.users),
		userOrder: append([]uint(nil), s.userOrder...),
		posts:     cloneMap(s.posts),
		postOrder: append([]uint(nil), s.postOrder...),
		comments:  cloneMap(s.comments),
		facts:     cloneMap(s.facts),
		votes:     cloneMap(s.votes),
	}
}

// GraphStore is an in-memory graph.Store with the same locking model as
// RelStore. Search returns nodes in insertion order.
type GraphStore struct {
	mu    sync.Mutex
	state *graphState

	BeginErr  error
	CommitErr error

	Commits   int
	Rollbacks int
	Closes    atomic.Int32
}

// NewGraphStore returns an empty graph.
func NewGraphStore() *GraphStore {
	return &GraphStore{state: newGraphState()}
}

func (s *GraphStore) Begin(_ context.Context) (graph.Tx, error) {
	s.mu.Lock()
	if s.BeginErr != nil {
		err := s.BeginErr
		s.BeginErr = nil
		s.mu.Unlock()
		return nil, models.NewStoreError(err)
	}
	return &graphTx{store: s, st: s.state.clone()}, nil
}

// UserCount returns the number of committed User nodes with id.
func (s *GraphStore) UserCount(id uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, uid := range s.state.userOrder {
		if uid == id {
			n++
		}
	}
	return n
}

// User returns a committed User node.
func (s *GraphStore) User(id uint) (models.GraphUser, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.state.users[id]
	return u, ok
}

// Post returns a committed Post node.
func (s *GraphStore) Post(id uint) (models.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.posts[id]
	return p, ok
}

// Edges returns the LIKE and DISLIKE edge counts on a post.
func (s *GraphStore) Edges(postID uint) (likes, dislikes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, rel := range s.state.votes {
		if k.post != postID {
			continue
		}
		switch rel {
		case models.RelationLiked:
			likes++
		case models.RelationDisliked:
			dislikes++
		}
	}
	return likes, dislikes
}

// AuthoredBy returns committed post and comment ids authored by userID.
func (s *GraphStore) AuthoredBy(userID uint) (posts, comments []uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.state.postOrder {
		if s.state.posts[id].AuthorID == userID {
			posts = append(posts, id)
		}
	}
	for id, c := range s.state.comments {
		if c.AuthorID == userID {
			comments = append(comments, id)
		}
	}
	return posts, comments
}

// Tags returns every committed tag with at least one post.
func (s *GraphStore) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.liveTags()
}

type graphTx struct {
	store *GraphStore
	st    *graphState
	done  bool
}

func (t *graphTx) Commit(_ context.Context) error {
	if t.done {
		return models.NewStoreError(errTxDone)
	}
	t.done = true
	defer t.store.mu.Unlock()
	if t.store.CommitErr != nil {
		err := t.store.CommitErr
		t.store.CommitErr = nil
		t.store.Rollbacks++
		return models.NewStoreError(err)
	}
	t.store.state = t.st
	t.store.Commits++
	return nil
}

func (t *graphTx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.Rollbacks++
	t.store.mu.Unlock()
	return nil
}

func (t *graphTx) Close(ctx context.Context) error {
	t.store.Closes.Add(1)
	return t.Rollback(ctx)
}

func (t *graphTx) withAuthor(p models.Post) models.Post {
	p.Author = t.st.users[p.AuthorID].Username
	if fact, ok := t.st.facts[p.PostID]; ok {
		f := fact
		p.Fact = &f
	} else {
		p.Fact = nil
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p
}

func (t *graphTx) CreateUser(_ context.Context, user models.GraphUser) error {
	if _, ok := t.st.users[user.UserID]; ok {
		return models.NewStoreError(errors.New("user node already exists"))
	}
	t.st.users[user.UserID] = user
	t.st.userOrder = append(t.st.userOrder, user.UserID)
	return nil
}

func (t *graphTx) GetUser(_ context.Context, userID uint) (*models.GraphUser, error) {
	u, ok := t.st.users[userID]
	if !ok {
		return nil, models.NewNotFoundError("User", userID)
	}
	return &u, nil
}

func (t *graphTx) UpdateAvatar(_ context.Context, userID uint, avatar string) (string, error) {
	u, ok := t.st.users[userID]
	if !ok {
		return "", models.NewNotFoundError("User", userID)
	}
	previous := u.Avatar
	u.Avatar = avatar
	t.st.users[userID] = u
	return previous, nil
}

func (t *graphTx) DeleteUser(_ context.Context, userID uint) (string, []string, error) {
	u, ok := t.st.users[userID]
	if !ok {
		return "", nil, models.NewNotFoundError("User", userID)
	}
	for k, rel := range t.st.votes {
		if k.user == userID {
			_, delta := models.VoteTransition(rel, offFor(rel))
			t.st.applyDelta(k.post, delta)
			delete(t.st.votes, k)
		}
	}
	var images []string
	for _, id := range append([]uint(nil), t.st.postOrder...) {
		p := t.st.posts[id]
		if p.AuthorID != userID {
			continue
		}
		if p.Img != "" {
			images = append(images, p.Img)
		}
		t.st.removePost(id)
	}
	for id, c := range t.st.comments {
		if c.AuthorID == userID {
			delete(t.st.comments, id)
		}
	}
	delete(t.st.users, userID)
	t.st.userOrder = removeID(t.st.userOrder, userID)
	return u.Avatar, images, nil
}

func offFor(rel models.Relation) models.VoteOp {
	if rel == models.RelationDisliked {
		return models.VoteDownOff
	}
	return models.VoteUpOff
}

func (s *graphState) applyDelta(postID uint, delta int) {
	p, ok := s.posts[postID]
	if !ok || delta == 0 {
		return
	}
	p.Counter += delta
	s.posts[postID] = p
	if a, ok := s.users[p.AuthorID]; ok {
		a.Reputation += delta
		s.users[p.AuthorID] = a
	}
}

func (s *graphState) removePost(id uint) {
	delete(s.posts, id)
	delete(s.facts, id)
	s.postOrder = removeID(s.postOrder, id)
	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
		}
	}
	for k := range s.votes {
		if k.post == id {
			delete(s.votes, k)
		}
	}
}

// liveTags lists tag names with a post, in first-use order.
func (s *graphState) liveTags() []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range s.postOrder {
		for _, tag := range s.posts[id].Tags {
			if !seen[tag] {
				seen[tag] = true
				out = append(out, tag)
			}
		}
	}
	return out
}

func removeID(ids []uint, id uint) []uint {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (t *graphTx) CreatePost(_ context.Context, post models.Post) error {
	if _, ok := t.st.users[post.AuthorID]; !ok {
		return models.NewNotFoundError("User", post.AuthorID)
	}
	post.Counter = 0
	post.Author = ""
	post.Fact = nil
	tags := make([]string, 0, len(post.Tags))
	seen := map[string]bool{}
	for _, tag := range post.Tags {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	post.Tags = tags
	if post.Location != nil {
		loc := *post.Location
		post.Location = &loc
	}
	t.st.posts[post.PostID] = post
	t.st.postOrder = append(t.st.postOrder, post.PostID)
	return nil
}

func (t *graphTx) GetPost(_ context.Context, postID uint) (*models.Post, error) {
	p, ok := t.st.posts[postID]
	if !ok {
		return nil, models.NewNotFoundError("Post", postID)
	}
	out := t.withAuthor(p)
	return &out, nil
}

func (t *graphTx) DeletePost(_ context.Context, postID uint) (string, error) {
	p, ok := t.st.posts[postID]
	if !ok {
		return "", models.NewNotFoundError("Post", postID)
	}
	t.st.removePost(postID)
	return p.Img, nil
}

func (t *graphTx) Relation(_ context.Context, userID, postID uint) (models.Relation, error) {
	if rel, ok := t.st.votes[voteKey{userID, postID}]; ok {
		return rel, nil
	}
	return models.RelationNone, nil
}

func (t *graphTx) Relations(_ context.Context, userID uint, postIDs []uint) (map[uint]models.Relation, error) {
	out := make(map[uint]models.Relation, len(postIDs))
	for _, id := range postIDs {
		out[id] = models.RelationNone
		if rel, ok := t.st.votes[voteKey{userID, id}]; ok {
			out[id] = rel
		}
	}
	return out, nil
}

func (t *graphTx) Vote(_ context.Context, userID, postID uint, op models.VoteOp) error {
	if !op.Valid() {
		return models.NewValidationError("unknown vote operation")
	}
	if _, ok := t.st.posts[postID]; !ok {
		return models.NewNotFoundError("Post", postID)
	}
	if _, ok := t.st.users[userID]; !ok {
		return models.NewNotFoundError("User", userID)
	}
	key := voteKey{userID, postID}
	state, ok := t.st.votes[key]
	if !ok {
		state = models.RelationNone
	}
	next, delta := models.VoteTransition(state, op)
	if next == models.RelationNone {
		delete(t.st.votes, key)
	} else {
		t.st.votes[key] = next
	}
	t.st.applyDelta(postID, delta)
	return nil
}

func (t *graphTx) CreateComment(_ context.Context, comment models.Comment) error {
	if _, ok := t.st.users[comment.AuthorID]; !ok {
		return models.NewNotFoundError("User", comment.AuthorID)
	}
	if _, ok := t.st.posts[comment.PostID]; !ok {
		return models.NewNotFoundError("Post", comment.PostID)
	}
	comment.Author = ""
	t.st.comments[comment.CommentID] = comment
	return nil
}

func (t *graphTx) GetComment(_ context.Context, commentID uint) (*models.Comment, error) {
	c, ok := t.st.comments[commentID]
	if !ok {
		return nil, models.NewNotFoundError("Comment", commentID)
	}
	c.Author = t.st.users[c.AuthorID].Username
	return &c, nil
}

func (t *graphTx) ListComments(_ context.Context, postID uint) ([]models.Comment, error) {
	out := []models.Comment{}
	for _, c := range t.st.comments {
		if c.PostID == postID {
			c.Author = t.st.users[c.AuthorID].Username
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CommentID < out[j].CommentID
	})
	return out, nil
}

func (t *graphTx) DeleteComment(_ context.Context, commentID uint) error {
	if _, ok := t.st.comments[commentID]; !ok {
		return models.NewNotFoundError("Comment", commentID)
	}
	delete(t.st.comments, commentID)
	return nil
}

func (t *graphTx) SetFact(_ context.Context, postID uint, content string) error {
	if _, ok := t.st.posts[postID]; !ok {
		return models.NewNotFoundError("Post", postID)
	}
	t.st.facts[postID] = content
	return nil
}

func (t *graphTx) DeleteFact(_ context.Context, postID uint) error {
	if _, ok := t.st.facts[postID]; !ok {
		return models.NewNotFoundError("Fact", postID)
	}
	delete(t.st.facts, postID)
	return nil
}

func (t *graphTx) GetFact(_ context.Context, postID uint) (string, error) {
	fact, ok := t.st.facts[postID]
	if !ok {
		return "", models.NewNotFoundError("Fact", postID)
	}
	return fact, nil
}

func matches(mode models.MatchMode, field, text string) bool {
	switch mode {
	case models.MatchExact:
		return field == text
	case models.MatchPrefix:
		return strings.HasPrefix(field, text)
	case models.MatchSubstring:
		return strings.Contains(field, text)
	}
	return false
}

func (t *graphTx) Search(_ context.Context, q graph.SearchQuery) ([]models.SearchHit, error) {
	if q.Limit <= 0 {
		return nil, nil
	}
	if _, _, err := graph.BuildSearchQuery(q); err != nil {
		return nil, err
	}
	excluded := map[string]bool{}
	for _, key := range q.Exclude {
		excluded[key] = true
	}
	var hits []models.SearchHit
	add := func(hit models.SearchHit) bool {
		if excluded[hit.Key] || !matches(q.Match, hit.Label, q.Text) {
			return len(hits) < q.Limit
		}
		hit.Kind = q.Kind
		hit.Tier = q.Match
		hits = append(hits, hit)
		return len(hits) < q.Limit
	}
	switch q.Kind {
	case models.SearchUsers:
		for _, id := range t.st.userOrder {
			u := t.st.users[id]
			if !add(models.SearchHit{Key: strconv.FormatUint(uint64(id), 10), ID: id, Label: u.Username}) {
				break
			}
		}
	case models.SearchPosts:
		for _, id := range t.st.postOrder {
			p := t.st.posts[id]
			if !add(models.SearchHit{Key: strconv.FormatUint(uint64(id), 10), ID: id, Label: p.Title, Unlisted: p.BlockSearchEngines}) {
				break
			}
		}
	case models.SearchTags:
		for _, tag := range t.st.liveTags() {
			if !add(models.SearchHit{Key: tag, Label: tag}) {
				break
			}
		}
	}
	return hits, nil
}

func (t *graphTx) Feed(_ context.Context, f graph.FeedFilter) ([]models.Post, error) {
	tagSet := map[string]bool{}
	for _, tag := range f.Tags {
		tagSet[tag] = true
	}
	excluded := map[uint]bool{}
	for _, id := range f.ExcludeIDs {
		excluded[id] = true
	}
	since := f.Now.Add(-24 * time.Hour)

	var out []models.Post
	for _, id := range t.st.postOrder {
		p := t.st.posts[id]
		if len(tagSet) > 0 && !anyTag(p.Tags, tagSet) {
			continue
		}
		if f.AuthorUsername != "" && t.st.users[p.AuthorID].Username != f.AuthorUsername {
			continue
		}
		if excluded[id] {
			continue
		}
		if f.Location != nil && (p.Location == nil || Haversine(*p.Location, *f.Location) > f.RadiusMeters) {
			continue
		}
		if f.View == graph.FeedBest24 && p.Date.Before(since) {
			continue
		}
		out = append(out, t.withAuthor(p))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if f.View == graph.FeedBest24 {
			if a.Counter != b.Counter {
				return a.Counter > b.Counter
			}
			return a.Date.After(b.Date)
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.PostID > b.PostID
	})
	if len(out) > graph.FeedPageSize {
		out = out[:graph.FeedPageSize]
	}
	return out, nil
}

func anyTag(tags []string, set map[string]bool) bool {
	for _, tag := range tags {
		if set[tag] {
			return true
		}
	}
	return false
}

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b models.GeoPoint) float64 {
	const earthRadius = 6371008.8
	rad := math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * rad
	dLng := (b.Longitude - a.Longitude) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Latitude*rad)*math.Cos(b.Latitude*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(h))
}
