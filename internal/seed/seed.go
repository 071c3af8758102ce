// Package seed fills a development deployment with demo data. All data goes
// through the engines so both stores stay consistent.
package seed

import (
	"context"
	"fmt"
	"math"
	"strings"

	"geosm/internal/models"
	"geosm/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"go.uber.org/zap"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	NumPosts        int
	CommentsPerPost int
	VotesPerPost    int
	// Posts are scattered within SpreadMeters of Center.
	Center       models.GeoPoint
	SpreadMeters float64
	Seed         int64
}

// DefaultOptions seeds a small community around Katowice.
func DefaultOptions() Options {
	return Options{
		NumUsers:        20,
		NumPosts:        100,
		CommentsPerPost: 2,
		VotesPerPost:    5,
		Center:          models.GeoPoint{Latitude: 50.2649, Longitude: 19.0238},
		SpreadMeters:    5000,
		Seed:            1,
	}
}

// Identity is the part of the identity engine the seeder drives.
type Identity interface {
	Register(ctx context.Context, in service.RegisterInput, asAdmin bool) (uint, error)
	Activate(ctx context.Context, userID uint) error
	Login(ctx context.Context, userID uint) (string, error)
}

// Content is the part of the content engine the seeder drives.
type Content interface {
	CreatePost(ctx context.Context, token string, in service.CreatePostInput) (uint, error)
	CreateComment(ctx context.Context, token string, postID uint, content string) (uint, error)
	Vote(ctx context.Context, token string, postID uint, op models.VoteOp) error
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
	Votes    int
}

// Seeder creates demo users, posts, comments and votes.
type Seeder struct {
	identity Identity
	content  Content
	opts     Options
	faker    *gofakeit.Faker
	log      *zap.Logger
}

// NewSeeder returns a Seeder with a deterministic faker for opts.Seed.
func NewSeeder(identity Identity, content Content, opts Options, log *zap.Logger) *Seeder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Seeder{
		identity: identity,
		content:  content,
		opts:     opts,
		faker:    gofakeit.New(opts.Seed),
		log:      log,
	}
}

type account struct {
	id    uint
	token string
}

// Run seeds everything Options asks for.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	users, err := s.seedUsers(ctx)
	if err != nil {
		return sum, err
	}
	sum.Users = len(users)
	if len(users) == 0 {
		return sum, nil
	}

	for i := 0; i < s.opts.NumPosts; i++ {
		author := users[s.faker.IntRange(0, len(users)-1)]
		postID, err := s.content.CreatePost(ctx, author.token, s.postInput())
		if err != nil {
			return sum, fmt.Errorf("seed post %d: %w", i, err)
		}
		sum.Posts++

		for j := 0; j < s.opts.CommentsPerPost; j++ {
			commenter := users[s.faker.IntRange(0, len(users)-1)]
			if _, err := s.content.CreateComment(ctx, commenter.token, postID, s.faker.Sentence(8)); err != nil {
				return sum, fmt.Errorf("seed comment on post %d: %w", postID, err)
			}
			sum.Comments++
		}

		for _, voter := range s.voters(users) {
			op := models.VoteUp
			if s.faker.IntRange(0, 3) == 0 {
				op = models.VoteDown
			}
			if err := s.content.Vote(ctx, voter.token, postID, op); err != nil {
				return sum, fmt.Errorf("seed vote on post %d: %w", postID, err)
			}
			sum.Votes++
		}
	}
	s.log.Info("seed complete",
		zap.Int("users", sum.Users),
		zap.Int("posts", sum.Posts),
		zap.Int("comments", sum.Comments),
		zap.Int("votes", sum.Votes),
	)
	return sum, nil
}

func (s *Seeder) seedUsers(ctx context.Context) ([]account, error) {
	users := make([]account, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		// The suffix keeps generated names unique.
		username := fmt.Sprintf("%s_%d", strings.ToLower(s.faker.Username()), i)
		id, err := s.identity.Register(ctx, service.RegisterInput{
			Username: username,
			Password: DefaultPassword,
		}, false)
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", username, err)
		}
		if err := s.identity.Activate(ctx, id); err != nil {
			return nil, fmt.Errorf("activate user %s: %w", username, err)
		}
		token, err := s.identity.Login(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("login user %s: %w", username, err)
		}
		users = append(users, account{id: id, token: token})
	}
	return users, nil
}

func (s *Seeder) postInput() service.CreatePostInput {
	tags := make([]string, s.faker.IntRange(1, 3))
	for i := range tags {
		tags[i] = s.faker.Hobby()
	}
	in := service.CreatePostInput{
		Title:   s.faker.Sentence(5),
		Content: s.faker.Paragraph(1, 3, 8, "\n"),
		Tags:    tags,
	}
	if s.opts.SpreadMeters > 0 {
		loc := s.scatter()
		in.Location = &loc
	}
	return in
}

// scatter returns a point at most SpreadMeters away from Center.
func (s *Seeder) scatter() models.GeoPoint {
	const metersPerDegree = 111_320.0
	dist := s.faker.Float64Range(0, s.opts.SpreadMeters)
	bearing := s.faker.Float64Range(0, 2*math.Pi)
	dLat := dist * math.Cos(bearing) / metersPerDegree
	dLong := dist * math.Sin(bearing) / (metersPerDegree * math.Cos(s.opts.Center.Latitude*math.Pi/180))
	return models.GeoPoint{
		Latitude:  s.opts.Center.Latitude + dLat,
		Longitude: s.opts.Center.Longitude + dLong,
	}
}

// voters picks up to VotesPerPost distinct accounts.
func (s *Seeder) voters(users []account) []account {
	n := min(s.opts.VotesPerPost, len(users))
	picked := make([]account, len(users))
	copy(picked, users)
	s.faker.ShuffleAnySlice(picked)
	return picked[:n]
}
