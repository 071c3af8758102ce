package service

import (
	"context"
	"math"

	"geosm/internal/coordinator"
	"geosm/internal/graph"
	"geosm/internal/models"
)

// FeedService serves the New and Best24 feeds.
type FeedService struct {
	clock
	coord    coordinator.Runner
	platform models.PlatformDefaults
}

type FeedInput struct {
	View           graph.FeedView
	Tags           []string
	Location       *models.GeoPoint
	RadiusMeters   float64
	ExcludeIDs     []uint
	AuthorUsername string
	Token          string
}

func NewFeedService(coord coordinator.Runner, platform models.PlatformDefaults) *FeedService {
	return &FeedService{coord: coord, platform: platform}
}

func (s *FeedService) filter(in FeedInput) (graph.FeedFilter, error) {
	if in.View == "" {
		in.View = graph.FeedNew
	}
	if !in.View.Valid() {
		return graph.FeedFilter{}, models.NewValidationError("Unknown feed view")
	}
	if in.Location != nil {
		if err := in.Location.Validate(); err != nil {
			return graph.FeedFilter{}, err
		}
	}
	radius := in.RadiusMeters
	if math.IsNaN(radius) || math.IsInf(radius, 0) {
		return graph.FeedFilter{}, models.NewValidationError("radius must be a finite number")
	}
	if radius <= 0 {
		radius = s.platform.FeedRadiusMeters
	}
	return graph.FeedFilter{
		View:           in.View,
		Tags:           normalizeTags(in.Tags),
		AuthorUsername: in.AuthorUsername,
		ExcludeIDs:     in.ExcludeIDs,
		Location:       in.Location,
		RadiusMeters:   radius,
		Now:            s.Now(),
	}, nil
}

// GetPosts returns one page of the feed. With a token each post carries the
// caller's vote.
func (s *FeedService) GetPosts(ctx context.Context, in FeedInput) ([]models.PostView, error) {
	filter, err := s.filter(in)
	if err != nil {
		return nil, err
	}
	needs := coordinator.Graph
	if in.Token != "" {
		needs = coordinator.Both
	}

	var views []models.PostView
	err = s.coord.Run(ctx, "feed", needs, func(ctx context.Context, u *coordinator.Unit) error {
		var caller *models.Caller
		if in.Token != "" {
			c, err := resolveCaller(ctx, u.Rel, in.Token)
			if err != nil {
				return err
			}
			if c.Status == models.StatusBanned {
				return models.NewForbiddenError("Account is banned")
			}
			caller = &c
		}
		posts, err := u.Graph.Feed(ctx, filter)
		if err != nil {
			return err
		}
		views = make([]models.PostView, len(posts))
		for i, p := range posts {
			views[i] = models.PostView{Post: p}
		}
		if caller == nil {
			return nil
		}

		ids := make([]uint, len(views))
		for i := range views {
			ids[i] = views[i].PostID
		}
		rels, err := u.Graph.Relations(ctx, caller.UserID, ids)
		if err != nil {
			return err
		}
		for i := range views {
			views[i].Relation = rels[views[i].PostID]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}
