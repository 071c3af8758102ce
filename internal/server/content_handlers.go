package server

import (
	"geosm/internal/graph"
	"geosm/internal/middleware"
	"geosm/internal/models"
	"geosm/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Title    string           `json:"title"`
	Content  string           `json:"content"`
	Img      string           `json:"img"`
	Tags     []string         `json:"tags"`
	Location *models.GeoPoint `json:"location"`
}

type contentRequest struct {
	Content string `json:"content"`
}

// GetPosts handles GET /api/posts. Query: view, tags, lat, long, radius,
// exclude, author.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	in := service.FeedInput{
		View:           graph.FeedView(c.Query("view")),
		Tags:           splitList(c.Query("tags")),
		RadiusMeters:   c.QueryFloat("radius", 0),
		AuthorUsername: c.Query("author"),
		Token:          middleware.Token(c),
	}
	if c.Query("lat") != "" || c.Query("long") != "" {
		in.Location = &models.GeoPoint{
			Latitude:  c.QueryFloat("lat", 0),
			Longitude: c.QueryFloat("long", 0),
		}
	}
	exclude, err := parseIDList(c.Query("exclude"))
	if err != nil {
		return s.respond(c, nil, err)
	}
	in.ExcludeIDs = exclude

	posts, err := s.engines.Feed.GetPosts(c.UserContext(), in)
	return s.respond(c, posts, err)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	id, err := s.engines.Content.CreatePost(c.UserContext(), middleware.Token(c), service.CreatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		Img:      req.Img,
		Tags:     req.Tags,
		Location: req.Location,
	})
	return s.respond(c, fiber.Map{"post_id": id}, err)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.engines.Content.GetPost(c.UserContext(), id, middleware.Token(c))
	return s.respond(c, post, err)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	img, err := s.engines.Content.DeletePost(c.UserContext(), middleware.Token(c), id)
	return s.respond(c, fiber.Map{"img": img}, err)
}

// Vote handles POST /api/posts/:id/vote
func (s *Server) Vote(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Op models.VoteOp `json:"op"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	return s.respondOK(c, s.engines.Content.Vote(c.UserContext(), middleware.Token(c), id, req.Op))
}

// GetComments handles GET /api/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	comments, err := s.engines.Content.GetComments(c.UserContext(), id)
	return s.respond(c, comments, err)
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req contentRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	commentID, err := s.engines.Content.CreateComment(c.UserContext(), middleware.Token(c), id, req.Content)
	return s.respond(c, fiber.Map{"comment_id": commentID}, err)
}

// GetComment handles GET /api/comments/:id
func (s *Server) GetComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	comment, err := s.engines.Content.GetComment(c.UserContext(), id)
	return s.respond(c, comment, err)
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return s.respondOK(c, s.engines.Content.DeleteComment(c.UserContext(), middleware.Token(c), id))
}

// GetFact handles GET /api/posts/:id/fact
func (s *Server) GetFact(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	fact, err := s.engines.Content.GetFact(c.UserContext(), id)
	return s.respond(c, fiber.Map{"fact": fact}, err)
}

// CreateFact handles PUT /api/posts/:id/fact
func (s *Server) CreateFact(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req contentRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	return s.respondOK(c, s.engines.Content.CreateFact(c.UserContext(), middleware.Token(c), id, req.Content))
}

// DeleteFact handles DELETE /api/posts/:id/fact
func (s *Server) DeleteFact(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return s.respondOK(c, s.engines.Content.DeleteFact(c.UserContext(), middleware.Token(c), id))
}

// CreateMessage handles POST /api/messages
func (s *Server) CreateMessage(c *fiber.Ctx) error {
	var req struct {
		ReceiverID uint   `json:"receiver_id"`
		Content    string `json:"content"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	id, err := s.engines.Content.CreateMessage(c.UserContext(), middleware.Token(c), req.ReceiverID, req.Content)
	return s.respond(c, fiber.Map{"message_id": id}, err)
}

// GetMessage handles GET /api/messages/:id
func (s *Server) GetMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	msg, err := s.engines.Content.GetMessage(c.UserContext(), middleware.Token(c), id)
	return s.respond(c, msg, err)
}

// DeleteMessage handles DELETE /api/messages/:id
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return s.respondOK(c, s.engines.Content.DeleteMessage(c.UserContext(), middleware.Token(c), id))
}

// GetConversation handles GET /api/conversations/:userId?limit=
func (s *Server) GetConversation(c *fiber.Ctx) error {
	other, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	msgs, err := s.engines.Content.GetConversation(c.UserContext(), middleware.Token(c), other, parseLimit(c))
	return s.respond(c, msgs, err)
}
