package server

import (
	"geosm/internal/middleware"
	"geosm/internal/models"
	"geosm/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createReportRequest struct {
	Type        models.ReportType  `json:"type"`
	ContentType models.ContentType `json:"content_type"`
	ContentID   uint               `json:"content_id"`
	Content     string             `json:"content"`
}

// CreateReport handles POST /api/reports
func (s *Server) CreateReport(c *fiber.Ctx) error {
	var req createReportRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	id, err := s.engines.Moderation.CreateReport(c.UserContext(), service.CreateReportInput{
		Type:        req.Type,
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
		Content:     req.Content,
		Token:       middleware.Token(c),
	})
	return s.respond(c, fiber.Map{"report_id": id}, err)
}

// ClaimReport handles POST /api/reports/claim. The oldest active report of
// the requested type is locked to the caller.
func (s *Server) ClaimReport(c *fiber.Ctx) error {
	var req struct {
		Type models.ReportType `json:"type"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	model, err := s.engines.Moderation.GetReport(c.UserContext(), middleware.Token(c), req.Type)
	return s.respond(c, model, err)
}

// ResolveReport handles POST /api/reports/:id/resolve
func (s *Server) ResolveReport(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return s.respondOK(c, s.engines.Moderation.ResolveReport(c.UserContext(), middleware.Token(c), id))
}

// ReleaseReport handles POST /api/reports/:id/release
func (s *Server) ReleaseReport(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return s.respondOK(c, s.engines.Moderation.ReleaseReport(c.UserContext(), middleware.Token(c), id))
}

// DeleteReport handles DELETE /api/reports/:id
func (s *Server) DeleteReport(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return s.respondOK(c, s.engines.Moderation.DeleteReport(c.UserContext(), middleware.Token(c), id))
}

// GetSettings handles GET /api/settings
func (s *Server) GetSettings(c *fiber.Ctx) error {
	settings, err := s.engines.Settings.GetSettings(c.UserContext())
	return s.respond(c, settings, err)
}

// UpdateSettings handles PUT /api/settings
func (s *Server) UpdateSettings(c *fiber.Ctx) error {
	var req models.Settings
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	return s.respondOK(c, s.engines.Settings.UpdateSettings(c.UserContext(), middleware.Token(c), req))
}

// Search handles GET /api/search?kind=&q=&limit=
func (s *Server) Search(c *fiber.Ctx) error {
	hits, err := s.engines.Search.Search(c.UserContext(), models.SearchKind(c.Query("kind")), c.Query("q"), parseLimit(c))
	return s.respond(c, hits, err)
}

// SearchPlace handles GET /api/search/places?q=
func (s *Server) SearchPlace(c *fiber.Ctx) error {
	places, err := s.engines.Search.SearchPlace(c.UserContext(), c.Query("q"))
	return s.respond(c, places, err)
}
