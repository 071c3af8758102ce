package service

import (
	"context"
	"sort"
	"strings"

	"geosm/internal/coordinator"
	"geosm/internal/models"
	"geosm/internal/observability"

	"go.uber.org/zap"
)

const (
	maxTitleLen   = 300
	maxContentLen = 50000
	maxCommentLen = 10000
	maxMessageLen = 5000
	maxFactLen    = 5000
	maxTags       = 10

	defaultConversationLimit = 50
	maxConversationLimit     = 200
)

// ContentService owns posts, comments, votes, facts and direct messages.
type ContentService struct {
	clock
	coord    coordinator.Runner
	settings *SettingsService
	log      *zap.Logger
}

type CreatePostInput struct {
	Title    string
	Content  string
	Img      string
	Tags     []string
	Location *models.GeoPoint
}

func NewContentService(coord coordinator.Runner, settings *SettingsService, log *zap.Logger) *ContentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContentService{coord: coord, settings: settings, log: log}
}

// normalizeTags trims, lower-cases and de-duplicates tags.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (in *CreatePostInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Img = strings.TrimSpace(in.Img)
	if in.Title == "" {
		return models.NewValidationError("Title is required")
	}
	if runeLen(in.Title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 300 characters)")
	}
	if runeLen(in.Content) > maxContentLen {
		return models.NewValidationError("Content too long (max 50000 characters)")
	}
	in.Tags = normalizeTags(in.Tags)
	if len(in.Tags) > maxTags {
		return models.NewValidationError("Too many tags (max 10)")
	}
	if in.Location != nil {
		if err := in.Location.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CreatePost writes the post to both stores. Authors at or below the
// unlisted threshold get blockSearchEngines; authors at or below the auto
// report threshold get an automatic report after commit. Staff are exempt
// from both.
func (s *ContentService) CreatePost(ctx context.Context, token string, in CreatePostInput) (uint, error) {
	if err := in.normalize(); err != nil {
		return 0, err
	}
	var (
		postID     uint
		autoReport bool
	)
	err := s.coord.Run(ctx, "create_post", coordinator.Both, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		if err := requireActive(caller); err != nil {
			return err
		}
		settings, err := s.settings.Load(ctx, u.Rel)
		if err != nil {
			return err
		}
		author, err := u.Graph.GetUser(ctx, caller.UserID)
		if err != nil {
			return err
		}
		staff := caller.Role.IsStaff()
		autoReport = !staff && settings.AutoReportEnabled && author.Reputation <= settings.AutoReportThreshold

		row, err := u.Rel.Content().CreatePost(ctx, caller.UserID)
		if err != nil {
			return err
		}
		postID = row.PostID
		return u.Graph.CreatePost(ctx, models.Post{
			PostID:             row.PostID,
			AuthorID:           caller.UserID,
			Date:               s.Now(),
			Title:              in.Title,
			Content:            in.Content,
			Img:                in.Img,
			BlockSearchEngines: !staff && author.Reputation <= settings.UnlistedThreshold,
			Location:           in.Location,
			Tags:               in.Tags,
		})
	})
	if err != nil {
		return 0, err
	}
	if autoReport {
		s.autoReport(ctx, postID)
	}
	return postID, nil
}

func (s *ContentService) autoReport(ctx context.Context, postID uint) {
	err := s.coord.Run(ctx, "auto_report", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		_, err := createReport(ctx, u.Rel, &models.Report{
			Type:    models.ReportForModerator,
			Content: "Automatic report: low reputation author",
			PostID:  &postID,
			Auto:    true,
		})
		return err
	})
	if err != nil {
		s.log.Warn("auto report failed", zap.Uint("post_id", postID), zap.Error(err))
	}
}

// GetPost returns a post. With a token the caller's vote is included and a
// banned or unknown caller is refused.
func (s *ContentService) GetPost(ctx context.Context, postID uint, token string) (*models.PostView, error) {
	needs := coordinator.Graph
	if token != "" {
		needs = coordinator.Both
	}
	var view *models.PostView
	err := s.coord.Run(ctx, "get_post", needs, func(ctx context.Context, u *coordinator.Unit) error {
		var caller *models.Caller
		if token != "" {
			c, err := resolveCaller(ctx, u.Rel, token)
			if err != nil {
				return err
			}
			if c.Status == models.StatusBanned {
				return models.NewForbiddenError("Account is banned")
			}
			caller = &c
		}
		post, err := u.Graph.GetPost(ctx, postID)
		if err != nil {
			return err
		}
		view = &models.PostView{Post: *post}
		if caller != nil {
			view.Relation, err = u.Graph.Relation(ctx, caller.UserID, postID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return view, err
}

// Vote applies op to the caller's vote on postID.
func (s *ContentService) Vote(ctx context.Context, token string, postID uint, op models.VoteOp) error {
	if !op.Valid() {
		return models.NewValidationError("Unknown vote operation")
	}
	err := s.coord.Run(ctx, "vote", coordinator.Both, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		if err := requireActive(caller); err != nil {
			return err
		}
		return u.Graph.Vote(ctx, caller.UserID, postID, op)
	})
	if err == nil {
		observability.VotesTotal.WithLabelValues(string(op)).Inc()
	}
	return err
}

// DeletePost removes a post. Authors and moderators may delete. The image
// filename is returned for cleanup.
func (s *ContentService) DeletePost(ctx context.Context, token string, postID uint) (string, error) {
	var img string
	err := s.coord.Run(ctx, "delete_post", coordinator.Both, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		row, err := u.Rel.Content().GetPost(ctx, postID)
		if err != nil {
			return err
		}
		if row.UserID != caller.UserID && !caller.Role.AtLeast(models.RoleModerator) {
			return models.NewForbiddenError("Not allowed to delete this post")
		}
		img, err = u.Graph.DeletePost(ctx, postID)
		if err != nil {
			return err
		}
		return u.Rel.Content().DeletePost(ctx, postID)
	})
	return img, err
}

func (s *ContentService) CreateComment(ctx context.Context, token string, postID uint, content string) (uint, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, models.NewValidationError("Comment content is required")
	}
	if runeLen(content) > maxCommentLen {
		return 0, models.NewValidationError("Comment too long (max 10000 characters)")
	}
	var commentID uint
	err := s.coord.Run(ctx, "create_comment", coordinator.Both, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		if err := requireActive(caller); err != nil {
			return err
		}
		if _, err := u.Rel.Content().GetPost(ctx, postID); err != nil {
			return err
		}
		row, err := u.Rel.Content().CreateComment(ctx, postID, caller.UserID)
		if err != nil {
			return err
		}
		commentID = row.CommentID
		return u.Graph.CreateComment(ctx, models.Comment{
			CommentID: row.CommentID,
			PostID:    postID,
			AuthorID:  caller.UserID,
			Content:   content,
			Date:      s.Now(),
		})
	})
	return commentID, err
}

func (s *ContentService) GetComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.coord.Run(ctx, "get_comments", coordinator.Graph, func(ctx context.Context, u *coordinator.Unit) error {
		if _, err := u.Graph.GetPost(ctx, postID); err != nil {
			return err
		}
		var err error
		comments, err = u.Graph.ListComments(ctx, postID)
		return err
	})
	return comments, err
}

func (s *ContentService) GetComment(ctx context.Context, commentID uint) (*models.Comment, error) {
	var comment *models.Comment
	err := s.coord.Run(ctx, "get_comment", coordinator.Graph, func(ctx context.Context, u *coordinator.Unit) error {
		var err error
		comment, err = u.Graph.GetComment(ctx, commentID)
		return err
	})
	return comment, err
}

func (s *ContentService) DeleteComment(ctx context.Context, token string, commentID uint) error {
	return s.coord.Run(ctx, "delete_comment", coordinator.Both, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		row, err := u.Rel.Content().GetComment(ctx, commentID)
		if err != nil {
			return err
		}
		if row.UserID != caller.UserID && !caller.Role.AtLeast(models.RoleModerator) {
			return models.NewForbiddenError("Not allowed to delete this comment")
		}
		if err := u.Graph.DeleteComment(ctx, commentID); err != nil {
			return err
		}
		return u.Rel.Content().DeleteComment(ctx, commentID)
	})
}

func (s *ContentService) CreateMessage(ctx context.Context, token string, receiverID uint, content string) (uint, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, models.NewValidationError("Message content is required")
	}
	if runeLen(content) > maxMessageLen {
		return 0, models.NewValidationError("Message too long (max 5000 characters)")
	}
	var id uint
	err := s.coord.Run(ctx, "create_message", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		if err := requireActive(caller); err != nil {
			return err
		}
		receiver, err := u.Rel.Users().GetByID(ctx, receiverID)
		if err != nil {
			return err
		}
		if receiver.Status != models.StatusActive {
			return models.NewValidationError("Receiver is not active")
		}
		msg := &models.Message{
			SenderID:   caller.UserID,
			ReceiverID: receiverID,
			Content:    content,
			Date:       s.Now(),
		}
		if err := u.Rel.Messages().Create(ctx, msg); err != nil {
			return err
		}
		id = msg.MessageID
		return nil
	})
	return id, err
}

// GetMessage returns a message to one of its participants or to a moderator.
func (s *ContentService) GetMessage(ctx context.Context, token string, messageID uint) (*models.Message, error) {
	var msg *models.Message
	err := s.coord.Run(ctx, "get_message", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		msg, err = u.Rel.Messages().GetByID(ctx, messageID)
		if err != nil {
			return err
		}
		if msg.SenderID != caller.UserID && msg.ReceiverID != caller.UserID && !caller.Role.AtLeast(models.RoleModerator) {
			return models.NewForbiddenError("Not a participant")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetConversation lists messages between the caller and otherID, newest first.
func (s *ContentService) GetConversation(ctx context.Context, token string, otherID uint, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = defaultConversationLimit
	}
	if limit > maxConversationLimit {
		limit = maxConversationLimit
	}
	var out []models.Message
	err := s.coord.Run(ctx, "get_conversation", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		out, err = u.Rel.Messages().ListConversation(ctx, caller.UserID, otherID, limit)
		return err
	})
	return out, err
}

func (s *ContentService) DeleteMessage(ctx context.Context, token string, messageID uint) error {
	return s.coord.Run(ctx, "delete_message", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		msg, err := u.Rel.Messages().GetByID(ctx, messageID)
		if err != nil {
			return err
		}
		if msg.SenderID != caller.UserID && !caller.Role.AtLeast(models.RoleModerator) {
			return models.NewForbiddenError("Not allowed to delete this message")
		}
		return u.Rel.Messages().Delete(ctx, messageID)
	})
}

// CreateFact attaches or replaces the fact on a post. Fact checkers and up.
func (s *ContentService) CreateFact(ctx context.Context, token string, postID uint, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.NewValidationError("Fact content is required")
	}
	if runeLen(content) > maxFactLen {
		return models.NewValidationError("Fact too long (max 5000 characters)")
	}
	return s.coord.Run(ctx, "create_fact", coordinator.Both, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		if err := requireRole(caller, models.RoleFactChecker); err != nil {
			return err
		}
		return u.Graph.SetFact(ctx, postID, content)
	})
}

func (s *ContentService) DeleteFact(ctx context.Context, token string, postID uint) error {
	return s.coord.Run(ctx, "delete_fact", coordinator.Both, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		if err := requireRole(caller, models.RoleFactChecker); err != nil {
			return err
		}
		return u.Graph.DeleteFact(ctx, postID)
	})
}

func (s *ContentService) GetFact(ctx context.Context, postID uint) (string, error) {
	var fact string
	err := s.coord.Run(ctx, "get_fact", coordinator.Graph, func(ctx context.Context, u *coordinator.Unit) error {
		var err error
		fact, err = u.Graph.GetFact(ctx, postID)
		return err
	})
	return fact, err
}
