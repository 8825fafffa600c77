package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/zaederex/prattle/internal/history"
	"github.com/zaederex/prattle/internal/store"
)

func (s *Server) getThread(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid thread id"})
	}
	msgs, err := s.history.Thread(c.Context(), id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "data": msgs})
}

func (s *Server) getConversation(c *fiber.Ctx) error {
	msgs, err := s.history.Conversation(c.Context(), c.Params("a"), c.Params("b"))
	if err != nil {
		if errors.Is(err, history.ErrConversationNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "conversation not found"})
		}
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "data": msgs})
}

func (s *Server) getUnreadCount(c *fiber.Ctx) error {
	n, err := s.history.UnreadCount(c.Context(), c.Params("a"), c.Params("b"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "data": fiber.Map{"count": n}})
}

func (s *Server) searchHashtag(c *fiber.Ctx) error {
	username := c.Query("user")
	if username == "" {
		username, _ = c.Locals("username").(string)
	}
	msgs, err := s.history.SearchByHashtag(c.Context(), c.Params("tag"), username)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "data": msgs})
}

func (s *Server) getTopHashtags(c *fiber.Ctx) error {
	tags, err := s.history.TopTags(c.Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "data": tags})
}

func (s *Server) listFilters(c *fiber.Ctx) error {
	user, err := s.directory.FindUserByName(c.Context(), c.Params("username"))
	if err != nil {
		return s.fail(c, err)
	}
	keywords, err := s.filters.FiltersFor(c.Context(), user.ID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "data": keywords})
}

type filterRequest struct {
	Keyword string `json:"keyword"`
}

func (s *Server) addFilter(c *fiber.Ctx) error {
	var req filterRequest
	if err := c.BodyParser(&req); err != nil || req.Keyword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "keyword is required"})
	}
	user, err := s.directory.FindUserByName(c.Context(), c.Params("username"))
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.filters.AddFilter(c.Context(), user.ID, req.Keyword); err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success"})
}

func (s *Server) removeFilter(c *fiber.Ctx) error {
	user, err := s.directory.FindUserByName(c.Context(), c.Params("username"))
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.filters.RemoveFilter(c.Context(), user.ID, c.Params("keyword")); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "success"})
}

// fail maps store errors onto HTTP statuses; anything unexpected is a
// logged 500.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrGroupNotFound),
		errors.Is(err, store.ErrMessageNotFound),
		errors.Is(err, store.ErrTagNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		s.log.Errorw("request failed", "path", c.Path(), "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
