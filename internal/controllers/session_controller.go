package controllers

import (
	"github.com/recaphq/recap/internal/suggestions"

	"github.com/gofiber/fiber/v3"
)

// SessionController handles the suggestion-session flow: create, search,
// select, toggle, submit, dismiss.
type SessionController struct {
	sessions *suggestions.Manager
}

type SessionControllerDependencies struct {
	SessionManager *suggestions.Manager
}

func NewSessionController(deps SessionControllerDependencies) *SessionController {
	return &SessionController{
		sessions: deps.SessionManager,
	}
}

type createSessionRequest struct {
	Transcript string `json:"transcript"`
}

func (c *SessionController) CreateSession(ctx fiber.Ctx) error {
	userID, err := requireUserID(ctx)
	if err != nil {
		return err
	}

	var req createSessionRequest
	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	session := c.sessions.CreateSession(ctx.RequestCtx(), userID, req.Transcript)

	return ctx.Status(fiber.StatusCreated).JSON(session.Snapshot())
}

func (c *SessionController) GetSession(ctx fiber.Ctx) error {
	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	return ctx.JSON(session.Snapshot())
}

type searchRequest struct {
	Query string `json:"query"`
}

func (c *SessionController) Search(ctx fiber.Ctx) error {
	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	var req searchRequest
	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := session.Input(ctx.RequestCtx(), req.Query); err != nil {
		return mapSessionError(err)
	}

	return ctx.JSON(session.Snapshot())
}

type selectContactRequest struct {
	ContactID string `json:"contact_id"`
}

func (c *SessionController) SelectContact(ctx fiber.Ctx) error {
	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	var req selectContactRequest
	if err := ctx.Bind().Body(&req); err != nil || req.ContactID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := session.Select(ctx.RequestCtx(), req.ContactID); err != nil {
		return mapCRMError(err)
	}

	return ctx.JSON(session.Snapshot())
}

type toggleRequest struct {
	Field string `json:"field"`
	Apply bool   `json:"apply"`
}

func (c *SessionController) ToggleSuggestion(ctx fiber.Ctx) error {
	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	var req toggleRequest
	if err := ctx.Bind().Body(&req); err != nil || req.Field == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := session.Toggle(ctx.RequestCtx(), req.Field, req.Apply); err != nil {
		return mapSessionError(err)
	}

	return ctx.JSON(session.Snapshot())
}

func (c *SessionController) Submit(ctx fiber.Ctx) error {
	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	if err := session.Submit(ctx.RequestCtx()); err != nil {
		return mapCRMError(err)
	}

	return ctx.JSON(session.Snapshot())
}

func (c *SessionController) Dismiss(ctx fiber.Ctx) error {
	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	session.Dismiss(ctx.RequestCtx())

	return ctx.JSON(session.Snapshot())
}

func (c *SessionController) session(ctx fiber.Ctx) (*suggestions.Session, error) {
	session, ok := c.sessions.GetSession(ctx.Params("sessionID"))
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "Session not found")
	}
	return session, nil
}
