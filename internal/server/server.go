package server

import (
	"time"

	"github.com/recaphq/recap/internal/controllers"
	"github.com/recaphq/recap/internal/version"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type HTTPServerDependencies struct {
	SessionController *controllers.SessionController
	ContactController *controllers.ContactController
}

func NewHTTPServer(deps HTTPServerDependencies) *fiber.App {
	router := fiber.New(fiber.Config{
		AppName: "recap-crm",
	})

	router.Use(cors.New())
	router.Use(logger.New())

	// Health check endpoint (no authentication required)
	router.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"service":   "recap-crm",
			"version":   version.GetVersion(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	sessions := router.Group("/sessions")
	sessions.Post("/", deps.SessionController.CreateSession)
	sessions.Get("/:sessionID", deps.SessionController.GetSession)
	sessions.Post("/:sessionID/search", deps.SessionController.Search)
	sessions.Post("/:sessionID/select", deps.SessionController.SelectContact)
	sessions.Post("/:sessionID/toggle", deps.SessionController.ToggleSuggestion)
	sessions.Post("/:sessionID/submit", deps.SessionController.Submit)
	sessions.Post("/:sessionID/dismiss", deps.SessionController.Dismiss)

	contacts := router.Group("/contacts")
	contacts.Get("/search", deps.ContactController.SearchContacts)
	contacts.Get("/:contactID", deps.ContactController.GetContact)
	contacts.Patch("/:contactID", deps.ContactController.UpdateContact)

	return router
}
