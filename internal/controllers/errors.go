package controllers

import (
	"errors"

	"github.com/recaphq/recap/internal/domain"
	"github.com/recaphq/recap/internal/suggestions"

	"github.com/gofiber/fiber/v3"
)

func requireUserID(ctx fiber.Ctx) (string, error) {
	userID := ctx.Get("X-User-ID")
	if userID == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Missing X-User-ID header")
	}
	return userID, nil
}

// mapCRMError translates the integration error taxonomy to HTTP statuses.
// Reauthorization must stay distinguishable at the UI boundary so the
// client can redirect the user instead of showing a generic failure.
func mapCRMError(err error) error {
	switch {
	case errors.Is(err, domain.ErrReauthRequired):
		return fiber.NewError(fiber.StatusUnauthorized, "HubSpot authorization expired, please reconnect your account")
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Contact not found")
	case errors.Is(err, domain.ErrCredentialNotFound):
		return fiber.NewError(fiber.StatusUnauthorized, "No HubSpot connection for this user")
	default:
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) {
			return fiber.NewError(fiber.StatusBadGateway, "HubSpot API error")
		}

		var httpErr *domain.HTTPError
		var refreshErr *domain.RefreshTransportError
		if errors.As(err, &httpErr) || errors.As(err, &refreshErr) {
			return fiber.NewError(fiber.StatusBadGateway, "HubSpot is unreachable")
		}

		return mapSessionError(err)
	}
}

func mapSessionError(err error) error {
	switch {
	case errors.Is(err, suggestions.ErrNoSelection):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Select at least one suggestion")
	case errors.Is(err, suggestions.ErrNoContactSelected):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Select a contact first")
	case errors.Is(err, suggestions.ErrBusy):
		return fiber.NewError(fiber.StatusConflict, "Submission already in progress")
	case errors.Is(err, suggestions.ErrUnknownField):
		return fiber.NewError(fiber.StatusBadRequest, "No suggestion for that field")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "Internal error")
	}
}
