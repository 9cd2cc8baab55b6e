package controllers

import (
	"github.com/recaphq/recap/internal/domain"

	"github.com/gofiber/fiber/v3"
)

// ContactController exposes the primitive CRM contact operations.
type ContactController struct {
	crm         domain.CRMClient
	credentials domain.CredentialStore
}

type ContactControllerDependencies struct {
	CRMClient       domain.CRMClient
	CredentialStore domain.CredentialStore
}

func NewContactController(deps ContactControllerDependencies) *ContactController {
	return &ContactController{
		crm:         deps.CRMClient,
		credentials: deps.CredentialStore,
	}
}

func (c *ContactController) SearchContacts(ctx fiber.Ctx) error {
	credential, err := c.credential(ctx)
	if err != nil {
		return err
	}

	contacts, err := c.crm.SearchContacts(ctx.RequestCtx(), credential, ctx.Query("q"))
	if err != nil {
		return mapCRMError(err)
	}

	return ctx.JSON(fiber.Map{"results": contacts})
}

func (c *ContactController) GetContact(ctx fiber.Ctx) error {
	credential, err := c.credential(ctx)
	if err != nil {
		return err
	}

	contact, err := c.crm.GetContact(ctx.RequestCtx(), credential, ctx.Params("contactID"))
	if err != nil {
		return mapCRMError(err)
	}

	return ctx.JSON(contact)
}

type updateContactRequest struct {
	Updates map[string]string `json:"updates"`
}

func (c *ContactController) UpdateContact(ctx fiber.Ctx) error {
	credential, err := c.credential(ctx)
	if err != nil {
		return err
	}

	var req updateContactRequest
	if err := ctx.Bind().Body(&req); err != nil || len(req.Updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	contact, err := c.crm.UpdateContact(ctx.RequestCtx(), credential, ctx.Params("contactID"), req.Updates)
	if err != nil {
		return mapCRMError(err)
	}

	return ctx.JSON(contact)
}

func (c *ContactController) credential(ctx fiber.Ctx) (domain.Credential, error) {
	userID, err := requireUserID(ctx)
	if err != nil {
		return domain.Credential{}, err
	}

	credential, err := c.credentials.Load(ctx.RequestCtx(), userID, domain.ProviderHubSpot)
	if err != nil {
		return domain.Credential{}, mapCRMError(err)
	}

	return credential, nil
}
