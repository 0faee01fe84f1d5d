// Package organization contains the controller for organization endpoints.
package organization

import (
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/gatekit/internal/http/dto/organization"
	httperrors "github.com/dropDatabas3/gatekit/internal/http/errors"
	"github.com/dropDatabas3/gatekit/internal/http/helpers"
	svc "github.com/dropDatabas3/gatekit/internal/http/services/cliauth"
	"github.com/dropDatabas3/gatekit/internal/observability/logger"
)

// OrganizationController maneja la creación de organizaciones desde la CLI.
type OrganizationController struct {
	provisioning svc.ProvisioningService
}

// NewOrganizationController crea el controller.
func NewOrganizationController(p svc.ProvisioningService) *OrganizationController {
	return &OrganizationController{provisioning: p}
}

// Create handles POST /cli/organizations
func (c *OrganizationController) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("organization.create"))

	principal := helpers.GetPrincipal(ctx)
	if principal == nil {
		httperrors.WriteError(w, r, httperrors.ErrTokenMissing)
		return
	}

	var req dto.CreateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httperrors.WriteError(w, r, httperrors.ErrMissingFields.WithDetail("name es requerido"))
		return
	}

	org, err := c.provisioning.CreateOrganization(ctx, principal.UserID, strings.TrimSpace(req.Name))
	if err != nil {
		log.Error("create organization failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	helpers.WriteJSON(w, http.StatusCreated, dto.CreateResponse{
		ID:   org.ID,
		Name: org.Name,
		Slug: org.Slug,
	})
}
