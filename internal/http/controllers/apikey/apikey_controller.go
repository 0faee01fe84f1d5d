// Package apikey contains the controllers for API key and connected
// application endpoints.
package apikey

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
	appdto "github.com/dropDatabas3/gatekit/internal/http/dto/application"
	dto "github.com/dropDatabas3/gatekit/internal/http/dto/apikey"
	httperrors "github.com/dropDatabas3/gatekit/internal/http/errors"
	"github.com/dropDatabas3/gatekit/internal/http/helpers"
	svc "github.com/dropDatabas3/gatekit/internal/http/services/apikey"
	"github.com/dropDatabas3/gatekit/internal/observability/logger"
)

// APIKeyController maneja emisión, listado y vinculación de API keys.
type APIKeyController struct {
	keys        svc.Service
	memberships repository.MembershipRepository
}

// NewAPIKeyController crea el controller.
func NewAPIKeyController(keys svc.Service, memberships repository.MembershipRepository) *APIKeyController {
	return &APIKeyController{keys: keys, memberships: memberships}
}

// memberOf verifica que el usuario pertenezca a la organización.
func (c *APIKeyController) memberOf(r *http.Request, userID, orgID string) (bool, error) {
	orgs, err := c.memberships.ListOrganizationsByUser(r.Context(), userID)
	if err != nil {
		return false, err
	}
	for _, o := range orgs {
		if o.ID == orgID {
			return true, nil
		}
	}
	return false, nil
}

// List handles GET /cli/api-keys?organizationId=...
func (c *APIKeyController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("apikey.list"))

	principal := helpers.GetPrincipal(ctx)
	orgID := r.URL.Query().Get("organizationId")
	if orgID == "" {
		orgID = principal.OrganizationID
	}

	if ok, err := c.memberOf(r, principal.UserID, orgID); err != nil {
		log.Error("membership check failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
		return
	} else if !ok {
		httperrors.WriteError(w, r, httperrors.ErrForbidden)
		return
	}

	keys, err := c.keys.List(ctx, orgID)
	if err != nil {
		log.Error("list keys failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
		return
	}
	limit, current, err := c.keys.Quota(ctx, orgID)
	if err != nil {
		log.Error("quota lookup failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	out := make([]dto.KeySummary, 0, len(keys))
	for _, k := range keys {
		out = append(out, dto.KeySummary{
			ID:         k.ID,
			Name:       k.Name,
			KeyPreview: k.Prefix + "...",
			Scopes:     k.Scopes,
			Status:     k.Status,
			CreatedAt:  k.CreatedAt,
			LastUsed:   k.LastUsedAt,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ListResponse{
		Keys:         out,
		Limit:        limit,
		CurrentCount: current,
	})
}

// Create handles POST /cli/api-keys
func (c *APIKeyController) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("apikey.create"))

	principal := helpers.GetPrincipal(ctx)

	var req dto.CreateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.OrganizationID == "" {
		req.OrganizationID = principal.OrganizationID
	}
	if strings.TrimSpace(req.Name) == "" {
		httperrors.WriteError(w, r, httperrors.ErrMissingFields.WithDetail("name es requerido"))
		return
	}

	if ok, err := c.memberOf(r, principal.UserID, req.OrganizationID); err != nil {
		log.Error("membership check failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
		return
	} else if !ok {
		httperrors.WriteError(w, r, httperrors.ErrForbidden)
		return
	}

	plaintext, key, err := c.keys.Generate(ctx, req.OrganizationID, principal.UserID, strings.TrimSpace(req.Name), req.Scopes)
	if err != nil {
		if errors.Is(err, svc.ErrLimitReached) {
			httperrors.WriteError(w, r, httperrors.ErrAPIKeyLimitReached)
			return
		}
		log.Error("generate key failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	// el plaintext viaja una única vez
	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, http.StatusCreated, dto.CreateResponse{
		Key:       plaintext,
		ID:        key.ID,
		Name:      key.Name,
		Scopes:    key.Scopes,
		CreatedAt: key.CreatedAt,
	})
}

// CreateApplication handles POST /cli/applications
func (c *APIKeyController) CreateApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("application.create"))

	principal := helpers.GetPrincipal(ctx)

	var req appdto.CreateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.OrganizationID == "" {
		req.OrganizationID = principal.OrganizationID
	}
	if strings.TrimSpace(req.Name) == "" {
		httperrors.WriteError(w, r, httperrors.ErrMissingFields.WithDetail("name es requerido"))
		return
	}

	if ok, err := c.memberOf(r, principal.UserID, req.OrganizationID); err != nil {
		log.Error("membership check failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
		return
	} else if !ok {
		httperrors.WriteError(w, r, httperrors.ErrForbidden)
		return
	}

	app, err := c.keys.CreateApplication(ctx, req.OrganizationID, strings.TrimSpace(req.Name))
	if err != nil {
		log.Error("create application failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	helpers.WriteJSON(w, http.StatusCreated, appdto.CreateResponse{
		ID:             app.ID,
		OrganizationID: app.OrganizationID,
		Name:           app.Name,
		CreatedAt:      app.CreatedAt,
	})
}

// Bind handles POST /cli/applications/{id}/api-key
func (c *APIKeyController) Bind(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("apikey.bind"))

	appID := chi.URLParam(r, "id")

	var req dto.BindRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.APIKeyID == "" {
		httperrors.WriteError(w, r, httperrors.ErrMissingFields.WithDetail("apiKeyId es requerido"))
		return
	}

	// la membresía se chequea contra la org dueña de la aplicación: un
	// token de otra org no puede vincular ni sondear keys ajenas
	app, err := c.keys.GetApplication(ctx, appID)
	if err != nil {
		if repository.IsNotFound(err) {
			httperrors.WriteError(w, r, httperrors.ErrNotFound)
			return
		}
		log.Error("application lookup failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	principal := helpers.GetPrincipal(ctx)
	if ok, err := c.memberOf(r, principal.UserID, app.OrganizationID); err != nil {
		log.Error("membership check failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
		return
	} else if !ok {
		httperrors.WriteError(w, r, httperrors.ErrForbidden)
		return
	}

	if err := c.keys.Bind(ctx, appID, req.APIKeyID); err != nil {
		c.handleBindError(w, r, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.BindResponse{Success: true})
}

func (c *APIKeyController) handleBindError(w http.ResponseWriter, r *http.Request, err error, log *zap.Logger) {
	var linked *svc.AlreadyLinkedError
	switch {
	case errors.As(err, &linked):
		httperrors.WriteError(w, r, httperrors.ErrAPIKeyAlreadyLinked.WithMeta(map[string]any{
			"existingApplicationId":   linked.ApplicationID,
			"existingApplicationName": linked.ApplicationName,
		}))
	case repository.IsNotFound(err):
		httperrors.WriteError(w, r, httperrors.ErrNotFound)
	case errors.Is(err, svc.ErrInvalidKey), errors.Is(err, repository.ErrInvalidInput):
		httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("la key no es válida para esta aplicación"))
	default:
		log.Error("bind failed", logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
	}
}
