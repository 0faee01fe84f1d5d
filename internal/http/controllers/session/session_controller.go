// Package session contains the controllers for CLI session endpoints.
package session

import (
	"errors"
	"net/http"

	dto "github.com/dropDatabas3/gatekit/internal/http/dto/session"
	httperrors "github.com/dropDatabas3/gatekit/internal/http/errors"
	"github.com/dropDatabas3/gatekit/internal/http/helpers"
	svc "github.com/dropDatabas3/gatekit/internal/http/services/session"
	"github.com/dropDatabas3/gatekit/internal/observability/logger"
)

// SessionController maneja validate, refresh y revoke.
type SessionController struct {
	sessions svc.Service
}

// NewSessionController crea el controller.
func NewSessionController(s svc.Service) *SessionController {
	return &SessionController{sessions: s}
}

// Validate handles GET /cli/session/validate
func (c *SessionController) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := helpers.BearerToken(r)
	if token == "" {
		httperrors.WriteError(w, r, httperrors.ErrTokenMissing)
		return
	}

	res, err := c.sessions.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, svc.ErrInvalidSession) {
			httperrors.WriteError(w, r, httperrors.ErrInvalidSession)
			return
		}
		logger.From(ctx).Error("validate failed", logger.Op("session.validate"), logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	orgs := make([]dto.OrganizationSummary, 0, len(res.Organizations))
	for _, o := range res.Organizations {
		orgs = append(orgs, dto.OrganizationSummary{ID: o.ID, Name: o.Name, Slug: o.Slug})
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ValidateResponse{
		Valid:          true,
		UserID:         res.UserID,
		Email:          res.Email,
		OrganizationID: res.OrganizationID,
		Organizations:  orgs,
		ExpiresAt:      res.ExpiresAt,
	})
}

// Refresh handles POST /cli/session/refresh
func (c *SessionController) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := helpers.BearerToken(r)
	if token == "" {
		httperrors.WriteError(w, r, httperrors.ErrTokenMissing)
		return
	}

	newToken, sess, err := c.sessions.Refresh(ctx, token)
	if err != nil {
		if errors.Is(err, svc.ErrInvalidSession) {
			httperrors.WriteError(w, r, httperrors.ErrInvalidSession)
			return
		}
		logger.From(ctx).Error("refresh failed", logger.Op("session.refresh"), logger.Err(err))
		httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.RefreshResponse{
		Token:     newToken,
		ExpiresAt: sess.ExpiresAt,
	})
}

// Revoke handles POST /cli/session/revoke
// Siempre responde success, incluso con token desconocido: logout no puede
// servir para enumerar tokens válidos.
func (c *SessionController) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := helpers.BearerToken(r)
	if token == "" {
		httperrors.WriteError(w, r, httperrors.ErrTokenMissing)
		return
	}

	if err := c.sessions.Revoke(ctx, token); err != nil {
		logger.From(ctx).Warn("revoke failed", logger.Op("session.revoke"), logger.Err(err))
	}
	helpers.WriteJSON(w, http.StatusOK, dto.RevokeResponse{Success: true})
}
