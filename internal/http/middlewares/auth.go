package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/gatekit/internal/http/errors"
	"github.com/dropDatabas3/gatekit/internal/http/helpers"
	"github.com/dropDatabas3/gatekit/internal/http/services/session"
)

// WithSessionAuth valida el Bearer token contra el servicio de sesiones y
// deja el Principal en el contexto. Sin token o con token inválido responde
// 401 con el mismo cuerpo en ambos casos.
func WithSessionAuth(sessions session.Service) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := helpers.BearerToken(r)
			if token == "" {
				errors.WriteError(w, r, errors.ErrTokenMissing)
				return
			}

			res, err := sessions.Validate(r.Context(), token)
			if err != nil {
				if err == session.ErrInvalidSession {
					errors.WriteError(w, r, errors.ErrInvalidSession)
				} else {
					errors.WriteError(w, r, errors.ErrInternalServerError.WithCause(err))
				}
				return
			}

			ctx := helpers.WithPrincipal(r.Context(), &helpers.Principal{
				Token:          token,
				UserID:         res.UserID,
				Email:          res.Email,
				OrganizationID: res.OrganizationID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
