package controllers

import (
	"net/http"

	"github.com/angelmondragon/herbstore-backend/api/middleware"
	"github.com/angelmondragon/herbstore-backend/api/responses"
	"github.com/angelmondragon/herbstore-backend/api/validators"
	"github.com/angelmondragon/herbstore-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/herbstore-backend/pkg/errors"
	"github.com/angelmondragon/herbstore-backend/pkg/logger"
)

// TokenHeader mirrors the access token of a fresh admin login.
const TokenHeader = "X-HS-Token"

// AdminAuthLogin exchanges the admin credentials for an access token.
func AdminAuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AdminLogin(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set(TokenHeader, result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

// AdminAuthLogout revokes the session behind the current access token.
func AdminAuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok || actor.AccessID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session missing"))
			return
		}
		if err := svc.Logout(r.Context(), actor.AccessID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
