package controllers

import (
	"net/http"

	"github.com/angelmondragon/herbstore-backend/api/middleware"
	"github.com/angelmondragon/herbstore-backend/api/responses"
	"github.com/angelmondragon/herbstore-backend/api/validators"
	"github.com/angelmondragon/herbstore-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/herbstore-backend/pkg/errors"
	"github.com/angelmondragon/herbstore-backend/pkg/logger"
)

type checkoutRequest struct {
	Email        string `json:"email" validate:"required,email,max=254"`
	CustomerName string `json:"customerName,omitempty" validate:"max=120"`
	Phone        string `json:"phone,omitempty" validate:"max=32"`
	Address      string `json:"address,omitempty" validate:"max=500"`
}

// Checkout turns the session cart into a pending order and clears the cart.
func Checkout(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		sessionID := middleware.CartSessionFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart session missing"))
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Checkout(r.Context(), sessionID, orders.CheckoutInput{
			Email:        body.Email,
			CustomerName: validators.SanitizeString(body.CustomerName, 120),
			Phone:        validators.SanitizeString(body.Phone, 32),
			Address:      validators.SanitizeString(body.Address, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
