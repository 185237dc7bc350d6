package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herbstore-backend/api/responses"
	"github.com/angelmondragon/herbstore-backend/api/validators"
	productsvc "github.com/angelmondragon/herbstore-backend/internal/products"
	"github.com/angelmondragon/herbstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herbstore-backend/pkg/errors"
	"github.com/angelmondragon/herbstore-backend/pkg/logger"
)

// priceField accepts either a single amount or a size table keyed by variant.
type priceField struct {
	Amount  *decimal.Decimal
	Entries map[string]decimal.Decimal
}

func (p *priceField) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '{' {
		entries := map[string]decimal.Decimal{}
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return err
		}
		p.Entries = entries
		return nil
	}
	var amount decimal.Decimal
	if err := json.Unmarshal(trimmed, &amount); err != nil {
		return err
	}
	p.Amount = &amount
	return nil
}

func (p *priceField) toInput() (*productsvc.PriceInput, error) {
	if p == nil || (p.Amount == nil && len(p.Entries) == 0) {
		return nil, nil
	}
	input := &productsvc.PriceInput{Amount: p.Amount}
	if len(p.Entries) > 0 {
		input.Entries = make(map[enums.VariantKey]decimal.Decimal, len(p.Entries))
		for raw, amount := range p.Entries {
			key, err := enums.ParseVariantKey(raw)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid size").
					WithDetails(map[string]any{"price": "unknown size " + raw})
			}
			input.Entries[key] = amount
		}
	}
	return input, nil
}

type createProductRequest struct {
	Name         string           `json:"name" validate:"required,max=200"`
	Description  string           `json:"description" validate:"required"`
	Category     string           `json:"category" validate:"required,category"`
	Price        *priceField      `json:"price"`
	Size         *string          `json:"size,omitempty" validate:"omitempty,size"`
	RegularPrice *decimal.Decimal `json:"regularPrice,omitempty"`
	OldPrice     *decimal.Decimal `json:"oldPrice,omitempty"`
	Image        []string         `json:"image" validate:"required,min=1,dive,required"`
	Quantity     int              `json:"quantity" validate:"gte=0"`
}

func (r createProductRequest) toCreateInput() (productsvc.CreateProductInput, error) {
	category, err := enums.ParseProductCategory(r.Category)
	if err != nil {
		return productsvc.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}
	size, err := parseOptionalSize(r.Size)
	if err != nil {
		return productsvc.CreateProductInput{}, err
	}
	price, err := r.Price.toInput()
	if err != nil {
		return productsvc.CreateProductInput{}, err
	}

	input := productsvc.CreateProductInput{
		Name:         validators.SanitizeString(r.Name, 200),
		Description:  strings.TrimSpace(r.Description),
		Category:     category,
		Size:         size,
		RegularPrice: r.RegularPrice,
		OldPrice:     r.OldPrice,
		Images:       r.Image,
		Quantity:     r.Quantity,
	}
	if price != nil {
		input.Price = *price
	}
	return input, nil
}

type updateProductRequest struct {
	Name         *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Description  *string          `json:"description,omitempty"`
	Category     *string          `json:"category,omitempty" validate:"omitempty,category"`
	Price        *priceField      `json:"price,omitempty"`
	Size         *string          `json:"size,omitempty" validate:"omitempty,size"`
	RegularPrice *decimal.Decimal `json:"regularPrice,omitempty"`
	OldPrice     *decimal.Decimal `json:"oldPrice,omitempty"`
	Image        *[]string        `json:"image,omitempty"`
	Quantity     *int             `json:"quantity,omitempty" validate:"omitempty,gte=0"`
}

func (r updateProductRequest) toUpdateInput() (productsvc.UpdateProductInput, error) {
	input := productsvc.UpdateProductInput{
		Name:         r.Name,
		Description:  r.Description,
		RegularPrice: r.RegularPrice,
		OldPrice:     r.OldPrice,
		Images:       r.Image,
		Quantity:     r.Quantity,
	}
	if r.Category != nil {
		category, err := enums.ParseProductCategory(*r.Category)
		if err != nil {
			return productsvc.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		input.Category = &category
	}
	size, err := parseOptionalSize(r.Size)
	if err != nil {
		return productsvc.UpdateProductInput{}, err
	}
	input.Size = size
	price, err := r.Price.toInput()
	if err != nil {
		return productsvc.UpdateProductInput{}, err
	}
	input.Price = price
	return input, nil
}

func parseOptionalSize(raw *string) (*enums.VariantKey, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	key, err := enums.ParseVariantKey(*raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid size").
			WithDetails(map[string]any{"size": "unknown size"})
	}
	return &key, nil
}

// AdminCreateProduct creates a catalog product.
func AdminCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminUpdateProduct applies a partial update to a product.
func AdminUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type quantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

// AdminUpdateProductQuantity sets only the stock count.
func AdminUpdateProductQuantity(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateQuantity(r.Context(), productID, *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminDeleteProduct removes a product. Orders that reference it keep their
// lines and render a placeholder.
func AdminDeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
