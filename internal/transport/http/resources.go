package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cimillas/rentbook/internal/app"
	"github.com/cimillas/rentbook/internal/domain"
)

type ResourceService interface {
	CreateResource(ctx context.Context, in app.CreateResourceInput) (domain.Resource, error)
	ListResources(ctx context.Context) ([]domain.Resource, error)
}

type createResourceRequest struct {
	Name        string          `json:"name"`
	PricePerDay decimal.Decimal `json:"price_per_day"`
}

type resourceResponse struct {
	ID          string          `json:"id"`
	SellerID    string          `json:"seller_id"`
	Name        string          `json:"name"`
	PricePerDay decimal.Decimal `json:"price_per_day"`
	CreatedAt   time.Time       `json:"created_at"`
}

// HandleCreateResource registers a rentable resource for the authenticated
// seller.
func HandleCreateResource(svc ResourceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}

		var req createResourceRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		priceCents, err := decimalToCents(req.PricePerDay)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidPrice, err.Error())
			return
		}

		resource, err := svc.CreateResource(r.Context(), app.CreateResourceInput{
			SellerID:    principal.ID,
			Name:        req.Name,
			PricePerDay: priceCents,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toResourceResponse(resource))
	}
}

func HandleListResources(svc ResourceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resources, err := svc.ListResources(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resp := make([]resourceResponse, 0, len(resources))
		for _, res := range resources {
			resp = append(resp, toResourceResponse(res))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func toResourceResponse(res domain.Resource) resourceResponse {
	return resourceResponse{
		ID:          res.ID,
		SellerID:    res.SellerID,
		Name:        res.Name,
		PricePerDay: centsToDecimal(res.PricePerDay),
		CreatedAt:   res.CreatedAt,
	}
}
