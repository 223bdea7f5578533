package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/branchpos-backend/api/responses"
	"github.com/angelmondragon/branchpos-backend/api/validators"
	"github.com/angelmondragon/branchpos-backend/internal/pricing"
	productsvc "github.com/angelmondragon/branchpos-backend/internal/products"
	"github.com/angelmondragon/branchpos-backend/internal/stock"
	"github.com/angelmondragon/branchpos-backend/pkg/logger"
)

type unitCostRequest struct {
	Purchase purchaseRequest `json:"purchase"`
}

type unitCostResponse struct {
	CostPerBaseUnit     decimal.Decimal `json:"cost_per_base_unit"`
	CostPerPurchaseUnit decimal.Decimal `json:"cost_per_purchase_unit"`
}

// PreviewUnitCost derives per-unit costs from a vendor purchase without
// touching any product.
func PreviewUnitCost(src CatalogSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, catalog, err := branchCatalog(r, src)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body unitCostRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cost, err := pricing.DeriveUnitCost(catalog, body.Purchase.toVendorPurchase())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, unitCostResponse{
			CostPerBaseUnit:     pricing.PresentCurrency(cost.CostPerBaseUnit),
			CostPerPurchaseUnit: pricing.PresentCurrency(cost.CostPerPurchaseUnit),
		})
	}
}

type channelPriceRequest struct {
	CostPerBaseUnit *decimal.Decimal `json:"cost_per_base_unit" validate:"required"`
	Channel         channelRequest   `json:"channel"`
}

// PreviewChannelPrice prices one channel from a per-base-unit cost.
func PreviewChannelPrice(src CatalogSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, catalog, err := branchCatalog(r, src)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body channelPriceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		in, err := body.Channel.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ch, err := pricing.BuildPriceChannel(catalog, *body.CostPerBaseUnit, in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, productsvc.NewChannelDTO(ch))
	}
}

type stockRequest struct {
	Purchase struct {
		UnitID   string           `json:"unit_id" validate:"required"`
		Quantity *decimal.Decimal `json:"quantity" validate:"required"`
	} `json:"purchase"`
	AccountingUnitID string `json:"accounting_unit_id" validate:"required"`
}

// PreviewStock converts a purchase into whole accounting units.
func PreviewStock(src CatalogSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, catalog, err := branchCatalog(r, src)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body stockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := stock.ResolveStock(catalog, stock.Purchase{
			UnitID:   strings.TrimSpace(body.Purchase.UnitID),
			Quantity: *body.Purchase.Quantity,
		}, strings.TrimSpace(body.AccountingUnitID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}
