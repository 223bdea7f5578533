package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/branchpos-backend/internal/pricing"
	productsvc "github.com/angelmondragon/branchpos-backend/internal/products"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
)

type stubProductService struct {
	branchID  uuid.UUID
	productID uuid.UUID
	created   *productsvc.CreateProductInput
	updated   *productsvc.UpdateProductInput
	previewed *productsvc.PricingInput
	err       error
}

func (s *stubProductService) Preview(_ context.Context, branchID uuid.UUID, input productsvc.PricingInput) (*productsvc.PricingDTO, error) {
	s.branchID = branchID
	s.previewed = &input
	return &productsvc.PricingDTO{}, s.err
}

func (s *stubProductService) Create(_ context.Context, branchID uuid.UUID, input productsvc.CreateProductInput) (*productsvc.ProductDTO, error) {
	s.branchID = branchID
	s.created = &input
	if s.err != nil {
		return nil, s.err
	}
	return &productsvc.ProductDTO{}, nil
}

func (s *stubProductService) Update(_ context.Context, branchID, productID uuid.UUID, input productsvc.UpdateProductInput) (*productsvc.ProductDTO, error) {
	s.branchID = branchID
	s.productID = productID
	s.updated = &input
	if s.err != nil {
		return nil, s.err
	}
	return &productsvc.ProductDTO{}, nil
}

func (s *stubProductService) Get(_ context.Context, branchID, productID uuid.UUID) (*productsvc.ProductDTO, error) {
	s.branchID = branchID
	s.productID = productID
	if s.err != nil {
		return nil, s.err
	}
	return &productsvc.ProductDTO{}, nil
}

func (s *stubProductService) PricingSnapshot(context.Context, uuid.UUID, uuid.UUID) (pricing.Product, error) {
	panic("unimplemented")
}

func pricingBody() map[string]any {
	return map[string]any{
		"purchase":           map[string]any{"unit_id": dozenID, "total_price": "120", "quantity": "2"},
		"accounting_unit_id": pieceID,
		"sold_unit_ids":      []string{pieceID, " " + dozenID + " "},
		"channels": []map[string]any{
			{"channel": "retail", "unit_id": pieceID, "markup_percent": "100"},
		},
	}
}

func TestCreateProduct(t *testing.T) {
	branchID := uuid.New()
	logg := testLogger()

	t.Run("missing branch", func(t *testing.T) {
		rec := serve(CreateProduct(&stubProductService{}, logg), http.MethodPost, uuid.Nil, map[string]any{}, nil)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("requires sold units", func(t *testing.T) {
		pricingPayload := pricingBody()
		pricingPayload["sold_unit_ids"] = []string{}
		body := map[string]any{"sku": "SOAP-1", "name": "Soap", "pricing": pricingPayload}
		stub := &stubProductService{}
		rec := serve(CreateProduct(stub, logg), http.MethodPost, branchID, body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if stub.created != nil {
			t.Fatalf("service should not be called on invalid payload")
		}
	})

	t.Run("success", func(t *testing.T) {
		body := map[string]any{"sku": "  SOAP-1 ", "name": "Soap", "pricing": pricingBody()}
		stub := &stubProductService{}
		rec := serve(CreateProduct(stub, logg), http.MethodPost, branchID, body, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.branchID != branchID {
			t.Fatalf("expected branch %s, got %s", branchID, stub.branchID)
		}
		in := stub.created
		if in.SKU != "SOAP-1" || !in.IsActive {
			t.Fatalf("unexpected create input: %+v", in)
		}
		if len(in.Pricing.SoldUnitIDs) != 2 || in.Pricing.SoldUnitIDs[1] != dozenID {
			t.Fatalf("expected trimmed sold units, got %v", in.Pricing.SoldUnitIDs)
		}
		if !in.Pricing.Purchase.TotalPrice.Equal(decimal.NewFromInt(120)) {
			t.Fatalf("expected purchase total 120, got %s", in.Pricing.Purchase.TotalPrice)
		}
		if len(in.Pricing.Channels) != 1 || in.Pricing.Channels[0].SellingPrice != nil {
			t.Fatalf("unexpected channels: %+v", in.Pricing.Channels)
		}
	})

	t.Run("engine error", func(t *testing.T) {
		body := map[string]any{"sku": "SOAP-1", "name": "Soap", "pricing": pricingBody()}
		stub := &stubProductService{err: pkgerrors.New(pkgerrors.CodePriceNotConfigured, "no price")}
		rec := serve(CreateProduct(stub, logg), http.MethodPost, branchID, body, nil)
		if code := errorCode(t, rec); code != "PRICE_NOT_CONFIGURED" {
			t.Fatalf("expected PRICE_NOT_CONFIGURED, got %s", code)
		}
	})
}

func TestPreviewProduct(t *testing.T) {
	branchID := uuid.New()
	stub := &stubProductService{}
	rec := serve(PreviewProduct(stub, testLogger()), http.MethodPost, branchID, pricingBody(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.previewed == nil || stub.previewed.AccountingUnitID != pieceID {
		t.Fatalf("expected preview input to be forwarded, got %+v", stub.previewed)
	}
}

func TestUpdateProduct(t *testing.T) {
	branchID := uuid.New()
	productID := uuid.New()
	logg := testLogger()

	t.Run("invalid product id", func(t *testing.T) {
		rec := serve(UpdateProduct(&stubProductService{}, logg), http.MethodPatch, branchID, map[string]any{}, map[string]string{"productId": "nope"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("name only", func(t *testing.T) {
		stub := &stubProductService{}
		rec := serve(UpdateProduct(stub, logg), http.MethodPatch, branchID, map[string]any{"name": "Hand soap"}, map[string]string{"productId": productID.String()})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.productID != productID {
			t.Fatalf("expected product %s, got %s", productID, stub.productID)
		}
		if stub.updated.Name == nil || *stub.updated.Name != "Hand soap" {
			t.Fatalf("expected name update, got %+v", stub.updated)
		}
		if stub.updated.Pricing != nil || stub.updated.SKU != nil {
			t.Fatalf("expected untouched fields to stay nil, got %+v", stub.updated)
		}
	})

	t.Run("not found", func(t *testing.T) {
		stub := &stubProductService{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}
		rec := serve(GetProduct(stub, logg), http.MethodGet, branchID, nil, map[string]string{"productId": productID.String()})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
