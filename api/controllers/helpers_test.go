package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/branchpos-backend/api/middleware"
	"github.com/angelmondragon/branchpos-backend/internal/branches"
	"github.com/angelmondragon/branchpos-backend/internal/units"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	"github.com/angelmondragon/branchpos-backend/pkg/logger"
)

const (
	pieceID = "8a1d0c4e-3f43-4c55-9d5b-0a6a1f3e0001"
	dozenID = "8a1d0c4e-3f43-4c55-9d5b-0a6a1f3e0012"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

type stubCatalogSource struct {
	branch  *branches.Branch
	catalog *units.Catalog
}

func newStubCatalogSource(branchID uuid.UUID) *stubCatalogSource {
	return &stubCatalogSource{
		branch: &branches.Branch{
			ID:            branchID,
			StoreID:       uuid.New(),
			Name:          "Centro",
			PricingMode:   enums.PricingModeAutomatic,
			RetailEnabled: true,
			StockMode:     enums.StockModeAutomatic,
		},
		catalog: units.MustCatalog(
			units.Unit{ID: pieceID, Name: "piece", BaseQuantity: decimal.NewFromInt(1)},
			units.Unit{ID: dozenID, Name: "dozen", BaseQuantity: decimal.NewFromInt(12)},
		),
	}
}

func (s *stubCatalogSource) Branch(_ context.Context, id uuid.UUID) (*branches.Branch, error) {
	return s.branch, nil
}

func (s *stubCatalogSource) Catalog(_ context.Context, _ uuid.UUID) (*units.Catalog, error) {
	return s.catalog, nil
}

// serve runs h against a request carrying the branch context and the given
// chi URL params.
func serve(h http.HandlerFunc, method string, branchID uuid.UUID, body any, params map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, "/", reader)
	ctx := req.Context()
	if branchID != uuid.Nil {
		ctx = middleware.WithBranchID(ctx, branchID.String())
	}
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	envelope := struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}{}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error.Code
}
