package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/branchpos-backend/api/middleware"
	"github.com/angelmondragon/branchpos-backend/api/responses"
	"github.com/angelmondragon/branchpos-backend/internal/branches"
	"github.com/angelmondragon/branchpos-backend/internal/units"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/angelmondragon/branchpos-backend/pkg/logger"
)

// CatalogSource resolves the caller's branch and its store catalog.
type CatalogSource interface {
	Branch(ctx context.Context, id uuid.UUID) (*branches.Branch, error)
	Catalog(ctx context.Context, storeID uuid.UUID) (*units.Catalog, error)
}

type unitsResponse struct {
	Branch *branches.Branch `json:"branch"`
	Units  []units.Unit     `json:"units"`
}

// ListUnits returns the unit catalog of the caller's store together with the
// branch configuration the client needs to render pricing forms.
func ListUnits(src CatalogSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branch, catalog, err := branchCatalog(r, src)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, unitsResponse{Branch: branch, Units: catalog.Units()})
	}
}

func branchCatalog(r *http.Request, src CatalogSource) (*branches.Branch, *units.Catalog, error) {
	if src == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeInternal, "branch service unavailable")
	}
	branchID, err := requireBranch(r)
	if err != nil {
		return nil, nil, err
	}
	branch, err := src.Branch(r.Context(), branchID)
	if err != nil {
		return nil, nil, err
	}
	catalog, err := src.Catalog(r.Context(), branch.StoreID)
	if err != nil {
		return nil, nil, err
	}
	return branch, catalog, nil
}

func requireBranch(r *http.Request) (uuid.UUID, error) {
	id := middleware.BranchUUID(r.Context())
	if id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "branch context missing")
	}
	return id, nil
}
