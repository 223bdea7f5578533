package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/branchpos-backend/api/middleware"
	"github.com/angelmondragon/branchpos-backend/api/responses"
	"github.com/angelmondragon/branchpos-backend/api/validators"
	"github.com/angelmondragon/branchpos-backend/internal/session"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/angelmondragon/branchpos-backend/pkg/logger"
)

type createSessionRequest struct {
	Kind                string  `json:"kind" validate:"required,oneof=sale transfer"`
	DestinationBranchID *string `json:"destination_branch_id,omitempty" validate:"omitempty,uuid"`
	Channel             string  `json:"channel,omitempty"`
}

func (r createSessionRequest) toInput(branchID uuid.UUID, userID *uuid.UUID) (session.CreateInput, error) {
	kind, err := enums.ParseSessionKind(r.Kind)
	if err != nil {
		return session.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid session kind")
	}
	in := session.CreateInput{
		Kind:     kind,
		BranchID: branchID,
		UserID:   userID,
		Channel:  normalizeChannel(r.Channel),
	}
	if kind == enums.SessionKindTransfer {
		if r.DestinationBranchID == nil {
			return session.CreateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "destination_branch_id is required for transfers").
				WithDetails(map[string]any{"field": "destination_branch_id"})
		}
		dest, err := uuid.Parse(strings.TrimSpace(*r.DestinationBranchID))
		if err != nil {
			return session.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid destination_branch_id")
		}
		in.DestinationBranchID = dest
	}
	return in, nil
}

type addLineRequest struct {
	ProductID string           `json:"product_id" validate:"required,uuid"`
	Quantity  *decimal.Decimal `json:"quantity" validate:"required"`
	UnitID    string           `json:"unit_id" validate:"required"`
}

type updateLineRequest struct {
	Quantity *decimal.Decimal `json:"quantity,omitempty"`
	UnitID   *string          `json:"unit_id,omitempty"`
}

type channelUpdateRequest struct {
	Channel string `json:"channel" validate:"required"`
}

type discountRequest struct {
	Percent *decimal.Decimal `json:"percent" validate:"required"`
}

// CreateSession opens a sale or transfer session on the caller's branch.
func CreateSession(svc session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}
		branchID, err := requireBranch(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(branchID, middleware.UserUUID(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func GetSession(svc session.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(svc, logg, func(r *http.Request, branchID, id uuid.UUID) (*session.SessionDTO, error) {
		return svc.Get(r.Context(), branchID, id)
	})
}

func AddSessionLine(svc session.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(svc, logg, func(r *http.Request, branchID, id uuid.UUID) (*session.SessionDTO, error) {
		var payload addLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		productID, err := uuid.Parse(strings.TrimSpace(payload.ProductID))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product_id")
		}
		return svc.AddLine(r.Context(), branchID, id, session.AddLineInput{
			ProductID: productID,
			Quantity:  *payload.Quantity,
			UnitID:    strings.TrimSpace(payload.UnitID),
		})
	})
}

// UpdateSessionLine changes a line's quantity or unit. Omitted fields keep
// their current value.
func UpdateSessionLine(svc session.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(svc, logg, func(r *http.Request, branchID, id uuid.UUID) (*session.SessionDTO, error) {
		lineID, err := lineParam(r)
		if err != nil {
			return nil, err
		}
		var payload updateLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		if payload.Quantity == nil && payload.UnitID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity or unit_id is required")
		}
		update := session.LineUpdate{Quantity: payload.Quantity}
		if payload.UnitID != nil {
			unitID := strings.TrimSpace(*payload.UnitID)
			update.UnitID = &unitID
		}
		return svc.UpdateLine(r.Context(), branchID, id, lineID, update)
	})
}

func RemoveSessionLine(svc session.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(svc, logg, func(r *http.Request, branchID, id uuid.UUID) (*session.SessionDTO, error) {
		lineID, err := lineParam(r)
		if err != nil {
			return nil, err
		}
		return svc.RemoveLine(r.Context(), branchID, id, lineID)
	})
}

// SetSessionChannel switches the selling channel and reprices every line.
func SetSessionChannel(svc session.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(svc, logg, func(r *http.Request, branchID, id uuid.UUID) (*session.SessionDTO, error) {
		var payload channelUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.SetChannel(r.Context(), branchID, id, normalizeChannel(payload.Channel))
	})
}

func SetSessionDiscount(svc session.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(svc, logg, func(r *http.Request, branchID, id uuid.UUID) (*session.SessionDTO, error) {
		var payload discountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.SetDiscount(r.Context(), branchID, id, *payload.Percent)
	})
}

func AbandonSession(svc session.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(svc, logg, func(r *http.Request, branchID, id uuid.UUID) (*session.SessionDTO, error) {
		return svc.Abandon(r.Context(), branchID, id)
	})
}

// sessionHandler resolves the branch and session id shared by every
// per-session route before running fn.
func sessionHandler(svc session.Service, logg *logger.Logger, fn func(r *http.Request, branchID, id uuid.UUID) (*session.SessionDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}
		branchID, err := requireBranch(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := fn(r, branchID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func lineParam(r *http.Request) (string, error) {
	lineID := strings.TrimSpace(chi.URLParam(r, "lineId"))
	if lineID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "lineId is required").WithDetails(map[string]any{"field": "lineId"})
	}
	return lineID, nil
}

func normalizeChannel(raw string) enums.SellingChannel {
	return enums.SellingChannel(strings.ToLower(strings.TrimSpace(raw)))
}
