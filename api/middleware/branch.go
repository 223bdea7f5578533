package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/branchpos-backend/api/responses"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/angelmondragon/branchpos-backend/pkg/logger"
)

const (
	branchIDHeader = "X-Branch-Id"
	userIDHeader   = "X-User-Id"
)

// BranchContext reads the identity headers set by the upstream gateway.
// X-Branch-Id is required; X-User-Id is optional.
func BranchContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			rawBranch := strings.TrimSpace(r.Header.Get(branchIDHeader))
			if rawBranch == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "branch context missing"))
				return
			}
			branchID, err := uuid.Parse(rawBranch)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid branch id").
					WithDetails(map[string]any{"header": branchIDHeader}))
				return
			}
			ctx = WithBranchID(ctx, branchID.String())
			if logg != nil {
				ctx = logg.WithBranchID(ctx, branchID.String())
			}

			if rawUser := strings.TrimSpace(r.Header.Get(userIDHeader)); rawUser != "" {
				userID, err := uuid.Parse(rawUser)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id").
						WithDetails(map[string]any{"header": userIDHeader}))
					return
				}
				ctx = WithUserID(ctx, userID.String())
				if logg != nil {
					ctx = logg.WithUserID(ctx, userID.String())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
