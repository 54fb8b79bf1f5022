package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/lireddit/services"
	"github.com/cppla/lireddit/utils"
)

// respondError maps service errors onto the JSON envelope. Unknown errors are logged
// and reported as a bare 500 carrying serverCode.
func respondError(ctx *gin.Context, err error, serverCode int, op string) {
	var many services.ValidationErrors
	var one *services.ValidationError
	switch {
	case errors.As(err, &many):
		fields := make([]utils.FieldError, 0, len(many))
		for _, e := range many {
			fields = append(fields, utils.FieldError{Field: e.Field, Message: e.Message})
		}
		utils.ValidationErrors(ctx, 40001, "validation failed", fields)
	case errors.As(err, &one):
		utils.ValidationErrors(ctx, 40001, "validation failed", []utils.FieldError{{Field: one.Field, Message: one.Message}})
	case errors.Is(err, services.ErrUnauthorized):
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "not found")
	case errors.Is(err, services.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40901, "concurrent update, please retry")
	default:
		utils.Sugar.Errorw(op+" failed", "error", err, "request_id", ctx.GetString(utils.RequestIDKey))
		utils.Error(ctx, http.StatusInternalServerError, serverCode, op+" failed")
	}
}

// parseID reads a positive numeric path parameter.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(ctx.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		utils.ValidationErrors(ctx, 40002, "invalid id", []utils.FieldError{{Field: name, Message: "must be a positive integer"}})
		return 0, false
	}
	return uint(id), true
}
