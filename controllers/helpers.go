package controllers

import (
	"net/http"
	"strconv"

	apperrors "github.com/dimz119/project-saeum/common/errors"
	"github.com/dimz119/project-saeum/middleware"
	"github.com/dimz119/project-saeum/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func parsePaginationParams(ctx *gin.Context) (int, int) {
	const MaxLimit = 100
	const DefaultPage = 1
	const DefaultLimit = 10

	page := ctx.DefaultQuery("page", "1")
	limit := ctx.DefaultQuery("limit", "10")

	pageInt := DefaultPage
	limitInt := DefaultLimit

	if p, err := strconv.Atoi(page); err == nil && p > 0 {
		pageInt = p
	}

	if l, err := strconv.Atoi(limit); err == nil && l > 0 {
		limitInt = l
		if limitInt > MaxLimit {
			limitInt = MaxLimit
		}
	}

	return pageInt, limitInt
}

// requireUser writes a 401 and returns false when no caller was resolved.
func requireUser(ctx *gin.Context) (string, bool) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		apperrors.Respond(ctx, apperrors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}

func caller(ctx *gin.Context) (services.Caller, bool) {
	userID, ok := requireUser(ctx)
	if !ok {
		return services.Caller{}, false
	}
	return services.Caller{UserID: userID, IsAdmin: middleware.IsAdmin(ctx)}, true
}

func parseIDParam(ctx *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		apperrors.Respond(ctx, apperrors.BadRequest(message))
		return uuid.Nil, false
	}
	return id, true
}

func bindError(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
}
