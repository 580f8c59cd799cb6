package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "live-quiz-backend/internal/errors"
)

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
	Code  string `json:"code,omitempty" example:"SESSION_NOT_FOUND"`
}

type MessageResponse struct {
	Message string `json:"message" example:"operation successful"`
}

// respondError writes err as an ErrorResponse with the status of its
// AppError. Unknown errors are reported as internal errors.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	appErr := apperrors.As(err)
	if appErr.Status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", appErr.Code),
			zap.Error(err),
		)
	}
	c.JSON(appErr.Status, ErrorResponse{Error: appErr.Message, Code: appErr.Code})
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: apperrors.ErrCodeValidation})
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name, Code: apperrors.ErrCodeValidation})
		return 0, false
	}
	return uint(id), true
}
