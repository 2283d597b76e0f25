package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openraise/escrow-backend/internal/apperr"
)

// Error renders a service error with the HTTP status matching its kind.
func Error(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindState:
		status = http.StatusConflict
	case apperr.KindAuthorization:
		status = http.StatusForbidden
	case apperr.KindTransfer:
		status = http.StatusBadGateway
	}

	body := gin.H{"error": err.Error()}
	if code := apperr.CodeOf(err); code != "" {
		body["code"] = code
	}
	c.JSON(status, body)
}
