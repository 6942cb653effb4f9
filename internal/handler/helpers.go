package handler

import (
	"net/http"

	"invoicely/internal/service"
	"invoicely/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// currentUserID reads the authenticated user id set by the auth
// middleware. Aborting with 401 here should be unreachable behind
// RequireAuth but guards direct misuse.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return uuid.Nil, false
	}
	idStr, ok := raw.(string)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid User ID format"))
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid User ID format"))
		return uuid.Nil, false
	}
	return userID, true
}

// abortWithError maps the service error taxonomy onto HTTP status codes
// and writes the standard envelope.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case service.IsKind(err, service.KindValidation), service.IsKind(err, service.KindUpload):
		status = http.StatusBadRequest
	case service.IsKind(err, service.KindNotFound):
		status = http.StatusNotFound
	case service.IsKind(err, service.KindConflict):
		status = http.StatusConflict
	case service.IsKind(err, service.KindPayment):
		status = http.StatusBadGateway
	}
	c.JSON(status, response.Error(status, err.Error()))
}
