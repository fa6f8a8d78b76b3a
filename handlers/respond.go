package handlers

import (
	"github.com/gin-gonic/gin"

	"quickchat/service"
	"quickchat/utils"
)

// respondServiceError translates a service-layer error into the HTTP
// envelope. Anything untyped is a 500 with a generic message; internals are
// never leaked past the message string.
func respondServiceError(c *gin.Context, err error) {
	se, ok := service.AsServiceError(err)
	if !ok {
		utils.InternalError(c, "unexpected error")
		return
	}

	switch se.Class {
	case service.ClassNotFound:
		utils.NotFound(c, se.Message)
	case service.ClassConflict:
		utils.Conflict(c, se.Message)
	case service.ClassForbidden:
		utils.Forbidden(c, se.Message)
	case service.ClassValidation:
		utils.BadRequest(c, se.Message)
	default:
		utils.InternalError(c, se.Message)
	}
}
