package helpers

import (
	"github.com/gin-gonic/gin"
)

const (
	MsgAttendeeNotFound   = "Attendee not found"
	MsgNotTransferable    = "Attendee cannot be transferred"
	MsgEmailInUse         = "Email already in use"
	MsgTransferIncomplete = "Name and email are required for transfer"
	MsgInvalidInput       = "Invalid input. Please check your fields."
	MsgInternal           = "Internal server error"
	MsgUnauthorized       = "Unauthorized."
	MsgForbidden          = "Forbidden."
	MsgInvalidCredentials = "Invalid credentials."
	MsgInvalidBadge       = "Invalid badge."
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func RespondWithError(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error: message,
	})
}
