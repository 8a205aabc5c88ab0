package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/confpass/internal/helpers"
	"github.com/farellandr/confpass/internal/middleware"
	"github.com/farellandr/confpass/internal/store"
)

const maxPageLimit = 100

// ListAttendees pages through attendees, optionally filtered by ticket type
// and registration state.
func ListAttendees(c *gin.Context) {
	svc := middleware.GetAttendeeService(c)
	if svc == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.MsgInternal)
		return
	}

	pageNum, err := helpers.StringToInt(c.DefaultQuery("page", "1"))
	if err != nil || pageNum < 1 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid page number.")
		return
	}

	limitNum, err := helpers.StringToInt(c.DefaultQuery("limit", "20"))
	if err != nil || limitNum < 1 || limitNum > maxPageLimit {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid limit.")
		return
	}

	registered, err := helpers.ParseOptionalBool(c.Query("registered"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid registered filter.")
		return
	}

	attendees, total, err := svc.ListAttendees(c.Request.Context(), store.ListFilter{
		Type:       c.Query("type"),
		Registered: registered,
		Offset:     (pageNum - 1) * limitNum,
		Limit:      limitNum,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attendees":   attendees,
		"total":       total,
		"page":        pageNum,
		"limit":       limitNum,
		"total_pages": (total + int64(limitNum) - 1) / int64(limitNum),
	})
}
