package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/confpass/internal/helpers"
	"github.com/farellandr/confpass/internal/logging"
	"github.com/farellandr/confpass/internal/middleware"
	"github.com/farellandr/confpass/internal/models"
	"github.com/farellandr/confpass/internal/service"
)

// UpdateAttendeeRequest mirrors service.Patch. Absent fields stay nil and are
// left untouched. Email is only read by a transfer, which checks its format.
type UpdateAttendeeRequest struct {
	Name        *string             `json:"name"`
	Email       *string             `json:"email"`
	PhoneNumber *TextField          `json:"phone_number"`
	Preferences *models.Preferences `json:"preferences"`
	Registered  *bool               `json:"registered"`
	Affiliation *TextField          `json:"affiliation"`
	Transfer    bool                `json:"transfer"`
}

// TextField is a free-text column that also accepts a bare JSON number, as
// clients send phone numbers either way.
type TextField string

func (f *TextField) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] != '"' {
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&n); err != nil {
			return err
		}
		*f = TextField(n.String())
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = TextField(s)
	return nil
}

func (f *TextField) stringPtr() *string {
	if f == nil {
		return nil
	}
	s := string(*f)
	return &s
}

func (r UpdateAttendeeRequest) patch() service.Patch {
	return service.Patch{
		Name:        r.Name,
		Email:       r.Email,
		PhoneNumber: r.PhoneNumber.stringPtr(),
		Preferences: r.Preferences,
		Registered:  r.Registered,
		Affiliation: r.Affiliation.stringPtr(),
	}
}

func GetAttendee(c *gin.Context) {
	svc := middleware.GetAttendeeService(c)
	if svc == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.MsgInternal)
		return
	}

	view, err := svc.GetAttendee(c.Request.Context(), c.Param("ref"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func UpdateAttendee(c *gin.Context) {
	svc := middleware.GetAttendeeService(c)
	if svc == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.MsgInternal)
		return
	}

	var req UpdateAttendeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, helpers.MsgInvalidInput)
		return
	}

	view, err := svc.UpdateAttendee(c.Request.Context(), c.Param("ref"), req.patch(), req.Transfer)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"obj":     view,
	})
}

// respondServiceError maps service errors to responses. Anything not
// recognised is logged and answered with an opaque 500.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAttendeeNotFound):
		helpers.RespondWithError(c, http.StatusNotFound, helpers.MsgAttendeeNotFound)
	case errors.Is(err, service.ErrNotTransferable):
		helpers.RespondWithError(c, http.StatusBadRequest, helpers.MsgNotTransferable)
	case errors.Is(err, service.ErrEmailInUse):
		helpers.RespondWithError(c, http.StatusBadRequest, helpers.MsgEmailInUse)
	case errors.Is(err, service.ErrTransferIncomplete):
		helpers.RespondWithError(c, http.StatusBadRequest, helpers.MsgTransferIncomplete)
	case errors.Is(err, service.ErrInvalidEmail):
		helpers.RespondWithError(c, http.StatusBadRequest, helpers.MsgInvalidInput)
	default:
		logging.FromContext(c.Request.Context()).Error("attendee request failed",
			"method", c.Request.Method,
			"ref", c.Param("ref"),
			"error", err,
		)
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.MsgInternal)
	}
}
