package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/farellandr/confpass/internal/helpers"
	"github.com/farellandr/confpass/internal/middleware"
	"github.com/farellandr/confpass/internal/service"
)

const badgeSize = 256

type VerifyBadgeRequest struct {
	QRData string `json:"qr_data" binding:"required"`
	// CheckIn marks the attendee registered once the badge checks out.
	CheckIn bool `json:"check_in"`
}

// GetAttendeeBadge renders the attendee's badge as a PNG QR code.
func GetAttendeeBadge(c *gin.Context) {
	svc := middleware.GetAttendeeService(c)
	signer := middleware.GetBadgeSigner(c)
	if svc == nil || signer == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.MsgInternal)
		return
	}

	view, err := svc.GetAttendee(c.Request.Context(), c.Param("ref"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	png, err := qrcode.Encode(signer.Payload(view.Ref), qrcode.Medium, badgeSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func VerifyBadge(c *gin.Context) {
	svc := middleware.GetAttendeeService(c)
	signer := middleware.GetBadgeSigner(c)
	if svc == nil || signer == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, helpers.MsgInternal)
		return
	}

	var req VerifyBadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, helpers.MsgInvalidInput)
		return
	}

	ref, ok := signer.Verify(req.QRData)
	if !ok {
		helpers.RespondWithError(c, http.StatusForbidden, helpers.MsgInvalidBadge)
		return
	}

	ctx := c.Request.Context()
	view, err := svc.GetAttendee(ctx, ref)
	if err == nil && req.CheckIn && !view.Registered {
		registered := true
		view, err = svc.UpdateAttendee(ctx, ref, service.Patch{Registered: &registered}, false)
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"attendee": view,
	})
}
