package notification

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campusfinder/internal/middleware"
	"campusfinder/internal/pkg/logger"
	"campusfinder/internal/pkg/response"
	"campusfinder/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.POST("/notifications", h.Send)
}

// Send
// @Summary		Send an email notification
// @Description	Recipients who turned email notifications off are skipped.
// @Tags		Notifications
// @Security	BearerAuth
// @Param		request	body	SendRequest	true	"recipient"
// @Success		200	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}	"Validation error"
// @Failure		503	{object}	map[string]interface{}	"Mail delivery not configured"
// @Router		/notifications [POST]
func (h *Handler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, validator.Describe(err))
		return
	}

	res, err := h.svc.Send(c.Request.Context(), c.GetInt64(middleware.ContextUserID), req)
	var fields validator.FieldErrors
	switch {
	case err == nil:
	case errors.As(err, &fields):
		response.ValidationError(c, fields)
		return
	case errors.Is(err, ErrUnauthorized):
		response.Unauthorized(c)
		return
	case errors.Is(err, ErrNotConfigured):
		logger.FromContext(c.Request.Context()).Error().Err(err).Msg("cannot send notification")
		response.Unavailable(c)
		return
	default:
		logger.FromContext(c.Request.Context()).Error().Err(err).Msg("notification failed")
		response.Internal(c)
		return
	}

	message := "Email notification sent successfully"
	if !res.Sent {
		message = "Recipient has email notifications turned off"
	}
	response.Success(c, http.StatusOK, gin.H{"message": message, "sent": res.Sent, "skipped": res.Skipped})
}
