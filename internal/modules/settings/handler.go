package settings

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campusfinder/internal/middleware"
	"campusfinder/internal/pkg/logger"
	"campusfinder/internal/pkg/response"
	"campusfinder/internal/pkg/validator"
	"campusfinder/internal/storage"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.PUT("/settings/update", h.Update)
	protected.POST("/settings/upload-image", h.UploadAvatar)
	// older clients post the profile picture here
	protected.POST("/profilePicture", h.UploadAvatar)
}

// Update
// @Summary		Update account settings
// @Description	Partial update of name, email, password and notification preferences.
// @Tags		Settings
// @Security	BearerAuth
// @Param		request	body	UpdateRequest	true	"fields to change"
// @Success		200	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}	"Validation error or wrong current password"
// @Failure		409	{object}	map[string]interface{}	"Email already in use"
// @Router		/settings/update [PUT]
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, validator.Describe(err))
		return
	}

	res, err := h.svc.Update(c.Request.Context(), c.GetInt64(middleware.ContextUserID), req)
	if err != nil {
		h.fail(c, err, "settings update failed")
		return
	}

	msg := "Settings updated successfully"
	if !res.Changed {
		msg = "No changes to update"
	}
	response.Success(c, http.StatusOK, gin.H{"message": msg, "user": res.User})
}

// UploadAvatar
// @Summary		Upload profile picture
// @Description	Multipart field "image"; jpeg, png, gif or webp. Stored as a 200x200 JPEG.
// @Tags		Settings
// @Security	BearerAuth
// @Success		200	{object}	AvatarResult
// @Failure		400	{object}	map[string]interface{}	"Missing or invalid image"
// @Router		/settings/upload-image [POST]
func (h *Handler) UploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		response.ValidationError(c, map[string]string{"image": "required"})
		return
	}

	res, err := h.svc.UploadAvatar(c.Request.Context(), c.GetInt64(middleware.ContextUserID), fh)
	if err != nil {
		h.fail(c, err, "avatar upload failed")
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	var fields validator.FieldErrors
	switch {
	case errors.As(err, &fields):
		response.ValidationError(c, fields)
	case errors.Is(err, ErrUnauthorized):
		response.Unauthorized(c)
	case errors.Is(err, ErrEmailInUse):
		response.Error(c, http.StatusConflict, "EMAIL_EXISTS", "Email already in use")
	case errors.Is(err, ErrInvalidPassword):
		response.Error(c, http.StatusBadRequest, "INVALID_PASSWORD", "Current password is incorrect")
	default:
		if rule, ok := storage.UploadRule(err); ok {
			response.ValidationError(c, map[string]string{"image": rule})
			return
		}
		logger.FromContext(c.Request.Context()).Error().Err(err).Msg(msg)
		response.Internal(c)
	}
}
