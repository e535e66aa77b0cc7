package resource

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campusfinder/internal/middleware"
	"campusfinder/internal/pkg/logger"
	"campusfinder/internal/pkg/response"
	"campusfinder/internal/pkg/utils"
	"campusfinder/internal/pkg/validator"
	"campusfinder/internal/storage"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	if public != nil {
		public.GET("/resources", h.List)
		public.GET("/resources/:id", h.Get)
	}
	if protected != nil {
		protected.POST("/resources", h.Create)
		protected.PUT("/resources/:id", h.Update)
		protected.DELETE("/resources/:id", h.Delete)
	}
}

// List
// @Summary		List resources
// @Description	Newest first, with owner and reviews. Signed-in callers also get is_favorited.
// @Tags		Resources
// @Success		200	{object}	map[string]interface{}
// @Router		/resources [GET]
func (h *Handler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), c.GetInt64(middleware.ContextUserID))
	if err != nil {
		h.fail(c, err, "list resources failed")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"resources": items})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.service.Get(c.Request.Context(), id, c.GetInt64(middleware.ContextUserID))
	if err != nil {
		h.fail(c, err, "get resource failed")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"resource": res})
}

// Create
// @Summary		Create resource
// @Description	Accepts JSON or multipart/form-data with an optional "image" file.
// @Tags		Resources
// @Security	BearerAuth
// @Success		201	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}	"Validation error"
// @Failure		401	{object}	map[string]interface{}	"Unauthorized"
// @Router		/resources [POST]
func (h *Handler) Create(c *gin.Context) {
	in, ok := bindInput(c)
	if !ok {
		return
	}
	res, err := h.service.Create(c.Request.Context(), c.GetInt64(middleware.ContextUserID), in)
	if err != nil {
		h.fail(c, err, "create resource failed")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"resource": res})
}

// Update
// @Summary		Update resource
// @Description	Partial update; only the owner may call it.
// @Tags		Resources
// @Security	BearerAuth
// @Success		200	{object}	map[string]interface{}
// @Failure		401	{object}	map[string]interface{}	"Unauthorized"
// @Failure		404	{object}	map[string]interface{}	"Not found"
// @Router		/resources/{id} [PUT]
func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	in, ok := bindInput(c)
	if !ok {
		return
	}
	res, err := h.service.Update(c.Request.Context(), c.GetInt64(middleware.ContextUserID), id, in)
	if err != nil {
		h.fail(c, err, "update resource failed")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"resource": res})
}

// Delete
// @Summary		Delete resource
// @Description	Removes the resource with its reviews and favorites; only the owner may call it.
// @Tags		Resources
// @Security	BearerAuth
// @Router		/resources/{id} [DELETE]
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.GetInt64(middleware.ContextUserID), id); err != nil {
		h.fail(c, err, "delete resource failed")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Resource deleted"})
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	var fields validator.FieldErrors
	switch {
	case errors.As(err, &fields):
		response.ValidationError(c, fields)
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "Resource not found")
	case errors.Is(err, ErrUnauthorized):
		response.Unauthorized(c)
	default:
		if rule, ok := storage.UploadRule(err); ok {
			response.ValidationError(c, map[string]string{"image": rule})
			return
		}
		logger.FromContext(c.Request.Context()).Error().Err(err).Msg(msg)
		response.Internal(c)
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ValidationError(c, map[string]string{"id": "number"})
		return 0, false
	}
	return id, true
}

// bindInput reads either a JSON body or form fields plus an optional image.
func bindInput(c *gin.Context) (Input, bool) {
	var in Input
	if c.ContentType() == gin.MIMEJSON {
		if err := c.ShouldBindJSON(&in); err != nil {
			response.ValidationError(c, validator.Describe(err))
			return in, false
		}
		return in, true
	}

	in.Name = postForm(c, "name")
	in.Description = postForm(c, "description")
	in.Location = postForm(c, "location")
	in.Hours = postForm(c, "hours")
	in.Category = postForm(c, "category")

	if raw := postForm(c, "coordinates"); raw != nil {
		coords, err := utils.ParseCoordinates(*raw)
		if err != nil {
			response.ValidationError(c, map[string]string{"coordinates": "json"})
			return in, false
		}
		in.Coordinates = coords
		in.ClearCoordinates = coords == nil
	}

	fh, err := c.FormFile("image")
	switch {
	case err == nil:
		in.Image = fh
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		response.ValidationError(c, map[string]string{"image": "invalid"})
		return in, false
	}
	return in, true
}

func postForm(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &v
}
