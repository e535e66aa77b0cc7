package review

import (
	"errors"
	"net/http"
	"strconv"

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

func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	if public != nil {
		public.GET("/resources/:id/reviews", h.ListByResource)
	}
	if protected != nil {
		protected.POST("/resources/:id/reviews", h.Create)
		protected.DELETE("/reviews/:id", h.Delete)
	}
}

// Create
// @Summary		Write a review
// @Description	Rating must be an integer from 1 to 5. The resource's average rating is refreshed in the same transaction.
// @Tags		Reviews
// @Security	BearerAuth
// @Param		id		path	int					true	"Resource ID"
// @Param		request	body	CreateReviewRequest	true	"rating, comment"
// @Success		201	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}	"Validation error"
// @Failure		404	{object}	map[string]interface{}	"Resource not found"
// @Router		/resources/{id}/reviews [POST]
func (h *Handler) Create(c *gin.Context) {
	resourceID, ok := pathID(c)
	if !ok {
		return
	}
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, validator.Describe(err))
		return
	}

	res, err := h.svc.Add(c.Request.Context(), c.GetInt64(middleware.ContextUserID), resourceID, *req.Rating, req.Comment)
	if err != nil {
		h.fail(c, err, "add review failed")
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// Delete
// @Summary		Delete a review
// @Description	Only the author may delete a review.
// @Tags		Reviews
// @Security	BearerAuth
// @Param		id	path	int	true	"Review ID"
// @Success		200	{object}	map[string]interface{}
// @Failure		401	{object}	map[string]interface{}	"Unauthorized"
// @Failure		404	{object}	map[string]interface{}	"Review not found"
// @Router		/reviews/{id} [DELETE]
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.svc.Delete(c.Request.Context(), c.GetInt64(middleware.ContextUserID), id)
	if err != nil {
		h.fail(c, err, "delete review failed")
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) ListByResource(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	items, err := h.svc.ListByResource(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "list reviews failed")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reviews": items})
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	var fields validator.FieldErrors
	switch {
	case errors.As(err, &fields):
		response.ValidationError(c, fields)
	case errors.Is(err, ErrResourceNotFound):
		response.NotFound(c, "Resource not found")
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "Review not found")
	case errors.Is(err, ErrUnauthorized):
		response.Unauthorized(c)
	default:
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
