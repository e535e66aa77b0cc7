package favorite

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campusfinder/internal/domain"
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
	protected.POST("/resources/:id/favorite", h.Favorite)
	protected.DELETE("/resources/:id/favorite", h.Unfavorite)
	protected.POST("/favorites", h.Apply)
	protected.GET("/favorites", h.ListMine)
}

// Favorite
// @Summary		Favorite a resource
// @Description	Idempotent; a second call answers status "already_favorited" and changes nothing.
// @Tags		Favorites
// @Security	BearerAuth
// @Param		id	path	int	true	"Resource ID"
// @Success		200	{object}	domain.FavoriteResult
// @Failure		404	{object}	map[string]interface{}	"Resource not found"
// @Router		/resources/{id}/favorite [POST]
func (h *Handler) Favorite(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.svc.Favorite(c.Request.Context(), c.GetInt64(middleware.ContextUserID), id)
	h.respond(c, res, err)
}

// Unfavorite
// @Summary		Unfavorite a resource
// @Tags		Favorites
// @Security	BearerAuth
// @Param		id	path	int	true	"Resource ID"
// @Success		200	{object}	domain.FavoriteResult
// @Router		/resources/{id}/favorite [DELETE]
func (h *Handler) Unfavorite(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.svc.Unfavorite(c.Request.Context(), c.GetInt64(middleware.ContextUserID), id)
	h.respond(c, res, err)
}

// Apply
// @Summary		Favorite or unfavorite by action flag
// @Tags		Favorites
// @Security	BearerAuth
// @Param		id		query	int		true	"Resource ID"
// @Param		action	query	string	true	"favorite or unfavorite"
// @Success		200	{object}	domain.FavoriteResult
// @Router		/favorites [POST]
func (h *Handler) Apply(c *gin.Context) {
	var q ActionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, validator.Describe(err))
		return
	}
	res, err := h.svc.Apply(c.Request.Context(), c.GetInt64(middleware.ContextUserID), q.ID, q.Action)
	h.respond(c, res, err)
}

func (h *Handler) ListMine(c *gin.Context) {
	items, err := h.svc.ListMine(c.Request.Context(), c.GetInt64(middleware.ContextUserID))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"resources": items})
}

func (h *Handler) respond(c *gin.Context, res *domain.FavoriteResult, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) fail(c *gin.Context, err error) {
	var fields validator.FieldErrors
	switch {
	case errors.As(err, &fields):
		response.ValidationError(c, fields)
	case errors.Is(err, ErrResourceNotFound):
		response.NotFound(c, "Resource not found")
	case errors.Is(err, ErrUnauthorized):
		response.Unauthorized(c)
	default:
		logger.FromContext(c.Request.Context()).Error().Err(err).Msg("favorite request failed")
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
