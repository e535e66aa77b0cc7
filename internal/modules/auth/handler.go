package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campusfinder/internal/pkg/logger"
	"campusfinder/internal/pkg/response"
	"campusfinder/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	if public != nil {
		public.POST("/signup", h.Signup)
		public.POST("/login", h.Login)
	}
	if protected != nil {
		protected.GET("/session", h.Session)
	}
}

// Signup registers a new account.
// @Summary		Sign up
// @Description	Creates an account for an institutional email address. No session is started.
// @Tags		Auth
// @Param		request	body	SignupRequest	true	"email, password, name"
// @Success		201	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}	"Validation error"
// @Failure		409	{object}	map[string]interface{}	"User already exists"
// @Router		/signup [POST]
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, validator.Describe(err))
		return
	}

	user, err := h.service.Signup(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNonInstitutionalEmail):
			response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR",
				"An institutional email address is required", map[string]string{"email": "institution"})
		case errors.Is(err, ErrEmailAlreadyExists):
			response.Error(c, http.StatusConflict, "EMAIL_EXISTS", "User already exists")
		default:
			logger.FromContext(c.Request.Context()).Error().Err(err).Msg("signup failed")
			response.Internal(c)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    user,
	})
}

// Login
// @Summary		Log in
// @Tags		Auth
// @Param		request	body	LoginRequest	true	"email, password"
// @Success		200	{object}	map[string]interface{}	"Session token and user"
// @Failure		401	{object}	map[string]interface{}	"Invalid credentials"
// @Failure		503	{object}	map[string]interface{}	"Sessions unavailable"
// @Router		/login [POST]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, validator.Describe(err))
		return
	}

	session, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
		case errors.Is(err, ErrServiceUnavailable):
			response.Unavailable(c)
		default:
			logger.FromContext(c.Request.Context()).Error().Err(err).Msg("login failed")
			response.Internal(c)
		}
		return
	}

	response.Success(c, http.StatusOK, session)
}

func (h *Handler) Session(c *gin.Context) {
	user, err := h.service.CurrentUser(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.Unauthorized(c)
			return
		}
		logger.FromContext(c.Request.Context()).Error().Err(err).Msg("session lookup failed")
		response.Internal(c)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": user})
}
