package authhandler

import (
	"errors"
	"net/http"

	"chatrelaygo/internal/services/identity"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc identity.IIdentityService
}

func New(svc identity.IIdentityService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/api/auth/register", h.register)
	r.POST("/api/auth/login", h.login)
}

func (h *Handler) register(ginCtx *gin.Context) {
	var body RegisterBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	err := h.svc.Register(ginCtx.Request.Context(), body.Username, body.Password)
	switch {
	case errors.Is(err, identity.ErrUsernameTaken),
		errors.Is(err, identity.ErrMissingCredentials):
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, &RegisteredResponse{Message: "user registered"})
}

func (h *Handler) login(ginCtx *gin.Context) {
	var body LoginBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	dto, err := h.svc.Login(ginCtx.Request.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			ginCtx.JSON(http.StatusUnauthorized, &ErrorResponse{Error: err.Error()})
			return
		}
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, dto)
}
