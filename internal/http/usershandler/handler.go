package usershandler

import (
	"net/http"

	"chatrelaygo/internal/http/authhandler"
	"chatrelaygo/internal/services/identity"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc identity.IIdentityService
}

func New(svc identity.IIdentityService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	auth := authhandler.Required(h.svc)
	r.GET("/api/users", auth, h.list)
	r.GET("/api/users/me", auth, h.me)
}

// list returns every registered username except the caller's: the contacts
// list the client builds its room page from.
func (h *Handler) list(ginCtx *gin.Context) {
	caller := ginCtx.GetString(authhandler.UsernameKey)

	usernames, err := h.svc.ListUsernames(ginCtx.Request.Context(), caller)
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, usernames)
}

func (h *Handler) me(ginCtx *gin.Context) {
	ginCtx.JSON(http.StatusOK, &MeResponse{
		Username: ginCtx.GetString(authhandler.UsernameKey),
	})
}
