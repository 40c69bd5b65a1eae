package chathandler

import (
	"net/http"

	"chatrelaygo/internal/http/authhandler"
	"chatrelaygo/internal/services/chat"
	"chatrelaygo/internal/services/identity"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc         chat.IChatService
	identitySvc identity.IIdentityService
}

func New(svc chat.IChatService, identitySvc identity.IIdentityService) *Handler {
	return &Handler{svc: svc, identitySvc: identitySvc}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/api/messages/:room", authhandler.Required(h.identitySvc), h.history)
}

// history returns the recent window for a room, oldest first.
func (h *Handler) history(ginCtx *gin.Context) {
	var q HistoryQuery
	if err := ginCtx.ShouldBindQuery(&q); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	msgs, err := h.svc.RecentByRoom(ginCtx.Request.Context(), ginCtx.Param("room"), q.Count)
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, msgs)
}
