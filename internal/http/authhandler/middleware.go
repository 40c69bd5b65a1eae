package authhandler

import (
	"net/http"
	"strings"

	"chatrelaygo/internal/services/identity"

	"github.com/gin-gonic/gin"
)

// UsernameKey is the gin context key holding the authenticated username.
const UsernameKey = "auth.username"

// Required verifies the "Authorization: Bearer <token>" header and stores the
// username in the gin context.
func Required(svc identity.IIdentityService) gin.HandlerFunc {
	return func(ginCtx *gin.Context) {
		header := ginCtx.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			ginCtx.AbortWithStatusJSON(http.StatusUnauthorized,
				&ErrorResponse{Error: "missing bearer token"})
			return
		}
		username, err := svc.VerifyToken(token)
		if err != nil {
			ginCtx.AbortWithStatusJSON(http.StatusUnauthorized,
				&ErrorResponse{Error: err.Error()})
			return
		}
		ginCtx.Set(UsernameKey, username)
		ginCtx.Next()
	}
}
