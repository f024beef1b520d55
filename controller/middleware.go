package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/JLAD75/fileManagerRAG/auth"
	"github.com/JLAD75/fileManagerRAG/models"
)

// userIDKey is the gin context key the auth middleware stores the caller's
// user ID under.
const userIDKey = "userID"

// AuthRequired validates the Bearer token and stores the caller's identity
// in the request context. Requests without a valid token never reach the
// handlers behind it.
func AuthRequired(adapter *auth.Adapter) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Message: "No token provided"})
			return
		}

		claims, err := adapter.ParseToken(token)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Invalid token"})
			return
		}

		ctx.Set(userIDKey, claims.UserID)
		ctx.Next()
	}
}

// currentUserID reads the identity set by AuthRequired.
func currentUserID(ctx *gin.Context) string {
	return ctx.GetString(userIDKey)
}

// CORS allows the browser front end to call the API from another origin.
func CORS() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Header("Access-Control-Allow-Origin", "*")
		ctx.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	}
}
