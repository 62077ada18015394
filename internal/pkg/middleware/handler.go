package middleware

import (
	"github.com/gin-gonic/gin"
)

func RegisterGlobalMiddleware(router *gin.Engine, allowedOrigins []string) {
	router.Use(gin.Recovery(), RequestLogger(), CORS(allowedOrigins))
}
