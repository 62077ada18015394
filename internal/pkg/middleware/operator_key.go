package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/reject"
	"github.com/rs/zerolog/log"
)

const (
	operatorKeyHeader = "X-Operator-Key"

	operatorKeyRequired string = "error.operator-key.required"
	operatorKeyInvalid  string = "error.operator-key.invalid"
)

// RequireOperatorKey guards operator-only routes. An empty key leaves them open,
// which is how local emulator deployments run.
func RequireOperatorKey(key string) gin.HandlerFunc {
	return func(context *gin.Context) {
		if key == "" {
			return
		}

		provided := strings.TrimSpace(context.Request.Header.Get(operatorKeyHeader))
		if provided == "" {
			log.Warn().Msg("Operator key missing: 401")
			context.AbortWithStatusJSON(
				http.StatusUnauthorized,
				reject.NewProblem().
					WithTitle("Missing operator key").
					WithStatus(http.StatusUnauthorized).
					WithCode(operatorKeyRequired).
					WithPath(context.Request.URL.Path).
					Build())
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			log.Warn().Msg("Operator key rejected: 403")
			context.AbortWithStatusJSON(
				http.StatusForbidden,
				reject.NewProblem().
					WithTitle("Cannot verify operator key").
					WithStatus(http.StatusForbidden).
					WithCode(operatorKeyInvalid).
					WithPath(context.Request.URL.Path).
					Build())
			return
		}
	}
}
