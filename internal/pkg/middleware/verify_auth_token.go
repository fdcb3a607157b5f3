package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/blockblockers/Deadblock-sub003/internal/pkg/reject"
	"github.com/blockblockers/Deadblock-sub003/internal/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	accessTokenRequired string = "error.token.required"
	accessTokenInvalid  string = "error.token.invalid"
)

// VerifyAuthToken checks the bearer credential issued by the external auth
// collaborator. Missing or invalid tokens fail fast with 401; no retry is
// meaningful for the caller.
func VerifyAuthToken(context *gin.Context) {
	authHeader := context.Request.Header.Get("Authorization")
	tokenValue := strings.TrimSpace(strings.ReplaceAll(authHeader, "Bearer", ""))
	if tokenValue == "" {
		log.Warn().Msg("Token missing: 401")
		context.AbortWithStatusJSON(
			http.StatusUnauthorized,
			reject.NewProblem().
				WithTitle("Missing access token").
				WithStatus(http.StatusUnauthorized).
				WithCode(accessTokenRequired).
				Build())
		return
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenValue, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(viper.GetString("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		log.Warn().Err(err).Msg("Error verifying token")
		context.AbortWithStatusJSON(
			http.StatusUnauthorized,
			reject.NewProblem().
				WithTitle("Cannot verify access token").
				WithStatus(http.StatusUnauthorized).
				WithCode(accessTokenInvalid).
				Build())
		return
	}

	utils.SetUserIdCtx(claims.Subject, context)
}
