package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/breeew/otterly-api/internal/core"
	v1 "github.com/breeew/otterly-api/internal/logic/v1"
	"github.com/breeew/otterly-api/internal/response"
	"github.com/breeew/otterly-api/pkg/errors"
	"github.com/breeew/otterly-api/pkg/i18n"
)

func I18n() gin.HandlerFunc {
	var allowList []string
	for k := range i18n.ALLOW_LANG {
		allowList = append(allowList, k)
	}
	l := i18n.NewLocalizer(allowList...)

	return response.ProvideResponseLocalizer(l)
}

const (
	AUTH_TOKEN_HEADER_KEY = "X-Authorization"
	BEARER_PREFIX         = "Bearer "
)

func tokenFromRequest(c *gin.Context) string {
	if token := c.GetHeader(AUTH_TOKEN_HEADER_KEY); token != "" {
		return token
	}
	auth := c.GetHeader("Authorization")
	if len(auth) > len(BEARER_PREFIX) && strings.EqualFold(auth[:len(BEARER_PREFIX)], BEARER_PREFIX) {
		return strings.TrimSpace(auth[len(BEARER_PREFIX):])
	}
	return ""
}

// Authorization requires a valid session token and binds its claims to the request.
func Authorization(core *core.Core) gin.HandlerFunc {
	tracePrefix := "middleware.Authorization"
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			response.APIError(c, errors.New(tracePrefix+".tokenFromRequest", i18n.ERROR_UNAUTHORIZED, nil).Code(http.StatusUnauthorized))
			return
		}

		claims, err := v1.NewAuthLogic(c, core).ParseSessionToken(token)
		if err != nil {
			response.APIError(c, errors.Trace(tracePrefix, err))
			return
		}

		c.Set(v1.TOKEN_CONTEXT_KEY, *claims)
	}
}

func Cors(c *gin.Context) {
	method := c.Request.Method
	origin := c.Request.Header.Get("Origin")
	if origin != "" {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Accept-Language, Authorization, X-Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Length, Access-Control-Allow-Origin, Access-Control-Allow-Headers, Cache-Control, Content-Language, Content-Type, X-Request-Id")
		c.Header("Access-Control-Allow-Credentials", "true")
	}
	if method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}

// UseLimit allows `ratelimit` calls per minute for every key genKeyFunc yields.
func UseLimit(core *core.Core, operation string, ratelimit int, genKeyFunc func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !core.UseLimiter(genKeyFunc(c), operation, ratelimit).Allow() {
			response.APIError(c, errors.New("middleware.limiter", i18n.ERROR_TOO_MANY_REQUESTS, nil).Code(http.StatusTooManyRequests))
		}
	}
}
