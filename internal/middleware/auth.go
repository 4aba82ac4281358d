package middleware

import (
	"strings"

	"github.com/suteetoe/leasedesk/internal/apperror"
	"github.com/suteetoe/leasedesk/pkg/jwtutil"
	"github.com/suteetoe/leasedesk/pkg/logger"
	"github.com/suteetoe/leasedesk/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware verifies the bearer token and stores the acting user
func AuthMiddleware(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)
			prometheus.AuthAttemptsCounter.Inc()

			tokenString := c.Request().Header.Get(echo.HeaderAuthorization)
			if tokenString == "" {
				log.Warn("Missing authorization token")
				prometheus.RecordAuthError("missing_token")
				return apperror.Unauthorized()
			}

			// Remove "Bearer " prefix if present
			if len(tokenString) > 7 && strings.ToUpper(tokenString[0:7]) == "BEARER " {
				tokenString = tokenString[7:]
			}

			claims, err := jwtUtil.ValidateToken(tokenString)
			if err != nil {
				log.Warn("Invalid token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return apperror.Unauthorized()
			}

			c.Set("user_id", claims.UserID)
			c.Set("email", claims.Email)
			c.Set("role", claims.Role)

			logger.Bind(c, log.With(
				zap.Uint("user_id", claims.UserID),
				zap.String("role", claims.Role),
			))

			return next(c)
		}
	}
}

// RequireRole rejects callers whose token role is not one of roles
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			for _, r := range roles {
				if strings.EqualFold(r, role) {
					return next(c)
				}
			}
			logger.FromContext(c).Warn("Role not permitted", zap.String("role", role))
			return apperror.Forbidden("insufficient role")
		}
	}
}
