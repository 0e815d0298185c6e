package middleware

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Claims extends jwt.RegisteredClaims with the fields the accounts service
// puts in its tokens. This API only verifies identity – sign-in and account
// management live in the accounts service.
type Claims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// JWT returns an Echo middleware that validates the Authorization header
// token using the shared verification key and exposes the user id to
// handlers via c.Get("user_id").
func JWT(key []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get("Authorization")
			if token == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "missing authorization header")
			}

			claims := &Claims{}
			tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
				return key, nil
			})
			if err != nil {
				if err == jwt.ErrSignatureInvalid {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token signature")
				}
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			if !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if claims.UserID <= 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "token carries no user id")
			}

			c.Set("user_id", claims.UserID)
			return next(c)
		}
	}
}
