package middleware

import (
	"errors"
	"strings"

	"notely/internal/apperrors"
	"notely/internal/repositories"
	"notely/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UserKey is the context key under which the authenticated user is stored.
const UserKey = "user"

// AuthRequired verifies the caller's access token and attaches the resolved
// user to the request context. The token is read from the accessToken cookie
// first and the Authorization header second.
func AuthRequired(authService *services.AuthService, userRepo repositories.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies("accessToken")
		if tokenString == "" {
			authHeader := c.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}
		if tokenString == "" {
			return apperrors.Unauthorized("Unauthorized access - No token provided")
		}

		claims, err := authService.ValidateAccessToken(tokenString)
		if err != nil {
			if errors.Is(err, services.ErrTokenExpired) {
				return apperrors.Unauthorized("Unauthorized access - Token expired")
			}
			return apperrors.Unauthorized("Unauthorized access - Invalid token")
		}

		userID, _ := claims["user_id"].(string)
		user, err := userRepo.GetByID(userID)
		if err != nil {
			return apperrors.Unauthorized("Unauthorized access - Invalid token")
		}

		c.Locals(UserKey, user)
		return c.Next()
	}
}
