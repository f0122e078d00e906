package handlers

import (
	"fmt"
	"time"

	"notely/internal/apperrors"
	"notely/internal/middleware"
	"notely/internal/models"
	"notely/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes. authRequired guards
// the routes that need an authenticated caller.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/logout", authRequired, h.HandleLogout)
	authRoutes.Post("/refresh-token", h.HandleRefreshToken)
	authRoutes.Get("/current-user", authRequired, h.HandleCurrentUser)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.BadRequest("Invalid request body")
	}

	if err := h.validate.Struct(req); err != nil {
		return validationError(err)
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}
	if err := h.authService.RegisterUser(&user, req.ConfirmPassword); err != nil {
		return err
	}

	return respond(c, fiber.StatusCreated, user, "User Registered Successfully")
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	EmailOrUsername string `json:"emailOrUsername" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

// HandleLogin authenticates a user, sets the token cookies and returns the
// user along with the issued token pair.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.BadRequest("Invalid request body")
	}

	if err := h.validate.Struct(req); err != nil {
		return validationError(err)
	}

	user, pair, err := h.authService.LoginUser(req.EmailOrUsername, req.Password)
	if err != nil {
		return err
	}

	setTokenCookies(c, pair)
	return respond(c, fiber.StatusOK, fiber.Map{
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "User logged in successfully")
}

// HandleLogout clears the stored refresh token and both cookies.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	user := c.Locals(middleware.UserKey).(*models.User)
	if err := h.authService.Logout(user.ID); err != nil {
		return err
	}

	clearTokenCookies(c)
	return respond(c, fiber.StatusOK, fiber.Map{}, "User Logged Out!")
}

// RefreshRequest represents the request body for token rotation when the
// refresh token is not sent as a cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// HandleRefreshToken rotates the caller's token pair. The refresh token is
// taken from the refreshToken cookie or the request body.
func (h *AuthHandler) HandleRefreshToken(c *fiber.Ctx) error {
	presented := c.Cookies("refreshToken")
	if presented == "" {
		var req RefreshRequest
		if err := c.BodyParser(&req); err == nil {
			presented = req.RefreshToken
		}
	}

	_, pair, err := h.authService.RefreshTokens(presented)
	if err != nil {
		return err
	}

	setTokenCookies(c, pair)
	return respond(c, fiber.StatusOK, fiber.Map{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "Access token refreshed")
}

// HandleCurrentUser returns the authenticated caller.
func (h *AuthHandler) HandleCurrentUser(c *fiber.Ctx) error {
	user := c.Locals(middleware.UserKey).(*models.User)
	return respond(c, fiber.StatusOK, user, "User Fetched successfully!")
}

// validationError flattens validator errors into a single BadRequest message.
func validationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		e := validationErrors[0]
		return apperrors.BadRequest(fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag()))
	}
	return apperrors.BadRequest("Validation failed")
}

func setTokenCookies(c *fiber.Ctx, pair *services.TokenPair) {
	c.Cookie(&fiber.Cookie{
		Name:     "accessToken",
		Value:    pair.AccessToken,
		HTTPOnly: true,
		Secure:   true,
	})
	c.Cookie(&fiber.Cookie{
		Name:     "refreshToken",
		Value:    pair.RefreshToken,
		HTTPOnly: true,
		Secure:   true,
	})
}

func clearTokenCookies(c *fiber.Ctx) {
	expired := time.Now().Add(-time.Hour)
	c.Cookie(&fiber.Cookie{Name: "accessToken", Value: "", Expires: expired, HTTPOnly: true, Secure: true})
	c.Cookie(&fiber.Cookie{Name: "refreshToken", Value: "", Expires: expired, HTTPOnly: true, Secure: true})
}
