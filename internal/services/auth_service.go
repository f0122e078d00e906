package services

import (
	"errors"
	"fmt"
	"time"

	"notely/internal/apperrors"
	"notely/internal/models"
	"notely/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// TokenPair holds a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenConfig holds the signing secrets and lifetimes for both tokens.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// AuthService handles registration, login and the token lifecycle.
type AuthService struct {
	userRepo      repositories.UserRepository
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewAuthService creates a new AuthService. Zero TTLs fall back to 15 minutes
// for access tokens and 7 days for refresh tokens.
func NewAuthService(userRepo repositories.UserRepository, cfg TokenConfig) *AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		userRepo:      userRepo,
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
	}
}

// RegisterUser registers a new user, hashes their password, and saves them.
func (s *AuthService) RegisterUser(user *models.User, confirmPassword string) error {
	if user.Username == "" || user.Email == "" || user.Password == "" || confirmPassword == "" {
		return apperrors.BadRequest("All fields are required!")
	}
	if user.Password != confirmPassword {
		return apperrors.BadRequest("Passwords do not match")
	}
	if len(user.Username) < 3 {
		return apperrors.BadRequest("Username must be at least 3 characters")
	}

	if existing, err := s.userRepo.GetByUsername(user.Username); err == nil && existing != nil {
		return apperrors.BadRequest("User with same email or username exist")
	}
	if existing, err := s.userRepo.GetByEmail(user.Email); err == nil && existing != nil {
		return apperrors.BadRequest("User with same email or username exist")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal("Something went wrong while registering the user", err)
	}
	user.Password = string(hashedPassword)

	if err := s.userRepo.Create(user); err != nil {
		return apperrors.Internal("Something went wrong while registering the user", err)
	}
	return nil
}

// LoginUser authenticates by email or username and issues a token pair.
// The refresh token is persisted on the user, replacing any prior session.
func (s *AuthService) LoginUser(emailOrUsername, password string) (*models.User, *TokenPair, error) {
	if emailOrUsername == "" || password == "" {
		return nil, nil, apperrors.BadRequest("All fields are required!")
	}

	user, err := s.userRepo.GetByEmail(emailOrUsername)
	if err != nil {
		user, err = s.userRepo.GetByUsername(emailOrUsername)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, apperrors.NotFound("User does not exist!")
		}
		return nil, nil, apperrors.Internal("Failed to look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil, apperrors.Unauthorized("Password you entered is incorrect")
	}

	pair, err := s.GeneratePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// GeneratePair issues an access/refresh token pair for the user and stores
// the refresh token on the user record, overwriting any previous value.
func (s *AuthService) GeneratePair(user *models.User) (*TokenPair, error) {
	now := time.Now()

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      now.Add(s.accessTTL).Unix(),
		"iat":      now.Unix(),
	})
	access, err := accessToken.SignedString(s.accessSecret)
	if err != nil {
		return nil, apperrors.Internal("Something went wrong while generating access and refresh token", err)
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"exp":     now.Add(s.refreshTTL).Unix(),
		"iat":     now.Unix(),
	})
	refresh, err := refreshToken.SignedString(s.refreshSecret)
	if err != nil {
		return nil, apperrors.Internal("Something went wrong while generating access and refresh token", err)
	}

	if err := s.userRepo.UpdateRefreshToken(user.ID, refresh); err != nil {
		return nil, apperrors.Internal("Something went wrong while generating access and refresh token", err)
	}
	user.RefreshToken = refresh

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ValidateAccessToken parses and validates an access token, returning its
// claims. Expired tokens are reported distinctly from malformed ones.
func (s *AuthService) ValidateAccessToken(tokenString string) (jwt.MapClaims, error) {
	return s.validateToken(tokenString, s.accessSecret)
}

// RefreshTokens rotates a refresh token: the presented token must decode,
// resolve to an existing user and match the stored value. Reuse of a
// superseded token is rejected.
func (s *AuthService) RefreshTokens(presented string) (*models.User, *TokenPair, error) {
	if presented == "" {
		return nil, nil, apperrors.Unauthorized("Unauthorized request")
	}

	claims, err := s.validateToken(presented, s.refreshSecret)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("Invalid refresh token")
	}

	userID, _ := claims["user_id"].(string)
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("Invalid refresh token")
	}

	if user.RefreshToken == "" || user.RefreshToken != presented {
		return nil, nil, apperrors.Unauthorized("Refresh token is expired or already used")
	}

	pair, err := s.GeneratePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Logout clears the stored refresh token, ending the user's session.
func (s *AuthService) Logout(userID string) error {
	if err := s.userRepo.UpdateRefreshToken(userID, ""); err != nil {
		return apperrors.Internal("Failed to log out", err)
	}
	return nil
}

// ErrTokenExpired marks a structurally valid but expired token.
var ErrTokenExpired = errors.New("token is expired")

func (s *AuthService) validateToken(tokenString string, secret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
