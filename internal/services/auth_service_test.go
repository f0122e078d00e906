package services_test

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"notely/internal/apperrors"
	"notely/internal/models"
	"notely/internal/repositories"
	"notely/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(username string) (*models.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateRefreshToken(userID, token string) error {
	args := m.Called(userID, token)
	return args.Error(0)
}

func TestMain(m *testing.M) {
	log.SetOutput(os.Stdout)
	code := m.Run()
	os.Exit(code)
}

func testTokenConfig() services.TokenConfig {
	return services.TokenConfig{
		AccessSecret:  "test_access_secret",
		RefreshSecret: "test_refresh_secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	}
}

func TestAuthService_RegisterUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testTokenConfig())

	user := &models.User{
		Username: "testuser",
		Email:    "test@example.com",
		Password: "password123",
	}

	// Successful registration
	mockRepo.On("GetByUsername", user.Username).Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("GetByEmail", user.Email).Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(nil).Once()

	err := authService.RegisterUser(user, "password123")
	assert.NoError(t, err)
	// Password must be stored hashed
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	mockRepo.AssertExpectations(t)

	// Password mismatch
	err = authService.RegisterUser(&models.User{
		Username: "testuser",
		Email:    "test@example.com",
		Password: "password123",
	}, "different")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Passwords do not match")

	// Username already taken
	mockRepo.On("GetByUsername", "testuser").Return(&models.User{ID: "1"}, nil).Once()
	err = authService.RegisterUser(&models.User{
		Username: "testuser",
		Email:    "other@example.com",
		Password: "password123",
	}, "password123")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "User with same email or username exist")
	mockRepo.AssertExpectations(t)

	// Email already registered
	mockRepo.On("GetByUsername", "otheruser").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("GetByEmail", "test@example.com").Return(&models.User{ID: "1"}, nil).Once()
	err = authService.RegisterUser(&models.User{
		Username: "otheruser",
		Email:    "test@example.com",
		Password: "password123",
	}, "password123")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "User with same email or username exist")
	mockRepo.AssertExpectations(t)
}

func TestAuthService_LoginUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	cfg := testTokenConfig()
	authService := services.NewAuthService(mockRepo, cfg)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:       "user-123",
		Username: "testuser",
		Email:    "test@example.com",
		Password: string(hashedPassword),
	}

	// Successful login by username; the stored refresh token must match the
	// one returned to the caller.
	var storedRefresh string
	mockRepo.On("GetByEmail", "testuser").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("GetByUsername", "testuser").Return(user, nil).Once()
	mockRepo.On("UpdateRefreshToken", "user-123", mock.AnythingOfType("string")).Run(func(args mock.Arguments) {
		storedRefresh = args.String(1)
	}).Return(nil).Once()

	loggedIn, pair, err := authService.LoginUser("testuser", "password123")
	assert.NoError(t, err)
	assert.NotNil(t, pair)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, pair.RefreshToken, storedRefresh)
	assert.Equal(t, pair.RefreshToken, loggedIn.RefreshToken)

	// The access token must carry the user's identity
	parsed, err := jwt.Parse(pair.AccessToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.AccessSecret), nil
	})
	assert.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, "user-123", claims["user_id"])
	assert.Equal(t, "testuser", claims["username"])
	mockRepo.AssertExpectations(t)

	// Successful login by email
	mockRepo.On("GetByEmail", "test@example.com").Return(user, nil).Once()
	mockRepo.On("UpdateRefreshToken", "user-123", mock.AnythingOfType("string")).Return(nil).Once()
	_, pair, err = authService.LoginUser("test@example.com", "password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	mockRepo.AssertExpectations(t)

	// Wrong password
	mockRepo.On("GetByEmail", "testuser").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("GetByUsername", "testuser").Return(user, nil).Once()
	_, _, err = authService.LoginUser("testuser", "wrongpassword")
	assert.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperrors.From(err).StatusCode)
	mockRepo.AssertExpectations(t)

	// Unknown user
	mockRepo.On("GetByEmail", "nobody").Return(nil, fmt.Errorf("user with email nobody: %w", repositories.ErrNotFound)).Once()
	mockRepo.On("GetByUsername", "nobody").Return(nil, fmt.Errorf("user with username nobody: %w", repositories.ErrNotFound)).Once()
	_, _, err = authService.LoginUser("nobody", "password123")
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperrors.From(err).StatusCode)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateAccessToken(t *testing.T) {
	mockRepo := new(MockUserRepository)
	cfg := testTokenConfig()
	authService := services.NewAuthService(mockRepo, cfg)

	// Valid token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  "user-123",
		"username": "testuser",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	validTokenString, _ := token.SignedString([]byte(cfg.AccessSecret))

	claims, err := authService.ValidateAccessToken(validTokenString)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", claims["user_id"])

	// Garbage token
	_, err = authService.ValidateAccessToken("invalid.token.string")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrTokenExpired)

	// Token signed with the wrong secret
	wrongSecret, _ := token.SignedString([]byte("wrong_secret"))
	_, err = authService.ValidateAccessToken(wrongSecret)
	assert.Error(t, err)

	// Expired token is reported distinctly
	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-123",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(cfg.AccessSecret))
	_, err = authService.ValidateAccessToken(expiredTokenString)
	assert.ErrorIs(t, err, services.ErrTokenExpired)
}

func TestAuthService_RefreshTokens_Rotation(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testTokenConfig())

	user := &models.User{
		ID:       "user-123",
		Username: "testuser",
		Email:    "test@example.com",
	}

	// Issue an initial pair; the mock mirrors the store by updating the
	// user's RefreshToken field.
	mockRepo.On("UpdateRefreshToken", "user-123", mock.AnythingOfType("string")).Run(func(args mock.Arguments) {
		user.RefreshToken = args.String(1)
	}).Return(nil)
	mockRepo.On("GetByID", "user-123").Return(user, nil)

	pair, err := authService.GeneratePair(user)
	assert.NoError(t, err)
	firstRefresh := pair.RefreshToken

	// First rotation succeeds and issues a different refresh token
	_, rotated, err := authService.RefreshTokens(firstRefresh)
	assert.NoError(t, err)
	assert.NotEqual(t, firstRefresh, rotated.RefreshToken)
	assert.Equal(t, rotated.RefreshToken, user.RefreshToken)

	// Replaying the superseded token is rejected
	_, _, err = authService.RefreshTokens(firstRefresh)
	assert.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperrors.From(err).StatusCode)
	assert.Contains(t, err.Error(), "expired")

	// The rotated token still works
	_, _, err = authService.RefreshTokens(rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestAuthService_RefreshTokens_Failures(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testTokenConfig())

	// Missing token
	_, _, err := authService.RefreshTokens("")
	assert.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperrors.From(err).StatusCode)

	// Undecodable token
	_, _, err = authService.RefreshTokens("not.a.token")
	assert.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperrors.From(err).StatusCode)

	// Token resolves to a user that no longer exists
	mockRepo.On("GetByID", "ghost").Return(nil, repositories.ErrNotFound).Once()
	ghost := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "ghost",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	ghostToken, _ := ghost.SignedString([]byte("test_refresh_secret"))
	_, _, err = authService.RefreshTokens(ghostToken)
	assert.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperrors.From(err).StatusCode)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Logout(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testTokenConfig())

	mockRepo.On("UpdateRefreshToken", "user-123", "").Return(nil).Once()
	assert.NoError(t, authService.Logout("user-123"))
	mockRepo.AssertExpectations(t)
}
