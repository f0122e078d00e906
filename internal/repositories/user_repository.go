package repositories

import "notely/internal/models"

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(user *models.User) error
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByID(id string) (*models.User, error)
	// UpdateRefreshToken overwrites the stored refresh token for the user.
	// An empty token clears it (logout).
	UpdateRefreshToken(userID, token string) error
}
