package repositories

import "notely/internal/models"

// NoteQuery describes a paginated, filtered listing of a user's notes.
// UserID is always set; every listing is scoped to its owner.
type NoteQuery struct {
	UserID    string
	Page      int
	Limit     int
	Sort      string // created_at, updated_at or title
	Order     string // asc or desc
	Search    string // case-insensitive substring on title or content
	Favourite *bool  // nil means no favourite filter
}

// NoteRepository defines the interface for note data access.
type NoteRepository interface {
	Create(note *models.Note) error
	// GetByID retrieves a note only if it belongs to userID.
	GetByID(id, userID string) (*models.Note, error)
	Update(note *models.Note) error
	Delete(id, userID string) error
	// List returns the matching page of notes and the total match count.
	List(query NoteQuery) ([]models.Note, int64, error)
}
