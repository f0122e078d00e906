package repositories

import (
	"errors"
	"fmt"
	"strings"

	"notely/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// sortColumns is the allowlist of sortable note columns. The sort parameter
// comes straight from the query string and is never interpolated unchecked.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"title":      "title",
	// The web client historically sends the Mongo-era field names.
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// GORMNoteRepository is a GORM implementation of NoteRepository.
type GORMNoteRepository struct {
	db *gorm.DB
}

// NewGORMNoteRepository creates a new instance of GORMNoteRepository.
func NewGORMNoteRepository(db *gorm.DB) *GORMNoteRepository {
	return &GORMNoteRepository{
		db: db,
	}
}

// Create creates a new note in the database.
func (r *GORMNoteRepository) Create(note *models.Note) error {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	if note.Attachments == nil {
		note.Attachments = models.StringList{}
	}
	if err := r.db.Create(note).Error; err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

// GetByID retrieves a note by its ID, scoped to the owning user.
func (r *GORMNoteRepository) GetByID(id, userID string) (*models.Note, error) {
	var note models.Note
	if err := r.db.First(&note, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("note with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get note by ID %s: %w", id, err)
	}
	return &note, nil
}

// Update updates an existing note in the database.
func (r *GORMNoteRepository) Update(note *models.Note) error {
	res := r.db.Save(note)
	if res.Error != nil {
		return fmt.Errorf("failed to update note: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("note with ID %s: %w", note.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a note by its ID, scoped to the owning user.
func (r *GORMNoteRepository) Delete(id, userID string) error {
	res := r.db.Delete(&models.Note{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete note: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("note with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// List returns the page of notes matching the query along with the total
// match count. Search matches title or content case-insensitively.
func (r *GORMNoteRepository) List(query NoteQuery) ([]models.Note, int64, error) {
	tx := r.db.Model(&models.Note{}).Where("user_id = ?", query.UserID)

	if query.Search != "" {
		pattern := "%" + strings.ToLower(query.Search) + "%"
		tx = tx.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", pattern, pattern)
	}
	if query.Favourite != nil {
		tx = tx.Where("is_favourite = ?", *query.Favourite)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notes: %w", err)
	}

	column, ok := sortColumns[query.Sort]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(query.Order, "asc") {
		direction = "ASC"
	}

	var notes []models.Note
	err := tx.Order(column + " " + direction).
		Offset((query.Page - 1) * query.Limit).
		Limit(query.Limit).
		Find(&notes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, total, nil
}
