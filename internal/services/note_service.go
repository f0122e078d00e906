package services

import (
	"errors"
	"log"
	"math"
	"os"

	"notely/internal/apperrors"
	"notely/internal/models"
	"notely/internal/repositories"
	"notely/pkg/cloudinary"
)

// ObjectStorage is the external object store the attachment manager talks to.
type ObjectStorage interface {
	Upload(localPath string) (string, error)
	Destroy(publicID string) error
}

// EventPublisher publishes note lifecycle events to the message broker.
type EventPublisher interface {
	PublishNoteEvent(event string, payload map[string]interface{}) error
}

// NoteList is the paginated result envelope for note listings.
type NoteList struct {
	TotalNotes  int64         `json:"totalNotes"`
	CurrentPage int           `json:"currentPage"`
	TotalPages  int           `json:"totalPages"`
	Notes       []models.Note `json:"notes"`
}

// NoteService handles business logic for notes: listing, CRUD, favourites
// and attachment management. Every operation is scoped to the calling user.
type NoteService struct {
	noteRepo repositories.NoteRepository
	storage  ObjectStorage
	events   EventPublisher
}

// NewNoteService creates a new NoteService. events may be nil when no broker
// is configured; event publication is then skipped.
func NewNoteService(noteRepo repositories.NoteRepository, storage ObjectStorage, events EventPublisher) *NoteService {
	return &NoteService{
		noteRepo: noteRepo,
		storage:  storage,
		events:   events,
	}
}

// ListNotes returns the page of the user's notes matching the query, with
// paging metadata. An empty page is a valid result, not an error.
func (s *NoteService) ListNotes(query repositories.NoteQuery) (*NoteList, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = 10
	}
	if query.Sort == "" {
		query.Sort = "created_at"
	}
	if query.Order == "" {
		query.Order = "desc"
	}

	notes, total, err := s.noteRepo.List(query)
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch notes", err)
	}
	if notes == nil {
		notes = []models.Note{}
	}

	return &NoteList{
		TotalNotes:  total,
		CurrentPage: query.Page,
		TotalPages:  int(math.Ceil(float64(total) / float64(query.Limit))),
		Notes:       notes,
	}, nil
}

// CreateNote creates a note for the user, uploading up to three attachment
// files to the object store first. Each local temp file is removed whether
// its upload succeeds or fails. Any upload failure aborts the whole request.
func (s *NoteService) CreateNote(userID, title, content string, isVoiceNote bool, attachmentPaths []string) (*models.Note, error) {
	if title == "" {
		return nil, apperrors.BadRequest("Title is required!")
	}
	if len(attachmentPaths) > models.MaxAttachments {
		return nil, apperrors.BadRequest("A note can have at most 3 attachments")
	}

	attachments := models.StringList{}
	for _, localPath := range attachmentPaths {
		url, err := s.uploadAndRemove(localPath)
		if err != nil {
			return nil, apperrors.Upstream("Failed to upload attachments.", err)
		}
		attachments = append(attachments, url)
	}

	note := &models.Note{
		UserID:      userID,
		Title:       title,
		Content:     content,
		Attachments: attachments,
		IsVoiceNote: isVoiceNote,
	}
	if err := s.noteRepo.Create(note); err != nil {
		return nil, apperrors.Internal("Failed to create note", err)
	}

	s.publish("note.created", note)
	return note, nil
}

// GetNote fetches one of the user's notes by ID.
func (s *NoteService) GetNote(id, userID string) (*models.Note, error) {
	note, err := s.noteRepo.GetByID(id, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("Note not found")
		}
		return nil, apperrors.Internal("Failed to fetch note", err)
	}
	return note, nil
}

// UpdateNote updates the note's title and/or content and optionally uploads
// and appends a single attachment, subject to the attachment cap.
func (s *NoteService) UpdateNote(id, userID, title, content, attachmentPath string) (*models.Note, error) {
	if title == "" && content == "" && attachmentPath == "" {
		return nil, apperrors.BadRequest("Please provide either title or content")
	}

	note, err := s.GetNote(id, userID)
	if err != nil {
		return nil, err
	}

	if attachmentPath != "" {
		if len(note.Attachments) >= models.MaxAttachments {
			return nil, apperrors.BadRequest("A note can have at most 3 attachments")
		}
		url, uploadErr := s.uploadAndRemove(attachmentPath)
		if uploadErr != nil {
			return nil, apperrors.Upstream("Error during file upload.", uploadErr)
		}
		note.Attachments = append(note.Attachments, url)
	}

	if title != "" {
		note.Title = title
	}
	if content != "" {
		note.Content = content
	}

	if err := s.noteRepo.Update(note); err != nil {
		return nil, apperrors.Internal("Failed to update note", err)
	}
	return note, nil
}

// DeleteNote removes every attachment from the object store and then deletes
// the note. A failure on any attachment removal aborts the deletion and the
// note record is kept.
func (s *NoteService) DeleteNote(id, userID string) error {
	note, err := s.GetNote(id, userID)
	if err != nil {
		return err
	}

	for _, locator := range note.Attachments {
		if err := s.storage.Destroy(cloudinary.PublicIDFromURL(locator)); err != nil {
			return apperrors.Upstream("Failed to delete image", err)
		}
	}

	if err := s.noteRepo.Delete(id, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("Note not found")
		}
		return apperrors.Internal("Failed to delete note", err)
	}

	s.publish("note.deleted", note)
	return nil
}

// RemoveAttachment deletes a single attachment from the object store and
// drops its locator from the note.
func (s *NoteService) RemoveAttachment(id, userID, attachmentURL string) (*models.Note, error) {
	note, err := s.GetNote(id, userID)
	if err != nil {
		return nil, err
	}

	index := -1
	for i, locator := range note.Attachments {
		if locator == attachmentURL {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, apperrors.NotFound("Attachment not found on note")
	}

	if err := s.storage.Destroy(cloudinary.PublicIDFromURL(attachmentURL)); err != nil {
		return nil, apperrors.Upstream("Failed to delete image", err)
	}

	note.Attachments = append(note.Attachments[:index], note.Attachments[index+1:]...)
	if err := s.noteRepo.Update(note); err != nil {
		return nil, apperrors.Internal("Failed to update note", err)
	}
	return note, nil
}

// ToggleFavourite flips the note's favourite flag and returns the updated note.
func (s *NoteService) ToggleFavourite(id, userID string) (*models.Note, error) {
	note, err := s.GetNote(id, userID)
	if err != nil {
		return nil, err
	}

	note.IsFavourite = !note.IsFavourite
	if err := s.noteRepo.Update(note); err != nil {
		return nil, apperrors.Internal("Failed to update note", err)
	}
	return note, nil
}

// uploadAndRemove uploads a local temp file to the object store and removes
// the temp file on both success and failure.
func (s *NoteService) uploadAndRemove(localPath string) (string, error) {
	url, err := s.storage.Upload(localPath)
	if removeErr := os.Remove(localPath); removeErr != nil && !os.IsNotExist(removeErr) {
		log.Printf("Failed to remove temp file %s: %v", localPath, removeErr)
	}
	return url, err
}

func (s *NoteService) publish(event string, note *models.Note) {
	if s.events == nil {
		return
	}
	payload := map[string]interface{}{
		"noteID": note.ID,
		"userID": note.UserID,
		"title":  note.Title,
	}
	if err := s.events.PublishNoteEvent(event, payload); err != nil {
		log.Printf("Warning: Failed to publish %s event for note %s: %v", event, note.ID, err)
	}
}
