package handlers

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"

	"notely/internal/apperrors"
	"notely/internal/middleware"
	"notely/internal/models"
	"notely/internal/repositories"
	"notely/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// NoteHandler handles HTTP requests for notes.
type NoteHandler struct {
	noteService *services.NoteService
	tempDir     string
}

// NewNoteHandler creates a new NoteHandler. Uploaded files are spooled to
// tempDir before being pushed to the object store.
func NewNoteHandler(noteService *services.NoteService, tempDir string) *NoteHandler {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &NoteHandler{
		noteService: noteService,
		tempDir:     tempDir,
	}
}

// RegisterRoutes registers the note routes. All of them require auth.
func (h *NoteHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	noteRoutes := router.Group("/notes", authRequired)
	noteRoutes.Get("/", h.HandleGetAllNotes)
	noteRoutes.Post("/", h.HandleCreateNote)
	noteRoutes.Get("/:noteId", h.HandleGetNoteByID)
	noteRoutes.Patch("/:noteId", h.HandleUpdateNote)
	noteRoutes.Delete("/:noteId/attachment", h.HandleRemoveAttachment)
	noteRoutes.Delete("/:noteId", h.HandleDeleteNote)
	noteRoutes.Patch("/toggle/favourite/:noteId", h.HandleToggleFavourite)
}

// HandleGetAllNotes returns a paginated, filtered listing of the caller's notes.
func (h *NoteHandler) HandleGetAllNotes(c *fiber.Ctx) error {
	user := c.Locals(middleware.UserKey).(*models.User)

	query := repositories.NoteQuery{
		UserID: user.ID,
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 10),
		Sort:   c.Query("sort", "created_at"),
		Order:  c.Query("order", "desc"),
		Search: c.Query("search"),
	}
	if favStr := c.Query("favourite"); favStr != "" {
		fav, err := strconv.ParseBool(favStr)
		if err != nil {
			return apperrors.BadRequest("favourite must be true or false")
		}
		query.Favourite = &fav
	}

	list, err := h.noteService.ListNotes(query)
	if err != nil {
		return err
	}

	message := "Notes fetched successfully"
	if len(list.Notes) == 0 {
		message = "No notes found"
	}
	return respond(c, fiber.StatusOK, list, message)
}

// HandleCreateNote creates a note from a multipart form: title, content,
// isVoiceNote and up to three attachments files.
func (h *NoteHandler) HandleCreateNote(c *fiber.Ctx) error {
	user := c.Locals(middleware.UserKey).(*models.User)

	title := c.FormValue("title")
	content := c.FormValue("content")
	isVoiceNote, _ := strconv.ParseBool(c.FormValue("isVoiceNote"))

	var fileHeaders []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		fileHeaders = form.File["attachments"]
	}
	if len(fileHeaders) > models.MaxAttachments {
		return apperrors.BadRequest("A note can have at most 3 attachments")
	}

	paths, cleanup, err := h.saveUploads(c, fileHeaders)
	if err != nil {
		return err
	}
	defer cleanup()

	note, err := h.noteService.CreateNote(user.ID, title, content, isVoiceNote, paths)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, note, "Note added successfully!")
}

// HandleGetNoteByID fetches one of the caller's notes.
func (h *NoteHandler) HandleGetNoteByID(c *fiber.Ctx) error {
	user := c.Locals(middleware.UserKey).(*models.User)

	note, err := h.noteService.GetNote(c.Params("noteId"), user.ID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"note": note}, "Note fetched successfully!")
}

// HandleUpdateNote updates title/content and optionally appends a single
// uploaded attachment.
func (h *NoteHandler) HandleUpdateNote(c *fiber.Ctx) error {
	user := c.Locals(middleware.UserKey).(*models.User)

	var req struct {
		Title   string `json:"title" form:"title"`
		Content string `json:"content" form:"content"`
	}
	// Tolerate an empty or multipart-only body; field presence is checked below.
	_ = c.BodyParser(&req)

	attachmentPath := ""
	if fileHeader, err := c.FormFile("attachments"); err == nil && fileHeader != nil {
		paths, cleanup, saveErr := h.saveUploads(c, []*multipart.FileHeader{fileHeader})
		if saveErr != nil {
			return saveErr
		}
		defer cleanup()
		attachmentPath = paths[0]
	}

	note, err := h.noteService.UpdateNote(c.Params("noteId"), user.ID, req.Title, req.Content, attachmentPath)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, note, "Note details updated successfully")
}

// HandleDeleteNote deletes a note after releasing its attachments.
func (h *NoteHandler) HandleDeleteNote(c *fiber.Ctx) error {
	user := c.Locals(middleware.UserKey).(*models.User)

	if err := h.noteService.DeleteNote(c.Params("noteId"), user.ID); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, nil, "Note deleted successfully")
}

// HandleRemoveAttachment removes a single attachment from a note.
func (h *NoteHandler) HandleRemoveAttachment(c *fiber.Ctx) error {
	user := c.Locals(middleware.UserKey).(*models.User)

	var req struct {
		AttachmentURL string `json:"attachmentUrl" form:"attachmentUrl"`
	}
	if err := c.BodyParser(&req); err != nil || req.AttachmentURL == "" {
		return apperrors.BadRequest("attachmentUrl is required")
	}

	note, err := h.noteService.RemoveAttachment(c.Params("noteId"), user.ID, req.AttachmentURL)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, note, "Attachment removed successfully")
}

// HandleToggleFavourite flips the favourite flag on a note.
func (h *NoteHandler) HandleToggleFavourite(c *fiber.Ctx) error {
	user := c.Locals(middleware.UserKey).(*models.User)

	note, err := h.noteService.ToggleFavourite(c.Params("noteId"), user.ID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, note, "Note favourite status changed successfully")
}

// saveUploads spools the uploaded files into the temp dir and returns their
// paths plus a cleanup func that removes whatever is still on disk. The
// service removes each file as it processes it; cleanup covers abort paths.
func (h *NoteHandler) saveUploads(c *fiber.Ctx, fileHeaders []*multipart.FileHeader) ([]string, func(), error) {
	paths := make([]string, 0, len(fileHeaders))
	cleanup := func() {
		for _, p := range paths {
			os.Remove(p)
		}
	}
	for _, fileHeader := range fileHeaders {
		dest := filepath.Join(h.tempDir, fmt.Sprintf("%s%s", uuid.New().String(), filepath.Ext(fileHeader.Filename)))
		if err := c.SaveFile(fileHeader, dest); err != nil {
			cleanup()
			return nil, nil, apperrors.Internal("Failed to store uploaded file", err)
		}
		paths = append(paths, dest)
	}
	return paths, cleanup, nil
}
