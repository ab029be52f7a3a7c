package services

import (
	"errors"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"docflow/internal/apperr"
	"docflow/internal/models"
	"docflow/internal/storage"
)

var allowedExtensions = map[string]struct{}{
	"doc": {}, "docx": {}, "pdf": {}, "txt": {},
	"xlsx": {}, "xls": {}, "ppt": {}, "pptx": {},
}

// sortableDocumentFields is the allow-list for client-supplied sort fields.
// Anything outside it is rejected with a validation error rather than
// forwarded to the database.
var sortableDocumentFields = map[string]string{
	"title":      "title",
	"type":       "type",
	"status":     "status",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// DocumentService owns the document lifecycle: listing under server-side
// visibility rules, blob-backed creation and update, the admin-only status
// workflow, and the append-only history trail.
type DocumentService struct {
	db    *gorm.DB
	blobs *storage.BlobStore
	lg    *zap.SugaredLogger
}

func NewDocumentService(db *gorm.DB, blobs *storage.BlobStore, lg *zap.SugaredLogger) *DocumentService {
	return &DocumentService{db: db, blobs: blobs, lg: lg}
}

// ListFilters carries the client-supplied query parameters for List.
type ListFilters struct {
	Type      string
	Status    string
	Performer string // author username
	SortBy    string
	SortDir   string
}

// UpdateFields carries the optional fields of an update; nil means "leave
// unchanged".
type UpdateFields struct {
	Title   *string
	Type    *string
	Status  *string
	Content *string
	Reason  *string
}

// Upload is a validated-on-use incoming file.
type Upload struct {
	Filename string
	File     io.Reader
}

func validateExtension(filename string) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return apperr.Validation("file has no extension")
	}
	if _, ok := allowedExtensions[ext]; !ok {
		return apperr.Validation("invalid file type, allowed types: " + allowedExtensionList())
	}
	return nil
}

func allowedExtensionList() string {
	exts := make([]string, 0, len(allowedExtensions))
	for e := range allowedExtensions {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

// canAccess is the shared ownership rule: only the author or an admin may
// see or touch a document.
func canAccess(doc *models.Document, requesterID uint, role string) error {
	if doc.AuthorID != requesterID && role != "admin" {
		return apperr.Forbidden("permission denied")
	}
	return nil
}

func (s *DocumentService) fetch(id uint) (*models.Document, error) {
	var doc models.Document
	if err := s.db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("document not found")
		}
		return nil, err
	}
	return &doc, nil
}

func (s *DocumentService) reload(id uint) (*models.Document, error) {
	var doc models.Document
	if err := s.db.Preload("Author").Preload("Approver").First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns the documents visible to the requester. Non-admins are
// force-filtered to their own documents no matter what filters were sent.
func (s *DocumentService) List(requesterID uint, role string, f ListFilters) ([]models.Document, error) {
	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	col, ok := sortableDocumentFields[sortBy]
	if !ok {
		return nil, apperr.Validation("invalid sort field: " + sortBy)
	}
	dir := "desc"
	if f.SortDir == "asc" {
		dir = "asc"
	}

	q := s.db.Model(&models.Document{}).Preload("Author").Preload("Approver")
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Performer != "" {
		var u models.User
		if err := s.db.First(&u, "username = ?", f.Performer).Error; err == nil {
			q = q.Where("author_id = ?", u.ID)
		}
		// unknown usernames leave the filter unapplied
	}
	if role != "admin" {
		q = q.Where("author_id = ?", requesterID)
	}

	var docs []models.Document
	if err := q.Order(col + " " + dir).Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *DocumentService) Get(id, requesterID uint, role string) (*models.Document, error) {
	doc, err := s.fetch(id)
	if err != nil {
		return nil, err
	}
	if err := canAccess(doc, requesterID, role); err != nil {
		return nil, err
	}
	return s.reload(id)
}

// Create stores the blob first, then inserts the document and its "created"
// history row in one transaction. A transaction failure triggers a
// best-effort removal of the just-written blob so no orphan survives.
func (s *DocumentService) Create(requesterID uint, title, docType string, content *string, up Upload) (*models.Document, error) {
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	if err := validateExtension(up.Filename); err != nil {
		return nil, err
	}
	if docType == "" {
		docType = "general"
	}

	key := storage.GenerateKey(up.Filename)
	if err := s.blobs.Save(key, up.File); err != nil {
		return nil, err
	}

	now := time.Now()
	doc := models.Document{
		Title:     title,
		Type:      docType,
		FilePath:  key,
		Status:    "draft",
		AuthorID:  requesterID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}
		hist := models.DocumentHistory{
			DocumentID: doc.ID,
			Action:     "created",
			UserID:     requesterID,
			Timestamp:  now,
		}
		return tx.Create(&hist).Error
	})
	if err != nil {
		if rmErr := s.blobs.Remove(key); rmErr != nil {
			s.lg.Warnw("orphaned blob cleanup failed", "key", key, "error", rmErr)
		}
		return nil, err
	}
	return s.reload(doc.ID)
}

// Update applies the supplied fields and, when a new file is given, swaps
// the stored blob. The superseded blob is removed after commit; a removal
// failure is logged as a warning, never surfaced, because the record update
// already succeeded.
func (s *DocumentService) Update(id, requesterID uint, role string, fields UpdateFields, up *Upload) (*models.Document, error) {
	doc, err := s.fetch(id)
	if err != nil {
		return nil, err
	}
	if err := canAccess(doc, requesterID, role); err != nil {
		return nil, err
	}

	var newKey string
	if up != nil {
		if err := validateExtension(up.Filename); err != nil {
			return nil, err
		}
		newKey = storage.GenerateKey(up.Filename)
		if err := s.blobs.Save(newKey, up.File); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	updates := map[string]any{"updated_at": now}
	if fields.Title != nil {
		updates["title"] = *fields.Title
	}
	if fields.Type != nil {
		updates["type"] = *fields.Type
	}
	if fields.Status != nil {
		updates["status"] = *fields.Status
	}
	if fields.Content != nil {
		updates["content"] = *fields.Content
	}
	if newKey != "" {
		updates["file_path"] = newKey
	}

	oldKey := doc.FilePath
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Document{}).Where("id = ?", doc.ID).Updates(updates).Error; err != nil {
			return err
		}
		hist := models.DocumentHistory{
			DocumentID: doc.ID,
			Action:     "updated",
			UserID:     requesterID,
			Timestamp:  now,
			Reason:     fields.Reason,
		}
		return tx.Create(&hist).Error
	})
	if err != nil {
		if newKey != "" {
			if rmErr := s.blobs.Remove(newKey); rmErr != nil {
				s.lg.Warnw("orphaned blob cleanup failed", "key", newKey, "error", rmErr)
			}
		}
		return nil, err
	}
	if newKey != "" && oldKey != "" {
		if rmErr := s.blobs.Remove(oldKey); rmErr != nil {
			s.lg.Warnw("superseded blob removal failed", "key", oldKey, "error", rmErr)
		}
	}
	return s.reload(doc.ID)
}

// UpdateStatus is the admin-only workflow transition. The acting admin is
// recorded as the document's approver. Statuses are an open string set; no
// state machine constrains the transition.
func (s *DocumentService) UpdateStatus(id, actorID uint, role, status string, reason *string) (*models.Document, error) {
	if role != "admin" {
		return nil, apperr.Forbidden("permission denied")
	}
	if status == "" {
		return nil, apperr.Validation("status is required")
	}
	doc, err := s.fetch(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":      status,
			"approver_id": actorID,
			"updated_at":  now,
		}
		if err := tx.Model(&models.Document{}).Where("id = ?", doc.ID).Updates(updates).Error; err != nil {
			return err
		}
		hist := models.DocumentHistory{
			DocumentID: doc.ID,
			Action:     "status_changed_to_" + status,
			UserID:     actorID,
			Timestamp:  now,
			Reason:     reason,
		}
		return tx.Create(&hist).Error
	})
	if err != nil {
		return nil, err
	}
	return s.reload(doc.ID)
}

// FilePath resolves the on-disk location of a document's blob after the
// ownership check, for streaming to the client.
func (s *DocumentService) FilePath(id, requesterID uint, role string) (string, error) {
	doc, err := s.fetch(id)
	if err != nil {
		return "", err
	}
	if err := canAccess(doc, requesterID, role); err != nil {
		return "", err
	}
	return s.blobs.Path(doc.FilePath), nil
}

// History returns the document's audit trail, newest first.
func (s *DocumentService) History(id, requesterID uint, role string) ([]models.DocumentHistory, error) {
	doc, err := s.fetch(id)
	if err != nil {
		return nil, err
	}
	if err := canAccess(doc, requesterID, role); err != nil {
		return nil, err
	}
	var hist []models.DocumentHistory
	if err := s.db.Preload("User").
		Where("document_id = ?", doc.ID).
		Order("timestamp desc").
		Find(&hist).Error; err != nil {
		return nil, err
	}
	return hist, nil
}
