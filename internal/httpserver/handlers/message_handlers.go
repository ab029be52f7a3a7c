package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"docflow/internal/apperr"
	"docflow/internal/auth"
	"docflow/internal/models"
	"docflow/internal/storage"
)

var sortableMessageFields = map[string]string{
	"subject":   "subject",
	"timestamp": "timestamp",
	"read":      "read",
}

// ListMessages serves the inbox or sent folder. The folder is derived from
// sender/recipient ids, not stored. An optional search matches the subject
// or the counterpart's username, case-insensitively.
func ListMessages(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.FromContext(r.Context())
		q := r.URL.Query()

		folder := q.Get("folder")
		if folder != "sent" {
			folder = "inbox"
		}
		ownCol, counterpartCol := "messages.recipient_id", "messages.sender_id"
		if folder == "sent" {
			ownCol, counterpartCol = counterpartCol, ownCol
		}

		sortBy := q.Get("sort_by")
		if sortBy == "" {
			sortBy = "timestamp"
		}
		col, ok := sortableMessageFields[sortBy]
		if !ok {
			respondError(w, lg, apperr.Validation("invalid sort field: "+sortBy))
			return
		}
		dir := "desc"
		if q.Get("sort_dir") == "asc" {
			dir = "asc"
		}

		mq := db.Model(&models.Message{}).Where(ownCol+" = ?", claims.UserID)
		if search := q.Get("search"); search != "" {
			pat := "%" + strings.ToLower(search) + "%"
			mq = mq.Joins("JOIN users ON users.id = "+counterpartCol).
				Where("LOWER(messages.subject) LIKE ? OR LOWER(users.username) LIKE ?", pat, pat)
		}

		var msgs []models.Message
		if err := mq.Order("messages." + col + " " + dir).
			Preload("Sender").Preload("Recipient").
			Find(&msgs).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		out := make([]map[string]any, 0, len(msgs))
		for i := range msgs {
			out = append(out, messageJSON(&msgs[i]))
		}
		respondJSON(w, http.StatusOK, out)
	}
}

func fetchMessage(db *gorm.DB, id uint) (*models.Message, error) {
	var m models.Message
	if err := db.Preload("Sender").Preload("Recipient").First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("message not found")
		}
		return nil, err
	}
	return &m, nil
}

// GetMessage returns a single message to its sender or recipient. Viewing as
// the recipient marks an unread message read as a side effect.
func GetMessage(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		claims := auth.FromContext(r.Context())
		m, err := fetchMessage(db, id)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		if m.SenderID != claims.UserID && m.RecipientID != claims.UserID {
			respondError(w, lg, apperr.Forbidden("permission denied"))
			return
		}
		if m.RecipientID == claims.UserID && !m.Read {
			if err := db.Model(m).Update("read", true).Error; err != nil {
				respondError(w, lg, err)
				return
			}
			m.Read = true
		}
		respondJSON(w, http.StatusOK, messageJSON(m))
	}
}

type sendMessageReq struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// SendMessage resolves the recipient by username and creates an unread
// message. Username resolution goes through the cache; usernames never
// change, so a hit is always safe.
func SendMessage(db *gorm.DB, lg *zap.SugaredLogger, users *storage.UserCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, lg, apperr.Validation("invalid request body"))
			return
		}
		if req.Recipient == "" || req.Subject == "" || req.Body == "" {
			respondError(w, lg, apperr.Validation("missing required fields"))
			return
		}

		recipientID, found := users.Get(req.Recipient)
		if !found {
			var u models.User
			if err := db.First(&u, "username = ?", req.Recipient).Error; err != nil {
				respondError(w, lg, apperr.NotFound("recipient not found"))
				return
			}
			recipientID = u.ID
			users.Put(req.Recipient, u.ID)
		}

		claims := auth.FromContext(r.Context())
		m := models.Message{
			SenderID:    claims.UserID,
			RecipientID: recipientID,
			Subject:     req.Subject,
			Body:        req.Body,
			Timestamp:   time.Now(),
			Read:        false,
		}
		if err := db.Create(&m).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		full, err := fetchMessage(db, m.ID)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusCreated, map[string]any{
			"message":      "Message sent successfully",
			"message_data": messageJSON(full),
		})
	}
}

// MarkMessageRead idempotently sets the read flag; only the recipient may.
func MarkMessageRead(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		claims := auth.FromContext(r.Context())
		m, err := fetchMessage(db, id)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		if m.RecipientID != claims.UserID {
			respondError(w, lg, apperr.Forbidden("permission denied"))
			return
		}
		if !m.Read {
			if err := db.Model(m).Update("read", true).Error; err != nil {
				respondError(w, lg, err)
				return
			}
			m.Read = true
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"message":      "Message marked as read",
			"message_data": messageJSON(m),
		})
	}
}
