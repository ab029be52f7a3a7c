package handlers

import (
	"docflow/internal/models"
)

// The view helpers flatten related usernames into the payloads alongside the
// raw foreign keys, which is the shape the frontend consumes.

func userJSON(u *models.User) map[string]any {
	return map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"role":       u.Role,
		"theme":      u.Theme,
		"created_at": u.CreatedAt,
	}
}

func documentJSON(d *models.Document) map[string]any {
	m := map[string]any{
		"id":             d.ID,
		"title":          d.Title,
		"type":           d.Type,
		"file_path":      d.FilePath,
		"status":         d.Status,
		"author_id":      d.AuthorID,
		"author":         nil,
		"approver_id":    d.ApproverID,
		"approver":       nil,
		"signed":         d.Signed,
		"signature_date": d.SignatureDate,
		"content":        d.Content,
		"created_at":     d.CreatedAt,
		"updated_at":     d.UpdatedAt,
	}
	if d.Author != nil {
		m["author"] = d.Author.Username
	}
	if d.Approver != nil {
		m["approver"] = d.Approver.Username
	}
	return m
}

func documentListJSON(docs []models.Document) []map[string]any {
	out := make([]map[string]any, 0, len(docs))
	for i := range docs {
		out = append(out, documentJSON(&docs[i]))
	}
	return out
}

func historyJSON(h *models.DocumentHistory) map[string]any {
	m := map[string]any{
		"id":          h.ID,
		"document_id": h.DocumentID,
		"action":      h.Action,
		"user_id":     h.UserID,
		"user":        nil,
		"timestamp":   h.Timestamp,
		"reason":      h.Reason,
	}
	if h.User != nil {
		m["user"] = h.User.Username
	}
	return m
}

func messageJSON(msg *models.Message) map[string]any {
	m := map[string]any{
		"id":           msg.ID,
		"sender_id":    msg.SenderID,
		"sender":       nil,
		"recipient_id": msg.RecipientID,
		"recipient":    nil,
		"subject":      msg.Subject,
		"body":         msg.Body,
		"timestamp":    msg.Timestamp,
		"read":         msg.Read,
	}
	if msg.Sender != nil {
		m["sender"] = msg.Sender.Username
	}
	if msg.Recipient != nil {
		m["recipient"] = msg.Recipient.Username
	}
	return m
}
