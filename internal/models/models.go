package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:100;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"size:20;not null;default:user" json:"role"`
	Theme        string    `gorm:"size:10;not null;default:light" json:"theme"`
	CreatedAt    time.Time `json:"created_at"`
}

// Document status and type are open string sets: the workflow is advisory,
// not enforced by a state machine. "draft", "pending", "approved" and
// "rejected" are the conventional statuses.
type Document struct {
	ID            uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	Type          string     `gorm:"size:50;not null" json:"type"`
	FilePath      string     `gorm:"size:255;not null" json:"file_path"`
	Status        string     `gorm:"size:20;not null;default:draft" json:"status"`
	AuthorID      uint       `gorm:"index;not null" json:"author_id"`
	Author        *User      `gorm:"foreignKey:AuthorID" json:"-"`
	ApproverID    *uint      `json:"approver_id,omitempty"`
	Approver      *User      `gorm:"foreignKey:ApproverID" json:"-"`
	Signed        bool       `gorm:"not null;default:false" json:"signed"`
	SignatureDate *time.Time `json:"signature_date,omitempty"`
	Content       *string    `gorm:"type:text" json:"content,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DocumentHistory rows are append-only: one per create/update/status change,
// never mutated or deleted.
type DocumentHistory struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID uint      `gorm:"index;not null" json:"document_id"`
	Action     string    `gorm:"size:50;not null" json:"action"`
	UserID     uint      `gorm:"not null" json:"user_id"`
	User       *User     `gorm:"foreignKey:UserID" json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	Reason     *string   `gorm:"type:text" json:"reason,omitempty"`
}

type Message struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID    uint      `gorm:"index;not null" json:"sender_id"`
	Sender      *User     `gorm:"foreignKey:SenderID" json:"-"`
	RecipientID uint      `gorm:"index;not null" json:"recipient_id"`
	Recipient   *User     `gorm:"foreignKey:RecipientID" json:"-"`
	Subject     string    `gorm:"size:100;not null" json:"subject"`
	Body        string    `gorm:"type:text;not null" json:"body"`
	Timestamp   time.Time `json:"timestamp"`
	Read        bool      `gorm:"not null;default:false" json:"read"`
}
