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
)

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a user and returns a signed token. The first user ever
// registered gets the admin role; everyone after that is a plain user. The
// count check runs in the insert transaction, which keeps the read and the
// insert adjacent but is only as strong as the database's isolation level.
func Register(db *gorm.DB, lg *zap.SugaredLogger, tm *auth.TokenManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, lg, apperr.Validation("invalid request body"))
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Username == "" || req.Email == "" || req.Password == "" {
			respondError(w, lg, apperr.Validation("missing required fields"))
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondError(w, lg, err)
			return
		}

		u := models.User{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hash,
			Role:         "user",
			Theme:        "light",
			CreatedAt:    time.Now(),
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return apperr.Conflict("username already exists")
			}
			if err := tx.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return apperr.Conflict("email already exists")
			}
			if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				u.Role = "admin"
			}
			return tx.Create(&u).Error
		})
		if err != nil {
			respondError(w, lg, err)
			return
		}

		tok, err := tm.Sign(u.ID, u.Role)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		lg.Infow("user registered", "user_id", u.ID, "role", u.Role)
		respondJSON(w, http.StatusCreated, map[string]any{
			"message":      "User registered successfully",
			"user":         userJSON(&u),
			"access_token": tok,
		})
	}
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func Login(db *gorm.DB, lg *zap.SugaredLogger, tm *auth.TokenManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, lg, apperr.Validation("invalid request body"))
			return
		}
		if req.Username == "" || req.Password == "" {
			respondError(w, lg, apperr.Validation("missing required fields"))
			return
		}
		var u models.User
		if err := db.First(&u, "username = ?", req.Username).Error; err != nil {
			respondError(w, lg, apperr.Auth("invalid username or password"))
			return
		}
		if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
			respondError(w, lg, apperr.Auth("invalid username or password"))
			return
		}
		tok, err := tm.Sign(u.ID, u.Role)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"message":      "Login successful",
			"user":         userJSON(&u),
			"access_token": tok,
		})
	}
}

func Profile(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u models.User
		if err := db.First(&u, auth.UserID(r.Context())).Error; err != nil {
			respondError(w, lg, apperr.NotFound("user not found"))
			return
		}
		respondJSON(w, http.StatusOK, userJSON(&u))
	}
}

type settingsReq struct {
	Theme           *string `json:"theme"`
	Password        *string `json:"password"`
	CurrentPassword *string `json:"current_password"`
}

// UpdateSettings changes the theme unconditionally; a password change is
// only honored after the current password verifies against the stored hash.
func UpdateSettings(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req settingsReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, lg, apperr.Validation("invalid request body"))
			return
		}
		var u models.User
		if err := db.First(&u, auth.UserID(r.Context())).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(w, lg, apperr.NotFound("user not found"))
				return
			}
			respondError(w, lg, err)
			return
		}
		if req.Theme != nil {
			u.Theme = *req.Theme
		}
		if req.Password != nil && *req.Password != "" {
			if req.CurrentPassword == nil ||
				auth.CheckPassword(u.PasswordHash, *req.CurrentPassword) != nil {
				respondError(w, lg, apperr.Auth("current password is incorrect"))
				return
			}
			hash, err := auth.HashPassword(*req.Password)
			if err != nil {
				respondError(w, lg, err)
				return
			}
			u.PasswordHash = hash
		}
		if err := db.Save(&u).Error; err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"message": "Settings updated successfully",
			"user":    userJSON(&u),
		})
	}
}
