package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"docflow/internal/auth"
	"docflow/internal/config"
	"docflow/internal/httpserver/handlers"
	"docflow/internal/services"
	"docflow/internal/storage"
)

func NewRouter(db *gorm.DB, lg *zap.SugaredLogger, cfg *config.Config, tm *auth.TokenManager, blobs *storage.BlobStore) http.Handler {
	docs := services.NewDocumentService(db, blobs, lg)
	users := storage.NewUserCache()
	maxUpload := cfg.Storage.MaxUploadBytes

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORS.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	r.Post("/api/auth/register", handlers.Register(db, lg, tm))
	r.Post("/api/auth/login", handlers.Login(db, lg, tm))

	r.Group(func(protected chi.Router) {
		protected.Use(auth.JWTAuth(tm))

		protected.Get("/api/auth/profile", handlers.Profile(db, lg))
		protected.Put("/api/auth/settings", handlers.UpdateSettings(db, lg))

		protected.Get("/api/documents", handlers.ListDocuments(docs, lg))
		protected.Post("/api/documents", handlers.CreateDocument(docs, lg, maxUpload))
		protected.Get("/api/documents/{id}", handlers.GetDocument(docs, lg))
		protected.Put("/api/documents/{id}", handlers.UpdateDocument(docs, lg, maxUpload))
		protected.With(auth.RequireRole("admin")).
			Put("/api/documents/{id}/status", handlers.UpdateDocumentStatus(docs, lg))
		protected.Get("/api/documents/{id}/file", handlers.GetDocumentFile(docs, lg))
		protected.Get("/api/documents/{id}/history", handlers.GetDocumentHistory(docs, lg))

		protected.Get("/api/messages", handlers.ListMessages(db, lg))
		protected.Post("/api/messages", handlers.SendMessage(db, lg, users))
		protected.Get("/api/messages/{id}", handlers.GetMessage(db, lg))
		protected.Put("/api/messages/{id}/read", handlers.MarkMessageRead(db, lg))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
