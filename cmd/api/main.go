package main

import (
	"net/http"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"docflow/internal/auth"
	"docflow/internal/config"
	"docflow/internal/httpserver"
	"docflow/internal/logger"
	"docflow/internal/models"
	"docflow/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	lg := logger.New(cfg.Log.Level)
	defer lg.Sync()

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Document{},
		&models.DocumentHistory{},
		&models.Message{},
	); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}

	blobs, err := storage.NewBlobStore(cfg.Storage.UploadDir)
	if err != nil {
		lg.Fatalw("upload directory init failed", "error", err)
	}

	tm := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	router := httpserver.NewRouter(db, lg, cfg, tm, blobs)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	lg.Infow("listening", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil {
		lg.Fatalw("server stopped", "error", err)
	}
}
