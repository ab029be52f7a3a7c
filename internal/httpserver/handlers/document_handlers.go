package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"docflow/internal/apperr"
	"docflow/internal/auth"
	"docflow/internal/services"
)

// multipart parse keeps up to 10MB in memory, the rest spills to disk
const multipartMemory = 10 << 20

func parseID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperr.NotFound("not found")
	}
	return uint(id), nil
}

func ListDocuments(svc *services.DocumentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.FromContext(r.Context())
		q := r.URL.Query()
		docs, err := svc.List(claims.UserID, claims.Role, services.ListFilters{
			Type:      q.Get("type"),
			Status:    q.Get("status"),
			Performer: q.Get("performer"),
			SortBy:    q.Get("sort_by"),
			SortDir:   q.Get("sort_dir"),
		})
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, documentListJSON(docs))
	}
}

func GetDocument(svc *services.DocumentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		claims := auth.FromContext(r.Context())
		doc, err := svc.Get(id, claims.UserID, claims.Role)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, documentJSON(doc))
	}
}

// CreateDocument accepts a multipart form with a required file part plus
// title/type/content fields. The body is capped before any parsing.
func CreateDocument(svc *services.DocumentService, lg *zap.SugaredLogger, maxUpload int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			respondError(w, lg, apperr.Validation("invalid multipart form or body too large"))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil || header.Filename == "" {
			respondError(w, lg, apperr.Validation("no file supplied"))
			return
		}
		defer file.Close()

		var content *string
		if c := r.FormValue("content"); c != "" {
			content = &c
		}
		claims := auth.FromContext(r.Context())
		doc, err := svc.Create(claims.UserID, r.FormValue("title"), r.FormValue("type"), content,
			services.Upload{Filename: header.Filename, File: file})
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusCreated, map[string]any{
			"message":  "Document created successfully",
			"document": documentJSON(doc),
		})
	}
}

// UpdateDocument applies only the form fields that were actually supplied; a
// new file part, when present, replaces the stored blob.
func UpdateDocument(svc *services.DocumentService, lg *zap.SugaredLogger, maxUpload int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			respondError(w, lg, apperr.Validation("invalid multipart form or body too large"))
			return
		}

		formPtr := func(key string) *string {
			if vs, ok := r.MultipartForm.Value[key]; ok && len(vs) > 0 {
				return &vs[0]
			}
			return nil
		}
		fields := services.UpdateFields{
			Title:   formPtr("title"),
			Type:    formPtr("type"),
			Status:  formPtr("status"),
			Content: formPtr("content"),
			Reason:  formPtr("reason"),
		}

		var up *services.Upload
		if file, header, ferr := r.FormFile("file"); ferr == nil && header.Filename != "" {
			defer file.Close()
			up = &services.Upload{Filename: header.Filename, File: file}
		}

		claims := auth.FromContext(r.Context())
		doc, err := svc.Update(id, claims.UserID, claims.Role, fields, up)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"message":  "Document updated successfully",
			"document": documentJSON(doc),
		})
	}
}

type statusReq struct {
	Status string  `json:"status"`
	Reason *string `json:"reason"`
}

func UpdateDocumentStatus(svc *services.DocumentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		var req statusReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, lg, apperr.Validation("invalid request body"))
			return
		}
		claims := auth.FromContext(r.Context())
		doc, err := svc.UpdateStatus(id, claims.UserID, claims.Role, req.Status, req.Reason)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"message":  "Document status updated successfully",
			"document": documentJSON(doc),
		})
	}
}

func GetDocumentFile(svc *services.DocumentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		claims := auth.FromContext(r.Context())
		path, err := svc.FilePath(id, claims.UserID, claims.Role)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		http.ServeFile(w, r, path)
	}
}

func GetDocumentHistory(svc *services.DocumentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		claims := auth.FromContext(r.Context())
		hist, err := svc.History(id, claims.UserID, claims.Role)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		out := make([]map[string]any, 0, len(hist))
		for i := range hist {
			out = append(out, historyJSON(&hist[i]))
		}
		respondJSON(w, http.StatusOK, out)
	}
}
