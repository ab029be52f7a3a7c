package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"docflow/internal/auth"
	"docflow/internal/config"
	"docflow/internal/models"
	"docflow/internal/storage"
)

type testEnv struct {
	ts      *httptest.Server
	db      *gorm.DB
	blobDir string
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithUploadLimit(t, 16<<20)
}

func newTestEnvWithUploadLimit(t *testing.T, maxUploadBytes int64) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Document{},
		&models.DocumentHistory{},
		&models.Message{},
	))

	blobDir := t.TempDir()
	blobs, err := storage.NewBlobStore(blobDir)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Storage.MaxUploadBytes = maxUploadBytes
	cfg.CORS.AllowedOrigins = "*"

	tm := auth.NewTokenManager("test-secret-at-least-32-chars-long!!", time.Hour)
	router := NewRouter(db, zap.NewNop().Sugar(), cfg, tm, blobs)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, db: db, blobDir: blobDir}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) jsonRequest(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	return e.request(t, method, path, token, &buf, "application/json")
}

func (e *testEnv) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	return e.request(t, http.MethodGet, path, token, nil, "")
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func decodeList(t *testing.T, resp *http.Response) []map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// register creates a user through the API and returns its bearer token.
func (e *testEnv) register(t *testing.T, username, email, password string) string {
	t.Helper()
	resp := e.jsonRequest(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	tok, _ := body["access_token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func multipartBody(t *testing.T, fields map[string]string, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// createDocument uploads a document and returns its JSON representation.
func (e *testEnv) createDocument(t *testing.T, token, title, docType, filename string, content []byte) map[string]any {
	t.Helper()
	body, ct := multipartBody(t, map[string]string{"title": title, "type": docType}, filename, content)
	resp := e.request(t, http.MethodPost, "/api/documents", token, body, ct)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decodeBody(t, resp)
	doc, ok := out["document"].(map[string]any)
	require.True(t, ok, "expected document object in response")
	return doc
}

func docID(t *testing.T, doc map[string]any) int {
	t.Helper()
	id, ok := doc["id"].(float64)
	require.True(t, ok)
	return int(id)
}
