package httpserver

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) sendMessage(t *testing.T, token, recipient, subject, body string) map[string]any {
	t.Helper()
	resp := e.jsonRequest(t, http.MethodPost, "/api/messages", token, map[string]string{
		"recipient": recipient, "subject": subject, "body": body,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decodeBody(t, resp)
	msg, ok := out["message_data"].(map[string]any)
	require.True(t, ok, "expected message_data in response")
	return msg
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)
	aliceTok := env.register(t, "alice", "alice@x.com", "pw")
	env.register(t, "bob", "bob@x.com", "pw")

	msg := env.sendMessage(t, aliceTok, "bob", "Hello", "Hi Bob")
	assert.Equal(t, "alice", msg["sender"])
	assert.Equal(t, "bob", msg["recipient"])
	assert.Equal(t, false, msg["read"])

	// a second send exercises the cached username resolution
	msg2 := env.sendMessage(t, aliceTok, "bob", "Again", "Still me")
	assert.Equal(t, "bob", msg2["recipient"])
}

func TestSendMessage_Validation(t *testing.T) {
	env := newTestEnv(t)
	tok := env.register(t, "alice", "alice@x.com", "pw")

	for _, body := range []map[string]string{
		{"recipient": "", "subject": "s", "body": "b"},
		{"recipient": "bob", "subject": "", "body": "b"},
		{"recipient": "bob", "subject": "s", "body": ""},
	} {
		resp := env.jsonRequest(t, http.MethodPost, "/api/messages", tok, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	}

	resp := env.jsonRequest(t, http.MethodPost, "/api/messages", tok, map[string]string{
		"recipient": "ghost", "subject": "s", "body": "b",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestListMessages_Folders(t *testing.T) {
	env := newTestEnv(t)
	aliceTok := env.register(t, "alice", "alice@x.com", "pw")
	bobTok := env.register(t, "bob", "bob@x.com", "pw")

	env.sendMessage(t, aliceTok, "bob", "To Bob", "hi")
	env.sendMessage(t, bobTok, "alice", "To Alice", "hello")

	resp := env.get(t, "/api/messages?folder=inbox", bobTok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	inbox := decodeList(t, resp)
	require.Len(t, inbox, 1)
	assert.Equal(t, "To Bob", inbox[0]["subject"])

	resp = env.get(t, "/api/messages?folder=sent", bobTok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sent := decodeList(t, resp)
	require.Len(t, sent, 1)
	assert.Equal(t, "To Alice", sent[0]["subject"])
}

func TestListMessages_Search(t *testing.T) {
	env := newTestEnv(t)
	aliceTok := env.register(t, "alice", "alice@x.com", "pw")
	bobTok := env.register(t, "bob", "bob@x.com", "pw")
	carolTok := env.register(t, "carol", "carol@x.com", "pw")

	env.sendMessage(t, aliceTok, "bob", "Quarterly Report", "q1")
	env.sendMessage(t, carolTok, "bob", "Lunch plans", "food")

	// case-insensitive subject match
	resp := env.get(t, "/api/messages?search=quarterly", bobTok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	found := decodeList(t, resp)
	require.Len(t, found, 1)
	assert.Equal(t, "Quarterly Report", found[0]["subject"])

	// counterpart-username match in the inbox
	resp = env.get(t, "/api/messages?search=CAROL", bobTok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	found = decodeList(t, resp)
	require.Len(t, found, 1)
	assert.Equal(t, "Lunch plans", found[0]["subject"])

	// invalid sort field is rejected
	resp = env.get(t, "/api/messages?sort_by=body", bobTok)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestGetMessage_ReadOnView(t *testing.T) {
	env := newTestEnv(t)
	aliceTok := env.register(t, "alice", "alice@x.com", "pw")
	bobTok := env.register(t, "bob", "bob@x.com", "pw")

	msg := env.sendMessage(t, aliceTok, "bob", "Hello", "hi")
	id := docID(t, msg)

	// the sender viewing it does not mark it read
	resp := env.get(t, fmt.Sprintf("/api/messages/%d", id), aliceTok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decodeBody(t, resp)["read"])

	// the recipient's first view flips it, and the flip sticks
	resp = env.get(t, fmt.Sprintf("/api/messages/%d", id), bobTok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp)["read"])

	resp = env.get(t, fmt.Sprintf("/api/messages/%d", id), bobTok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp)["read"])
}

func TestGetMessage_AccessControl(t *testing.T) {
	env := newTestEnv(t)
	aliceTok := env.register(t, "alice", "alice@x.com", "pw")
	env.register(t, "bob", "bob@x.com", "pw")
	carolTok := env.register(t, "carol", "carol@x.com", "pw")

	msg := env.sendMessage(t, aliceTok, "bob", "Private", "secret")
	id := docID(t, msg)

	resp := env.get(t, fmt.Sprintf("/api/messages/%d", id), carolTok)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.get(t, "/api/messages/99999", aliceTok)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestMarkMessageRead(t *testing.T) {
	env := newTestEnv(t)
	aliceTok := env.register(t, "alice", "alice@x.com", "pw")
	bobTok := env.register(t, "bob", "bob@x.com", "pw")

	msg := env.sendMessage(t, aliceTok, "bob", "Hello", "hi")
	id := docID(t, msg)

	// only the recipient may mark it read
	resp := env.jsonRequest(t, http.MethodPut, fmt.Sprintf("/api/messages/%d/read", id), aliceTok, map[string]string{})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// idempotent for the recipient
	for i := 0; i < 2; i++ {
		resp = env.jsonRequest(t, http.MethodPut, fmt.Sprintf("/api/messages/%d/read", id), bobTok, map[string]string{})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		data := decodeBody(t, resp)["message_data"].(map[string]any)
		assert.Equal(t, true, data["read"])
	}
}
