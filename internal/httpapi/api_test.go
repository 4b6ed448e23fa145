package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisper-relay/internal/models"
	"whisper-relay/internal/presence"
	"whisper-relay/internal/service"
	"whisper-relay/internal/storage/storagetest"
)

func newTestAPI() (*http.ServeMux, *service.Services, *storagetest.Store) {
	store := storagetest.New()
	broadcaster := presence.NewBroadcaster()
	dir := presence.NewDirectory(broadcaster, store.Users())

	svcs := &service.Services{
		Users:    service.NewUserService(store.Users()),
		Contacts: service.NewContactService(store.Users(), store.Requests(), store.Contacts(), dir),
		Messages: service.NewMessageService(store.Messages(), dir),
		Presence: dir,
	}

	mux := http.NewServeMux()
	New(svcs).RegisterRoutes(mux)
	return mux, svcs, store
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestRegisterReturnsUserWithPairingCode(t *testing.T) {
	mux, _, _ := newTestAPI()

	rec := doJSON(t, mux, http.MethodPost, "/api/register",
		`{"handle":"alice","publicKey":"pub","identityKey":"ik","signedPreKey":"spk"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "alice", user.Handle)
	assert.Len(t, user.PairingCode, 8)
	assert.NotEmpty(t, user.ID)
}

func TestRegisterDuplicateHandleConflicts(t *testing.T) {
	mux, _, _ := newTestAPI()

	rec := doJSON(t, mux, http.MethodPost, "/api/register", `{"handle":"alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/register", `{"handle":"alice"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin(t *testing.T) {
	mux, _, _ := newTestAPI()

	doJSON(t, mux, http.MethodPost, "/api/register", `{"handle":"bob"}`)

	rec := doJSON(t, mux, http.MethodPost, "/api/login", `{"handle":"bob"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/login", `{"handle":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPairingLookupIsCaseInsensitive(t *testing.T) {
	mux, svcs, _ := newTestAPI()

	alice, err := svcs.Users.Register("alice", "pub", "ik", "spk")
	require.NoError(t, err)

	rec := doJSON(t, mux, http.MethodGet, "/api/users/pairing/"+strings.ToLower(alice.PairingCode), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var profile models.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, alice.ID, profile.ID)

	rec = doJSON(t, mux, http.MethodGet, "/api/users/pairing/NOPE0000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListContactsAndPendingRequests(t *testing.T) {
	mux, svcs, _ := newTestAPI()

	alice, _ := svcs.Users.Register("alice", "pub", "ik", "spk")
	bob, _ := svcs.Users.Register("bob", "pub", "ik", "spk")

	req, err := svcs.Contacts.RequestContact(bob.ID, alice.ID)
	require.NoError(t, err)

	rec := doJSON(t, mux, http.MethodGet, "/api/contact-requests?userId="+alice.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []models.ContactRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	require.Len(t, pending, 1)

	_, err = svcs.Contacts.AcceptRequest(req.ID, alice.ID, bob.ID)
	require.NoError(t, err)

	rec = doJSON(t, mux, http.MethodGet, "/api/contacts?userId="+alice.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var contacts []models.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contacts))
	require.Len(t, contacts, 1)
	assert.Equal(t, bob.ID, contacts[0].PeerID)
}

func TestDeleteMessageTombstones(t *testing.T) {
	mux, svcs, _ := newTestAPI()

	msg, err := svcs.Messages.Send("alice", "bob", "cipher", "nonce", true, nil)
	require.NoError(t, err)

	rec := doJSON(t, mux, http.MethodDelete, "/api/messages/"+msg.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/messages?userId=alice&peerId=bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	assert.Empty(t, msgs)

	rec = doJSON(t, mux, http.MethodDelete, "/api/messages/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerifyContact(t *testing.T) {
	mux, svcs, _ := newTestAPI()

	alice, _ := svcs.Users.Register("alice", "pub", "ik", "spk")
	bob, _ := svcs.Users.Register("bob", "pub", "ik", "spk")
	req, _ := svcs.Contacts.RequestContact(bob.ID, alice.ID)
	_, err := svcs.Contacts.AcceptRequest(req.ID, alice.ID, bob.ID)
	require.NoError(t, err)

	rec := doJSON(t, mux, http.MethodPost, "/api/contacts/verify",
		`{"ownerId":"`+alice.ID+`","peerId":"`+bob.ID+`","isVerified":true,"safetyNumber":"12345"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	contacts, err := svcs.Contacts.ListContacts(alice.ID)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.True(t, contacts[0].IsVerified)

	rec = doJSON(t, mux, http.MethodPost, "/api/contacts/verify",
		`{"ownerId":"nobody","peerId":"nothing","isVerified":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResponsesUseCamelCaseKeys(t *testing.T) {
	mux, svcs, _ := newTestAPI()

	rec := doJSON(t, mux, http.MethodPost, "/api/register", `{"handle":"alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var user map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	for _, key := range []string{"id", "handle", "pairingCode", "isOnline", "lastSeen", "createdAt"} {
		assert.Contains(t, user, key)
	}
	assert.NotContains(t, user, "PairingCode")
	assert.NotContains(t, user, "UpdatedAt")

	var aliceID string
	require.NoError(t, json.Unmarshal(user["id"], &aliceID))

	bob, err := svcs.Users.Register("bob", "pub", "ik", "spk")
	require.NoError(t, err)
	req, err := svcs.Contacts.RequestContact(bob.ID, aliceID)
	require.NoError(t, err)
	_, err = svcs.Contacts.AcceptRequest(req.ID, aliceID, bob.ID)
	require.NoError(t, err)

	rec = doJSON(t, mux, http.MethodGet, "/api/contacts?userId="+aliceID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var contacts []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contacts))
	require.Len(t, contacts, 1)
	for _, key := range []string{"id", "ownerId", "peerId", "status", "isVerified", "safetyNumber", "createdAt"} {
		assert.Contains(t, contacts[0], key)
	}
	assert.NotContains(t, contacts[0], "OwnerID")
	assert.NotContains(t, contacts[0], "UpdatedAt")
}

func TestListMessagesRequiresBothParties(t *testing.T) {
	mux, _, _ := newTestAPI()

	rec := doJSON(t, mux, http.MethodGet, "/api/messages?userId=alice", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
