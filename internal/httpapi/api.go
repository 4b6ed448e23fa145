// Package httpapi exposes the synchronous request/response surface:
// registration, login, identity lookup and the read-only projections the
// clients render from.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"whisper-relay/internal/logger"
	"whisper-relay/internal/service"
)

// API holds the handlers for the JSON endpoints.
type API struct {
	users    *service.UserService
	contacts *service.ContactService
	messages *service.MessageService
}

// New creates the API over the service layer.
func New(svcs *service.Services) *API {
	return &API{
		users:    svcs.Users,
		contacts: svcs.Contacts,
		messages: svcs.Messages,
	}
}

// RegisterRoutes attaches every endpoint to the mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/register", a.handleRegister)
	mux.HandleFunc("POST /api/login", a.handleLogin)
	mux.HandleFunc("GET /api/users/pairing/{code}", a.handlePairingLookup)
	mux.HandleFunc("GET /api/contacts", a.handleListContacts)
	mux.HandleFunc("GET /api/contact-requests", a.handleListPendingRequests)
	mux.HandleFunc("GET /api/messages", a.handleListMessages)
	mux.HandleFunc("DELETE /api/messages/{id}", a.handleDeleteMessage)
	mux.HandleFunc("POST /api/contacts/verify", a.handleVerifyContact)
}

type registerRequest struct {
	Handle       string `json:"handle"`
	PublicKey    string `json:"publicKey"`
	IdentityKey  string `json:"identityKey"`
	SignedPreKey string `json:"signedPreKey"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Handle == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.users.Register(req.Handle, req.PublicKey, req.IdentityKey, req.SignedPreKey)
	if err != nil {
		if errors.Is(err, service.ErrHandleTaken) {
			writeError(w, http.StatusConflict, "handle already taken")
			return
		}
		logger.Errorf("register: %v", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Handle string `json:"handle"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Handle == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.users.Login(req.Handle)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown handle")
			return
		}
		logger.Errorf("login: %v", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (a *API) handlePairingLookup(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	user, err := a.users.LookupByPairingCode(code)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown pairing code")
			return
		}
		logger.Errorf("pairing lookup: %v", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, user.PublicProfile())
}

func (a *API) handleListContacts(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	contacts, err := a.contacts.ListContacts(userID)
	if err != nil {
		logger.Errorf("list contacts: %v", err)
		writeError(w, http.StatusInternalServerError, "listing contacts failed")
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (a *API) handleListPendingRequests(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	reqs, err := a.contacts.ListPendingRequests(userID)
	if err != nil {
		logger.Errorf("list pending requests: %v", err)
		writeError(w, http.StatusInternalServerError, "listing requests failed")
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (a *API) handleListMessages(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	peerID := r.URL.Query().Get("peerId")
	if userID == "" || peerID == "" {
		writeError(w, http.StatusBadRequest, "userId and peerId are required")
		return
	}

	msgs, err := a.messages.ListConversation(userID, peerID)
	if err != nil {
		logger.Errorf("list messages: %v", err)
		writeError(w, http.StatusInternalServerError, "listing messages failed")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (a *API) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.messages.Delete(id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown message")
			return
		}
		logger.Errorf("delete message: %v", err)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type verifyContactRequest struct {
	OwnerID      string `json:"ownerId"`
	PeerID       string `json:"peerId"`
	IsVerified   bool   `json:"isVerified"`
	SafetyNumber string `json:"safetyNumber"`
}

func (a *API) handleVerifyContact(w http.ResponseWriter, r *http.Request) {
	var req verifyContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID == "" || req.PeerID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := a.contacts.Verify(req.OwnerID, req.PeerID, req.IsVerified, req.SafetyNumber); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown contact")
			return
		}
		logger.Errorf("verify contact: %v", err)
		writeError(w, http.StatusInternalServerError, "verification update failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warningf("writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
