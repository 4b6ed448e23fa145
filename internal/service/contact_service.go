package service

import (
	"errors"
	"fmt"

	"whisper-relay/internal/logger"
	"whisper-relay/internal/models"
	"whisper-relay/internal/presence"
	"whisper-relay/internal/protocol"

	"gorm.io/gorm"
)

// ContactService runs the handshake that links two identities:
// none -> pending -> accepted/rejected. Forwarding to the counterpart is
// presence-gated and best-effort; store mutations are not.
type ContactService struct {
	users    UserStore
	requests RequestStore
	contacts ContactStore
	presence *presence.Directory
}

// NewContactService wires the handshake over its stores and the presence
// directory.
func NewContactService(users UserStore, requests RequestStore, contacts ContactStore, dir *presence.Directory) *ContactService {
	return &ContactService{users: users, requests: requests, contacts: contacts, presence: dir}
}

// RequestContact persists a pending request and pushes it to the recipient
// if they are online. ErrDuplicateRequest when a pending request already
// exists for this ordered pair; the store enforces that atomically, so
// concurrent duplicates collapse to one row.
func (s *ContactService) RequestContact(fromID, toID string) (*models.ContactRequest, error) {
	req := &models.ContactRequest{
		FromUserID: fromID,
		ToUserID:   toID,
		Status:     models.RequestPending,
	}
	if err := s.requests.Create(req); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateRequest
		}
		return nil, fmt.Errorf("creating contact request: %w", err)
	}

	if sess, ok := s.presence.Get(toID); ok {
		requester, err := s.users.GetByID(fromID)
		if err != nil {
			logger.Warningf("contact request %d: cannot load requester profile: %v", req.ID, err)
		} else if err := sess.Send(protocol.EventContactRequestReceived, protocol.ContactRequestReceived{
			Request:   *req,
			Requester: requester.PublicProfile(),
		}); err != nil {
			logger.Warningf("contact request %d: forward to %s failed: %v", req.ID, toID, err)
		}
	}

	return req, nil
}

// AcceptRequest transitions the request and creates both directed contact
// rows as one logical unit. It notifies the requester if present and
// returns the requester's profile for the accepter's acknowledgment.
func (s *ContactService) AcceptRequest(requestID uint, accepterID, requesterID string) (*models.Profile, error) {
	if err := s.requests.Accept(requestID, accepterID, requesterID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("accepting contact request: %w", err)
	}

	logger.Infof("contact request %d accepted: %s <-> %s", requestID, accepterID, requesterID)

	if sess, ok := s.presence.Get(requesterID); ok {
		accepter, err := s.users.GetByID(accepterID)
		if err != nil {
			logger.Warningf("contact request %d: cannot load accepter profile: %v", requestID, err)
		} else if err := sess.Send(protocol.EventContactAccepted, protocol.ContactAccepted{
			RequestID: requestID,
			Peer:      accepter.PublicProfile(),
		}); err != nil {
			logger.Warningf("contact request %d: notify requester failed: %v", requestID, err)
		}
	}

	requester, err := s.users.GetByID(requesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading requester profile: %w", err)
	}
	profile := requester.PublicProfile()
	return &profile, nil
}

// RejectRequest marks the request rejected. Rejection is silent: the
// requester is not notified.
func (s *ContactService) RejectRequest(requestID uint) error {
	if err := s.requests.Reject(requestID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("rejecting contact request: %w", err)
	}
	return nil
}

// DeleteContact removes both directed edges and notifies the peer if
// present.
func (s *ContactService) DeleteContact(ownerID, peerID string) error {
	if err := s.contacts.DeleteRelationship(ownerID, peerID); err != nil {
		return fmt.Errorf("deleting contact: %w", err)
	}

	if sess, ok := s.presence.Get(peerID); ok {
		if err := sess.Send(protocol.EventContactDeleted, protocol.ContactDeleted{ByUserID: ownerID}); err != nil {
			logger.Warningf("contact delete: notify %s failed: %v", peerID, err)
		}
	}
	return nil
}

// Verify updates the verification fields on the owner's directed row.
func (s *ContactService) Verify(ownerID, peerID string, isVerified bool, safetyNumber string) error {
	if err := s.contacts.SetVerification(ownerID, peerID, isVerified, safetyNumber); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("updating contact verification: %w", err)
	}
	return nil
}

// ListContacts returns the directed contact rows owned by a user.
func (s *ContactService) ListContacts(ownerID string) ([]models.Contact, error) {
	contacts, err := s.contacts.ListForOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	return contacts, nil
}

// ListPendingRequests returns inbound pending requests for a user.
func (s *ContactService) ListPendingRequests(userID string) ([]models.ContactRequest, error) {
	reqs, err := s.requests.ListPendingForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("listing pending requests: %w", err)
	}
	return reqs, nil
}
