// Package relay implements the real-time channel: websocket sessions, the
// typed event dispatch, and the presence-gated forwarding paths.
package relay

import (
	"encoding/json"
	"errors"

	"whisper-relay/internal/logger"
	"whisper-relay/internal/presence"
	"whisper-relay/internal/protocol"
	"whisper-relay/internal/service"
)

// Handler dispatches every inbound event through one entry point per
// session. Each event is an independent unit of work; store latency on one
// session never blocks another.
type Handler struct {
	users       *service.UserService
	contacts    *service.ContactService
	messages    *service.MessageService
	presence    *presence.Directory
	broadcaster *presence.Broadcaster
}

// NewHandler wires the dispatcher over the service layer.
func NewHandler(svcs *service.Services, broadcaster *presence.Broadcaster) *Handler {
	return &Handler{
		users:       svcs.Users,
		contacts:    svcs.Contacts,
		messages:    svcs.Messages,
		presence:    svcs.Presence,
		broadcaster: broadcaster,
	}
}

// HandleEvent dispatches one inbound envelope from a session.
func (h *Handler) HandleEvent(sess presence.Session, env protocol.Envelope) {
	if protocol.IsCallSignal(env.Type) {
		h.relaySignal(sess, env)
		return
	}

	switch env.Type {
	case protocol.EventAnnounceOnline:
		h.handleAnnounceOnline(sess, env.Payload)
	case protocol.EventSendMessage:
		h.handleSendMessage(sess, env.Payload)
	case protocol.EventMarkRead:
		h.handleMarkRead(sess, env.Payload)
	case protocol.EventTyping:
		h.handleTyping(sess, env.Payload)
	case protocol.EventRequestContact:
		h.handleRequestContact(sess, env.Payload)
	case protocol.EventAcceptContact:
		h.handleAcceptContact(sess, env.Payload)
	case protocol.EventRejectContact:
		h.handleRejectContact(sess, env.Payload)
	case protocol.EventDeleteContact:
		h.handleDeleteContact(sess, env.Payload)
	default:
		logger.Debugf("session %s: unknown event %q", sess.ID(), env.Type)
		h.sendError(sess, env.Type, "unknown event type")
	}
}

// HandleDisconnect runs the teardown for a closed transport session: the
// presence entry (if still owned by this session) is cleared, which
// broadcasts the offline transition, and the session stops receiving
// broadcasts.
func (h *Handler) HandleDisconnect(sess presence.Session) {
	h.broadcaster.Unsubscribe(sess)
	if userID, ok := h.presence.Clear(sess); ok {
		logger.Debugf("session %s: disconnect cleared presence for %s", sess.ID(), userID)
	}
}

func (h *Handler) handleAnnounceOnline(sess presence.Session, payload json.RawMessage) {
	var p protocol.AnnounceOnline
	if err := json.Unmarshal(payload, &p); err != nil || p.UserID == "" {
		h.sendError(sess, protocol.EventAnnounceOnline, "invalid payload")
		return
	}
	h.presence.SetOnline(p.UserID, sess)
}

func (h *Handler) handleSendMessage(sess presence.Session, payload json.RawMessage) {
	var p protocol.SendMessage
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(sess, protocol.EventSendMessage, "invalid payload")
		return
	}

	msg, err := h.messages.Send(p.SenderID, p.RecipientID, p.Ciphertext, p.Nonce, p.IsEncrypted, p.SelfDestructSeconds)
	if err != nil {
		// Persist failures are surfaced as a distinct event so the client
		// can prompt a retry; never a silent drop.
		logger.Errorf("session %s: send failed: %v", sess.ID(), err)
		if sendErr := sess.Send(protocol.EventMessageSendFailed, protocol.ErrorInfo{
			Event:  protocol.EventSendMessage,
			Reason: "message could not be stored",
		}); sendErr != nil {
			logger.Warningf("session %s: could not report send failure: %v", sess.ID(), sendErr)
		}
		return
	}

	if err := sess.Send(protocol.EventMessageAck, msg); err != nil {
		logger.Warningf("session %s: message ack failed: %v", sess.ID(), err)
	}
}

func (h *Handler) handleMarkRead(sess presence.Session, payload json.RawMessage) {
	var p protocol.MarkRead
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(sess, protocol.EventMarkRead, "invalid payload")
		return
	}
	if err := h.messages.MarkRead(p.MessageID); err != nil {
		logger.Warningf("session %s: mark read %s failed: %v", sess.ID(), p.MessageID, err)
	}
}

func (h *Handler) handleTyping(sess presence.Session, payload json.RawMessage) {
	var p protocol.Typing
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	// Same contract as signaling: forwarded if the recipient is online,
	// silently dropped otherwise.
	if target, ok := h.presence.Get(p.RecipientID); ok {
		if err := target.Send(protocol.EventTyping, p); err != nil {
			logger.Debugf("typing: forward to %s failed: %v", p.RecipientID, err)
		}
	}
}

func (h *Handler) handleRequestContact(sess presence.Session, payload json.RawMessage) {
	var p protocol.RequestContact
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(sess, protocol.EventRequestContact, "invalid payload")
		return
	}

	req, err := h.contacts.RequestContact(p.FromUserID, p.ToUserID)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateRequest) {
			h.sendError(sess, protocol.EventRequestContact, "already requested")
		} else {
			logger.Errorf("session %s: contact request failed: %v", sess.ID(), err)
			h.sendError(sess, protocol.EventRequestContact, "contact request failed")
		}
		return
	}

	if err := sess.Send(protocol.EventContactRequestAck, req); err != nil {
		logger.Warningf("session %s: contact request ack failed: %v", sess.ID(), err)
	}
}

func (h *Handler) handleAcceptContact(sess presence.Session, payload json.RawMessage) {
	var p protocol.AcceptContact
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(sess, protocol.EventAcceptContact, "invalid payload")
		return
	}

	requester, err := h.contacts.AcceptRequest(p.RequestID, p.AccepterID, p.RequesterID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			h.sendError(sess, protocol.EventAcceptContact, "request not found")
		} else {
			logger.Errorf("session %s: accept contact failed: %v", sess.ID(), err)
			h.sendError(sess, protocol.EventAcceptContact, "accept failed")
		}
		return
	}

	if err := sess.Send(protocol.EventContactAccepted, protocol.ContactAccepted{
		RequestID: p.RequestID,
		Peer:      *requester,
	}); err != nil {
		logger.Warningf("session %s: contact accepted ack failed: %v", sess.ID(), err)
	}
}

func (h *Handler) handleRejectContact(sess presence.Session, payload json.RawMessage) {
	var p protocol.RejectContact
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(sess, protocol.EventRejectContact, "invalid payload")
		return
	}
	if err := h.contacts.RejectRequest(p.RequestID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			h.sendError(sess, protocol.EventRejectContact, "request not found")
		} else {
			logger.Errorf("session %s: reject contact failed: %v", sess.ID(), err)
			h.sendError(sess, protocol.EventRejectContact, "reject failed")
		}
	}
}

func (h *Handler) handleDeleteContact(sess presence.Session, payload json.RawMessage) {
	var p protocol.DeleteContact
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(sess, protocol.EventDeleteContact, "invalid payload")
		return
	}
	if err := h.contacts.DeleteContact(p.OwnerID, p.PeerID); err != nil {
		logger.Errorf("session %s: delete contact failed: %v", sess.ID(), err)
		h.sendError(sess, protocol.EventDeleteContact, "delete failed")
	}
}

// relaySignal forwards a call-signaling payload verbatim to the target's
// live session. An absent target means the payload is dropped without any
// error back to the sender: a stale offer is worthless, so the relay does
// not buffer or retry.
func (h *Handler) relaySignal(sess presence.Session, env protocol.Envelope) {
	var p protocol.CallSignal
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		logger.Debugf("session %s: malformed %s payload: %v", sess.ID(), env.Type, err)
		return
	}

	target, ok := h.presence.Get(p.TargetID)
	if !ok {
		logger.Debugf("signal %s: target %s offline, dropped", env.Type, p.TargetID)
		return
	}
	if err := target.Send(env.Type, json.RawMessage(env.Payload)); err != nil {
		logger.Debugf("signal %s: forward to %s failed: %v", env.Type, p.TargetID, err)
	}
}

func (h *Handler) sendError(sess presence.Session, event, reason string) {
	if err := sess.Send(protocol.EventError, protocol.ErrorInfo{Event: event, Reason: reason}); err != nil {
		logger.Debugf("session %s: error report failed: %v", sess.ID(), err)
	}
}
