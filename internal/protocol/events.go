// Package protocol defines the typed event surface of the relay's
// real-time channel. Every client/server exchange is an Envelope whose
// Type is one of the constants below, dispatched through a single entry
// point per session.
package protocol

import (
	"encoding/json"

	"whisper-relay/internal/models"
)

// Envelope is the wire frame for every websocket event.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> relay events.
const (
	EventAnnounceOnline = "announce-online"
	EventSendMessage    = "send-message"
	EventMarkRead       = "mark-read"
	EventTyping         = "typing"
	EventRequestContact = "request-contact"
	EventAcceptContact  = "accept-contact"
	EventRejectContact  = "reject-contact"
	EventDeleteContact  = "delete-contact"
)

// Relay -> client events.
const (
	EventMessageDelivered       = "message-delivered-to-recipient"
	EventMessageAck             = "message-ack-to-sender"
	EventMessageSendFailed      = "message-send-failed"
	EventContactRequestReceived = "contact-request-received"
	EventContactRequestAck      = "contact-request-ack"
	EventContactAccepted        = "contact-accepted"
	EventContactDeleted         = "contact-deleted"
	EventError                  = "error"
)

// Call signaling events, relayed verbatim in both directions. The relay has
// no model of a call, only of addressed payloads.
const (
	EventCallOffer        = "call:offer"
	EventCallAnswer       = "call:answer"
	EventCallIceCandidate = "call:ice-candidate"
	EventCallReject       = "call:reject"
	EventCallEnd          = "call:end"
	EventCallRequestOffer = "call:request-offer"
)

// IsCallSignal reports whether the event type belongs to the signaling
// relay.
func IsCallSignal(event string) bool {
	switch event {
	case EventCallOffer, EventCallAnswer, EventCallIceCandidate,
		EventCallReject, EventCallEnd, EventCallRequestOffer:
		return true
	}
	return false
}

// AnnounceOnline announces the connecting user's identity.
type AnnounceOnline struct {
	UserID string `json:"userId"`
}

// SendMessage submits a message for relay.
type SendMessage struct {
	SenderID            string `json:"senderId"`
	RecipientID         string `json:"recipientId"`
	Ciphertext          string `json:"ciphertext"`
	Nonce               string `json:"nonce"`
	IsEncrypted         bool   `json:"isEncrypted"`
	SelfDestructSeconds *int   `json:"selfDestructSeconds,omitempty"`
}

// MarkRead acknowledges a message as read.
type MarkRead struct {
	MessageID string `json:"messageId"`
}

// Typing is a presence-gated typing indicator.
type Typing struct {
	SenderID    string `json:"senderId"`
	RecipientID string `json:"recipientId"`
}

// RequestContact initiates the contact handshake.
type RequestContact struct {
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
}

// AcceptContact accepts a pending contact request.
type AcceptContact struct {
	RequestID   uint   `json:"requestId"`
	AccepterID  string `json:"accepterId"`
	RequesterID string `json:"requesterId"`
}

// RejectContact rejects a pending contact request.
type RejectContact struct {
	RequestID uint `json:"requestId"`
}

// DeleteContact tears down an established relationship.
type DeleteContact struct {
	OwnerID string `json:"ownerId"`
	PeerID  string `json:"peerId"`
}

// ContactRequestReceived is pushed to an online recipient of a handshake.
type ContactRequestReceived struct {
	Request   models.ContactRequest `json:"request"`
	Requester models.Profile        `json:"requester"`
}

// ContactAccepted carries the counterpart's profile to each party.
type ContactAccepted struct {
	RequestID uint           `json:"requestId"`
	Peer      models.Profile `json:"peer"`
}

// ContactDeleted notifies the peer that the relationship was torn down.
type ContactDeleted struct {
	ByUserID string `json:"byUserId"`
}

// CallSignal is the addressed payload for every call:* event. Data is
// opaque to the relay.
type CallSignal struct {
	FromUserID string          `json:"fromUserId"`
	TargetID   string          `json:"targetId"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// ErrorInfo is the payload of error and message-send-failed events.
type ErrorInfo struct {
	Event  string `json:"event,omitempty"`
	Reason string `json:"reason"`
}
