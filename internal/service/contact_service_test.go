package service

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisper-relay/internal/models"
	"whisper-relay/internal/protocol"
	"whisper-relay/internal/storage/storagetest"
)

func TestRequestContactCreatesPendingRequest(t *testing.T) {
	store := storagetest.New()
	dir, _ := newTestDirectory()
	svc := NewContactService(store.Users(), store.Requests(), store.Contacts(), dir)

	req, err := svc.RequestContact("alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)

	pending, err := svc.ListPendingRequests("bob")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "alice", pending[0].FromUserID)
}

func TestDuplicatePendingRequestRejected(t *testing.T) {
	store := storagetest.New()
	dir, _ := newTestDirectory()
	svc := NewContactService(store.Users(), store.Requests(), store.Contacts(), dir)

	_, err := svc.RequestContact("alice", "bob")
	require.NoError(t, err)

	_, err = svc.RequestContact("alice", "bob")
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	// Exactly one pending row exists.
	pending, err := svc.ListPendingRequests("bob")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestConcurrentRequestsCollapseToOnePendingRow(t *testing.T) {
	store := storagetest.New()
	dir, _ := newTestDirectory()
	svc := NewContactService(store.Users(), store.Requests(), store.Contacts(), dir)

	var wg sync.WaitGroup
	var created int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RequestContact("alice", "bob"); err == nil {
				atomic.AddInt32(&created, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created)
	pending, err := svc.ListPendingRequests("bob")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestRequestContactForwardsToOnlineRecipient(t *testing.T) {
	store := storagetest.New()
	dir, _ := newTestDirectory()
	users := NewUserService(store.Users())
	svc := NewContactService(store.Users(), store.Requests(), store.Contacts(), dir)

	alice, err := users.Register("alice", "alice-pub", "ik", "spk")
	require.NoError(t, err)
	bob, err := users.Register("bob", "bob-pub", "ik", "spk")
	require.NoError(t, err)

	bobSess := newMockSession("bob-sess")
	dir.SetOnline(bob.ID, bobSess)

	_, err = svc.RequestContact(alice.ID, bob.ID)
	require.NoError(t, err)

	events := bobSess.sent()
	require.Len(t, events, 1)
	assert.Equal(t, protocol.EventContactRequestReceived, events[0].Event)
	payload := events[0].Payload.(protocol.ContactRequestReceived)
	assert.Equal(t, alice.ID, payload.Request.FromUserID)
	assert.Equal(t, "alice", payload.Requester.Handle)
	assert.Equal(t, "alice-pub", payload.Requester.PublicKey)
}

func TestAcceptCreatesBothDirectedRows(t *testing.T) {
	store := storagetest.New()
	dir, _ := newTestDirectory()
	users := NewUserService(store.Users())
	svc := NewContactService(store.Users(), store.Requests(), store.Contacts(), dir)

	alice, _ := users.Register("alice", "pub", "ik", "spk")
	bob, _ := users.Register("bob", "pub", "ik", "spk")

	req, err := svc.RequestContact(bob.ID, alice.ID)
	require.NoError(t, err)

	profile, err := svc.AcceptRequest(req.ID, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", profile.Handle)

	for _, pair := range [][2]string{{alice.ID, bob.ID}, {bob.ID, alice.ID}} {
		contacts, err := svc.ListContacts(pair[0])
		require.NoError(t, err)
		require.Len(t, contacts, 1)
		assert.Equal(t, pair[1], contacts[0].PeerID)
		assert.Equal(t, models.ContactAccepted, contacts[0].Status)
	}
}

func TestAcceptUnknownRequestCreatesNothing(t *testing.T) {
	store := storagetest.New()
	dir, _ := newTestDirectory()
	svc := NewContactService(store.Users(), store.Requests(), store.Contacts(), dir)

	_, err := svc.AcceptRequest(99, "alice", "bob")
	assert.ErrorIs(t, err, ErrNotFound)

	contacts, err := svc.ListContacts("alice")
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestAcceptIsTerminal(t *testing.T) {
	store := storagetest.New()
	dir, _ := newTestDirectory()
	users := NewUserService(store.Users())
	svc := NewContactService(store.Users(), store.Requests(), store.Contacts(), dir)

	alice, _ := users.Register("alice", "pub", "ik", "spk")
	bob, _ := users.Register("bob", "pub", "ik", "spk")

	req, err := svc.RequestContact(bob.ID, alice.ID)
	require.NoError(t, err)
	_, err = svc.AcceptRequest(req.ID, alice.ID, bob.ID)
	require.NoError(t, err)

	// A second transition on the same request fails.
	_, err = svc.AcceptRequest(req.ID, alice.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	err = svc.RejectRequest(req.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAcceptNotifiesOnlineRequester(t *testing.T) {
	store := storagetest.New()
	dir, _ := newTestDirectory()
	users := NewUserService(store.Users())
	svc := NewContactService(store.Users(), store.Requests(), store.Contacts(), dir)

	alice, _ := users.Register("alice", "alice-pub", "ik", "spk")
	bob, _ := users.Register("bob", "pub", "ik", "spk")

	req, err := svc.RequestContact(bob.ID, alice.ID)
	require.NoError(t, err)

	bobSess := newMockSession("bob-sess")
	dir.SetOnline(bob.ID, bobSess)

	_, err = svc.AcceptRequest(req.ID, alice.ID, bob.ID)
	require.NoError(t, err)

	events := bobSess.sent()
	require.Len(t, events, 1)
	assert.Equal(t, protocol.EventContactAccepted, events[0].Event)
	payload := events[0].Payload.(protocol.ContactAccepted)
	assert.Equal(t, alice.ID, payload.Peer.ID)
	assert.Equal(t, "alice-pub", payload.Peer.PublicKey)
}

func TestRejectIsSilent(t *testing.T) {
	store := storagetest.New()
	dir, _ := newTestDirectory()
	users := NewUserService(store.Users())
	svc := NewContactService(store.Users(), store.Requests(), store.Contacts(), dir)

	alice, _ := users.Register("alice", "pub", "ik", "spk")
	bob, _ := users.Register("bob", "pub", "ik", "spk")

	req, err := svc.RequestContact(bob.ID, alice.ID)
	require.NoError(t, err)

	bobSess := newMockSession("bob-sess")
	dir.SetOnline(bob.ID, bobSess)

	require.NoError(t, svc.RejectRequest(req.ID))

	// No notification to the requester, no contact rows.
	assert.Empty(t, bobSess.sent())
	contacts, _ := svc.ListContacts(bob.ID)
	assert.Empty(t, contacts)
}

func TestDeleteContactRemovesBothEdgesAndNotifiesPeer(t *testing.T) {
	store := storagetest.New()
	dir, _ := newTestDirectory()
	users := NewUserService(store.Users())
	svc := NewContactService(store.Users(), store.Requests(), store.Contacts(), dir)

	alice, _ := users.Register("alice", "pub", "ik", "spk")
	bob, _ := users.Register("bob", "pub", "ik", "spk")

	req, _ := svc.RequestContact(bob.ID, alice.ID)
	_, err := svc.AcceptRequest(req.ID, alice.ID, bob.ID)
	require.NoError(t, err)

	bobSess := newMockSession("bob-sess")
	dir.SetOnline(bob.ID, bobSess)

	require.NoError(t, svc.DeleteContact(alice.ID, bob.ID))

	for _, owner := range []string{alice.ID, bob.ID} {
		contacts, _ := svc.ListContacts(owner)
		assert.Empty(t, contacts)
	}

	events := bobSess.sent()
	require.Len(t, events, 1)
	assert.Equal(t, protocol.EventContactDeleted, events[0].Event)
	assert.Equal(t, protocol.ContactDeleted{ByUserID: alice.ID}, events[0].Payload)
}

func TestVerifyContactIsLocalToOwningDirection(t *testing.T) {
	store := storagetest.New()
	dir, _ := newTestDirectory()
	users := NewUserService(store.Users())
	svc := NewContactService(store.Users(), store.Requests(), store.Contacts(), dir)

	alice, _ := users.Register("alice", "pub", "ik", "spk")
	bob, _ := users.Register("bob", "pub", "ik", "spk")

	req, _ := svc.RequestContact(bob.ID, alice.ID)
	_, err := svc.AcceptRequest(req.ID, alice.ID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Verify(alice.ID, bob.ID, true, "12345 67890"))

	aliceContacts, _ := svc.ListContacts(alice.ID)
	require.Len(t, aliceContacts, 1)
	assert.True(t, aliceContacts[0].IsVerified)
	assert.Equal(t, "12345 67890", aliceContacts[0].SafetyNumber)

	bobContacts, _ := svc.ListContacts(bob.ID)
	require.Len(t, bobContacts, 1)
	assert.False(t, bobContacts[0].IsVerified)
}

func TestVerifyUnknownContactRow(t *testing.T) {
	store := storagetest.New()
	dir, _ := newTestDirectory()
	svc := NewContactService(store.Users(), store.Requests(), store.Contacts(), dir)

	err := svc.Verify("alice", "bob", true, "sn")
	assert.ErrorIs(t, err, ErrNotFound)
}
