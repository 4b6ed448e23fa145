package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"whisper-relay/internal/logger"
	"whisper-relay/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Pairing codes avoid 0/O and 1/I so they survive being read aloud.
const pairingAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const pairingCodeLength = 8

// UserService handles registration, login and identity lookup.
type UserService struct {
	users UserStore
}

// NewUserService creates a UserService over the given store.
func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// Register creates a new user with a generated unique pairing code.
// Returns ErrHandleTaken if the handle already exists.
func (s *UserService) Register(handle, publicKey, identityKey, signedPreKey string) (*models.User, error) {
	if _, err := s.users.GetByHandle(handle); err == nil {
		return nil, ErrHandleTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("checking handle: %w", err)
	}

	code, err := s.generatePairingCode()
	if err != nil {
		return nil, fmt.Errorf("generating pairing code: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Handle:       handle,
		PublicKey:    publicKey,
		IdentityKey:  identityKey,
		SignedPreKey: signedPreKey,
		PairingCode:  code,
	}
	if err := s.users.Create(user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	logger.Infof("registered user %s (handle %s)", user.ID, handle)
	return user, nil
}

// Login returns the user record for a handle. ErrNotFound for unknown
// handles.
func (s *UserService) Login(handle string) (*models.User, error) {
	user, err := s.users.GetByHandle(handle)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("looking up handle: %w", err)
	}
	return user, nil
}

// GetByID returns the user record for an id.
func (s *UserService) GetByID(id string) (*models.User, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	return user, nil
}

// LookupByPairingCode finds a user by pairing code, case-insensitively.
func (s *UserService) LookupByPairingCode(code string) (*models.User, error) {
	user, err := s.users.GetByPairingCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("looking up pairing code: %w", err)
	}
	return user, nil
}

// generatePairingCode draws random codes until one is unused. Collisions
// are vanishingly rare at 32^8 but the retry keeps uniqueness honest.
func (s *UserService) generatePairingCode() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		buf := make([]byte, pairingCodeLength)
		for i := range buf {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(pairingAlphabet))))
			if err != nil {
				return "", err
			}
			buf[i] = pairingAlphabet[n.Int64()]
		}
		code := string(buf)

		_, err := s.users.GetByPairingCode(code)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not generate a unique pairing code")
}
