package service

import (
	"time"

	"whisper-relay/internal/config"
	"whisper-relay/internal/logger"
	"whisper-relay/internal/presence"
	"whisper-relay/internal/storage"
)

// Services bundles the wired service layer for the relay and the HTTP API.
type Services struct {
	Users    *UserService
	Contacts *ContactService
	Messages *MessageService
	Sweeper  *Sweeper
	Presence *presence.Directory
}

// Initialize builds the repositories over the shared database connection,
// runs their migrations, and wires the services together with a single
// presence directory.
func Initialize(cfg *config.Config, broadcaster *presence.Broadcaster) *Services {
	userRepo := storage.NewUserRepository(storage.DB)
	if err := userRepo.MigrateTable(); err != nil {
		logger.Warningf("Error migrating User table: %v", err)
	}
	requestRepo := storage.NewRequestRepository(storage.DB)
	if err := requestRepo.MigrateTable(); err != nil {
		logger.Warningf("Error migrating ContactRequest table: %v", err)
	}
	contactRepo := storage.NewContactRepository(storage.DB)
	if err := contactRepo.MigrateTable(); err != nil {
		logger.Warningf("Error migrating Contact table: %v", err)
	}
	messageRepo := storage.NewMessageRepository(storage.DB)
	if err := messageRepo.MigrateTable(); err != nil {
		logger.Warningf("Error migrating Message table: %v", err)
	}

	dir := presence.NewDirectory(broadcaster, userRepo)

	return &Services{
		Users:    NewUserService(userRepo),
		Contacts: NewContactService(userRepo, requestRepo, contactRepo, dir),
		Messages: NewMessageService(messageRepo, dir),
		Sweeper:  NewSweeper(messageRepo, time.Duration(cfg.Relay.SweepIntervalSeconds)*time.Second),
		Presence: dir,
	}
}
