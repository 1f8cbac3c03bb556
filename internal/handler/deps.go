package handler

import (
	"relaychat/internal/app/auth"
	"relaychat/internal/app/cache"
	"relaychat/internal/app/chat"
	"relaychat/internal/app/storage"
	"relaychat/internal/app/store"
	"relaychat/internal/configs"
)

// AppDeps carries everything the handlers need. StorageService and Presence are nil
// when file sharing or the Redis mirror are not configured.
type AppDeps struct {
	Hub            *chat.Hub
	Config         *configs.AppConfig
	Store          store.Store
	Verifier       *auth.Verifier
	StorageService storage.StorageService
	Presence       *cache.PresenceMirror
}
