package handler

import (
	"relaychat/internal/app/chat"
	"relaychat/internal/app/provider"
	"relaychat/internal/configs"
)

// AppDeps bundles the dependencies the HTTP layer needs.
type AppDeps struct {
	Hub       *chat.Hub
	Config    *configs.AppConfig
	Directory provider.Directory
	Media     provider.Media
}
