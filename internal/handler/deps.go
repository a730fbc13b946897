package handler

import (
	"syncboard/internal/app/relay"
	"syncboard/internal/configs"
)

// AppDeps bundles what the HTTP layer needs from the rest of the relay.
type AppDeps struct {
	Hub    *relay.Hub
	Config *configs.AppConfig
	Ledger relay.Ledger
}
