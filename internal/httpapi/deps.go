package httpapi

import (
	"sync/atomic"

	"dealradar-engine/internal/config"
	"dealradar-engine/internal/events"
	"dealradar-engine/internal/importer"
	"dealradar-engine/internal/store"
)

type Deps struct {
	Store *store.DB

	Hub *events.Hub

	Engine *importer.Engine

	// Registered adapter merchant ids (for /sources/seed)
	Merchants []string

	// Atomic stores
	CfgVal    *atomic.Value // stores config.Config
	RunStatus *atomic.Value // stores httpapi.RunStatus

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
}
